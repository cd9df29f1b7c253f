package cdc

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pglogrepl"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgproto3"

	"github.com/allisson/community/internal/cdc/offset"
	"github.com/allisson/community/internal/errors"
	"github.com/allisson/community/internal/metrics"
	"github.com/allisson/community/internal/projection"
)

const (
	outputPlugin           = "pgoutput"
	duplicateObjectSQLCode = "42710"
	initialReconnectDelay  = time.Second
	// A session that survives this long is considered healthy, which resets
	// the reconnect backoff.
	healthySessionDuration = 30 * time.Second
)

// ReaderConfig holds the change-stream reader settings. The connection string
// must carry replication=database so the server speaks the replication
// protocol.
type ReaderConfig struct {
	ConnectionString    string
	SlotName            string
	PublicationName     string
	TableName           string
	FlushInterval       time.Duration
	MaxReconnectBackoff time.Duration
}

// Reader tails the write database's logical replication stream. It creates
// its slot and publication on first run, restricts the stream to the outbox
// table, converts committed inserts into change-feed envelopes and routes
// them to the projection appliers. Exactly one reader may run per slot;
// PostgreSQL enforces this by rejecting a second connection on the same slot.
type Reader struct {
	config  ReaderConfig
	offsets offset.Store
	router  *Router
	metrics metrics.BusinessMetrics
	logger  *slog.Logger
}

// NewReader creates a new Reader.
func NewReader(
	config ReaderConfig,
	offsets offset.Store,
	router *Router,
	businessMetrics metrics.BusinessMetrics,
	logger *slog.Logger,
) *Reader {
	return &Reader{
		config:  config,
		offsets: offsets,
		router:  router,
		metrics: businessMetrics,
		logger:  logger,
	}
}

// Run streams until the context is canceled, reconnecting with capped
// exponential backoff after session failures.
func (r *Reader) Run(ctx context.Context) error {
	if err := r.offsets.LoadAll(ctx); err != nil {
		return fmt.Errorf("failed to load change stream offsets: %w", err)
	}

	delay := initialReconnectDelay
	for {
		started := time.Now()
		err := r.stream(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}

		r.logError("change stream session ended", err)
		r.recordOperation(ctx, "stream", "error")

		if time.Since(started) >= healthySessionDuration {
			delay = initialReconnectDelay
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}

		delay *= 2
		if delay > r.config.MaxReconnectBackoff {
			delay = r.config.MaxReconnectBackoff
		}
	}
}

// stream runs one replication session: connect, ensure slot and publication,
// resume from the stored offset and consume until the connection or the
// context goes away.
func (r *Reader) stream(ctx context.Context) error {
	conn, err := pgconn.Connect(ctx, r.config.ConnectionString)
	if err != nil {
		return fmt.Errorf("failed to connect for replication: %w", err)
	}
	defer conn.Close(context.Background()) //nolint:errcheck

	if err := r.ensurePublication(ctx, conn); err != nil {
		return err
	}
	if err := r.ensureSlot(ctx, conn); err != nil {
		return err
	}

	position, err := r.loadPosition(ctx)
	if err != nil {
		return err
	}

	// With a zero start position the server resumes from the slot's
	// confirmed flush point, so a fresh deployment starts at the slot
	// creation point rather than replaying history before it.
	err = pglogrepl.StartReplication(ctx, conn, r.config.SlotName, position, pglogrepl.StartReplicationOptions{
		PluginArgs: []string{
			"proto_version '1'",
			fmt.Sprintf("publication_names '%s'", r.config.PublicationName),
		},
	})
	if err != nil {
		return fmt.Errorf("failed to start replication on slot %s: %w", r.config.SlotName, err)
	}

	r.logInfo("change stream started",
		slog.String("slot", r.config.SlotName),
		slog.String("publication", r.config.PublicationName),
		slog.String("position", position.String()),
	)

	session := &streamSession{
		reader:    r,
		conn:      conn,
		relations: make(map[uint32]*pglogrepl.RelationMessage),
		position:  position,
	}
	return session.consume(ctx)
}

// ensurePublication creates the outbox-only publication if it does not exist.
func (r *Reader) ensurePublication(ctx context.Context, conn *pgconn.PgConn) error {
	query := fmt.Sprintf("CREATE PUBLICATION %s FOR TABLE %s", r.config.PublicationName, r.config.TableName)
	_, err := conn.Exec(ctx, query).ReadAll()
	if err != nil && !isDuplicateObject(err) {
		return fmt.Errorf("failed to create publication %s: %w", r.config.PublicationName, err)
	}
	return nil
}

// ensureSlot creates the logical replication slot if it does not exist.
func (r *Reader) ensureSlot(ctx context.Context, conn *pgconn.PgConn) error {
	_, err := pglogrepl.CreateReplicationSlot(ctx, conn, r.config.SlotName, outputPlugin,
		pglogrepl.CreateReplicationSlotOptions{})
	if err != nil && !isDuplicateObject(err) {
		return fmt.Errorf("failed to create replication slot %s: %w", r.config.SlotName, err)
	}
	return nil
}

func isDuplicateObject(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == duplicateObjectSQLCode
}

func (r *Reader) partitionKey() []byte {
	return []byte(r.config.SlotName + ":" + r.config.PublicationName)
}

func (r *Reader) loadPosition(ctx context.Context) (pglogrepl.LSN, error) {
	values, err := r.offsets.Get(ctx, r.partitionKey())
	if err != nil {
		return 0, err
	}
	if len(values) == 0 || len(values[0]) == 0 {
		return 0, nil
	}

	position, err := pglogrepl.ParseLSN(string(values[0]))
	if err != nil {
		return 0, fmt.Errorf("failed to parse stored change stream offset: %w", err)
	}
	return position, nil
}

func (r *Reader) persistPosition(ctx context.Context, position pglogrepl.LSN) error {
	if position == 0 {
		return nil
	}
	return r.offsets.Set(ctx, offset.Entry{
		Key:   r.partitionKey(),
		Value: []byte(position.String()),
	})
}

func (r *Reader) recordOperation(ctx context.Context, operation, status string) {
	if r.metrics == nil {
		return
	}
	r.metrics.RecordOperation(ctx, metricsDomain, operation, status)
}

func (r *Reader) logInfo(msg string, args ...any) {
	if r.logger == nil {
		return
	}
	r.logger.Info(msg, args...)
}

func (r *Reader) logError(msg string, err error, args ...any) {
	if r.logger == nil {
		return
	}
	r.logger.Error(msg, append([]any{slog.Any("error", err)}, args...)...)
}

// streamSession holds the per-connection state of one replication session.
type streamSession struct {
	reader     *Reader
	conn       *pgconn.PgConn
	relations  map[uint32]*pglogrepl.RelationMessage
	position   pglogrepl.LSN
	commitTime time.Time
}

// consume reads replication messages until the context is canceled or the
// connection fails. The position is acknowledged to the server and persisted
// to the offset store on every flush interval, and once more on shutdown.
func (s *streamSession) consume(ctx context.Context) error {
	nextFlush := time.Now().Add(s.reader.config.FlushInterval)

	for {
		receiveCtx, cancel := context.WithDeadline(ctx, nextFlush)
		rawMsg, err := s.conn.ReceiveMessage(receiveCtx)
		cancel()

		if err != nil {
			if ctx.Err() != nil {
				s.shutdownFlush()
				return ctx.Err()
			}
			if pgconn.Timeout(err) {
				if err := s.flush(ctx); err != nil {
					return err
				}
				nextFlush = time.Now().Add(s.reader.config.FlushInterval)
				continue
			}
			return fmt.Errorf("failed to receive replication message: %w", err)
		}

		msg, ok := rawMsg.(*pgproto3.CopyData)
		if !ok {
			continue
		}

		switch msg.Data[0] {
		case pglogrepl.PrimaryKeepaliveMessageByteID:
			pkm, err := pglogrepl.ParsePrimaryKeepaliveMessage(msg.Data[1:])
			if err != nil {
				return fmt.Errorf("failed to parse keepalive message: %w", err)
			}
			if pkm.ReplyRequested {
				if err := s.flush(ctx); err != nil {
					return err
				}
				nextFlush = time.Now().Add(s.reader.config.FlushInterval)
			}
		case pglogrepl.XLogDataByteID:
			xld, err := pglogrepl.ParseXLogData(msg.Data[1:])
			if err != nil {
				return fmt.Errorf("failed to parse xlog data: %w", err)
			}
			s.handleWALData(ctx, xld.WALData)
			s.position = xld.WALStart + pglogrepl.LSN(len(xld.WALData))
		}
	}
}

// handleWALData decodes one logical replication message. Decode and apply
// problems are logged and skipped so one bad record cannot wedge the stream;
// redelivery of genuinely failed events is the outbox publisher's job.
func (s *streamSession) handleWALData(ctx context.Context, walData []byte) {
	logicalMsg, err := pglogrepl.Parse(walData)
	if err != nil {
		s.reader.logError("skipping unparseable replication message", err)
		s.reader.recordOperation(ctx, "decode", "skipped")
		return
	}

	switch m := logicalMsg.(type) {
	case *pglogrepl.RelationMessage:
		s.relations[m.RelationID] = m
	case *pglogrepl.BeginMessage:
		s.commitTime = m.CommitTime
	case *pglogrepl.InsertMessage:
		s.handleInsert(ctx, m)
	default:
		// Updates, deletes and truncates on the outbox table are publisher
		// bookkeeping and carry no new business facts.
	}
}

func (s *streamSession) handleInsert(ctx context.Context, m *pglogrepl.InsertMessage) {
	rel, ok := s.relations[m.RelationID]
	if !ok {
		s.reader.logError("skipping insert for unknown relation", nil,
			slog.Uint64("relation_id", uint64(m.RelationID)))
		return
	}
	if rel.RelationName != s.reader.config.TableName {
		return
	}

	row := decodeTuple(rel, m.Tuple)
	event := projection.Event{
		ID:          row["id"],
		Type:        row["event_type"],
		AggregateID: row["aggregate_id"],
		Timestamp:   s.commitTime,
		Payload:     []byte(row["payload"]),
	}

	value, err := EncodeEnvelope(event)
	if err != nil {
		s.reader.logError("failed to encode change event", err,
			slog.String("aggregate_id", event.AggregateID))
		return
	}

	if err := s.reader.router.Route(ctx, value); err != nil {
		s.reader.logError("failed to apply change event", err,
			slog.String("event_type", event.Type),
			slog.String("aggregate_id", event.AggregateID),
		)
		s.reader.recordOperation(ctx, "apply", "error")
	}
}

// flush acknowledges the current position to the server and persists it.
func (s *streamSession) flush(ctx context.Context) error {
	err := pglogrepl.SendStandbyStatusUpdate(ctx, s.conn, pglogrepl.StandbyStatusUpdate{
		WALWritePosition: s.position,
	})
	if err != nil {
		return fmt.Errorf("failed to send standby status update: %w", err)
	}

	if err := s.reader.persistPosition(ctx, s.position); err != nil {
		return fmt.Errorf("failed to persist change stream offset: %w", err)
	}
	return nil
}

// shutdownFlush persists the position with a fresh context so a clean stop
// does not reprocess the tail of the stream on the next start.
func (s *streamSession) shutdownFlush() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.reader.persistPosition(ctx, s.position); err != nil {
		s.reader.logError("failed to persist change stream offset on shutdown", err)
	}
}

// decodeTuple maps a pgoutput tuple onto column names using the relation's
// schema. Only text-encoded columns are kept; nulls and unchanged toast
// values are absent from the result.
func decodeTuple(rel *pglogrepl.RelationMessage, tuple *pglogrepl.TupleData) map[string]string {
	row := make(map[string]string, len(rel.Columns))
	if tuple == nil {
		return row
	}
	for i, col := range tuple.Columns {
		if i >= len(rel.Columns) {
			break
		}
		if col.DataType == pglogrepl.TupleDataTypeText {
			row[rel.Columns[i].Name] = string(col.Data)
		}
	}
	return row
}
