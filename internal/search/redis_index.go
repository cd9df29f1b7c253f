package search

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	apperrors "github.com/allisson/community/internal/errors"
	"github.com/allisson/community/internal/projection/domain"
)

// NewClient creates a Redis client for the search index.
func NewClient(addr, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
}

// RedisIndex implements Index on top of Redis. Documents are JSON values;
// sort orders are ZSETs scored by the sortable field; filters are SETs per
// author, category and status.
//
// Key layout (ns = configured namespace):
//
//	{ns}:post:doc:{id}            post document JSON
//	{ns}:post:ids                 set of all post ids
//	{ns}:post:idx:created_at      zset scored by createdAt millis
//	{ns}:post:idx:view_count      zset scored by viewCount
//	{ns}:post:idx:like_count      zset scored by likeCount
//	{ns}:post:idx:author:{id}     set of post ids per author
//	{ns}:post:idx:category:{id}   set of post ids per category
//	{ns}:post:idx:status:{s}      set of post ids per status
//	{ns}:reaction:doc:{id}        reaction tally document JSON
type RedisIndex struct {
	client    *redis.Client
	namespace string
	logger    *slog.Logger
}

// NewRedisIndex creates a new RedisIndex.
func NewRedisIndex(client *redis.Client, namespace string, logger *slog.Logger) *RedisIndex {
	return &RedisIndex{
		client:    client,
		namespace: namespace,
		logger:    logger,
	}
}

func (r *RedisIndex) postDocKey(id string) string {
	return fmt.Sprintf("%s:post:doc:%s", r.namespace, id)
}

func (r *RedisIndex) postIDsKey() string {
	return fmt.Sprintf("%s:post:ids", r.namespace)
}

func (r *RedisIndex) sortKey(field string) string {
	return fmt.Sprintf("%s:post:idx:%s", r.namespace, field)
}

func (r *RedisIndex) authorKey(authorID string) string {
	return fmt.Sprintf("%s:post:idx:author:%s", r.namespace, authorID)
}

func (r *RedisIndex) categoryKey(categoryID string) string {
	return fmt.Sprintf("%s:post:idx:category:%s", r.namespace, categoryID)
}

func (r *RedisIndex) statusKey(status string) string {
	return fmt.Sprintf("%s:post:idx:status:%s", r.namespace, status)
}

func (r *RedisIndex) reactionDocKey(id string) string {
	return fmt.Sprintf("%s:reaction:doc:%s", r.namespace, id)
}

// UpsertPost writes the document as a full replace and refreshes every index
// entry. Stale filter references from a previous version of the document are
// removed in the same pipeline.
func (r *RedisIndex) UpsertPost(ctx context.Context, doc *domain.PostDocument) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal post document")
	}

	// Load the previous version so filter sets can be cleaned up when the
	// author, category or status changed.
	old, err := r.GetPost(ctx, doc.ID)
	if err != nil && !apperrors.Is(err, apperrors.ErrNotFound) {
		return err
	}

	pipe := r.client.TxPipeline()
	pipe.Set(ctx, r.postDocKey(doc.ID), raw, 0)
	pipe.SAdd(ctx, r.postIDsKey(), doc.ID)
	pipe.ZAdd(ctx, r.sortKey(SortByCreatedAt), redis.Z{Score: float64(doc.CreatedAt), Member: doc.ID})
	pipe.ZAdd(ctx, r.sortKey(SortByViews), redis.Z{Score: float64(doc.ViewCount), Member: doc.ID})
	pipe.ZAdd(ctx, r.sortKey(SortByLikes), redis.Z{Score: float64(doc.LikeCount), Member: doc.ID})
	pipe.SAdd(ctx, r.authorKey(doc.AuthorID), doc.ID)
	pipe.SAdd(ctx, r.categoryKey(doc.CategoryID), doc.ID)
	pipe.SAdd(ctx, r.statusKey(doc.Status), doc.ID)

	if old != nil {
		if old.AuthorID != doc.AuthorID {
			pipe.SRem(ctx, r.authorKey(old.AuthorID), doc.ID)
		}
		if old.CategoryID != doc.CategoryID {
			pipe.SRem(ctx, r.categoryKey(old.CategoryID), doc.ID)
		}
		if old.Status != doc.Status {
			pipe.SRem(ctx, r.statusKey(old.Status), doc.ID)
		}
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return apperrors.Wrap(err, "failed to upsert post document")
	}
	return nil
}

// PatchPostCounts applies absolute counts through the patch script and
// refreshes the affected sort indexes from the updated document.
func (r *RedisIndex) PatchPostCounts(
	ctx context.Context,
	id, eventID string,
	timestamp time.Time,
	fields map[string]int64,
) (PatchOutcome, error) {
	doc, outcome, err := r.runPatch(ctx, r.postDocKey(id), eventID, timestamp, fields)
	if err != nil || outcome != PatchApplied {
		return outcome, err
	}

	var updated domain.PostDocument
	if err := json.Unmarshal(doc, &updated); err != nil {
		return PatchApplied, apperrors.Wrap(err, "failed to unmarshal patched post document")
	}

	pipe := r.client.TxPipeline()
	if _, ok := fields["viewCount"]; ok {
		pipe.ZAdd(ctx, r.sortKey(SortByViews), redis.Z{Score: float64(updated.ViewCount), Member: id})
	}
	if _, ok := fields["likeCount"]; ok {
		pipe.ZAdd(ctx, r.sortKey(SortByLikes), redis.Z{Score: float64(updated.LikeCount), Member: id})
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return PatchApplied, apperrors.Wrap(err, "failed to refresh sort indexes")
	}
	return PatchApplied, nil
}

// DeletePost removes the document and all index references. Deleting a
// missing document succeeds.
func (r *RedisIndex) DeletePost(ctx context.Context, id string) error {
	old, err := r.GetPost(ctx, id)
	if err != nil && !apperrors.Is(err, apperrors.ErrNotFound) {
		return err
	}

	pipe := r.client.TxPipeline()
	pipe.Del(ctx, r.postDocKey(id))
	pipe.SRem(ctx, r.postIDsKey(), id)
	pipe.ZRem(ctx, r.sortKey(SortByCreatedAt), id)
	pipe.ZRem(ctx, r.sortKey(SortByViews), id)
	pipe.ZRem(ctx, r.sortKey(SortByLikes), id)
	if old != nil {
		pipe.SRem(ctx, r.authorKey(old.AuthorID), id)
		pipe.SRem(ctx, r.categoryKey(old.CategoryID), id)
		pipe.SRem(ctx, r.statusKey(old.Status), id)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return apperrors.Wrap(err, "failed to delete post document")
	}
	return nil
}

// GetPost retrieves a post document by id.
func (r *RedisIndex) GetPost(ctx context.Context, id string) (*domain.PostDocument, error) {
	raw, err := r.client.Get(ctx, r.postDocKey(id)).Result()
	if err == redis.Nil {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to get post document")
	}

	var doc domain.PostDocument
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return nil, apperrors.Wrap(err, "failed to unmarshal post document")
	}
	return &doc, nil
}

// SearchPosts walks the requested sort order and applies the filters in
// application code. Candidate sets at community scale stay small enough that
// the simple ordered scan beats maintaining combinatorial index structures.
func (r *RedisIndex) SearchPosts(ctx context.Context, query PostQuery) (*PostPage, error) {
	ids, err := r.sortedIDs(ctx, query.SortField, query.SortOrder)
	if err != nil {
		return nil, err
	}

	allowed, err := r.filterSet(ctx, query)
	if err != nil {
		return nil, err
	}

	var candidates []string
	for _, id := range ids {
		if allowed != nil {
			if _, ok := allowed[id]; !ok {
				continue
			}
		}
		candidates = append(candidates, id)
	}

	docs, err := r.loadDocs(ctx, candidates)
	if err != nil {
		return nil, err
	}

	keyword := strings.TrimSpace(query.Keyword)
	var matches []*domain.PostDocument
	for _, doc := range docs {
		if keyword != "" && !matchesKeyword(doc, keyword) {
			continue
		}
		matches = append(matches, doc)
	}

	page := &PostPage{Total: len(matches)}
	if query.Limit <= 0 {
		page.Items = matches
		return page, nil
	}

	start := query.Offset
	if start > len(matches) {
		start = len(matches)
	}
	end := start + query.Limit
	if end > len(matches) {
		end = len(matches)
	}
	page.Items = matches[start:end]
	return page, nil
}

// UpsertReactionCount writes a reaction tally as a full replace.
func (r *RedisIndex) UpsertReactionCount(ctx context.Context, doc *domain.ReactionCountDocument) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal reaction count document")
	}
	if err := r.client.Set(ctx, r.reactionDocKey(doc.ID), raw, 0).Err(); err != nil {
		return apperrors.Wrap(err, "failed to upsert reaction count document")
	}
	return nil
}

// PatchReactionCounts applies absolute counts to a reaction tally document.
func (r *RedisIndex) PatchReactionCounts(
	ctx context.Context,
	id, eventID string,
	timestamp time.Time,
	fields map[string]int64,
) (PatchOutcome, error) {
	_, outcome, err := r.runPatch(ctx, r.reactionDocKey(id), eventID, timestamp, fields)
	return outcome, err
}

// GetReactionCount retrieves a reaction tally document by post id.
func (r *RedisIndex) GetReactionCount(
	ctx context.Context,
	id string,
) (*domain.ReactionCountDocument, error) {
	raw, err := r.client.Get(ctx, r.reactionDocKey(id)).Result()
	if err == redis.Nil {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to get reaction count document")
	}

	var doc domain.ReactionCountDocument
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return nil, apperrors.Wrap(err, "failed to unmarshal reaction count document")
	}
	return &doc, nil
}

// DeleteReactionCount removes a reaction tally; missing documents succeed.
func (r *RedisIndex) DeleteReactionCount(ctx context.Context, id string) error {
	if err := r.client.Del(ctx, r.reactionDocKey(id)).Err(); err != nil {
		return apperrors.Wrap(err, "failed to delete reaction count document")
	}
	return nil
}

// Ping reports whether Redis is reachable.
func (r *RedisIndex) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// runPatch executes the patch script against one document key.
func (r *RedisIndex) runPatch(
	ctx context.Context,
	key, eventID string,
	timestamp time.Time,
	fields map[string]int64,
) ([]byte, PatchOutcome, error) {
	args := make([]interface{}, 0, 2+len(fields)*2)
	args = append(args, eventID, timestamp.UnixMilli())

	// Stable field order keeps the script invocation deterministic.
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		args = append(args, name, fields[name])
	}

	result, err := patchScript.Run(ctx, r.client, []string{key}, args...).Result()
	if err != nil {
		return nil, PatchApplied, apperrors.Wrap(err, "failed to run patch script")
	}

	raw, ok := result.(string)
	if !ok {
		return nil, PatchApplied, fmt.Errorf("unexpected patch script result type %T", result)
	}
	switch raw {
	case "missing":
		return nil, PatchMissing, nil
	case "duplicate":
		return nil, PatchDuplicate, nil
	default:
		return []byte(raw), PatchApplied, nil
	}
}

// sortedIDs returns every indexed post id in the requested order.
func (r *RedisIndex) sortedIDs(ctx context.Context, field, order string) ([]string, error) {
	switch field {
	case SortByCreatedAt, SortByViews, SortByLikes:
	case "":
		field = SortByCreatedAt
	default:
		return nil, apperrors.Wrap(apperrors.ErrInvalidInput, fmt.Sprintf("unknown sort field %q", field))
	}

	key := r.sortKey(field)
	var ids []string
	var err error
	if order == "asc" {
		ids, err = r.client.ZRange(ctx, key, 0, -1).Result()
	} else {
		ids, err = r.client.ZRevRange(ctx, key, 0, -1).Result()
	}
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to read sort index")
	}
	return ids, nil
}

// filterSet intersects the filter sets present in the query. A nil map means
// no filtering.
func (r *RedisIndex) filterSet(ctx context.Context, query PostQuery) (map[string]struct{}, error) {
	var keys []string
	if query.AuthorID != "" {
		keys = append(keys, r.authorKey(query.AuthorID))
	}
	if query.CategoryID != "" {
		keys = append(keys, r.categoryKey(query.CategoryID))
	}
	if query.Status != "" {
		keys = append(keys, r.statusKey(query.Status))
	}
	if len(keys) == 0 {
		return nil, nil
	}

	members, err := r.client.SInter(ctx, keys...).Result()
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to intersect filter sets")
	}
	allowed := make(map[string]struct{}, len(members))
	for _, member := range members {
		allowed[member] = struct{}{}
	}
	return allowed, nil
}

// loadDocs fetches documents preserving the input id order; ids whose
// documents vanished between the index scan and the fetch are skipped.
func (r *RedisIndex) loadDocs(ctx context.Context, ids []string) ([]*domain.PostDocument, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = r.postDocKey(id)
	}

	values, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to load post documents")
	}

	docs := make([]*domain.PostDocument, 0, len(values))
	for i, value := range values {
		raw, ok := value.(string)
		if !ok {
			continue
		}
		var doc domain.PostDocument
		if err := json.Unmarshal([]byte(raw), &doc); err != nil {
			if r.logger != nil {
				r.logger.Warn("skipping undecodable post document",
					slog.String("id", ids[i]),
					slog.Any("error", err),
				)
			}
			continue
		}
		docs = append(docs, &doc)
	}
	return docs, nil
}

// matchesKeyword reports whether the keyword appears in the title or content.
// Weighting between the two fields happens at ranking time; matching here is
// a plain case-insensitive containment check.
func matchesKeyword(doc *domain.PostDocument, keyword string) bool {
	k := strings.ToLower(keyword)
	return strings.Contains(strings.ToLower(doc.Title), k) ||
		strings.Contains(strings.ToLower(doc.Content), k)
}
