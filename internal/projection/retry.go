package projection

import (
	"context"
	"log/slog"
	"strings"
	"time"
)

const maxAttempts = 3

// transientErrorSubstrings identifies infrastructure failures worth retrying.
// Anything else fails fast: retrying a malformed document cannot help.
var transientErrorSubstrings = []string{
	"connection reset",
	"connection refused",
	"connection closed",
	"broken pipe",
	"i/o timeout",
	"use of closed network connection",
}

// isTransient reports whether the error looks like a recoverable
// connectivity failure.
func isTransient(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	for _, substr := range transientErrorSubstrings {
		if strings.Contains(msg, substr) {
			return true
		}
	}
	return false
}

// withRetry runs op up to maxAttempts times with linear backoff
// (attempt x 100ms) when the failure is transient. Non-transient errors and
// the final transient failure are returned to the caller.
func withRetry(ctx context.Context, logger *slog.Logger, operation string, op func() error) error {
	var err error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err = op()
		if err == nil {
			return nil
		}
		if !isTransient(err) {
			return err
		}
		if attempt == maxAttempts {
			break
		}

		if logger != nil {
			logger.Warn("transient index failure, retrying",
				slog.String("operation", operation),
				slog.Int("attempt", attempt),
				slog.Any("error", err),
			)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempt) * 100 * time.Millisecond):
		}
	}
	return err
}
