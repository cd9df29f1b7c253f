package projection

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/allisson/community/internal/errors"
)

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{
			name: "nil error",
			err:  nil,
			want: false,
		},
		{
			name: "connection refused",
			err:  apperrors.New("dial tcp 127.0.0.1:6379: connection refused"),
			want: true,
		},
		{
			name: "broken pipe",
			err:  apperrors.New("write: broken pipe"),
			want: true,
		},
		{
			name: "io timeout",
			err:  apperrors.New("read tcp: i/o timeout"),
			want: true,
		},
		{
			name: "business error",
			err:  apperrors.New("failed to parse post snapshot"),
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isTransient(tt.err))
		})
	}
}

func TestWithRetry(t *testing.T) {
	ctx := context.Background()

	t.Run("returns immediately on success", func(t *testing.T) {
		calls := 0
		err := withRetry(ctx, nil, "op", func() error {
			calls++
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, 1, calls)
	})

	t.Run("fails fast on non-transient errors", func(t *testing.T) {
		calls := 0
		err := withRetry(ctx, nil, "op", func() error {
			calls++
			return apperrors.New("malformed document")
		})
		require.Error(t, err)
		assert.Equal(t, 1, calls)
	})

	t.Run("retries transient errors until success", func(t *testing.T) {
		calls := 0
		err := withRetry(ctx, nil, "op", func() error {
			calls++
			if calls < 2 {
				return apperrors.New("connection refused")
			}
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, 2, calls)
	})

	t.Run("gives up after max attempts", func(t *testing.T) {
		calls := 0
		err := withRetry(ctx, nil, "op", func() error {
			calls++
			return apperrors.New("connection reset")
		})
		require.Error(t, err)
		assert.Equal(t, maxAttempts, calls)
	})

	t.Run("stops when the context is cancelled", func(t *testing.T) {
		cancelled, cancel := context.WithCancel(ctx)
		cancel()

		calls := 0
		err := withRetry(cancelled, nil, "op", func() error {
			calls++
			return apperrors.New("connection refused")
		})
		require.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, 1, calls)
	})
}
