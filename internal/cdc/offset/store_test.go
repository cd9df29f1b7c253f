package offset

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockRepository is a mock implementation of Repository
type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) Upsert(ctx context.Context, records []*Record) error {
	args := m.Called(ctx, records)
	return args.Error(0)
}

func (m *MockRepository) GetAll(ctx context.Context) ([]*Record, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*Record), args.Error(1)
}

func TestKeyID(t *testing.T) {
	assert.Equal(t, KeyID([]byte("slot:pub")), KeyID([]byte("slot:pub")))
	assert.NotEqual(t, KeyID([]byte("slot:pub")), KeyID([]byte("other:pub")))
	assert.Len(t, KeyID([]byte("slot:pub")), 64)
}

func TestCachedStore(t *testing.T) {
	ctx := context.Background()
	key := []byte("slot:pub")

	t.Run("Get returns nil for unknown keys", func(t *testing.T) {
		store := NewCachedStore(&MockRepository{})

		values, err := store.Get(ctx, key)
		require.NoError(t, err)
		require.Len(t, values, 1)
		assert.Nil(t, values[0])
	})

	t.Run("Set persists before caching", func(t *testing.T) {
		mockRepo := &MockRepository{}
		mockRepo.On("Upsert", ctx, mock.MatchedBy(func(records []*Record) bool {
			return len(records) == 1 &&
				records[0].ID == KeyID(key) &&
				string(records[0].Value) == "0/16B3748"
		})).Return(nil)
		store := NewCachedStore(mockRepo)

		err := store.Set(ctx, Entry{Key: key, Value: []byte("0/16B3748")})
		require.NoError(t, err)

		values, err := store.Get(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, []byte("0/16B3748"), values[0])

		mockRepo.AssertExpectations(t)
	})

	t.Run("Set keeps the cache untouched when persistence fails", func(t *testing.T) {
		mockRepo := &MockRepository{}
		mockRepo.On("Upsert", ctx, mock.Anything).Return(assert.AnError)
		store := NewCachedStore(mockRepo)

		err := store.Set(ctx, Entry{Key: key, Value: []byte("0/16B3748")})
		require.Error(t, err)

		values, err := store.Get(ctx, key)
		require.NoError(t, err)
		assert.Nil(t, values[0])
	})

	t.Run("LoadAll warms the cache", func(t *testing.T) {
		mockRepo := &MockRepository{}
		mockRepo.On("GetAll", ctx).Return([]*Record{
			{ID: KeyID(key), Key: key, Value: []byte("1/0")},
		}, nil)
		store := NewCachedStore(mockRepo)

		require.NoError(t, store.LoadAll(ctx))

		values, err := store.Get(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, []byte("1/0"), values[0])
	})

	t.Run("Set with no entries is a no-op", func(t *testing.T) {
		store := NewCachedStore(&MockRepository{})
		assert.NoError(t, store.Set(ctx))
	})
}
