// Package offset persists the change-stream reader's resume position.
// Offsets are keyed by a stable content hash of the raw partition key bytes
// and must survive process restarts: losing one means re-processing the
// entire retained change feed on the next start.
package offset

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"
)

// Entry is one raw key/value offset pair.
type Entry struct {
	Key   []byte
	Value []byte
}

// Record is the persisted form of an entry.
type Record struct {
	ID        string
	Key       []byte
	Value     []byte
	UpdatedAt time.Time
}

// KeyID derives the stable surrogate id for a raw key.
func KeyID(key []byte) string {
	sum := sha256.Sum256(key)
	return hex.EncodeToString(sum[:])
}

// Repository defines offset persistence operations.
type Repository interface {
	Upsert(ctx context.Context, records []*Record) error
	GetAll(ctx context.Context) ([]*Record, error)
}

// Store is the contract the change-stream reader depends on. Set is a
// durable write-through: when it returns, the offsets are on disk.
type Store interface {
	Get(ctx context.Context, keys ...[]byte) ([][]byte, error)
	Set(ctx context.Context, entries ...Entry) error
	LoadAll(ctx context.Context) error
}

// CachedStore backs the Store contract with a repository and an in-memory
// cache warmed once by LoadAll at reader startup.
type CachedStore struct {
	repo  Repository
	mu    sync.RWMutex
	cache map[string][]byte
}

// NewCachedStore creates a new CachedStore.
func NewCachedStore(repo Repository) *CachedStore {
	return &CachedStore{
		repo:  repo,
		cache: make(map[string][]byte),
	}
}

// Get returns the cached value for each key, nil for unknown keys. Values
// are positional: result[i] belongs to keys[i].
func (s *CachedStore) Get(ctx context.Context, keys ...[]byte) ([][]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	values := make([][]byte, len(keys))
	for i, key := range keys {
		if value, ok := s.cache[KeyID(key)]; ok {
			values[i] = value
		}
	}
	return values, nil
}

// Set persists the entries and then updates the cache. The repository write
// happens first so a crash can never leave the cache ahead of disk.
func (s *CachedStore) Set(ctx context.Context, entries ...Entry) error {
	if len(entries) == 0 {
		return nil
	}

	now := time.Now().UTC()
	records := make([]*Record, len(entries))
	for i, entry := range entries {
		records[i] = &Record{
			ID:        KeyID(entry.Key),
			Key:       entry.Key,
			Value:     entry.Value,
			UpdatedAt: now,
		}
	}

	if err := s.repo.Upsert(ctx, records); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, record := range records {
		s.cache[record.ID] = record.Value
	}
	return nil
}

// LoadAll warms the cache from the repository.
func (s *CachedStore) LoadAll(ctx context.Context) error {
	records, err := s.repo.GetAll(ctx)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache = make(map[string][]byte, len(records))
	for _, record := range records {
		s.cache[record.ID] = record.Value
	}
	return nil
}
