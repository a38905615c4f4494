// internal/store/memory.go
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
)

// memoryRetries bounds transaction replays under contention, mirroring the
// Redis store's WATCH retry budget.
const memoryRetries = 64

type memoryEntry struct {
	data    json.RawMessage
	version uint64
}

// MemoryStore is an in-process Store with the same optimistic transaction
// semantics as RedisStore: a per-key version counter stands in for WATCH,
// and the transaction function is re-run whenever a concurrent commit bumped
// the version between read and write. Used by tests and local development.
type MemoryStore struct {
	mu   sync.Mutex
	docs map[string]memoryEntry
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{docs: make(map[string]memoryEntry)}
}

func (s *MemoryStore) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.mu.Lock()
	entry, ok := s.docs[key]
	s.mu.Unlock()
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(entry.data, dest); err != nil {
		return false, fmt.Errorf("decode document %s: %w", key, err)
	}
	return true, nil
}

func (s *MemoryStore) Set(ctx context.Context, key string, value interface{}) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode document %s: %w", key, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	entry := s.docs[key]
	s.docs[key] = memoryEntry{data: data, version: entry.version + 1}
	return nil
}

func (s *MemoryStore) Transaction(ctx context.Context, key string, fn TxFunc) (TxResult, error) {
	for i := 0; i < memoryRetries; i++ {
		if err := ctx.Err(); err != nil {
			return TxResult{}, err
		}

		s.mu.Lock()
		entry, exists := s.docs[key]
		s.mu.Unlock()

		var current json.RawMessage
		if exists {
			// Copy so the transaction function cannot alias stored bytes.
			current = append(json.RawMessage(nil), entry.data...)
		}

		next, err := fn(current)
		if errors.Is(err, ErrAbort) {
			return TxResult{Committed: false, Value: current}, nil
		}
		if err != nil {
			return TxResult{}, err
		}

		s.mu.Lock()
		latest, stillExists := s.docs[key]
		conflict := stillExists != exists || (exists && latest.version != entry.version)
		if conflict {
			s.mu.Unlock()
			continue
		}
		if next != nil {
			s.docs[key] = memoryEntry{data: append(json.RawMessage(nil), next...), version: entry.version + 1}
		}
		s.mu.Unlock()
		return TxResult{Committed: true, Value: next}, nil
	}
	return TxResult{}, ErrContention
}
