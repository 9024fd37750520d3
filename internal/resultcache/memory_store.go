package resultcache

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/stagepass/boxoffice/errs"
)

// MemoryStore is a budget-bounded in-memory Store implementation.
type MemoryStore struct {
	mu       sync.RWMutex
	values   map[string][]byte
	size     int
	maxBytes int
}

// NewMemoryStore creates a memory-backed store. A non-positive budget
// disables the byte limit.
func NewMemoryStore(maxBytes int) *MemoryStore {
	store := new(MemoryStore)
	store.values = make(map[string][]byte)
	store.maxBytes = maxBytes
	return store
}

// Get returns the value stored under key.
func (s *MemoryStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if err := ctxErr(ctx, "get"); err != nil {
		return nil, false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	value, ok := s.values[key]
	if !ok {
		return nil, false, nil
	}
	out := make([]byte, len(value))
	copy(out, value)
	return out, true, nil
}

// Set stores value under key, rejecting writes that exceed the byte budget.
func (s *MemoryStore) Set(ctx context.Context, key string, value []byte) error {
	if err := ctxErr(ctx, "set"); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	next := s.size - len(s.values[key]) + len(value)
	if s.maxBytes > 0 && next > s.maxBytes {
		return errs.New("resultcache/memory", errs.CodeCapacity,
			errs.WithMessage("write exceeds store budget"),
			errs.WithField("budget_bytes", strconv.Itoa(s.maxBytes)),
			errs.WithField("needed_bytes", strconv.Itoa(next)))
	}
	stored := make([]byte, len(value))
	copy(stored, value)
	s.values[key] = stored
	s.size = next
	return nil
}

// Delete removes the value stored under key.
func (s *MemoryStore) Delete(ctx context.Context, key string) error {
	if err := ctxErr(ctx, "delete"); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if value, ok := s.values[key]; ok {
		s.size -= len(value)
		delete(s.values, key)
	}
	return nil
}

// Keys lists every stored key.
func (s *MemoryStore) Keys(ctx context.Context) ([]string, error) {
	if err := ctxErr(ctx, "keys"); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.values))
	for key := range s.values {
		keys = append(keys, key)
	}
	return keys, nil
}

// Clear drops every stored value.
func (s *MemoryStore) Clear(ctx context.Context) error {
	if err := ctxErr(ctx, "clear"); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values = make(map[string][]byte)
	s.size = 0
	return nil
}

func ctxErr(ctx context.Context, op string) error {
	if ctx == nil {
		return nil
	}
	select {
	case <-ctx.Done():
		return fmt.Errorf("memory store %s context: %w", op, ctx.Err())
	default:
		return nil
	}
}
