package store

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"
)

// MemoryStore is an in-process Backend and EventLog. Contents are lost on
// Close. Safe for concurrent use.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string][]byte
	events  []EventRecord
	closed  bool
}

// NewMemory returns an empty MemoryStore.
func NewMemory() *MemoryStore {
	return &MemoryStore{records: make(map[string][]byte)}
}

func (m *MemoryStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, false, ErrClosed
	}
	v, ok := m.records[key]
	if !ok {
		return nil, false, nil
	}
	return slices.Clone(v), true, nil
}

func (m *MemoryStore) Has(ctx context.Context, key string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return false, ErrClosed
	}
	_, ok := m.records[key]
	return ok, nil
}

// Commit checks reads and applies writes under the write lock, so readers
// never observe a partial batch.
func (m *MemoryStore) Commit(ctx context.Context, txID string, reads []Read, writes []Write) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	for _, r := range reads {
		value, found := m.records[r.Key]
		if !r.matches(value, found) {
			return fmt.Errorf("commit %s: %s changed: %w", txID, r.Key, ErrConflict)
		}
	}
	for _, w := range writes {
		m.records[w.Key] = slices.Clone(w.Value)
	}
	return nil
}

func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	m.records = nil
	m.events = nil
	return nil
}

func (m *MemoryStore) AppendEvent(_ context.Context, ev EventRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	for _, existing := range m.events {
		if existing.ID == ev.ID {
			return nil
		}
	}
	m.events = append(m.events, ev)
	return nil
}

func (m *MemoryStore) LastEventSeq(_ context.Context) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return 0, ErrClosed
	}
	var last int64
	for _, ev := range m.events {
		last = max(last, ev.Seq)
	}
	return last, nil
}

// ReadEvents mirrors SQLiteStore.ReadEvents.
func (m *MemoryStore) ReadEvents(_ context.Context, afterSeq int64, limit int) ([]EventRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, ErrClosed
	}
	out := []EventRecord{}
	for _, ev := range m.events {
		if ev.Seq > afterSeq {
			out = append(out, ev)
		}
	}
	slices.SortFunc(out, func(a, b EventRecord) int { return cmp.Compare(a.Seq, b.Seq) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
