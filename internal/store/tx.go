package store

import (
	"context"
	"slices"
)

// Tx is the write overlay of one transaction.
//
// Reads see the transaction's own writes first, then the backend. Every
// backend read is remembered, and Commit fails with ErrConflict if any of
// them changed in the meantime. Nothing reaches the backend until Commit.
// A Tx is used by one goroutine only.
type Tx struct {
	backend Backend
	id      string
	writes  map[string][]byte
	order   []string
	reads   map[string]Read
	done    bool
}

// Begin opens an overlay over b. id labels the commit (the transaction id).
func Begin(b Backend, id string) *Tx {
	return &Tx{
		backend: b,
		id:      id,
		writes:  make(map[string][]byte),
		reads:   make(map[string]Read),
	}
}

// ID returns the transaction id given to Begin.
func (t *Tx) ID() string {
	return t.id
}

// Get decodes the value at key into dst.
func (t *Tx) Get(ctx context.Context, key string, dst any) (bool, error) {
	if t.done {
		return false, ErrClosed
	}
	if data, ok := t.writes[key]; ok {
		return true, decodeValue(key, data, dst)
	}
	data, ok, err := t.read(ctx, key)
	if err != nil || !ok {
		return false, err
	}
	return true, decodeValue(key, data, dst)
}

// Set buffers value at key.
func (t *Tx) Set(_ context.Context, key string, value any) error {
	if t.done {
		return ErrClosed
	}
	data, err := encodeValue(key, value)
	if err != nil {
		return err
	}
	if _, seen := t.writes[key]; !seen {
		t.order = append(t.order, key)
	}
	t.writes[key] = data
	return nil
}

// Has reports whether key exists in the overlay or the backend.
func (t *Tx) Has(ctx context.Context, key string) (bool, error) {
	if t.done {
		return false, ErrClosed
	}
	if _, ok := t.writes[key]; ok {
		return true, nil
	}
	_, ok, err := t.read(ctx, key)
	return ok, err
}

// read fetches key from the backend once and remembers what it saw.
func (t *Tx) read(ctx context.Context, key string) ([]byte, bool, error) {
	if r, ok := t.reads[key]; ok {
		return r.Value, r.Found, nil
	}
	data, ok, err := t.backend.Get(ctx, key)
	if err != nil {
		return nil, false, err
	}
	t.reads[key] = Read{Key: key, Value: data, Found: ok}
	return data, ok, nil
}

// Reads returns every backend read, sorted by key.
func (t *Tx) Reads() []Read {
	keys := make([]string, 0, len(t.reads))
	for k := range t.reads {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	out := make([]Read, 0, len(keys))
	for _, k := range keys {
		out = append(out, t.reads[k])
	}
	return out
}

// Writes returns the buffered writes in first-write order.
func (t *Tx) Writes() []Write {
	out := make([]Write, 0, len(t.order))
	for _, k := range t.order {
		out = append(out, Write{Key: k, Value: t.writes[k]})
	}
	return out
}

// Commit applies the buffered writes atomically and finishes the Tx.
// A Tx with no writes commits without touching the backend.
func (t *Tx) Commit(ctx context.Context) error {
	if t.done {
		return ErrClosed
	}
	t.done = true
	if len(t.order) == 0 {
		return nil
	}
	return t.backend.Commit(ctx, t.id, t.Reads(), t.Writes())
}

// Discard drops the buffered writes. Safe to call after Commit.
func (t *Tx) Discard() {
	t.done = true
	t.writes = nil
	t.order = nil
	t.reads = nil
}
