package store

import (
	"bytes"
	"context"
	"errors"
	"fmt"
)

// Backend is a durable key-value substrate.
//
// Get reports false for an absent key. Commit applies every write or none,
// and fails with ErrConflict unless every read still holds what it observed.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Has(ctx context.Context, key string) (bool, error)
	Commit(ctx context.Context, txID string, reads []Read, writes []Write) error
	Close() error
}

// EventLog is a backend that also keeps the published event stream.
type EventLog interface {
	AppendEvent(ctx context.Context, ev EventRecord) error
	LastEventSeq(ctx context.Context) (int64, error)
}

// Write is one buffered record update.
type Write struct {
	Key   string
	Value []byte
}

// Read is a key a transaction observed in the backend and what it saw.
type Read struct {
	Key   string
	Value []byte
	Found bool
}

// matches reports whether the current state of the key equals the read.
func (r Read) matches(value []byte, found bool) bool {
	return r.Found == found && bytes.Equal(r.Value, value)
}

// ErrConflict is returned by Commit when another writer changed a key the
// transaction read.
var ErrConflict = errors.New("store: write conflict")

// ErrClosed is returned by operations on a closed store or finished Tx.
var ErrClosed = errors.New("store: closed")

// EventReader reads the event log back in seq order.
type EventReader interface {
	ReadEvents(ctx context.Context, afterSeq int64, limit int) ([]EventRecord, error)
}

// Store is a full backend: records, event log and event reads.
type Store interface {
	Backend
	EventLog
	EventReader
}

// Backend names accepted by Open.
const (
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

// Options selects and configures a backend for Open.
type Options struct {
	Backend string
	Path    string
	Redis   RedisOptions
}

// Open returns the backend named by opts.Backend.
func Open(ctx context.Context, opts Options) (Store, error) {
	switch opts.Backend {
	case BackendSQLite, "":
		s, err := OpenSQLite(opts.Path)
		if err != nil {
			return nil, err
		}
		return s, nil
	case BackendRedis:
		r, err := OpenRedis(ctx, opts.Redis)
		if err != nil {
			return nil, err
		}
		return r, nil
	case BackendMemory:
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", opts.Backend)
	}
}
