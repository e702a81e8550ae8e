package store

import (
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

// createTestStore creates a new SQLite store in a temp dir.
func createTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("OpenSQLite() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestRedis starts an in-process Redis and returns a store on it.
func createTestRedis(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	s := NewRedisStore(client, "")
	t.Cleanup(func() { s.Close() })
	return s, mr
}

// backends returns one of each Store implementation for contract tests.
func backends(t *testing.T) map[string]Store {
	t.Helper()
	r, _ := createTestRedis(t)
	m := NewMemory()
	t.Cleanup(func() { m.Close() })
	return map[string]Store{
		"sqlite": createTestStore(t),
		"redis":  r,
		"memory": m,
	}
}

func mustEvent(t *testing.T, kind string, seq int64, txID string, payload any) EventRecord {
	t.Helper()
	ev, err := NewEventRecord(kind, seq, txID, payload)
	if err != nil {
		t.Fatalf("NewEventRecord() failed: %v", err)
	}
	return ev
}
