package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBackend_GetHasCommit(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := t.Context()

			_, ok, err := s.Get(ctx, "cert/C1")
			require.NoError(t, err)
			assert.False(t, ok)

			has, err := s.Has(ctx, "cert/C1")
			require.NoError(t, err)
			assert.False(t, has)

			err = s.Commit(ctx, "tx-1", nil, []Write{
				{Key: "cert/C1", Value: []byte(`{"id":"C1"}`)},
				{Key: "meta/transfer_count", Value: []byte(`0`)},
			})
			require.NoError(t, err)

			got, ok, err := s.Get(ctx, "cert/C1")
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, `{"id":"C1"}`, string(got))

			has, err = s.Has(ctx, "meta/transfer_count")
			require.NoError(t, err)
			assert.True(t, has)
		})
	}
}

func TestBackend_CommitOverwrites(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := t.Context()

			require.NoError(t, s.Commit(ctx, "tx-1", nil, []Write{{Key: "k", Value: []byte(`1`)}}))
			require.NoError(t, s.Commit(ctx, "tx-2", nil, []Write{{Key: "k", Value: []byte(`2`)}}))

			got, ok, err := s.Get(ctx, "k")
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, "2", string(got))
		})
	}
}

func TestBackend_EventLog(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := t.Context()

			last, err := s.LastEventSeq(ctx)
			require.NoError(t, err)
			assert.Equal(t, int64(0), last)

			events, err := s.ReadEvents(ctx, 0, 0)
			require.NoError(t, err)
			assert.NotNil(t, events)
			assert.Empty(t, events)

			e1 := mustEvent(t, "transfer_initiated", 1, "tx-1", map[string]any{"transfer_id": "T1", "fee": 0})
			e2 := mustEvent(t, "transfer_accepted", 2, "tx-2", map[string]any{"transfer_id": "T1", "accepted_at": 5})
			require.NoError(t, s.AppendEvent(ctx, e1))
			require.NoError(t, s.AppendEvent(ctx, e2))

			last, err = s.LastEventSeq(ctx)
			require.NoError(t, err)
			assert.Equal(t, int64(2), last)

			events, err = s.ReadEvents(ctx, 0, 0)
			require.NoError(t, err)
			require.Len(t, events, 2)
			assert.Equal(t, e1, events[0])
			assert.Equal(t, e2, events[1])
			for _, ev := range events {
				assert.NoError(t, ev.Verify())
			}

			events, err = s.ReadEvents(ctx, 1, 0)
			require.NoError(t, err)
			require.Len(t, events, 1)
			assert.Equal(t, int64(2), events[0].Seq)

			events, err = s.ReadEvents(ctx, 0, 1)
			require.NoError(t, err)
			require.Len(t, events, 1)
			assert.Equal(t, int64(1), events[0].Seq)
		})
	}
}

func TestSQLite_AppendEventIdempotent(t *testing.T) {
	s := createTestStore(t)
	ctx := t.Context()

	ev := mustEvent(t, "certificate_issued", 1, "tx-1", map[string]any{"certificate_id": "C1"})
	require.NoError(t, s.AppendEvent(ctx, ev))
	require.NoError(t, s.AppendEvent(ctx, ev))

	events, err := s.ReadEvents(ctx, 0, 0)
	require.NoError(t, err)
	assert.Len(t, events, 1)
}

func TestBackend_CommitDetectsConflicts(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := t.Context()
			require.NoError(t, s.Commit(ctx, "seed", nil, []Write{{Key: "meta/transfer_count", Value: []byte(`1`)}}))

			stale := []Read{
				{Key: "meta/transfer_count", Value: []byte(`1`), Found: true},
				{Key: "transfer/T9", Found: false},
			}
			require.NoError(t, s.Commit(ctx, "tx-a", stale, []Write{
				{Key: "meta/transfer_count", Value: []byte(`2`)},
				{Key: "transfer/T9", Value: []byte(`{"id":"T9","from":"a"}`)},
			}))

			err := s.Commit(ctx, "tx-b", stale, []Write{
				{Key: "meta/transfer_count", Value: []byte(`2`)},
				{Key: "transfer/T9", Value: []byte(`{"id":"T9","from":"b"}`)},
			})
			require.ErrorIs(t, err, ErrConflict)

			got, _, err := s.Get(ctx, "transfer/T9")
			require.NoError(t, err)
			assert.Equal(t, `{"id":"T9","from":"a"}`, string(got), "a conflicting commit writes nothing")

			fresh := []Read{{Key: "meta/transfer_count", Value: []byte(`2`), Found: true}}
			require.NoError(t, s.Commit(ctx, "tx-c", fresh, []Write{{Key: "meta/transfer_count", Value: []byte(`3`)}}))
		})
	}
}

func TestSQLiteDSN(t *testing.T) {
	assert.Equal(t, "ledger.db?_txlock=immediate", sqliteDSN("ledger.db"))
	assert.Equal(t, "file:ledger.db?mode=rwc&_txlock=immediate", sqliteDSN("file:ledger.db?mode=rwc"))
}

func TestMemory_ClosedStoreFails(t *testing.T) {
	m := NewMemory()
	require.NoError(t, m.Close())

	_, _, err := m.Get(context.Background(), "k")
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, m.Commit(context.Background(), "tx", nil, nil), ErrClosed)
}

func TestRedis_KeysArePrefixed(t *testing.T) {
	s, mr := createTestRedis(t)
	ctx := t.Context()

	require.NoError(t, s.Commit(ctx, "tx-1", nil, []Write{{Key: "cert/C1", Value: []byte(`{"id":"C1"}`)}}))

	got, err := mr.Get("certledger:record:cert/C1")
	require.NoError(t, err)
	assert.Equal(t, `{"id":"C1"}`, got)
}

func TestOpen_SelectsBackend(t *testing.T) {
	ctx := t.Context()

	m, err := Open(ctx, Options{Backend: BackendMemory})
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, m)

	_, err = Open(ctx, Options{Backend: "etcd"})
	assert.ErrorContains(t, err, `unknown store backend "etcd"`)

	_, err = Open(ctx, Options{Backend: BackendRedis})
	assert.ErrorContains(t, err, "redis addr is required")
}
