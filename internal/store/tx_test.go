package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type record struct {
	ID    string `json:"id"`
	Owner string `json:"owner"`
}

func TestTx_ReadsOwnWrites(t *testing.T) {
	m := NewMemory()
	ctx := t.Context()
	tx := Begin(m, "tx-1")

	require.NoError(t, tx.Set(ctx, "cert/C1", record{ID: "C1", Owner: "O"}))

	var got record
	ok, err := tx.Get(ctx, "cert/C1", &got)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, record{ID: "C1", Owner: "O"}, got)

	has, err := tx.Has(ctx, "cert/C1")
	require.NoError(t, err)
	assert.True(t, has)

	// Nothing reaches the backend before Commit.
	has, err = m.Has(ctx, "cert/C1")
	require.NoError(t, err)
	assert.False(t, has)
}

func TestTx_CommitAppliesAllWrites(t *testing.T) {
	m := NewMemory()
	ctx := t.Context()
	tx := Begin(m, "tx-1")

	require.NoError(t, tx.Set(ctx, "b", 1))
	require.NoError(t, tx.Set(ctx, "a", 2))
	require.NoError(t, tx.Set(ctx, "b", 3))

	assert.Equal(t, []Write{
		{Key: "b", Value: []byte("3")},
		{Key: "a", Value: []byte("2")},
	}, tx.Writes())

	require.NoError(t, tx.Commit(ctx))

	data, ok, err := m.Get(ctx, "b")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "3", string(data))

	assert.ErrorIs(t, tx.Commit(ctx), ErrClosed)
}

func TestTx_DiscardPersistsNothing(t *testing.T) {
	m := NewMemory()
	ctx := t.Context()
	tx := Begin(m, "tx-1")

	require.NoError(t, tx.Set(ctx, "cert/C1", record{ID: "C1"}))
	tx.Discard()

	has, err := m.Has(ctx, "cert/C1")
	require.NoError(t, err)
	assert.False(t, has)

	_, err = tx.Get(ctx, "cert/C1", &record{})
	assert.ErrorIs(t, err, ErrClosed)
}

func TestTx_FallsThroughToBackend(t *testing.T) {
	s := createTestStore(t)
	ctx := t.Context()
	require.NoError(t, s.Commit(ctx, "seed", nil, []Write{{Key: "cert/C1", Value: []byte(`{"id":"C1","owner":"O"}`)}}))

	tx := Begin(s, "tx-1")
	var got record
	ok, err := tx.Get(ctx, "cert/C1", &got)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "O", got.Owner)

	ok, err = tx.Get(ctx, "cert/missing", &got)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestTx_SetRejectsUnencodable(t *testing.T) {
	tx := Begin(NewMemory(), "tx-1")
	err := tx.Set(t.Context(), "k", make(chan int))
	assert.ErrorContains(t, err, "encode k")
}

func TestTx_PreservesDecomposedStrings(t *testing.T) {
	m := NewMemory()
	ctx := t.Context()
	id := "Cafe\u0301"

	tx := Begin(m, "tx-1")
	require.NoError(t, tx.Set(ctx, "cert/"+id, record{ID: id, Owner: "O"}))
	require.NoError(t, tx.Commit(ctx))

	var got record
	ok, err := Begin(m, "tx-2").Get(ctx, "cert/"+id, &got)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, id, got.ID)
}

func TestTx_CommitConflictsWithInterleavedWriter(t *testing.T) {
	m := NewMemory()
	ctx := t.Context()

	a := Begin(m, "tx-a")
	b := Begin(m, "tx-b")
	for _, tx := range []*Tx{a, b} {
		has, err := tx.Has(ctx, "transfer/T9")
		require.NoError(t, err)
		require.False(t, has)
		require.NoError(t, tx.Set(ctx, "transfer/T9", record{ID: "T9", Owner: tx.ID()}))
	}

	require.NoError(t, a.Commit(ctx))
	assert.ErrorIs(t, b.Commit(ctx), ErrConflict)

	var got record
	_, err := Begin(m, "tx-c").Get(ctx, "transfer/T9", &got)
	require.NoError(t, err)
	assert.Equal(t, "tx-a", got.Owner)
}

func TestTx_ReadsAreRecordedOnce(t *testing.T) {
	m := NewMemory()
	ctx := t.Context()
	require.NoError(t, m.Commit(ctx, "seed", nil, []Write{{Key: "b", Value: []byte(`1`)}}))

	tx := Begin(m, "tx-1")
	var n int
	_, err := tx.Get(ctx, "b", &n)
	require.NoError(t, err)
	_, err = tx.Has(ctx, "a")
	require.NoError(t, err)
	_, err = tx.Has(ctx, "b")
	require.NoError(t, err)

	assert.Equal(t, []Read{
		{Key: "a"},
		{Key: "b", Value: []byte(`1`), Found: true},
	}, tx.Reads())
}

func TestTx_EmptyCommitSkipsBackend(t *testing.T) {
	m := NewMemory()
	require.NoError(t, m.Close())

	tx := Begin(m, "tx-1")
	assert.NoError(t, tx.Commit(t.Context()))
}

func TestEventRecord_VerifyDetectsTampering(t *testing.T) {
	ev := mustEvent(t, "transfer_completed", 7, "tx-7", map[string]any{"transfer_id": "T1", "fee": 3})
	require.NoError(t, ev.Verify())

	ev.Payload = []byte(`{"fee":4,"transfer_id":"T1"}`)
	assert.ErrorContains(t, ev.Verify(), "does not match content")
}

func TestNewEventRecord_Payload(t *testing.T) {
	ev := mustEvent(t, "transfer_accepted", 1, "tx-1", map[string]any{"transfer_id": "T1", "accepted_at": 5})
	assert.Equal(t, `{"accepted_at":5,"transfer_id":"T1"}`, string(ev.Payload))
	assert.Len(t, ev.ID, 64)

	decomposed := mustEvent(t, "transfer_accepted", 1, "tx-1", map[string]any{"transfer_id": "Te\u0301"})
	assert.Contains(t, string(decomposed.Payload), "Te\u0301", "payload keeps the published id")
	assert.NoError(t, decomposed.Verify())

	_, err := NewEventRecord("transfer_accepted", 1, "tx-1", map[string]any{"fee": 0.5})
	assert.Error(t, err)
}
