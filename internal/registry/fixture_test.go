package registry_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/certledger/internal/auth"
	"github.com/roach88/certledger/internal/registry"
	"github.com/roach88/certledger/internal/store"
)

const (
	issuer   = "spiffe://example.org/issuer"
	owner    = "spiffe://example.org/owner"
	newOwner = "spiffe://example.org/new-owner"
	stranger = "spiffe://example.org/stranger"
	other    = "spiffe://example.org/other"
)

// ledger runs registry calls as committed transactions over a MemoryStore,
// the way the engine does, without the queue.
type ledger struct {
	t       *testing.T
	backend *store.MemoryStore
	now     uint64
	events  []registry.Event
}

func newLedger(t *testing.T) *ledger {
	t.Helper()
	m := store.NewMemory()
	t.Cleanup(func() { m.Close() })
	return &ledger{t: t, backend: m, now: 1000}
}

// as runs fn authenticated as identity. Writes and events are kept only
// when fn succeeds.
func (l *ledger) as(identity string, fn func(ctx context.Context, r *registry.Registry) error) error {
	l.t.Helper()
	tx := store.Begin(l.backend, "tx")
	var emitted []registry.Event
	r, err := registry.New(registry.Env{
		Records: tx,
		Auth:    auth.Authenticator{},
		Now:     l.now,
		Events:  registry.EmitterFunc(func(e registry.Event) { emitted = append(emitted, e) }),
	})
	require.NoError(l.t, err)

	ctx := context.Background()
	if identity != "" {
		ctx = auth.WithPrincipal(ctx, identity)
	}
	if err := fn(ctx, r); err != nil {
		tx.Discard()
		return err
	}
	require.NoError(l.t, tx.Commit(ctx))
	l.events = append(l.events, emitted...)
	return nil
}

// read runs a query with no principal.
func (l *ledger) read(fn func(ctx context.Context, r *registry.Registry) error) {
	l.t.Helper()
	require.NoError(l.t, l.as("", fn))
}

func (l *ledger) issue(id string) {
	l.t.Helper()
	err := l.as(issuer, func(ctx context.Context, r *registry.Registry) error {
		_, err := r.IssueCertificate(ctx, id, issuer, owner, "ipfs://"+id)
		return err
	})
	require.NoError(l.t, err)
}

func (l *ledger) initiate(p registry.InitiateParams) error {
	l.t.Helper()
	return l.as(p.From, func(ctx context.Context, r *registry.Registry) error {
		_, err := r.InitiateTransfer(ctx, p)
		return err
	})
}

func (l *ledger) accept(transferID, recipient string) error {
	return l.as(recipient, func(ctx context.Context, r *registry.Registry) error {
		_, err := r.AcceptTransfer(ctx, transferID, recipient)
		return err
	})
}

func (l *ledger) reject(transferID, recipient string) error {
	return l.as(recipient, func(ctx context.Context, r *registry.Registry) error {
		_, err := r.RejectTransfer(ctx, transferID, recipient)
		return err
	})
}

func (l *ledger) cancel(transferID, sender string) error {
	return l.as(sender, func(ctx context.Context, r *registry.Registry) error {
		_, err := r.CancelTransfer(ctx, transferID, sender)
		return err
	})
}

func (l *ledger) complete(transferID, executor string) error {
	return l.as(executor, func(ctx context.Context, r *registry.Registry) error {
		_, err := r.CompleteTransfer(ctx, transferID, executor)
		return err
	})
}

func (l *ledger) certificate(id string) registry.Certificate {
	l.t.Helper()
	var cert registry.Certificate
	l.read(func(ctx context.Context, r *registry.Registry) error {
		var err error
		cert, err = r.GetCertificate(ctx, id)
		return err
	})
	return cert
}

func (l *ledger) transfer(id string) (registry.TransferRequest, error) {
	var tr registry.TransferRequest
	err := l.as("", func(ctx context.Context, r *registry.Registry) error {
		var err error
		tr, err = r.GetTransfer(ctx, id)
		return err
	})
	return tr, err
}

func (l *ledger) pending(identity string) []string {
	l.t.Helper()
	var ids []string
	l.read(func(ctx context.Context, r *registry.Registry) error {
		var err error
		ids, err = r.GetPendingTransfers(ctx, identity)
		return err
	})
	return ids
}

func (l *ledger) history(certID string) []registry.TransferHistoryEntry {
	l.t.Helper()
	var entries []registry.TransferHistoryEntry
	l.read(func(ctx context.Context, r *registry.Registry) error {
		var err error
		entries, err = r.GetTransferHistory(ctx, certID)
		return err
	})
	return entries
}

func (l *ledger) count() uint64 {
	l.t.Helper()
	var n uint64
	l.read(func(ctx context.Context, r *registry.Registry) error {
		var err error
		n, err = r.GetTransferCount(ctx)
		return err
	})
	return n
}

func (l *ledger) kinds() []registry.EventKind {
	out := make([]registry.EventKind, 0, len(l.events))
	for _, e := range l.events {
		out = append(out, e.Kind())
	}
	return out
}

func transferOf(id, certID, from, to string) registry.InitiateParams {
	return registry.InitiateParams{TransferID: id, CertificateID: certID, From: from, To: to}
}

func ptr[T any](v T) *T { return &v }
