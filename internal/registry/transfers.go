package registry

import (
	"context"
	"fmt"
)

// InitiateTransfer opens a Pending transfer of p.CertificateID from p.From
// to p.To. The caller must prove control of p.From.
func (r *Registry) InitiateTransfer(ctx context.Context, p InitiateParams) (TransferRequest, error) {
	if err := r.env.require(ctx, p.From, false); err != nil {
		return TransferRequest{}, err
	}

	used, err := r.env.Records.Has(ctx, TransferKey(p.TransferID))
	if err != nil {
		return TransferRequest{}, fmt.Errorf("check transfer %s: %w", p.TransferID, err)
	}
	if used {
		return TransferRequest{}, rejectf(CodeAlreadyExists, "transfer %q already exists", p.TransferID)
	}

	cert, err := r.certificate(ctx, p.CertificateID, false)
	if err != nil {
		return TransferRequest{}, err
	}
	if cert.Owner != p.From {
		return TransferRequest{}, rejectf(CodeUnauthorized, "%q does not own certificate %q", p.From, p.CertificateID)
	}
	if cert.Revoked {
		return TransferRequest{}, rejectf(CodeAlreadyRevoked, "certificate %q is revoked", p.CertificateID)
	}
	if p.From == p.To {
		return TransferRequest{}, rejectf(CodeInvalidData, "transfer to self")
	}
	if p.TransferID == "" {
		return TransferRequest{}, rejectf(CodeInvalidData, "transfer id is empty")
	}
	if err := r.env.Auth.Validate(p.To); err != nil {
		return TransferRequest{}, &Error{Code: CodeInvalidData, Message: fmt.Sprintf("recipient %q", p.To), Err: err}
	}

	t := TransferRequest{
		ID:                p.TransferID,
		CertificateID:     p.CertificateID,
		From:              p.From,
		To:                p.To,
		InitiatedAt:       r.env.Now,
		Status:            StatusPending,
		RequireRevocation: p.RequireRevocation,
		Fee:               p.Fee,
		Memo:              p.Memo,
	}
	if err := r.env.store(ctx, TransferKey(t.ID), t); err != nil {
		return TransferRequest{}, err
	}
	if err := r.pending.add(ctx, t.To, t.ID); err != nil {
		return TransferRequest{}, err
	}
	if err := r.incrementCount(ctx); err != nil {
		return TransferRequest{}, err
	}

	r.env.emit(TransferInitiated{
		TransferID:    t.ID,
		CertificateID: t.CertificateID,
		From:          t.From,
		To:            t.To,
		InitiatedAt:   t.InitiatedAt,
		Fee:           t.Fee,
	})
	return t, nil
}

// AcceptTransfer moves a Pending transfer to Accepted. Only the destination
// may accept.
func (r *Registry) AcceptTransfer(ctx context.Context, transferID, recipient string) (TransferRequest, error) {
	t, err := r.decide(ctx, transferID, recipient, StatusAccepted)
	if err != nil {
		return TransferRequest{}, err
	}
	r.env.emit(TransferAccepted{TransferID: t.ID, AcceptedAt: r.env.Now})
	return t, nil
}

// RejectTransfer moves a Pending transfer to Rejected. The certificate is
// untouched.
func (r *Registry) RejectTransfer(ctx context.Context, transferID, recipient string) (TransferRequest, error) {
	t, err := r.decide(ctx, transferID, recipient, StatusRejected)
	if err != nil {
		return TransferRequest{}, err
	}
	r.env.emit(TransferRejected{TransferID: t.ID, RejectedAt: r.env.Now})
	return t, nil
}

// decide applies the recipient's accept or reject decision.
func (r *Registry) decide(ctx context.Context, transferID, recipient string, next TransferStatus) (TransferRequest, error) {
	if err := r.env.require(ctx, recipient, false); err != nil {
		return TransferRequest{}, err
	}
	t, err := r.transfer(ctx, transferID)
	if err != nil {
		return TransferRequest{}, err
	}
	if t.To != recipient {
		return TransferRequest{}, rejectf(CodeUnauthorized, "%q is not the recipient of transfer %q", recipient, transferID)
	}
	if !t.Status.CanTransition(next) {
		return TransferRequest{}, rejectf(CodeTransferNotPending, "transfer %q is %s", transferID, t.Status)
	}

	t.Status = next
	if next == StatusAccepted {
		now := r.env.Now
		t.AcceptedAt = &now
	}
	if err := r.env.store(ctx, TransferKey(t.ID), t); err != nil {
		return TransferRequest{}, err
	}
	if err := r.pending.remove(ctx, recipient, t.ID); err != nil {
		return TransferRequest{}, err
	}
	return t, nil
}

// CancelTransfer withdraws a Pending transfer. Only the sender may cancel.
func (r *Registry) CancelTransfer(ctx context.Context, transferID, sender string) (TransferRequest, error) {
	if err := r.env.require(ctx, sender, false); err != nil {
		return TransferRequest{}, err
	}
	t, err := r.transfer(ctx, transferID)
	if err != nil {
		return TransferRequest{}, err
	}
	if t.From != sender {
		return TransferRequest{}, rejectf(CodeUnauthorized, "%q is not the sender of transfer %q", sender, transferID)
	}
	if !t.Status.CanTransition(StatusCancelled) {
		return TransferRequest{}, rejectf(CodeTransferNotPending, "transfer %q is %s", transferID, t.Status)
	}

	t.Status = StatusCancelled
	if err := r.env.store(ctx, TransferKey(t.ID), t); err != nil {
		return TransferRequest{}, err
	}
	// Never accepted, so still indexed under the destination.
	if err := r.pending.remove(ctx, t.To, t.ID); err != nil {
		return TransferRequest{}, err
	}

	r.env.emit(TransferCancelled{TransferID: t.ID, CancelledAt: r.env.Now})
	return t, nil
}

// CompleteTransfer finalizes an Accepted transfer: the certificate moves to
// the destination (revoked first if requested) and a history entry is
// appended. The sender, the recipient or the certificate's issuer may
// execute it.
func (r *Registry) CompleteTransfer(ctx context.Context, transferID, executor string) (TransferRequest, error) {
	if err := r.env.require(ctx, executor, false); err != nil {
		return TransferRequest{}, err
	}
	t, err := r.transfer(ctx, transferID)
	if err != nil {
		return TransferRequest{}, err
	}
	if !t.Status.CanTransition(StatusCompleted) {
		return TransferRequest{}, rejectf(CodeInvalidTransferStatus, "transfer %q is %s, want %s", transferID, t.Status, StatusAccepted)
	}
	cert, err := r.certificate(ctx, t.CertificateID, false)
	if err != nil {
		return TransferRequest{}, err
	}
	if executor != t.From && executor != t.To && executor != cert.Issuer {
		return TransferRequest{}, rejectf(CodeUnauthorized, "%q may not complete transfer %q", executor, transferID)
	}

	if _, err := r.applyTransfer(ctx, cert, t); err != nil {
		return TransferRequest{}, err
	}

	now := r.env.Now
	t.Status = StatusCompleted
	t.CompletedAt = &now
	if err := r.env.store(ctx, TransferKey(t.ID), t); err != nil {
		return TransferRequest{}, err
	}
	if _, err := r.history.append(ctx, t); err != nil {
		return TransferRequest{}, err
	}

	r.env.emit(TransferCompleted{
		TransferID:    t.ID,
		CertificateID: t.CertificateID,
		From:          t.From,
		To:            t.To,
		CompletedAt:   now,
		Fee:           t.Fee,
	})
	return t, nil
}

// GetTransfer returns transfer id.
func (r *Registry) GetTransfer(ctx context.Context, id string) (TransferRequest, error) {
	return r.transfer(ctx, id)
}

// GetPendingTransfers returns the ids awaiting identity's decision, oldest
// first. Unknown identities have an empty list.
func (r *Registry) GetPendingTransfers(ctx context.Context, identity string) ([]string, error) {
	return r.pending.list(ctx, identity)
}

// GetTransferHistory returns the completed transfers of a certificate in
// completion order. Unknown certificates have an empty history.
func (r *Registry) GetTransferHistory(ctx context.Context, certificateID string) ([]TransferHistoryEntry, error) {
	return r.history.list(ctx, certificateID)
}

// GetTransferCount returns the number of transfers ever initiated.
func (r *Registry) GetTransferCount(ctx context.Context) (uint64, error) {
	var n uint64
	if _, err := r.env.load(ctx, TransferCountKey, &n); err != nil {
		return 0, err
	}
	return n, nil
}

func (r *Registry) transfer(ctx context.Context, id string) (TransferRequest, error) {
	var t TransferRequest
	ok, err := r.env.load(ctx, TransferKey(id), &t)
	if err != nil {
		return TransferRequest{}, err
	}
	if !ok {
		return TransferRequest{}, rejectf(CodeTransferNotFound, "transfer %q not found", id)
	}
	return t, nil
}

func (r *Registry) incrementCount(ctx context.Context) error {
	n, err := r.GetTransferCount(ctx)
	if err != nil {
		return err
	}
	return r.env.store(ctx, TransferCountKey, n+1)
}
