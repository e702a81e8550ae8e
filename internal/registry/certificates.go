package registry

import (
	"context"
	"fmt"
)

// Registry runs registry calls against one transaction's Env.
// A Registry is cheap; the host creates one per transaction.
type Registry struct {
	env     Env
	pending pendingIndex
	history historyLedger
}

// New binds a Registry to env.
func New(env Env) (*Registry, error) {
	if err := env.validate(); err != nil {
		return nil, err
	}
	return &Registry{
		env:     env,
		pending: pendingIndex{env: env},
		history: historyLedger{env: env},
	}, nil
}

// IssueCertificate creates certificate id owned by owner. The caller must
// prove control of issuer. All failures are fatal.
func (r *Registry) IssueCertificate(ctx context.Context, id, issuer, owner, metadataURI string) (Certificate, error) {
	if err := r.env.require(ctx, issuer, true); err != nil {
		return Certificate{}, err
	}

	if id == "" {
		return Certificate{}, fatalf(CodeInvalidData, "certificate id is empty")
	}

	exists, err := r.env.Records.Has(ctx, CertificateKey(id))
	if err != nil {
		return Certificate{}, fmt.Errorf("check certificate %s: %w", id, err)
	}
	if exists {
		return Certificate{}, fatalf(CodeAlreadyExists, "certificate %q already exists", id)
	}
	if err := r.env.Auth.Validate(owner); err != nil {
		return Certificate{}, &Error{Code: CodeInvalidData, Message: fmt.Sprintf("owner %q", owner), Fatal: true, Err: err}
	}

	cert := Certificate{
		ID:          id,
		Issuer:      issuer,
		Owner:       owner,
		MetadataURI: metadataURI,
		IssuedAt:    r.env.Now,
	}
	if err := r.env.store(ctx, CertificateKey(id), cert); err != nil {
		return Certificate{}, err
	}

	r.env.emit(CertificateIssued{
		CertificateID: id,
		Issuer:        issuer,
		Owner:         owner,
		IssuedAt:      cert.IssuedAt,
	})
	return cert, nil
}

// RevokeCertificate marks certificate id revoked. Only the recorded issuer
// may revoke, never the owner. All failures are fatal.
func (r *Registry) RevokeCertificate(ctx context.Context, id, reason string) (Certificate, error) {
	cert, err := r.certificate(ctx, id, true)
	if err != nil {
		return Certificate{}, err
	}
	if err := r.env.require(ctx, cert.Issuer, true); err != nil {
		return Certificate{}, err
	}
	if cert.Revoked {
		return Certificate{}, fatalf(CodeAlreadyRevoked, "certificate %q already revoked", id)
	}

	cert.revoke(reason, r.env.Now, cert.Issuer)
	if err := r.env.store(ctx, CertificateKey(id), cert); err != nil {
		return Certificate{}, err
	}

	r.env.emit(CertificateRevoked{
		CertificateID: id,
		RevokedBy:     cert.Issuer,
		Reason:        reason,
		RevokedAt:     r.env.Now,
	})
	return cert, nil
}

// GetCertificate returns certificate id.
func (r *Registry) GetCertificate(ctx context.Context, id string) (Certificate, error) {
	return r.certificate(ctx, id, true)
}

// IsRevoked reports whether certificate id has been revoked.
func (r *Registry) IsRevoked(ctx context.Context, id string) (bool, error) {
	cert, err := r.certificate(ctx, id, true)
	if err != nil {
		return false, err
	}
	return cert.Revoked, nil
}

// certificate loads id. fatal selects the error class of a missing
// certificate: ledger calls abort, transfer calls report.
func (r *Registry) certificate(ctx context.Context, id string, fatal bool) (Certificate, error) {
	var cert Certificate
	ok, err := r.env.load(ctx, CertificateKey(id), &cert)
	if err != nil {
		return Certificate{}, err
	}
	if !ok {
		e := rejectf(CodeNotFound, "certificate %q not found", id)
		e.Fatal = fatal
		return Certificate{}, e
	}
	return cert, nil
}

// applyTransfer moves cert to the transfer's destination, revoking it first
// when the transfer asks for it. The system revocation replaces any earlier
// one, so revoked_by is always the sender. It is the only path that changes
// an owner.
func (r *Registry) applyTransfer(ctx context.Context, cert Certificate, t TransferRequest) (Certificate, error) {
	if t.RequireRevocation {
		cert.revoke(SystemRevocationReason, r.env.Now, t.From)
	}
	cert.Owner = t.To
	if err := r.env.store(ctx, CertificateKey(cert.ID), cert); err != nil {
		return Certificate{}, err
	}
	return cert, nil
}

func (c *Certificate) revoke(reason string, at uint64, by string) {
	c.Revoked = true
	c.RevocationReason = &reason
	c.RevokedAt = &at
	c.RevokedBy = &by
}
