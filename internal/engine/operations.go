package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"slices"

	"github.com/roach88/certledger/internal/registry"
)

// Operation is one named registry call with its decoded arguments.
type Operation interface {
	Name() string
	Apply(ctx context.Context, r *registry.Registry) (any, error)
}

// Operations maps every call name to a constructor of its request type.
// Transports decode calls through Decode so they agree on names and shapes.
var Operations = map[string]func() Operation{
	"issue_certificate":     func() Operation { return &IssueCertificate{} },
	"revoke_certificate":    func() Operation { return &RevokeCertificate{} },
	"is_revoked":            func() Operation { return &IsRevoked{} },
	"get_certificate":       func() Operation { return &GetCertificate{} },
	"initiate_transfer":     func() Operation { return &InitiateTransfer{} },
	"accept_transfer":       func() Operation { return &AcceptTransfer{} },
	"complete_transfer":     func() Operation { return &CompleteTransfer{} },
	"reject_transfer":       func() Operation { return &RejectTransfer{} },
	"cancel_transfer":       func() Operation { return &CancelTransfer{} },
	"get_transfer":          func() Operation { return &GetTransfer{} },
	"get_pending_transfers": func() Operation { return &GetPendingTransfers{} },
	"get_transfer_history":  func() Operation { return &GetTransferHistory{} },
	"get_transfer_count":    func() Operation { return &GetTransferCount{} },
}

// CallNames returns the catalog's call names, sorted.
func CallNames() []string {
	names := make([]string, 0, len(Operations))
	for name := range Operations {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Decode builds the named Operation from a JSON object. An empty body is
// treated as {}. Unknown fields are rejected.
func Decode(name string, body []byte) (Operation, error) {
	newOp, ok := Operations[name]
	if !ok {
		return nil, &RequestError{Call: name, Unknown: true}
	}
	op := newOp()
	if len(bytes.TrimSpace(body)) == 0 {
		return op, nil
	}
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.DisallowUnknownFields()
	if err := dec.Decode(op); err != nil {
		return nil, &RequestError{Call: name, Err: err}
	}
	return op, nil
}

type IssueCertificate struct {
	ID          string `json:"id"`
	Issuer      string `json:"issuer"`
	Owner       string `json:"owner"`
	MetadataURI string `json:"metadata_uri"`
}

func (IssueCertificate) Name() string { return "issue_certificate" }

func (o IssueCertificate) Apply(ctx context.Context, r *registry.Registry) (any, error) {
	return r.IssueCertificate(ctx, o.ID, o.Issuer, o.Owner, o.MetadataURI)
}

type RevokeCertificate struct {
	ID     string `json:"id"`
	Reason string `json:"reason"`
}

func (RevokeCertificate) Name() string { return "revoke_certificate" }

func (o RevokeCertificate) Apply(ctx context.Context, r *registry.Registry) (any, error) {
	return r.RevokeCertificate(ctx, o.ID, o.Reason)
}

type IsRevoked struct {
	ID string `json:"id"`
}

func (IsRevoked) Name() string { return "is_revoked" }

func (o IsRevoked) Apply(ctx context.Context, r *registry.Registry) (any, error) {
	return r.IsRevoked(ctx, o.ID)
}

type GetCertificate struct {
	ID string `json:"id"`
}

func (GetCertificate) Name() string { return "get_certificate" }

func (o GetCertificate) Apply(ctx context.Context, r *registry.Registry) (any, error) {
	return r.GetCertificate(ctx, o.ID)
}

type InitiateTransfer struct {
	TransferID        string  `json:"transfer_id"`
	CertificateID     string  `json:"certificate_id"`
	From              string  `json:"from"`
	To                string  `json:"to"`
	RequireRevocation bool    `json:"require_revocation"`
	Fee               uint64  `json:"fee"`
	Memo              *string `json:"memo,omitempty"`
}

func (InitiateTransfer) Name() string { return "initiate_transfer" }

func (o InitiateTransfer) Apply(ctx context.Context, r *registry.Registry) (any, error) {
	return r.InitiateTransfer(ctx, registry.InitiateParams{
		TransferID:        o.TransferID,
		CertificateID:     o.CertificateID,
		From:              o.From,
		To:                o.To,
		RequireRevocation: o.RequireRevocation,
		Fee:               o.Fee,
		Memo:              o.Memo,
	})
}

type AcceptTransfer struct {
	TransferID string `json:"transfer_id"`
	Recipient  string `json:"recipient"`
}

func (AcceptTransfer) Name() string { return "accept_transfer" }

func (o AcceptTransfer) Apply(ctx context.Context, r *registry.Registry) (any, error) {
	return r.AcceptTransfer(ctx, o.TransferID, o.Recipient)
}

type RejectTransfer struct {
	TransferID string `json:"transfer_id"`
	Recipient  string `json:"recipient"`
}

func (RejectTransfer) Name() string { return "reject_transfer" }

func (o RejectTransfer) Apply(ctx context.Context, r *registry.Registry) (any, error) {
	return r.RejectTransfer(ctx, o.TransferID, o.Recipient)
}

type CancelTransfer struct {
	TransferID string `json:"transfer_id"`
	Sender     string `json:"sender"`
}

func (CancelTransfer) Name() string { return "cancel_transfer" }

func (o CancelTransfer) Apply(ctx context.Context, r *registry.Registry) (any, error) {
	return r.CancelTransfer(ctx, o.TransferID, o.Sender)
}

type CompleteTransfer struct {
	TransferID string `json:"transfer_id"`
	Executor   string `json:"executor"`
}

func (CompleteTransfer) Name() string { return "complete_transfer" }

func (o CompleteTransfer) Apply(ctx context.Context, r *registry.Registry) (any, error) {
	return r.CompleteTransfer(ctx, o.TransferID, o.Executor)
}

type GetTransfer struct {
	TransferID string `json:"transfer_id"`
}

func (GetTransfer) Name() string { return "get_transfer" }

func (o GetTransfer) Apply(ctx context.Context, r *registry.Registry) (any, error) {
	return r.GetTransfer(ctx, o.TransferID)
}

type GetPendingTransfers struct {
	Identity string `json:"identity"`
}

func (GetPendingTransfers) Name() string { return "get_pending_transfers" }

func (o GetPendingTransfers) Apply(ctx context.Context, r *registry.Registry) (any, error) {
	return r.GetPendingTransfers(ctx, o.Identity)
}

type GetTransferHistory struct {
	CertificateID string `json:"certificate_id"`
}

func (GetTransferHistory) Name() string { return "get_transfer_history" }

func (o GetTransferHistory) Apply(ctx context.Context, r *registry.Registry) (any, error) {
	return r.GetTransferHistory(ctx, o.CertificateID)
}

type GetTransferCount struct{}

func (GetTransferCount) Name() string { return "get_transfer_count" }

func (GetTransferCount) Apply(ctx context.Context, r *registry.Registry) (any, error) {
	return r.GetTransferCount(ctx)
}
