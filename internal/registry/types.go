package registry

// Certificate is an issued, revocable record of ownership over an opaque
// metadata reference.
type Certificate struct {
	ID               string  `json:"id"`
	Issuer           string  `json:"issuer"`
	Owner            string  `json:"owner"`
	MetadataURI      string  `json:"metadata_uri"`
	IssuedAt         uint64  `json:"issued_at"`
	Revoked          bool    `json:"revoked"`
	RevocationReason *string `json:"revocation_reason,omitempty"`
	RevokedAt        *uint64 `json:"revoked_at,omitempty"`
	RevokedBy        *string `json:"revoked_by,omitempty"`
}

// TransferStatus is the lifecycle state of a TransferRequest.
type TransferStatus string

const (
	// StatusPending: initiated, waiting for the recipient.
	StatusPending TransferStatus = "Pending"
	// StatusAccepted: accepted by the recipient, waiting for completion.
	StatusAccepted TransferStatus = "Accepted"
	// StatusRejected: rejected by the recipient. Terminal.
	StatusRejected TransferStatus = "Rejected"
	// StatusCancelled: cancelled by the sender. Terminal.
	StatusCancelled TransferStatus = "Cancelled"
	// StatusCompleted: ownership moved. Terminal.
	StatusCompleted TransferStatus = "Completed"
)

// CanTransition reports whether next is reachable from s in one step.
func (s TransferStatus) CanTransition(next TransferStatus) bool {
	switch s {
	case StatusPending:
		return next == StatusAccepted || next == StatusRejected || next == StatusCancelled
	case StatusAccepted:
		return next == StatusCompleted
	default:
		return false
	}
}

// TransferRequest is a negotiated request to move certificate ownership.
// CertificateID, From and To never change after creation.
type TransferRequest struct {
	ID                string         `json:"id"`
	CertificateID     string         `json:"certificate_id"`
	From              string         `json:"from"`
	To                string         `json:"to"`
	InitiatedAt       uint64         `json:"initiated_at"`
	AcceptedAt        *uint64        `json:"accepted_at,omitempty"`
	CompletedAt       *uint64        `json:"completed_at,omitempty"`
	Status            TransferStatus `json:"status"`
	RequireRevocation bool           `json:"require_revocation"`
	Fee               uint64         `json:"fee"`
	Memo              *string        `json:"memo,omitempty"`
}

// TransferHistoryEntry is the audit snapshot appended when a transfer completes.
type TransferHistoryEntry struct {
	TransferID    string  `json:"transfer_id"`
	CertificateID string  `json:"certificate_id"`
	From          string  `json:"from"`
	To            string  `json:"to"`
	TransferredAt uint64  `json:"transferred_at"`
	Fee           uint64  `json:"fee"`
	Memo          *string `json:"memo,omitempty"`
}

// InitiateParams carries the arguments of InitiateTransfer.
type InitiateParams struct {
	TransferID        string
	CertificateID     string
	From              string
	To                string
	RequireRevocation bool
	Fee               uint64
	Memo              *string
}

// SystemRevocationReason is recorded when a completed transfer revokes the certificate.
const SystemRevocationReason = "Transferred to new owner"
