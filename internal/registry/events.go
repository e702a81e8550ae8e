package registry

// EventKind names a registry event.
type EventKind string

const (
	KindCertificateIssued  EventKind = "certificate_issued"
	KindCertificateRevoked EventKind = "certificate_revoked"
	KindTransferInitiated  EventKind = "transfer_initiated"
	KindTransferAccepted   EventKind = "transfer_accepted"
	KindTransferRejected   EventKind = "transfer_rejected"
	KindTransferCancelled  EventKind = "transfer_cancelled"
	KindTransferCompleted  EventKind = "transfer_completed"
)

// Event is a payload describing one successful state transition.
// Payloads are plain JSON-tagged structs so sinks can canonicalize them.
type Event interface {
	Kind() EventKind
}

// Emitter receives events in transition order. The host decides when they
// leave the transaction; a failed transaction's events are never published.
type Emitter interface {
	Emit(Event)
}

// EmitterFunc adapts a function to Emitter.
type EmitterFunc func(Event)

func (f EmitterFunc) Emit(e Event) { f(e) }

type CertificateIssued struct {
	CertificateID string `json:"certificate_id"`
	Issuer        string `json:"issuer"`
	Owner         string `json:"owner"`
	IssuedAt      uint64 `json:"issued_at"`
}

func (CertificateIssued) Kind() EventKind { return KindCertificateIssued }

type CertificateRevoked struct {
	CertificateID string `json:"certificate_id"`
	RevokedBy     string `json:"revoked_by"`
	Reason        string `json:"reason"`
	RevokedAt     uint64 `json:"revoked_at"`
}

func (CertificateRevoked) Kind() EventKind { return KindCertificateRevoked }

type TransferInitiated struct {
	TransferID    string `json:"transfer_id"`
	CertificateID string `json:"certificate_id"`
	From          string `json:"from"`
	To            string `json:"to"`
	InitiatedAt   uint64 `json:"initiated_at"`
	Fee           uint64 `json:"fee"`
}

func (TransferInitiated) Kind() EventKind { return KindTransferInitiated }

type TransferAccepted struct {
	TransferID string `json:"transfer_id"`
	AcceptedAt uint64 `json:"accepted_at"`
}

func (TransferAccepted) Kind() EventKind { return KindTransferAccepted }

type TransferRejected struct {
	TransferID string `json:"transfer_id"`
	RejectedAt uint64 `json:"rejected_at"`
}

func (TransferRejected) Kind() EventKind { return KindTransferRejected }

type TransferCancelled struct {
	TransferID  string `json:"transfer_id"`
	CancelledAt uint64 `json:"cancelled_at"`
}

func (TransferCancelled) Kind() EventKind { return KindTransferCancelled }

type TransferCompleted struct {
	TransferID    string `json:"transfer_id"`
	CertificateID string `json:"certificate_id"`
	From          string `json:"from"`
	To            string `json:"to"`
	CompletedAt   uint64 `json:"completed_at"`
	Fee           uint64 `json:"fee"`
}

func (TransferCompleted) Kind() EventKind { return KindTransferCompleted }
