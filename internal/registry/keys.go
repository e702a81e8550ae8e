package registry

// Record keys. Every persisted value lives under exactly one of these.
const (
	certPrefix     = "cert/"
	transferPrefix = "transfer/"
	historyPrefix  = "history/"
	pendingPrefix  = "pending/"

	// TransferCountKey holds the number of transfers ever initiated.
	TransferCountKey = "meta/transfer_count"
)

// CertificateKey is the record key of a certificate.
func CertificateKey(id string) string { return certPrefix + id }

// TransferKey is the record key of a transfer request.
func TransferKey(id string) string { return transferPrefix + id }

// HistoryKey is the record key of a certificate's completed-transfer list.
func HistoryKey(certificateID string) string { return historyPrefix + certificateID }

// PendingKey is the record key of the transfer ids awaiting an identity.
func PendingKey(identity string) string { return pendingPrefix + identity }
