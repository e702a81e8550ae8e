package canon

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// DomainEvent prefixes the content address of a published event.
// The version suffix leaves room for a future algorithm change.
const DomainEvent = "certledger/event/v1"

// hashWithDomain computes SHA256(domain || 0x00 || data).
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// Digest returns the content-addressed id of v under the given domain.
func Digest(domain string, v any) (string, error) {
	data, err := Marshal(v)
	if err != nil {
		return "", fmt.Errorf("digest %s: %w", domain, err)
	}
	return hashWithDomain(domain, data), nil
}
