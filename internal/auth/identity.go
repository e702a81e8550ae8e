package auth

import (
	"fmt"

	"github.com/spiffe/go-spiffe/v2/spiffeid"
)

// ParseIdentity parses s as a SPIFFE ID.
func ParseIdentity(s string) (spiffeid.ID, error) {
	id, err := spiffeid.FromString(s)
	if err != nil {
		return spiffeid.ID{}, fmt.Errorf("invalid identity %q: %w", s, err)
	}
	return id, nil
}

// ValidateIdentity reports whether s is a well-formed SPIFFE ID.
func ValidateIdentity(s string) error {
	_, err := ParseIdentity(s)
	return err
}
