package auth

import (
	"context"
	"errors"
	"fmt"
)

type principalKey struct{}

// ErrNoPrincipal means the request carried no proven identity.
var ErrNoPrincipal = errors.New("no authenticated principal")

// WithPrincipal returns a context carrying the proven caller identity.
func WithPrincipal(ctx context.Context, identity string) context.Context {
	return context.WithValue(ctx, principalKey{}, identity)
}

// PrincipalFromContext returns the proven caller identity, if any.
func PrincipalFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(principalKey{}).(string)
	return id, ok && id != ""
}

// Authenticator checks registry identities against the context principal.
type Authenticator struct{}

// Require fails unless the context principal is exactly identity.
func (Authenticator) Require(ctx context.Context, identity string) error {
	if err := ValidateIdentity(identity); err != nil {
		return err
	}
	principal, ok := PrincipalFromContext(ctx)
	if !ok {
		return ErrNoPrincipal
	}
	if principal != identity {
		return fmt.Errorf("authenticated as %q", principal)
	}
	return nil
}

// Validate fails if identity is not a SPIFFE ID.
func (Authenticator) Validate(identity string) error {
	return ValidateIdentity(identity)
}
