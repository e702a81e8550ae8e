package auth

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/spiffe/go-spiffe/v2/spiffetls"
)

// IdentityHeader carries the caller identity in development mode.
const IdentityHeader = "X-Certledger-Identity"

// Resolver extracts the caller identity from a request.
type Resolver interface {
	Resolve(r *http.Request) (string, error)
}

// ResolverFunc adapts a function to Resolver.
type ResolverFunc func(r *http.Request) (string, error)

func (f ResolverFunc) Resolve(r *http.Request) (string, error) { return f(r) }

// PeerResolver returns the SPIFFE ID of the verified mTLS peer.
func PeerResolver() Resolver {
	return ResolverFunc(func(r *http.Request) (string, error) {
		if r.TLS == nil {
			return "", errors.New("request is not over TLS")
		}
		id, err := spiffetls.PeerIDFromConnectionState(*r.TLS)
		if err != nil {
			return "", fmt.Errorf("peer identity: %w", err)
		}
		return id.String(), nil
	})
}

// HeaderResolver trusts IdentityHeader. Development only: anyone can claim
// any identity.
func HeaderResolver() Resolver {
	return ResolverFunc(func(r *http.Request) (string, error) {
		v := r.Header.Get(IdentityHeader)
		if v == "" {
			return "", fmt.Errorf("missing %s header", IdentityHeader)
		}
		if err := ValidateIdentity(v); err != nil {
			return "", err
		}
		return v, nil
	})
}

// Middleware attaches the resolved identity to the request context.
// Requests without a resolvable identity continue unauthenticated; mutating
// calls then fail with UNAUTHENTICATED in the registry.
func Middleware(res Resolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, err := res.Resolve(r)
			if err != nil {
				slog.Debug("no caller identity", "path", r.URL.Path, "error", err)
				next.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), id)))
		})
	}
}
