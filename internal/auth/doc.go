// Package auth proves that a caller controls an identity.
//
// Identities are SPIFFE IDs. The transport resolves the caller's identity
// once per request (from the verified mTLS peer, or from a header in
// development mode) and stores it in the request context with
// WithPrincipal. Authenticator then answers the registry's "does the caller
// control X" question by comparing against that principal.
package auth
