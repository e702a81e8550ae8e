// Package httpapi exposes the named registry calls over HTTP.
//
//	POST /v1/calls/{name}   JSON request body, one engine transaction
//	GET  /v1/calls          the call catalog
//	GET  /healthz           liveness
//
// The caller identity comes from an auth.Resolver: the verified mTLS peer
// in production, the X-Certledger-Identity header in development.
package httpapi
