// Package canon implements RFC 8785 canonical JSON and the domain-separated
// content hashes built on it.
//
// Event payloads are hashed through this package so that an event log can be
// re-verified byte for byte. canon imports nothing internal.
package canon
