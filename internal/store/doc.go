// Package store provides the record store and event log behind the registry.
//
// Records are opaque string keys mapped to canonical JSON values. Three
// backends implement Backend:
//   - SQLiteStore: durable default (records and events tables, WAL mode)
//   - RedisStore: shared deployment (GET/EXISTS, MULTI/EXEC, event stream)
//   - MemoryStore: tests and ephemeral runs
//
// A transaction never writes to a backend directly. It runs against a Tx
// overlay: reads fall through to the backend, writes are buffered, and
// Commit applies the buffered writes as one atomic batch. Discarding the Tx
// persists nothing.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON
//
// Event records carry a content-addressed id computed with internal/canon
// (RFC 8785 canonical JSON, SHA-256 with domain separation), so an exported
// log can be verified offline.
package store
