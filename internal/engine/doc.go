// Package engine hosts the registry: it serializes calls, runs each as an
// all-or-nothing transaction and publishes the resulting events.
//
// ARCHITECTURE:
//
// Single-Writer Loop:
// Every call goes through one goroutine. This gives the registry the total
// order it assumes from its host:
//   - no two calls touch storage concurrently
//   - an AlreadyExists check sees every earlier commit
//   - event seq order equals commit order
//
// Transaction Flow:
// 1. Submit() enqueues a call (FIFO)
// 2. Run() dequeues it, names the transaction and stamps ledger time
// 3. The Operation runs against a fresh store.Tx overlay
// 4. On success the overlay commits as one batch; on error it is dropped
// 5. Events emitted by the call get a seq and content id, then go to sinks
//
// Sinks are fire-and-forget. A failing sink is logged and never rolls back
// a committed transaction.
//
// Each transaction gets an OpenTelemetry span named certledger.<call>.
package engine
