// Package registry implements the certificate ledger and the ownership
// transfer protocol.
//
// The package is a pure state machine over a per-transaction Env: it reads
// and writes records through Env.Records, proves caller identities through
// Env.Auth, stamps time from Env.Now and reports transitions to Env.Events.
// It holds no state of its own between calls and takes no locks; the host
// (internal/engine) serializes transactions and commits or discards each
// transaction's writes as a unit.
//
// Components:
//   - certificate ledger (certificates.go): issue, revoke, read
//   - transfer state machine (transfers.go): initiate, accept, reject,
//     cancel, complete and the transfer queries
//   - pending index (pending.go): identity -> transfer ids awaiting it
//   - history ledger (history.go): certificate -> completed transfers
//
// Transfer lifecycle:
//
//	Pending --accept--> Accepted --complete--> Completed
//	Pending --reject--> Rejected
//	Pending --cancel--> Cancelled
package registry
