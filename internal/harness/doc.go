// Package harness runs YAML scenarios against a real engine and compares
// the resulting event trace with golden files.
//
// Each scenario runs on a fresh in-memory store with a deterministic ledger
// clock and sequential transaction ids ("tx-1", "tx-2", ...), so the trace
// is reproducible byte for byte.
//
// # Scenario Format
//
//	name: happy_path
//	description: "Owner hands C1 to a new owner"
//	start_time: 1000
//	setup:
//	  - call: issue_certificate
//	    as: spiffe://example.org/issuer
//	    args: { id: C1, issuer: spiffe://example.org/issuer, owner: spiffe://example.org/owner, metadata_uri: ipfs://c1 }
//	flow:
//	  - call: initiate_transfer
//	    as: spiffe://example.org/owner
//	    advance: 10
//	    args: { transfer_id: T1, certificate_id: C1, from: spiffe://example.org/owner, to: spiffe://example.org/new-owner }
//	    expect:
//	      status: ok
//	assertions:
//	  - type: event_order
//	    kinds: [certificate_issued, transfer_initiated]
//
// Setup steps must succeed. Flow steps are checked against their expect
// clause; a step without one must succeed.
//
// # Assertions
//
//   - event_contains: an event of kind whose payload contains payload (subset match)
//   - event_order: kinds appear in this order (first occurrence of each)
//   - event_count: exactly count events of kind
//   - final_state: running call with args returns a value containing expect
//
// # Golden Files
//
// RunWithGolden writes one canonical JSON line per executed step to
// testdata/golden/<name>.golden. Event content ids are left out because
// they follow from the other fields; Verify covers them.
package harness
