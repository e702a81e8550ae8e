package testutil

import "sync"

// DeterministicClock is a settable ledger clock for tests.
//
// Now returns the same value until the test moves it with Set or Advance,
// so a scenario produces identical timestamps on every run.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type DeterministicClock struct {
	mu  sync.Mutex
	now uint64
}

// NewDeterministicClock creates a clock reading start.
func NewDeterministicClock(start uint64) *DeterministicClock {
	return &DeterministicClock{now: start}
}

// Now returns the current ledger time. Implements engine.LedgerClock.
func (c *DeterministicClock) Now() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d seconds and returns the new time.
func (c *DeterministicClock) Advance(d uint64) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now += d
	return c.now
}

// Set moves the clock to t. Setting an earlier time is ignored so the clock
// stays monotonic.
func (c *DeterministicClock) Set(t uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if t > c.now {
		c.now = t
	}
}

// Reset returns the clock to 0 for test reuse.
func (c *DeterministicClock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = 0
}
