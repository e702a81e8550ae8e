package engine

import (
	"sync"
	"sync/atomic"
	"time"
)

// Clock stamps published events with a strictly increasing seq.
//
// Only the Run goroutine calls Next, but Current may be read from anywhere.
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a new clock starting at 0.
func NewClock() *Clock {
	return &Clock{}
}

// NewClockAt creates a clock that resumes after start, typically the last
// seq found in the event log.
func NewClockAt(start int64) *Clock {
	c := &Clock{}
	c.seq.Store(start)
	return c
}

// Next returns the next sequence number.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the last issued sequence number.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}

// LedgerClock supplies the ledger time of a transaction in seconds.
// Successive calls never go backwards.
type LedgerClock interface {
	Now() uint64
}

// WallClock is a LedgerClock over a time source, clamped so that a wall
// clock step backwards never produces an earlier ledger time.
type WallClock struct {
	mu   sync.Mutex
	now  func() time.Time
	last uint64
}

// NewWallClock returns a WallClock over now, or time.Now when nil.
func NewWallClock(now func() time.Time) *WallClock {
	if now == nil {
		now = time.Now
	}
	return &WallClock{now: now}
}

func (c *WallClock) Now() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.now().Unix()
	if t > 0 && uint64(t) > c.last {
		c.last = uint64(t)
	}
	return c.last
}

// FixedClock is a LedgerClock frozen at one instant.
type FixedClock uint64

func (c FixedClock) Now() uint64 { return uint64(c) }
