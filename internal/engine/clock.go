package engine

import "sync/atomic"

// Clock is a monotonic logical clock that numbers applied steps.
//
// Step records are stamped 1, 2, 3, ... in application order. Replaying the
// same program produces the same numbering, which is what makes stored
// traces comparable.
//
// Thread-safety: Clock is safe for concurrent use (atomic operations), though
// the engine only ever calls it from the Walk goroutine.
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a new clock starting at 0.
func NewClock() *Clock {
	return &Clock{}
}

// Next returns the next sequence number and increments the clock.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the current sequence number without incrementing.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}
