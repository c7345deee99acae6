package cache

import "sync/atomic"

// Clock is a monotonic logical clock used to stamp writes.
//
// Every write is stamped with a strictly increasing sequence number from
// the owning cache's clock. The store discards a write for an entity when
// a newer stamp has already landed on that entity, so responses that
// complete out of issue order cannot clobber fresher data with staler
// data.
//
// Thread-safety: Clock is safe for concurrent use (atomic operations).
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a new clock starting at 0.
func NewClock() *Clock {
	return &Clock{}
}

// NewClockAt creates a new clock starting at a specific sequence number.
func NewClockAt(start int64) *Clock {
	c := &Clock{}
	c.seq.Store(start)
	return c
}

// Next returns the next sequence number and increments the clock.
// Calls are linearizable - each call returns a unique, increasing value.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the current sequence number without incrementing.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}
