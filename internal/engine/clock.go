package engine

import "sync/atomic"

// Clock is the monotonic logical clock stamping committed operations.
//
// Every step, collapse, and rewrite commit takes a strictly increasing
// seq number from this clock. Run logs ordered by seq replay in the
// exact order the operations were applied; wall-clock timestamps are
// never used for ordering.
//
// Thread-safety: Clock is safe for concurrent use (atomic operations),
// though the engine's single-owner design means only one goroutine
// typically calls Next().
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a new clock starting at 0.
func NewClock() *Clock {
	return &Clock{}
}

// NewClockAt creates a new clock starting at a specific sequence number.
// Used when resuming an engine from a persisted run log.
func NewClockAt(start int64) *Clock {
	c := &Clock{}
	c.seq.Store(start)
	return c
}

// Next returns the next sequence number and increments the clock.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the current sequence number without incrementing.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}
