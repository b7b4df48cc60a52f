package table

import "sync/atomic"

// Clock hands out strictly increasing sequence numbers.
//
// The registry stamps every table with a clock value at creation. The
// stamp gives two-table edits a fixed lock order, and the listener
// registry uses its own clock to break ties between equal orders.
//
// Thread-safety: Clock is safe for concurrent use (atomic operations).
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

