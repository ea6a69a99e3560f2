package journal

import "sync/atomic"

// Clock is a monotonic logical clock. Every journal row is stamped with a
// strictly increasing seq from it, so rows sort in the order they happened
// regardless of wall time. A clock may be shared with other event sources
// (see WithClock) to put them on one timeline with the journal.
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a clock starting at 0.
func NewClock() *Clock {
	return &Clock{}
}

// Next returns the next sequence number.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the last issued sequence number.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}

// Advance moves the clock forward to at least seq. It never moves it back.
func (c *Clock) Advance(seq int64) {
	for {
		cur := c.seq.Load()
		if cur >= seq || c.seq.CompareAndSwap(cur, seq) {
			return
		}
	}
}
