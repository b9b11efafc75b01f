package ledger

import (
	"sync/atomic"
	"time"
)

// Clock is the source of ledger time in unsigned seconds.
type Clock interface {
	Now() uint64
}

// SystemClock reads the wall clock.
type SystemClock struct{}

func (SystemClock) Now() uint64 {
	return uint64(time.Now().Unix())
}

// ManualClock is a Clock driven by hand, for tests and simulations.
type ManualClock struct {
	t atomic.Uint64
}

// NewManualClock returns a ManualClock starting at t.
func NewManualClock(t uint64) *ManualClock {
	c := &ManualClock{}
	c.t.Store(t)
	return c
}

func (c *ManualClock) Now() uint64 {
	return c.t.Load()
}

// Set moves the clock to t.
func (c *ManualClock) Set(t uint64) {
	c.t.Store(t)
}

// Advance moves the clock forward by d seconds.
func (c *ManualClock) Advance(d uint64) {
	c.t.Add(d)
}
