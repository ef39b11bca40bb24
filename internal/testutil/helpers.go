package testutil

import (
	"sync"
	"time"
)

// Clock hands out strictly increasing UTC times, one step per call, so
// ordering by timestamp is deterministic in tests.
type Clock struct {
	mu   sync.Mutex
	now  time.Time
	step time.Duration
}

func NewClock(start time.Time, step time.Duration) *Clock {
	return &Clock{now: start.UTC(), step: step}
}

// DefaultClock starts at a fixed date and advances a second per call
func DefaultClock() *Clock {
	return NewClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC), time.Second)
}

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(c.step)
	return c.now
}

// Advance moves the clock without returning a value
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}
