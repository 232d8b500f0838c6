package testutil

import (
	"sync"
	"time"
)

// FixedNow is the invocation time used by deterministic tests.
var FixedNow = time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC)

// SteppingClock returns a strictly increasing sequence of instants.
//
// Each call to Now returns the previous instant plus step, starting at
// start. Tests use it to run the same pipeline twice and observe distinct
// timestamps.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type SteppingClock struct {
	mu   sync.Mutex
	next time.Time
	step time.Duration
}

// NewSteppingClock creates a clock whose first Now() returns start.
func NewSteppingClock(start time.Time, step time.Duration) *SteppingClock {
	return &SteppingClock{next: start, step: step}
}

// Now returns the current instant and advances the clock.
func (c *SteppingClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.next
	c.next = c.next.Add(c.step)
	return now
}

// Reset moves the clock back to start.
func (c *SteppingClock) Reset(start time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.next = start
}
