// Package clock provides an injectable time source.
//
// The engine never calls time.Now directly: production code uses Real()
// and tests use Fake() so that expiry arithmetic is deterministic.
package clock

import (
	"sync"
	"time"
)

// Clock abstracts the current time.
type Clock interface {
	// Now returns the current time.
	Now() time.Time
}

type realClock struct{}

// Real returns a Clock backed by the time package.
func Real() Clock { return realClock{} }

func (realClock) Now() time.Time { return time.Now() }

// Fake returns a FakeClock set to initial. Time stands still until
// Advance or Set is called.
func Fake(initial time.Time) *FakeClock {
	return &FakeClock{current: initial}
}

// FakeClock is a deterministic Clock for tests. It is safe for
// concurrent use.
type FakeClock struct {
	mu      sync.Mutex
	current time.Time
}

// Now returns the fake current time.
func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// Advance moves the clock forward by d.
func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = c.current.Add(d)
}

// Set moves the clock to t. Moving backwards is allowed.
func (c *FakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = t
}
