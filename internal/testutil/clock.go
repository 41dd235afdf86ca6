// Package testutil holds deterministic fakes for the clock and the
// platform client.
package testutil

import (
	"sync"
	"time"

	"github.com/bnema/steam-gs-unlock/internal/ports"
)

// SteppingClock is a ports.Clock whose time only moves when a caller
// waits on it. After advances the clock by the requested duration and
// returns an already-fired channel, so poll loops run without sleeping.
type SteppingClock struct {
	mu    sync.Mutex
	now   time.Time
	waits []time.Duration
}

var _ ports.Clock = (*SteppingClock)(nil)

func NewSteppingClock(start time.Time) *SteppingClock {
	return &SteppingClock{now: start}
}

func (c *SteppingClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *SteppingClock) After(d time.Duration) <-chan time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	if d > 0 {
		c.now = c.now.Add(d)
	}
	c.waits = append(c.waits, d)

	channel := make(chan time.Time, 1)
	channel <- c.now
	return channel
}

// Advance moves time forward without recording a wait.
func (c *SteppingClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// Waits returns every duration passed to After, in order.
func (c *SteppingClock) Waits() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]time.Duration(nil), c.waits...)
}
