package pipeline

import (
	"sync"
	"time"
)

// Clock drives the legacy capture loop. Each tick carries the current time.
type Clock interface {
	Now() time.Time
	Tick(interval time.Duration) (<-chan time.Time, func())
}

// RealClock is wall-clock time
type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now() }

func (RealClock) Tick(interval time.Duration) (<-chan time.Time, func()) {
	t := time.NewTicker(interval)
	return t.C, t.Stop
}

// SimClock is a virtual clock that advances by one interval per tick as
// fast as the consumer reads. Lag adds extra delay before tick n, which
// simulates a host that misses frames.
type SimClock struct {
	mu  sync.Mutex
	now time.Time
	Lag func(n int) time.Duration
}

// NewSimClock starts a virtual clock at start
func NewSimClock(start time.Time) *SimClock {
	return &SimClock{now: start}
}

func (c *SimClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *SimClock) advance(d time.Duration) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	return c.now
}

func (c *SimClock) Tick(interval time.Duration) (<-chan time.Time, func()) {
	ch := make(chan time.Time)
	done := make(chan struct{})
	var once sync.Once

	go func() {
		for n := 0; ; n++ {
			d := interval
			if c.Lag != nil {
				d += c.Lag(n)
			}
			at := c.advance(d)
			select {
			case ch <- at:
			case <-done:
				return
			}
		}
	}()
	return ch, func() { once.Do(func() { close(done) }) }
}
