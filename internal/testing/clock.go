package testing

import (
	"sync"
	"time"
)

// FakeClock is a manually advanced clock. Tickers created from it fire only when [FakeClock.Advance] crosses their period.
type FakeClock struct {
	mu      sync.Mutex
	now     time.Time
	tickers []*FakeTicker
}

// NewFakeClock creates a clock frozen at start.
func NewFakeClock(start time.Time) *FakeClock {
	return &FakeClock{now: start}
}

// Now returns the clock's current time.
func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// NewTicker registers a ticker with period d.
func (c *FakeClock) NewTicker(d time.Duration) *FakeTicker {
	c.mu.Lock()
	defer c.mu.Unlock()

	t := &FakeTicker{ch: make(chan time.Time, 1), period: d, next: c.now.Add(d)}
	c.tickers = append(c.tickers, t)
	return t
}

// Tickers reports how many tickers have been created and not stopped.
func (c *FakeClock) Tickers() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for _, t := range c.tickers {
		if !t.isStopped() {
			n++
		}
	}
	return n
}

// Advance moves time forward by d, stepping through each ticker deadline in order.
//
// A tick is delivered with a blocking send, so a ticker whose reader has gone away must be stopped first.
func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	target := c.now.Add(d)
	c.mu.Unlock()

	for {
		c.mu.Lock()
		var due *FakeTicker
		for _, t := range c.tickers {
			if t.isStopped() || t.next.After(target) {
				continue
			}
			if due == nil || t.next.Before(due.next) {
				due = t
			}
		}
		if due == nil {
			c.now = target
			c.mu.Unlock()
			return
		}
		c.now = due.next
		at := due.next
		due.next = due.next.Add(due.period)
		c.mu.Unlock()

		due.fire(at)
	}
}

// FakeTicker is a ticker driven by a [FakeClock].
type FakeTicker struct {
	mu      sync.Mutex
	ch      chan time.Time
	period  time.Duration
	next    time.Time
	stopped bool
}

// C returns the tick channel.
func (t *FakeTicker) C() <-chan time.Time { return t.ch }

// Stop prevents further ticks.
func (t *FakeTicker) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopped = true
}

func (t *FakeTicker) isStopped() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stopped
}

func (t *FakeTicker) fire(at time.Time) {
	if t.isStopped() {
		return
	}
	t.ch <- at
}
