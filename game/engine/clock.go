package engine

import (
	"sync"
	"time"
)

// GravityClock invokes a callback repeatedly at a fixed interval. Schedule
// replaces any earlier schedule, Stop cancels the current one.
type GravityClock interface {
	Schedule(interval time.Duration, tick func())
	Stop()
}

// TimerClock is a GravityClock backed by a time.Ticker
type TimerClock struct {
	mu       sync.Mutex
	done     chan struct{}
	interval time.Duration
}

// NewTimerClock returns a stopped TimerClock
func NewTimerClock() *TimerClock {
	return &TimerClock{}
}

// Schedule starts calling tick every interval, superseding any previous
// schedule. It never waits for a running tick to return.
func (c *TimerClock) Schedule(interval time.Duration, tick func()) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.stopLocked()
	done := make(chan struct{})
	c.done = done
	c.interval = interval

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				select {
				case <-done:
					return
				default:
				}
				tick()
			}
		}
	}()
}

// Stop cancels the current schedule
func (c *TimerClock) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopLocked()
}

// Interval returns the interval of the current schedule, or zero when stopped
func (c *TimerClock) Interval() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.done == nil {
		return 0
	}
	return c.interval
}

func (c *TimerClock) stopLocked() {
	if c.done != nil {
		close(c.done)
		c.done = nil
	}
}

// ManualClock is a GravityClock that only ticks when Fire is called. Tests
// and turn-based sessions use it.
type ManualClock struct {
	mu        sync.Mutex
	interval  time.Duration
	tick      func()
	schedules int
}

// NewManualClock returns a stopped ManualClock
func NewManualClock() *ManualClock {
	return &ManualClock{}
}

// Schedule records the interval and callback
func (c *ManualClock) Schedule(interval time.Duration, tick func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.interval = interval
	c.tick = tick
	c.schedules++
}

// Stop forgets the current callback
func (c *ManualClock) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tick = nil
}

// Fire runs the scheduled callback once. It returns false when nothing is
// scheduled.
func (c *ManualClock) Fire() bool {
	c.mu.Lock()
	tick := c.tick
	c.mu.Unlock()

	if tick == nil {
		return false
	}
	tick()
	return true
}

// Armed reports whether a callback is scheduled
func (c *ManualClock) Armed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tick != nil
}

// Interval returns the most recently scheduled interval
func (c *ManualClock) Interval() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.interval
}

// Schedules returns how many times Schedule has been called
func (c *ManualClock) Schedules() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.schedules
}
