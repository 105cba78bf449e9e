// Package clock abstracts "now" so backtests can replace elapsed wall time
// with simulated elapsed time.
package clock

import (
	"sync"
	"time"
)

// Clock supplies the current time.
type Clock interface {
	Now() time.Time
}

// Real reads the wall clock.
type Real struct{}

func (Real) Now() time.Time {
	return time.Now().UTC()
}

// Simulated is a settable clock advanced by the backtest engine to each
// snapshot's publish time.
type Simulated struct {
	mu  sync.RWMutex
	now time.Time
}

// NewSimulated creates a simulated clock starting at t.
func NewSimulated(t time.Time) *Simulated {
	return &Simulated{now: t}
}

func (s *Simulated) Now() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.now
}

// Set moves the clock. Moving backwards is allowed so that replays can be
// restarted on the same instance.
func (s *Simulated) Set(t time.Time) {
	s.mu.Lock()
	s.now = t
	s.mu.Unlock()
}

// Advance moves the clock forward by d and returns the new time.
func (s *Simulated) Advance(d time.Duration) time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = s.now.Add(d)
	return s.now
}
