// Package clock provides an injectable time source.
// Services take a Clock instead of calling time.Now directly so tests can
// pin timestamps (restock times, session boundaries).
package clock

import (
	"sync"
	"time"
)

// Clock is the time source abstraction.
type Clock interface {
	Now() time.Time
}

// System returns the wall clock.
func System() Clock {
	return systemClock{}
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

// Fixed is a test clock that returns a settable instant.
type Fixed struct {
	mu sync.Mutex
	t  time.Time
}

// NewFixed creates a fixed clock at t.
func NewFixed(t time.Time) *Fixed {
	return &Fixed{t: t.UTC()}
}

func (f *Fixed) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.t
}

// Set moves the clock to t.
func (f *Fixed) Set(t time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.t = t.UTC()
}

// Advance moves the clock forward by d.
func (f *Fixed) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.t = f.t.Add(d)
}
