package services

import (
	"time"

	"github.com/custodia-labs/herbtrace/internal/core/ports/driven"
)

// SystemClock is the wall clock.
type SystemClock struct{}

var _ driven.Clock = SystemClock{}

// Now returns time.Now.
func (SystemClock) Now() time.Time {
	return time.Now()
}

// NewTimer starts a real timer.
func (SystemClock) NewTimer(d time.Duration) driven.Timer {
	return &systemTimer{t: time.NewTimer(d)}
}

type systemTimer struct {
	t *time.Timer
}

func (s *systemTimer) C() <-chan time.Time { return s.t.C }
func (s *systemTimer) Stop() bool          { return s.t.Stop() }

// clockOrSystem returns c, or the wall clock when c is nil.
func clockOrSystem(c driven.Clock) driven.Clock {
	if c == nil {
		return SystemClock{}
	}
	return c
}
