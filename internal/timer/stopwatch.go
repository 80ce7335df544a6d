package timer

import (
	"fmt"
	"time"
)

// Stopwatch accumulates running time across start/stop cycles.
// It takes explicit timestamps so it can be driven by tests.
type Stopwatch struct {
	accumulated time.Duration
	startedAt   time.Time
	running     bool
}

// Start begins timing at now. Starting a running stopwatch is a no-op.
func (s *Stopwatch) Start(now time.Time) {
	if s.running {
		return
	}
	s.startedAt = now
	s.running = true
}

// Stop folds the current run into the total and returns it
func (s *Stopwatch) Stop(now time.Time) time.Duration {
	if !s.running {
		return s.accumulated
	}
	s.accumulated += now.Sub(s.startedAt)
	s.running = false
	return s.accumulated
}

// Elapsed returns the total including any run in progress
func (s *Stopwatch) Elapsed(now time.Time) time.Duration {
	if !s.running {
		return s.accumulated
	}
	return s.accumulated + now.Sub(s.startedAt)
}

// Running reports whether the stopwatch is timing
func (s *Stopwatch) Running() bool {
	return s.running
}

// Reset clears the total and stops timing
func (s *Stopwatch) Reset() {
	s.accumulated = 0
	s.running = false
	s.startedAt = time.Time{}
}

// FormatElapsed formats d as "MM:SS", or "H:MM:SS" from one hour up
func FormatElapsed(d time.Duration) string {
	total := int64(d / time.Second)
	if total < 0 {
		total = 0
	}
	h := total / 3600
	m := (total / 60) % 60
	s := total % 60

	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", m, s)
}
