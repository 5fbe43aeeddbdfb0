package sync

import "time"

// Clock abstracts wall-clock reads so completion-buffer edge cases are
// deterministic under test.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the real wall clock.
type SystemClock struct{}

// Now returns the current time.
func (SystemClock) Now() time.Time { return time.Now() }
