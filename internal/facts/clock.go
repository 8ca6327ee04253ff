package facts

import "time"

// Clock abstracts "now" so window math is deterministic in tests.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock.
type SystemClock struct{}

// Now returns the current UTC time.
func (SystemClock) Now() time.Time { return time.Now().UTC() }

// FrozenClock always returns a fixed instant. Test helper.
type FrozenClock struct {
	T time.Time
}

// Now returns the frozen instant.
func (c FrozenClock) Now() time.Time { return c.T }
