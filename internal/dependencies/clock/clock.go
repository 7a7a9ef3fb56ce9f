package clock

import "time"

// Clock is the time source for token expiry, room timestamps and
// notification lifetimes. Tests swap in mocks.MockClock.
type Clock interface {
	Now() time.Time
}

// RealClock reads the system clock
type RealClock struct{}

// New creates a new RealClock
func New() *RealClock {
	return &RealClock{}
}

// Now returns the current time
func (*RealClock) Now() time.Time {
	return time.Now()
}
