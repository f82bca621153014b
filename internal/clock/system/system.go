// Package system backs the jobs.Clock contract with the wall clock. Crawl
// timestamps, alert cutoffs, and retention sweeps all take time through it so
// tests can substitute a fixed clock.
package system

import "time"

// Clock reads the system clock in UTC.
type Clock struct{}

// New returns a Clock.
func New() *Clock {
	return &Clock{}
}

// Now returns the current UTC time.
func (Clock) Now() time.Time {
	return time.Now().UTC()
}
