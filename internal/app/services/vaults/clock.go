package vaults

import "time"

// Clock supplies the engine's notion of now. All temporal policy (windows,
// period gates, expiry) reads time through it so tests can pin the clock.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock in UTC.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().UTC() }
