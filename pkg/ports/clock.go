package ports

import "time"

// Clock is an unscaled time source. Presentation timing never follows gameplay time scaling.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the monotonic wall clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }
