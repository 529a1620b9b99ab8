package compositor

import (
	"time"

	"golang.org/x/sys/unix"
)

// Clock supplies monotonic timestamps for frame timing
type Clock interface {
	Now() time.Duration
}

// MonotonicClock reads CLOCK_MONOTONIC
type MonotonicClock struct{}

var processStart = time.Now()

func (MonotonicClock) Now() time.Duration {
	var ts unix.Timespec
	if err := unix.ClockGettime(unix.CLOCK_MONOTONIC, &ts); err != nil {
		return time.Since(processStart)
	}
	return time.Duration(ts.Nano())
}
