//go:build linux && !tinygo

package delay

import (
	"time"

	"golang.org/x/sys/unix"
)

// Monotonic is a Clock backed by CLOCK_MONOTONIC.
type Monotonic struct{}

func (Monotonic) Ticks() Tick {
	var ts unix.Timespec
	if err := unix.ClockGettime(unix.CLOCK_MONOTONIC, &ts); err != nil {
		// CLOCK_MONOTONIC is always supported on the platforms
		// this file builds for.
		panic(err)
	}
	ms := ts.Nano() / int64(time.Millisecond)
	return Tick(uint32(ms))
}

func (Monotonic) Sleep(d Tick) {
	ts := unix.NsecToTimespec(int64(d) * int64(time.Millisecond))
	for {
		var rem unix.Timespec
		err := unix.Nanosleep(&ts, &rem)
		if err != unix.EINTR {
			return
		}
		ts = rem
	}
}
