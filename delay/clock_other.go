//go:build !linux || tinygo

package delay

import "time"

var epoch = time.Now()

// Monotonic is a Clock backed by the runtime's monotonic time.
type Monotonic struct{}

func (Monotonic) Ticks() Tick {
	return Tick(uint32(time.Since(epoch).Milliseconds()))
}

func (Monotonic) Sleep(d Tick) {
	time.Sleep(time.Duration(d) * time.Millisecond)
}
