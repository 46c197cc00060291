// Package delay implements non-blocking delays measured in
// ticks of a free-running millisecond counter.
package delay

// Tick is a count of milliseconds from a free-running counter.
// Counters wrap around; differences between ticks are computed
// with unsigned subtraction and remain correct across the wrap.
type Tick uint32

// Clock is a source of ticks.
type Clock interface {
	Ticks() Tick
}

// Sleeper is implemented by clocks that can suspend the caller
// instead of busy-waiting.
type Sleeper interface {
	Sleep(d Tick)
}

// Delay is a non-blocking delay. The zero value is not running
// and must be initialized with Init.
type Delay struct {
	clock    Clock
	start    Tick
	duration Tick
	running  bool
}

// New returns a running delay of duration d.
func New(c Clock, d Tick) *Delay {
	dl := new(Delay)
	dl.Init(c, d)
	return dl
}

// Init captures the current tick and starts the delay.
func (d *Delay) Init(c Clock, duration Tick) {
	d.clock = c
	d.duration = duration
	d.start = c.Ticks()
	d.running = true
}

// Expired reports whether the duration has elapsed since the
// delay was started or last reset. It never blocks.
func (d *Delay) Expired() bool {
	if d.clock == nil {
		return true
	}
	if d.clock.Ticks()-d.start >= d.duration {
		d.running = false
		return true
	}
	return false
}

// Reset restarts the delay with the same duration. A delay without
// a clock stays expired.
func (d *Delay) Reset() {
	if d.clock == nil {
		d.running = false
		return
	}
	d.start = d.clock.Ticks()
	d.running = true
}

// SetDuration changes the duration without restarting the delay.
func (d *Delay) SetDuration(duration Tick) {
	d.duration = duration
}

// Duration returns the delay duration.
func (d *Delay) Duration() Tick {
	return d.duration
}

// Running reports whether the delay has been started and has
// not yet been observed as expired.
func (d *Delay) Running() bool {
	return d.running
}

// Wait blocks for d ticks. Clocks implementing Sleeper are
// asked to sleep; other clocks are polled.
func Wait(c Clock, d Tick) {
	if s, ok := c.(Sleeper); ok {
		s.Sleep(d)
		return
	}
	dl := New(c, d)
	for !dl.Expired() {
	}
}
