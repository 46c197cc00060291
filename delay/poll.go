package delay

// Outcome is the state of a timeout-guarded polling loop.
type Outcome int

const (
	// Waiting means the condition is not met and time remains.
	Waiting Outcome = iota
	// Ready means the condition was met.
	Ready
	// TimedOut means the delay expired before the condition was met.
	TimedOut
)

func (o Outcome) String() string {
	switch o {
	case Waiting:
		return "waiting"
	case Ready:
		return "ready"
	case TimedOut:
		return "timed out"
	default:
		return "unknown"
	}
}

// Poller drives a condition check under a timeout. Each Step
// evaluates the condition once and then checks the delay once.
type Poller struct {
	d     *Delay
	state Outcome
}

// NewPoller resets d and returns a poller bounded by it.
func NewPoller(d *Delay) *Poller {
	d.Reset()
	return &Poller{d: d}
}

// Step advances the poller. ready is the result of one
// evaluation of the polled condition. Once the poller has
// reached Ready or TimedOut it stays there.
func (p *Poller) Step(ready bool) Outcome {
	if p.state != Waiting {
		return p.state
	}
	switch {
	case ready:
		p.state = Ready
	case p.d.Expired():
		p.state = TimedOut
	}
	return p.state
}

// Outcome returns the current state.
func (p *Poller) Outcome() Outcome {
	return p.state
}

// Poll evaluates ready until it reports true or d expires.
// The delay is reset before the first evaluation.
func Poll(d *Delay, ready func() bool) Outcome {
	p := NewPoller(d)
	for {
		if o := p.Step(ready()); o != Waiting {
			return o
		}
	}
}
