// Package mrf24j40 implements a driver for the [MRF24J40] IEEE
// 802.15.4 transceiver.
//
// The driver reaches the chip through a byte oriented SPI Bus and
// a handful of discrete pins. A Device is owned by a single caller;
// it is not safe for concurrent use.
//
// [MRF24J40]: https://ww1.microchip.com/downloads/en/DeviceDoc/39776C.pdf
package mrf24j40

import (
	"errors"
	"io"
	"log"

	"mrf24.dev/delay"
	"periph.io/x/conn/v3/gpio"
)

// Bus is the SPI transfer interface. Chip select is not part of
// the bus; it is driven through a separate Pin.
type Bus interface {
	io.ByteWriter
	io.ByteReader
	// WriteWord writes w most significant byte first.
	WriteWord(w uint16) error
}

// Pin is a digital output. Every gpio.PinOut satisfies it.
type Pin interface {
	Out(l gpio.Level) error
}

// InputPin is a digital input. Every gpio.PinIn satisfies it.
type InputPin interface {
	Read() gpio.Level
}

var (
	ErrInvalidValue    = errors.New("invalid value")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrTransport       = errors.New("transport failure")
	ErrTimeout         = errors.New("timeout")
	ErrNotReady        = errors.New("device not initialized")
	ErrNoDestination   = errors.New("empty destination address")
	ErrEmptyPayload    = errors.New("empty payload")
	ErrPayloadTooLong  = errors.New("payload too long")
	ErrDecode          = errors.New("malformed frame")
)

// Status tracks the outcome of the last initialization.
type Status int

const (
	StatusUninitialized Status = iota
	StatusReady
	StatusTimeout
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusUninitialized:
		return "uninitialized"
	case StatusReady:
		return "ready"
	case StatusTimeout:
		return "timeout"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// DefaultTimeout bounds each polling loop during Init.
const DefaultTimeout delay.Tick = 200

type Config struct {
	Bus Bus
	// CS, Reset and Wake are active low outputs; Int is the
	// active low interrupt line.
	CS    Pin
	Reset Pin
	Wake  Pin
	Int   InputPin
	// Clock times the polling loops and settle delays. Nil
	// means delay.Monotonic.
	Clock delay.Clock
	// Timeout bounds each polling loop. Zero means
	// DefaultTimeout.
	Timeout delay.Tick
	// Strict makes Init abort on the first failed register
	// write. Otherwise write failures are logged and reported
	// by Degraded while Init still succeeds.
	Strict bool
	// Log receives diagnostics. Nil discards them.
	Log *log.Logger
}

type Device struct {
	regs    Registers
	reset   Pin
	wake    Pin
	intPin  InputPin
	clock   delay.Clock
	timeout delay.Tick
	strict  bool
	log     *log.Logger

	id       Identity
	status   Status
	degraded error
	out      OutboundFrame
	in       InboundFrame
}

func New(c Config) *Device {
	d := &Device{
		regs:    Registers{Bus: c.Bus, Select: c.CS},
		reset:   c.Reset,
		wake:    c.Wake,
		intPin:  c.Int,
		clock:   c.Clock,
		timeout: c.Timeout,
		strict:  c.Strict,
		log:     c.Log,
	}
	if d.clock == nil {
		d.clock = delay.Monotonic{}
	}
	if d.timeout == 0 {
		d.timeout = DefaultTimeout
	}
	if d.log == nil {
		d.log = log.New(io.Discard, "", 0)
	}
	return d
}

// Status returns the outcome of the last Init.
func (d *Device) Status() Status {
	return d.status
}

// Degraded returns the register writes that failed during the
// last successful Init, or nil if every write succeeded.
func (d *Device) Degraded() error {
	return d.degraded
}

// Registers exposes raw register access.
func (d *Device) Registers() *Registers {
	return &d.regs
}

func (d *Device) ready() bool {
	return d.status == StatusReady
}
