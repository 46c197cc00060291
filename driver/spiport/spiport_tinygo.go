//go:build tinygo

// Package spiport connects an MRF24J40 to a microcontroller SPI
// peripheral and GPIO pins.
package spiport

import (
	"machine"

	"periph.io/x/conn/v3/gpio"
)

// Port transfers single bytes and words over an SPI peripheral
// that is already configured for mode 0.
type Port struct {
	bus *machine.SPI
}

func New(bus *machine.SPI) *Port {
	return &Port{bus: bus}
}

func (p *Port) WriteByte(b byte) error {
	_, err := p.bus.Transfer(b)
	return err
}

func (p *Port) WriteWord(w uint16) error {
	if _, err := p.bus.Transfer(byte(w >> 8)); err != nil {
		return err
	}
	_, err := p.bus.Transfer(byte(w))
	return err
}

func (p *Port) ReadByte() (byte, error) {
	return p.bus.Transfer(0)
}

// Pin adapts a machine pin to the driver's pin interfaces.
type Pin machine.Pin

// Output configures p as an output at level l.
func Output(p machine.Pin, l gpio.Level) Pin {
	p.Configure(machine.PinConfig{Mode: machine.PinOutput})
	p.Set(bool(l))
	return Pin(p)
}

// Input configures p as an input with a pull up.
func Input(p machine.Pin) Pin {
	p.Configure(machine.PinConfig{Mode: machine.PinInputPullup})
	return Pin(p)
}

func (p Pin) Out(l gpio.Level) error {
	machine.Pin(p).Set(bool(l))
	return nil
}

func (p Pin) Read() gpio.Level {
	return gpio.Level(machine.Pin(p).Get())
}
