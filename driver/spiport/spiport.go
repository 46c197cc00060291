//go:build !tinygo

// Package spiport connects an MRF24J40 to a host SPI port and GPIO
// pins through periph.
package spiport

import (
	"encoding/binary"
	"fmt"

	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"
)

// DefaultFrequency is the SPI clock used when none is specified.
// The chip accepts up to 10 MHz.
const DefaultFrequency = 5 * physic.MegaHertz

// Port is an SPI connection that transfers single bytes and
// words. Chip select is driven separately through a GPIO pin.
type Port struct {
	port spi.PortCloser
	conn conn.Conn
	buf  [2]byte
}

// Open connects to the SPI port by name. The empty name selects
// the first available port.
func Open(name string, freq physic.Frequency) (*Port, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("spiport: %w", err)
	}
	if freq == 0 {
		freq = DefaultFrequency
	}
	p, err := spireg.Open(name)
	if err != nil {
		return nil, fmt.Errorf("spiport: %w", err)
	}
	// Chip select is controlled by the driver for the duration of a
	// register transaction, which spans several transfers.
	c, err := p.Connect(freq, spi.Mode0|spi.NoCS, 8)
	if err != nil {
		p.Close()
		return nil, fmt.Errorf("spiport: %w", err)
	}
	return &Port{port: p, conn: c}, nil
}

// New wraps an existing connection.
func New(c conn.Conn) *Port {
	return &Port{conn: c}
}

func (p *Port) Close() error {
	if p.port == nil {
		return nil
	}
	err := p.port.Close()
	p.port = nil
	p.conn = nil
	return err
}

func (p *Port) WriteByte(b byte) error {
	p.buf[0] = b
	return p.conn.Tx(p.buf[:1], nil)
}

func (p *Port) WriteWord(w uint16) error {
	binary.BigEndian.PutUint16(p.buf[:], w)
	return p.conn.Tx(p.buf[:], nil)
}

// ReadByte clocks out a zero byte and returns the byte received
// in exchange.
func (p *Port) ReadByte() (byte, error) {
	w := []byte{0}
	if err := p.conn.Tx(w, p.buf[:1]); err != nil {
		return 0, err
	}
	return p.buf[0], nil
}

// Output returns the named GPIO pin configured as an output at the
// given level.
func Output(name string, l gpio.Level) (gpio.PinIO, error) {
	p, err := pin(name)
	if err != nil {
		return nil, err
	}
	if err := p.Out(l); err != nil {
		return nil, fmt.Errorf("spiport: %s: %w", name, err)
	}
	return p, nil
}

// Input returns the named GPIO pin configured as an input with a
// pull up. The MRF24J40 interrupt line is active low.
func Input(name string) (gpio.PinIO, error) {
	p, err := pin(name)
	if err != nil {
		return nil, err
	}
	if err := p.In(gpio.PullUp, gpio.NoEdge); err != nil {
		return nil, fmt.Errorf("spiport: %s: %w", name, err)
	}
	return p, nil
}

func pin(name string) (gpio.PinIO, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("spiport: %w", err)
	}
	p := gpioreg.ByName(name)
	if p == nil {
		return nil, fmt.Errorf("spiport: no such pin: %q", name)
	}
	return p, nil
}
