package mrf24j40

import "fmt"

// Channel is an IEEE 802.15.4 2.4 GHz channel number.
type Channel uint8

const (
	// ChannelUnset marks an identity that has not been given
	// its factory defaults.
	ChannelUnset Channel = 0

	Channel11 Channel = 11
	Channel26 Channel = 26
)

// Valid reports whether c is one of the channels 11 through 26.
func (c Channel) Valid() bool {
	return c >= Channel11 && c <= Channel26
}

// rfcon0 returns the RFCON0 value selecting c: the channel
// offset in the upper nibble and the recommended RF optimize
// control bits in the lower.
func (c Channel) rfcon0() byte {
	return byte(c-Channel11)<<4 | 0x03
}

// Broadcast is the 802.15.4 broadcast PAN id and short address.
const Broadcast = 0xffff

const (
	MACSize = 8
	KeySize = 16
)

// Identity is the addressing identity of the radio.
type Identity struct {
	MAC         [MACSize]byte
	SecurityKey [KeySize]byte
	PANID       uint16
	Address     uint16
	// Sequence is the 802.15.4 sequence number of the next
	// transmitted frame.
	Sequence uint8
	Channel  Channel
}

// Factory defaults.
var (
	defaultMAC = [MACSize]byte{0x11, 0x28, 0x35, 0x44, 0x56, 0x66, 0x77, 0x01}
	defaultKey = [KeySize]byte{
		0x00, 0x10, 0x25, 0x37, 0x04, 0x55, 0x06, 0x79,
		0x08, 0x09, 0x10, 0x11, 0x12, 0x13, 0x14, 0x15,
	}
)

const (
	defaultSequence = 0x01
	defaultChannel  = Channel11
	defaultPANID    = 0x9999
	defaultAddress  = 0xfffe
)

// loadDefaults fills in the factory defaults, unless the
// identity has already been given a channel.
func (id *Identity) loadDefaults() {
	if id.Channel != ChannelUnset {
		return
	}
	id.MAC = defaultMAC
	id.SecurityKey = defaultKey
	id.Sequence = defaultSequence
	id.Channel = defaultChannel
	id.PANID = defaultPANID
	id.Address = defaultAddress
}

func (id *Identity) SetChannel(c Channel) error {
	if !c.Valid() {
		return fmt.Errorf("mrf24j40: channel %d: %w", c, ErrInvalidValue)
	}
	id.loadDefaults()
	id.Channel = c
	return nil
}

func (id *Identity) SetPANID(pan uint16) error {
	if pan == Broadcast {
		return fmt.Errorf("mrf24j40: PAN id %#04x: %w", pan, ErrInvalidValue)
	}
	id.loadDefaults()
	id.PANID = pan
	return nil
}

func (id *Identity) SetAddress(addr uint16) error {
	if addr == Broadcast {
		return fmt.Errorf("mrf24j40: address %#04x: %w", addr, ErrInvalidValue)
	}
	id.loadDefaults()
	id.Address = addr
	return nil
}

// SetSequence sets the next sequence number. Any value is
// accepted; the counter wraps.
func (id *Identity) SetSequence(seq uint8) {
	id.loadDefaults()
	id.Sequence = seq
}

func (id *Identity) SetMAC(mac [MACSize]byte) error {
	if isZero(mac[:]) {
		return fmt.Errorf("mrf24j40: MAC: %w", ErrInvalidValue)
	}
	id.loadDefaults()
	id.MAC = mac
	return nil
}

func (id *Identity) SetSecurityKey(key [KeySize]byte) error {
	if isZero(key[:]) {
		return fmt.Errorf("mrf24j40: security key: %w", ErrInvalidValue)
	}
	id.loadDefaults()
	id.SecurityKey = key
	return nil
}

func isZero(b []byte) bool {
	for _, v := range b {
		if v != 0 {
			return false
		}
	}
	return true
}

// Identity returns a copy of the device identity.
func (d *Device) Identity() Identity {
	return d.id
}

// The setters below update the stored identity. They take effect
// on the chip at the next Init.

func (d *Device) SetChannel(c Channel) error { return d.id.SetChannel(c) }
func (d *Device) SetPANID(pan uint16) error { return d.id.SetPANID(pan) }
func (d *Device) SetAddress(addr uint16) error { return d.id.SetAddress(addr) }
func (d *Device) SetSequence(seq uint8) { d.id.SetSequence(seq) }
func (d *Device) SetMAC(mac [MACSize]byte) error { return d.id.SetMAC(mac) }
func (d *Device) SetSecurityKey(key [KeySize]byte) error { return d.id.SetSecurityKey(key) }
