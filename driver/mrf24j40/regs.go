package mrf24j40

import (
	"fmt"

	"periph.io/x/conn/v3/gpio"
)

// Registers performs single register transactions. Each
// transaction asserts chip select, transfers the address and
// data, and releases chip select. Every transfer is attempted
// even after one fails.
type Registers struct {
	Bus    Bus
	Select Pin
}

func (r *Registers) WriteShort(reg ShortReg, v byte) error {
	r.sel()
	err1 := r.Bus.WriteByte(EncodeShortWrite(reg))
	err2 := r.Bus.WriteByte(v)
	r.desel()
	if err := firstErr(err1, err2); err != nil {
		return fmt.Errorf("mrf24j40: write %#02x: %w: %w", reg, ErrTransport, err)
	}
	return nil
}

// ReadShort reads short register reg into dst. A nil dst is
// rejected before the bus is touched.
func (r *Registers) ReadShort(reg ShortReg, dst *byte) error {
	if dst == nil {
		return fmt.Errorf("mrf24j40: read %#02x: %w", reg, ErrInvalidArgument)
	}
	r.sel()
	err1 := r.Bus.WriteByte(EncodeShortRead(reg))
	v, err2 := r.Bus.ReadByte()
	*dst = v
	r.desel()
	if err := firstErr(err1, err2); err != nil {
		return fmt.Errorf("mrf24j40: read %#02x: %w: %w", reg, ErrTransport, err)
	}
	return nil
}

func (r *Registers) WriteLong(reg LongReg, v byte) error {
	r.sel()
	err1 := r.Bus.WriteWord(EncodeLongWrite(reg))
	err2 := r.Bus.WriteByte(v)
	r.desel()
	if err := firstErr(err1, err2); err != nil {
		return fmt.Errorf("mrf24j40: write %#03x: %w: %w", reg, ErrTransport, err)
	}
	return nil
}

// ReadLong reads long register reg into dst. A nil dst is
// rejected before the bus is touched.
func (r *Registers) ReadLong(reg LongReg, dst *byte) error {
	if dst == nil {
		return fmt.Errorf("mrf24j40: read %#03x: %w", reg, ErrInvalidArgument)
	}
	r.sel()
	err1 := r.Bus.WriteWord(EncodeLongRead(reg))
	v, err2 := r.Bus.ReadByte()
	*dst = v
	r.desel()
	if err := firstErr(err1, err2); err != nil {
		return fmt.Errorf("mrf24j40: read %#03x: %w: %w", reg, ErrTransport, err)
	}
	return nil
}

// Chip select is active low. Pin errors are ignored; a failed
// select shows up as a failed or garbled transfer.
func (r *Registers) sel() {
	if r.Select != nil {
		_ = r.Select.Out(gpio.Low)
	}
}

func (r *Registers) desel() {
	if r.Select != nil {
		_ = r.Select.Out(gpio.High)
	}
}

func firstErr(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
