package mrf24j40

import (
	"errors"
	"fmt"
	"reflect"
	"testing"

	"periph.io/x/conn/v3/gpio"
)

var errBus = errors.New("bus error")

// recBus records transfers and chip select changes. Transfers
// listed in fail report errBus.
type recBus struct {
	events []string
	fail   map[int]bool
	n      int
	read   byte
}

func (b *recBus) transfer(ev string) error {
	b.events = append(b.events, ev)
	i := b.n
	b.n++
	if b.fail[i] {
		return errBus
	}
	return nil
}

func (b *recBus) WriteByte(v byte) error {
	return b.transfer(fmt.Sprintf("w %02x", v))
}

func (b *recBus) WriteWord(w uint16) error {
	return b.transfer(fmt.Sprintf("w %04x", w))
}

func (b *recBus) ReadByte() (byte, error) {
	return b.read, b.transfer("r")
}

func (b *recBus) Out(l gpio.Level) error {
	if l == gpio.Low {
		b.events = append(b.events, "cs low")
	} else {
		b.events = append(b.events, "cs high")
	}
	return nil
}

func newRecRegs(fail ...int) (*Registers, *recBus) {
	b := &recBus{fail: make(map[int]bool)}
	for _, i := range fail {
		b.fail[i] = true
	}
	return &Registers{Bus: b, Select: b}, b
}

func TestRegisterTransactions(t *testing.T) {
	tests := []struct {
		name   string
		fail   []int
		op     func(r *Registers, dst *byte) error
		events []string
		value  byte
	}{
		{
			name:   "write short",
			op:     func(r *Registers, _ *byte) error { return r.WriteShort(0x03, 0x20) },
			events: []string{"cs low", "w 07", "w 20", "cs high"},
		},
		{
			name:   "read short",
			op:     func(r *Registers, dst *byte) error { return r.ReadShort(0x05, dst) },
			events: []string{"cs low", "w 0a", "r", "cs high"},
			value:  0xab,
		},
		{
			name:   "write long",
			op:     func(r *Registers, _ *byte) error { return r.WriteLong(0x0302, 0x11) },
			events: []string{"cs low", "w e050", "w 11", "cs high"},
		},
		{
			name:   "read long",
			op:     func(r *Registers, dst *byte) error { return r.ReadLong(0x0125, dst) },
			events: []string{"cs low", "w a4a0", "r", "cs high"},
			value:  0x45,
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			r, b := newRecRegs()
			b.read = test.value
			var got byte
			if err := test.op(r, &got); err != nil {
				t.Fatal(err)
			}
			if !reflect.DeepEqual(b.events, test.events) {
				t.Errorf("transaction %q, want %q", b.events, test.events)
			}
			if got != test.value {
				t.Errorf("read %#x, want %#x", got, test.value)
			}
		})
	}
}

func TestRegisterTransportFailure(t *testing.T) {
	ops := []struct {
		name   string
		op     func(r *Registers, dst *byte) error
		events []string
	}{
		{
			"write short",
			func(r *Registers, _ *byte) error { return r.WriteShort(0x00, 0x20) },
			[]string{"cs low", "w 01", "w 20", "cs high"},
		},
		{
			"read short",
			func(r *Registers, dst *byte) error { return r.ReadShort(0x33, dst) },
			[]string{"cs low", "w 66", "r", "cs high"},
		},
		{
			"write long",
			func(r *Registers, _ *byte) error { return r.WriteLong(0x0f2, 0x99) },
			[]string{"cs low", "w 9e50", "w 99", "cs high"},
		},
		{
			"read long",
			func(r *Registers, dst *byte) error { return r.ReadLong(0x222, dst) },
			[]string{"cs low", "w c440", "r", "cs high"},
		},
	}
	for _, op := range ops {
		// Fail the address transfer, the data transfer, and both.
		for _, fail := range [][]int{{0}, {1}, {0, 1}} {
			t.Run(fmt.Sprintf("%s/fail%v", op.name, fail), func(t *testing.T) {
				r, b := newRecRegs(fail...)
				b.read = 0x51
				var got byte
				err := op.op(r, &got)
				if !errors.Is(err, ErrTransport) {
					t.Errorf("error %v, want %v", err, ErrTransport)
				}
				if !errors.Is(err, errBus) {
					t.Errorf("error %v does not wrap the bus error", err)
				}
				if !reflect.DeepEqual(b.events, op.events) {
					t.Errorf("transaction %q, want %q", b.events, op.events)
				}
			})
		}
	}
}

func TestReadNilDestination(t *testing.T) {
	r, b := newRecRegs()
	if err := r.ReadShort(0x33, nil); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("ReadShort(nil) = %v, want %v", err, ErrInvalidArgument)
	}
	if err := r.ReadLong(0x222, nil); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("ReadLong(nil) = %v, want %v", err, ErrInvalidArgument)
	}
	if len(b.events) > 0 {
		t.Errorf("nil destination caused bus activity: %q", b.events)
	}
}
