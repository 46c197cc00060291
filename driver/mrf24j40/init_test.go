package mrf24j40

import (
	"bytes"
	"errors"
	"log"
	"strings"
	"testing"

	"mrf24.dev/delay"
)

// stepClock advances one tick per reading.
type stepClock struct {
	now delay.Tick
}

func (c *stepClock) Ticks() delay.Tick {
	t := c.now
	c.now++
	return t
}

func newSimDevice(s *Simulator, strict bool) *Device {
	return New(Config{
		Bus:    s,
		CS:     s.CSPin(),
		Reset:  s.ResetPin(),
		Wake:   s.WakePin(),
		Int:    s.IntPin(),
		Clock:  new(stepClock),
		Strict: strict,
	})
}

func initSimDevice(t *testing.T) (*Device, *Simulator) {
	t.Helper()
	s := NewSimulator()
	d := newSimDevice(s, false)
	if err := d.Init(); err != nil {
		t.Fatal(err)
	}
	return d, s
}

func TestInit(t *testing.T) {
	s := NewSimulator()
	s.ResetPolls = 3
	s.RXPolls = 5
	d := newSimDevice(s, false)
	if d.Status() != StatusUninitialized {
		t.Errorf("status %v before Init", d.Status())
	}
	if err := d.Init(); err != nil {
		t.Fatal(err)
	}
	if d.Status() != StatusReady {
		t.Errorf("status %v, want ready", d.Status())
	}
	if err := d.Degraded(); err != nil {
		t.Errorf("degraded: %v", err)
	}
	if s.Resets != 1 {
		t.Errorf("%d hardware resets, want 1", s.Resets)
	}
	short := []struct {
		reg  ShortReg
		want byte
	}{
		{regPANIDH, 0x99},
		{regPANIDL, 0x99},
		{regSADRH, 0xff},
		{regSADRL, 0xfe},
		{regBBREG2, 0x80},
		{regBBREG6, 0x40},
		{regCCAEDTH, 0x60},
		{regPACON2, 0x98},
		{regTXSTBL, 0x95},
		{regINTCON, 0xf5},
		{regACKTMOUT, 0xb9},
		{regRFCTL, 0x00},
		{regRXMCR, 0x00},
		{regSOFTRST, 0x00},
	}
	for _, r := range short {
		if got := s.Short(r.reg); got != r.want {
			t.Errorf("short register %#02x = %#02x, want %#02x", r.reg, got, r.want)
		}
	}
	long := []struct {
		reg  LongReg
		want byte
	}{
		{regRFCON0, 0x03},
		{regRFCON1, 0x01},
		{regRFCON2, 0x80},
		{regRFCON3, 0x00},
		{regRFCON6, 0x90},
		{regRFCON7, 0x80},
		{regRFCON8, 0x10},
		{regSLPCON1, 0x21},
	}
	for _, r := range long {
		if got := s.Long(r.reg); got != r.want {
			t.Errorf("long register %#03x = %#02x, want %#02x", r.reg, got, r.want)
		}
	}
	for i, b := range defaultMAC {
		if got := s.Short(regEADR0 + ShortReg(i)); got != b {
			t.Errorf("EADR%d = %#02x, want %#02x", i, got, b)
		}
	}
}

func TestInitResetTimeout(t *testing.T) {
	s := NewSimulator()
	s.ResetPolls = -1
	d := newSimDevice(s, false)
	err := d.Init()
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("Init = %v, want %v", err, ErrTimeout)
	}
	if d.Status() != StatusTimeout {
		t.Errorf("status %v, want timeout", d.Status())
	}
	// Nothing after the reset poll ran.
	if got := s.Short(regPANIDH); got != 0 {
		t.Errorf("PAN id written after reset timeout: %#02x", got)
	}
	if got := s.Long(regRFCON1); got != 0 {
		t.Errorf("RF configured after reset timeout: RFCON1 = %#02x", got)
	}
	err = d.Transmit(OutboundFrame{Dest: 2, Payload: []byte{1}})
	if !errors.Is(err, ErrNotReady) {
		t.Errorf("Transmit after failed Init = %v, want %v", err, ErrNotReady)
	}
}

func TestInitRXTimeout(t *testing.T) {
	s := NewSimulator()
	s.RXPolls = -1
	d := newSimDevice(s, false)
	if err := d.Init(); !errors.Is(err, ErrTimeout) {
		t.Fatalf("Init = %v, want %v", err, ErrTimeout)
	}
	if d.Status() != StatusTimeout {
		t.Errorf("status %v, want timeout", d.Status())
	}
	if got := s.Long(regRFCON1); got != vcoOpt {
		t.Errorf("RF block not written before the RX poll: RFCON1 = %#02x", got)
	}
	if got := s.Short(regINTCON); got != 0 {
		t.Errorf("interrupts configured after RX timeout: INTCON = %#02x", got)
	}
}

func failWrite(reg LongReg) func(SimOp) error {
	return func(op SimOp) error {
		if op.Long && op.Write && LongReg(op.Reg) == reg {
			return errBus
		}
		return nil
	}
}

func TestInitWriteFailureLenient(t *testing.T) {
	s := NewSimulator()
	s.Fault = failWrite(regRFCON1)
	d := newSimDevice(s, false)
	logs := new(bytes.Buffer)
	d.log = log.New(logs, "", 0)
	if err := d.Init(); err != nil {
		t.Fatalf("Init = %v, want success", err)
	}
	if d.Status() != StatusReady {
		t.Errorf("status %v, want ready", d.Status())
	}
	if err := d.Degraded(); !errors.Is(err, ErrTransport) {
		t.Errorf("Degraded = %v, want %v", err, ErrTransport)
	}
	if !strings.Contains(logs.String(), "1 register writes failed") {
		t.Errorf("failure not logged: %q", logs.String())
	}
	// The remaining configuration was still applied.
	if got := s.Long(regRFCON2); got != pllEN {
		t.Errorf("RFCON2 = %#02x, want %#02x", got, pllEN)
	}

	// A clean re-initialization clears the degraded state.
	s.Fault = nil
	if err := d.Init(); err != nil {
		t.Fatal(err)
	}
	if err := d.Degraded(); err != nil {
		t.Errorf("Degraded after clean Init = %v", err)
	}
}

func TestInitWriteFailureStrict(t *testing.T) {
	s := NewSimulator()
	s.Fault = failWrite(regRFCON1)
	d := newSimDevice(s, true)
	if err := d.Init(); !errors.Is(err, ErrTransport) {
		t.Fatalf("Init = %v, want %v", err, ErrTransport)
	}
	if d.Status() != StatusFailed {
		t.Errorf("status %v, want failed", d.Status())
	}
	if got := s.Long(regRFCON2); got != 0 {
		t.Errorf("configuration continued after failure: RFCON2 = %#02x", got)
	}
}

func TestInitPollReadFailure(t *testing.T) {
	failReads := func(n int) func(SimOp) error {
		return func(op SimOp) error {
			if !op.Write && !op.Long && ShortReg(op.Reg) == regSOFTRST && n > 0 {
				n--
				return errBus
			}
			return nil
		}
	}

	s := NewSimulator()
	s.Fault = failReads(3)
	d := newSimDevice(s, false)
	if err := d.Init(); err != nil {
		t.Errorf("lenient Init with transient read failures = %v", err)
	}

	s = NewSimulator()
	s.Fault = failReads(3)
	d = newSimDevice(s, true)
	if err := d.Init(); !errors.Is(err, ErrTransport) {
		t.Errorf("strict Init with read failures = %v, want %v", err, ErrTransport)
	}
	if d.Status() != StatusFailed {
		t.Errorf("status %v, want failed", d.Status())
	}
}

func TestReinitKeepsConfiguration(t *testing.T) {
	s := NewSimulator()
	d := newSimDevice(s, false)
	if err := d.SetPANID(0x1234); err != nil {
		t.Fatal(err)
	}
	if err := d.SetChannel(15); err != nil {
		t.Fatal(err)
	}
	for i := range 2 {
		if err := d.Init(); err != nil {
			t.Fatal(err)
		}
		if got := s.Long(regRFCON0); got != 0x43 {
			t.Errorf("init %d: RFCON0 = %#02x, want 0x43", i, got)
		}
		if hi, lo := s.Short(regPANIDH), s.Short(regPANIDL); hi != 0x12 || lo != 0x34 {
			t.Errorf("init %d: PAN id %02x%02x, want 1234", i, hi, lo)
		}
	}
}

func TestWriteRegPairs(t *testing.T) {
	s := NewSimulator()
	d := newSimDevice(s, false)
	seq := &initSeq{d: d}
	var v byte = 0x5a
	seq.writeShortRegs([]shortRegVal{
		{regBBREG2, v},
		{regBBREG2, v + 1},
		{regCCAEDTH, ccaEDTH},
	})
	seq.writeLongRegs([]longRegVal{
		{regRFCON6, v},
		{regRFCON8, rfVCO},
	})
	if len(seq.errs) > 0 {
		t.Fatal(seq.errs)
	}
	if got := s.Short(regBBREG2); got != v+1 {
		t.Errorf("BBREG2 = %#02x, want the last value written %#02x", got, v+1)
	}
	if got := s.Short(regCCAEDTH); got != ccaEDTH {
		t.Errorf("CCAEDTH = %#02x, want %#02x", got, ccaEDTH)
	}
	if got := s.Long(regRFCON6); got != v {
		t.Errorf("RFCON6 = %#02x, want %#02x", got, v)
	}
	if got := s.Long(regRFCON8); got != rfVCO {
		t.Errorf("RFCON8 = %#02x, want %#02x", got, rfVCO)
	}
}
