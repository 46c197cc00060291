package mrf24j40

import (
	"errors"
	"fmt"

	"mrf24.dev/delay"
	"periph.io/x/conn/v3/gpio"
)

const (
	// Settle time after the software reset completes.
	resetSettle delay.Tick = 50
	// Settle time after an RF state machine reset, and the
	// reset pulse width.
	rfSettle delay.Tick = 1
)

// Init loads the factory identity if none has been configured,
// resets the chip and configures it for reception on the
// identity's channel. Init must succeed before frames can be
// sent or received.
//
// Init returns an error wrapping ErrTimeout if the chip did not
// leave reset or reach the receive state in time. The chip is
// then in an unknown state and Init may be retried.
func (d *Device) Init() error {
	d.id.loadDefaults()
	status, err := d.init()
	d.status = status
	return err
}

func (d *Device) init() (Status, error) {
	d.degraded = nil
	d.powerOn()
	s := &initSeq{d: d}
	tm := delay.New(d.clock, d.timeout)

	// Software reset of power management, baseband and MAC.
	const rstAll = rstPWR | rstBB | rstMAC
	s.writeShort(regSOFTRST, rstAll)
	err := s.poll(tm, func(v *byte) error {
		return d.regs.ReadShort(regSOFTRST, v)
	}, rstAll, 0)
	if err != nil {
		return s.status(err), fmt.Errorf("mrf24j40: init: reset: %w", err)
	}
	delay.Wait(d.clock, resetSettle)
	s.writeShort(regRXFLUSH, rxFlush)

	s.applyAddress()
	s.applyMAC()
	if err := s.err(); err != nil {
		return StatusFailed, fmt.Errorf("mrf24j40: init: identity: %w", err)
	}

	s.writeLongRegs([]longRegVal{
		{regRFCON1, vcoOpt},
		{regRFCON2, pllEN},
		{regRFCON3, txPower0dB},
		{regRFCON6, txFil | recovery},
		{regRFCON7, slpClk100kHz},
		{regRFCON8, rfVCO},
		{regSLPCON1, clkOutDis | slpClkDiv0},
	})
	s.writeShortRegs([]shortRegVal{
		{regBBREG2, ccaMode1},
		{regBBREG6, rssiMode2},
		{regCCAEDTH, ccaEDTH},
		{regPACON2, fifoEN | txONTS},
		{regTXSTBL, rfSTBL | msIFS},
	})
	if err := s.err(); err != nil {
		return StatusFailed, fmt.Errorf("mrf24j40: init: rf: %w", err)
	}

	err = s.poll(tm, func(v *byte) error {
		return d.regs.ReadLong(regRFSTATE, v)
	}, rfStateMask, rfStateRX)
	if err != nil {
		return s.status(err), fmt.Errorf("mrf24j40: init: rx state: %w", err)
	}

	// Leave only the receive and TX GTS1 interrupts enabled.
	s.writeShort(regINTCON, slpIE|wakeIE|hsymtmIE|secIE|txg2IE|txnIE)
	s.writeShort(regACKTMOUT, drpACK|mawd)
	s.applyChannel()
	// Normal, non-promiscuous reception.
	s.writeShort(regRXMCR, 0)
	// Reading INTSTAT clears any pending interrupt.
	var intstat byte
	s.readShort(regINTSTAT, &intstat)
	if err := s.err(); err != nil {
		return StatusFailed, fmt.Errorf("mrf24j40: init: %w", err)
	}

	if len(s.errs) > 0 {
		d.degraded = errors.Join(s.errs...)
		d.log.Printf("mrf24j40: init: %d register writes failed: %v", len(s.errs), d.degraded)
	}
	return StatusReady, nil
}

// powerOn releases chip select and wake and pulses the hardware
// reset line.
func (d *Device) powerOn() {
	out := func(p Pin, l gpio.Level) {
		if p != nil {
			_ = p.Out(l)
		}
	}
	out(d.regs.Select, gpio.High)
	out(d.wake, gpio.High)
	out(d.reset, gpio.Low)
	delay.Wait(d.clock, rfSettle)
	out(d.reset, gpio.High)
	delay.Wait(d.clock, rfSettle)
}

// initSeq issues the register accesses of Init and applies the
// write error policy. In strict mode the first failure stops
// all further accesses; otherwise failures are collected.
type initSeq struct {
	d      *Device
	failed error
	errs   []error
}

func (s *initSeq) fail(err error) {
	if s.d.strict {
		s.failed = err
		return
	}
	s.errs = append(s.errs, err)
}

func (s *initSeq) err() error {
	return s.failed
}

func (s *initSeq) status(err error) Status {
	if errors.Is(err, ErrTimeout) {
		return StatusTimeout
	}
	return StatusFailed
}

func (s *initSeq) writeShort(reg ShortReg, v byte) {
	if s.failed != nil {
		return
	}
	if err := s.d.regs.WriteShort(reg, v); err != nil {
		s.fail(err)
	}
}

func (s *initSeq) readShort(reg ShortReg, v *byte) {
	if s.failed != nil {
		return
	}
	if err := s.d.regs.ReadShort(reg, v); err != nil {
		s.fail(err)
	}
}

func (s *initSeq) writeLong(reg LongReg, v byte) {
	if s.failed != nil {
		return
	}
	if err := s.d.regs.WriteLong(reg, v); err != nil {
		s.fail(err)
	}
}

type shortRegVal struct {
	reg ShortReg
	v   byte
}

type longRegVal struct {
	reg LongReg
	v   byte
}

// writeShortRegs writes a list of (register, value) pairs.
func (s *initSeq) writeShortRegs(regVals []shortRegVal) {
	for _, rv := range regVals {
		s.writeShort(rv.reg, rv.v)
	}
}

func (s *initSeq) writeLongRegs(regVals []longRegVal) {
	for _, rv := range regVals {
		s.writeLong(rv.reg, rv.v)
	}
}

// poll reads a register until its masked value equals want, or
// the timeout expires. In strict mode a failed read ends the
// loop; otherwise it counts as a value that isn't ready yet.
func (s *initSeq) poll(tm *delay.Delay, read func(v *byte) error, mask, want byte) error {
	if s.failed != nil {
		return s.failed
	}
	var v byte
	o := delay.Poll(tm, func() bool {
		if err := read(&v); err != nil {
			if s.d.strict {
				s.failed = err
				return true
			}
			return false
		}
		return v&mask == want
	})
	switch {
	case s.failed != nil:
		return s.failed
	case o == delay.TimedOut:
		return ErrTimeout
	}
	return nil
}

func (s *initSeq) applyAddress() {
	id := &s.d.id
	s.writeShort(regPANIDH, byte(id.PANID>>8))
	s.writeShort(regPANIDL, byte(id.PANID))
	s.writeShort(regSADRH, byte(id.Address>>8))
	s.writeShort(regSADRL, byte(id.Address))
}

func (s *initSeq) applyMAC() {
	for i, b := range s.d.id.MAC {
		s.writeShort(regEADR0+ShortReg(i), b)
	}
}

// applyChannel selects the channel and resets the RF state
// machine so the synthesizer relocks.
func (s *initSeq) applyChannel() {
	s.writeLong(regRFCON0, s.d.id.Channel.rfcon0())
	s.writeShort(regRFCTL, rfRST)
	s.writeShort(regRFCTL, 0)
	delay.Wait(s.d.clock, rfSettle)
}
