package mrf24j40

import (
	"errors"
	"fmt"

	"periph.io/x/conn/v3/gpio"
)

// Simulator emulates the register interface of an MRF24J40 at the
// SPI transfer level. It implements Bus and provides the chip's
// pins, so a Device can run against it unchanged.
type Simulator struct {
	// ResetPolls is the number of SOFTRST reads that still see
	// the reset bits after a software reset. Negative values keep
	// the chip in reset forever.
	ResetPolls int
	// RXPolls is the number of RFSTATE reads after a software
	// reset before the RF state machine reports the receive
	// state. Negative values never reach it.
	RXPolls int
	// Loopback delivers every transmitted frame back to the
	// receive FIFO.
	Loopback bool
	// Fault, if set, is consulted before the data transfer of
	// every transaction. A non-nil error fails that transfer.
	Fault func(op SimOp) error

	// Sent lists the transmitted frames.
	Sent []SimFrame
	// Resets counts hardware resets through the reset pin.
	Resets int

	short [MaxShortReg + 1]byte
	long  [MaxLongReg + 1]byte

	resetLeft int
	rxLeft    int
	pending   bool
	rxSeq     uint8

	selected bool
	state    txnState
	op       SimOp

	cs, reset, wake gpio.Level
}

// SimOp describes a register transaction.
type SimOp struct {
	Long  bool
	Reg   uint16
	Write bool
}

func (o SimOp) String() string {
	rw := "read"
	if o.Write {
		rw = "write"
	}
	if o.Long {
		return fmt.Sprintf("%s long %#03x", rw, o.Reg)
	}
	return fmt.Sprintf("%s short %#02x", rw, o.Reg)
}

// SimFrame is a frame taken from the transmit FIFO when the
// transmission was triggered.
type SimFrame struct {
	Seq     uint8
	DestPAN uint16
	Dest    uint16
	Origin  uint16
	Payload []byte
}

type txnState int

const (
	txnIdle txnState = iota
	txnAddr
	txnData
	txnDone
)

// ErrProtocol is returned by the simulator for transfers that
// don't form a valid transaction.
var ErrProtocol = errors.New("sim: protocol violation")

// intRX is the INTSTAT receive interrupt flag.
const intRX = 0b1 << 3

func NewSimulator() *Simulator {
	return &Simulator{
		cs:    gpio.High,
		reset: gpio.High,
		wake:  gpio.High,
	}
}

func (s *Simulator) CSPin() Pin       { return simPin{s.setCS} }
func (s *Simulator) ResetPin() Pin    { return simPin{s.setReset} }
func (s *Simulator) WakePin() Pin     { return simPin{func(l gpio.Level) { s.wake = l }} }
func (s *Simulator) IntPin() InputPin { return simInput{s} }

// Short returns the value of a short register.
func (s *Simulator) Short(r ShortReg) byte { return s.short[r] }

// Long returns the value of a long register or FIFO position.
func (s *Simulator) Long(r LongReg) byte { return s.long[r] }

// TXFIFO returns a copy of the first n bytes of the normal
// transmit FIFO.
func (s *Simulator) TXFIFO(n int) []byte {
	return append([]byte(nil), s.long[fifoTXNormal:fifoTXNormal+LongReg(n)]...)
}

type simPin struct {
	set func(l gpio.Level)
}

func (p simPin) Out(l gpio.Level) error {
	p.set(l)
	return nil
}

type simInput struct {
	s *Simulator
}

// Read returns the interrupt line, which is active low.
func (p simInput) Read() gpio.Level {
	return gpio.Level(!p.s.pending)
}

func (s *Simulator) setCS(l gpio.Level) {
	s.cs = l
	s.selected = l == gpio.Low
	s.state = txnIdle
	if s.selected {
		s.state = txnAddr
	}
}

func (s *Simulator) setReset(l gpio.Level) {
	if s.reset == gpio.Low && l == gpio.High {
		s.Resets++
		s.short = [MaxShortReg + 1]byte{}
		s.long = [MaxLongReg + 1]byte{}
		s.pending = false
	}
	s.reset = l
}

func (s *Simulator) WriteByte(b byte) error {
	switch s.state {
	case txnAddr:
		if IsLong(b) {
			return fmt.Errorf("%w: long address %#02x in a byte transfer", ErrProtocol, b)
		}
		reg, write := DecodeShort(b)
		s.op = SimOp{Reg: uint16(reg), Write: write}
		s.state = txnData
		return nil
	case txnData:
		if !s.op.Write {
			return fmt.Errorf("%w: write during %v", ErrProtocol, s.op)
		}
		s.state = txnDone
		if err := s.fault(); err != nil {
			return err
		}
		if s.op.Long {
			s.writeLong(LongReg(s.op.Reg), b)
		} else {
			s.writeShort(ShortReg(s.op.Reg), b)
		}
		return nil
	default:
		return fmt.Errorf("%w: byte write outside a transaction", ErrProtocol)
	}
}

func (s *Simulator) WriteWord(w uint16) error {
	if s.state != txnAddr || !IsLong(byte(w>>8)) {
		return fmt.Errorf("%w: unexpected address word %#04x", ErrProtocol, w)
	}
	reg, write := DecodeLong(w)
	s.op = SimOp{Long: true, Reg: uint16(reg), Write: write}
	s.state = txnData
	return nil
}

func (s *Simulator) ReadByte() (byte, error) {
	if s.state != txnData || s.op.Write {
		return 0, fmt.Errorf("%w: read outside a read transaction", ErrProtocol)
	}
	s.state = txnDone
	if err := s.fault(); err != nil {
		return 0, err
	}
	if s.op.Long {
		return s.readLong(LongReg(s.op.Reg)), nil
	}
	return s.readShort(ShortReg(s.op.Reg)), nil
}

func (s *Simulator) fault() error {
	if s.Fault == nil {
		return nil
	}
	return s.Fault(s.op)
}

func (s *Simulator) writeShort(r ShortReg, v byte) {
	switch r {
	case regSOFTRST:
		s.short[r] = v & (rstPWR | rstBB | rstMAC)
		s.resetLeft = s.ResetPolls
		s.rxLeft = s.RXPolls
		s.long[regRFSTATE] = 0
	case regRXFLUSH:
		// The flush bit clears itself.
		s.short[r] = v &^ rxFlush
	case regTXNCON:
		if v&txnTrig != 0 {
			s.transmit()
		}
		s.short[r] = v &^ txnTrig
	default:
		s.short[r] = v
	}
}

func (s *Simulator) readShort(r ShortReg) byte {
	v := s.short[r]
	switch r {
	case regSOFTRST:
		switch {
		case s.resetLeft > 0:
			s.resetLeft--
		case s.resetLeft == 0:
			s.short[r] = 0
			v = 0
		}
	case regINTSTAT:
		s.short[r] = 0
		s.pending = false
	}
	return v
}

func (s *Simulator) writeLong(r LongReg, v byte) {
	s.long[r] = v
}

func (s *Simulator) readLong(r LongReg) byte {
	if r == regRFSTATE {
		switch {
		case s.rxLeft > 0:
			s.rxLeft--
		case s.rxLeft == 0:
			s.long[r] = rfStateRX
		}
	}
	return s.long[r]
}

// transmit records the frame in the transmit FIFO. The FIFO is
// laid out as the header length, the frame length, the MAC header
// and the payload.
func (s *Simulator) transmit() {
	fifo := s.long[fifoTXNormal : fifoTXNormal+txFIFOSize]
	hdr, n := int(fifo[0]), int(fifo[1])
	if hdr < 9 || n < hdr || 2+9+n-hdr > len(fifo) {
		return
	}
	mhr := fifo[2:]
	f := SimFrame{
		Seq:     mhr[2],
		DestPAN: uint16(mhr[3]) | uint16(mhr[4])<<8,
		Dest:    uint16(mhr[5]) | uint16(mhr[6])<<8,
		Origin:  uint16(mhr[7]) | uint16(mhr[8])<<8,
		Payload: append([]byte(nil), mhr[9:9+n-hdr]...),
	}
	s.Sent = append(s.Sent, f)
	s.short[regTXSTAT] = 0
	if s.Loopback {
		s.Deliver(f.Origin, f.Payload)
	}
}

// Deliver places a data frame from origin in the receive FIFO,
// as the chip would after receiving it, and raises the receive
// interrupt.
func (s *Simulator) Deliver(origin uint16, payload []byte) {
	const (
		mhrLen = 9
		fcsLen = 2
	)
	n := mhrLen + len(payload) + fcsLen
	fifo := s.long[fifoRX : fifoRX+rxFIFOSize]
	clear(fifo)
	if n > maxFrameLen {
		n = maxFrameLen
		payload = payload[:n-mhrLen-fcsLen]
	}
	fifo[0] = byte(n)
	fifo[1] = fcData | fcPANComp
	fifo[2] = fcDstShort | fcSrcShort
	fifo[3] = s.rxSeq
	s.rxSeq++
	fifo[4], fifo[5] = s.short[regPANIDL], s.short[regPANIDH]
	fifo[6], fifo[7] = s.short[regSADRL], s.short[regSADRH]
	fifo[8], fifo[9] = byte(origin), byte(origin>>8)
	copy(fifo[10:], payload)
	// FCS left zero; LQI and RSSI follow it.
	fifo[1+n] = 0xff
	fifo[2+n] = 0x80
	s.short[regINTSTAT] |= intRX
	s.pending = true
}
