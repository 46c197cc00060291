package mrf24j40

import (
	"fmt"

	"periph.io/x/conn/v3/gpio"
)

const (
	// maxFrameLen is the largest 802.15.4 frame (PSDU) length.
	maxFrameLen = 127
	// rxTrailer is the number of bytes after the copied data:
	// the frame check sequence, LQI and RSSI.
	rxTrailer = 4
	// RXBufferSize is the capacity of InboundFrame.Payload.
	RXBufferSize = maxFrameLen - rxTrailer

	// Positions in the receive FIFO.
	rxLenPos     = 0
	rxOriginLow  = 8
	rxOriginHigh = 9
	rxDataPos    = HeaderLen - 1
)

// InboundFrame is a received frame.
type InboundFrame struct {
	// Origin is the source short address.
	Origin  uint16
	Payload [RXBufferSize]byte
	Len     int
}

// Bytes returns the received data.
func (f *InboundFrame) Bytes() []byte {
	return f.Payload[:f.Len]
}

// IsNewMessage reports whether the chip signals a received frame
// on its interrupt line.
func (d *Device) IsNewMessage() (bool, error) {
	if !d.ready() {
		return false, fmt.Errorf("mrf24j40: poll: %w", ErrNotReady)
	}
	return d.intPin != nil && d.intPin.Read() == gpio.Low, nil
}

// Receive reads the frame in the receive FIFO. The returned frame
// is owned by the Device and is overwritten by the next call to
// Receive.
func (d *Device) Receive() (*InboundFrame, error) {
	if !d.ready() {
		return nil, fmt.Errorf("mrf24j40: receive: %w", ErrNotReady)
	}
	if err := d.receive(); err != nil {
		return nil, fmt.Errorf("mrf24j40: receive: %w", err)
	}
	return &d.in, nil
}

func (d *Device) receive() error {
	// Disable reception while the FIFO is read out.
	if err := d.regs.WriteShort(regBBREG1, rxDecInv); err != nil {
		return err
	}
	decErr := d.decode()
	// Reenable reception and clear the pending interrupt even if
	// decoding failed.
	err1 := d.regs.WriteShort(regBBREG1, 0)
	var intstat byte
	err2 := d.regs.ReadShort(regINTSTAT, &intstat)
	return firstErr(decErr, err1, err2)
}

func (d *Device) decode() error {
	r := &d.regs
	if err := r.WriteShort(regRXFLUSH, dataOnly); err != nil {
		return err
	}
	var n, lo, hi byte
	if err := firstErr(
		r.ReadLong(fifoRX+rxLenPos, &n),
		r.ReadLong(fifoRX+rxOriginHigh, &hi),
		r.ReadLong(fifoRX+rxOriginLow, &lo),
	); err != nil {
		return err
	}
	if n < rxTrailer || n > maxFrameLen {
		d.in.Len = 0
		return fmt.Errorf("frame length %d: %w", n, ErrDecode)
	}
	d.in.Origin = uint16(hi)<<8 | uint16(lo)
	d.in.Len = int(n) - rxTrailer
	for i := range d.in.Len {
		if err := r.ReadLong(fifoRX+rxDataPos+LongReg(i), &d.in.Payload[i]); err != nil {
			return err
		}
	}
	return nil
}

// Received returns the frame decoded by the last Receive.
func (d *Device) Received() *InboundFrame {
	return &d.in
}

// DiscoverDevices is a placeholder for device discovery. It
// addresses the last outbound frame to address 1 and retriggers
// its transmission; it does not implement a discovery protocol.
func (d *Device) DiscoverDevices() error {
	if !d.ready() {
		return fmt.Errorf("mrf24j40: discover: %w", ErrNotReady)
	}
	d.out.Dest = 1
	if err := d.regs.WriteShort(regTXNCON, txnACKReq|txnTrig); err != nil {
		return fmt.Errorf("mrf24j40: discover: %w", err)
	}
	return nil
}
