package mrf24j40

import (
	"errors"
	"fmt"
)

const (
	// HeaderLen is the header length written at the start of
	// the transmit FIFO.
	HeaderLen = 0x0b

	// MaxPayload is the largest payload that fits the normal
	// transmit FIFO after the two length bytes, the nine byte MAC
	// header and the trailing zero.
	MaxPayload = txFIFOSize - 2 - 9 - 1
)

// Frame control field.
const (
	// First byte.
	fcData    = 0b001
	fcACKReq  = 0b1 << 5
	fcPANComp = 0b1 << 6
	// Second byte.
	fcDstShort = 0b10 << 2
	fcSrcShort = 0b10 << 6
)

// OutboundFrame is a data frame to transmit.
type OutboundFrame struct {
	// Dest is the destination short address.
	Dest uint16
	// DestPANID is the destination PAN id. Zero means the
	// device's own PAN id.
	DestPANID uint16
	// Origin is the source short address. Zero means the
	// device's own address.
	Origin  uint16
	Payload []byte
}

// Transmit loads f into the transmit FIFO and triggers its
// transmission with an acknowledgement request.
//
// A nil error means the frame was handed to the chip; it does not
// mean the frame was delivered or acknowledged. Use TransmitStatus
// to learn the outcome reported by the chip.
func (d *Device) Transmit(f OutboundFrame) error {
	switch {
	case !d.ready():
		return fmt.Errorf("mrf24j40: transmit: %w", ErrNotReady)
	case f.Dest == 0:
		return fmt.Errorf("mrf24j40: transmit: %w", ErrNoDestination)
	case len(f.Payload) == 0:
		return fmt.Errorf("mrf24j40: transmit: %w", ErrEmptyPayload)
	case len(f.Payload) > MaxPayload:
		return fmt.Errorf("mrf24j40: transmit: %d bytes: %w", len(f.Payload), ErrPayloadTooLong)
	}
	if f.DestPANID == 0 {
		f.DestPANID = d.id.PANID
	}
	if f.Origin == 0 {
		f.Origin = d.id.Address
	}
	f.Payload = append([]byte(nil), f.Payload...)
	d.out = f
	seq := d.id.Sequence
	d.id.Sequence++

	w := fifoWriter{regs: &d.regs, pos: fifoTXNormal}
	w.write(
		HeaderLen,
		byte(len(f.Payload)+HeaderLen),
		fcData|fcACKReq|fcPANComp,
		fcDstShort|fcSrcShort,
		seq,
		byte(f.DestPANID), byte(f.DestPANID>>8),
		byte(f.Dest), byte(f.Dest>>8),
		byte(f.Origin), byte(f.Origin>>8),
	)
	w.write(f.Payload...)
	w.write(0)
	if w.errs != nil {
		return fmt.Errorf("mrf24j40: transmit: %w", errors.Join(w.errs...))
	}
	if err := d.regs.WriteShort(regTXNCON, txnACKReq|txnTrig); err != nil {
		return fmt.Errorf("mrf24j40: transmit: %w", err)
	}
	return nil
}

// LastSent returns the last frame accepted by Transmit, with the
// default PAN id and origin filled in. The payload is a copy taken
// by Transmit.
func (d *Device) LastSent() OutboundFrame {
	return d.out
}

// TxStatus is the outcome of the last transmission as reported
// by the chip.
type TxStatus struct {
	// Failed is set if the frame was not acknowledged after all
	// retries, or the channel was busy.
	Failed bool
	// ChannelBusy is set if clear channel assessment failed.
	ChannelBusy bool
	// Retries is the number of retransmissions.
	Retries int
}

// TransmitStatus reads the status of the last transmission.
func (d *Device) TransmitStatus() (TxStatus, error) {
	if !d.ready() {
		return TxStatus{}, fmt.Errorf("mrf24j40: transmit status: %w", ErrNotReady)
	}
	var v byte
	if err := d.regs.ReadShort(regTXSTAT, &v); err != nil {
		return TxStatus{}, fmt.Errorf("mrf24j40: transmit status: %w", err)
	}
	return TxStatus{
		Failed:      v&txnStat != 0,
		ChannelBusy: v&ccaFail != 0,
		Retries:     int(v >> txnRetry),
	}, nil
}

// fifoWriter writes consecutive FIFO positions. Every write is
// attempted; failures are collected.
type fifoWriter struct {
	regs *Registers
	pos  LongReg
	errs []error
}

func (w *fifoWriter) write(data ...byte) {
	for _, b := range data {
		if err := w.regs.WriteLong(w.pos, b); err != nil {
			w.errs = append(w.errs, err)
		}
		w.pos++
	}
}
