// Package gateway bridges an MRF24J40 radio and a host over a byte
// stream, typically a serial line. Records in both directions are
// CBOR encoded.
package gateway

import (
	"errors"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/fxamacker/cbor/v2"
	"mrf24.dev/driver/mrf24j40"
)

// Radio is the part of an mrf24j40.Device used by the gateway.
type Radio interface {
	Transmit(f mrf24j40.OutboundFrame) error
	IsNewMessage() (bool, error)
	Receive() (*mrf24j40.InboundFrame, error)
}

type Kind uint8

const (
	// KindSend asks the gateway to transmit a frame.
	KindSend Kind = iota + 1
	// KindResult answers a KindSend record with the same ID.
	KindResult
	// KindReceived carries a frame received by the radio.
	KindReceived
)

func (k Kind) String() string {
	switch k {
	case KindSend:
		return "send"
	case KindResult:
		return "result"
	case KindReceived:
		return "received"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Record is the unit of exchange with the host.
type Record struct {
	Kind Kind   `cbor:"1,keyasint"`
	ID   uint32 `cbor:"2,keyasint,omitempty"`
	// Dest, PANID and Origin address a KindSend frame. Origin is
	// also the source of a KindReceived frame.
	Dest   uint16 `cbor:"3,keyasint,omitempty"`
	PANID  uint16 `cbor:"4,keyasint,omitempty"`
	Origin uint16 `cbor:"5,keyasint,omitempty"`
	// Data is the payload of a KindSend frame, or the data read
	// from the receive FIFO for a KindReceived frame.
	Data []byte `cbor:"6,keyasint,omitempty"`
	// Err describes a failed KindSend.
	Err string `cbor:"7,keyasint,omitempty"`
}

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	em, err := cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic(err)
	}
	encMode = em
	dm, err := cbor.DecOptions{}.DecMode()
	if err != nil {
		panic(err)
	}
	decMode = dm
}

// Marshal encodes a record.
func Marshal(r Record) ([]byte, error) {
	return encMode.Marshal(r)
}

// Unmarshal decodes a record.
func Unmarshal(enc []byte) (Record, error) {
	var r Record
	err := decMode.Unmarshal(enc, &r)
	return r, err
}

// Run forwards records from link to the radio and frames received
// by the radio to link, until quit is closed or link reaches EOF.
// The radio is polled for new frames on every tick. Malformed
// records are logged and skipped.
//
// Run is the only user of the radio while it runs.
func Run(r Radio, link io.ReadWriter, tick <-chan time.Time, quit <-chan struct{}, logger *log.Logger) error {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	done := make(chan struct{})
	defer close(done)
	in := make(chan Record)
	readErr := make(chan error, 1)
	go func() {
		dec := NewDecoder(link)
		for {
			var rec Record
			if err := dec.Decode(&rec); err != nil {
				if errors.Is(err, ErrMalformed) {
					logger.Printf("gateway: %v", err)
					continue
				}
				readErr <- err
				return
			}
			select {
			case in <- rec:
			case <-done:
				return
			}
		}
	}()
	enc := NewEncoder(link)
	for {
		select {
		case <-quit:
			return nil
		case err := <-readErr:
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("gateway: read: %w", err)
		case rec := <-in:
			res, ok := handle(r, rec)
			if !ok {
				logger.Printf("gateway: ignoring %v record", rec.Kind)
				continue
			}
			if err := enc.Encode(res); err != nil {
				return fmt.Errorf("gateway: write: %w", err)
			}
		case <-tick:
			rec, ok, err := poll(r)
			if err != nil {
				logger.Printf("gateway: %v", err)
				continue
			}
			if !ok {
				continue
			}
			if err := enc.Encode(rec); err != nil {
				return fmt.Errorf("gateway: write: %w", err)
			}
		}
	}
}

func handle(r Radio, rec Record) (Record, bool) {
	if rec.Kind != KindSend {
		return Record{}, false
	}
	res := Record{Kind: KindResult, ID: rec.ID}
	err := r.Transmit(mrf24j40.OutboundFrame{
		Dest:      rec.Dest,
		DestPANID: rec.PANID,
		Origin:    rec.Origin,
		Payload:   rec.Data,
	})
	if err != nil {
		res.Err = err.Error()
	}
	return res, true
}

func poll(r Radio) (Record, bool, error) {
	pending, err := r.IsNewMessage()
	if err != nil || !pending {
		return Record{}, false, err
	}
	f, err := r.Receive()
	if err != nil {
		return Record{}, false, err
	}
	return Record{
		Kind:   KindReceived,
		Origin: f.Origin,
		Data:   append([]byte(nil), f.Bytes()...),
	}, true, nil
}
