package gateway

import (
	"bufio"
	"errors"
	"fmt"
	"io"
)

// Records are framed on the link with SLIP (RFC 1055) so a reader
// can resynchronize after line noise. Every record is preceded and
// followed by frameEnd.
const (
	frameEnd    = 0xc0
	frameEsc    = 0xdb
	frameEscEnd = 0xdc
	frameEscEsc = 0xdd

	// MaxFrame bounds the encoded size of a record.
	MaxFrame = 512
)

// ErrMalformed is returned by Decoder.Decode for a frame that is not
// a valid record. Decoding can continue with the next frame.
var ErrMalformed = errors.New("malformed record")

// Encoder writes framed records.
type Encoder struct {
	w   io.Writer
	buf []byte
}

func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{w: w}
}

func (e *Encoder) Encode(r Record) error {
	enc, err := Marshal(r)
	if err != nil {
		return err
	}
	buf := append(e.buf[:0], frameEnd)
	for _, b := range enc {
		switch b {
		case frameEnd:
			buf = append(buf, frameEsc, frameEscEnd)
		case frameEsc:
			buf = append(buf, frameEsc, frameEscEsc)
		default:
			buf = append(buf, b)
		}
	}
	buf = append(buf, frameEnd)
	e.buf = buf
	_, err = e.w.Write(buf)
	return err
}

// Decoder reads framed records.
type Decoder struct {
	r     *bufio.Reader
	frame []byte
}

func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{r: bufio.NewReader(r)}
}

// Decode reads the next record. Empty frames are skipped. Errors
// wrapping ErrMalformed leave the decoder at the start of the next
// frame; other errors come from the underlying reader.
func (d *Decoder) Decode(r *Record) error {
	for {
		frame, err := d.next()
		if err != nil {
			return err
		}
		if len(frame) == 0 {
			continue
		}
		rec, err := Unmarshal(frame)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrMalformed, err)
		}
		*r = rec
		return nil
	}
}

// next returns the bytes up to the next frame delimiter, unescaped.
func (d *Decoder) next() ([]byte, error) {
	d.frame = d.frame[:0]
	esc := false
	overflow := false
	for {
		b, err := d.r.ReadByte()
		if err != nil {
			// A partial frame at the end of the stream is dropped.
			return nil, err
		}
		switch {
		case b == frameEnd:
			if overflow {
				return nil, fmt.Errorf("%w: frame exceeds %d bytes", ErrMalformed, MaxFrame)
			}
			return d.frame, nil
		case esc:
			esc = false
			switch b {
			case frameEscEnd:
				b = frameEnd
			case frameEscEsc:
				b = frameEsc
			}
		case b == frameEsc:
			esc = true
			continue
		}
		if len(d.frame) == MaxFrame {
			overflow = true
			continue
		}
		d.frame = append(d.frame, b)
	}
}
