package gateway

import (
	"errors"
	"io"
	"sync/atomic"
	"testing"
	"time"
)

// timeoutPort is a serial port whose reads time out until data is
// set.
type timeoutPort struct {
	data    atomic.Pointer[[]byte]
	err     error
	timeout error
	reads   atomic.Int32
}

func (p *timeoutPort) Read(b []byte) (int, error) {
	p.reads.Add(1)
	if d := p.data.Swap(nil); d != nil {
		return copy(b, *d), nil
	}
	if p.err != nil {
		return 0, p.err
	}
	time.Sleep(time.Millisecond)
	return 0, p.timeout
}

func (p *timeoutPort) Write(b []byte) (int, error) { return len(b), nil }
func (p *timeoutPort) Close() error                { return nil }

func TestSerialReadTimeout(t *testing.T) {
	for _, timeout := range []error{nil, io.EOF} {
		p := &timeoutPort{timeout: timeout}
		s := newSerial(p)
		go func() {
			for p.reads.Load() < 3 {
				time.Sleep(time.Millisecond)
			}
			data := []byte("abc")
			p.data.Store(&data)
		}()
		buf := make([]byte, 8)
		n, err := s.Read(buf)
		if err != nil || string(buf[:n]) != "abc" {
			t.Errorf("timeout %v: Read = %q, %v, want \"abc\"", timeout, buf[:n], err)
		}
	}
}

func TestSerialClose(t *testing.T) {
	s := newSerial(&timeoutPort{timeout: io.EOF})
	errc := make(chan error, 1)
	go func() {
		_, err := s.Read(make([]byte, 8))
		errc <- err
	}()
	time.Sleep(5 * time.Millisecond)
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}
	select {
	case err := <-errc:
		if err != io.EOF {
			t.Errorf("Read after Close = %v, want %v", err, io.EOF)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Read not unblocked by Close")
	}
}

func TestSerialReadError(t *testing.T) {
	errPort := errors.New("device removed")
	s := newSerial(&timeoutPort{err: errPort})
	if _, err := s.Read(make([]byte, 8)); !errors.Is(err, errPort) {
		t.Errorf("Read = %v, want %v", err, errPort)
	}
}
