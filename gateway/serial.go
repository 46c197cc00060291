package gateway

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/tarm/serial"
)

const (
	// BaudRate is the serial line speed of the gateway link.
	BaudRate = 115200
	// readTimeout bounds each read of the port so that a closed
	// link is noticed by a blocked reader.
	readTimeout = 100 * time.Millisecond
)

// serialDevices lists the devices that USB CDC and FTDI serial
// adapters enumerate as.
func serialDevices() []string {
	switch runtime.GOOS {
	case "linux":
		return []string{"/dev/ttyACM0", "/dev/ttyUSB0"}
	case "darwin":
		acm, _ := filepath.Glob("/dev/cu.usbmodem*")
		ftdi, _ := filepath.Glob("/dev/cu.usbserial*")
		return append(acm, ftdi...)
	case "windows":
		return []string{"COM3", "COM4"}
	}
	return nil
}

// Serial is a gateway link over a serial line. A Read blocked on
// the line returns io.EOF once the link is closed.
type Serial struct {
	port   io.ReadWriteCloser
	closed atomic.Bool
}

// OpenSerial opens the serial device dev, or the first USB serial
// adapter found if dev is empty.
func OpenSerial(dev string) (*Serial, error) {
	devices := []string{dev}
	if dev == "" {
		devices = serialDevices()
	}
	if len(devices) == 0 {
		return nil, errors.New("gateway: no serial adapter found")
	}
	var errs []error
	for _, d := range devices {
		c := &serial.Config{Name: d, Baud: BaudRate, ReadTimeout: readTimeout}
		p, err := serial.OpenPort(c)
		if err == nil {
			return newSerial(p), nil
		}
		errs = append(errs, err)
	}
	return nil, fmt.Errorf("gateway: open serial: %w", errors.Join(errs...))
}

func newSerial(port io.ReadWriteCloser) *Serial {
	return &Serial{port: port}
}

// Read reads from the line, retrying reads that time out without
// data.
func (s *Serial) Read(p []byte) (int, error) {
	for {
		n, err := s.port.Read(p)
		switch {
		case n > 0:
			return n, nil
		case s.closed.Load():
			return 0, io.EOF
		case err != nil && !errors.Is(err, io.EOF):
			return 0, err
		}
		// A timed out read reports no data and either no error
		// or io.EOF, depending on the platform.
	}
}

func (s *Serial) Write(p []byte) (int, error) {
	return s.port.Write(p)
}

func (s *Serial) Close() error {
	s.closed.Store(true)
	return s.port.Close()
}
