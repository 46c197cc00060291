// Command mrfctl drives an MRF24J40 transceiver attached to a
// host SPI port. With -sim it runs against a simulated chip that
// loops transmitted frames back to its receiver.
package main

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"time"

	"golang.org/x/crypto/pbkdf2"
	"mrf24.dev/driver/mrf24j40"
	"mrf24.dev/driver/spiport"
	"mrf24.dev/gateway"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"
)

func main() {
	log.SetFlags(log.Ltime | log.Lmicroseconds)
	if err := run(os.Stdout, os.Stdin, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "mrfctl: %v\n", err)
		os.Exit(2)
	}
}

// devFlags are the flags common to every command.
type devFlags struct {
	sim     bool
	spi     string
	hz      physic.Frequency
	cs      string
	reset   string
	wake    string
	intr    string
	channel uint
	pan     string
	addr    string
	mac     string
	key     string
	pass    string
	strict  bool
	verbose bool
}

func newFlagSet(name string) (*flag.FlagSet, *devFlags) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	c := &devFlags{hz: spiport.DefaultFrequency}
	fs.BoolVar(&c.sim, "sim", false, "use a simulated chip")
	fs.StringVar(&c.spi, "spi", "", "SPI port name (empty for the first available)")
	fs.Var(&c.hz, "hz", "SPI clock frequency")
	fs.StringVar(&c.cs, "cs", "GPIO8", "chip select pin")
	fs.StringVar(&c.reset, "reset", "GPIO25", "reset pin")
	fs.StringVar(&c.wake, "wake", "GPIO24", "wake pin")
	fs.StringVar(&c.intr, "int", "GPIO23", "interrupt pin")
	fs.UintVar(&c.channel, "channel", 0, "radio channel (11-26, 0 for the default)")
	fs.StringVar(&c.pan, "pan", "", "PAN id")
	fs.StringVar(&c.addr, "addr", "", "short address")
	fs.StringVar(&c.mac, "mac", "", "extended MAC address (16 hex digits)")
	fs.StringVar(&c.key, "key", "", "security key (32 hex digits)")
	fs.StringVar(&c.pass, "passphrase", "", "derive the security key from a passphrase")
	fs.BoolVar(&c.strict, "strict", false, "fail initialization on any register write failure")
	fs.BoolVar(&c.verbose, "v", false, "log driver diagnostics")
	return fs, c
}

func run(stdout io.Writer, stdin io.Reader, args []string) error {
	if len(args) == 0 {
		return errors.New("missing command (send, listen, gateway, regs)")
	}
	cmd := args[0]
	args = args[1:]
	fs, c := newFlagSet(cmd)
	switch cmd {
	case "send":
		dest := fs.String("dest", "", "destination short address")
		dpan := fs.String("dpan", "", "destination PAN id (empty for own)")
		status := fs.Duration("status", 0, "wait this long and report the transmit status")
		if err := fs.Parse(args); err != nil {
			return err
		}
		return send(stdout, stdin, c, *dest, *dpan, *status, fs.Args())
	case "listen":
		n := fs.Int("n", 0, "stop after this many frames (0 for no limit)")
		interval := fs.Duration("interval", 10*time.Millisecond, "poll interval")
		timeout := fs.Duration("timeout", 0, "stop after this duration (0 for no limit)")
		if err := fs.Parse(args); err != nil {
			return err
		}
		return listen(stdout, c, *n, *interval, *timeout)
	case "gateway":
		dev := fs.String("serial", "", "serial device (empty to search)")
		interval := fs.Duration("interval", 10*time.Millisecond, "poll interval")
		if err := fs.Parse(args); err != nil {
			return err
		}
		return runGateway(c, *dev, *interval)
	case "regs":
		fs.Usage = func() {
			fmt.Fprintf(fs.Output(), "usage: mrfctl regs [flags]\n\n"+
				"Dump the registers in hex. Registers cleared by reading, such as\n"+
				"INTSTAT, are shown as -- so a pending interrupt is not lost.\n\n")
			fs.PrintDefaults()
		}
		if err := fs.Parse(args); err != nil {
			return err
		}
		return dumpRegs(stdout, c)
	default:
		return fmt.Errorf("unknown command: %q", cmd)
	}
}

func parseAddr(s string) (uint16, error) {
	v, err := strconv.ParseUint(s, 0, 16)
	if err != nil {
		return 0, fmt.Errorf("invalid address: %q", s)
	}
	return uint16(v), nil
}

func parseHex(s string, dst []byte) error {
	b, err := hex.DecodeString(s)
	if err != nil || len(b) != len(dst) {
		return fmt.Errorf("expected %d hex bytes: %q", len(dst), s)
	}
	copy(dst, b)
	return nil
}

// deriveKey stretches a passphrase into a security key.
func deriveKey(pass string) [mrf24j40.KeySize]byte {
	var key [mrf24j40.KeySize]byte
	k := pbkdf2.Key([]byte(pass), []byte("mrf24j40 security key"), 4096, len(key), sha256.New)
	copy(key[:], k)
	return key
}

func configure(d *mrf24j40.Device, c *devFlags) error {
	if c.channel != 0 {
		if c.channel > 0xff {
			return fmt.Errorf("channel %d: %w", c.channel, mrf24j40.ErrInvalidValue)
		}
		if err := d.SetChannel(mrf24j40.Channel(c.channel)); err != nil {
			return err
		}
	}
	if c.pan != "" {
		v, err := parseAddr(c.pan)
		if err != nil {
			return fmt.Errorf("-pan: %w", err)
		}
		if err := d.SetPANID(v); err != nil {
			return err
		}
	}
	if c.addr != "" {
		v, err := parseAddr(c.addr)
		if err != nil {
			return fmt.Errorf("-addr: %w", err)
		}
		if err := d.SetAddress(v); err != nil {
			return err
		}
	}
	if c.mac != "" {
		var mac [mrf24j40.MACSize]byte
		if err := parseHex(c.mac, mac[:]); err != nil {
			return fmt.Errorf("-mac: %w", err)
		}
		if err := d.SetMAC(mac); err != nil {
			return err
		}
	}
	switch {
	case c.key != "" && c.pass != "":
		return errors.New("specify at most one of -key and -passphrase")
	case c.key != "":
		var key [mrf24j40.KeySize]byte
		if err := parseHex(c.key, key[:]); err != nil {
			return fmt.Errorf("-key: %w", err)
		}
		if err := d.SetSecurityKey(key); err != nil {
			return err
		}
	case c.pass != "":
		if err := d.SetSecurityKey(deriveKey(c.pass)); err != nil {
			return err
		}
	}
	return nil
}

// open configures and initializes the device. The returned
// function releases the hardware.
func open(c *devFlags) (*mrf24j40.Device, func(), error) {
	conf := mrf24j40.Config{Strict: c.strict}
	if c.verbose {
		conf.Log = log.Default()
	}
	closer := func() {}
	if c.sim {
		s := mrf24j40.NewSimulator()
		s.Loopback = true
		conf.Bus = s
		conf.CS, conf.Reset, conf.Wake, conf.Int = s.CSPin(), s.ResetPin(), s.WakePin(), s.IntPin()
	} else {
		port, err := spiport.Open(c.spi, c.hz)
		if err != nil {
			return nil, nil, err
		}
		closer = func() { port.Close() }
		conf.Bus = port
		outputs := []struct {
			name string
			dst  *mrf24j40.Pin
		}{
			{c.cs, &conf.CS},
			{c.reset, &conf.Reset},
			{c.wake, &conf.Wake},
		}
		for _, o := range outputs {
			p, err := spiport.Output(o.name, gpio.High)
			if err != nil {
				closer()
				return nil, nil, err
			}
			*o.dst = p
		}
		p, err := spiport.Input(c.intr)
		if err != nil {
			closer()
			return nil, nil, err
		}
		conf.Int = p
	}
	d := mrf24j40.New(conf)
	if err := configure(d, c); err != nil {
		closer()
		return nil, nil, err
	}
	if err := d.Init(); err != nil {
		closer()
		return nil, nil, err
	}
	if err := d.Degraded(); err != nil {
		log.Printf("mrfctl: initialized with failures: %v", err)
	}
	return d, closer, nil
}

func send(stdout io.Writer, stdin io.Reader, c *devFlags, dest, dpan string, status time.Duration, args []string) error {
	if dest == "" {
		return errors.New("send: specify -dest")
	}
	f := mrf24j40.OutboundFrame{}
	var err error
	if f.Dest, err = parseAddr(dest); err != nil {
		return fmt.Errorf("send: -dest: %w", err)
	}
	if dpan != "" {
		if f.DestPANID, err = parseAddr(dpan); err != nil {
			return fmt.Errorf("send: -dpan: %w", err)
		}
	}
	if len(args) > 0 {
		f.Payload = []byte(strings.Join(args, " "))
	} else {
		b, err := io.ReadAll(stdin)
		if err != nil {
			return fmt.Errorf("send: %w", err)
		}
		f.Payload = bytes.TrimSuffix(b, []byte("\n"))
	}
	d, closer, err := open(c)
	if err != nil {
		return err
	}
	defer closer()
	if err := d.Transmit(f); err != nil {
		return err
	}
	sent := d.LastSent()
	fmt.Fprintf(stdout, "sent %d bytes to %04x/%04x (seq %d)\n",
		len(sent.Payload), sent.DestPANID, sent.Dest, d.Identity().Sequence-1)
	if status == 0 {
		return nil
	}
	time.Sleep(status)
	st, err := d.TransmitStatus()
	if err != nil {
		return err
	}
	switch {
	case st.ChannelBusy:
		fmt.Fprintf(stdout, "failed: channel busy\n")
	case st.Failed:
		fmt.Fprintf(stdout, "failed: no acknowledgement after %d retries\n", st.Retries)
	default:
		fmt.Fprintf(stdout, "acknowledged after %d retries\n", st.Retries)
	}
	return nil
}

// interrupted returns a channel that is closed on the first
// interrupt signal.
func interrupted() <-chan struct{} {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt)
	quit := make(chan struct{})
	go func() {
		<-sigs
		signal.Stop(sigs)
		close(quit)
	}()
	return quit
}

func listen(stdout io.Writer, c *devFlags, n int, interval, timeout time.Duration) error {
	d, closer, err := open(c)
	if err != nil {
		return err
	}
	defer closer()
	var deadline <-chan time.Time
	if timeout > 0 {
		deadline = time.After(timeout)
	}
	quit := interrupted()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for count := 0; n == 0 || count < n; {
		select {
		case <-quit:
			return nil
		case <-deadline:
			return nil
		case <-ticker.C:
		}
		pending, err := d.IsNewMessage()
		if err != nil {
			return err
		}
		if !pending {
			continue
		}
		f, err := d.Receive()
		if err != nil {
			log.Printf("mrfctl: %v", err)
			continue
		}
		fmt.Fprintf(stdout, "%04x: % x\n", f.Origin, f.Bytes())
		count++
	}
	return nil
}

func runGateway(c *devFlags, dev string, interval time.Duration) error {
	d, closer, err := open(c)
	if err != nil {
		return err
	}
	defer closer()
	link, err := gateway.OpenSerial(dev)
	if err != nil {
		return err
	}
	defer link.Close()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	log.Printf("mrfctl: gateway running")
	return gateway.Run(d, link, ticker.C, interrupted(), log.Default())
}

func dumpRegs(stdout io.Writer, c *devFlags) error {
	d, closer, err := open(c)
	if err != nil {
		return err
	}
	defer closer()
	return writeRegs(stdout, d.Registers())
}

// writeRegs dumps the short registers and the RF configuration
// long registers. Registers cleared by reading are shown as "--".
func writeRegs(w io.Writer, regs *mrf24j40.Registers) error {
	row := make([]string, 0, 16)
	for r := mrf24j40.ShortReg(0); r <= mrf24j40.MaxShortReg; r++ {
		if r.ReadClears() {
			row = append(row, "--")
		} else {
			var v byte
			if err := regs.ReadShort(r, &v); err != nil {
				return err
			}
			row = append(row, fmt.Sprintf("%02x", v))
		}
		if len(row) == cap(row) {
			fmt.Fprintf(w, "s%02x: %s\n", r-0xf, strings.Join(row, " "))
			row = row[:0]
		}
	}
	// The RF control and sleep configuration registers.
	for r := mrf24j40.LongReg(0x200); r < 0x250; r++ {
		var v byte
		if err := regs.ReadLong(r, &v); err != nil {
			return err
		}
		row = append(row, fmt.Sprintf("%02x", v))
		if len(row) == cap(row) {
			fmt.Fprintf(w, "l%03x: %s\n", r-0xf, strings.Join(row, " "))
			row = row[:0]
		}
	}
	return nil
}
