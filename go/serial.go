package main

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"go.bug.st/serial"
)

// serialReadTimeout bounds a single Read so a silent controller surfaces as a
// latch error instead of blocking the poll loop forever.
const serialReadTimeout = 20 * time.Millisecond

// SerialPort talks to the pad controller MCU. It latches one CmdSamples
// frame per poll cycle and serves the channel amplitudes and hold level from
// it, and writes indicator and MIDI frames back.
type SerialPort struct {
	port     io.ReadWriteCloser
	frames   *FrameReader
	samples  []int
	held     bool
	lastLamp *bool
}

// serialPatterns match the device names USB-serial controllers enumerate as.
var serialPatterns = []string{"ttyACM", "ttyUSB", "usbmodem", "usbserial", "COM"}

// FindSerial picks the first port that looks like a USB-serial controller.
func FindSerial() (string, error) {
	ports, err := serial.GetPortsList()
	if err != nil {
		return "", fmt.Errorf("serial: list ports: %w", err)
	}
	logger.Debug("serial: ports found", "ports", strings.Join(ports, ", "))
	for _, pat := range serialPatterns {
		for _, p := range ports {
			if strings.Contains(p, pat) {
				return p, nil
			}
		}
	}
	return "", fmt.Errorf("serial: no controller port among %v", ports)
}

// OpenSerial opens the named serial device at the given baud rate for a
// controller with the given number of pad inputs.
func OpenSerial(name string, baud int, channels int) (*SerialPort, error) {
	mode := &serial.Mode{BaudRate: baud}
	p, err := serial.Open(name, mode)
	if err != nil {
		return nil, fmt.Errorf("serial: open %s: %w", name, err)
	}
	if err := p.SetReadTimeout(serialReadTimeout); err != nil {
		_ = p.Close()
		return nil, fmt.Errorf("serial: set read timeout: %w", err)
	}
	if err := p.ResetInputBuffer(); err != nil {
		logger.Warn("serial: reset input buffer failed", "device", name, "err", err)
	}
	logger.Info("serial: port opened", "device", name, "baud", baud, "channels", channels)
	return newSerialPort(p, channels), nil
}

func newSerialPort(rw io.ReadWriteCloser, channels int) *SerialPort {
	return &SerialPort{
		port:    rw,
		frames:  NewFrameReader(timeoutReader{rw}),
		samples: make([]int, channels),
	}
}

var errReadTimeout = errors.New("serial: read timeout")

// timeoutReader turns the (0, nil) go.bug.st/serial returns when the read
// timeout expires into errReadTimeout, so a stalled line ends the Latch
// instead of spinning inside bufio or io.ReadFull.
type timeoutReader struct {
	r io.Reader
}

func (t timeoutReader) Read(p []byte) (int, error) {
	n, err := t.r.Read(p)
	if n == 0 && err == nil && len(p) > 0 {
		return 0, errReadTimeout
	}
	return n, err
}

// Latch reads frames until the next CmdSamples frame and makes it current.
// On error the previously latched frame stays in place.
func (s *SerialPort) Latch() error {
	for {
		f, err := s.frames.Next()
		if err != nil {
			return err
		}
		if f.Cmd != CmdSamples {
			logger.Debug("serial: ignoring frame", "cmd", fmt.Sprintf("0x%02x", f.Cmd), "len", len(f.Payload))
			continue
		}
		held, err := DecodeSamples(f.Payload, s.samples)
		if err != nil {
			s.frames.Dropped++
			return err
		}
		s.held = held
		return nil
	}
}

func (s *SerialPort) ReadSample(channel int) int {
	if channel < 0 || channel >= len(s.samples) {
		return 0
	}
	return s.samples[channel]
}

func (s *SerialPort) ReadHold() bool { return s.held }

// SetIndicator drives the hold LED on the controller.
func (s *SerialPort) SetIndicator(on bool) {
	if s.lastLamp != nil && *s.lastLamp == on {
		return
	}
	var b byte
	if on {
		b = 1
	}
	if err := s.SendFrame(Frame{Cmd: CmdIndicator, Payload: []byte{b}}); err != nil {
		logger.Warn("serial: indicator write failed", "on", on, "err", err)
		return
	}
	s.lastLamp = &on
}

// SendFrame encodes and writes a Frame to the serial port.
func (s *SerialPort) SendFrame(f Frame) error {
	data := f.Encode()
	n, err := s.port.Write(data)
	if err != nil {
		return fmt.Errorf("serial: write: %w", err)
	}
	logger.Debug("serial: frame sent", "bytes", n, "cmd", fmt.Sprintf("0x%02x", f.Cmd))
	return nil
}

// Stats reports framing counters for the shutdown summary.
func (s *SerialPort) Stats() (skipped, dropped uint64) {
	return s.frames.Skipped, s.frames.Dropped
}

// Close closes the underlying serial port.
func (s *SerialPort) Close() {
	logger.Info("serial: closing port")
	_ = s.port.Close()
}
