// Package serial connects a Session to a module on a serial port.
package serial

import (
	"errors"
	"fmt"
	"io"
	"time"

	tarm "github.com/tarm/serial"

	"github.com/robotalks/ld2410.go/pkg/ld2410"
)

// DefaultReadTimeout bounds a single blocking read so the read loop can
// observe Close.
const DefaultReadTimeout = 100 * time.Millisecond

// Config is the serial port configuration.
type Config struct {
	Device      string        `yaml:"device"`
	Baud        int           `yaml:"baud"`
	ReadTimeout time.Duration `yaml:"read-timeout"`
}

// DefaultConfig returns the factory settings of the module on device.
func DefaultConfig(device string) Config {
	return Config{
		Device:      device,
		Baud:        ld2410.DefaultBaudRate.BitsPerSecond(),
		ReadTimeout: DefaultReadTimeout,
	}
}

// Validate checks the device is set and the baud rate is one the module supports.
func (c Config) Validate() error {
	if c.Device == "" {
		return errors.New("serial device not specified")
	}
	if _, err := ld2410.BaudRateOf(c.Baud); err != nil {
		return fmt.Errorf("serial %s: %w", c.Device, err)
	}
	if c.ReadTimeout < 0 {
		return fmt.Errorf("serial %s: negative read timeout", c.Device)
	}
	return nil
}

// Open opens the port, 8N1.
func (c Config) Open() (io.ReadWriteCloser, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	port, err := tarm.OpenPort(&tarm.Config{
		Name:        c.Device,
		Baud:        c.Baud,
		Size:        8,
		Parity:      tarm.ParityNone,
		StopBits:    tarm.Stop1,
		ReadTimeout: c.ReadTimeout,
	})
	if err != nil {
		return nil, err
	}
	return port, nil
}

// NewTransport creates a transport opening the port on demand.
func NewTransport(c Config) *ld2410.StreamTransport {
	t := ld2410.NewStreamTransport(c.Open)
	// an expired read timeout is reported as io.EOF
	t.IgnoreEOF = c.ReadTimeout > 0
	return t
}

// Dial opens a Session on the port.
func Dial(c Config, handler ld2410.ReportHandler) (*ld2410.Session, error) {
	s := ld2410.NewSession(NewTransport(c))
	s.Handler = handler
	if err := s.Open(); err != nil {
		return nil, err
	}
	return s, nil
}
