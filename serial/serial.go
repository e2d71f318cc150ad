// Package serial provides a serial port, which provides the io.ReadWriter
// interface, that provides the connection between the modem package and
// the physical SIM7000 device.
package serial

import (
	"github.com/tarm/serial"
)

// Config is the set of parameters New opens a port with. Each platform
// file in this package supplies the defaultConfig New starts from, so
// callers only need to override what differs from their dev board.
type Config struct {
	port string
	baud int
}

// Option mutates a Config built up by New.
type Option func(*Config)

// WithPort overrides the device path (e.g. "/dev/ttyUSB0").
func WithPort(port string) Option {
	return func(c *Config) { c.port = port }
}

// WithBaud overrides the baud rate. The driver runs the modem at 115200
// once Modem.Init has configured it; the default here matches
// that post-init rate so reopening a previously initialized modem works
// without extra options.
func WithBaud(baud int) Option {
	return func(c *Config) { c.baud = baud }
}

// New opens the serial port described by opts, starting from this
// platform's defaultConfig. It is a thin wrapper around
// github.com/tarm/serial; hardware RTS/CTS flow control is configured by
// Modem.Init over AT+IFC rather than at the transport layer, since the
// modem only honors it after command negotiation.
func New(opts ...Option) (*serial.Port, error) {
	cfg := defaultConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	port, err := serial.OpenPort(&serial.Config{Name: cfg.port, Baud: cfg.baud})
	if err != nil {
		return nil, err
	}
	return port, nil
}
