//go:build linux

package serial

import (
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// Parity selects the parity bit mode.
type Parity int

const (
	ParityNone Parity = iota
	ParityOdd
	ParityEven
)

func (p Parity) String() string {
	switch p {
	case ParityNone:
		return "none"
	case ParityOdd:
		return "odd"
	case ParityEven:
		return "even"
	default:
		return fmt.Sprintf("Parity(%d)", int(p))
	}
}

// ParseParity accepts "none", "odd", "even" or their first letter, in any case.
func ParseParity(s string) (Parity, error) {
	switch strings.ToLower(s) {
	case "n", "none":
		return ParityNone, nil
	case "o", "odd":
		return ParityOdd, nil
	case "e", "even":
		return ParityEven, nil
	}
	return 0, &PortError{Op: "parse parity", Kind: ErrInvalidSettings, Err: fmt.Errorf("unknown parity %q", s)}
}

// BaudRates lists the supported line speeds, the classical POSIX speed table.
var BaudRates = []int{
	50, 75, 110, 134, 150, 200, 300, 600, 1200, 1800,
	2400, 4800, 9600, 19200, 38400, 57600, 115200, 230400,
}

// Config holds the parameters for opening a serial port.
type Config struct {
	Device      string
	BaudRate    int
	CharSize    int // 5, 6, 7 or 8 data bits
	TwoStopBits bool
	Parity      Parity

	// Logger receives diagnostics. Nil disables them unless Debug is set,
	// in which case a development logger writing to stderr, shared by every
	// Port in the process, is used. Callers that need to Sync or route
	// diagnostics should pass their own Logger.
	Logger *zap.Logger
	Debug  bool
}

// Validate reports ErrInvalidSettings for any value outside the supported set.
func (c Config) Validate() error {
	if !validBaud(c.BaudRate) {
		return c.invalid(fmt.Errorf("unsupported baud rate %d", c.BaudRate))
	}
	if c.CharSize < 5 || c.CharSize > 8 {
		return c.invalid(fmt.Errorf("character size must be 5-8, got %d", c.CharSize))
	}
	switch c.Parity {
	case ParityNone, ParityOdd, ParityEven:
	default:
		return c.invalid(fmt.Errorf("unsupported parity %v", c.Parity))
	}
	return nil
}

func (c Config) invalid(err error) error {
	return &PortError{Op: "open", Path: c.Device, Kind: ErrInvalidSettings, Err: err}
}

func (c Config) logger() *zap.Logger {
	switch {
	case c.Logger != nil:
		return c.Logger
	case c.Debug:
		return debugLogger()
	default:
		return zap.NewNop()
	}
}

// debugLogger is built on first use. zap.NewDevelopment only fails on a bad
// output path, and stderr is fixed, so the Nop fallback is not expected.
var debugLogger = sync.OnceValue(func() *zap.Logger {
	l, err := zap.NewDevelopment()
	if err != nil {
		return zap.NewNop()
	}
	return l
})

func validBaud(rate int) bool {
	for _, b := range BaudRates {
		if b == rate {
			return true
		}
	}
	return false
}
