//go:build linux

package serial

import (
	"errors"

	"golang.org/x/sys/unix"
)

// Kind classifies a failure reported by a Port. Kinds are errors themselves,
// so callers test for them with errors.Is.
type Kind uint8

const (
	// ErrIO is any OS-level failure that has no more specific kind.
	ErrIO Kind = iota + 1
	// ErrAccessDenied means the OS refused to open the device.
	ErrAccessDenied
	// ErrNoSuchPort means the device path does not exist.
	ErrNoSuchPort
	// ErrBusy means another handle holds the exclusive lock on the device.
	ErrBusy
	// ErrInvalidSettings means a baud rate, character size or parity outside
	// the supported set. It is reported before any descriptor is opened.
	ErrInvalidSettings
	// ErrInterrupted means a Read was aborted by CancelRead. It is a normal
	// control-flow outcome, not a fault.
	ErrInterrupted
)

var kindText = map[Kind]string{
	ErrIO:              "i/o error",
	ErrAccessDenied:    "access denied",
	ErrNoSuchPort:      "no such port",
	ErrBusy:            "port busy",
	ErrInvalidSettings: "invalid settings",
	ErrInterrupted:     "read interrupted",
}

func (k Kind) Error() string {
	if s, ok := kindText[k]; ok {
		return s
	}
	return "unknown error"
}

// ErrClosed is wrapped (as ErrIO) by every operation on a closed Port.
var ErrClosed = errors.New("port closed")

// PortError records a failed operation, the device it was issued against,
// the classified kind and the underlying OS error, if any.
type PortError struct {
	Op   string
	Path string
	Kind Kind
	Err  error
}

func (e *PortError) Error() string {
	s := "serial: " + e.Op
	if e.Path != "" {
		s += " " + e.Path
	}
	s += ": " + e.Kind.Error()
	if e.Err != nil {
		s += ": " + e.Err.Error()
	}
	return s
}

// Unwrap exposes both the kind and the OS error to errors.Is and errors.As.
func (e *PortError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// KindOf returns the kind carried by err. Errors that did not come from this
// package are reported as ErrIO; a nil error has kind 0.
func KindOf(err error) Kind {
	if err == nil {
		return 0
	}
	var k Kind
	if errors.As(err, &k) {
		return k
	}
	return ErrIO
}

// openKind maps an open(2) failure to its kind.
func openKind(err error) Kind {
	switch {
	case errors.Is(err, unix.EACCES), errors.Is(err, unix.EPERM):
		return ErrAccessDenied
	case errors.Is(err, unix.ENOENT):
		return ErrNoSuchPort
	default:
		return ErrIO
	}
}

// lockKind maps a flock(2) failure to its kind.
func lockKind(err error) Kind {
	if errors.Is(err, unix.EWOULDBLOCK) {
		return ErrBusy
	}
	return ErrIO
}
