//go:build linux

package serial

import "golang.org/x/sys/unix"

var baudFlags = map[int]uint32{
	50:     unix.B50,
	75:     unix.B75,
	110:    unix.B110,
	134:    unix.B134,
	150:    unix.B150,
	200:    unix.B200,
	300:    unix.B300,
	600:    unix.B600,
	1200:   unix.B1200,
	1800:   unix.B1800,
	2400:   unix.B2400,
	4800:   unix.B4800,
	9600:   unix.B9600,
	19200:  unix.B19200,
	38400:  unix.B38400,
	57600:  unix.B57600,
	115200: unix.B115200,
	230400: unix.B230400,
}

var charSizeFlags = map[int]uint32{
	5: unix.CS5,
	6: unix.CS6,
	7: unix.CS7,
	8: unix.CS8,
}

// rawTermios builds the line discipline for cfg: every input, output and
// local processing flag cleared, receiver enabled, and the framing applied.
// cfg must already be valid.
func rawTermios(cfg Config) *unix.Termios {
	speed := baudFlags[cfg.BaudRate]
	t := &unix.Termios{
		Cflag:  unix.CREAD | speed | charSizeFlags[cfg.CharSize],
		Ispeed: speed,
		Ospeed: speed,
	}
	if cfg.TwoStopBits {
		t.Cflag |= unix.CSTOPB
	}
	switch cfg.Parity {
	case ParityOdd:
		t.Cflag |= unix.PARENB | unix.PARODD
	case ParityEven:
		t.Cflag |= unix.PARENB
	}
	return t
}

// flush discards anything queued in either direction.
func flush(f fd) error {
	return unix.IoctlSetInt(int(f), unix.TCFLSH, unix.TCIOFLUSH)
}

func applyTermios(f fd, t *unix.Termios) error {
	return unix.IoctlSetTermios(int(f), unix.TCSETS, t)
}
