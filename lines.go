//go:build linux

package serial

import (
	"errors"
	"strings"
)

// DefaultDelimiter is used by the line helpers when delim is empty.
const DefaultDelimiter = "\r\n"

// WriteAll calls Write until all of b has been accepted by the device.
func (p *Port) WriteAll(b []byte) error {
	for len(b) > 0 {
		n, err := p.Write(b)
		if err != nil {
			return err
		}
		b = b[n:]
	}
	return nil
}

// WriteLine writes line followed by newline to the serial port.
func (p *Port) WriteLine(line string, newline string) error {
	return p.WriteAll([]byte(line + newline))
}

// ReadLine reads until delim and returns the line without it. It reads one
// byte at a time so nothing after delim is taken from the device; the next
// ReadLine or Read sees it. A CancelRead aborts it with ErrInterrupted.
func (p *Port) ReadLine(delim string) (string, error) {
	if delim == "" {
		delim = DefaultDelimiter
	}
	var b [1]byte
	var line strings.Builder
	for {
		if _, err := p.Read(b[:]); err != nil {
			return "", err
		}
		line.WriteByte(b[0])
		if s := line.String(); strings.HasSuffix(s, delim) {
			return s[:len(s)-len(delim)], nil
		}
	}
}

// ReadLinesLoop continuously reads lines from the serial port and invokes
// onLine for each complete line. It returns quietly once CancelRead is
// called; any other error is passed to onError and the loop exits.
func (p *Port) ReadLinesLoop(delim string, onLine func(string), onError func(error)) {
	if delim == "" {
		delim = DefaultDelimiter
	}
	buf := make([]byte, 4096)
	line := ""
	for {
		n, err := p.Read(buf)
		if err != nil {
			if !errors.Is(err, ErrInterrupted) {
				onError(err)
			}
			return
		}
		line += string(buf[:n])
		for {
			idx := strings.Index(line, delim)
			if idx < 0 {
				break
			}
			onLine(line[:idx])
			line = line[idx+len(delim):]
		}
	}
}
