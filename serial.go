//go:build linux

package serial

import (
	"errors"

	"go.uber.org/atomic"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sys/unix"
)

// cancelToken is the byte CancelRead puts into the self-pipe.
const cancelToken = 0xff

var errNoData = errors.New("no data available after poll")

// Port is an open serial device plus a self-pipe used to abort a blocked Read
// from another goroutine.
//
// Read and CancelRead may run concurrently. Open, Write, Close and the pipe
// write in CancelRead must be serialized by the caller. Close must not race a
// blocked Read: cancel it and wait for it to return first.
type Port struct {
	dev   fd // device, exclusively flock'ed
	pipeR fd // self-pipe read end
	pipeW fd // self-pipe write end

	cfg    Config
	log    *zap.Logger
	closed atomic.Bool
	stats  counters
}

// Stats is a snapshot of a Port's activity counters.
type Stats struct {
	Reads        uint64
	BytesRead    uint64
	Writes       uint64
	BytesWritten uint64
	Interrupts   uint64
	Cancels      uint64
}

type counters struct {
	reads        atomic.Uint64
	bytesRead    atomic.Uint64
	writes       atomic.Uint64
	bytesWritten atomic.Uint64
	interrupts   atomic.Uint64
	cancels      atomic.Uint64
}

// Open validates cfg, opens and exclusively locks the device, puts the line
// into raw mode with the requested framing, and creates the cancellation
// pipe. Either every resource is acquired or none is held on return.
func Open(cfg Config) (*Port, error) {
	log := cfg.logger().With(zap.String("device", cfg.Device))
	if err := cfg.Validate(); err != nil {
		log.Debug("invalid serial settings", zap.Error(err))
		return nil, err
	}

	var res acquired
	defer func() {
		if err := res.unwind(); err != nil {
			log.Debug("error releasing partially opened port", zap.Error(err))
		}
	}()

	n, err := openDevice(cfg.Device)
	if err != nil {
		return nil, failure(log, "open", cfg.Device, openKind(err), err, "error obtaining file descriptor for port")
	}
	dev := fd(n)
	res.push(dev.close)

	if err := unix.Flock(int(dev), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		return nil, failure(log, "open", cfg.Device, lockKind(err), err, "error acquiring lock on port")
	}
	res.push(func() error { return unix.Flock(int(dev), unix.LOCK_UN) })

	if err := flush(dev); err != nil {
		return nil, failure(log, "open", cfg.Device, ErrIO, err, "error flushing port")
	}
	if err := applyTermios(dev, rawTermios(cfg)); err != nil {
		return nil, failure(log, "open", cfg.Device, ErrIO, err, "error applying serial settings")
	}

	var pfd [2]int
	if err := unix.Pipe2(pfd[:], unix.O_CLOEXEC); err != nil {
		return nil, failure(log, "open", cfg.Device, ErrIO, err, "error opening pipe")
	}
	pipeR, pipeW := fd(pfd[0]), fd(pfd[1])
	res.push(pipeR.close)
	res.push(pipeW.close)

	for _, f := range []fd{pipeR, pipeW} {
		if err := unix.SetNonblock(int(f), true); err != nil {
			return nil, failure(log, "open", cfg.Device, ErrIO, err, "error setting pipe to non-blocking")
		}
	}

	res.commit()
	log.Debug("port opened",
		zap.Int("baud", cfg.BaudRate),
		zap.Int("char_size", cfg.CharSize),
		zap.Bool("two_stop_bits", cfg.TwoStopBits),
		zap.Stringer("parity", cfg.Parity))
	return &Port{dev: dev, pipeR: pipeR, pipeW: pipeW, cfg: cfg, log: log}, nil
}

func openDevice(path string) (int, error) {
	for {
		n, err := unix.Open(path, unix.O_RDWR|unix.O_NOCTTY|unix.O_NONBLOCK|unix.O_CLOEXEC, 0)
		if err != unix.EINTR {
			return n, err
		}
	}
}

// Read blocks until the device has data or CancelRead is called, with no
// timeout. Data is read with a single read(2) of at most len(b) bytes; short
// reads are returned as they are. A pending cancellation wins over pending
// data and returns ErrInterrupted without touching the device.
//
// A zero-byte read after the device reported readiness is treated as ErrIO,
// since on a tty it means the other side went away.
func (p *Port) Read(b []byte) (int, error) {
	if p.closed.Load() {
		return 0, p.closedErr("read")
	}

	fds := []unix.PollFd{
		{Fd: int32(p.dev), Events: unix.POLLIN},
		{Fd: int32(p.pipeR), Events: unix.POLLIN},
	}
	for {
		_, err := unix.Poll(fds, -1)
		if err == nil {
			break
		}
		// EINTR here comes from runtime preemption signals, not from the caller.
		if err != unix.EINTR {
			return 0, p.fail("read", ErrIO, err, "error polling port and pipe")
		}
	}

	switch {
	case fds[1].Revents&unix.POLLIN != 0:
		p.consumeToken()
		p.stats.interrupts.Inc()
		return 0, &PortError{Op: "read", Path: p.cfg.Device, Kind: ErrInterrupted}
	case fds[1].Revents != 0:
		return 0, p.fail("read", ErrIO, errors.New("cancellation pipe failed"), "poll reported error on pipe")
	case fds[0].Revents&(unix.POLLIN|unix.POLLHUP|unix.POLLERR) != 0:
		n, err := readOnce(p.dev, b)
		if n <= 0 {
			if err == nil {
				err = errNoData
			}
			return 0, p.fail("read", ErrIO, err, "error reading port after poll")
		}
		p.stats.reads.Inc()
		p.stats.bytesRead.Add(uint64(n))
		return n, nil
	default:
		return 0, p.fail("read", ErrIO, errors.New("no descriptor ready"), "poll returned unknown read sets")
	}
}

func readOnce(f fd, b []byte) (int, error) {
	for {
		n, err := unix.Read(int(f), b)
		if err != unix.EINTR {
			return n, err
		}
	}
}

// consumeToken takes one cancellation token out of the pipe so that each
// CancelRead aborts exactly one Read.
func (p *Port) consumeToken() {
	var b [1]byte
	if _, err := readOnce(p.pipeR, b[:]); err != nil {
		p.log.Debug("error draining cancellation pipe", zap.Error(err))
	}
}

// CancelRead makes the Read currently blocked on p, or the next one if none
// is blocked, return ErrInterrupted. Each call aborts exactly one Read, so
// it acts as a persistent flag rather than a transient wakeup.
func (p *Port) CancelRead() error {
	if p.closed.Load() {
		return p.closedErr("cancel read")
	}
	token := [1]byte{cancelToken}
	for {
		_, err := unix.Write(int(p.pipeW), token[:])
		if err == nil {
			break
		}
		if err != unix.EINTR {
			return p.fail("cancel read", ErrIO, err, "error writing to pipe during read cancel")
		}
	}
	p.stats.cancels.Inc()
	return nil
}

// Write performs one write(2) of b and returns how much of it the device
// accepted. Short writes are not retried; see WriteAll. If the output queue
// is full it waits until the device can take data.
func (p *Port) Write(b []byte) (int, error) {
	if p.closed.Load() {
		return 0, p.closedErr("write")
	}
	if len(b) == 0 {
		return 0, nil
	}
	for {
		n, err := unix.Write(int(p.dev), b)
		switch err {
		case nil:
			p.stats.writes.Inc()
			p.stats.bytesWritten.Add(uint64(n))
			return n, nil
		case unix.EINTR:
		case unix.EAGAIN:
			if err := p.waitWritable(); err != nil {
				return 0, p.fail("write", ErrIO, err, "error waiting for port to accept data")
			}
		default:
			return 0, p.fail("write", ErrIO, err, "error writing to port")
		}
	}
}

func (p *Port) waitWritable() error {
	fds := []unix.PollFd{{Fd: int32(p.dev), Events: unix.POLLOUT}}
	for {
		_, err := unix.Poll(fds, -1)
		if err != unix.EINTR {
			return err
		}
	}
}

// Close releases the pipe write end, the pipe read end, the device lock and
// the device, in that order. Every step is attempted even if an earlier one
// fails. The port is unusable afterwards whatever the result; calling Close
// again returns an error and touches nothing.
func (p *Port) Close() error {
	if !p.closed.CompareAndSwap(false, true) {
		return p.closedErr("close")
	}
	err := multierr.Combine(
		p.pipeW.close(),
		p.pipeR.close(),
		unix.Flock(int(p.dev), unix.LOCK_UN),
		p.dev.close(),
	)
	if err != nil {
		return p.fail("close", ErrIO, err, "error releasing port")
	}
	p.log.Debug("port closed")
	return nil
}

// Config returns the settings the port was opened with.
func (p *Port) Config() Config {
	return p.cfg
}

// Stats returns a snapshot of the port's counters.
func (p *Port) Stats() Stats {
	return Stats{
		Reads:        p.stats.reads.Load(),
		BytesRead:    p.stats.bytesRead.Load(),
		Writes:       p.stats.writes.Load(),
		BytesWritten: p.stats.bytesWritten.Load(),
		Interrupts:   p.stats.interrupts.Load(),
		Cancels:      p.stats.cancels.Load(),
	}
}

func (p *Port) closedErr(op string) error {
	return &PortError{Op: op, Path: p.cfg.Device, Kind: ErrIO, Err: ErrClosed}
}

func (p *Port) fail(op string, kind Kind, err error, msg string) error {
	return failure(p.log, op, p.cfg.Device, kind, err, msg)
}

func failure(log *zap.Logger, op, path string, kind Kind, err error, msg string) error {
	log.Debug(msg, zap.String("op", op), zap.Error(err))
	return &PortError{Op: op, Path: path, Kind: kind, Err: err}
}
