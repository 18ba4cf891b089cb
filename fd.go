//go:build linux

package serial

import (
	"go.uber.org/multierr"
	"golang.org/x/sys/unix"
)

// fd is an owned file descriptor. Ownership ends with close.
type fd int

// close is not retried on EINTR: Linux releases the descriptor either way.
func (f fd) close() error {
	return unix.Close(int(f))
}

// acquired is a stack of release steps for resources taken while a Port is
// being opened. Unless commit is called, unwind releases everything in
// reverse order, so an early return from Open never leaks a descriptor or
// the device lock.
type acquired struct {
	steps     []func() error
	committed bool
}

func (a *acquired) push(release func() error) {
	a.steps = append(a.steps, release)
}

func (a *acquired) commit() {
	a.committed = true
}

func (a *acquired) unwind() error {
	if a.committed {
		return nil
	}
	var err error
	for i := len(a.steps) - 1; i >= 0; i-- {
		err = multierr.Append(err, a.steps[i]())
	}
	a.steps = nil
	return err
}
