// Package serial provides a Linux serial port whose blocking reads can be
// aborted from another goroutine.
//
// A Port owns three descriptors: the device, exclusively locked with flock,
// and the two ends of a pipe that carries nothing but cancellation tokens.
// Read waits in poll(2) on both the device and the pipe, so CancelRead can
// wake it by writing one byte to the pipe (the self-pipe trick).
//
// Features:
//   - Raw syscall-based serial I/O on Linux, no buffering in the port itself
//   - Framing from the classical POSIX table: 50 to 230400 baud, 5-8 data
//     bits, one or two stop bits, none/odd/even parity
//   - Exclusive advisory lock: a second Open of the same device fails with ErrBusy
//   - Read cancellation that is safe to call from any goroutine
//   - Classified errors (ErrAccessDenied, ErrNoSuchPort, ErrBusy,
//     ErrInvalidSettings, ErrInterrupted, ErrIO) usable with errors.Is
//   - PTY-based tests for reliability
//
// Each CancelRead aborts exactly one Read. If no Read is blocked, the token
// stays in the pipe and the next Read returns ErrInterrupted immediately.
//
// This package does **not** support Windows.
//
// Example usage:
//
//	port, err := serial.Open(serial.Config{
//	    Device:   "/dev/ttyUSB0",
//	    BaudRate: 9600,
//	    CharSize: 8,
//	    Parity:   serial.ParityNone,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	done := make(chan struct{})
//	go func() {
//	    defer close(done)
//	    buf := make([]byte, 256)
//	    for {
//	        n, err := port.Read(buf)
//	        if errors.Is(err, serial.ErrInterrupted) {
//	            return
//	        }
//	        if err != nil {
//	            log.Println("read error:", err)
//	            return
//	        }
//	        fmt.Printf("received %q\n", buf[:n])
//	    }
//	}()
//
//	_ = port.WriteAll([]byte("PING"))
//
//	// ... to stop reading, cancel from another goroutine, then close
//	_ = port.CancelRead()
//	<-done
//	_ = port.Close()
package serial
