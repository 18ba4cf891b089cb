//go:build linux

package serial

import (
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestPort_WriteLine(t *testing.T) {
	master, cfg := openPair(t)

	p, err := Open(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { p.Close() })

	line := "testline"
	newline := "\r\n"
	require.NoError(t, p.WriteLine(line, newline))

	buf := make([]byte, len(line)+len(newline))
	_, err = io.ReadFull(master, buf)
	require.NoError(t, err)
	require.Equal(t, line+newline, string(buf))
}

func TestPort_ReadLine(t *testing.T) {
	master, cfg := openPair(t)

	p, err := Open(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { p.Close() })

	_, err = master.Write([]byte("hel"))
	require.NoError(t, err)
	go func() {
		time.Sleep(20 * time.Millisecond)
		master.Write([]byte("lo\r\n"))
	}()

	line, err := p.ReadLine("")
	require.NoError(t, err)
	require.Equal(t, "hello", line)
}

func TestPort_ReadLineKeepsFollowingData(t *testing.T) {
	master, cfg := openPair(t)

	p, err := Open(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { p.Close() })

	_, err = master.Write([]byte("one\ntwo\nrest"))
	require.NoError(t, err)

	line, err := p.ReadLine("\n")
	require.NoError(t, err)
	require.Equal(t, "one", line)

	line, err = p.ReadLine("\n")
	require.NoError(t, err)
	require.Equal(t, "two", line)

	require.Equal(t, "rest", readN(t, p, 4))
}

func TestPort_ReadLineCancelled(t *testing.T) {
	_, cfg := openPair(t)

	p, err := Open(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { p.Close() })

	require.NoError(t, p.CancelRead())
	_, err = p.ReadLine("\n")
	require.ErrorIs(t, err, ErrInterrupted)
}

func TestPort_ReadLinesLoop(t *testing.T) {
	master, cfg := openPair(t)

	p, err := Open(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { p.Close() })

	lines := make(chan string, 4)
	errs := make(chan error, 1)
	done := make(chan struct{})
	go func() {
		defer close(done)
		p.ReadLinesLoop("\n",
			func(line string) { lines <- line },
			func(err error) { errs <- err },
		)
	}()

	_, err = master.Write([]byte("one\ntw"))
	require.NoError(t, err)
	_, err = master.Write([]byte("o\nthree\n"))
	require.NoError(t, err)

	for _, want := range []string{"one", "two", "three"} {
		select {
		case l := <-lines:
			require.Equal(t, want, l)
		case err := <-errs:
			t.Fatalf("unexpected error: %v", err)
		case <-time.After(200 * time.Millisecond):
			t.Fatalf("timeout waiting for line %q", want)
		}
	}

	// Cancelling ends the loop without reporting an error.
	require.NoError(t, p.CancelRead())
	select {
	case <-done:
	case <-time.After(200 * time.Millisecond):
		t.Fatal("timeout waiting for ReadLinesLoop to exit after CancelRead")
	}
	require.Empty(t, errs)
}

func TestPort_ReadLinesLoopReportsHangup(t *testing.T) {
	master, cfg := openPair(t)

	p, err := Open(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { p.Close() })

	errs := make(chan error, 1)
	go p.ReadLinesLoop("\n", func(string) {}, func(err error) { errs <- err })

	require.NoError(t, master.Close())

	select {
	case err := <-errs:
		require.ErrorIs(t, err, ErrIO)
	case <-time.After(200 * time.Millisecond):
		t.Fatal("timeout waiting for error after device disconnect")
	}
}
