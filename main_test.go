//go:build linux

package serial

import (
	"os"
	"testing"

	"github.com/creack/pty"
	"github.com/prometheus/procfs"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// openPair returns the master side of a fresh pty and a valid 9600 8N1
// config for its slave side.
func openPair(t *testing.T) (*os.File, Config) {
	t.Helper()
	master, slave, err := pty.Open()
	require.NoError(t, err)
	t.Cleanup(func() { master.Close(); slave.Close() })

	return master, Config{
		Device:   slave.Name(),
		BaudRate: 9600,
		CharSize: 8,
		Parity:   ParityNone,
	}
}

// openFDs counts the descriptors this process holds.
func openFDs(t *testing.T) int {
	t.Helper()
	self, err := procfs.Self()
	require.NoError(t, err)
	n, err := self.FileDescriptorsLen()
	require.NoError(t, err)
	return n
}
