package lifecycle

import (
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestAcquireWritesPidAndRejectsSecondHolder(t *testing.T) {
	pidFile := filepath.Join(t.TempDir(), "test.pid")

	w1 := NewWatcher(pidFile, zerolog.Nop())
	require.NoError(t, w1.Acquire())
	defer w1.Release()

	data, err := os.ReadFile(pidFile)
	require.NoError(t, err)
	require.Equal(t, strconv.Itoa(os.Getpid()), string(data))

	w2 := NewWatcher(pidFile, zerolog.Nop())
	require.Error(t, w2.Acquire(), "a second watcher must not acquire the same pidfile")
}

func TestReleaseAllowsReacquire(t *testing.T) {
	pidFile := filepath.Join(t.TempDir(), "test.pid")

	w1 := NewWatcher(pidFile, zerolog.Nop())
	require.NoError(t, w1.Acquire())
	w1.Release()

	w2 := NewWatcher(pidFile, zerolog.Nop())
	require.NoError(t, w2.Acquire())
	w2.Release()
}

func TestNewWatcherDefaultsPidFile(t *testing.T) {
	w := NewWatcher("", zerolog.Nop())
	require.NotEmpty(t, w.path)
}

