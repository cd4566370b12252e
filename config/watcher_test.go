package config

import (
	"bytes"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type safeBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *safeBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *safeBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestWatcherReloadsOnWrite(t *testing.T) {
	path := writeFile(t, "live.toml", "[sensor]\nrange_count = 10\n")
	changes := make(chan Config, 4)
	w, err := NewWatcher(path, func(c Config) { changes <- c }, WithDebounce(20*time.Millisecond))
	require.NoError(t, err)
	defer w.Close()

	require.NoError(t, os.WriteFile(path, []byte("[sensor]\nrange_count = 42\n"), 0o644))
	select {
	case c := <-changes:
		assert.Equal(t, uint32(42), c.Sensor.RangeCount)
	case <-time.After(5 * time.Second):
		t.Fatal("no reload after write")
	}
}

func TestWatcherKeepsPreviousOnInvalidFile(t *testing.T) {
	path := writeFile(t, "live.toml", "[sensor]\nrange_count = 10\n")
	logs := &safeBuffer{}
	changes := make(chan Config, 4)
	w, err := NewWatcher(path, func(c Config) { changes <- c },
		WithDebounce(20*time.Millisecond),
		WithLogger(slog.New(slog.NewTextHandler(logs, nil))),
	)
	require.NoError(t, err)
	defer w.Close()

	require.NoError(t, os.WriteFile(path, []byte("[gi]\nmode = \"bogus\"\n"), 0o644))
	require.Eventually(t, func() bool {
		return bytes.Contains([]byte(logs.String()), []byte("config reload rejected"))
	}, 5*time.Second, 10*time.Millisecond)
	assert.Empty(t, changes)

	require.NoError(t, os.WriteFile(path, []byte("[sensor]\nrange_count = 7\n"), 0o644))
	select {
	case c := <-changes:
		assert.Equal(t, uint32(7), c.Sensor.RangeCount)
	case <-time.After(5 * time.Second):
		t.Fatal("no reload after fixing the file")
	}
}

func TestWatcherIgnoresSiblingFiles(t *testing.T) {
	path := writeFile(t, "live.toml", "")
	changes := make(chan Config, 1)
	w, err := NewWatcher(path, func(c Config) { changes <- c }, WithDebounce(10*time.Millisecond))
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(path+".bak", []byte("x"), 0o644))
	time.Sleep(100 * time.Millisecond)
	assert.Empty(t, changes)

	require.NoError(t, w.Close())
	require.NoError(t, w.Close())
	assert.Equal(t, path, w.Path())
}

func TestNewWatcherRequiresCallback(t *testing.T) {
	assert.Panics(t, func() { _, _ = NewWatcher("x.toml", nil) })
}
