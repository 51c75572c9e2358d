package sync

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rjeczalik/notify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWatcher(t *testing.T) {
	w := NewWatcher("/test/path")

	assert.Equal(t, "/test/path", w.watchDir)
	assert.Nil(t, w.events)
	assert.Nil(t, w.rawEvents)
	assert.NotNil(t, w.done)
	assert.Equal(t, defaultDebounceTimeout, w.debounceTimeout)
}

func TestWatcherWriteEvent(t *testing.T) {
	tempDir := t.TempDir()

	// macos is funny =)
	// tmpdir lives in /var/folders but it's actually symlink to /private/var/folders
	tempDir, err := filepath.EvalSymlinks(tempDir)
	require.NoError(t, err, "failed to evaluate symlinks")

	w := NewWatcher(tempDir)
	err = w.Start(t.Context())
	require.NoError(t, err, "failed to start watcher")
	defer w.Stop()

	testFile := filepath.Join(tempDir, "test.txt")
	err = os.WriteFile(testFile, []byte("hello world"), 0644)
	require.NoError(t, err, "failed to write test.txt")

	select {
	case event := <-w.Events():
		assert.Equal(t, testFile, event.Path())
	case <-time.After(2 * time.Second):
		assert.FailNow(t, "timeout waiting for write event")
	}
}

func TestWatcherRemoveEvent(t *testing.T) {
	tempDir := t.TempDir()

	tempDir, err := filepath.EvalSymlinks(tempDir)
	require.NoError(t, err, "failed to evaluate symlinks")

	testFile := filepath.Join(tempDir, "doomed.txt")
	require.NoError(t, os.WriteFile(testFile, []byte("bye"), 0644))

	w := NewWatcher(tempDir)
	err = w.Start(t.Context())
	require.NoError(t, err, "failed to start watcher")
	defer w.Stop()

	require.NoError(t, os.Remove(testFile))

	select {
	case event := <-w.Events():
		assert.Equal(t, testFile, event.Path())
		assert.Equal(t, notify.Remove, event.Event())
	case <-time.After(2 * time.Second):
		assert.FailNow(t, "timeout waiting for remove event")
	}
}

func TestWatcherDebounceCollapsesBursts(t *testing.T) {
	tempDir := t.TempDir()

	tempDir, err := filepath.EvalSymlinks(tempDir)
	require.NoError(t, err, "failed to evaluate symlinks")

	w := NewWatcher(tempDir)
	w.SetDebounceTimeout(200 * time.Millisecond)
	err = w.Start(t.Context())
	require.NoError(t, err, "failed to start watcher")
	defer w.Stop()

	// A burst of writes to one path within the debounce window must
	// surface as a single event.
	testFile := filepath.Join(tempDir, "burst.txt")
	for i := 0; i < 5; i++ {
		require.NoError(t, os.WriteFile(testFile, []byte{byte(i)}, 0644))
		time.Sleep(10 * time.Millisecond)
	}

	select {
	case event := <-w.Events():
		assert.Equal(t, testFile, event.Path())
	case <-time.After(2 * time.Second):
		assert.FailNow(t, "timeout waiting for debounced event")
	}

	select {
	case event := <-w.Events():
		assert.Failf(t, "unexpected extra event", "event %v for %s", event.Event(), event.Path())
	case <-time.After(500 * time.Millisecond):
		// Collapsed as expected.
	}
}

func TestWatcherStopDuringDebounce(t *testing.T) {
	tempDir := t.TempDir()

	tempDir, err := filepath.EvalSymlinks(tempDir)
	require.NoError(t, err, "failed to evaluate symlinks")

	w := NewWatcher(tempDir)
	w.SetDebounceTimeout(300 * time.Millisecond)
	require.NoError(t, w.Start(t.Context()))

	// Queue a pending event, then stop while its debounce timer is
	// still armed. The late timer must not send on the closed channel.
	testFile := filepath.Join(tempDir, "inflight.txt")
	require.NoError(t, os.WriteFile(testFile, []byte("x"), 0644))
	time.Sleep(50 * time.Millisecond)

	w.Stop()

	// Outlive the debounce window so a buggy flush would have fired.
	time.Sleep(400 * time.Millisecond)

	_, ok := <-w.Events()
	assert.False(t, ok, "events channel should be closed with nothing queued")
}

func TestWatcherStopClosesEvents(t *testing.T) {
	tempDir := t.TempDir()

	w := NewWatcher(tempDir)
	require.NoError(t, w.Start(t.Context()))

	w.Stop()

	_, ok := <-w.Events()
	assert.False(t, ok, "events channel should be closed after Stop")
}
