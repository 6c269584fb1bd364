package watch

import (
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileWatcherCallsBackOnWrite(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "prompt.md")
	require.NoError(t, os.WriteFile(file, []byte("one"), 0600))

	var calls atomic.Int32
	fw := New("test", []string{file, file, ""}, 20*time.Millisecond, func() { calls.Add(1) }, nil)
	assert.Equal(t, []string{file}, fw.Files())

	require.NoError(t, fw.Start())
	assert.True(t, fw.IsRunning())
	assert.Error(t, fw.Start(), "second start fails")

	// ensure a different mtime on filesystems with coarse timestamps
	future := time.Now().Add(2 * time.Second)
	require.NoError(t, os.WriteFile(file, []byte("two"), 0600))
	require.NoError(t, os.Chtimes(file, future, future))

	assert.Eventually(t, func() bool { return calls.Load() >= 1 }, 3*time.Second, 20*time.Millisecond)

	require.NoError(t, fw.Stop())
	assert.False(t, fw.IsRunning())
	assert.NoError(t, fw.Stop(), "stop is idempotent")
}

func TestHasFileChanged(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "cert.pem")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0600))

	fw := New("test", []string{file}, 0, func() {}, nil)
	fw.updateModTimes()
	assert.False(t, fw.hasFileChanged(file))

	later := time.Now().Add(time.Minute)
	require.NoError(t, os.Chtimes(file, later, later))
	assert.True(t, fw.hasFileChanged(file))
	assert.False(t, fw.hasFileChanged(file))

	require.NoError(t, os.Remove(file))
	assert.True(t, fw.hasFileChanged(file), "removal counts as a change")
	assert.False(t, fw.hasFileChanged(file))
}
