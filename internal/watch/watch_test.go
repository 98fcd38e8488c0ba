package watch

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GwydionBr/life-manager/internal/logging"
)

func TestWatcher_DebouncesWrites(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "lifemanager.sqlite")
	require.NoError(t, os.WriteFile(dbPath, nil, 0644))

	w, err := New(dbPath, 100*time.Millisecond, logging.Discard())
	require.NoError(t, err)
	t.Cleanup(func() { w.Close() })

	for i := 0; i < 5; i++ {
		require.NoError(t, os.WriteFile(dbPath, []byte{byte(i)}, 0644))
	}

	select {
	case <-w.Changes():
	case <-time.After(2 * time.Second):
		t.Fatal("expected a change signal")
	}

	select {
	case <-w.Changes():
		t.Fatal("burst should collapse into one signal")
	case <-time.After(200 * time.Millisecond):
	}
}

func TestWatcher_IgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "lifemanager.sqlite")

	w, err := New(dbPath, 20*time.Millisecond, logging.Discard())
	require.NoError(t, err)
	t.Cleanup(func() { w.Close() })

	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0644))

	select {
	case <-w.Changes():
		t.Fatal("unrelated file should not signal")
	case <-time.After(200 * time.Millisecond):
	}
}

func TestWatcher_CloseTwice(t *testing.T) {
	w, err := New(filepath.Join(t.TempDir(), "db", "lifemanager.sqlite"), DefaultDebounce, logging.Discard())
	require.NoError(t, err)
	assert.NoError(t, w.Close())
	assert.NoError(t, w.Close())
}
