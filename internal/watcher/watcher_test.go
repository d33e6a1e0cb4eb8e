package watcher

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func waitSignal(t *testing.T, ch <-chan struct{}, what string) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(3 * time.Second):
		t.Fatalf("timed out waiting for %s", what)
	}
}

func TestWatcher_OnChange(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "settings.yaml")
	require.NoError(t, os.WriteFile(target, []byte("worker_port: 1\n"), 0600))

	changed := make(chan struct{}, 4)
	w, err := New(target, Callbacks{OnChange: func() { changed <- struct{}{} }})
	require.NoError(t, err)
	require.NoError(t, w.Start())
	defer w.Stop()

	require.NoError(t, os.WriteFile(target, []byte("worker_port: 2\n"), 0600))
	waitSignal(t, changed, "change callback")
}

func TestWatcher_OnDelete(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "wellspring.db")
	require.NoError(t, os.WriteFile(target, []byte("x"), 0600))

	deleted := make(chan struct{}, 4)
	w, err := New(target, Callbacks{OnDelete: func() { deleted <- struct{}{} }})
	require.NoError(t, err)
	require.NoError(t, w.Start())
	defer w.Stop()

	require.NoError(t, os.Remove(target))
	waitSignal(t, deleted, "delete callback")
}

func TestWatcher_StartStopIdempotent(t *testing.T) {
	dir := t.TempDir()
	w, err := New(filepath.Join(dir, "file"), Callbacks{})
	require.NoError(t, err)

	require.NoError(t, w.Start())
	assert.NoError(t, w.Start(), "second Start is a no-op")
	assert.NoError(t, w.Stop())
	assert.NoError(t, w.Stop(), "second Stop is a no-op")
}
