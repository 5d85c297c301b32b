package watcher

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func receiveEvent(t *testing.T, ch <-chan FileEvent) FileEvent {
	t.Helper()
	select {
	case ev := <-ch:
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for event")
		return FileEvent{}
	}
}

func TestPollingWatcher_CreateModifyDelete(t *testing.T) {
	// Given: a missing file under a polling watcher
	path := filepath.Join(t.TempDir(), "scenes.jsonl")
	p := NewPollingWatcher([]string{path}, 20*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = p.Start(ctx) }()
	time.Sleep(50 * time.Millisecond)

	// When/Then: each change is reported once
	require.NoError(t, os.WriteFile(path, []byte("a"), 0o644))
	assert.Equal(t, OpCreate, receiveEvent(t, p.Events()).Operation)

	require.NoError(t, os.WriteFile(path, []byte("abc"), 0o644))
	assert.Equal(t, OpModify, receiveEvent(t, p.Events()).Operation)

	require.NoError(t, os.Remove(path))
	ev := receiveEvent(t, p.Events())
	assert.Equal(t, OpDelete, ev.Operation)
	assert.Equal(t, path, ev.Path)
}

func TestPollingWatcher_StopIsIdempotent(t *testing.T) {
	p := NewPollingWatcher([]string{"/nonexistent"}, time.Second)

	require.NoError(t, p.Stop())
	require.NoError(t, p.Stop())

	_, ok := <-p.Events()
	assert.False(t, ok)
}
