package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingWarmer struct {
	calls atomic.Int32
}

func (c *countingWarmer) Warm(ctx context.Context) error {
	c.calls.Add(1)
	return nil
}

func TestStoreWatcher_WarmsOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "items.json")
	require.NoError(t, os.WriteFile(path, []byte(`[]`), 0o644))

	warmer := &countingWarmer{}
	w := NewStoreWatcher(path, warmer, 50*time.Millisecond)
	warmed := make(chan error, 8)
	w.onWarm = func(err error) { warmed <- err }

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	// Give the watcher time to register the directory
	time.Sleep(50 * time.Millisecond)

	// A burst of writes collapses into one refresh
	for i := 0; i < 3; i++ {
		require.NoError(t, os.WriteFile(path, []byte(`[{"id": 1, "name": "a", "price": 1}]`), 0o644))
	}

	select {
	case err := <-warmed:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("store change did not trigger a refresh")
	}

	cancel()
	require.NoError(t, <-done)
	assert.Equal(t, int32(1), warmer.calls.Load())
}

func TestStoreWatcher_IgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "items.json")
	require.NoError(t, os.WriteFile(path, []byte(`[]`), 0o644))

	warmer := &countingWarmer{}
	w := NewStoreWatcher(path, warmer, 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.json"), []byte(`[]`), 0o644))
	time.Sleep(100 * time.Millisecond)

	cancel()
	require.NoError(t, <-done)
	assert.Equal(t, int32(0), warmer.calls.Load())
}

func TestStoreWatcher_MissingDirectory(t *testing.T) {
	w := NewStoreWatcher(filepath.Join(t.TempDir(), "nope", "items.json"), &countingWarmer{}, 0)

	err := w.Run(context.Background())
	assert.Error(t, err)
	assert.Equal(t, DefaultDebounce, w.debounce)
}
