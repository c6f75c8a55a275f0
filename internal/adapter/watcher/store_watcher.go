package watcher

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/apex/log"
	"github.com/fsnotify/fsnotify"
)

const DefaultDebounce = 100 * time.Millisecond

// Warmer is refreshed whenever the watched store file changes.
type Warmer interface {
	Warm(ctx context.Context) error
}

// StoreWatcher refreshes a Warmer after writes to the store file, so the
// first request after a change does not pay for the reparse.
type StoreWatcher struct {
	path     string
	warmer   Warmer
	debounce time.Duration

	// onWarm is called after each refresh attempt; tests hook it.
	onWarm func(error)
}

func NewStoreWatcher(path string, warmer Warmer, debounce time.Duration) *StoreWatcher {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &StoreWatcher{
		path:     filepath.Clean(path),
		warmer:   warmer,
		debounce: debounce,
	}
}

// Run watches until ctx is done. The parent directory is watched rather
// than the file so replacements by rename are seen.
func (w *StoreWatcher) Run(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fsw.Close()

	if err := fsw.Add(filepath.Dir(w.path)); err != nil {
		return err
	}
	log.WithField("path", w.path).Info("watching item store")

	var (
		mu    sync.Mutex
		timer *time.Timer
	)
	defer func() {
		mu.Lock()
		if timer != nil {
			timer.Stop()
		}
		mu.Unlock()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}

			mu.Lock()
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(w.debounce, func() { w.warm(ctx) })
			mu.Unlock()

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			log.WithError(err).Warn("item store watcher error")
		}
	}
}

func (w *StoreWatcher) warm(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}

	err := w.warmer.Warm(ctx)
	if err != nil {
		log.WithError(err).WithField("path", w.path).Warn("stats refresh after store change failed")
	} else {
		log.WithField("path", w.path).Debug("stats refreshed after store change")
	}

	if w.onWarm != nil {
		w.onWarm(err)
	}
}
