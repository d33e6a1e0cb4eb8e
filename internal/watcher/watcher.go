// Package watcher provides file system watching for the wellspring data
// directory: settings changes trigger a config reload and database deletion
// triggers schema recreation.
package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
)

// Callbacks are the reactions to observed file events. Either may be nil.
type Callbacks struct {
	// OnChange fires after the target is written or created.
	OnChange func()
	// OnDelete fires after the target (or its parent directory) is removed
	// and stays gone past the debounce window.
	OnDelete func()
}

// Watcher monitors one file for writes and deletion. It watches the parent
// directory since fsnotify cannot watch a non-existent file.
type Watcher struct {
	targetPath string
	parentPath string
	callbacks  Callbacks
	watcher    *fsnotify.Watcher
	ctx        context.Context
	cancel     context.CancelFunc
	mu         sync.Mutex
	running    bool
	debounce   time.Duration
}

// New creates a Watcher for the given target path.
func New(targetPath string, callbacks Callbacks) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Watcher{
		targetPath: filepath.Clean(targetPath),
		parentPath: filepath.Dir(targetPath),
		callbacks:  callbacks,
		watcher:    fsw,
		ctx:        ctx,
		cancel:     cancel,
		debounce:   100 * time.Millisecond,
	}, nil
}

// Start begins watching.
func (w *Watcher) Start() error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	if err := w.addWatch(); err != nil {
		log.Warn().Err(err).Str("path", w.parentPath).Msg("Failed to add initial watch")
		// Continue anyway - we'll try to re-establish later
	}

	go w.watchLoop()
	return nil
}

// Stop stops the watcher.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.running {
		return nil
	}

	w.running = false
	w.cancel()
	return w.watcher.Close()
}

// addWatch adds the parent directory to the watch list.
func (w *Watcher) addWatch() error {
	if _, err := os.Stat(w.parentPath); os.IsNotExist(err) {
		return err
	}
	return w.watcher.Add(w.parentPath)
}

// watchLoop is the main event loop.
func (w *Watcher) watchLoop() {
	var (
		deleteTimer   *time.Timer
		changeTimer   *time.Timer
		pendingDelete bool
	)
	stopTimer := func(t *time.Timer) {
		if t != nil {
			t.Stop()
		}
	}

	for {
		select {
		case <-w.ctx.Done():
			stopTimer(deleteTimer)
			stopTimer(changeTimer)
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}

			eventPath := filepath.Clean(event.Name)
			onTarget := eventPath == w.targetPath
			onParent := eventPath == w.parentPath

			switch {
			case (onTarget || onParent) && event.Op&fsnotify.Remove != 0:
				log.Info().Str("path", eventPath).Msg("Watched path deleted")
				pendingDelete = true
				stopTimer(deleteTimer)
				deleteTimer = time.AfterFunc(w.debounce, w.handleDeletion)

			case onParent && event.Op&fsnotify.Create != 0:
				// Parent recreated: re-establish the watch.
				_ = w.addWatch()

			case onTarget && event.Op&fsnotify.Create != 0 && pendingDelete:
				// Target came back inside the debounce window; the deletion
				// callback would now act on a live file, so cancel it and
				// report a change instead.
				pendingDelete = false
				stopTimer(deleteTimer)
				stopTimer(changeTimer)
				changeTimer = time.AfterFunc(w.debounce, w.handleChange)

			case onTarget && event.Op&(fsnotify.Write|fsnotify.Create) != 0:
				// Editors emit bursts of writes; debounce to one reload.
				stopTimer(changeTimer)
				changeTimer = time.AfterFunc(w.debounce, w.handleChange)
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Error().Err(err).Msg("Watcher error")
		}
	}
}

func (w *Watcher) handleChange() {
	log.Info().Str("path", w.targetPath).Msg("Watched file changed")
	if w.callbacks.OnChange != nil {
		w.callbacks.OnChange()
	}
}

// handleDeletion calls OnDelete and attempts to re-establish the watch.
func (w *Watcher) handleDeletion() {
	log.Info().Str("path", w.targetPath).Msg("Triggering deletion callback")

	if w.callbacks.OnDelete != nil {
		w.callbacks.OnDelete()
	}

	// The parent may be recreated by the callback; re-watch after it settles.
	go func() {
		time.Sleep(500 * time.Millisecond)
		if err := w.addWatch(); err != nil {
			log.Warn().Err(err).Str("path", w.parentPath).Msg("Failed to re-establish watch after deletion")
		}
	}()
}
