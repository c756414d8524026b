// Package watch re-runs a build whenever a file one of its plan's steps
// reads from changes on disk. It debounces bursts of filesystem events
// (editors routinely emit several writes per save) into a single rebuild.
package watch

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Rebuilder performs one full solve+execute cycle and reports whether it
// succeeded. Run wires this to the caller's actual build logic so this
// package stays agnostic of solver/engine types.
type Rebuilder func(ctx context.Context) error

// Watcher re-triggers a Rebuilder on file changes under a fixed set of
// paths, coalescing rapid-fire events within Debounce into one rebuild.
type Watcher struct {
	Paths    []string
	Debounce time.Duration
	Rebuild  Rebuilder
	OnError  func(error)
}

const defaultDebounce = 150 * time.Millisecond

// Run watches w.Paths for changes until ctx is cancelled, invoking
// w.Rebuild once immediately and again after every debounced burst of
// filesystem events. It returns when ctx is done or the watcher itself
// fails to start.
func (w *Watcher) Run(ctx context.Context) error {
	debounce := w.Debounce
	if debounce <= 0 {
		debounce = defaultDebounce
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fsw.Close()

	watchedDirs := make(map[string]bool)
	for _, p := range w.Paths {
		dir := filepath.Dir(p)
		if watchedDirs[dir] {
			continue
		}
		if err := fsw.Add(dir); err != nil {
			w.reportError(err)
			continue
		}
		watchedDirs[dir] = true
	}

	w.rebuild(ctx)

	var timer *time.Timer
	var timerC <-chan time.Time
	resetDebounce := func() {
		if timer == nil {
			timer = time.NewTimer(debounce)
		} else {
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(debounce)
		}
		timerC = timer.C
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if !w.relevant(ev.Name) {
				continue
			}
			resetDebounce()
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.reportError(err)
		case <-timerC:
			timerC = nil
			w.rebuild(ctx)
		}
	}
}

func (w *Watcher) relevant(name string) bool {
	for _, p := range w.Paths {
		if filepath.Clean(name) == filepath.Clean(p) {
			return true
		}
	}
	return false
}

func (w *Watcher) rebuild(ctx context.Context) {
	if w.Rebuild == nil {
		return
	}
	if err := w.Rebuild(ctx); err != nil {
		w.reportError(err)
	}
}

func (w *Watcher) reportError(err error) {
	if w.OnError != nil {
		w.OnError(err)
	}
}
