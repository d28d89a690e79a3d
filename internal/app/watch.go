package app

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

const watchDebounce = 500 * time.Millisecond

// Watch reconciles the configured roots whenever files under them change.
// Bursts of events are debounced per root. It blocks until ctx is done.
func (a *XDTApp) Watch(ctx context.Context) error {
	roots := a.cfg.Index.Roots
	if len(roots) == 0 {
		return fmt.Errorf("no roots configured")
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer watcher.Close()

	for _, root := range roots {
		if err := watchTree(watcher, root); err != nil {
			return err
		}
		a.reconcileRoot(ctx, root)
	}
	a.logger.Info("watching roots", "roots", strings.Join(roots, ","))

	deb := newDebouncer(watchDebounce)
	defer deb.stop()

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			root := owningRoot(roots, event.Name)
			if root == "" {
				continue
			}
			// New subdirectories need their own watch.
			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := watchTree(watcher, event.Name); err != nil {
						a.logger.Warn("cannot watch new directory", "path", event.Name, "error", err)
					}
				}
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) &&
				!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
				continue
			}

			deb.trigger(root, func() { a.reconcileRoot(ctx, root) })

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			a.logger.Warn("watcher error", "error", err)

		case <-ctx.Done():
			return nil
		}
	}
}

// debouncer runs one callback per key after events for that key have
// been quiet for delay.
type debouncer struct {
	delay    time.Duration
	mu       sync.Mutex
	timers   map[string]*time.Timer
	inflight sync.WaitGroup
	stopped  bool
}

func newDebouncer(delay time.Duration) *debouncer {
	return &debouncer{delay: delay, timers: make(map[string]*time.Timer)}
}

// trigger (re)schedules fn for key, replacing a pending callback.
func (d *debouncer) trigger(key string, fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}
	if t, ok := d.timers[key]; ok && t.Stop() {
		d.inflight.Done()
	}
	d.inflight.Add(1)
	d.timers[key] = time.AfterFunc(d.delay, func() {
		defer d.inflight.Done()
		fn()
	})
}

// stop cancels pending callbacks and waits for running ones to return.
func (d *debouncer) stop() {
	d.mu.Lock()
	d.stopped = true
	for key, t := range d.timers {
		if t.Stop() {
			d.inflight.Done()
		}
		delete(d.timers, key)
	}
	d.mu.Unlock()
	d.inflight.Wait()
}

func (a *XDTApp) reconcileRoot(ctx context.Context, root string) {
	if ctx.Err() != nil {
		return
	}
	res, err := a.Reconcile(ctx, root)
	if err != nil {
		a.logger.Error("reconcile failed", "root", root, "error", err)
		return
	}
	if res.Added+res.Removed+res.Skipped+res.Failed > 0 {
		a.logger.Info("changes picked up", "root", root, "added", res.Added, "removed", res.Removed, "skipped", res.Skipped, "failed", res.Failed)
	}
}

// watchTree adds dir and every non-hidden directory below it.
func watchTree(w *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if p != dir && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		if err := w.Add(p); err != nil {
			return fmt.Errorf("watching %s: %w", p, err)
		}
		return nil
	})
}

// owningRoot returns the deepest root containing name.
func owningRoot(roots []string, name string) string {
	best := ""
	for _, root := range roots {
		root = filepath.Clean(root)
		if name != root && !strings.HasPrefix(name, root+string(filepath.Separator)) {
			continue
		}
		if len(root) > len(best) {
			best = root
		}
	}
	return best
}
