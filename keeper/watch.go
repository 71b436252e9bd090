package keeper

import (
	"errors"
	"os"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

const settlePoll = 50 * time.Millisecond

type watcher struct {
	fsw    *fsnotify.Watcher
	settle time.Duration
	done   chan struct{}
	once   sync.Once

	mu        sync.Mutex
	watched   map[string]bool
	suspended bool
}

func newWatcher(settle time.Duration) (*watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if settle <= 0 {
		settle = time.Second
	}
	return &watcher{
		fsw:     fsw,
		settle:  settle,
		done:    make(chan struct{}),
		watched: make(map[string]bool),
	}, nil
}

func (w *watcher) add(path string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.watched[path] = true
	return w.fsw.Add(path)
}

func (w *watcher) remove(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.watched[path] {
		return
	}
	delete(w.watched, path)
	// watch is gone already when file was deleted or replaced
	_ = w.fsw.Remove(path)
}

func (w *watcher) active(path string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return !w.suspended && w.watched[path]
}

// Watch starts tracking on disk modifications of resource.
func (k *Keeper) Watch(r *Resource) {
	if k.watcher == nil {
		return
	}
	if err := k.watcher.add(r.FullPath()); err != nil {
		k.log.Warn("Unable to watch resource", zap.String("book_path", r.BookPath()), zap.Error(err))
	}
}

// Unwatch stops tracking resource.
func (k *Keeper) Unwatch(r *Resource) {
	if k.watcher == nil {
		return
	}
	k.watcher.remove(r.FullPath())
}

func (k *Keeper) rewatch(r *Resource, oldFullPath string) {
	if k.watcher == nil || !r.Kind().ExternallyEditable() {
		return
	}
	k.watcher.remove(oldFullPath)
	k.Watch(r)
}

// SuspendWatching ignores file events until ResumeWatching is called. Used
// while keeper itself writes resources.
func (k *Keeper) SuspendWatching() {
	if k.watcher == nil {
		return
	}
	k.watcher.mu.Lock()
	defer k.watcher.mu.Unlock()
	k.watcher.suspended = true
}

// ResumeWatching reverts SuspendWatching.
func (k *Keeper) ResumeWatching() {
	if k.watcher == nil {
		return
	}
	k.watcher.mu.Lock()
	defer k.watcher.mu.Unlock()
	k.watcher.suspended = false
}

// Close stops watcher. Keeper could still be used afterwards, but
// resources are no longer tracked.
func (k *Keeper) Close() error {
	if k.watcher == nil {
		return nil
	}
	var err error
	k.watcher.once.Do(func() {
		err = k.watcher.fsw.Close()
		<-k.watcher.done
	})
	return err
}

func (k *Keeper) watchLoop() {
	w := k.watcher
	defer close(w.done)
	for {
		select {
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			k.log.Debug("File event", zap.Stringer("event", ev))
			k.changedOnDisk(w, ev.Name)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			k.log.Warn("File watcher error", zap.Error(err))
		}
	}
}

// changedOnDisk handles modification of watched file. Editors often save
// by replacing file so we wait for it to reappear and watch it again.
func (k *Keeper) changedOnDisk(w *watcher, fullPath string) {
	if !w.active(fullPath) {
		return
	}
	if !waitForFile(fullPath, w.settle) {
		k.log.Debug("Watched file disappeared", zap.String("file", fullPath))
		return
	}
	if err := w.add(fullPath); err != nil {
		k.log.Warn("Unable to restore watch", zap.String("file", fullPath), zap.Error(err))
	}

	r := k.FindByFullPath(fullPath)
	if r == nil {
		return
	}
	k.mu.RLock()
	handler := k.onChange
	k.mu.RUnlock()
	if handler != nil {
		handler(r)
	}
}

func waitForFile(path string, settle time.Duration) bool {
	deadline := time.Now().Add(settle)
	for {
		_, err := os.Stat(path)
		if err == nil {
			return true
		}
		if !errors.Is(err, os.ErrNotExist) || time.Now().After(deadline) {
			return false
		}
		time.Sleep(settlePoll)
	}
}
