package app

import (
	"os"
	"path/filepath"
	"sync"
	"time"
)

// FileWatcher polls a file's modification time and calls a callback each
// time it changes.
type FileWatcher struct {
	path          string
	checkInterval time.Duration

	mu       sync.Mutex
	modTime  time.Time
	stopCh   chan struct{}
	onChange func()
}

// NewFileWatcher watches path. The file must exist.
func NewFileWatcher(path string, checkInterval time.Duration) (*FileWatcher, error) {
	// Editors often replace the file through a symlink.
	if realPath, err := filepath.EvalSymlinks(path); err == nil {
		path = realPath
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}

	return &FileWatcher{
		path:          path,
		checkInterval: checkInterval,
		modTime:       info.ModTime(),
	}, nil
}

// OnChange sets the callback. It runs on the watcher goroutine.
func (w *FileWatcher) OnChange(callback func()) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onChange = callback
}

// Start begins polling in a background goroutine.
func (w *FileWatcher) Start() {
	w.mu.Lock()
	w.stopCh = make(chan struct{})
	stop := w.stopCh
	w.mu.Unlock()
	go w.watchLoop(stop)
}

// Stop stops polling.
func (w *FileWatcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopCh != nil {
		close(w.stopCh)
		w.stopCh = nil
	}
}

func (w *FileWatcher) watchLoop(stop <-chan struct{}) {
	ticker := time.NewTicker(w.checkInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if w.checkForUpdate() {
				w.mu.Lock()
				callback := w.onChange
				w.mu.Unlock()
				if callback != nil {
					callback()
				}
			}
		}
	}
}

// checkForUpdate reports a change and moves the baseline forward.
func (w *FileWatcher) checkForUpdate() bool {
	info, err := os.Stat(w.path)
	if err != nil {
		return false
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if !info.ModTime().After(w.modTime) {
		return false
	}
	w.modTime = info.ModTime()
	return true
}

// Path returns the watched file.
func (w *FileWatcher) Path() string {
	return w.path
}

// ModTime returns the last modification time seen.
func (w *FileWatcher) ModTime() time.Time {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.modTime
}
