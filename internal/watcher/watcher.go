package watcher

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/gur-shatz/go-cgi/internal/log"
)

// refreshInterval forces a change notification even when no events arrive,
// covering filesystems where fsnotify drops events.
const refreshInterval = 60 * time.Second

// Watcher reports changes anywhere under a directory tree. Bursts of events
// are collapsed into one callback after the debounce window.
type Watcher struct {
	rootDir  string
	debounce time.Duration
	onChange func()
	log      *log.Logger

	fsw     *fsnotify.Watcher
	watched map[string]bool
	ready   chan struct{}
}

// New creates a Watcher. onChange runs on the watcher goroutine.
func New(rootDir string, debounce time.Duration, onChange func(), logger *log.Logger) *Watcher {
	return &Watcher{
		rootDir:  rootDir,
		debounce: debounce,
		onChange: onChange,
		log:      logger,
		watched:  make(map[string]bool),
		ready:    make(chan struct{}),
	}
}

// Ready is closed once the initial directories are being watched.
func (this *Watcher) Ready() <-chan struct{} {
	return this.ready
}

// Run watches until the context is cancelled.
func (this *Watcher) Run(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("fsnotify init: %w", err)
	}
	this.fsw = fsw
	defer this.fsw.Close()

	if err := this.watchTree(this.rootDir); err != nil {
		return err
	}
	this.log.Verbose("Watching %d directories under %s", len(this.watched), this.rootDir)
	close(this.ready)

	refreshTicker := time.NewTicker(refreshInterval)
	defer refreshTicker.Stop()

	debounceTimer := time.NewTimer(this.debounce)
	debounceTimer.Stop()
	defer debounceTimer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-this.fsw.Events:
			if !ok {
				return nil
			}
			if event.Op == fsnotify.Chmod {
				continue
			}
			if event.Op&fsnotify.Create != 0 {
				// New subdirectories need their own watch. Errors mean the
				// entry is already gone or is not a directory.
				this.watchTree(event.Name)
			}
			if event.Op&(fsnotify.Remove|fsnotify.Rename) != 0 {
				delete(this.watched, event.Name)
			}
			debounceTimer.Reset(this.debounce)

		case err, ok := <-this.fsw.Errors:
			if !ok {
				return nil
			}
			this.log.Warn("watch error: %v", err)
			debounceTimer.Reset(this.debounce)

		case <-debounceTimer.C:
			this.onChange()

		case <-refreshTicker.C:
			this.onChange()
		}
	}
}

func (this *Watcher) watchTree(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() || this.watched[path] {
			return nil
		}
		if err := this.fsw.Add(path); err != nil {
			return fmt.Errorf("watch %s: %w", path, err)
		}
		this.watched[path] = true
		return nil
	})
}
