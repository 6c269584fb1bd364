// Package watch triggers a callback when any of a set of files changes.
package watch

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"resumepilot/internal/errors"

	"github.com/fsnotify/fsnotify"
)

// FileWatcher watches files for changes and runs a debounced callback
type FileWatcher struct {
	mu sync.Mutex

	name  string
	files []string

	lastModTime map[string]time.Time

	fsWatcher     *fsnotify.Watcher
	debounceDelay time.Duration
	debounceTimer *time.Timer

	stopChan   chan struct{}
	reloadChan chan struct{}
	done       chan struct{}

	callback func()
	logger   *errors.Logger

	running bool
}

// New creates a watcher named for logging. A zero debounce uses one second.
func New(name string, files []string, debounceDelay time.Duration, callback func(), logger *errors.Logger) *FileWatcher {
	if debounceDelay == 0 {
		debounceDelay = time.Second
	}
	if logger == nil {
		logger = errors.NewNopLogger()
	}

	var watched []string
	for _, f := range files {
		if f != "" && !slices.Contains(watched, f) {
			watched = append(watched, f)
		}
	}

	return &FileWatcher{
		name:          name,
		files:         watched,
		lastModTime:   make(map[string]time.Time),
		debounceDelay: debounceDelay,
		stopChan:      make(chan struct{}),
		reloadChan:    make(chan struct{}, 1),
		done:          make(chan struct{}),
		callback:      callback,
		logger:        logger,
	}
}

// Start begins watching
func (fw *FileWatcher) Start() error {
	fw.mu.Lock()
	defer fw.mu.Unlock()

	if fw.running {
		return fmt.Errorf("%s watcher is already running", fw.name)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	fw.fsWatcher = watcher
	fw.updateModTimes()

	for _, file := range fw.files {
		if err := fw.addFile(file); err != nil {
			fw.logger.Warn("Failed to watch file", "watcher", fw.name, "file", file, "error", err)
		}
	}

	fw.running = true
	go fw.watchLoop()

	fw.logger.Info("File watcher started",
		"watcher", fw.name,
		"files", fw.files,
		"debounce_delay", fw.debounceDelay.String())
	return nil
}

// Stop stops the watcher and waits for its loop to exit
func (fw *FileWatcher) Stop() error {
	fw.mu.Lock()
	if !fw.running {
		fw.mu.Unlock()
		return nil
	}
	close(fw.stopChan)
	if fw.debounceTimer != nil {
		fw.debounceTimer.Stop()
	}
	fw.running = false
	err := fw.fsWatcher.Close()
	fw.mu.Unlock()

	<-fw.done
	fw.logger.Info("File watcher stopped", "watcher", fw.name)
	return err
}

// IsRunning returns whether the watcher is currently running
func (fw *FileWatcher) IsRunning() bool {
	fw.mu.Lock()
	defer fw.mu.Unlock()
	return fw.running
}

// Files returns the watched files
func (fw *FileWatcher) Files() []string {
	return slices.Clone(fw.files)
}

// addFile watches a file and its directory; the directory catches atomic
// writes done by rename.
func (fw *FileWatcher) addFile(file string) error {
	if err := fw.fsWatcher.Add(file); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to watch file %s: %w", file, err)
	}
	dir := filepath.Dir(file)
	if err := fw.fsWatcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch directory %s: %w", dir, err)
	}
	return nil
}

func (fw *FileWatcher) updateModTimes() {
	for _, file := range fw.files {
		if stat, err := os.Stat(file); err == nil {
			fw.lastModTime[file] = stat.ModTime()
		}
	}
}

// hasFileChanged checks if a file has been modified since last check
func (fw *FileWatcher) hasFileChanged(file string) bool {
	stat, err := os.Stat(file)
	if err != nil {
		if os.IsNotExist(err) {
			if _, exists := fw.lastModTime[file]; exists {
				delete(fw.lastModTime, file)
				return true
			}
		}
		return false
	}

	lastMod, exists := fw.lastModTime[file]
	if !exists || !stat.ModTime().Equal(lastMod) {
		fw.lastModTime[file] = stat.ModTime()
		return true
	}
	return false
}

func (fw *FileWatcher) watchLoop() {
	defer close(fw.done)
	for {
		select {
		case event, ok := <-fw.fsWatcher.Events:
			if !ok {
				return
			}
			if fw.isRelevant(event) {
				fw.scheduleReload()
			}

		case err, ok := <-fw.fsWatcher.Errors:
			if !ok {
				return
			}
			fw.logger.LogError(err, "File watcher error", "watcher", fw.name)

		case <-fw.reloadChan:
			// Any changed file triggers the callback; every file is still
			// re-stat'ed so later events compare against fresh times.
			changed := false
			for _, f := range fw.files {
				if fw.hasFileChanged(f) {
					changed = true
				}
			}
			if changed {
				fw.logger.Info("Watched files changed, reloading", "watcher", fw.name)
				fw.callback()
			}

		case <-fw.stopChan:
			return
		}
	}
}

func (fw *FileWatcher) isRelevant(event fsnotify.Event) bool {
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
		return false
	}
	for _, file := range fw.files {
		if event.Name == file || filepath.Base(event.Name) == filepath.Base(file) {
			return true
		}
	}
	return false
}

func (fw *FileWatcher) scheduleReload() {
	fw.mu.Lock()
	defer fw.mu.Unlock()

	if fw.debounceTimer != nil {
		fw.debounceTimer.Stop()
	}
	fw.debounceTimer = time.AfterFunc(fw.debounceDelay, func() {
		select {
		case fw.reloadChan <- struct{}{}:
		default:
		}
	})
}
