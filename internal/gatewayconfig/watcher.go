package gatewayconfig

import (
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/giantswarm/mcp-gateway/pkg/logging"
)

// DefaultDebounceInterval is how long the watcher waits after the last file
// change before reloading, so editors that write in several steps trigger a
// single reload.
const DefaultDebounceInterval = 500 * time.Millisecond

// Watcher re-reads a config file whenever it changes and hands each
// successfully loaded document to OnChange. Load failures are logged and
// skipped: a half-written or invalid file never reaches the gateway.
type Watcher struct {
	path     string
	onChange func(*Config)
	debounce time.Duration

	mu        sync.Mutex
	fsWatcher *fsnotify.Watcher
	stopCh    chan struct{}
	running   bool

	debounceMu    sync.Mutex
	debounceTimer *time.Timer
}

// NewWatcher builds a Watcher for path. onChange is invoked from the
// watcher's goroutine with each freshly loaded config.
func NewWatcher(path string, onChange func(*Config)) *Watcher {
	return &Watcher{
		path:     path,
		onChange: onChange,
		debounce: DefaultDebounceInterval,
	}
}

// Start begins watching. The parent directory is watched rather than the
// file itself so atomic rename-over saves (the common editor and configmap
// update pattern) are still observed.
func (w *Watcher) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return nil
	}

	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := fsWatcher.Add(filepath.Dir(w.path)); err != nil {
		fsWatcher.Close()
		return err
	}

	w.fsWatcher = fsWatcher
	w.stopCh = make(chan struct{})
	w.running = true

	go w.processEvents(fsWatcher.Events, fsWatcher.Errors)

	logging.Info("ConfigWatcher", "watching %s for changes", w.path)
	return nil
}

func (w *Watcher) processEvents(events <-chan fsnotify.Event, errors <-chan error) {
	for {
		select {
		case <-w.stopCh:
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != filepath.Clean(w.path) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			w.scheduleReload()
		case err, ok := <-errors:
			if !ok {
				return
			}
			logging.Warn("ConfigWatcher", "watch error: %v", err)
		}
	}
}

func (w *Watcher) scheduleReload() {
	w.debounceMu.Lock()
	defer w.debounceMu.Unlock()

	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
	}
	w.debounceTimer = time.AfterFunc(w.debounce, w.reload)
}

func (w *Watcher) reload() {
	config, err := Load(w.path)
	if err != nil {
		logging.Warn("ConfigWatcher", "reload of %s failed, keeping previous config: %v", w.path, err)
		return
	}
	w.onChange(config)
}

// Stop ends watching. Safe to call more than once.
func (w *Watcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.running {
		return
	}
	close(w.stopCh)
	w.fsWatcher.Close()
	w.fsWatcher = nil
	w.running = false

	w.debounceMu.Lock()
	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
		w.debounceTimer = nil
	}
	w.debounceMu.Unlock()
}
