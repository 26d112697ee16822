package config

import (
	"bytes"
	"crypto/sha256"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// WatcherConfig holds configuration for the config watcher
type WatcherConfig struct {
	// Debounce duration to avoid multiple rapid reloads
	DebounceDuration time.Duration
	// OnChange receives every successfully loaded configuration
	OnChange func(newConfig *Config) error
	// OnError receives load and apply failures
	OnError func(error)
}

// DefaultWatcherConfig returns default watcher configuration
func DefaultWatcherConfig() *WatcherConfig {
	return &WatcherConfig{
		DebounceDuration: 500 * time.Millisecond,
	}
}

// Watcher reloads the configuration file when it changes
type Watcher struct {
	configPath string
	loader     *Loader
	config     *WatcherConfig
	watcher    *fsnotify.Watcher
	logger     *slog.Logger
	mu         sync.Mutex
	stopCh     chan struct{}
	wg         sync.WaitGroup
	debouncer  *time.Timer
	lastSum    []byte
}

// NewWatcher creates a new configuration watcher
func NewWatcher(configPath string, config *WatcherConfig, logger *slog.Logger) (*Watcher, error) {
	if config == nil {
		config = DefaultWatcherConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}

	absPath, err := filepath.Abs(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	w := &Watcher{
		configPath: absPath,
		loader:     NewLoader(absPath),
		config:     config,
		watcher:    watcher,
		logger:     logger.With("component", "config-watcher"),
		stopCh:     make(chan struct{}),
	}
	w.lastSum, _ = fileSum(absPath)

	// Editors that save atomically replace the file, which drops a watch
	// on the file itself, so watch the directory.
	if err := watcher.Add(filepath.Dir(absPath)); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to watch config directory: %w", err)
	}

	return w, nil
}

// Start begins watching for configuration changes
func (w *Watcher) Start() {
	w.wg.Add(1)
	go w.watchLoop()
	w.logger.Info("Configuration watcher started", "file", w.configPath)
}

// Stop stops the watcher and cancels any pending reload
func (w *Watcher) Stop() error {
	close(w.stopCh)
	w.wg.Wait()

	w.mu.Lock()
	if w.debouncer != nil {
		w.debouncer.Stop()
	}
	w.mu.Unlock()

	return w.watcher.Close()
}

// Path returns the watched file
func (w *Watcher) Path() string {
	return w.configPath
}

func (w *Watcher) watchLoop() {
	defer w.wg.Done()

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("File watcher error", "error", err)
			if w.config.OnError != nil {
				w.config.OnError(fmt.Errorf("watcher error: %w", err))
			}

		case <-w.stopCh:
			return
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if filepath.Clean(event.Name) != w.configPath {
		return
	}

	switch {
	case event.Has(fsnotify.Write), event.Has(fsnotify.Create):
		w.logger.Debug("Config file changed", "file", event.Name, "op", event.Op.String())
		w.scheduleReload()

	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		// the replacement shows up as a Create
		w.logger.Debug("Config file moved away", "file", event.Name)
	}
}

func (w *Watcher) scheduleReload() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.debouncer != nil {
		w.debouncer.Stop()
	}

	w.debouncer = time.AfterFunc(w.config.DebounceDuration, func() {
		if err := w.reload(); err != nil {
			w.logger.Error("Config reload failed", "error", err)
			if w.config.OnError != nil {
				w.config.OnError(err)
			}
		}
	})
}

func (w *Watcher) reload() error {
	sum, err := fileSum(w.configPath)
	if err != nil {
		return fmt.Errorf("failed to read config: %w", err)
	}
	w.mu.Lock()
	unchanged := bytes.Equal(sum, w.lastSum)
	w.mu.Unlock()
	if unchanged {
		w.logger.Debug("Config file content unchanged", "file", w.configPath)
		return nil
	}

	w.logger.Info("Reloading configuration", "file", w.configPath)

	newConfig, err := w.loader.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if w.config.OnChange != nil {
		if err := w.config.OnChange(newConfig); err != nil {
			return fmt.Errorf("failed to apply config: %w", err)
		}
	}

	w.mu.Lock()
	w.lastSum = sum
	w.mu.Unlock()
	w.logger.Info("Configuration reloaded successfully")
	return nil
}

func fileSum(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	sum := sha256.Sum256(data)
	return sum[:], nil
}
