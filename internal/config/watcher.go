package config

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// ReloadFromFile re-reads path and overlays its keys onto the process
// environment (file wins over whatever env value is currently set, unlike
// Load's first-run precedence), then builds a fresh Config. Viper lowercases
// every key it reads, so keys are upper-cased back to the env var names
// Load's getEnv* helpers look up.
func ReloadFromFile(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	for _, key := range v.AllKeys() {
		if s := v.GetString(key); s != "" {
			os.Setenv(strings.ToUpper(key), s)
		}
	}
	return Load()
}

// Watcher hot-reloads Config from path when the file changes, for the bot
// command's live rate-limit and admin-list tuning. Only the fields a
// callback applies are meaningful to reload. API keys and DatabasePath
// still require a process restart.
type Watcher struct {
	path      string
	logger    *zap.Logger
	mu        sync.RWMutex
	callbacks []func(*Config)
	fsWatcher *fsnotify.Watcher
	stopCh    chan struct{}
}

// NewWatcher starts watching path for writes, invoking OnChange callbacks
// with the freshly reloaded Config on each write or create event whose
// reload succeeds.
func NewWatcher(path string, logger *zap.Logger) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create file watcher: %w", err)
	}
	if err := fsWatcher.Add(path); err != nil {
		fsWatcher.Close()
		return nil, fmt.Errorf("watch config file: %w", err)
	}

	w := &Watcher{path: path, logger: logger, fsWatcher: fsWatcher, stopCh: make(chan struct{})}
	go w.loop()
	return w, nil
}

// OnChange registers a callback invoked (from the watcher goroutine) with
// each successfully reloaded Config.
func (w *Watcher) OnChange(fn func(*Config)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.callbacks = append(w.callbacks, fn)
}

func (w *Watcher) loop() {
	for {
		select {
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			cfg, err := ReloadFromFile(w.path)
			if err != nil {
				w.logger.Warn("config reload failed, keeping previous config", zap.Error(err))
				continue
			}
			w.logger.Info("config file changed, reloaded", zap.String("path", w.path))
			w.mu.RLock()
			for _, cb := range w.callbacks {
				cb(cfg)
			}
			w.mu.RUnlock()
		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("config watcher error", zap.Error(err))
		case <-w.stopCh:
			return
		}
	}
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	close(w.stopCh)
	return w.fsWatcher.Close()
}
