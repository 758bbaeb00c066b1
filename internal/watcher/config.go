// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package watcher

import (
	"context"
	"fmt"
	"path/filepath"
	"reflect"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"

	"github.com/wingedpig/approuter/internal/config"
	"github.com/wingedpig/approuter/internal/events"
)

// AppDiff lists how the enabled apps changed between two configs.
type AppDiff struct {
	Added   []config.AppConfig
	Changed []string
	Removed []string
}

// Empty returns true if nothing changed.
func (d AppDiff) Empty() bool {
	return len(d.Added) == 0 && len(d.Changed) == 0 && len(d.Removed) == 0
}

// DiffApps compares the enabled apps of two configs by name.
func DiffApps(old, updated []config.AppConfig) AppDiff {
	before := enabledApps(old)
	after := enabledApps(updated)

	var diff AppDiff
	for _, app := range updated {
		if app.Disabled {
			continue
		}
		prev, ok := before[app.Name]
		if !ok {
			diff.Added = append(diff.Added, app)
		} else if !reflect.DeepEqual(prev, app) {
			diff.Changed = append(diff.Changed, app.Name)
		}
	}
	for name := range before {
		if _, ok := after[name]; !ok {
			diff.Removed = append(diff.Removed, name)
		}
	}
	sort.Strings(diff.Changed)
	sort.Strings(diff.Removed)
	return diff
}

func enabledApps(apps []config.AppConfig) map[string]config.AppConfig {
	out := make(map[string]config.AppConfig, len(apps))
	for _, app := range apps {
		if !app.Disabled {
			out[app.Name] = app
		}
	}
	return out
}

// ReloadFunc applies a reloaded config. Returning an error keeps the
// previous config current.
type ReloadFunc func(ctx context.Context, cfg *config.Config, diff AppDiff) error

// ConfigWatcherConfig configures a ConfigWatcher.
type ConfigWatcherConfig struct {
	Path     string
	Debounce time.Duration
	Current  *config.Config
	Bus      events.EventBus
	Logger   logrus.FieldLogger
	OnReload ReloadFunc
}

// ConfigWatcher reloads the config file when it or its env_file changes
// on disk. Directories are watched rather than files so editors that
// replace a file by rename are noticed.
type ConfigWatcher struct {
	mu        sync.Mutex
	path      string
	envPath   string
	dirs      map[string]bool
	watcher   *fsnotify.Watcher
	debouncer *Debouncer
	loader    *config.Loader
	validator *config.Validator
	current   *config.Config
	bus       events.EventBus
	log       logrus.FieldLogger
	onReload  ReloadFunc

	ctx     context.Context
	cancel  context.CancelFunc
	closed  bool
	closeCh chan struct{}
	wg      sync.WaitGroup
}

// NewConfigWatcher creates a watcher and starts watching.
func NewConfigWatcher(cfg ConfigWatcherConfig) (*ConfigWatcher, error) {
	path, err := filepath.Abs(cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("resolve config path: %w", err)
	}

	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	if err := fsWatcher.Add(filepath.Dir(path)); err != nil {
		fsWatcher.Close()
		return nil, fmt.Errorf("watch %s: %w", filepath.Dir(path), err)
	}

	if cfg.Logger == nil {
		cfg.Logger = logrus.StandardLogger()
	}

	ctx, cancel := context.WithCancel(context.Background())
	w := &ConfigWatcher{
		path:      path,
		dirs:      map[string]bool{filepath.Dir(path): true},
		watcher:   fsWatcher,
		debouncer: NewDebouncer(cfg.Debounce),
		loader:    config.NewLoader(),
		validator: config.NewValidator(),
		current:   cfg.Current,
		bus:       cfg.Bus,
		log:       cfg.Logger.WithField("config", path),
		onReload:  cfg.OnReload,
		ctx:       ctx,
		cancel:    cancel,
		closeCh:   make(chan struct{}),
	}

	if cfg.Current != nil {
		w.watchEnvFile(cfg.Current.EnvFile)
	}

	w.wg.Add(1)
	go w.processEvents()

	return w, nil
}

// Path returns the absolute path being watched.
func (w *ConfigWatcher) Path() string {
	return w.path
}

// Current returns the most recently applied config.
func (w *ConfigWatcher) Current() *config.Config {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.current
}

// Reload reads, validates and applies the config file now.
func (w *ConfigWatcher) Reload(ctx context.Context) error {
	cfg, err := w.loader.LoadWithDefaults(ctx, w.path)
	if err != nil {
		return err
	}
	if err := w.validator.Validate(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	var previous []config.AppConfig
	if w.current != nil {
		previous = w.current.Apps
	}
	diff := DiffApps(previous, cfg.Apps)

	if w.onReload != nil {
		if err := w.onReload(ctx, cfg, diff); err != nil {
			return err
		}
	}
	w.current = cfg
	w.watchEnvFile(cfg.EnvFile)

	added := make([]string, 0, len(diff.Added))
	for _, app := range diff.Added {
		added = append(added, app.Name)
	}
	w.log.WithFields(logrus.Fields{
		"added":   added,
		"changed": diff.Changed,
		"removed": diff.Removed,
	}).Info("Config reloaded")

	if w.bus != nil {
		w.bus.Publish(ctx, events.Event{
			Type: events.EventConfigReloaded,
			Payload: map[string]interface{}{
				"path":    w.path,
				"added":   added,
				"changed": diff.Changed,
				"removed": diff.Removed,
			},
		})
	}
	return nil
}

// watchEnvFile tracks the dotenv file named by a config, adding its
// directory to the watch set. Callers hold w.mu or own w exclusively.
func (w *ConfigWatcher) watchEnvFile(name string) {
	if name == "" {
		w.envPath = ""
		return
	}
	if !filepath.IsAbs(name) {
		name = filepath.Join(filepath.Dir(w.path), config.ExpandPath(name))
	}
	w.envPath = filepath.Clean(name)

	dir := filepath.Dir(w.envPath)
	if w.dirs[dir] {
		return
	}
	if err := w.watcher.Add(dir); err != nil {
		w.log.WithError(err).WithField("env_file", w.envPath).Warn("Cannot watch env_file")
		return
	}
	w.dirs[dir] = true
}

// SetDebounce sets the debounce duration.
func (w *ConfigWatcher) SetDebounce(d time.Duration) {
	w.debouncer.SetDuration(d)
}

// Close stops the watcher and releases resources.
func (w *ConfigWatcher) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	close(w.closeCh)
	w.mu.Unlock()

	w.cancel()
	w.debouncer.Stop()
	err := w.watcher.Close()
	w.wg.Wait()

	return err
}

func (w *ConfigWatcher) processEvents() {
	defer w.wg.Done()

	for {
		select {
		case <-w.closeCh:
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.WithError(err).Warn("Config watcher error")
		}
	}
}

func (w *ConfigWatcher) handleEvent(event fsnotify.Event) {
	// Chmod alone does not change content
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
		return
	}
	name := filepath.Clean(event.Name)
	w.mu.Lock()
	relevant := name == w.path || (w.envPath != "" && name == w.envPath)
	w.mu.Unlock()
	if !relevant {
		return
	}

	// Both files feed one reload.
	w.debouncer.Debounce(w.path, func() {
		if err := w.Reload(w.ctx); err != nil {
			w.log.WithError(err).Warn("Config reload failed, keeping previous config")
		}
	})
}
