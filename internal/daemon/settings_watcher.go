package daemon

import (
	"context"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"git.home.luguber.info/inful/larder/internal/config"
	ferrors "git.home.luguber.info/inful/larder/internal/foundation/errors"
	"git.home.luguber.info/inful/larder/internal/logfields"
)

// SettingsWatcher monitors the config file and applies changed settings to
// the running daemon. Only hot-applicable settings (thresholds, shelf
// lives, alert classes) take effect; endpoint changes need a restart.
type SettingsWatcher struct {
	configPath   string
	apply        func(*config.Config) error
	watcher      *fsnotify.Watcher
	mu           sync.RWMutex
	stopChan     chan struct{}
	reloadChan   chan struct{}
	debounceTime time.Duration
}

// NewSettingsWatcher creates a watcher for configPath. apply is invoked
// with each successfully loaded configuration.
func NewSettingsWatcher(configPath string, apply func(*config.Config) error) (*SettingsWatcher, error) {
	if apply == nil {
		return nil, ferrors.ValidationError("apply callback is required").Build()
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryDaemon, "create file watcher").Build()
	}

	absPath, err := filepath.Abs(configPath)
	if err != nil {
		watcher.Close()
		return nil, ferrors.WrapError(err, ferrors.CategoryDaemon, "resolve config path").
			WithContext("path", configPath).Build()
	}

	return &SettingsWatcher{
		configPath: absPath,
		apply:      apply,
		watcher:    watcher,
		stopChan:   make(chan struct{}),
		reloadChan: make(chan struct{}, 1),
		// Editors often emit several events per save.
		debounceTime: 2 * time.Second,
	}, nil
}

// Start begins monitoring the configuration file.
func (sw *SettingsWatcher) Start(ctx context.Context) error {
	sw.mu.Lock()
	defer sw.mu.Unlock()

	// Watch the directory; watching the file directly breaks on
	// rename-based saves.
	configDir := filepath.Dir(sw.configPath)
	if err := sw.watcher.Add(configDir); err != nil {
		return ferrors.WrapError(err, ferrors.CategoryDaemon, "watch config directory").
			WithContext("dir", configDir).Build()
	}

	slog.Info("Starting settings watcher", slog.String("config_path", sw.configPath))

	go sw.watchLoop(ctx)
	go sw.reloadLoop(ctx)

	return nil
}

// Stop stops the watcher.
func (sw *SettingsWatcher) Stop(ctx context.Context) error {
	sw.mu.Lock()
	defer sw.mu.Unlock()

	slog.Info("Stopping settings watcher")
	close(sw.stopChan)

	if sw.watcher != nil {
		if err := sw.watcher.Close(); err != nil {
			slog.Error("Error closing file watcher", logfields.Error(err))
		}
	}
	return nil
}

func (sw *SettingsWatcher) watchLoop(ctx context.Context) {
	configFile := filepath.Base(sw.configPath)

	for {
		select {
		case <-ctx.Done():
			return
		case <-sw.stopChan:
			return
		case event, ok := <-sw.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != configFile {
				continue
			}

			switch {
			case event.Op.Has(fsnotify.Write), event.Op.Has(fsnotify.Create), event.Op.Has(fsnotify.Rename):
				slog.Debug("Config file change detected", slog.String("file", event.Name))
				sw.triggerReload()
			case event.Op.Has(fsnotify.Remove):
				slog.Warn("Config file removed", slog.String("file", event.Name))
			}

		case err, ok := <-sw.watcher.Errors:
			if !ok {
				return
			}
			slog.Error("Settings watcher error", logfields.Error(err))
		}
	}
}

func (sw *SettingsWatcher) reloadLoop(ctx context.Context) {
	var reloadTimer *time.Timer

	for {
		select {
		case <-ctx.Done():
			if reloadTimer != nil {
				reloadTimer.Stop()
			}
			return
		case <-sw.stopChan:
			if reloadTimer != nil {
				reloadTimer.Stop()
			}
			return
		case <-sw.reloadChan:
			if reloadTimer != nil {
				reloadTimer.Stop()
			}
			reloadTimer = time.AfterFunc(sw.debounceTime, func() {
				if err := sw.performReload(); err != nil {
					slog.Error("Failed to reload settings", logfields.Error(err))
				}
			})
		}
	}
}

func (sw *SettingsWatcher) triggerReload() {
	select {
	case sw.reloadChan <- struct{}{}:
	default:
		// Reload already pending.
	}
}

func (sw *SettingsWatcher) performReload() error {
	slog.Info("Reloading settings", slog.String("config_path", sw.configPath))

	newConfig, err := config.Load(sw.configPath)
	if err != nil {
		return ferrors.WrapError(err, ferrors.CategoryConfig, "load changed configuration").Build()
	}

	if err := sw.apply(newConfig); err != nil {
		return ferrors.WrapError(err, ferrors.CategoryDaemon, "apply changed configuration").Build()
	}

	slog.Info("Settings reloaded")
	return nil
}
