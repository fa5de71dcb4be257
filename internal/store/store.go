package store

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"

	"github.com/fsnotify/fsnotify"
	"github.com/openvdm/openvdm-web/internal/store/config"
	"github.com/openvdm/openvdm-web/internal/store/constants"
	"github.com/openvdm/openvdm-web/internal/store/database"
	"github.com/openvdm/openvdm-web/internal/syslog"
)

type Store struct {
	Ctx        context.Context
	Database   *database.Database
	appConfig  *config.AppConfig
	configMu   sync.RWMutex
	configPath string
	envFile    string
}

func (s *Store) GetAppConfig() *config.AppConfig {
	s.configMu.RLock()
	defer s.configMu.RUnlock()
	return s.appConfig
}

func (s *Store) ReloadConfig() error {
	newConfig, err := config.Load(s.configPath)
	if err != nil {
		return fmt.Errorf("reload config: %w", err)
	}
	if err := newConfig.ApplyEnv(s.envFile); err != nil {
		return fmt.Errorf("reload config: %w", err)
	}

	s.configMu.Lock()
	s.appConfig = newConfig
	s.configMu.Unlock()

	syslog.L.Info().WithMessage("configuration reloaded").WithField("path", s.configPath).Write()
	return nil
}

// watchConfig reloads the configuration on SIGHUP and whenever the config
// file is rewritten.
func (s *Store) watchConfig() {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGHUP)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		syslog.L.Error(err).WithMessage("config watcher error").Write()
	} else if err := watcher.Add(filepath.Dir(s.configPath)); err != nil {
		syslog.L.Error(err).WithMessage("config watcher error").Write()
		_ = watcher.Close()
		watcher = nil
	}

	var events chan fsnotify.Event
	var errs chan error
	if watcher != nil {
		events = watcher.Events
		errs = watcher.Errors
	}

	go func() {
		defer signal.Stop(sigChan)
		if watcher != nil {
			defer watcher.Close()
		}

		for {
			select {
			case <-sigChan:
				if err := s.ReloadConfig(); err != nil {
					syslog.L.Error(err).WithMessage("error reloading configuration").Write()
				}
			case event, ok := <-events:
				if !ok {
					events = nil
					continue
				}
				if filepath.Clean(event.Name) != filepath.Clean(s.configPath) {
					continue
				}
				if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
					continue
				}
				syslog.L.Info().WithMessage("config file has changed").
					WithFields(map[string]any{"name": event.Name, "operation": event.Op.String()}).Write()
				if err := s.ReloadConfig(); err != nil {
					syslog.L.Error(err).WithMessage("error reloading configuration").Write()
				}
			case err, ok := <-errs:
				if !ok {
					errs = nil
					continue
				}
				syslog.L.Error(err).WithMessage("config watcher error").Write()
			case <-s.Ctx.Done():
				return
			}
		}
	}()
}

// Initialize opens the database and loads the configuration. Recognized
// paths keys: "sqlite", "config", "env". Missing keys fall back to the
// configured or compiled-in defaults.
func Initialize(ctx context.Context, paths map[string]string) (*Store, error) {
	configPath := constants.AppConfigFile
	envFile := constants.EnvFile
	if p, ok := paths["config"]; ok {
		configPath = p
	}
	if p, ok := paths["env"]; ok {
		envFile = p
	}

	conf, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("Initialize: error initializing %s -> %w", configPath, err)
	}
	if err := conf.ApplyEnv(envFile); err != nil {
		return nil, fmt.Errorf("Initialize: error applying environment -> %w", err)
	}

	sqlitePath := conf.Database.Path
	if p, ok := paths["sqlite"]; ok {
		sqlitePath = p
	}

	db, err := database.Initialize(ctx, sqlitePath)
	if err != nil {
		return nil, fmt.Errorf("Initialize: error initializing database -> %w", err)
	}

	store := &Store{
		Ctx:        ctx,
		Database:   db,
		appConfig:  conf,
		configPath: configPath,
		envFile:    envFile,
	}

	store.watchConfig()

	return store, nil
}

func (s *Store) Close() error {
	return s.Database.Close()
}
