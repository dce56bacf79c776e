package cli

import (
	"context"
	"fmt"
	"io"
	"log"

	"plando/internal/backup"
	"plando/internal/config"
	"plando/internal/reminder"
	"plando/internal/service"
	"plando/internal/storage"
)

// app is the wiring shared by every command: config, a fresh store, the
// scheduler and the service on top of them.
type app struct {
	cfg        config.Config
	configPath string
	sched      *reminder.Scheduler
	svc        *service.Service
	logger     *log.Logger
}

func newApp(opts *rootOptions, n reminder.Notifier, logger *log.Logger) (*app, error) {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	path := opts.configPath
	if path == "" {
		path = config.ResolveConfigPath()
	}
	cfg, err := config.LoadOrCreate(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	var storeOpts []storage.Option
	if cfg.SeedDefaultList {
		storeOpts = append(storeOpts, storage.WithDefaultList(cfg.DefaultList, cfg.DefaultListColor))
	}
	store := storage.New(storeOpts...)
	sched := reminder.New(n, reminder.WithLogger(logger))
	svc := service.New(store, sched,
		service.WithPicker(backup.DirPicker{Dir: cfg.ResolveBackupDir(path)}),
		service.WithLogger(logger),
	)

	a := &app{cfg: cfg, configPath: path, sched: sched, svc: svc, logger: logger}
	if opts.load != "" {
		if err := a.load(opts.load); err != nil {
			a.close()
			return nil, err
		}
	}
	return a, nil
}

// load imports a backup; the service arms the reminders its tasks carry.
func (a *app) load(path string) error {
	res := a.svc.ImportBackup(context.Background(), path)
	if !res.OK {
		return fmt.Errorf("failed to load %s: %w", path, res.Err())
	}
	a.logger.Printf("loaded %d records from %s", res.Data.Imported, res.Data.FilePath)
	return nil
}

func (a *app) close() {
	a.sched.Stop()
}
