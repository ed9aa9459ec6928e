package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"tododay/internal/config"
	"tododay/internal/controller"
	"tododay/internal/export"
	"tododay/internal/repository"
	"tododay/internal/storage"
)

type appOptions struct {
	// logToFile sends logs to the configured log file instead of stderr,
	// for when the terminal belongs to the TUI.
	logToFile bool
	stderr    io.Writer
	exportDir string
}

// app is one opened tododay session: config, store and controller.
type app struct {
	cfg     config.Config
	store   *storage.Store
	repo    *repository.Repo
	ctrl    *controller.Controller
	log     *slog.Logger
	logFile *os.File
}

func openApp(ctx context.Context, opts *RootOptions, ao appOptions) (*app, error) {
	cfg, err := config.LoadOrCreate(opts.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if ao.exportDir != "" {
		cfg.ExportDir = ao.exportDir
	}

	a := &app{cfg: cfg}
	if err := a.setupLogger(opts, ao); err != nil {
		return nil, err
	}

	a.store, err = storage.Open(cfg.DBPath)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("open database: %w", err)
	}
	a.repo = repository.New(a.store)

	a.ctrl, err = controller.New(ctx, a.repo, export.New(cfg.ExportDir), controller.WithLogger(a.log))
	if err != nil {
		a.Close()
		return nil, err
	}
	if err := waitInitialized(ctx, a.ctrl); err != nil {
		a.Close()
		return nil, err
	}
	a.log.Debug("session opened", "config", opts.ConfigPath, "db", cfg.DBPath)
	return a, nil
}

func (a *app) setupLogger(opts *RootOptions, ao appOptions) error {
	level := a.cfg.SlogLevel()
	if opts.Verbose {
		level = slog.LevelDebug
	}
	var w io.Writer = ao.stderr
	if w == nil {
		w = os.Stderr
	}
	if ao.logToFile {
		if err := os.MkdirAll(filepath.Dir(a.cfg.LogPath), 0o755); err != nil {
			return fmt.Errorf("create log directory: %w", err)
		}
		f, err := os.OpenFile(a.cfg.LogPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		a.logFile = f
		w = f
	}
	a.log = slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
	return nil
}

// Close releases the controller first so no command runs against a
// closed store.
func (a *app) Close() error {
	if a.ctrl != nil {
		a.ctrl.Close()
	}
	var errs []error
	if a.store != nil {
		errs = append(errs, a.store.Close())
	}
	if a.logFile != nil {
		errs = append(errs, a.logFile.Close())
	}
	return errors.Join(errs...)
}

func waitInitialized(ctx context.Context, ctrl *controller.Controller) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	ch := ctrl.Initialized().Subscribe(ctx)
	for ready := range ch {
		if ready {
			return nil
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return controller.ErrClosed
}
