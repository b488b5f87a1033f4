package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"

	journalinadapter "drillsync/internal/modules/journal/adapter/in"
	journaloutadapter "drillsync/internal/modules/journal/adapter/out"
	journalservice "drillsync/internal/modules/journal/service"
	journalusecase "drillsync/internal/modules/journal/usecase"
	outboxinadapter "drillsync/internal/modules/outbox/adapter/in"
	outboxoutadapter "drillsync/internal/modules/outbox/adapter/out"
	"drillsync/internal/modules/outbox/domain"
	outboxout "drillsync/internal/modules/outbox/port/out"
	outboxservice "drillsync/internal/modules/outbox/service"
	outboxusecase "drillsync/internal/modules/outbox/usecase"
	"drillsync/internal/platform/clock"
	"drillsync/internal/platform/config"
	"drillsync/internal/platform/id"
	"drillsync/internal/platform/kv"
	"drillsync/internal/platform/logging"
)

type Options struct {
	// Online replaces the status-file monitor with one that always reports connected.
	Online bool
	// Logger overrides the logger built from the configuration.
	Logger *slog.Logger
}

type App struct {
	Config      config.Config
	Logger      *slog.Logger
	JournalCLI  journalinadapter.CLIHandler
	OutboxCLI   outboxinadapter.CLIHandler
	Coordinator *outboxservice.SyncCoordinator

	fileMonitor *outboxoutadapter.FileMonitor
	closers     []io.Closer
}

func New(ctx context.Context, cfg config.Config, opts Options) (*App, error) {
	app := &App{Config: cfg}

	logger := opts.Logger
	if logger == nil {
		built, closer, err := logging.New(logging.Options{Level: cfg.LogLevel, File: cfg.LogFile})
		if err != nil {
			return nil, fmt.Errorf("new logger: %w", err)
		}
		logger = built
		app.closers = append(app.closers, closer)
	}
	app.Logger = logger

	store, err := openStore(cfg)
	if err != nil {
		_ = app.Close()
		return nil, err
	}
	app.closers = append(app.closers, store)

	clk := clock.SystemClock{}

	var monitor outboxout.NetworkMonitor
	var publisher outboxout.NetworkPublisher
	if opts.Online {
		static := outboxoutadapter.NewStaticMonitor(domain.NetworkStatus{Connected: true})
		monitor, publisher = static, static
	} else {
		app.fileMonitor = outboxoutadapter.NewFileMonitor(cfg.NetworkFile, logger)
		monitor, publisher = app.fileMonitor, app.fileMonitor
	}

	outboxSvc := outboxservice.NewSyncOutbox(
		outboxoutadapter.NewKVQueueStore(store, logger),
		outboxoutadapter.NewFileTarget(cfg.DeliveryLog),
		monitor,
		clk,
		id.TimeSuffix{Clock: clk},
		logger,
		outboxservice.Options{DeliveryTimeout: cfg.DeliveryTimeout},
	)
	outboxSvc.Load(ctx)
	outboxUC := outboxusecase.NewInteractor(outboxSvc, publisher)

	journalSvc := journalservice.NewSessionJournal(
		journaloutadapter.NewKVRecordStore(store),
		clk,
		logger,
		journalservice.Options{BatchThreshold: cfg.BatchThreshold, ResumeWindow: cfg.ResumeWindow},
	)
	journalUC := journalusecase.NewInteractor(journalSvc, outboxUC, clk)

	app.JournalCLI = journalinadapter.NewCLIHandler(journalUC)
	app.OutboxCLI = outboxinadapter.NewCLIHandler(outboxUC)
	app.Coordinator = outboxservice.NewSyncCoordinator(outboxSvc, monitor, logger, outboxservice.CoordinatorOptions{DrainInterval: cfg.DrainInterval})
	return app, nil
}

func openStore(cfg config.Config) (kv.Store, error) {
	switch cfg.Store {
	case config.StoreMemory:
		return kv.NewMemoryStore(), nil
	case config.StoreFile:
		store, err := kv.NewFileStore(filepath.Join(cfg.DataDir, "store"))
		if err != nil {
			return nil, fmt.Errorf("new file store: %w", err)
		}
		return store, nil
	default:
		store, err := kv.NewSQLiteStore(cfg.DBPath)
		if err != nil {
			return nil, fmt.Errorf("new sqlite store: %w", err)
		}
		return store, nil
	}
}

// Watch runs the network monitor and the sync coordinator until ctx is cancelled.
func (a *App) Watch(ctx context.Context) error {
	if a.fileMonitor != nil {
		if err := a.fileMonitor.Start(ctx); err != nil {
			return err
		}
		defer func() {
			if err := a.fileMonitor.Stop(); err != nil {
				a.Logger.Warn("stop network monitor", "error", err)
			}
		}()
	}
	if err := a.Coordinator.Start(ctx); err != nil {
		return err
	}
	defer a.Coordinator.Stop()

	<-ctx.Done()
	return nil
}

// Close releases the store and the log file, newest first.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
