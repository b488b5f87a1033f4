package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-co-op/gocron"

	"drillsync/internal/modules/outbox/domain"
	outboxout "drillsync/internal/modules/outbox/port/out"
	"drillsync/internal/platform/logging"
)

// SyncCoordinator drains the outbox whenever the monitor reports connectivity and,
// when DrainInterval is set, on a fixed schedule so retained items are retried
// without waiting for the network to flap.
type SyncCoordinator struct {
	outbox   *SyncOutbox
	monitor  outboxout.NetworkMonitor
	logger   *slog.Logger
	interval time.Duration

	mu          sync.Mutex
	ctx         context.Context
	unsubscribe outboxout.Unsubscribe
	scheduler   *gocron.Scheduler
}

type CoordinatorOptions struct {
	DrainInterval time.Duration
}

func NewSyncCoordinator(outbox *SyncOutbox, monitor outboxout.NetworkMonitor, logger *slog.Logger, opts CoordinatorOptions) *SyncCoordinator {
	return &SyncCoordinator{
		outbox:   outbox,
		monitor:  monitor,
		logger:   logging.OrDefault(logger).With("component", "sync_coordinator"),
		interval: opts.DrainInterval,
	}
}

// Start subscribes to connectivity changes and drains once right away if already online.
func (c *SyncCoordinator) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.unsubscribe != nil {
		c.mu.Unlock()
		return fmt.Errorf("sync coordinator already running")
	}
	c.ctx = ctx
	if c.interval > 0 {
		scheduler := gocron.NewScheduler(time.UTC)
		scheduler.SingletonModeAll()
		if _, err := scheduler.Every(c.interval).WaitForSchedule().Do(c.drain, "schedule"); err != nil {
			c.mu.Unlock()
			return fmt.Errorf("schedule periodic drain: %w", err)
		}
		scheduler.StartAsync()
		c.scheduler = scheduler
	}
	c.unsubscribe = c.monitor.Subscribe(c)
	c.mu.Unlock()

	c.logger.Info("sync coordinator started", "drain_interval", c.interval.String())
	if c.monitor.Current().Connected {
		c.drain("startup")
	}
	return nil
}

// Stop detaches from the monitor and stops the schedule. Idempotent.
func (c *SyncCoordinator) Stop() {
	c.mu.Lock()
	unsubscribe := c.unsubscribe
	scheduler := c.scheduler
	c.unsubscribe = nil
	c.scheduler = nil
	c.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
	if scheduler != nil {
		scheduler.Stop()
	}
	if unsubscribe != nil {
		c.logger.Info("sync coordinator stopped")
	}
}

func (c *SyncCoordinator) OnNetworkChange(status domain.NetworkStatus) {
	if !status.Connected {
		c.logger.Info("offline, holding outbox", "queued", c.outbox.Len())
		return
	}
	c.drain("network")
}

func (c *SyncCoordinator) drain(trigger string) {
	c.mu.Lock()
	ctx := c.ctx
	running := c.unsubscribe != nil
	c.mu.Unlock()
	if !running || ctx == nil || ctx.Err() != nil {
		return
	}
	report := c.outbox.ProcessQueue(ctx)
	if !report.Ran() {
		c.logger.Debug("drain skipped", "trigger", trigger, "reason", string(report.Skipped))
		return
	}
	c.logger.Info("drain finished",
		"trigger", trigger,
		"delivered", len(report.Delivered),
		"failed", len(report.Failed),
		"remaining", report.Remaining)
}
