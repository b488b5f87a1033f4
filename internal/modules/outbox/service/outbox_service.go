package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"drillsync/internal/modules/outbox/domain"
	outboxout "drillsync/internal/modules/outbox/port/out"
	"drillsync/internal/platform/clock"
	"drillsync/internal/platform/id"
	"drillsync/internal/platform/logging"
)

const (
	DefaultDeliveryTimeout = 10 * time.Second
	maxIDAttempts          = 8
)

type Options struct {
	// DeliveryTimeout bounds a single item's delivery; a timeout counts as a failure.
	DeliveryTimeout time.Duration
}

// SyncOutbox is the durable FIFO of actions waiting for the sync target. The whole
// queue is written back to the store after every mutation; a failed write is logged
// and the in-memory queue stays authoritative until the next successful one.
type SyncOutbox struct {
	store   outboxout.QueueStore
	target  outboxout.SyncTarget
	monitor outboxout.NetworkMonitor
	clock   clock.Clock
	ids     id.Generator
	logger  *slog.Logger
	timeout time.Duration

	mu    sync.Mutex
	queue []domain.Item
	busy  atomic.Bool
}

func NewSyncOutbox(store outboxout.QueueStore, target outboxout.SyncTarget, monitor outboxout.NetworkMonitor, clk clock.Clock, ids id.Generator, logger *slog.Logger, opts Options) *SyncOutbox {
	if clk == nil {
		clk = clock.SystemClock{}
	}
	if ids == nil {
		ids = id.TimeSuffix{Clock: clk}
	}
	if opts.DeliveryTimeout <= 0 {
		opts.DeliveryTimeout = DefaultDeliveryTimeout
	}
	return &SyncOutbox{
		store:   store,
		target:  target,
		monitor: monitor,
		clock:   clk,
		ids:     ids,
		logger:  logging.OrDefault(logger).With("component", "sync_outbox"),
		timeout: opts.DeliveryTimeout,
		queue:   []domain.Item{},
	}
}

// Load replaces the in-memory queue with the persisted one. An unreadable queue is
// logged and treated as empty.
func (o *SyncOutbox) Load(ctx context.Context) int {
	items, err := o.store.Load(ctx)
	if err != nil {
		o.logger.Error("load outbox queue, starting empty", "error", err)
		items = []domain.Item{}
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	o.queue = items
	return len(o.queue)
}

// Enqueue appends a new item and persists the queue. Only an unknown action or an
// unencodable payload is reported; store failures are logged.
func (o *SyncOutbox) Enqueue(ctx context.Context, action domain.Action, data any) (domain.Item, error) {
	if err := action.Validate(); err != nil {
		return domain.Item{}, err
	}
	raw, err := domain.EncodeData(data)
	if err != nil {
		return domain.Item{}, err
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	item := domain.Item{
		ID:        o.newIDLocked(),
		Action:    action,
		Data:      raw,
		Timestamp: o.clock.Now(),
	}
	o.queue = append(o.queue, item)
	o.persistLocked(ctx, "enqueue")
	o.logger.Info("queued action", "id", item.ID, "action", item.Action, "queued", len(o.queue))
	return item, nil
}

// ProcessQueue makes one delivery pass when online, non-empty and not already draining.
// Every item is attempted in order; failures stay queued in their original relative
// order and do not stop later items from being tried.
func (o *SyncOutbox) ProcessQueue(ctx context.Context) domain.DrainReport {
	if !o.monitor.Current().Connected {
		return domain.DrainReport{Skipped: domain.SkipOffline, Remaining: o.Len()}
	}
	if o.Len() == 0 {
		return domain.DrainReport{Skipped: domain.SkipEmpty}
	}
	if !o.busy.CompareAndSwap(false, true) {
		return domain.DrainReport{Skipped: domain.SkipBusy, Remaining: o.Len()}
	}
	defer o.busy.Store(false)

	o.mu.Lock()
	snapshot := append([]domain.Item(nil), o.queue...)
	o.mu.Unlock()

	report := domain.DrainReport{}
	delivered := make(map[string]struct{}, len(snapshot))
	for _, item := range snapshot {
		if ctx.Err() != nil {
			break
		}
		report.Attempted = append(report.Attempted, item.ID)
		if err := o.deliver(ctx, item); err != nil {
			o.logger.Warn("delivery failed, keeping item", "id", item.ID, "action", item.Action, "error", err)
			report.Failed = append(report.Failed, item.ID)
			continue
		}
		delivered[item.ID] = struct{}{}
		report.Delivered = append(report.Delivered, item.ID)
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	// Filter the live queue rather than the snapshot so items enqueued mid-drain survive.
	kept := make([]domain.Item, 0, len(o.queue))
	for _, item := range o.queue {
		if _, ok := delivered[item.ID]; !ok {
			kept = append(kept, item)
		}
	}
	o.queue = kept
	o.persistLocked(context.WithoutCancel(ctx), "drain")
	report.Remaining = len(kept)
	o.logger.Info("outbox drained",
		"attempted", len(report.Attempted),
		"delivered", len(report.Delivered),
		"failed", len(report.Failed),
		"remaining", report.Remaining)
	return report
}

// ClearQueue drops every pending item. Idempotent.
func (o *SyncOutbox) ClearQueue(ctx context.Context) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.queue = []domain.Item{}
	o.persistLocked(ctx, "clear")
}

// Items returns a copy of the queue in delivery order.
func (o *SyncOutbox) Items() []domain.Item {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]domain.Item(nil), o.queue...)
}

func (o *SyncOutbox) Len() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.queue)
}

func (o *SyncOutbox) Busy() bool {
	return o.busy.Load()
}

func (o *SyncOutbox) Network() domain.NetworkStatus {
	return o.monitor.Current()
}

// deliver runs the target call on its own goroutine so a target that ignores its
// context still cannot hold the drain past the timeout.
func (o *SyncOutbox) deliver(ctx context.Context, item domain.Item) error {
	dctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()
	done := make(chan error, 1)
	go func() {
		done <- o.target.Deliver(dctx, item)
	}()
	select {
	case err := <-done:
		return err
	case <-dctx.Done():
		return fmt.Errorf("deliver %s: %w", item.ID, dctx.Err())
	}
}

// newIDLocked draws ids until one is free; a generator that keeps colliding gets a
// counter appended.
func (o *SyncOutbox) newIDLocked() string {
	candidate := o.ids.New()
	for i := 1; o.hasIDLocked(candidate); i++ {
		if i < maxIDAttempts {
			candidate = o.ids.New()
			continue
		}
		candidate = fmt.Sprintf("%s-%d", candidate, i)
	}
	return candidate
}

func (o *SyncOutbox) hasIDLocked(candidate string) bool {
	for _, item := range o.queue {
		if item.ID == candidate {
			return true
		}
	}
	return false
}

func (o *SyncOutbox) persistLocked(ctx context.Context, op string) {
	if err := o.store.Save(ctx, o.queue); err != nil {
		o.logger.Error("persist outbox queue", "op", op, "items", len(o.queue), "error", err)
	}
}
