package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"drillsync/internal/modules/journal/domain"
	journalout "drillsync/internal/modules/journal/port/out"
	"drillsync/internal/platform/clock"
	apperrors "drillsync/internal/platform/errors"
	"drillsync/internal/platform/logging"
)

type Options struct {
	BatchThreshold int
	ResumeWindow   time.Duration
}

// SessionJournal checkpoints the single active practice session. Saves are batched:
// only every BatchThreshold-th SaveSession reaches the store, so a crash can lose at
// most BatchThreshold-1 answers unless ForceSave closed the window first.
//
// A SessionJournal is meant to be driven from one goroutine; it carries no lock.
type SessionJournal struct {
	store     journalout.RecordStore
	clock     clock.Clock
	logger    *slog.Logger
	threshold int
	window    time.Duration

	pending   *domain.Record
	unsaved   int
	persisted bool
	offer     *domain.Record
	consumed  bool
}

func NewSessionJournal(store journalout.RecordStore, clk clock.Clock, logger *slog.Logger, opts Options) *SessionJournal {
	if opts.BatchThreshold <= 0 {
		opts.BatchThreshold = domain.DefaultBatchThreshold
	}
	if opts.ResumeWindow <= 0 {
		opts.ResumeWindow = domain.DefaultResumeWindow
	}
	if clk == nil {
		clk = clock.SystemClock{}
	}
	return &SessionJournal{
		store:     store,
		clock:     clk,
		logger:    logging.OrDefault(logger).With("component", "session_journal"),
		threshold: opts.BatchThreshold,
		window:    opts.ResumeWindow,
	}
}

// CheckForSession looks for a checkpoint left by a previous run. A resumable record is
// returned and offered once through ResumeSession; an expired or unreadable one is
// deleted and reported as absent.
func (j *SessionJournal) CheckForSession(ctx context.Context) (domain.Record, bool) {
	j.offer = nil
	record, err := j.store.Load(ctx)
	switch {
	case err == nil:
	case errors.Is(err, apperrors.ErrNoSession):
		return domain.Record{}, false
	case errors.Is(err, apperrors.ErrCorruptPayload):
		j.logger.Warn("discarding unreadable session checkpoint", "error", err)
		j.discard(ctx)
		return domain.Record{}, false
	default:
		j.logger.Error("read session checkpoint", "error", err)
		return domain.Record{}, false
	}

	if !record.Resumable(j.clock.Now(), j.window) {
		j.logger.Info("expiring stale session checkpoint",
			"attempts", record.Attempts,
			"last_update", record.LastUpdateTime)
		j.discard(ctx)
		return domain.Record{}, false
	}

	j.offer = &record
	j.logger.Info("found unfinished session", "mode", record.Mode, "attempts", record.Attempts)
	return record.Clone(), true
}

// SaveSession stamps the record and keeps it as the pending checkpoint, withdrawing
// any pending resume offer. It reports whether this call reached the store.
func (j *SessionJournal) SaveSession(ctx context.Context, record domain.Record) bool {
	record = record.Clone()
	record.LastUpdateTime = j.clock.Now()
	// a new checkpoint replaces whatever was offered
	j.offer = nil
	j.pending = &record
	j.persisted = false
	j.consumed = false
	j.unsaved++
	if j.unsaved < j.threshold {
		return false
	}
	return j.persist(ctx)
}

// ForceSave writes the pending record regardless of the batch counter. Call it before
// the session is abandoned.
func (j *SessionJournal) ForceSave(ctx context.Context) bool {
	if j.pending == nil {
		j.unsaved = 0
		return false
	}
	return j.persist(ctx)
}

// ResumeSession hands out the offered record exactly once. The record becomes the
// pending checkpoint so later answers continue from it.
func (j *SessionJournal) ResumeSession() (domain.Record, bool) {
	if j.offer == nil {
		return domain.Record{}, false
	}
	record := j.offer.Clone()
	j.offer = nil
	j.pending = &record
	j.persisted = true
	j.consumed = true
	j.unsaved = 0
	return record.Clone(), true
}

// ClearSession drops the stored checkpoint and all in-memory state. Idempotent.
func (j *SessionJournal) ClearSession(ctx context.Context) {
	j.discard(ctx)
	j.pending = nil
	j.unsaved = 0
	j.persisted = false
	j.offer = nil
	j.consumed = false
}

// Current returns the pending record, if a session is in progress.
func (j *SessionJournal) Current() (domain.Record, bool) {
	if j.pending == nil {
		return domain.Record{}, false
	}
	return j.pending.Clone(), true
}

func (j *SessionJournal) HasUnfinishedSession() bool {
	return j.offer != nil
}

func (j *SessionJournal) State() domain.State {
	switch {
	case j.offer != nil:
		return domain.StateResumable
	case j.consumed:
		return domain.StateConsumed
	case j.pending != nil && !j.persisted:
		return domain.StatePendingUnpersisted
	case j.pending != nil:
		return domain.StatePersisted
	default:
		return domain.StateNoSession
	}
}

func (j *SessionJournal) Snapshot() domain.Snapshot {
	snap := domain.Snapshot{State: j.State(), Unsaved: j.unsaved, Offered: j.offer != nil}
	if j.pending != nil {
		pending := j.pending.Clone()
		snap.Pending = &pending
	}
	return snap
}

func (j *SessionJournal) persist(ctx context.Context) bool {
	j.unsaved = 0
	if err := j.store.Save(ctx, *j.pending); err != nil {
		j.logger.Error("persist session checkpoint", "error", err)
		return false
	}
	j.persisted = true
	j.logger.Debug("session checkpoint persisted", "attempts", j.pending.Attempts)
	return true
}

func (j *SessionJournal) discard(ctx context.Context) {
	if err := j.store.Clear(ctx); err != nil {
		j.logger.Error("delete session checkpoint", "error", err)
	}
}
