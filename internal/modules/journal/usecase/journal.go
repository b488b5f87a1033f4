package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"drillsync/internal/modules/journal/domain"
	journaldto "drillsync/internal/modules/journal/dto"
	journalin "drillsync/internal/modules/journal/port/in"
	"drillsync/internal/modules/journal/service"
	outboxdto "drillsync/internal/modules/outbox/dto"
	outboxin "drillsync/internal/modules/outbox/port/in"
	"drillsync/internal/platform/clock"
	apperrors "drillsync/internal/platform/errors"
)

const (
	actionSaveStats     = "save_stats"
	actionCompleteDaily = "complete_daily"
)

type Interactor struct {
	svc    *service.SessionJournal
	outbox outboxin.Usecase
	clock  clock.Clock
}

func NewInteractor(svc *service.SessionJournal, outbox outboxin.Usecase, clk clock.Clock) journalin.Usecase {
	if clk == nil {
		clk = clock.SystemClock{}
	}
	return &Interactor{svc: svc, outbox: outbox, clock: clk}
}

func (i *Interactor) Check(ctx context.Context) (journaldto.CheckOutput, error) {
	record, ok := i.svc.CheckForSession(ctx)
	if !ok {
		return journaldto.CheckOutput{}, nil
	}
	return journaldto.CheckOutput{Found: true, Session: toSessionOutput(record)}, nil
}

func (i *Interactor) Start(ctx context.Context, input journaldto.StartInput) (journaldto.SessionOutput, error) {
	items := make([]string, 0, len(input.Items))
	for _, item := range input.Items {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	now := i.clock.Now()
	record := domain.Record{
		Mode:           domain.Mode(strings.ToLower(strings.TrimSpace(input.Mode))),
		SelectedItems:  items,
		Difficulty:     input.Difficulty,
		StartTime:      now,
		LastUpdateTime: now,
	}
	if err := record.Validate(); err != nil {
		return journaldto.SessionOutput{}, fmt.Errorf("%w: %v", apperrors.ErrInvalidInput, err)
	}
	i.svc.SaveSession(ctx, record)
	current, _ := i.svc.Current()
	return toSessionOutput(current), nil
}

func (i *Interactor) Resume(context.Context) (journaldto.SessionOutput, error) {
	record, ok := i.svc.ResumeSession()
	if !ok {
		return journaldto.SessionOutput{}, apperrors.ErrNoSession
	}
	return toSessionOutput(record), nil
}

func (i *Interactor) Answer(ctx context.Context, input journaldto.AnswerInput) (journaldto.AnswerOutput, error) {
	if input.Points < 0 {
		return journaldto.AnswerOutput{}, fmt.Errorf("%w: points must be non-negative", apperrors.ErrInvalidInput)
	}
	record, ok := i.svc.Current()
	if !ok {
		return journaldto.AnswerOutput{}, apperrors.ErrNoSession
	}
	persisted := i.svc.SaveSession(ctx, record.ApplyAnswer(input.Correct, input.Points))
	current, _ := i.svc.Current()
	return journaldto.AnswerOutput{Session: toSessionOutput(current), Persisted: persisted}, nil
}

// Suspend flushes the pending checkpoint; the host calls it when it is backgrounded.
func (i *Interactor) Suspend(ctx context.Context) (journaldto.SuspendOutput, error) {
	return journaldto.SuspendOutput{Persisted: i.svc.ForceSave(ctx)}, nil
}

// Complete hands the finished session to the outbox and drops the checkpoint. The
// checkpoint is kept when queuing fails so the session can still be completed later.
func (i *Interactor) Complete(ctx context.Context) (journaldto.CompleteOutput, error) {
	record, ok := i.svc.Current()
	if !ok {
		return journaldto.CompleteOutput{}, apperrors.ErrNoSession
	}
	if i.outbox == nil {
		return journaldto.CompleteOutput{}, fmt.Errorf("complete session: outbox is not configured")
	}
	finishedAt := i.clock.Now()
	out := journaldto.CompleteOutput{Session: toSessionOutput(record)}

	stats, err := i.outbox.Enqueue(ctx, outboxdto.EnqueueInput{Action: actionSaveStats, Data: statsPayload(record, finishedAt)})
	if err != nil {
		i.svc.ForceSave(ctx)
		return journaldto.CompleteOutput{}, fmt.Errorf("queue session stats: %w", err)
	}
	out.Queued = append(out.Queued, stats.Item.ID)

	daily, err := i.outbox.Enqueue(ctx, outboxdto.EnqueueInput{Action: actionCompleteDaily, Data: dailyPayload(record, finishedAt)})
	if err != nil {
		i.svc.ForceSave(ctx)
		return journaldto.CompleteOutput{}, fmt.Errorf("queue daily completion: %w", err)
	}
	out.Queued = append(out.Queued, daily.Item.ID)
	out.Delivered = len(stats.Drain.Delivered) + len(daily.Drain.Delivered)

	i.svc.ClearSession(ctx)
	return out, nil
}

func (i *Interactor) Clear(ctx context.Context) error {
	i.svc.ClearSession(ctx)
	return nil
}

func (i *Interactor) Status(context.Context) (journaldto.StatusOutput, error) {
	snap := i.svc.Snapshot()
	out := journaldto.StatusOutput{State: string(snap.State), Unsaved: snap.Unsaved, Offered: snap.Offered}
	if snap.Pending != nil {
		session := toSessionOutput(*snap.Pending)
		out.Session = &session
	}
	return out, nil
}

type sessionStats struct {
	Mode       string    `json:"mode"`
	Items      []string  `json:"selectedItems"`
	Difficulty int       `json:"difficulty"`
	Score      int       `json:"score"`
	Attempts   int       `json:"attempts"`
	Streak     int       `json:"streak"`
	StartedAt  time.Time `json:"startTime"`
	FinishedAt time.Time `json:"finishedAt"`
}

type dailyCompletion struct {
	Date  string `json:"date"`
	Mode  string `json:"mode"`
	Score int    `json:"score"`
}

func statsPayload(record domain.Record, finishedAt time.Time) sessionStats {
	return sessionStats{
		Mode:       string(record.Mode),
		Items:      record.SelectedItems,
		Difficulty: record.Difficulty,
		Score:      record.Score,
		Attempts:   record.Attempts,
		Streak:     record.Streak,
		StartedAt:  record.StartTime,
		FinishedAt: finishedAt,
	}
}

func dailyPayload(record domain.Record, finishedAt time.Time) dailyCompletion {
	return dailyCompletion{Date: finishedAt.Format(time.DateOnly), Mode: string(record.Mode), Score: record.Score}
}

func toSessionOutput(record domain.Record) journaldto.SessionOutput {
	return journaldto.SessionOutput{
		Mode:           string(record.Mode),
		Items:          append([]string(nil), record.SelectedItems...),
		Difficulty:     record.Difficulty,
		Score:          record.Score,
		Attempts:       record.Attempts,
		Streak:         record.Streak,
		StartTime:      record.StartTime,
		LastUpdateTime: record.LastUpdateTime,
	}
}
