package usecase_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	journalout "drillsync/internal/modules/journal/adapter/out"
	journaldto "drillsync/internal/modules/journal/dto"
	journalin "drillsync/internal/modules/journal/port/in"
	"drillsync/internal/modules/journal/service"
	"drillsync/internal/modules/journal/usecase"
	outboxdto "drillsync/internal/modules/outbox/dto"
	apperrors "drillsync/internal/platform/errors"
	"drillsync/internal/platform/kv"
	"drillsync/internal/platform/logging"
)

type fakeClock struct {
	now time.Time
}

func (f *fakeClock) Now() time.Time { return f.now }

// fakeOutbox records enqueued actions and can be told to reject one action.
type fakeOutbox struct {
	enqueued []outboxdto.EnqueueInput
	rejectOn string
}

func (f *fakeOutbox) Enqueue(_ context.Context, input outboxdto.EnqueueInput) (outboxdto.EnqueueOutput, error) {
	if input.Action == f.rejectOn {
		return outboxdto.EnqueueOutput{}, apperrors.ErrUnknownAction
	}
	f.enqueued = append(f.enqueued, input)
	id := fmt.Sprintf("item-%d", len(f.enqueued))
	return outboxdto.EnqueueOutput{Item: outboxdto.ItemOutput{ID: id, Action: input.Action}}, nil
}
func (f *fakeOutbox) Drain(context.Context) (outboxdto.DrainOutput, error) {
	return outboxdto.DrainOutput{}, nil
}
func (f *fakeOutbox) List(context.Context) (outboxdto.ListOutput, error) {
	return outboxdto.ListOutput{}, nil
}
func (f *fakeOutbox) Clear(context.Context) error { return nil }
func (f *fakeOutbox) Network(context.Context) (outboxdto.NetworkOutput, error) {
	return outboxdto.NetworkOutput{}, nil
}
func (f *fakeOutbox) SetNetwork(context.Context, outboxdto.NetworkInput) (outboxdto.NetworkOutput, error) {
	return outboxdto.NetworkOutput{}, nil
}

type fixture struct {
	store  *kv.MemoryStore
	clock  *fakeClock
	outbox *fakeOutbox
}

func newFixture() *fixture {
	return &fixture{
		store:  kv.NewMemoryStore(),
		clock:  &fakeClock{now: time.Date(2026, 5, 14, 18, 0, 0, 0, time.UTC)},
		outbox: &fakeOutbox{},
	}
}

// launch builds a fresh journal over the same store, the way a new process would.
func (f *fixture) launch() journalin.Usecase {
	svc := service.NewSessionJournal(journalout.NewKVRecordStore(f.store), f.clock, logging.Discard(), service.Options{})
	return usecase.NewInteractor(svc, f.outbox, f.clock)
}

func (f *fixture) stored(t *testing.T) bool {
	t.Helper()
	_, ok, err := f.store.Get(context.Background(), journalout.JournalKey)
	if err != nil {
		t.Fatalf("read journal key: %v", err)
	}
	return ok
}

func TestStartAndAnswerBatchesCheckpoints(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture()
	uc := f.launch()

	started, err := uc.Start(ctx, journaldto.StartInput{Mode: "Notes", Items: []string{"C4", " ", "E4"}, Difficulty: 2})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if started.Mode != "notes" || len(started.Items) != 2 || started.Attempts != 0 {
		t.Fatalf("unexpected session %+v", started)
	}

	// Start counts as the first save; the fifth save overall is the first persist.
	for n := 1; n <= 3; n++ {
		out, err := uc.Answer(ctx, journaldto.AnswerInput{Correct: true, Points: 10})
		if err != nil {
			t.Fatalf("answer %d: %v", n, err)
		}
		if out.Persisted {
			t.Fatalf("answer %d should not persist yet", n)
		}
	}
	if f.stored(t) {
		t.Fatalf("nothing should be stored before the threshold")
	}
	out, err := uc.Answer(ctx, journaldto.AnswerInput{Correct: false})
	if err != nil {
		t.Fatalf("answer: %v", err)
	}
	if !out.Persisted || !f.stored(t) {
		t.Fatalf("fifth save should persist")
	}
	if out.Session.Score != 30 || out.Session.Attempts != 4 || out.Session.Streak != 0 {
		t.Fatalf("unexpected counters %+v", out.Session)
	}

	status, err := uc.Status(ctx)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if status.State != "persisted" || status.Unsaved != 0 || status.Session == nil {
		t.Fatalf("unexpected status %+v", status)
	}
}

func TestStartRejectsUnknownMode(t *testing.T) {
	t.Parallel()
	uc := newFixture().launch()
	if _, err := uc.Start(context.Background(), journaldto.StartInput{Mode: "scales"}); !errors.Is(err, apperrors.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}

func TestAnswerWithoutSession(t *testing.T) {
	t.Parallel()
	uc := newFixture().launch()
	if _, err := uc.Answer(context.Background(), journaldto.AnswerInput{Correct: true}); !errors.Is(err, apperrors.ErrNoSession) {
		t.Fatalf("expected no session, got %v", err)
	}
	if _, err := uc.Complete(context.Background()); !errors.Is(err, apperrors.ErrNoSession) {
		t.Fatalf("expected no session on complete, got %v", err)
	}
}

func TestSuspendThenResumeOnNextLaunch(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture()
	first := f.launch()
	if _, err := first.Start(ctx, journaldto.StartInput{Mode: "chords", Items: []string{"Cmaj", "Am"}, Difficulty: 1}); err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := first.Answer(ctx, journaldto.AnswerInput{Correct: true, Points: 5}); err != nil {
		t.Fatalf("answer: %v", err)
	}
	suspended, err := first.Suspend(ctx)
	if err != nil || !suspended.Persisted {
		t.Fatalf("suspend should persist, got %+v err=%v", suspended, err)
	}

	f.clock.now = f.clock.now.Add(2 * time.Hour)
	second := f.launch()
	check, err := second.Check(ctx)
	if err != nil || !check.Found {
		t.Fatalf("expected unfinished session, got %+v err=%v", check, err)
	}
	if status, _ := second.Status(ctx); status.State != "resumable" || !status.Offered {
		t.Fatalf("expected resumable status, got %+v", status)
	}
	resumed, err := second.Resume(ctx)
	if err != nil {
		t.Fatalf("resume: %v", err)
	}
	if resumed.Score != 5 || resumed.Attempts != 1 || resumed.Mode != "chords" {
		t.Fatalf("unexpected resumed session %+v", resumed)
	}
	if _, err := second.Resume(ctx); !errors.Is(err, apperrors.ErrNoSession) {
		t.Fatalf("offer must be single use, got %v", err)
	}
	answered, err := second.Answer(ctx, journaldto.AnswerInput{Correct: true, Points: 5})
	if err != nil {
		t.Fatalf("answer after resume: %v", err)
	}
	if answered.Session.Score != 10 || answered.Session.Streak != 2 {
		t.Fatalf("answers should continue the resumed session, got %+v", answered.Session)
	}
}

func TestStartingFreshWithdrawsResumeOffer(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture()
	first := f.launch()
	first.Start(ctx, journaldto.StartInput{Mode: "notes"})
	first.Answer(ctx, journaldto.AnswerInput{Correct: true, Points: 4})
	first.Suspend(ctx)

	second := f.launch()
	if check, _ := second.Check(ctx); !check.Found {
		t.Fatalf("expected an unfinished session")
	}
	if _, err := second.Start(ctx, journaldto.StartInput{Mode: "chords", Items: []string{"Dm"}}); err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := second.Resume(ctx); !errors.Is(err, apperrors.ErrNoSession) {
		t.Fatalf("old session must not be resumable once a new one started, got %v", err)
	}
	status, _ := second.Status(ctx)
	if status.State != "pending_unpersisted" || status.Offered || status.Session == nil || status.Session.Mode != "chords" {
		t.Fatalf("expected the new chords session pending, got %+v", status)
	}
}

func TestSessionWithoutAnswersIsNotOffered(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture()
	first := f.launch()
	if _, err := first.Start(ctx, journaldto.StartInput{Mode: "mixed"}); err != nil {
		t.Fatalf("start: %v", err)
	}
	first.Suspend(ctx)

	check, err := f.launch().Check(ctx)
	if err != nil || check.Found {
		t.Fatalf("zero-attempt session must not be offered, got %+v err=%v", check, err)
	}
	if f.stored(t) {
		t.Fatalf("unresumable checkpoint should be deleted on read")
	}
}

func TestExpiredSessionIsDropped(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture()
	first := f.launch()
	first.Start(ctx, journaldto.StartInput{Mode: "notes"})
	first.Answer(ctx, journaldto.AnswerInput{Correct: true, Points: 1})
	first.Suspend(ctx)

	f.clock.now = f.clock.now.Add(25 * time.Hour)
	if check, _ := f.launch().Check(ctx); check.Found {
		t.Fatalf("checkpoint older than a day must not be offered")
	}
	if f.stored(t) {
		t.Fatalf("expired checkpoint should be deleted")
	}
}

func TestCompleteQueuesStatsAndDailyThenClears(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture()
	uc := f.launch()
	uc.Start(ctx, journaldto.StartInput{Mode: "notes", Items: []string{"A4"}, Difficulty: 3})
	uc.Answer(ctx, journaldto.AnswerInput{Correct: true, Points: 10})
	uc.Suspend(ctx)

	out, err := uc.Complete(ctx)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if len(out.Queued) != 2 || out.Session.Score != 10 {
		t.Fatalf("unexpected completion %+v", out)
	}
	if len(f.outbox.enqueued) != 2 || f.outbox.enqueued[0].Action != "save_stats" || f.outbox.enqueued[1].Action != "complete_daily" {
		t.Fatalf("expected save_stats then complete_daily, got %+v", f.outbox.enqueued)
	}
	raw, err := json.Marshal(f.outbox.enqueued[0].Data)
	if err != nil {
		t.Fatalf("encode stats: %v", err)
	}
	stats := map[string]any{}
	if err := json.Unmarshal(raw, &stats); err != nil {
		t.Fatalf("decode stats: %v", err)
	}
	if stats["score"] != float64(10) || stats["attempts"] != float64(1) || stats["mode"] != "notes" {
		t.Fatalf("unexpected stats payload %s", raw)
	}
	daily, _ := json.Marshal(f.outbox.enqueued[1].Data)
	if string(daily) != `{"date":"2026-05-14","mode":"notes","score":10}` {
		t.Fatalf("unexpected daily payload %s", daily)
	}

	if f.stored(t) {
		t.Fatalf("completion should clear the checkpoint")
	}
	if status, _ := uc.Status(ctx); status.State != "no_session" {
		t.Fatalf("expected no session after completion, got %+v", status)
	}
}

func TestCompleteKeepsCheckpointWhenQueueingFails(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture()
	f.outbox.rejectOn = "complete_daily"
	uc := f.launch()
	uc.Start(ctx, journaldto.StartInput{Mode: "notes"})
	uc.Answer(ctx, journaldto.AnswerInput{Correct: true, Points: 2})

	if _, err := uc.Complete(ctx); err == nil {
		t.Fatalf("complete should report the queueing failure")
	}
	if !f.stored(t) {
		t.Fatalf("checkpoint should be flushed so the session can be completed later")
	}
	if status, _ := uc.Status(ctx); status.Session == nil {
		t.Fatalf("session should still be in progress")
	}
}

func TestClearIsIdempotent(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture()
	uc := f.launch()
	uc.Start(ctx, journaldto.StartInput{Mode: "notes"})
	uc.Suspend(ctx)
	if err := uc.Clear(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if err := uc.Clear(ctx); err != nil {
		t.Fatalf("second clear: %v", err)
	}
	if f.stored(t) {
		t.Fatalf("clear should delete the checkpoint")
	}
}
