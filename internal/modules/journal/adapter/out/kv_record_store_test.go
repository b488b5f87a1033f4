package out_test

import (
	"context"
	"errors"
	"testing"
	"time"

	journalout "drillsync/internal/modules/journal/adapter/out"
	"drillsync/internal/modules/journal/domain"
	apperrors "drillsync/internal/platform/errors"
	"drillsync/internal/platform/kv"
)

func TestKVRecordStoreRoundTrip(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	backing := kv.NewMemoryStore()
	store := journalout.NewKVRecordStore(backing)

	if _, err := store.Load(ctx); !errors.Is(err, apperrors.ErrNoSession) {
		t.Fatalf("expected no session, got %v", err)
	}

	at := time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)
	record := domain.Record{
		Mode:           domain.ModeChords,
		SelectedItems:  []string{"Cmaj", "Am"},
		Difficulty:     2,
		Score:          30,
		Attempts:       4,
		Streak:         2,
		StartTime:      at,
		LastUpdateTime: at.Add(5 * time.Minute),
	}
	if err := store.Save(ctx, record); err != nil {
		t.Fatalf("save: %v", err)
	}
	raw, ok, _ := backing.Get(ctx, journalout.JournalKey)
	if !ok || raw == "" {
		t.Fatalf("expected record under %s", journalout.JournalKey)
	}
	got, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.Score != 30 || got.Attempts != 4 || len(got.SelectedItems) != 2 || !got.LastUpdateTime.Equal(record.LastUpdateTime) {
		t.Fatalf("unexpected record after reload: %+v", got)
	}

	if err := store.Clear(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if _, ok, _ := backing.Get(ctx, journalout.JournalKey); ok {
		t.Fatalf("key should be gone after clear")
	}
}

func TestKVRecordStoreFlagsCorruptPayload(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	backing := kv.NewMemoryStore()
	store := journalout.NewKVRecordStore(backing)

	for _, payload := range []string{`{not json`, `{"mode":"scales","attempts":1}`} {
		if err := backing.Set(ctx, journalout.JournalKey, payload); err != nil {
			t.Fatalf("seed: %v", err)
		}
		if _, err := store.Load(ctx); !errors.Is(err, apperrors.ErrCorruptPayload) {
			t.Fatalf("payload %q: expected corrupt payload, got %v", payload, err)
		}
	}
}
