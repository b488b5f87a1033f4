package out

import (
	"context"
	"encoding/json"
	"fmt"

	"drillsync/internal/modules/journal/domain"
	journalout "drillsync/internal/modules/journal/port/out"
	apperrors "drillsync/internal/platform/errors"
	"drillsync/internal/platform/kv"
)

// JournalKey is stable across versions; older installs read it back on upgrade.
const JournalKey = "session.journal"

type KVRecordStore struct {
	store kv.Store
}

func NewKVRecordStore(store kv.Store) journalout.RecordStore {
	return &KVRecordStore{store: store}
}

func (s *KVRecordStore) Load(ctx context.Context) (domain.Record, error) {
	raw, ok, err := s.store.Get(ctx, JournalKey)
	if err != nil {
		return domain.Record{}, fmt.Errorf("read session journal: %w", err)
	}
	if !ok {
		return domain.Record{}, apperrors.ErrNoSession
	}
	record := domain.Record{}
	if err := json.Unmarshal([]byte(raw), &record); err != nil {
		return domain.Record{}, fmt.Errorf("%w: decode session journal: %v", apperrors.ErrCorruptPayload, err)
	}
	if err := record.Validate(); err != nil {
		return domain.Record{}, fmt.Errorf("%w: session journal: %v", apperrors.ErrCorruptPayload, err)
	}
	return record, nil
}

func (s *KVRecordStore) Save(ctx context.Context, record domain.Record) error {
	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("encode session journal: %w", err)
	}
	if err := s.store.Set(ctx, JournalKey, string(payload)); err != nil {
		return fmt.Errorf("write session journal: %w", err)
	}
	return nil
}

func (s *KVRecordStore) Clear(ctx context.Context) error {
	if err := s.store.Delete(ctx, JournalKey); err != nil {
		return fmt.Errorf("clear session journal: %w", err)
	}
	return nil
}
