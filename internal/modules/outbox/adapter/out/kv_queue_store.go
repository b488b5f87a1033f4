package out

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"drillsync/internal/modules/outbox/domain"
	outboxout "drillsync/internal/modules/outbox/port/out"
	apperrors "drillsync/internal/platform/errors"
	"drillsync/internal/platform/kv"
	"drillsync/internal/platform/logging"
)

// QueueKey is stable across versions.
const QueueKey = "sync.outbox.queue"

type KVQueueStore struct {
	store  kv.Store
	logger *slog.Logger
}

func NewKVQueueStore(store kv.Store, logger *slog.Logger) outboxout.QueueStore {
	return &KVQueueStore{store: store, logger: logging.OrDefault(logger).With("component", "outbox_queue_store")}
}

// Load reads the queue document. A document that is not a JSON array is corrupt; inside
// a well-formed array, items that don't decode or validate (or repeat an earlier id) are
// dropped and logged so the rest of the queue survives.
func (s *KVQueueStore) Load(ctx context.Context) ([]domain.Item, error) {
	raw, ok, err := s.store.Get(ctx, QueueKey)
	if err != nil {
		return nil, fmt.Errorf("read outbox queue: %w", err)
	}
	if !ok {
		return []domain.Item{}, nil
	}
	entries := []json.RawMessage{}
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		return nil, fmt.Errorf("%w: decode outbox queue: %v", apperrors.ErrCorruptPayload, err)
	}
	items := make([]domain.Item, 0, len(entries))
	seen := make(map[string]struct{}, len(entries))
	for i, entry := range entries {
		item := domain.Item{}
		if err := json.Unmarshal(entry, &item); err != nil {
			s.logger.Warn("dropping undecodable queue item", "index", i, "error", err)
			continue
		}
		if err := item.Validate(); err != nil {
			s.logger.Warn("dropping invalid queue item", "index", i, "id", item.ID, "error", err)
			continue
		}
		if _, dup := seen[item.ID]; dup {
			s.logger.Warn("dropping duplicate queue item", "index", i, "id", item.ID)
			continue
		}
		seen[item.ID] = struct{}{}
		items = append(items, item)
	}
	return items, nil
}

func (s *KVQueueStore) Save(ctx context.Context, items []domain.Item) error {
	if items == nil {
		items = []domain.Item{}
	}
	payload, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("encode outbox queue: %w", err)
	}
	if err := s.store.Set(ctx, QueueKey, string(payload)); err != nil {
		return fmt.Errorf("write outbox queue: %w", err)
	}
	return nil
}
