package out

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"drillsync/internal/modules/outbox/domain"
	outboxout "drillsync/internal/modules/outbox/port/out"
)

// FileTarget acknowledges items by appending them to a JSON-lines delivery log. An id
// that is already in the log is acknowledged again without a second line, which makes
// redelivery harmless.
type FileTarget struct {
	path string
	now  func() time.Time

	mu        sync.Mutex
	delivered map[string]struct{}
}

type deliveryLine struct {
	ID          string          `json:"id"`
	Action      domain.Action   `json:"action"`
	Data        json.RawMessage `json:"data"`
	Timestamp   time.Time       `json:"timestamp"`
	DeliveredAt time.Time       `json:"delivered_at"`
}

func NewFileTarget(path string) outboxout.SyncTarget {
	return &FileTarget{path: path, now: func() time.Time { return time.Now().UTC() }}
}

func (t *FileTarget) Deliver(ctx context.Context, item domain.Item) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := item.Validate(); err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.delivered == nil {
		seen, err := t.scan()
		if err != nil {
			return err
		}
		t.delivered = seen
	}
	if _, ok := t.delivered[item.ID]; ok {
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(t.path), 0o755); err != nil {
		return fmt.Errorf("create delivery log dir: %w", err)
	}
	file, err := os.OpenFile(t.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open delivery log: %w", err)
	}
	defer file.Close()
	payload, err := json.Marshal(deliveryLine{
		ID:          item.ID,
		Action:      item.Action,
		Data:        item.Data,
		Timestamp:   item.Timestamp,
		DeliveredAt: t.now(),
	})
	if err != nil {
		return fmt.Errorf("encode delivery: %w", err)
	}
	if _, err := file.Write(append(payload, '\n')); err != nil {
		return fmt.Errorf("write delivery log: %w", err)
	}
	if err := file.Sync(); err != nil {
		return fmt.Errorf("sync delivery log: %w", err)
	}
	t.delivered[item.ID] = struct{}{}
	return nil
}

func (t *FileTarget) scan() (map[string]struct{}, error) {
	seen := map[string]struct{}{}
	file, err := os.Open(t.path)
	if err != nil {
		if os.IsNotExist(err) {
			return seen, nil
		}
		return nil, fmt.Errorf("open delivery log: %w", err)
	}
	defer file.Close()
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		entry := deliveryLine{}
		if err := json.Unmarshal(line, &entry); err != nil {
			return nil, fmt.Errorf("decode delivery log line: %w", err)
		}
		seen[entry.ID] = struct{}{}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan delivery log: %w", err)
	}
	return seen, nil
}
