package out_test

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	outboxadapter "drillsync/internal/modules/outbox/adapter/out"
	"drillsync/internal/modules/outbox/domain"
	apperrors "drillsync/internal/platform/errors"
	"drillsync/internal/platform/kv"
	"drillsync/internal/platform/logging"
)

func item(id string, action domain.Action, data string) domain.Item {
	return domain.Item{ID: id, Action: action, Data: json.RawMessage(data), Timestamp: time.Date(2026, 7, 1, 9, 0, 0, 0, time.UTC)}
}

func TestKVQueueStoreRoundTrip(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	backing := kv.NewMemoryStore()
	store := outboxadapter.NewKVQueueStore(backing, logging.Discard())

	items, err := store.Load(ctx)
	if err != nil || len(items) != 0 {
		t.Fatalf("missing queue should load empty, got %v err=%v", items, err)
	}
	want := []domain.Item{
		item("a", domain.ActionSaveStats, `{"score":10}`),
		item("b", domain.ActionSaveSettings, `{"theme":"dark"}`),
	}
	if err := store.Save(ctx, want); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(got) != 2 || got[0].ID != "a" || got[1].ID != "b" || string(got[1].Data) != `{"theme":"dark"}` {
		t.Fatalf("queue order or content lost: %+v", got)
	}
	if err := store.Save(ctx, nil); err != nil {
		t.Fatalf("save empty: %v", err)
	}
	raw, _, _ := backing.Get(ctx, outboxadapter.QueueKey)
	if raw != "[]" {
		t.Fatalf("empty queue should persist as [], got %q", raw)
	}
}

func TestKVQueueStoreFlagsCorruptPayload(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	backing := kv.NewMemoryStore()
	store := outboxadapter.NewKVQueueStore(backing, logging.Discard())
	for _, payload := range []string{`[{"id":`, `{"id":"x"}`} {
		_ = backing.Set(ctx, outboxadapter.QueueKey, payload)
		if _, err := store.Load(ctx); !errors.Is(err, apperrors.ErrCorruptPayload) {
			t.Fatalf("payload %q: expected corrupt payload, got %v", payload, err)
		}
	}
}

func TestKVQueueStoreDropsOnlyInvalidItems(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	backing := kv.NewMemoryStore()
	store := outboxadapter.NewKVQueueStore(backing, logging.Discard())
	payload := `[
		{"id":"a","action":"save_stats","data":{"score":10},"timestamp":"2026-07-01T09:00:00Z"},
		{"id":"x","action":"launch_rocket","data":{},"timestamp":"2026-07-01T09:00:01Z"},
		{"id":12,"action":"save_stats","data":{}},
		{"id":"a","action":"save_settings","data":{},"timestamp":"2026-07-01T09:00:02Z"},
		{"id":"b","action":"complete_daily","data":null,"timestamp":"2026-07-01T09:00:03Z"}
	]`
	if err := backing.Set(ctx, outboxadapter.QueueKey, payload); err != nil {
		t.Fatalf("seed: %v", err)
	}
	got, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("a well-formed array must load, got %v", err)
	}
	if len(got) != 2 || got[0].ID != "a" || got[0].Action != domain.ActionSaveStats || got[1].ID != "b" {
		t.Fatalf("expected valid items a and b in order, got %+v", got)
	}
}

func TestFileTargetIsIdempotentPerID(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "out", "delivered.jsonl")
	target := outboxadapter.NewFileTarget(path)

	first := item("a", domain.ActionSaveStats, `{"score":10}`)
	if err := target.Deliver(ctx, first); err != nil {
		t.Fatalf("deliver: %v", err)
	}
	if err := target.Deliver(ctx, first); err != nil {
		t.Fatalf("redeliver: %v", err)
	}
	// a fresh target must learn prior deliveries from the log itself
	reopened := outboxadapter.NewFileTarget(path)
	if err := reopened.Deliver(ctx, first); err != nil {
		t.Fatalf("redeliver after reopen: %v", err)
	}
	if err := reopened.Deliver(ctx, item("b", domain.ActionCompleteDaily, `{}`)); err != nil {
		t.Fatalf("deliver second: %v", err)
	}

	file, err := os.Open(path)
	if err != nil {
		t.Fatalf("open log: %v", err)
	}
	defer file.Close()
	ids := []string{}
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		entry := map[string]any{}
		if err := json.Unmarshal(scanner.Bytes(), &entry); err != nil {
			t.Fatalf("decode line: %v", err)
		}
		ids = append(ids, entry["id"].(string))
	}
	if len(ids) != 2 || ids[0] != "a" || ids[1] != "b" {
		t.Fatalf("expected one line per id, got %v", ids)
	}
}

func TestFileTargetHonoursCancellation(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	target := outboxadapter.NewFileTarget(filepath.Join(t.TempDir(), "delivered.jsonl"))
	if err := target.Deliver(ctx, item("a", domain.ActionSaveStats, `{}`)); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancellation, got %v", err)
	}
}

type recordingObserver struct {
	mu       sync.Mutex
	statuses []domain.NetworkStatus
	notify   chan struct{}
}

func newRecordingObserver() *recordingObserver {
	return &recordingObserver{notify: make(chan struct{}, 16)}
}

func (r *recordingObserver) OnNetworkChange(status domain.NetworkStatus) {
	r.mu.Lock()
	r.statuses = append(r.statuses, status)
	r.mu.Unlock()
	r.notify <- struct{}{}
}

func (r *recordingObserver) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.statuses)
}

func TestStaticMonitorNotifiesOnChangeOnly(t *testing.T) {
	t.Parallel()
	monitor := outboxadapter.NewStaticMonitor(domain.NetworkStatus{})
	observer := newRecordingObserver()
	unsubscribe := monitor.Subscribe(observer)

	if !monitor.SetConnected(true) {
		t.Fatalf("offline -> online is a change")
	}
	if monitor.SetConnected(true) {
		t.Fatalf("setting the same status is not a change")
	}
	monitor.SetConnected(false)
	if observer.count() != 2 {
		t.Fatalf("expected two notifications, got %d", observer.count())
	}

	unsubscribe()
	unsubscribe()
	monitor.SetConnected(true)
	if observer.count() != 2 {
		t.Fatalf("unsubscribed observer must not be notified")
	}
	if !monitor.Current().Connected {
		t.Fatalf("current status should reflect the last set")
	}
}

func TestNetworkStatusFileRoundTrip(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "network.json")
	status, err := outboxadapter.ReadNetworkStatus(path)
	if err != nil || status.Connected || status.Reachable != nil {
		t.Fatalf("missing file should read as offline/unknown, got %+v err=%v", status, err)
	}
	reachable := false
	transport := "cellular"
	want := domain.NetworkStatus{Connected: true, Reachable: &reachable, Transport: &transport}
	if err := outboxadapter.WriteNetworkStatus(path, want); err != nil {
		t.Fatalf("write: %v", err)
	}
	got, err := outboxadapter.ReadNetworkStatus(path)
	if err != nil || !got.Equal(want) {
		t.Fatalf("expected %+v, got %+v err=%v", want, got, err)
	}
}

func TestFileMonitorPropagatesFileChanges(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "network.json")
	monitor := outboxadapter.NewFileMonitor(path, logging.Discard())
	if monitor.Current().Connected {
		t.Fatalf("no file means offline")
	}
	observer := newRecordingObserver()
	monitor.Subscribe(observer)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := monitor.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer monitor.Stop()

	wifi := "wifi"
	if err := outboxadapter.WriteNetworkStatus(path, domain.NetworkStatus{Connected: true, Transport: &wifi}); err != nil {
		t.Fatalf("write status: %v", err)
	}
	select {
	case <-observer.notify:
	case <-time.After(5 * time.Second):
		t.Fatalf("timed out waiting for network change notification")
	}
	current := monitor.Current()
	if !current.Connected || current.TransportLabel() != "wifi" {
		t.Fatalf("monitor did not pick up the file, got %+v", current)
	}

	if err := monitor.Stop(); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if err := monitor.Stop(); err != nil {
		t.Fatalf("second stop should be a no-op: %v", err)
	}
}

func TestFileMonitorReadsExistingFileOnConstruction(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "network.json")
	if err := outboxadapter.WriteNetworkStatus(path, domain.NetworkStatus{Connected: true}); err != nil {
		t.Fatalf("write status: %v", err)
	}
	if !outboxadapter.NewFileMonitor(path, logging.Discard()).Current().Connected {
		t.Fatalf("initial status should come from the file")
	}
}

func TestFileMonitorPublishWritesAndNotifies(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "nested", "network.json")
	monitor := outboxadapter.NewFileMonitor(path, logging.Discard())
	observer := newRecordingObserver()
	monitor.Subscribe(observer)

	if err := monitor.Publish(context.Background(), domain.NetworkStatus{Connected: true}); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if observer.count() != 1 || !monitor.Current().Connected {
		t.Fatalf("publish should apply the status immediately")
	}
	stored, err := outboxadapter.ReadNetworkStatus(path)
	if err != nil || !stored.Connected {
		t.Fatalf("publish should write the file, got %+v err=%v", stored, err)
	}
}
