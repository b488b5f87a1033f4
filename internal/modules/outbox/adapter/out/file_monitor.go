package out

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"

	"drillsync/internal/modules/outbox/domain"
	outboxout "drillsync/internal/modules/outbox/port/out"
	"drillsync/internal/platform/logging"
)

// FileMonitor reports the connectivity status stored in a JSON file and, once started,
// watches the file's directory so edits made by another process reach observers.
// A missing file means disconnected with unknown reachability and transport.
type FileMonitor struct {
	path   string
	logger *slog.Logger
	*StaticMonitor

	mu      sync.Mutex
	watcher *fsnotify.Watcher
	done    chan struct{}
	wg      sync.WaitGroup
}

var (
	_ outboxout.NetworkMonitor   = (*FileMonitor)(nil)
	_ outboxout.NetworkPublisher = (*FileMonitor)(nil)
)

func NewFileMonitor(path string, logger *slog.Logger) *FileMonitor {
	m := &FileMonitor{
		path:          filepath.Clean(path),
		logger:        logging.OrDefault(logger).With("component", "network_monitor"),
		StaticMonitor: NewStaticMonitor(domain.NetworkStatus{}),
	}
	if status, err := ReadNetworkStatus(m.path); err != nil {
		m.logger.Warn("read network status", "path", m.path, "error", err)
	} else {
		m.StaticMonitor.Set(status)
	}
	return m
}

// Start begins watching. It returns once the watch is registered.
func (m *FileMonitor) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.watcher != nil {
		return fmt.Errorf("network monitor already running")
	}

	dir := filepath.Dir(m.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create network status dir: %w", err)
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create fsnotify watcher: %w", err)
	}
	if err := watcher.Add(dir); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	m.watcher = watcher
	m.done = make(chan struct{})

	// pick up anything written between construction and the watch being registered
	m.reload()

	m.wg.Add(1)
	go m.loop(ctx, watcher, m.done)
	return nil
}

// Stop ends the watch and waits for the event loop. Safe to call when not running.
func (m *FileMonitor) Stop() error {
	m.mu.Lock()
	watcher := m.watcher
	done := m.done
	m.watcher = nil
	m.done = nil
	m.mu.Unlock()
	if watcher == nil {
		return nil
	}
	close(done)
	err := watcher.Close()
	m.wg.Wait()
	if err != nil {
		return fmt.Errorf("close fsnotify watcher: %w", err)
	}
	return nil
}

func (m *FileMonitor) loop(ctx context.Context, watcher *fsnotify.Watcher, done <-chan struct{}) {
	defer m.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case <-done:
			return
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != m.path {
				continue
			}
			if event.Has(fsnotify.Create) || event.Has(fsnotify.Write) || event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
				m.reload()
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			m.logger.Warn("network status watch error", "error", err)
		}
	}
}

func (m *FileMonitor) reload() {
	status, err := ReadNetworkStatus(m.path)
	if err != nil {
		m.logger.Warn("ignoring unreadable network status", "path", m.path, "error", err)
		return
	}
	if m.StaticMonitor.Set(status) {
		m.logger.Info("network status changed",
			"connected", status.Connected,
			"reachable", status.ReachableLabel(),
			"transport", status.TransportLabel())
	}
}

// Publish writes the status file and applies it right away; a running watch in another
// process sees the same write.
func (m *FileMonitor) Publish(ctx context.Context, status domain.NetworkStatus) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := WriteNetworkStatus(m.path, status); err != nil {
		return err
	}
	m.StaticMonitor.Set(status)
	return nil
}

// ReadNetworkStatus decodes the status file. A missing file is reported as offline.
func ReadNetworkStatus(path string) (domain.NetworkStatus, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return domain.NetworkStatus{}, nil
		}
		return domain.NetworkStatus{}, fmt.Errorf("read network status: %w", err)
	}
	status := domain.NetworkStatus{}
	if err := json.Unmarshal(raw, &status); err != nil {
		return domain.NetworkStatus{}, fmt.Errorf("decode network status: %w", err)
	}
	return status, nil
}

// WriteNetworkStatus replaces the status file atomically so watchers never observe a
// partially written document.
func WriteNetworkStatus(path string, status domain.NetworkStatus) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create network status dir: %w", err)
	}
	payload, err := json.MarshalIndent(status, "", "  ")
	if err != nil {
		return fmt.Errorf("encode network status: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".network-*.tmp")
	if err != nil {
		return fmt.Errorf("create network status temp: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(payload); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write network status: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close network status: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("replace network status: %w", err)
	}
	return nil
}
