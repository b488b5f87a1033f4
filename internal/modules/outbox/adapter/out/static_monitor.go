package out

import (
	"context"
	"sync"

	"drillsync/internal/modules/outbox/domain"
	outboxout "drillsync/internal/modules/outbox/port/out"
)

// StaticMonitor holds a connectivity status set by its owner and fans changes out to
// observers. It backs tests and the --online override, and FileMonitor broadcasts
// through it.
type StaticMonitor struct {
	mu        sync.Mutex
	status    domain.NetworkStatus
	observers map[int]outboxout.NetworkObserver
	nextID    int
}

func NewStaticMonitor(initial domain.NetworkStatus) *StaticMonitor {
	return &StaticMonitor{status: initial, observers: map[int]outboxout.NetworkObserver{}}
}

func (m *StaticMonitor) Current() domain.NetworkStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

func (m *StaticMonitor) Subscribe(observer outboxout.NetworkObserver) outboxout.Unsubscribe {
	m.mu.Lock()
	id := m.nextID
	m.nextID++
	m.observers[id] = observer
	m.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			delete(m.observers, id)
			m.mu.Unlock()
		})
	}
}

// Set records the status and notifies observers when it differs from the previous one.
// Observers run on the caller's goroutine, outside the lock.
func (m *StaticMonitor) Set(status domain.NetworkStatus) bool {
	m.mu.Lock()
	if m.status.Equal(status) {
		m.mu.Unlock()
		return false
	}
	m.status = status
	observers := make([]outboxout.NetworkObserver, 0, len(m.observers))
	for _, o := range m.observers {
		observers = append(observers, o)
	}
	m.mu.Unlock()

	for _, o := range observers {
		o.OnNetworkChange(status)
	}
	return true
}

// SetConnected is shorthand for flipping only the connected flag.
func (m *StaticMonitor) SetConnected(connected bool) bool {
	status := m.Current()
	status.Connected = connected
	return m.Set(status)
}

func (m *StaticMonitor) Publish(_ context.Context, status domain.NetworkStatus) error {
	m.Set(status)
	return nil
}
