package out

import (
	"context"

	"drillsync/internal/modules/outbox/domain"
)

// QueueStore persists the whole queue as one document.
type QueueStore interface {
	Load(ctx context.Context) ([]domain.Item, error)
	Save(ctx context.Context, items []domain.Item) error
}

// SyncTarget receives queued items one at a time. A nil error acknowledges the item.
// Deliveries are at-least-once, so implementations must tolerate a repeated item id.
type SyncTarget interface {
	Deliver(ctx context.Context, item domain.Item) error
}

// NetworkObserver is notified on every connectivity transition.
type NetworkObserver interface {
	OnNetworkChange(status domain.NetworkStatus)
}

// Unsubscribe detaches an observer. Calling it more than once is harmless.
type Unsubscribe func()

type NetworkMonitor interface {
	Current() domain.NetworkStatus
	Subscribe(observer NetworkObserver) Unsubscribe
}

// NetworkPublisher records a new connectivity status where its monitor will pick it up.
type NetworkPublisher interface {
	Publish(ctx context.Context, status domain.NetworkStatus) error
}
