package usecase

import (
	"context"
	"fmt"
	"strings"

	"drillsync/internal/modules/outbox/domain"
	outboxdto "drillsync/internal/modules/outbox/dto"
	outboxin "drillsync/internal/modules/outbox/port/in"
	outboxout "drillsync/internal/modules/outbox/port/out"
	"drillsync/internal/modules/outbox/service"
	apperrors "drillsync/internal/platform/errors"
)

type Interactor struct {
	svc       *service.SyncOutbox
	publisher outboxout.NetworkPublisher
}

// NewInteractor wires the outbox use cases. publisher may be nil, in which case the
// network status is read-only.
func NewInteractor(svc *service.SyncOutbox, publisher outboxout.NetworkPublisher) outboxin.Usecase {
	return &Interactor{svc: svc, publisher: publisher}
}

// Enqueue queues the action and, when online, immediately tries to deliver it.
func (i *Interactor) Enqueue(ctx context.Context, input outboxdto.EnqueueInput) (outboxdto.EnqueueOutput, error) {
	action := domain.Action(strings.TrimSpace(input.Action))
	item, err := i.svc.Enqueue(ctx, action, input.Data)
	if err != nil {
		return outboxdto.EnqueueOutput{}, err
	}
	report := i.svc.ProcessQueue(ctx)
	return outboxdto.EnqueueOutput{Item: toItemOutput(item), Drain: toDrainOutput(report)}, nil
}

func (i *Interactor) Drain(ctx context.Context) (outboxdto.DrainOutput, error) {
	if err := ctx.Err(); err != nil {
		return outboxdto.DrainOutput{}, err
	}
	return toDrainOutput(i.svc.ProcessQueue(ctx)), nil
}

func (i *Interactor) List(context.Context) (outboxdto.ListOutput, error) {
	items := i.svc.Items()
	out := outboxdto.ListOutput{
		Items:   make([]outboxdto.ItemOutput, 0, len(items)),
		Busy:    i.svc.Busy(),
		Network: toNetworkOutput(i.svc.Network()),
	}
	for _, item := range items {
		out.Items = append(out.Items, toItemOutput(item))
	}
	return out, nil
}

func (i *Interactor) Clear(ctx context.Context) error {
	i.svc.ClearQueue(ctx)
	return nil
}

func (i *Interactor) Network(context.Context) (outboxdto.NetworkOutput, error) {
	return toNetworkOutput(i.svc.Network()), nil
}

func (i *Interactor) SetNetwork(ctx context.Context, input outboxdto.NetworkInput) (outboxdto.NetworkOutput, error) {
	if i.publisher == nil {
		return outboxdto.NetworkOutput{}, fmt.Errorf("%w: network status is read-only", apperrors.ErrInvalidInput)
	}
	status := domain.NetworkStatus{Connected: input.Connected}
	switch strings.ToLower(strings.TrimSpace(input.Reachable)) {
	case "", "unknown":
	case "yes", "true":
		reachable := true
		status.Reachable = &reachable
	case "no", "false":
		reachable := false
		status.Reachable = &reachable
	default:
		return outboxdto.NetworkOutput{}, fmt.Errorf("%w: reachable must be yes, no or unknown", apperrors.ErrInvalidInput)
	}
	if transport := strings.TrimSpace(input.Transport); transport != "" {
		status.Transport = &transport
	}
	if err := i.publisher.Publish(ctx, status); err != nil {
		return outboxdto.NetworkOutput{}, err
	}
	return toNetworkOutput(status), nil
}

func toItemOutput(item domain.Item) outboxdto.ItemOutput {
	return outboxdto.ItemOutput{
		ID:        item.ID,
		Action:    string(item.Action),
		Data:      item.Data,
		Payload:   string(item.Data),
		Timestamp: item.Timestamp,
	}
}

func toDrainOutput(report domain.DrainReport) outboxdto.DrainOutput {
	return outboxdto.DrainOutput{
		Ran:       report.Ran(),
		Skipped:   string(report.Skipped),
		Attempted: report.Attempted,
		Delivered: report.Delivered,
		Failed:    report.Failed,
		Remaining: report.Remaining,
	}
}

func toNetworkOutput(status domain.NetworkStatus) outboxdto.NetworkOutput {
	return outboxdto.NetworkOutput{
		Connected: status.Connected,
		Reachable: status.ReachableLabel(),
		Transport: status.TransportLabel(),
	}
}
