package in

import (
	"context"

	"drillsync/internal/modules/outbox/dto"
)

type Usecase interface {
	Enqueue(ctx context.Context, input dto.EnqueueInput) (dto.EnqueueOutput, error)
	Drain(ctx context.Context) (dto.DrainOutput, error)
	List(ctx context.Context) (dto.ListOutput, error)
	Clear(ctx context.Context) error
	Network(ctx context.Context) (dto.NetworkOutput, error)
	SetNetwork(ctx context.Context, input dto.NetworkInput) (dto.NetworkOutput, error)
}
