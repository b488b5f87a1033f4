package in

import (
	"context"

	"drillsync/internal/modules/journal/dto"
)

type Usecase interface {
	Check(ctx context.Context) (dto.CheckOutput, error)
	Start(ctx context.Context, input dto.StartInput) (dto.SessionOutput, error)
	Resume(ctx context.Context) (dto.SessionOutput, error)
	Answer(ctx context.Context, input dto.AnswerInput) (dto.AnswerOutput, error)
	Suspend(ctx context.Context) (dto.SuspendOutput, error)
	Complete(ctx context.Context) (dto.CompleteOutput, error)
	Clear(ctx context.Context) error
	Status(ctx context.Context) (dto.StatusOutput, error)
}
