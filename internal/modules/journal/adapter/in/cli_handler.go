package in

import (
	"context"

	journaldto "drillsync/internal/modules/journal/dto"
	journalin "drillsync/internal/modules/journal/port/in"
)

type CLIHandler struct {
	usecase journalin.Usecase
}

func NewCLIHandler(usecase journalin.Usecase) CLIHandler {
	return CLIHandler{usecase: usecase}
}

func (h CLIHandler) Check(ctx context.Context) (journaldto.CheckOutput, error) {
	return h.usecase.Check(ctx)
}

func (h CLIHandler) Start(ctx context.Context, mode string, items []string, difficulty int) (journaldto.SessionOutput, error) {
	return h.usecase.Start(ctx, journaldto.StartInput{Mode: mode, Items: items, Difficulty: difficulty})
}

func (h CLIHandler) Resume(ctx context.Context) (journaldto.SessionOutput, error) {
	return h.usecase.Resume(ctx)
}

func (h CLIHandler) Answer(ctx context.Context, correct bool, points int) (journaldto.AnswerOutput, error) {
	return h.usecase.Answer(ctx, journaldto.AnswerInput{Correct: correct, Points: points})
}

func (h CLIHandler) Suspend(ctx context.Context) (journaldto.SuspendOutput, error) {
	return h.usecase.Suspend(ctx)
}

func (h CLIHandler) Complete(ctx context.Context) (journaldto.CompleteOutput, error) {
	return h.usecase.Complete(ctx)
}

func (h CLIHandler) Clear(ctx context.Context) error {
	return h.usecase.Clear(ctx)
}

func (h CLIHandler) Status(ctx context.Context) (journaldto.StatusOutput, error) {
	return h.usecase.Status(ctx)
}
