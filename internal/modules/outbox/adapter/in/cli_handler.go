package in

import (
	"context"
	"encoding/json"
	"fmt"

	outboxdto "drillsync/internal/modules/outbox/dto"
	outboxin "drillsync/internal/modules/outbox/port/in"
	apperrors "drillsync/internal/platform/errors"
)

type CLIHandler struct {
	usecase outboxin.Usecase
}

func NewCLIHandler(usecase outboxin.Usecase) CLIHandler {
	return CLIHandler{usecase: usecase}
}

// Enqueue takes the payload as raw JSON text; an empty payload is stored as null.
func (h CLIHandler) Enqueue(ctx context.Context, action, payload string) (outboxdto.EnqueueOutput, error) {
	var data any
	if payload != "" {
		if !json.Valid([]byte(payload)) {
			return outboxdto.EnqueueOutput{}, fmt.Errorf("%w: payload is not valid json", apperrors.ErrInvalidInput)
		}
		data = json.RawMessage(payload)
	}
	return h.usecase.Enqueue(ctx, outboxdto.EnqueueInput{Action: action, Data: data})
}

func (h CLIHandler) Drain(ctx context.Context) (outboxdto.DrainOutput, error) {
	return h.usecase.Drain(ctx)
}

func (h CLIHandler) List(ctx context.Context) (outboxdto.ListOutput, error) {
	return h.usecase.List(ctx)
}

func (h CLIHandler) Clear(ctx context.Context) error {
	return h.usecase.Clear(ctx)
}

func (h CLIHandler) Network(ctx context.Context) (outboxdto.NetworkOutput, error) {
	return h.usecase.Network(ctx)
}

func (h CLIHandler) SetNetwork(ctx context.Context, connected bool, reachable, transport string) (outboxdto.NetworkOutput, error) {
	return h.usecase.SetNetwork(ctx, outboxdto.NetworkInput{Connected: connected, Reachable: reachable, Transport: transport})
}
