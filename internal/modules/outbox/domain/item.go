package domain

import (
	"encoding/json"
	"fmt"
	"time"

	apperrors "drillsync/internal/platform/errors"
)

// Action is the closed set of state changes the sync target understands.
type Action string

const (
	ActionSaveStats     Action = "save_stats"
	ActionSaveSettings  Action = "save_settings"
	ActionCompleteDaily Action = "complete_daily"
)

func Actions() []Action {
	return []Action{ActionSaveStats, ActionSaveSettings, ActionCompleteDaily}
}

func (a Action) Validate() error {
	switch a {
	case ActionSaveStats, ActionSaveSettings, ActionCompleteDaily:
		return nil
	default:
		return fmt.Errorf("%w: %q", apperrors.ErrUnknownAction, string(a))
	}
}

// Item is one queued action. Items are never modified after creation.
type Item struct {
	ID        string          `json:"id"`
	Action    Action          `json:"action"`
	Data      json.RawMessage `json:"data"`
	Timestamp time.Time       `json:"timestamp"`
}

func (i Item) Validate() error {
	if i.ID == "" {
		return fmt.Errorf("queue item id is required")
	}
	if err := i.Action.Validate(); err != nil {
		return err
	}
	if len(i.Data) > 0 && !json.Valid(i.Data) {
		return fmt.Errorf("queue item %s carries invalid json data", i.ID)
	}
	return nil
}

// EncodeData turns an arbitrary payload into the opaque JSON body of an item.
// Raw JSON is kept as is after validation.
func EncodeData(data any) (json.RawMessage, error) {
	switch v := data.(type) {
	case nil:
		return json.RawMessage("null"), nil
	case json.RawMessage:
		if !json.Valid(v) {
			return nil, fmt.Errorf("%w: payload is not valid json", apperrors.ErrInvalidInput)
		}
		return append(json.RawMessage(nil), v...), nil
	default:
		raw, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("%w: encode payload: %v", apperrors.ErrInvalidInput, err)
		}
		return raw, nil
	}
}

// SkipReason explains why a drain did not run.
type SkipReason string

const (
	SkipNone    SkipReason = ""
	SkipOffline SkipReason = "offline"
	SkipEmpty   SkipReason = "empty"
	SkipBusy    SkipReason = "busy"
)

// DrainReport summarises one pass over the queue.
type DrainReport struct {
	Skipped   SkipReason
	Attempted []string
	Delivered []string
	Failed    []string
	Remaining int
}

func (r DrainReport) Ran() bool {
	return r.Skipped == SkipNone
}
