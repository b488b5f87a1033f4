package out

import (
	"context"

	"drillsync/internal/modules/journal/domain"
)

// RecordStore persists the single session checkpoint. Load returns
// apperrors.ErrNoSession when nothing is stored and wraps apperrors.ErrCorruptPayload
// when the stored document cannot be decoded.
type RecordStore interface {
	Load(ctx context.Context) (domain.Record, error)
	Save(ctx context.Context, record domain.Record) error
	Clear(ctx context.Context) error
}
