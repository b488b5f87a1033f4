// Package kv holds the durable key/value stores the journal and outbox persist through.
//
// Values are opaque strings (the callers store JSON documents). Deleting a key that
// does not exist is not an error, and a missing key is reported by Get's ok result
// rather than an error.
package kv

import (
	"context"
	"fmt"
	"regexp"

	apperrors "drillsync/internal/platform/errors"
)

type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
	Close() error
}

var keyPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)

// ValidateKey rejects keys that cannot double as file names.
func ValidateKey(key string) error {
	if !keyPattern.MatchString(key) {
		return fmt.Errorf("%w: store key %q", apperrors.ErrInvalidInput, key)
	}
	return nil
}
