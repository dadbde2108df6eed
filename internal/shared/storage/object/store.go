package object

import (
	"context"
	"errors"
	"io"
)

// ErrNotFound is returned by Open when no object exists at the key.
var ErrNotFound = errors.New("object not found")

// ObjectStore defines the contract for writing, reading and removing binary objects by key.
// Keys are caller-derived relative paths using "/" separators.
type ObjectStore interface {
	Put(ctx context.Context, key string, contentType string, r io.Reader) (sizeBytes int64, err error)
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	// Remove deletes every key. Missing keys are not an error.
	Remove(ctx context.Context, keys ...string) error
}
