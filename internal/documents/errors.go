package documents

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidInput        = errors.New("invalid input")
	ErrNotFound            = errors.New("document not found")
	ErrValidation          = errors.New("document rejected")
	ErrStoreUnavailable    = errors.New("object store unavailable")
	ErrMetadataUnavailable = errors.New("metadata store unavailable")
	ErrDuplicateID         = errors.New("duplicate document id")
)

// DeleteError reports a failed paired delete. Partial means the bytes are gone but the row remains,
// so only the metadata removal needs retrying.
type DeleteError struct {
	Partial bool
	Err     error
}

func (e *DeleteError) Error() string {
	if e.Partial {
		return fmt.Sprintf("delete document: metadata removal failed after bytes were removed: %v", e.Err)
	}
	return fmt.Sprintf("delete document: %v", e.Err)
}

func (e *DeleteError) Unwrap() error { return e.Err }
