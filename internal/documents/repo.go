package documents

import "context"

// Repo persists document metadata rows. All reads and deletes are owner scoped.
type Repo interface {
	// Insert returns ErrDuplicateID when a row with the same id exists.
	Insert(ctx context.Context, doc Document) error
	// ListByOwner returns the owner's rows, newest first.
	ListByOwner(ctx context.Context, ownerID string) ([]Document, error)
	GetByID(ctx context.Context, ownerID, documentID string) (Document, error)
	// DeleteByID returns ErrNotFound when no row matched.
	DeleteByID(ctx context.Context, ownerID, documentID string) error
}
