package documents

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"docchat-backend/internal/shared/storage/object"
)

// StoredObject describes bytes written by Gateway.Put.
type StoredObject struct {
	Path      string
	SizeBytes int64
	CreatedAt time.Time
}

// Gateway pairs the object store with the metadata repo. It never holds a
// lock across the two stores; ordering is the caller's job.
type Gateway struct {
	Store object.ObjectStore
	Repo  Repo
	clock *monotonicClock
}

// NewGateway constructs a Gateway.
func NewGateway(store object.ObjectStore, repo Repo) *Gateway {
	return &Gateway{Store: store, Repo: repo, clock: newMonotonicClock(nil)}
}

// Put derives the storage path and writes data there.
func (g *Gateway) Put(ctx context.Context, ownerID, displayName, mediaType string, data []byte) (StoredObject, error) {
	at := g.clock.Next()
	path := DerivePath(ownerID, at, displayName)
	n, err := g.Store.Put(ctx, path, mediaType, bytes.NewReader(data))
	if err != nil {
		return StoredObject{}, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	return StoredObject{Path: path, SizeBytes: n, CreatedAt: at}, nil
}

// RecordMetadata inserts the row for an already stored object.
func (g *Gateway) RecordMetadata(ctx context.Context, doc Document) (Document, error) {
	if err := g.Repo.Insert(ctx, doc); err != nil {
		if errors.Is(err, ErrDuplicateID) {
			return Document{}, err
		}
		return Document{}, fmt.Errorf("%w: %w", ErrMetadataUnavailable, err)
	}
	return doc, nil
}

// ListByOwner returns the owner's documents, newest first.
func (g *Gateway) ListByOwner(ctx context.Context, ownerID string) ([]Document, error) {
	docs, err := g.Repo.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMetadataUnavailable, err)
	}
	return docs, nil
}

// Get returns one of the owner's documents.
func (g *Gateway) Get(ctx context.Context, ownerID, documentID string) (Document, error) {
	doc, err := g.Repo.GetByID(ctx, ownerID, documentID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Document{}, err
		}
		return Document{}, fmt.Errorf("%w: %w", ErrMetadataUnavailable, err)
	}
	return doc, nil
}

// Open streams the stored bytes of doc.
func (g *Gateway) Open(ctx context.Context, doc Document) (io.ReadCloser, error) {
	rc, err := g.Store.Open(ctx, doc.StoragePath)
	if err != nil {
		if errors.Is(err, object.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	return rc, nil
}

// DeletePair removes the bytes, then the row. When the row removal fails after the
// bytes are gone the *DeleteError is Partial and RemoveMetadata alone should be retried.
func (g *Gateway) DeletePair(ctx context.Context, doc Document) error {
	if err := g.Store.Remove(ctx, doc.StoragePath); err != nil {
		return &DeleteError{Err: fmt.Errorf("%w: %w", ErrStoreUnavailable, err)}
	}
	if err := g.RemoveMetadata(ctx, doc); err != nil {
		return &DeleteError{Partial: true, Err: err}
	}
	return nil
}

// RemoveMetadata deletes only the row. A row that is already gone counts as removed.
func (g *Gateway) RemoveMetadata(ctx context.Context, doc Document) error {
	if err := g.Repo.DeleteByID(ctx, doc.OwnerID, doc.ID); err != nil && !errors.Is(err, ErrNotFound) {
		return fmt.Errorf("%w: %w", ErrMetadataUnavailable, err)
	}
	return nil
}

// RemoveBytes deletes the object at path. Used for compensating cleanup.
func (g *Gateway) RemoveBytes(ctx context.Context, path string) error {
	return g.Store.Remove(ctx, path)
}
