package documents

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"

	"docchat-backend/internal/processing"
	"docchat-backend/internal/shared/storage/object"
)

// memStore is an in-memory object store with injectable failures.
type memStore struct {
	mu        sync.Mutex
	objects   map[string][]byte
	putErr    error
	removeErr error
	removed   []string
}

func newMemStore() *memStore {
	return &memStore{objects: make(map[string][]byte)}
}

func (s *memStore) Put(ctx context.Context, key, contentType string, r io.Reader) (int64, error) {
	if s.putErr != nil {
		return 0, s.putErr
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = data
	return int64(len(data)), nil
}

func (s *memStore) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.objects[key]
	if !ok {
		return nil, object.ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (s *memStore) Remove(ctx context.Context, keys ...string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removed = append(s.removed, keys...)
	if s.removeErr != nil {
		return s.removeErr
	}
	for _, k := range keys {
		delete(s.objects, k)
	}
	return nil
}

func (s *memStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.objects)
}

// flakyRepo wraps MemoryRepo with injectable failures.
type flakyRepo struct {
	*MemoryRepo
	insertErr error
	deleteErr error
	inserts   int
}

func newFlakyRepo() *flakyRepo {
	return &flakyRepo{MemoryRepo: NewMemoryRepo()}
}

func (r *flakyRepo) Insert(ctx context.Context, doc Document) error {
	r.inserts++
	if r.insertErr != nil {
		return r.insertErr
	}
	return r.MemoryRepo.Insert(ctx, doc)
}

func (r *flakyRepo) DeleteByID(ctx context.Context, ownerID, documentID string) error {
	if r.deleteErr != nil {
		return r.deleteErr
	}
	return r.MemoryRepo.DeleteByID(ctx, ownerID, documentID)
}

type recordingNotifier struct {
	mu   sync.Mutex
	msgs []processing.Message
}

func (n *recordingNotifier) Dispatch(msg processing.Message) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.msgs = append(n.msgs, msg)
}

func (n *recordingNotifier) sent() []processing.Message {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]processing.Message(nil), n.msgs...)
}

var errBoom = errors.New("boom")
