package documents

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"docchat-backend/internal/shared/telemetry"
)

func newTestCoordinator(t *testing.T, store *memStore, repo Repo, notifier Notifier) *Coordinator {
	t.Helper()
	restore := telemetry.SetOutput(&bytes.Buffer{})
	t.Cleanup(restore)
	policy := NewPolicy(map[string]string{
		"application/pdf": "PDF",
		"text/plain":      "Text",
	}, 50<<20)
	return NewCoordinator(policy, NewGateway(store, repo), notifier, 0)
}

func TestIngestAcceptsTwoMegabyteTextFile(t *testing.T) {
	store := newMemStore()
	repo := NewMemoryRepo()
	notifier := &recordingNotifier{}
	c := newTestCoordinator(t, store, repo, notifier)

	data := bytes.Repeat([]byte("a"), 2097152)
	res := c.Ingest(context.Background(), "u1", "big.txt", "text/plain", data)
	if res.Outcome != OutcomeAccepted {
		t.Fatalf("expected accepted, got %s (%v)", res.Outcome, res.Err)
	}
	if res.Document.SizeBytes != 2097152 {
		t.Fatalf("expected 2097152 bytes, got %d", res.Document.SizeBytes)
	}

	docs, err := repo.ListByOwner(context.Background(), "u1")
	if err != nil || len(docs) != 1 {
		t.Fatalf("expected one row, got %d (%v)", len(docs), err)
	}
	if store.count() != 1 {
		t.Fatalf("expected one object, got %d", store.count())
	}

	sent := notifier.sent()
	if len(sent) != 1 {
		t.Fatalf("expected one notification, got %d", len(sent))
	}
	if sent[0].FilePath != res.Document.StoragePath || sent[0].UserID != "u1" || sent[0].FileName != "big.txt" {
		t.Fatalf("unexpected notification %+v", sent[0])
	}
	if sent[0].DocumentID != res.Document.ID {
		t.Fatalf("notification should carry the document id")
	}
}

func TestIngestRejectionTouchesNothing(t *testing.T) {
	store := newMemStore()
	repo := newFlakyRepo()
	notifier := &recordingNotifier{}
	c := newTestCoordinator(t, store, repo, notifier)
	c.Policy.MaxBytes = 4

	tests := []struct {
		name      string
		mediaType string
		data      string
		reason    RejectReason
	}{
		{name: "unsupported type", mediaType: "image/png", data: "x", reason: ReasonUnsupportedType},
		{name: "too large", mediaType: "text/plain", data: "12345", reason: ReasonTooLarge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := c.Ingest(context.Background(), "u1", "f", tt.mediaType, []byte(tt.data))
			if res.Outcome != OutcomeRejectedValidation || res.Reason != tt.reason {
				t.Fatalf("unexpected result %+v", res)
			}
			if !errors.Is(res.Err, ErrValidation) {
				t.Fatalf("expected ErrValidation, got %v", res.Err)
			}
		})
	}
	if store.count() != 0 || repo.inserts != 0 || len(notifier.sent()) != 0 {
		t.Fatalf("rejected uploads must not reach storage or notification")
	}
}

func TestIngestRequiresOwner(t *testing.T) {
	c := newTestCoordinator(t, newMemStore(), NewMemoryRepo(), nil)
	res := c.Ingest(context.Background(), " ", "a.txt", "text/plain", []byte("x"))
	if res.Outcome != OutcomeRejectedValidation || !errors.Is(res.Err, ErrInvalidInput) {
		t.Fatalf("unexpected result %+v", res)
	}
}

func TestIngestStorageFailureSkipsMetadata(t *testing.T) {
	store := newMemStore()
	store.putErr = errBoom
	repo := newFlakyRepo()
	notifier := &recordingNotifier{}
	c := newTestCoordinator(t, store, repo, notifier)

	res := c.Ingest(context.Background(), "u1", "a.pdf", "application/pdf", []byte("%PDF"))
	if res.Outcome != OutcomeFailedStorage || !errors.Is(res.Err, ErrStoreUnavailable) {
		t.Fatalf("unexpected result %+v", res)
	}
	if repo.inserts != 0 || len(notifier.sent()) != 0 {
		t.Fatalf("metadata and notification must not run after a storage failure")
	}
}

func TestIngestMetadataFailureRemovesBytes(t *testing.T) {
	store := newMemStore()
	repo := newFlakyRepo()
	repo.insertErr = errBoom
	notifier := &recordingNotifier{}
	c := newTestCoordinator(t, store, repo, notifier)

	res := c.Ingest(context.Background(), "u1", "a.pdf", "application/pdf", []byte("%PDF"))
	if res.Outcome != OutcomeFailedMetadata || !errors.Is(res.Err, ErrMetadataUnavailable) {
		t.Fatalf("unexpected result %+v", res)
	}
	if store.count() != 0 {
		t.Fatalf("expected orphaned bytes removed")
	}
	if len(store.removed) != 1 {
		t.Fatalf("expected exactly one cleanup attempt, got %d", len(store.removed))
	}
	if len(notifier.sent()) != 0 {
		t.Fatalf("failed uploads must not notify")
	}
}

func TestIngestCleanupFailureKeepsOutcome(t *testing.T) {
	var logs bytes.Buffer
	store := newMemStore()
	store.removeErr = errBoom
	repo := newFlakyRepo()
	repo.insertErr = errBoom
	c := newTestCoordinator(t, store, repo, nil)
	restore := telemetry.SetOutput(&logs)
	defer restore()

	res := c.Ingest(context.Background(), "u1", "a.pdf", "application/pdf", []byte("%PDF"))
	if res.Outcome != OutcomeFailedMetadata {
		t.Fatalf("expected failed-metadata, got %s", res.Outcome)
	}
	if len(store.removed) != 1 {
		t.Fatalf("cleanup must not be retried, got %d attempts", len(store.removed))
	}
	if !strings.Contains(logs.String(), "ingest.cleanup_failed") {
		t.Fatalf("expected cleanup failure to be logged: %s", logs.String())
	}
}

func TestIngestCleanupRunsAfterCallerCancel(t *testing.T) {
	store := newMemStore()
	ctx, cancel := context.WithCancel(context.Background())
	repo := &cancelingRepo{flakyRepo: newFlakyRepo(), cancel: cancel}
	c := newTestCoordinator(t, store, repo, nil)

	res := c.Ingest(ctx, "u1", "a.pdf", "application/pdf", []byte("%PDF"))
	if res.Outcome != OutcomeFailedMetadata {
		t.Fatalf("expected failed-metadata, got %s", res.Outcome)
	}
	if store.count() != 0 {
		t.Fatalf("cleanup should run on a detached context")
	}
}

// cancelingRepo cancels the caller's context and then fails the insert.
type cancelingRepo struct {
	*flakyRepo
	cancel context.CancelFunc
}

func (r *cancelingRepo) Insert(ctx context.Context, doc Document) error {
	r.cancel()
	return context.Canceled
}

func TestIngestConcurrentUploadsGetDistinctPaths(t *testing.T) {
	store := newMemStore()
	repo := NewMemoryRepo()
	c := newTestCoordinator(t, store, repo, nil)

	const n = 20
	var wg sync.WaitGroup
	results := make([]IngestResult, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = c.Ingest(context.Background(), "u1", "same.txt", "text/plain", []byte("x"))
		}(i)
	}
	wg.Wait()

	seen := make(map[string]bool)
	for _, res := range results {
		if res.Outcome != OutcomeAccepted {
			t.Fatalf("expected accepted, got %s (%v)", res.Outcome, res.Err)
		}
		if seen[res.Document.StoragePath] {
			t.Fatalf("duplicate path %s", res.Document.StoragePath)
		}
		seen[res.Document.StoragePath] = true
	}
	if store.count() != n {
		t.Fatalf("expected %d objects, got %d", n, store.count())
	}
}

func TestCoordinatorDelete(t *testing.T) {
	store := newMemStore()
	repo := NewMemoryRepo()
	c := newTestCoordinator(t, store, repo, nil)

	res := c.Ingest(context.Background(), "u1", "a.txt", "text/plain", []byte("x"))
	if res.Outcome != OutcomeAccepted {
		t.Fatalf("setup ingest: %+v", res)
	}
	if err := c.Delete(context.Background(), "u2", res.Document.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("other owner should see not found, got %v", err)
	}
	if err := c.Delete(context.Background(), "u1", res.Document.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if store.count() != 0 {
		t.Fatalf("expected bytes removed")
	}
}
