package documents

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestMemoryRepoTieBreaksById(t *testing.T) {
	repo := NewMemoryRepo()
	ctx := context.Background()
	at := time.Date(2026, time.June, 1, 0, 0, 0, 0, time.UTC)
	for _, id := range []string{"a", "c", "b"} {
		if err := repo.Insert(ctx, Document{ID: id, OwnerID: "u1", CreatedAt: at}); err != nil {
			t.Fatalf("Insert: %v", err)
		}
	}
	docs, err := repo.ListByOwner(ctx, "u1")
	if err != nil {
		t.Fatalf("ListByOwner: %v", err)
	}
	if docs[0].ID != "c" || docs[1].ID != "b" || docs[2].ID != "a" {
		t.Fatalf("unexpected order %v", docs)
	}
}

func TestMemoryRepoHonorsContext(t *testing.T) {
	repo := NewMemoryRepo()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := repo.Insert(ctx, Document{ID: "a"}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestMemoryRepoDeleteIsOwnerScoped(t *testing.T) {
	repo := NewMemoryRepo()
	ctx := context.Background()
	if err := repo.Insert(ctx, Document{ID: "a", OwnerID: "u1"}); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if err := repo.DeleteByID(ctx, "u2", "a"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := repo.GetByID(ctx, "u1", "a"); err != nil {
		t.Fatalf("row should survive: %v", err)
	}
}
