package minio

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"testing"

	"docchat-backend/internal/shared/storage/object"
)

// fakeBucket is a minimal S3-compatible endpoint for a single bucket.
type fakeBucket struct {
	mu        sync.Mutex
	puts      map[string]int64
	multipart bool
	deleted   []string
}

func (f *fakeBucket) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	parts := strings.SplitN(strings.TrimPrefix(r.URL.Path, "/"), "/", 2)
	if len(parts) == 1 || parts[1] == "" {
		w.WriteHeader(http.StatusOK)
		return
	}
	key := parts[1]
	query := r.URL.Query()

	switch {
	case r.Method == http.MethodPost && query.Has("uploads"):
		f.multipart = true
		w.WriteHeader(http.StatusNotImplemented)
	case r.Method == http.MethodPut:
		_, _ = io.Copy(io.Discard, r.Body)
		size := r.ContentLength
		if decoded := r.Header.Get("X-Amz-Decoded-Content-Length"); decoded != "" {
			size, _ = strconv.ParseInt(decoded, 10, 64)
		}
		f.puts[key] = size
		w.Header().Set("ETag", `"d41d8cd98f00b204e9800998ecf8427e"`)
		w.WriteHeader(http.StatusOK)
	case r.Method == http.MethodHead:
		size, ok := f.puts[key]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Length", strconv.FormatInt(size, 10))
		w.Header().Set("ETag", `"d41d8cd98f00b204e9800998ecf8427e"`)
		w.Header().Set("Last-Modified", "Wed, 01 Apr 2026 09:00:00 GMT")
		w.WriteHeader(http.StatusOK)
	case r.Method == http.MethodDelete:
		f.deleted = append(f.deleted, key)
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func newTestStore(t *testing.T) (*Store, *fakeBucket) {
	t.Helper()
	bucket := &fakeBucket{puts: make(map[string]int64)}
	srv := httptest.NewServer(bucket)
	t.Cleanup(srv.Close)

	u, err := url.Parse(srv.URL)
	if err != nil {
		t.Fatalf("parse server url: %v", err)
	}
	store, err := New(context.Background(), Options{
		Endpoint:  u.Host,
		AccessKey: "minio",
		SecretKey: "minio123",
		Bucket:    "documents",
		Region:    "us-east-1",
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return store, bucket
}

func TestPutSendsKnownSize(t *testing.T) {
	store, bucket := newTestStore(t)
	data := bytes.Repeat([]byte("a"), 2048)

	n, err := store.Put(context.Background(), "/uploads/u1/1_report.pdf", "application/pdf", bytes.NewReader(data))
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if n != int64(len(data)) {
		t.Fatalf("expected size %d, got %d", len(data), n)
	}

	bucket.mu.Lock()
	defer bucket.mu.Unlock()
	if bucket.multipart {
		t.Fatalf("sized upload must not fall back to multipart streaming")
	}
	if got := bucket.puts["uploads/u1/1_report.pdf"]; got != int64(len(data)) {
		t.Fatalf("expected single PUT of %d bytes, got %d (%v)", len(data), got, bucket.puts)
	}
}

func TestOpenMissingKeyIsNotFound(t *testing.T) {
	store, _ := newTestStore(t)

	if _, err := store.Open(context.Background(), "uploads/u1/missing.pdf"); !errors.Is(err, object.ErrNotFound) {
		t.Fatalf("expected object.ErrNotFound, got %v", err)
	}
}

func TestRemoveDeletesEachKey(t *testing.T) {
	store, bucket := newTestStore(t)

	if err := store.Remove(context.Background(), "a/1", "/a/2"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	bucket.mu.Lock()
	defer bucket.mu.Unlock()
	if len(bucket.deleted) != 2 || bucket.deleted[1] != "a/2" {
		t.Fatalf("unexpected deletes %v", bucket.deleted)
	}
}

func TestReaderSize(t *testing.T) {
	tests := []struct {
		name string
		r    io.Reader
		want int64
	}{
		{name: "bytes reader", r: bytes.NewReader([]byte("hello")), want: 5},
		{name: "strings reader", r: strings.NewReader("hi"), want: 2},
		{name: "bytes buffer", r: bytes.NewBufferString("abc"), want: 3},
		{name: "unknown", r: io.MultiReader(strings.NewReader("x")), want: -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := readerSize(tt.r); got != tt.want {
				t.Fatalf("readerSize = %d, want %d", got, tt.want)
			}
		})
	}
}
