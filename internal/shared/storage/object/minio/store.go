package minio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"docchat-backend/internal/shared/storage/object"
)

// Store implements ObjectStore on a MinIO (or other S3-compatible) bucket.
type Store struct {
	client *minio.Client
	bucket string
}

// Options configures the MinIO connection.
type Options struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
	// Region skips the bucket location lookup when set.
	Region string
}

// New connects to MinIO and creates the bucket when it does not exist yet.
func New(ctx context.Context, opts Options) (*Store, error) {
	if strings.TrimSpace(opts.Endpoint) == "" {
		return nil, fmt.Errorf("minio endpoint is required")
	}
	if strings.TrimSpace(opts.Bucket) == "" {
		return nil, fmt.Errorf("minio bucket is required")
	}

	client, err := minio.New(opts.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, ""),
		Secure: opts.UseSSL,
		Region: opts.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("minio client: %w", err)
	}

	exists, err := client.BucketExists(ctx, opts.Bucket)
	if err != nil {
		return nil, fmt.Errorf("minio bucket check: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, opts.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("minio make bucket: %w", err)
		}
	}
	return &Store{client: client, bucket: opts.Bucket}, nil
}

// Put uploads r to the bucket. Readers that report their length are sent in one
// sized request; others fall back to minio's buffered multipart stream.
func (s *Store) Put(ctx context.Context, key string, contentType string, r io.Reader) (int64, error) {
	info, err := s.client.PutObject(ctx, s.bucket, strings.TrimLeft(key, "/"), r, readerSize(r), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return 0, fmt.Errorf("minio put object bucket=%s key=%s: %w", s.bucket, key, err)
	}
	return info.Size, nil
}

// readerSize returns the unread length of r, or -1 when it cannot be known.
func readerSize(r io.Reader) int64 {
	switch v := r.(type) {
	case interface{ Len() int }:
		return int64(v.Len())
	case interface{ Size() int64 }:
		return v.Size()
	default:
		return -1
	}
}

// Open returns a reader for the object at key.
func (s *Store) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	key = strings.TrimLeft(key, "/")
	if _, err := s.client.StatObject(ctx, s.bucket, key, minio.StatObjectOptions{}); err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, object.ErrNotFound
		}
		return nil, fmt.Errorf("minio stat object bucket=%s key=%s: %w", s.bucket, key, err)
	}
	obj, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("minio get object bucket=%s key=%s: %w", s.bucket, key, err)
	}
	return obj, nil
}

// Remove deletes keys one at a time; MinIO reports success for missing keys.
func (s *Store) Remove(ctx context.Context, keys ...string) error {
	var errs []error
	for _, key := range keys {
		if err := s.client.RemoveObject(ctx, s.bucket, strings.TrimLeft(key, "/"), minio.RemoveObjectOptions{}); err != nil {
			errs = append(errs, fmt.Errorf("minio remove bucket=%s key=%s: %w", s.bucket, key, err))
		}
	}
	return errors.Join(errs...)
}

var _ object.ObjectStore = (*Store)(nil)
