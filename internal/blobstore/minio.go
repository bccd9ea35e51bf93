package blobstore

import (
	"context"
	"errors"
	"io"
	"net/http"

	miniogo "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/mosaic-db/mosaic/internal/errs"
)

// minioStore exports blobs to a MinIO or S3-compatible object store.
// It is safe for concurrent use by multiple goroutines.
type minioStore struct {
	client *miniogo.Client
	bucket string
}

// NewMinIO connects to the object store described by cfg and returns a Store.
// It calls Ping to validate the connection before returning.
func NewMinIO(ctx context.Context, cfg Config) (Store, error) {
	client, err := miniogo.New(cfg.Endpoint, &miniogo.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindConnection, "failed to create minio client", err)
	}

	s := &minioStore{client: client, bucket: cfg.Bucket}

	if err := s.Ping(ctx); err != nil {
		return nil, err
	}

	return s, nil
}

// Ping verifies the object store is reachable by listing buckets.
func (s *minioStore) Ping(ctx context.Context) error {
	if _, err := s.client.ListBuckets(ctx); err != nil {
		return mapMinIOError(err, "ping failed")
	}
	return nil
}

func (s *minioStore) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	_, err := s.client.PutObject(ctx, s.bucket, key, r, size, miniogo.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return mapMinIOError(err, "failed to store blob")
	}
	return nil
}

func (s *minioStore) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, key, miniogo.GetObjectOptions{})
	if err != nil {
		return nil, mapMinIOError(err, "failed to open blob")
	}
	// GetObject is lazy; surface missing objects here rather than on first read.
	if _, err := obj.Stat(); err != nil {
		obj.Close()
		return nil, mapMinIOError(err, "failed to stat blob")
	}
	return obj, nil
}

// Close is a no-op for MinIO since the SDK client holds no persistent connections.
func (s *minioStore) Close() error { return nil }

// mapMinIOError translates a MinIO SDK error into a *errs.Error.
// It mirrors the mapError pattern used in the database drivers.
func mapMinIOError(err error, msg string) *errs.Error {
	if err == nil {
		return nil
	}

	// Context cancellation / deadline
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return errs.Wrap(errs.ErrKindTimeout, msg, err)
	}

	// MinIO SDK exposes a typed ErrorResponse for S3-protocol errors
	var resp miniogo.ErrorResponse
	if errors.As(err, &resp) {
		switch resp.StatusCode {
		case http.StatusNotFound:
			return errs.Wrap(errs.ErrKindNotFound, msg, err)
		case http.StatusForbidden, http.StatusUnauthorized, http.StatusBadRequest:
			return errs.Wrap(errs.ErrKindInvalidInput, msg, err)
		}

		// S3 error codes for "not found" that may arrive with 200-range status
		switch resp.Code {
		case "NoSuchBucket", "NoSuchKey", "NoSuchUpload":
			return errs.Wrap(errs.ErrKindNotFound, msg, err)
		case "AccessDenied", "InvalidAccessKeyId", "SignatureDoesNotMatch",
			"InvalidBucketName", "InvalidObjectName", "KeyTooLongError":
			return errs.Wrap(errs.ErrKindInvalidInput, msg, err)
		case "RequestTimeout", "SlowDown":
			return errs.Wrap(errs.ErrKindTimeout, msg, err)
		}
	}

	// Anything else is treated as a generic connection / I/O failure.
	return errs.Wrap(errs.ErrKindConnection, msg, err)
}
