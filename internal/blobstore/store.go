// Package blobstore defines the storage backend used when blob column values
// are exported out of a database (the SaveBlobToFile driver operation).
//
// All providers (local disk, MinIO/S3, …) implement the Store interface.
// Drivers depend only on this package, never on a specific provider.
//
// Usage:
//
//	store := blobstore.NewDisk("")
//	defer store.Close()
//	err := store.Put(ctx, "/exports/avatar.png", bytes.NewReader(data), int64(len(data)), "image/png")
package blobstore

import (
	"context"
	"io"

	"github.com/mosaic-db/mosaic/internal/errs"
)

// Store is the single interface all blob export backends implement.
type Store interface {
	// Ping verifies the backend is reachable.
	Ping(ctx context.Context) error

	// Put writes size bytes from r under key. For the disk provider the key
	// is a file path; for object stores it is an object key.
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error

	// Get opens a streaming handle to the payload stored under key.
	// The caller must close the returned reader.
	Get(ctx context.Context, key string) (io.ReadCloser, error)

	// Close releases any held resources.
	Close() error
}

// Provider identifies the blob export backend.
type Provider string

const (
	ProviderDisk  Provider = "disk"
	ProviderMinIO Provider = "minio"
)

// New constructs the Store selected by cfg.Provider.
func New(ctx context.Context, cfg Config) (Store, error) {
	switch cfg.Provider {
	case ProviderMinIO:
		return NewMinIO(ctx, cfg)
	case ProviderDisk, "":
		return NewDisk(cfg.Dir), nil
	default:
		return nil, errs.Newf(errs.ErrKindInvalidInput, "unknown blob store provider %q", cfg.Provider)
	}
}

// Config holds all settings needed to construct a Store.
type Config struct {
	// Provider is the storage backend; ProviderDisk when empty.
	Provider Provider `yaml:"provider"`

	// Dir is an optional root directory the disk provider resolves relative
	// keys against. Absolute keys are used as-is.
	Dir string `yaml:"dir"`

	// Endpoint is the host:port of the object storage server (MinIO/S3).
	Endpoint string `yaml:"endpoint"`

	// AccessKey / SecretKey are the object storage credentials.
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`

	// UseSSL controls whether TLS is used for object storage connections.
	UseSSL bool `yaml:"use_ssl"`

	// Bucket is the bucket blob exports are written to.
	Bucket string `yaml:"bucket"`
}
