package blobstore

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/mosaic-db/mosaic/internal/errs"
)

// diskStore writes blobs to the local filesystem. It is the default provider
// and the one SaveBlobToFile uses when no object storage is configured.
type diskStore struct {
	dir string
}

// NewDisk returns a Store backed by the local filesystem. Relative keys are
// resolved against dir; absolute keys are honored as-is.
func NewDisk(dir string) Store {
	return &diskStore{dir: dir}
}

func (s *diskStore) resolve(key string) string {
	if filepath.IsAbs(key) || s.dir == "" {
		return key
	}
	return filepath.Join(s.dir, key)
}

func (s *diskStore) Ping(ctx context.Context) error {
	if s.dir == "" {
		return nil
	}
	info, err := os.Stat(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return errs.Wrap(errs.ErrKindNotFound, "blob directory does not exist", err)
		}
		return errs.Wrap(errs.ErrKindConnection, "blob directory not accessible", err)
	}
	if !info.IsDir() {
		return errs.Newf(errs.ErrKindInvalidInput, "blob path %q is not a directory", s.dir)
	}
	return nil
}

func (s *diskStore) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	path := s.resolve(key)
	if parent := filepath.Dir(path); parent != "." {
		if err := os.MkdirAll(parent, 0o755); err != nil {
			return errs.Wrap(errs.ErrKindConnection, "create blob directory", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return errs.Wrap(errs.ErrKindConnection, "create blob file", err)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(path)
		return errs.Wrap(errs.ErrKindConnection, "write blob file", err)
	}
	if err := f.Close(); err != nil {
		return errs.Wrap(errs.ErrKindConnection, "close blob file", err)
	}
	return nil
}

func (s *diskStore) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	f, err := os.Open(s.resolve(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errs.Wrap(errs.ErrKindNotFound, "blob file not found", err)
		}
		return nil, errs.Wrap(errs.ErrKindConnection, "open blob file", err)
	}
	return f, nil
}

func (s *diskStore) Close() error { return nil }
