package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// FileStore implements ObjectStore on the local filesystem. It is the default
// backend for single-machine deployments and tests, where running MinIO would
// be overkill.
type FileStore struct {
	root string
}

// NewFileStore ensures the root directory exists and returns a store rooted
// there.
func NewFileStore(root string) (*FileStore, error) {
	if strings.TrimSpace(root) == "" {
		return nil, fmt.Errorf("data dir required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	return &FileStore{root: root}, nil
}

func (f *FileStore) path(key string) (string, error) {
	clean := filepath.Clean(key)
	if clean == "." || strings.HasPrefix(clean, "..") || filepath.IsAbs(clean) {
		return "", fmt.Errorf("invalid object key %q", key)
	}
	return filepath.Join(f.root, clean), nil
}

// Put writes an object to disk. size and contentType are ignored.
func (f *FileStore) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	path, err := f.path(key)
	if err != nil {
		return err
	}
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("put object: %w", err)
	}
	if _, err := io.Copy(file, r); err != nil {
		file.Close()
		os.Remove(path)
		return fmt.Errorf("put object: %w", err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("put object: %w", err)
	}
	return nil
}

// Get opens an object for reading. The caller closes the returned reader.
func (f *FileStore) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	path, err := f.path(key)
	if err != nil {
		return nil, err
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("get object: %w", err)
	}
	return file, nil
}

// Delete removes an object. Deleting a missing object is not an error.
func (f *FileStore) Delete(ctx context.Context, key string) error {
	path, err := f.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete object: %w", err)
	}
	return nil
}
