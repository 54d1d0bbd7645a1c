package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

var (
	// ErrBlobNotFound is returned when a stored name has no bytes behind it.
	ErrBlobNotFound = errors.New("blob not found")
	// ErrInvalidName is returned for names that would escape the store.
	ErrInvalidName = errors.New("invalid blob name")
)

// Store defines the interface for blob storage backends.
type Store interface {
	Save(ctx context.Context, name string, data io.Reader, contentType string) (int64, error)
	Open(ctx context.Context, name string) (io.ReadCloser, error)
	Delete(ctx context.Context, name string) error
	EnsureReady(ctx context.Context) error
}

// FileSystemStore stores uploaded files in a single directory on local disk.
type FileSystemStore struct {
	basePath string
}

// NewFileSystemStore creates a new filesystem storage backend.
func NewFileSystemStore(basePath string) *FileSystemStore {
	return &FileSystemStore{basePath: basePath}
}

// EnsureReady creates the storage directory if it doesn't exist.
func (fs *FileSystemStore) EnsureReady(ctx context.Context) error {
	if err := os.MkdirAll(fs.basePath, 0755); err != nil {
		return fmt.Errorf("failed to create storage directory %s: %w", fs.basePath, err)
	}
	return nil
}

// Save streams data into {basePath}/{name}. The bytes are written to a
// temporary file first so a failed copy never leaves a readable blob behind.
func (fs *FileSystemStore) Save(ctx context.Context, name string, data io.Reader, contentType string) (int64, error) {
	filePath, err := fs.filePath(name)
	if err != nil {
		return 0, err
	}

	tmp, err := os.CreateTemp(fs.basePath, "."+name+".*.part")
	if err != nil {
		return 0, fmt.Errorf("failed to create file for %s: %w", name, err)
	}
	tmpPath := tmp.Name()

	n, err := io.Copy(tmp, readerWithContext(ctx, data))
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(tmpPath)
		return 0, fmt.Errorf("failed to write file: %w", err)
	}

	if err := os.Rename(tmpPath, filePath); err != nil {
		os.Remove(tmpPath)
		return 0, fmt.Errorf("failed to move file into place: %w", err)
	}

	return n, nil
}

// Open returns a reader over a stored blob.
func (fs *FileSystemStore) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	filePath, err := fs.filePath(name)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrBlobNotFound
		}
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	return f, nil
}

// Delete removes a stored blob. Missing blobs are not an error.
func (fs *FileSystemStore) Delete(ctx context.Context, name string) error {
	filePath, err := fs.filePath(name)
	if err != nil {
		return err
	}
	if err := os.Remove(filePath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete file %s: %w", filePath, err)
	}
	return nil
}

func (fs *FileSystemStore) filePath(name string) (string, error) {
	if name == "" || name == "." || name == ".." || filepath.Base(name) != name {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return filepath.Join(fs.basePath, name), nil
}

type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

// readerWithContext aborts a long copy once the request is gone.
func readerWithContext(ctx context.Context, r io.Reader) io.Reader {
	return &ctxReader{ctx: ctx, r: r}
}

func (cr *ctxReader) Read(p []byte) (int, error) {
	if err := cr.ctx.Err(); err != nil {
		return 0, err
	}
	return cr.r.Read(p)
}
