package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// DiskStore keeps uploaded files on the local filesystem under a single
// directory, one file per media id
type DiskStore struct {
	dir string
}

// NewDiskStore creates the upload directory if needed
func NewDiskStore(dir string) (*DiskStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload directory: %w", err)
	}
	return &DiskStore{dir: dir}, nil
}

// Save writes the file content and returns its path
func (s *DiskStore) Save(name string, src io.Reader) (string, error) {
	path := filepath.Join(s.dir, name)

	dst, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create file: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("write file: %w", err)
	}
	return path, nil
}

// Open returns a reader for a stored file
func (s *DiskStore) Open(path string) (io.ReadCloser, error) {
	return os.Open(path)
}

// Remove deletes a stored file. Removing an already-absent file is a no-op.
func (s *DiskStore) Remove(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
