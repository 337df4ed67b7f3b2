package store

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
)

// FileStore keeps each blob as a file named after its key.
type FileStore struct {
	dir string
}

// NewFile creates a FileStore rooted at dir, creating the directory if needed.
func NewFile(dir string) (*FileStore, error) {
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, eris.Wrapf(err, "file store: create dir %s", dir)
	}
	return &FileStore{dir: dir}, nil
}

// Get implements BlobStore.
func (s *FileStore) Get(_ context.Context, key string) ([]byte, error) {
	path, err := s.path(key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrapf(err, "file store: read %s", key)
	}
	return data, nil
}

// Put implements BlobStore. The write goes to a temp file that is renamed
// over the target, so readers never see a partially written document.
func (s *FileStore) Put(_ context.Context, key string, data []byte) error {
	path, err := s.path(key)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(s.dir, "."+key+".tmp-*")
	if err != nil {
		return eris.Wrapf(err, "file store: create temp for %s", key)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) //nolint:errcheck

	if _, err := tmp.Write(data); err != nil {
		tmp.Close() //nolint:errcheck
		return eris.Wrapf(err, "file store: write %s", key)
	}
	if err := tmp.Close(); err != nil {
		return eris.Wrapf(err, "file store: close %s", key)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return eris.Wrapf(err, "file store: chmod %s", key)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return eris.Wrapf(err, "file store: rename %s", key)
	}
	return nil
}

// Close implements BlobStore.
func (s *FileStore) Close() error { return nil }

func (s *FileStore) path(key string) (string, error) {
	if key == "" || strings.ContainsAny(key, `/\`) || key == "." || key == ".." {
		return "", eris.Errorf("file store: invalid key %q", key)
	}
	return filepath.Join(s.dir, key), nil
}
