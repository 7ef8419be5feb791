// Package spool stages accepted file bytes on the local filesystem until the
// batch upload settles. It is transport staging, not portfolio persistence.
package spool

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// Store is the staging interface the pipeline depends on.
type Store interface {
	Save(name string, r io.Reader) (string, error)
	Open(id string) (io.ReadCloser, error)
	Delete(id string) error
}

// DirStore implements Store in a single flat directory, one file per spool
// ID.
type DirStore struct {
	dir string
}

// NewDirStore creates the spool directory if needed.
func NewDirStore(dir string) (*DirStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating spool directory: %w", err)
	}
	return &DirStore{dir: dir}, nil
}

// Save writes the reader's content under a fresh spool ID.
func (s *DirStore) Save(name string, r io.Reader) (string, error) {
	id := uuid.New().String()
	path := filepath.Join(s.dir, id)

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("creating spool file for %s: %w", name, err)
	}
	defer f.Close()

	if _, err := io.Copy(f, r); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("spooling %s: %w", name, err)
	}
	return id, nil
}

// Open returns the spooled bytes for id.
func (s *DirStore) Open(id string) (io.ReadCloser, error) {
	f, err := os.Open(filepath.Join(s.dir, id))
	if err != nil {
		return nil, fmt.Errorf("opening spooled file %s: %w", id, err)
	}
	return f, nil
}

// Delete removes the spooled bytes for id. Deleting an already-released ID
// is not an error.
func (s *DirStore) Delete(id string) error {
	err := os.Remove(filepath.Join(s.dir, id))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("deleting spooled file %s: %w", id, err)
	}
	return nil
}
