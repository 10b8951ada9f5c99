package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/renameio"
)

// File is a Store backed by one file per database name inside Dir,
// written atomically. It is the reference implementation used by
// cmd/hnswdemo; a production host would
// typically substitute its own key/value-backed Store instead.
type File struct {
	Dir string
}

// NewFile returns a File-backed Store rooted at dir, creating dir if
// it does not already exist.
func NewFile(dir string) (*File, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("store: creating %s: %w", dir, err)
	}
	return &File{Dir: dir}, nil
}

func (f *File) path(name string) string {
	return filepath.Join(f.Dir, name+".json")
}

// Load implements Store.
func (f *File) Load(_ context.Context, name string) ([]byte, bool, error) {
	blob, err := os.ReadFile(f.path(name))
	if os.IsNotExist(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("store: loading %s: %w", name, err)
	}
	return blob, true, nil
}

// Store implements Store, writing blob atomically so a reader never
// observes a partially written file.
func (f *File) Store(_ context.Context, name string, blob []byte) error {
	tmp, err := renameio.TempFile("", f.path(name))
	if err != nil {
		return fmt.Errorf("store: staging %s: %w", name, err)
	}
	defer tmp.Cleanup()

	if _, err := tmp.Write(blob); err != nil {
		return fmt.Errorf("store: writing %s: %w", name, err)
	}
	if err := tmp.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("store: committing %s: %w", name, err)
	}
	return nil
}

// Erase implements Store.
func (f *File) Erase(_ context.Context, name string) error {
	err := os.Remove(f.path(name))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("store: erasing %s: %w", name, err)
	}
	return nil
}
