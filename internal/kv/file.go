package kv

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// FileStorage keeps one file per slot inside a directory.
type FileStorage struct {
	dir string
}

// NewFileStorage creates dir if needed and returns a FileStorage rooted there.
func NewFileStorage(dir string) (*FileStorage, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("kv: create data dir: %w", err)
	}
	return &FileStorage{dir: dir}, nil
}

func (f *FileStorage) path(slot string) (string, error) {
	if slot == "" {
		return "", ErrEmptySlot
	}
	if strings.ContainsAny(slot, `/\`) || slot == "." || slot == ".." {
		return "", fmt.Errorf("kv: invalid slot name %q", slot)
	}
	return filepath.Join(f.dir, slot+".json"), nil
}

// Get reads the slot file. A missing file is reported as ErrNotFound.
func (f *FileStorage) Get(_ context.Context, slot string) ([]byte, error) {
	p, err := f.path(slot)
	if err != nil {
		return nil, err
	}
	b, err := os.ReadFile(p)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("kv: read %s: %w", slot, err)
	}
	return b, nil
}

// Set writes the payload to a temp file and renames it over the slot file,
// so readers never observe a half-written slot.
func (f *FileStorage) Set(_ context.Context, slot string, payload []byte) error {
	p, err := f.path(slot)
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(f.dir, slot+".*.tmp")
	if err != nil {
		return fmt.Errorf("kv: create temp for %s: %w", slot, err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(payload); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("kv: write %s: %w", slot, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("kv: close %s: %w", slot, err)
	}
	if err := os.Rename(tmpName, p); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("kv: rename %s: %w", slot, err)
	}
	return nil
}
