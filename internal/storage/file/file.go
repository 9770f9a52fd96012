// Package file keeps each slot as a JSON file in a directory.
package file

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"ledger/internal/storage"
)

type Slot struct {
	dir string
}

var _ storage.Slot = (*Slot)(nil)

// New returns a slot rooted at dir. The directory is created on first write.
func New(dir string) *Slot {
	return &Slot{dir: dir}
}

// Dir returns the directory slots are stored in.
func (s *Slot) Dir() string { return s.dir }

func (s *Slot) path(key string) (string, error) {
	if key == "" || strings.ContainsAny(key, `/\`) || key == "." || key == ".." {
		return "", fmt.Errorf("invalid slot name %q", key)
	}
	return filepath.Join(s.dir, key+".json"), nil
}

func (s *Slot) Get(_ context.Context, key string) ([]byte, error) {
	p, err := s.path(key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(p)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, storage.ErrSlotEmpty
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", p, err)
	}
	return data, nil
}

// Put replaces the slot atomically: the value goes to a temp file in the
// same directory which is then renamed over the old one.
func (s *Slot) Put(_ context.Context, key string, value []byte) error {
	p, err := s.path(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}

	tmp, err := os.CreateTemp(s.dir, key+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(value); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), p); err != nil {
		return fmt.Errorf("replace %s: %w", p, err)
	}
	return nil
}

// Ping checks that the directory exists or can be created.
func (s *Slot) Ping(context.Context) error {
	return os.MkdirAll(s.dir, 0o700)
}
