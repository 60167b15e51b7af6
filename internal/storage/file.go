package storage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// FileBackend keeps each document as a file in Dir. Writes go through a temp
// file and a rename so readers never see a partial document. Conditional
// writes are serialized within the process only.
type FileBackend struct {
	dir string
	mu  sync.Mutex
}

func NewFileBackend(dir string) *FileBackend {
	if dir == "" {
		dir = "."
	}
	return &FileBackend{dir: dir}
}

func (b *FileBackend) Dir() string {
	return b.dir
}

func (b *FileBackend) path(name string) (string, error) {
	if name == "" || name != filepath.Base(name) {
		return "", fmt.Errorf("invalid document name %q", name)
	}
	return filepath.Join(b.dir, name), nil
}

func (b *FileBackend) Read(ctx context.Context, name string) (Document, error) {
	path, err := b.path(name)
	if err != nil {
		return Document{}, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Document{}, ErrNotFound
		}
		return Document{}, fmt.Errorf("read %s: %w", name, err)
	}
	return Document{Data: data, Version: contentVersion(data)}, nil
}

func (b *FileBackend) Write(ctx context.Context, name string, data []byte, match Version) (Version, error) {
	path, err := b.path(name)
	if err != nil {
		return "", err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if match != Any {
		current, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			if match != Absent {
				return "", ErrConflict
			}
		case err != nil:
			return "", fmt.Errorf("read %s: %w", name, err)
		case match == Absent || contentVersion(current) != match:
			return "", ErrConflict
		}
	}

	if err := os.MkdirAll(b.dir, 0755); err != nil {
		return "", fmt.Errorf("create data directory: %w", err)
	}

	tmp, err := os.CreateTemp(b.dir, "."+name+".*.tmp")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return "", fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return "", fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Chmod(tmpPath, 0644); err != nil {
		_ = os.Remove(tmpPath)
		return "", fmt.Errorf("chmod temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return "", fmt.Errorf("rename temp file: %w", err)
	}

	return contentVersion(data), nil
}

// Ping checks that the data directory exists or can be created.
func (b *FileBackend) Ping(ctx context.Context) error {
	info, err := os.Stat(b.dir)
	if errors.Is(err, fs.ErrNotExist) {
		return os.MkdirAll(b.dir, 0755)
	}
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", b.dir)
	}
	return nil
}

func contentVersion(data []byte) Version {
	sum := sha256.Sum256(data)
	return Version(hex.EncodeToString(sum[:12]))
}
