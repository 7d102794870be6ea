package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// FileBackend stores each key as a JSON file under a base directory.
// Writes go through a temp file and rename so a crash never leaves a
// half-written value, and a flock guards against a second process.
type FileBackend struct {
	basePath string

	mu    sync.Mutex
	locks map[string]*fileLock
}

// NewFileBackend creates a file backend rooted at basePath.
func NewFileBackend(basePath string) *FileBackend {
	return &FileBackend{
		basePath: basePath,
		locks:    make(map[string]*fileLock),
	}
}

func (b *FileBackend) keyPath(key string) string {
	return filepath.Join(b.basePath, key+".json")
}

// Get retrieves and unmarshals the value stored at key.
func (b *FileBackend) Get(ctx context.Context, key string, v any) error {
	data, err := os.ReadFile(b.keyPath(key))
	if err != nil {
		if os.IsNotExist(err) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to read %s: %w", key, err)
	}

	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to unmarshal %s: %w", key, err)
	}
	return nil
}

// Put stores v at key atomically.
func (b *FileBackend) Put(ctx context.Context, key string, v any) error {
	path := b.keyPath(key)

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create storage directory: %w", err)
	}

	lock := b.getLock(path)
	if err := lock.Lock(); err != nil {
		return fmt.Errorf("failed to acquire lock for %s: %w", key, err)
	}
	defer lock.Unlock()

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", key, err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}

// Delete removes the value at key.
func (b *FileBackend) Delete(ctx context.Context, key string) error {
	path := b.keyPath(key)

	lock := b.getLock(path)
	if err := lock.Lock(); err != nil {
		return fmt.Errorf("failed to acquire lock for %s: %w", key, err)
	}
	defer lock.Unlock()

	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}

// Exists reports whether key has a stored value.
func (b *FileBackend) Exists(ctx context.Context, key string) bool {
	_, err := os.Stat(b.keyPath(key))
	return err == nil
}

func (b *FileBackend) getLock(path string) *fileLock {
	b.mu.Lock()
	defer b.mu.Unlock()

	lock, ok := b.locks[path]
	if !ok {
		lock = newFileLock(path)
		b.locks[path] = lock
	}
	return lock
}
