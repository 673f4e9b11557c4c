package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/codebuildervaibhav/transcript-extractor/internal/types"
)

// LocalStorage keeps objects on the local filesystem as <root>/<container>/<key>
type LocalStorage struct {
	root string
}

// NewLocalStorage creates a new local storage handler
func NewLocalStorage(root string) *LocalStorage {
	return &LocalStorage{
		root: root,
	}
}

// ContainerDir is the directory holding a container's objects
func (ls *LocalStorage) ContainerDir(container string) string {
	return filepath.Join(ls.root, sanitizeFilename(container))
}

func (ls *LocalStorage) objectPath(container, key string) (string, error) {
	dir := ls.ContainerDir(container)
	p := filepath.Join(dir, filepath.FromSlash(key))
	if p != dir && !strings.HasPrefix(p, dir+string(filepath.Separator)) {
		return "", fmt.Errorf("object key %q escapes container %q", key, container)
	}
	if p == dir {
		return "", fmt.Errorf("empty object key")
	}
	return p, nil
}

func (ls *LocalStorage) Get(ctx context.Context, container, key string) ([]byte, error) {
	p, err := ls.objectPath(container, key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(p)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s/%s", types.ErrNotFound, container, key)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s/%s: %w", container, key, err)
	}
	return data, nil
}

func (ls *LocalStorage) Put(ctx context.Context, container, key string, body []byte) error {
	p, err := ls.objectPath(container, key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
		return fmt.Errorf("failed to create directory for %s/%s: %w", container, key, err)
	}
	if err := os.WriteFile(p, body, 0644); err != nil {
		return fmt.Errorf("failed to write %s/%s: %w", container, key, err)
	}
	return nil
}

// Delete removes an object. Deleting a missing object is not an error.
func (ls *LocalStorage) Delete(ctx context.Context, container, key string) error {
	p, err := ls.objectPath(container, key)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete %s/%s: %w", container, key, err)
	}
	return nil
}

// sanitizeFilename strips path components and caps the length
func sanitizeFilename(name string) string {
	result := filepath.Base(strings.NewReplacer("\\", "_", ":", "_").Replace(name))
	if result == "." || result == ".." || result == string(filepath.Separator) {
		result = "_"
	}
	if len(result) > 100 {
		result = result[:100]
	}
	return result
}

var _ ObjectStore = (*LocalStorage)(nil)
