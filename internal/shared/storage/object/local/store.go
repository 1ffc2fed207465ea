package local

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"audit-backend/internal/shared/storage/object"
)

// Store implements ObjectStore using the local filesystem.
type Store struct {
	baseDir string
	baseURL string
}

// New creates a new local object store rooted at baseDir. Public URLs are
// formed by joining baseURL with the storage key.
func New(baseDir, baseURL string) object.ObjectStore {
	return &Store{baseDir: baseDir, baseURL: strings.TrimRight(baseURL, "/")}
}

// Get reads a stored object.
func (s *Store) Get(ctx context.Context, storageKey string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	clean, err := cleanKey(storageKey)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(filepath.Join(s.baseDir, clean))
	if err != nil {
		return nil, fmt.Errorf("local get key=%s: %w", storageKey, err)
	}
	return data, nil
}

// Put writes an object to disk and returns its public URL.
func (s *Store) Put(ctx context.Context, storageKey string, contentType string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	clean, err := cleanKey(storageKey)
	if err != nil {
		return "", err
	}

	fullPath := filepath.Join(s.baseDir, clean)
	if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		return "", fmt.Errorf("local put key=%s: mkdir: %w", storageKey, err)
	}
	if err := os.WriteFile(fullPath, data, 0o644); err != nil {
		return "", fmt.Errorf("local put key=%s: write: %w", storageKey, err)
	}

	return s.baseURL + "/" + filepath.ToSlash(clean), nil
}

func cleanKey(storageKey string) (string, error) {
	clean := filepath.Clean(storageKey)
	if strings.HasPrefix(clean, "..") || filepath.IsAbs(clean) {
		return "", fmt.Errorf("invalid storage key")
	}
	return clean, nil
}

var _ object.ObjectStore = (*Store)(nil)
