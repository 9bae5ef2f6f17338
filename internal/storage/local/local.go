package local

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/k1nderko/goit-pythonweb-hw-12/internal/storage"
)

// Storage implements storage.Storage on the local filesystem. Files are
// written under dir and served by the HTTP file server at baseURL/media/.
type Storage struct {
	dir     string
	baseURL string
}

// New creates a local disk storage rooted at dir, creating it if needed.
func New(dir, baseURL string) (*Storage, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir %s: %w", dir, err)
	}
	return &Storage{
		dir:     dir,
		baseURL: strings.TrimRight(baseURL, "/"),
	}, nil
}

// Upload writes the file to disk under its key.
func (s *Storage) Upload(_ context.Context, input *storage.UploadInput) (*storage.UploadResult, error) {
	key, err := sanitizeKey(input.Key)
	if err != nil {
		return nil, err
	}

	path := filepath.Join(s.dir, key)
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create file %s: %w", key, err)
	}

	if _, err := io.Copy(f, input.Data); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return nil, fmt.Errorf("write file %s: %w", key, err)
	}

	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("close file %s: %w", key, err)
	}

	return &storage.UploadResult{
		Key: key,
		URL: s.url(key),
	}, nil
}

// Delete removes the file from disk.
func (s *Storage) Delete(_ context.Context, key string) error {
	key, err := sanitizeKey(key)
	if err != nil {
		return err
	}

	if err := os.Remove(filepath.Join(s.dir, key)); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("file not found: %s", key)
		}
		return fmt.Errorf("delete file %s: %w", key, err)
	}
	return nil
}

// GetURL returns the public URL for the given key.
func (s *Storage) GetURL(_ context.Context, key string) (string, error) {
	key, err := sanitizeKey(key)
	if err != nil {
		return "", err
	}

	if _, err := os.Stat(filepath.Join(s.dir, key)); err != nil {
		return "", fmt.Errorf("file not found: %s", key)
	}
	return s.url(key), nil
}

// Dir returns the root directory, for wiring the HTTP file server.
func (s *Storage) Dir() string {
	return s.dir
}

func (s *Storage) url(key string) string {
	return fmt.Sprintf("%s/media/%s", s.baseURL, key)
}

// sanitizeKey rejects keys that would escape the storage directory.
func sanitizeKey(key string) (string, error) {
	cleaned := filepath.Clean(key)
	if cleaned == "." || cleaned == ".." ||
		strings.HasPrefix(cleaned, "..") ||
		filepath.IsAbs(cleaned) ||
		strings.ContainsRune(cleaned, filepath.Separator) {
		return "", fmt.Errorf("invalid storage key: %s", key)
	}
	return cleaned, nil
}
