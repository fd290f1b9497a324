package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// FileStore keeps objects in a local directory served under publicURL.
type FileStore struct {
	baseDir   string
	publicURL string
}

func NewFileStore(baseDir, publicURL string) (*FileStore, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}
	return &FileStore{
		baseDir:   baseDir,
		publicURL: strings.TrimSuffix(publicURL, "/"),
	}, nil
}

func (fs *FileStore) Dir() string {
	return fs.baseDir
}

func (fs *FileStore) Put(ctx context.Context, objectPath string, data []byte, contentType string) (string, error) {
	key, err := cleanObjectPath(objectPath)
	if err != nil {
		return "", err
	}

	target := filepath.Join(fs.baseDir, filepath.FromSlash(key))
	if !strings.HasPrefix(filepath.Clean(target), filepath.Clean(fs.baseDir)+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: path traversal detected", ErrInvalidPath)
	}

	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return "", fmt.Errorf("failed to create object directory: %w", err)
	}

	// Objects are never overwritten.
	f, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return "", fmt.Errorf("%w: %s", ErrExists, key)
		}
		return "", fmt.Errorf("failed to create object: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(target)
		return "", fmt.Errorf("failed to write object: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(target)
		return "", fmt.Errorf("failed to write object: %w", err)
	}

	return fs.publicURL + "/" + key, nil
}
