package storage

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"
)

var (
	ErrTooLarge    = errors.New("object exceeds upload size limit")
	ErrInvalidPath = errors.New("invalid object path")
	ErrExists      = errors.New("object already exists")
)

// ObjectStore is a blob store that hands out public URLs.
type ObjectStore interface {
	Put(ctx context.Context, objectPath string, data []byte, contentType string) (string, error)
}

// ItemPath is where the rear camera photo of a capture is stored.
func ItemPath(t time.Time) string {
	return fmt.Sprintf("items/%d_item.jpg", t.UnixMilli())
}

// FacePath is where the front camera photo of a capture is stored.
func FacePath(t time.Time) string {
	return fmt.Sprintf("faces/%d_face.jpg", t.UnixMilli())
}

// cleanObjectPath rejects empty, absolute and escaping paths.
func cleanObjectPath(p string) (string, error) {
	if p == "" || strings.HasPrefix(p, "/") || strings.Contains(p, "\\") {
		return "", fmt.Errorf("%w: %q", ErrInvalidPath, p)
	}
	cleaned := path.Clean(p)
	if cleaned == "." || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", fmt.Errorf("%w: %q", ErrInvalidPath, p)
	}
	return cleaned, nil
}
