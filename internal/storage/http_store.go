package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"itemcam/internal/retry"
)

// HTTPStore writes objects to a REST object storage endpoint
// (POST {endpoint}/storage/v1/object/{bucket}/{path}) and returns the
// bucket's public URL for them.
type HTTPStore struct {
	endpoint   string
	bucket     string
	key        string
	httpClient *http.Client
}

func NewHTTPStore(endpoint, bucket, key string, httpClient *http.Client) *HTTPStore {
	return &HTTPStore{
		endpoint:   strings.TrimSuffix(endpoint, "/"),
		bucket:     bucket,
		key:        key,
		httpClient: httpClient,
	}
}

func (s *HTTPStore) Put(ctx context.Context, objectPath string, data []byte, contentType string) (string, error) {
	key, err := cleanObjectPath(objectPath)
	if err != nil {
		return "", err
	}

	url := fmt.Sprintf("%s/storage/v1/object/%s/%s", s.endpoint, s.bucket, key)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("x-upsert", "false")
	if s.key != "" {
		req.Header.Set("Authorization", "Bearer "+s.key)
		req.Header.Set("apikey", s.key)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", key, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", &retry.StatusError{Op: "upload " + key, Code: resp.StatusCode, Body: string(body)}
	}

	return s.PublicURL(key), nil
}

func (s *HTTPStore) PublicURL(key string) string {
	return fmt.Sprintf("%s/storage/v1/object/public/%s/%s", s.endpoint, s.bucket, key)
}
