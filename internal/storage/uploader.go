package storage

import (
	"context"
	"fmt"
	"time"

	"itemcam/internal/logger"
	"itemcam/internal/retry"
)

// Uploader enforces the upload size limit and retries server-side failures.
type Uploader struct {
	store    ObjectStore
	maxBytes int64
	policy   retry.Policy
	logger   *logger.Logger
}

func NewUploader(store ObjectStore, maxBytes int64, policy retry.Policy, logger *logger.Logger) *Uploader {
	return &Uploader{
		store:    store,
		maxBytes: maxBytes,
		policy:   policy,
		logger:   logger,
	}
}

func (u *Uploader) MaxBytes() int64 {
	return u.maxBytes
}

// Upload stores data at objectPath and returns its public URL. Payloads over
// the size limit fail with ErrTooLarge without contacting the store.
func (u *Uploader) Upload(ctx context.Context, objectPath string, data []byte, contentType string) (string, error) {
	if u.maxBytes > 0 && int64(len(data)) > u.maxBytes {
		return "", fmt.Errorf("%w: %d bytes, limit %d", ErrTooLarge, len(data), u.maxBytes)
	}

	start := time.Now()
	var url string
	err := u.policy.Do(ctx, func(ctx context.Context, attempt int) error {
		var err error
		url, err = u.store.Put(ctx, objectPath, data, contentType)
		if err != nil && attempt < u.policy.Retries && retry.IsRetriable(err) {
			u.logger.Warning("☁️  Upload of %s failed, retrying (%d/%d): %v", objectPath, attempt+1, u.policy.Retries, err)
		}
		return err
	})
	if err != nil {
		return "", err
	}

	u.logger.Info("☁️  Uploaded %s (%d bytes) in %v", objectPath, len(data), time.Since(start).Round(time.Millisecond))
	return url, nil
}
