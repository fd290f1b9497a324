package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"itemcam/internal/dto"
	"itemcam/internal/logger"
	"itemcam/internal/retry"
	"itemcam/internal/storage"
)

type Uploader interface {
	Upload(ctx context.Context, objectPath string, data []byte, contentType string) (string, error)
	MaxBytes() int64
}

// UploadHandler stores a multipart "file" under "path" and returns its public URL.
func UploadHandler(uploader Uploader, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		data, header, err := readFormFile(w, r, "file", uploader.MaxBytes())
		if err != nil {
			writeError(w, logger, http.StatusBadRequest, err.Error())
			return
		}

		path := r.FormValue("path")
		if path == "" {
			writeError(w, logger, http.StatusBadRequest, "missing file or path")
			return
		}

		contentType := header.Header.Get("Content-Type")
		if contentType == "" {
			contentType = http.DetectContentType(data)
		}

		url, err := uploader.Upload(r.Context(), path, data, contentType)
		switch {
		case errors.Is(err, storage.ErrTooLarge), errors.Is(err, storage.ErrInvalidPath):
			writeError(w, logger, http.StatusBadRequest, err.Error())
			return
		case errors.Is(err, storage.ErrExists), retry.StatusCode(err) == http.StatusConflict:
			writeError(w, logger, http.StatusConflict, err.Error())
			return
		case err != nil:
			logger.Error("Upload of %s failed: %v", path, err)
			writeError(w, logger, http.StatusInternalServerError, err.Error())
			return
		}

		writeJSON(w, logger, http.StatusOK, dto.UploadResponse{
			URL:        url,
			Path:       path,
			UploadTime: time.Since(start).Milliseconds(),
		})
	}
}
