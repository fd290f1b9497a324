package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"itemcam/internal/dto"
	"itemcam/internal/logger"
	"itemcam/internal/recognition"
)

// multipartOverhead is headroom for form boundaries and other fields.
const multipartOverhead = 1 << 20

type Recognizer interface {
	Recognize(ctx context.Context, image []byte) (*recognition.Result, error)
}

type ResultCache interface {
	Clear() int
}

// readFormFile reads one multipart file field, rejecting files over maxBytes.
func readFormFile(w http.ResponseWriter, r *http.Request, field string, maxBytes int64) ([]byte, *multipart.FileHeader, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes+multipartOverhead)
	if err := r.ParseMultipartForm(maxBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, nil, errFileTooLarge(maxBytes)
		}
		return nil, nil, fmt.Errorf("invalid multipart form: %w", err)
	}

	file, header, err := r.FormFile(field)
	if err != nil {
		return nil, nil, fmt.Errorf("missing %s file", field)
	}
	defer file.Close()

	if header.Size > maxBytes {
		return nil, nil, errFileTooLarge(maxBytes)
	}

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read %s file: %w", field, err)
	}
	return data, header, nil
}

func errFileTooLarge(maxBytes int64) error {
	return fmt.Errorf("image too large, use an image under %dMB", maxBytes>>20)
}

// RecognizeHandler classifies an uploaded image, consulting the result cache first.
func RecognizeHandler(recognizer Recognizer, maxBytes int64, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		data, header, err := readFormFile(w, r, "image", maxBytes)
		if err != nil {
			writeError(w, logger, http.StatusBadRequest, err.Error())
			return
		}
		logger.Info("Recognition request: %s, %d bytes", header.Filename, len(data))

		result, err := recognizer.Recognize(r.Context(), data)
		if err != nil {
			status, msg := recognitionError(err)
			logger.Error("Recognition failed after %v: %v", time.Since(start), err)
			writeJSON(w, logger, status, map[string]interface{}{
				"error":          msg,
				"processingTime": time.Since(start).Milliseconds(),
			})
			return
		}

		writeJSON(w, logger, http.StatusOK, dto.RecognizeResponse{
			Result:         result.Text,
			Keyword:        result.Keyword,
			Score:          result.Score,
			Baike:          result.Description,
			Cached:         result.Cached,
			ProcessingTime: time.Since(start).Milliseconds(),
		})
	}
}

func recognitionError(err error) (int, string) {
	switch {
	case errors.Is(err, recognition.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "recognition timed out, please retry"
	case errors.Is(err, recognition.ErrUnavailable):
		return http.StatusServiceUnavailable, "recognition service unavailable, please retry"
	case errors.Is(err, recognition.ErrNotConfigured):
		return http.StatusServiceUnavailable, err.Error()
	default:
		return http.StatusBadGateway, "recognition failed: " + err.Error()
	}
}

// ClearRecognitionCacheHandler empties the recognition result cache so the
// next request for every image goes to the remote service.
func ClearRecognitionCacheHandler(cache ResultCache, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		n := cache.Clear()
		logger.Info("🧹 Recognition cache cleared, %d entries dropped", n)
		writeJSON(w, logger, http.StatusOK, map[string]interface{}{
			"success": true,
			"cleared": n,
		})
	}
}
