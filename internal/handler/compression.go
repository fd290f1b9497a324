package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"itemcam/internal/compress"
	"itemcam/internal/logger"
	"itemcam/internal/repository"
)

// Invalidator drops a cached value so the next read refetches it.
type Invalidator interface {
	Invalidate()
}

// GetCompressionConfigHandler returns the stored presets, or the defaults when
// none are stored or the store fails.
func GetCompressionConfigHandler(repo repository.ConfigRepository, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cfg, err := repo.GetCompressionConfig(r.Context())
		if err != nil {
			if !errors.Is(err, repository.ErrNotFound) {
				logger.Warning("Loading compression config failed, serving defaults: %v", err)
			}
			cfg = compress.DefaultConfig()
		}
		writeJSON(w, logger, http.StatusOK, cfg)
	}
}

// SetCompressionConfigHandler validates and upserts the presets, then drops the cached copy.
func SetCompressionConfigHandler(repo repository.ConfigRepository, cache Invalidator, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var cfg compress.Config
		if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
			writeError(w, logger, http.StatusBadRequest, "invalid JSON body")
			return
		}
		if err := cfg.Validate(); err != nil {
			writeError(w, logger, http.StatusBadRequest, err.Error())
			return
		}

		if err := repo.SetCompressionConfig(r.Context(), cfg); err != nil {
			logger.Error("Saving compression config failed: %v", err)
			writeError(w, logger, http.StatusInternalServerError, err.Error())
			return
		}
		if cache != nil {
			cache.Invalidate()
		}

		logger.Info("Compression config updated")
		writeJSON(w, logger, http.StatusOK, map[string]interface{}{
			"success": true,
			"config":  cfg,
		})
	}
}
