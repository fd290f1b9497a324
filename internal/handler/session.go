package handler

import (
	"context"
	"net/http"

	"itemcam/internal/camera"
	"itemcam/internal/logger"
)

// Session is the dual camera session as seen by the HTTP surface.
type Session interface {
	Start(ctx context.Context) error
	Stop()
	Interact(ctx context.Context) error
	Status() camera.Status
	Devices() []camera.DeviceInfo
}

// SessionStatusHandler reports readiness of both roles and the session error.
func SessionStatusHandler(session Session, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, logger, http.StatusOK, session.Status())
	}
}

// StartSessionHandler acquires both cameras. Failure responds 503 with the session status.
func StartSessionHandler(session Session, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := session.Start(r.Context()); err != nil {
			logger.Error("Camera session start failed: %v", err)
			writeJSON(w, logger, http.StatusServiceUnavailable, session.Status())
			return
		}
		writeJSON(w, logger, http.StatusOK, session.Status())
	}
}

// StopSessionHandler releases both cameras. It is safe to call repeatedly.
func StopSessionHandler(session Session, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session.Stop()
		writeJSON(w, logger, http.StatusOK, session.Status())
	}
}

// InteractHandler retries playback that was blocked until a user gesture.
func InteractHandler(session Session, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := session.Interact(r.Context()); err != nil {
			logger.Warning("Playback retry failed: %v", err)
		}
		writeJSON(w, logger, http.StatusOK, session.Status())
	}
}

// DiagnosticsHandler lists detected devices and any missing-camera problems.
func DiagnosticsHandler(session Session, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		devices := session.Devices()
		problems := camera.Diagnose(devices)
		writeJSON(w, logger, http.StatusOK, map[string]interface{}{
			"supported": len(problems) == 0,
			"devices":   devices,
			"problems":  problems,
		})
	}
}
