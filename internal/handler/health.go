package handler

import (
	"net/http"
	"time"

	"itemcam/internal/logger"
)

// HealthSection returns one named block of the /health payload.
type HealthSection func() interface{}

// HealthHandler reports liveness, camera readiness and whether a capture is
// running, followed by any extra sections such as cache and broker stats.
func HealthHandler(session Session, inFlight func() bool, started time.Time, sections map[string]HealthSection, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		st := session.Status()
		body := map[string]interface{}{
			"status":         "ok",
			"uptime":         time.Since(started).Round(time.Second).String(),
			"sessionActive":  st.Active,
			"rearReady":      st.Rear.Ready,
			"frontReady":     st.Front.Ready,
			"captureRunning": inFlight(),
		}
		for name, section := range sections {
			body[name] = section()
		}
		writeJSON(w, logger, http.StatusOK, body)
	}
}
