package handler

import (
	"context"
	"net/http"

	"itemcam/internal/dto"
	"itemcam/internal/logger"
	"itemcam/internal/service/capture"
)

// Capturer runs one capture invocation.
type Capturer interface {
	Trigger(ctx context.Context) capture.Outcome
}

// CaptureHandler triggers a capture. A skipped trigger responds 409; a failed
// one still responds 200 with the message the user should see.
func CaptureHandler(capturer Capturer, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		out := capturer.Trigger(r.Context())

		resp := dto.CaptureResponse{
			CaptureID: out.CaptureID,
			Status:    string(out.Kind),
			Cached:    out.Cached,
		}
		switch out.Kind {
		case capture.Skipped:
			resp.Error = out.Error
			writeJSON(w, logger, http.StatusConflict, resp)
		case capture.Recognized:
			resp.Result = out.Text
			writeJSON(w, logger, http.StatusOK, resp)
		default:
			resp.Error = out.Error
			writeJSON(w, logger, http.StatusOK, resp)
		}
	}
}
