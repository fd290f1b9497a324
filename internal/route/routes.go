package route

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"itemcam/internal/handler"
	"itemcam/internal/logger"
	"itemcam/internal/metrics"
	"itemcam/internal/middleware"
	"itemcam/internal/repository"
)

// Services are the collaborators the HTTP surface is built on.
type Services struct {
	Session     handler.Session
	Capturer    handler.Capturer
	InFlight    func() bool
	Recognizer  handler.Recognizer
	Uploader    handler.Uploader
	Saver       handler.RecordSaver
	Store       repository.Store
	ConfigCache handler.Invalidator
	Hub         handler.Hub
	Metrics     *metrics.Metrics

	// RecognitionCache is cleared by POST /api/recognition-cache/clear.
	RecognitionCache handler.ResultCache
	// Health adds named sections to the /health payload.
	Health map[string]handler.HealthSection

	// FilesDir is served under /files/ when objects live on local disk.
	FilesDir string
	Started  time.Time
}

// SetupRoutes registers the API, log and file endpoints and wraps the router
// with request logging and panic recovery.
func SetupRoutes(s Services, logger *logger.Logger) http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/health", handler.HealthHandler(s.Session, s.InFlight, s.Started, s.Health, logger)).Methods(http.MethodGet)
	if s.Metrics != nil {
		r.Handle("/metrics", s.Metrics.Handler()).Methods(http.MethodGet)
	}

	api := r.PathPrefix("/api").Subrouter()

	// Camera session
	api.HandleFunc("/session", handler.SessionStatusHandler(s.Session, logger)).Methods(http.MethodGet)
	api.HandleFunc("/session/start", handler.StartSessionHandler(s.Session, logger)).Methods(http.MethodPost)
	api.HandleFunc("/session/stop", handler.StopSessionHandler(s.Session, logger)).Methods(http.MethodPost)
	api.HandleFunc("/session/interact", handler.InteractHandler(s.Session, logger)).Methods(http.MethodPost)
	api.HandleFunc("/camera/diagnostics", handler.DiagnosticsHandler(s.Session, logger)).Methods(http.MethodGet)

	// Capture pipeline
	api.HandleFunc("/capture", handler.CaptureHandler(s.Capturer, logger)).Methods(http.MethodPost)
	api.HandleFunc("/recognize", handler.RecognizeHandler(s.Recognizer, s.Uploader.MaxBytes(), logger)).Methods(http.MethodPost)
	api.HandleFunc("/upload", handler.UploadHandler(s.Uploader, logger)).Methods(http.MethodPost)
	if s.RecognitionCache != nil {
		api.HandleFunc("/recognition-cache/clear", handler.ClearRecognitionCacheHandler(s.RecognitionCache, logger)).Methods(http.MethodPost)
	}

	// Records and configuration
	api.HandleFunc("/records", handler.SaveRecordHandler(s.Saver, logger)).Methods(http.MethodPost)
	api.HandleFunc("/records", handler.ListRecordsHandler(s.Store, logger)).Methods(http.MethodGet)
	api.HandleFunc("/compression-config", handler.GetCompressionConfigHandler(s.Store, logger)).Methods(http.MethodGet)
	api.HandleFunc("/compression-config", handler.SetCompressionConfigHandler(s.Store, s.ConfigCache, logger)).Methods(http.MethodPost)

	api.HandleFunc("/view", handler.ViewWebsocketHandler(s.Hub, logger)).Methods(http.MethodGet)

	// Log endpoints
	r.HandleFunc("/logs/{level}", handler.ShowLogsHandler(logger)).Methods(http.MethodGet)
	r.HandleFunc("/logs/{level}/clear", handler.ClearLogsHandler(logger)).Methods(http.MethodPost)

	if s.FilesDir != "" {
		r.PathPrefix("/files/").Handler(http.StripPrefix("/files/", http.FileServer(http.Dir(s.FilesDir)))).Methods(http.MethodGet)
	}

	return middleware.Recover(logger)(middleware.Logging(logger)(r))
}
