package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"itemcam/internal/camera"
	"itemcam/internal/camera/udpfeed"
	"itemcam/internal/camera/webcam"
	"itemcam/internal/compress"
	"itemcam/internal/config"
	"itemcam/internal/handler"
	"itemcam/internal/logger"
	"itemcam/internal/metrics"
	"itemcam/internal/recognition"
	"itemcam/internal/repository"
	"itemcam/internal/repository/postgres"
	"itemcam/internal/repository/sqlite"
	"itemcam/internal/retry"
	"itemcam/internal/route"
	"itemcam/internal/service/capture"
	"itemcam/internal/service/notify"
	"itemcam/internal/service/record"
	"itemcam/internal/service/websocket"
	"itemcam/internal/storage"
)

const (
	shutdownTimeout   = 10 * time.Second
	backgroundTimeout = 15 * time.Second
	httpClientTimeout = 30 * time.Second
)

type App struct {
	config  *config.Config
	logger  *logger.Logger
	metrics *metrics.Metrics

	store       repository.Store
	session     *camera.Session
	feed        *udpfeed.Feed
	compressor  *compress.Compressor
	configCache *compress.ConfigCache
	recognizer  *recognition.Service
	uploader    *storage.Uploader
	saver       *record.Saver
	capture     *capture.Service
	hubService  *websocket.HubService
	mqtt        *notify.MQTTPublisher
	filesDir    string

	started time.Time
}

// OpenStore opens the record and configuration store selected by DB_DRIVER.
// The schema is created on open.
func OpenStore(ctx context.Context, cfg *config.Config) (repository.Store, error) {
	switch cfg.DBDriver {
	case "postgres":
		if cfg.DatabaseURL == "" {
			return nil, errors.New("DATABASE_URL is required for the postgres driver")
		}
		return postgres.New(ctx, cfg.DatabaseURL)
	case "sqlite", "":
		if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
		return sqlite.Open(cfg.DBPath)
	default:
		return nil, fmt.Errorf("unknown DB_DRIVER %q", cfg.DBDriver)
	}
}

func NewApp(ctx context.Context, cfg *config.Config, log *logger.Logger) (*App, error) {
	a := &App{
		config:     cfg,
		logger:     log,
		metrics:    metrics.New(),
		hubService: websocket.NewHubService(log),
		started:    time.Now(),
	}

	store, err := OpenStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a.store = store

	objects, err := a.objectStore()
	if err != nil {
		store.Close()
		return nil, err
	}

	publishers := notify.Multi{notify.NewHubPublisher(a.hubService)}
	if cfg.MQTTBroker != "" {
		a.mqtt = notify.NewMQTTPublisher(cfg.MQTTBroker, cfg.InstanceID, cfg.MQTTTopic, log)
		publishers = append(publishers, a.mqtt)
	}

	front, rear := a.cameraDevices()
	a.session = camera.NewSession(front, rear, log)
	a.session.Watch(notify.SessionWatcher(publishers))

	a.compressor = compress.NewCompressor(log,
		compress.WithWorkers(cfg.CompressionWorkers),
		compress.WithTimeout(cfg.CompressionTimeout),
		compress.WithFallbackHook(func(reason error) { a.metrics.CompressionFallback() }),
	)
	a.configCache = compress.NewConfigCache(store, cfg.ConfigCacheTTL, log)

	httpClient := &http.Client{Timeout: httpClientTimeout}
	tokens := recognition.NewTokenSource(httpClient, cfg.RecognitionTokenURL, cfg.RecognitionAPIKey, cfg.RecognitionSecretKey, log)
	client := recognition.NewClient(httpClient, cfg.RecognitionClassifyURL, tokens, retry.Default(), log)
	a.recognizer = recognition.NewService(recognition.NewCache(cfg.ResultCacheTTL, cfg.ResultCacheSize), client, a.metrics, log)

	a.uploader = storage.NewUploader(objects, cfg.MaxUploadBytes, retry.Default(), log)
	a.saver = record.NewSaver(store, retry.Default(), publishers, a.metrics, log)

	a.capture = capture.NewService(capture.Deps{
		Camera:     a.session,
		Compressor: a.compressor,
		Policy:     a.configCache,
		Recognizer: a.recognizer,
		Uploader:   a.uploader,
		Saver:      a.saver,
		Publisher:  publishers,
		Metrics:    a.metrics,
		Logger:     log,
	}, capture.WithUploadWaits(cfg.RearUploadWait, cfg.FrontUploadWait))

	return a, nil
}

func (a *App) objectStore() (storage.ObjectStore, error) {
	switch a.config.StoreBackend {
	case "http":
		if a.config.StoreEndpoint == "" {
			return nil, errors.New("STORE_ENDPOINT is required for the http object store")
		}
		return storage.NewHTTPStore(a.config.StoreEndpoint, a.config.StoreBucket, a.config.StoreKey, &http.Client{Timeout: httpClientTimeout}), nil
	case "fs", "":
		fs, err := storage.NewFileStore(a.config.StoreDirectory, a.config.StorePublicURL)
		if err != nil {
			return nil, err
		}
		a.filesDir = fs.Dir()
		return fs, nil
	default:
		return nil, fmt.Errorf("unknown STORE_BACKEND %q", a.config.StoreBackend)
	}
}

func (a *App) cameraDevices() (front, rear camera.Device) {
	switch a.config.CameraSource {
	case "webcam":
		return webcam.New(a.config.FrontCameraDevice, camera.Front, a.logger),
			webcam.New(a.config.RearCameraDevice, camera.Rear, a.logger)
	case "udp":
		a.feed = udpfeed.New(a.config, a.logger)
		return a.feed.Device(camera.Front), a.feed.Device(camera.Rear)
	default:
		return camera.NewSynthetic("synthetic-front", "Front Camera (synthetic)", camera.Front),
			camera.NewSynthetic("synthetic-rear", "Back Camera (synthetic)", camera.Rear)
	}
}

func (a *App) healthSections() map[string]handler.HealthSection {
	sections := map[string]handler.HealthSection{
		"recognitionCache": func() interface{} { return a.recognizer.Cache().Stats() },
	}
	if a.mqtt != nil {
		sections["mqtt"] = func() interface{} { return a.mqtt.Stats() }
	}
	return sections
}

func (a *App) Session() *camera.Session  { return a.session }
func (a *App) Capture() *capture.Service { return a.capture }
func (a *App) Store() repository.Store   { return a.store }

// Start launches the background services: the viewer hub, the UDP feed, the
// MQTT connection and, when enabled, the camera session.
func (a *App) Start(ctx context.Context, startCameras bool) {
	go a.hubService.Run(ctx)

	if a.feed != nil {
		go func() {
			if err := a.feed.Run(ctx); err != nil {
				a.logger.Error("UDP camera feed stopped: %v", err)
			}
		}()
	}

	if a.mqtt != nil {
		if err := a.mqtt.Connect(ctx); err != nil {
			a.logger.Warning("MQTT broker %s unavailable, retrying in background: %v", a.config.MQTTBroker, err)
		}
	}

	if startCameras {
		if err := a.session.Start(ctx); err != nil {
			a.logger.Warning("Camera session not started: %s", camera.Describe(err))
		}
	}
}

// Run serves HTTP until ctx is cancelled, then shuts everything down.
func (a *App) Run(ctx context.Context) error {
	a.Start(ctx, a.config.CameraAutoStart)

	router := route.SetupRoutes(route.Services{
		Session:     a.session,
		Capturer:    a.capture,
		InFlight:    a.capture.InFlight,
		Recognizer:  a.recognizer,
		Uploader:    a.uploader,
		Saver:       a.saver,
		Store:       a.store,
		ConfigCache: a.configCache,
		Hub:         a.hubService,
		Metrics:     a.metrics,
		FilesDir:    a.filesDir,
		Started:     a.started,

		RecognitionCache: a.recognizer.Cache(),
		Health:           a.healthSections(),
	}, a.logger)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", a.config.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	fmt.Printf("🚀 Item Recognition Camera\n")
	fmt.Printf("📍 URL: http://localhost:%d\n", a.config.Port)
	fmt.Printf("📷 Cameras: %s\n", a.config.CameraSource)
	fmt.Printf("🗄️  Store: %s\n", a.config.DBDriver)
	fmt.Printf("📁 Objects: %s\n", a.config.StoreBackend)

	errCh := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	var serveErr error
	select {
	case <-ctx.Done():
	case serveErr = <-errCh:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		a.logger.Warning("HTTP server shutdown: %v", err)
	}

	a.Close()
	return serveErr
}

// Close lets pending uploads and record writes settle for a while, then
// releases the cameras, the workers and the store.
func (a *App) Close() {
	done := make(chan struct{})
	go func() {
		a.capture.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(backgroundTimeout):
		a.logger.Warning("Background persistence still pending after %v, abandoning", backgroundTimeout)
	}
	a.capture.Close()

	a.session.Stop()
	a.compressor.Close()
	if a.mqtt != nil {
		a.mqtt.Disconnect()
	}
	if err := a.store.Close(); err != nil {
		a.logger.Error("Closing store: %v", err)
	}
	a.logger.Info("👋 Shutdown complete")
}
