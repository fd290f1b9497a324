package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port          int
	InstanceID    string
	LogDirectory  string
	DataDirectory string

	// Record and configuration store
	DBDriver    string // sqlite | postgres
	DBPath      string
	DatabaseURL string

	// Object store
	StoreBackend   string // fs | http
	StoreDirectory string
	StorePublicURL string
	StoreEndpoint  string
	StoreBucket    string
	StoreKey       string
	MaxUploadBytes int64

	// Recognition provider
	RecognitionTokenURL    string
	RecognitionClassifyURL string
	RecognitionAPIKey      string
	RecognitionSecretKey   string
	ResultCacheTTL         time.Duration
	ResultCacheSize        int

	// Compression
	CompressionWorkers int
	CompressionTimeout time.Duration
	ConfigCacheTTL     time.Duration

	// Cameras
	CameraSource      string // synthetic | webcam | udp
	FrontCameraDevice int
	RearCameraDevice  int
	CamerasPort       int
	CameraRoles       map[string]string // camera IP -> role
	CameraAutoStart   bool

	// Background persistence waits
	RearUploadWait  time.Duration
	FrontUploadWait time.Duration

	// Notifications
	MQTTBroker string
	MQTTTopic  string
}

func Load() *Config {
	// A missing .env file is fine, the process environment wins anyway.
	_ = godotenv.Load()

	dataDir := getEnv("DATA_DIR", filepath.Join(".", "data"))
	port := getEnvAsInt("PORT", 8080)

	return &Config{
		Port:          port,
		InstanceID:    getEnv("INSTANCE_ID", "itemcam"),
		LogDirectory:  getEnv("LOG_DIR", filepath.Join(".", "logs")),
		DataDirectory: dataDir,

		DBDriver:    getEnv("DB_DRIVER", "sqlite"),
		DBPath:      getEnv("DB_PATH", filepath.Join(dataDir, "itemcam.db")),
		DatabaseURL: getEnv("DATABASE_URL", ""),

		StoreBackend:   getEnv("STORE_BACKEND", "fs"),
		StoreDirectory: getEnv("STORE_DIR", filepath.Join(dataDir, "objects")),
		StorePublicURL: getEnv("STORE_PUBLIC_URL", "http://localhost:"+strconv.Itoa(port)+"/files"),
		StoreEndpoint:  getEnv("STORE_ENDPOINT", ""),
		StoreBucket:    getEnv("STORE_BUCKET", "images"),
		StoreKey:       getEnv("STORE_KEY", ""),
		MaxUploadBytes: getEnvAsInt64("MAX_UPLOAD_BYTES", 2*1024*1024),

		RecognitionTokenURL:    getEnv("RECOGNITION_TOKEN_URL", "https://aip.baidubce.com/oauth/2.0/token"),
		RecognitionClassifyURL: getEnv("RECOGNITION_CLASSIFY_URL", "https://aip.baidubce.com/rest/2.0/image-classify/v2/advanced_general"),
		RecognitionAPIKey:      getEnv("RECOGNITION_API_KEY", ""),
		RecognitionSecretKey:   getEnv("RECOGNITION_SECRET_KEY", ""),
		ResultCacheTTL:         getEnvAsDuration("RESULT_CACHE_TTL", 5*time.Minute),
		ResultCacheSize:        getEnvAsInt("RESULT_CACHE_SIZE", 100),

		CompressionWorkers: getEnvAsInt("COMPRESSION_WORKERS", 2),
		CompressionTimeout: getEnvAsDuration("COMPRESSION_TIMEOUT", 30*time.Second),
		ConfigCacheTTL:     getEnvAsDuration("CONFIG_CACHE_TTL", 5*time.Minute),

		CameraSource:      getEnv("CAMERA_SOURCE", "synthetic"),
		FrontCameraDevice: getEnvAsInt("FRONT_CAMERA_DEVICE", 1),
		RearCameraDevice:  getEnvAsInt("REAR_CAMERA_DEVICE", 0),
		CamerasPort:       getEnvAsInt("CAMERAS_PORT", 8081),
		CameraRoles:       parseCameraRoles(getEnv("CAMERA_ROLES", "")),
		CameraAutoStart:   getEnvAsBool("CAMERA_AUTOSTART", true),

		RearUploadWait:  getEnvAsDuration("REAR_UPLOAD_WAIT", 10*time.Second),
		FrontUploadWait: getEnvAsDuration("FRONT_UPLOAD_WAIT", 2*time.Second),

		MQTTBroker: getEnv("MQTT_BROKER", ""),
		MQTTTopic:  getEnv("MQTT_TOPIC", "itemcam/events"),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil && d > 0 {
			return d
		}
	}
	return defaultValue
}

// parseCameraRoles reads "192.168.1.10=rear,192.168.1.11=front".
func parseCameraRoles(v string) map[string]string {
	roles := make(map[string]string)
	for _, pair := range strings.Split(v, ",") {
		ip, role, ok := strings.Cut(strings.TrimSpace(pair), "=")
		if !ok || ip == "" || role == "" {
			continue
		}
		roles[strings.TrimSpace(ip)] = strings.ToLower(strings.TrimSpace(role))
	}
	return roles
}
