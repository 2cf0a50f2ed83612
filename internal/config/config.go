package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Record backends for the structured annotation record.
const (
	RecordBackendJSON   = "json"   // one <stem>.json per image
	RecordBackendStatus = "status" // single status.json map
)

type Config struct {
	Port             int
	StaticDirectory  string
	ImageDirectory   string
	LabelDirectory   string
	RecordDirectory  string
	RecordBackend    string
	IndexDBPath      string // empty disables the SQLite index
	LogDirectory     string
	ExtractMetadata  bool
	WatchImageDir    bool
	WatchDebounce    time.Duration
	SubscriberBuffer int
	MaxUploadMB      int64
	ThumbnailSize    int
	Location         *time.Location
}

// Load reads an optional .env file and then the environment.
func Load() *Config {
	_ = godotenv.Load(getEnv("ENV_FILE", ".env"))

	uploads := filepath.Join(".", "static", "uploads")
	return &Config{
		Port:             getEnvAsInt("PORT", 5000),
		StaticDirectory:  getEnv("STATIC_DIR", filepath.Join(".", "static")),
		ImageDirectory:   getEnv("IMAGE_DIR", filepath.Join(uploads, "images")),
		LabelDirectory:   getEnv("LABEL_DIR", filepath.Join(uploads, "labels")),
		RecordDirectory:  getEnv("RECORD_DIR", filepath.Join(uploads, "jsons")),
		RecordBackend:    strings.ToLower(getEnv("RECORD_BACKEND", RecordBackendJSON)),
		IndexDBPath:      getEnvAllowEmpty("INDEX_DB_PATH", filepath.Join(".", "data", "records.db")),
		LogDirectory:     getEnv("LOG_DIR", filepath.Join(".", "logs")),
		ExtractMetadata:  getEnvAsBool("EXTRACT_METADATA", false), // EXIF parsing is slow on the Pi
		WatchImageDir:    getEnvAsBool("WATCH_IMAGE_DIR", false),
		WatchDebounce:    getEnvAsDuration("WATCH_DEBOUNCE", 500*time.Millisecond),
		SubscriberBuffer: getEnvAsInt("SUBSCRIBER_BUFFER", 16),
		MaxUploadMB:      getEnvAsInt64("MAX_UPLOAD_MB", 32),
		ThumbnailSize:    getEnvAsInt("THUMBNAIL_SIZE", 320),
		Location:         getEnvAsLocation("TIMEZONE", time.Local),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAllowEmpty lets an explicitly empty value switch a feature off.
func getEnvAllowEmpty(key, defaultValue string) string {
	if value, ok := os.LookupEnv(key); ok {
		return strings.TrimSpace(value)
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
		return IsTruthy(value)
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

func getEnvAsLocation(key string, defaultValue *time.Location) *time.Location {
	if value := os.Getenv(key); value != "" {
		if loc, err := time.LoadLocation(value); err == nil {
			return loc
		}
	}
	return defaultValue
}

// IsTruthy reports whether s is one of "1", "true", "yes", "on" (any case).
func IsTruthy(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}
