package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Event source kinds.
const (
	SourceDB   = "db"
	SourceFile = "file"
)

// Config holds the runtime configuration for the dashboard server and CLI.
// Values come from environment variables (optionally via a .env file) with
// defaults where sensible. See .env.example.
type Config struct {
	AdminUser     string
	AdminPassword string

	// SessionSecret keys the session cookie signature. When empty, main
	// generates one per process and sessions end on restart.
	SessionSecret string

	DatabaseURL string

	ListenAddr string

	// RetentionDays is how long ingested events are kept before the
	// retention worker removes them. Per-key settings are clamped to it.
	RetentionDays int

	// IngestAPIKey, if set, is provisioned for the admin user at startup so
	// a feeder can push events without visiting the UI first.
	IngestAPIKey string

	// EventSource selects where the event log is read from: "db" for the
	// ingested log, "file" for a spreadsheet export at EventFile.
	EventSource string
	EventFile   string

	// RefreshInterval is how long a loaded event snapshot is served before
	// it is read again.
	RefreshInterval time.Duration

	// ForecastMinDays is the fewest observed days a forecast series needs.
	ForecastMinDays int
}

// Load reads configuration from environment variables and applies defaults.
func Load() *Config {
	cfg := &Config{
		AdminUser:       getenv("APP_ADMIN_USER", "admin"),
		AdminPassword:   getenv("APP_ADMIN_PASSWORD", "changeme"),
		SessionSecret:   os.Getenv("APP_SESSION_SECRET"),
		DatabaseURL:     os.Getenv("APP_DATABASE_URL"),
		ListenAddr:      getenv("APP_LISTEN_ADDR", ":8080"),
		RetentionDays:   90,
		IngestAPIKey:    getenv("APP_INGEST_API_KEY", ""),
		EventSource:     strings.ToLower(getenv("APP_EVENT_SOURCE", SourceDB)),
		EventFile:       os.Getenv("APP_EVENT_FILE"),
		RefreshInterval: 10 * time.Minute,
		ForecastMinDays: 8,
	}

	if v := os.Getenv("APP_RETENTION_DAYS"); v != "" {
		if days, err := strconv.Atoi(v); err == nil && days > 0 {
			cfg.RetentionDays = days
		}
	}
	if v := os.Getenv("APP_REFRESH_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.RefreshInterval = d
		}
	}
	if v := os.Getenv("APP_FORECAST_MIN_DAYS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.ForecastMinDays = n
		}
	}
	if cfg.EventSource != SourceFile {
		cfg.EventSource = SourceDB
	}

	return cfg
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
