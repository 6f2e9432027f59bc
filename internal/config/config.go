// Package config defines client configuration structures and loading hooks.
//
// Conventions:
// - Provide New() to build a Config with defaults.
// - Load layers defaults, an optional .env file, an optional YAML file and
//   EVENTLY_* environment variables.
// - External errors are wrapped with this package's sentinel kinds.
package config

import (
	"os"
	"path/filepath"
	"runtime"
)

// Session storage backends.
const (
	SessionBackendFile   = "file"
	SessionBackendMemory = "memory"
	SessionBackendRedis  = "redis"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogJSON switches log records to JSON.
	LogJSON bool `koanf:"log_json"`

	// BaseURL is the backend endpoint every request is resolved against.
	BaseURL string `koanf:"base_url"`

	// RequestTimeoutMS bounds one backend round trip. Zero disables the timeout.
	RequestTimeoutMS int `koanf:"request_timeout_ms"`

	// SessionBackend selects where the "user" record lives: file, memory or redis.
	SessionBackend string `koanf:"session_backend"`

	// SessionDir is the directory of the file session backend.
	SessionDir string `koanf:"session_dir"`

	// RedisURL addresses the redis session backend (redis://... or host:port).
	RedisURL string `koanf:"redis_url"`

	// NotifyBuffer bounds the notification queue.
	NotifyBuffer int `koanf:"notify_buffer"`

	// ImportWorkers sets the number of concurrent bulk import workers.
	ImportWorkers int `koanf:"import_workers"`

	// MetricsAddr, when set, exposes /healthz, /stats and /metrics in watch mode.
	MetricsAddr string `koanf:"metrics_addr"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:         "info",
		BaseURL:          "http://127.0.0.1:8000",
		RequestTimeoutMS: 30_000,
		SessionBackend:   SessionBackendFile,
		SessionDir:       defaultSessionDir(),
		NotifyBuffer:     64,
		ImportWorkers:    runtime.NumCPU() * 2,
	}
}

func defaultSessionDir() string {
	dir, err := os.UserConfigDir()
	if err != nil || dir == "" {
		return filepath.Join(os.TempDir(), "evently")
	}
	return filepath.Join(dir, "evently")
}
