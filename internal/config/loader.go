package config

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Environment variables that steer loading itself.
const (
	EnvPrefix  = "EVENTLY_"
	EnvConfig  = "EVENTLY_CONFIG"
	EnvEnvFile = "EVENTLY_ENV_FILE"

	defaultEnvFile = ".env"
)

// Load builds a Config by layering sources.
// Order of precedence (low -> high):
//  1. defaults (New())
//  2. .env file (EVENTLY_ENV_FILE, or ./.env when present)
//  3. YAML file named by EVENTLY_CONFIG (process env, else the .env file)
//  4. env (prefix EVENTLY_)
//
// The .env file is read into its own layer; the process environment is left
// untouched.
func Load(_ context.Context) (*Config, error) {
	dotenv, err := readEnvFile()
	if err != nil {
		return nil, err
	}

	base := New()
	k := koanf.New(".")

	for name, val := range dotenv {
		if key, ok := envKey(name); ok {
			if err := k.Set(key, val); err != nil {
				return nil, fmt.Errorf("%w: env file: %v", ErrLoadConfig, err)
			}
		}
	}

	path := os.Getenv(EnvConfig)
	if path == "" {
		path = dotenv[EnvConfig]
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: read %s: %v", ErrLoadConfig, path, err)
		}
	}

	envProvider := env.Provider(EnvPrefix, ".", func(s string) string {
		key, _ := envKey(s)
		return key
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: env: %v", ErrLoadConfig, err)
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoadConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// envKey maps EVENTLY_BASE_URL to base_url. Underscores are preserved to
// match the flat koanf tags on the struct.
func envKey(name string) (string, bool) {
	if !strings.HasPrefix(name, EnvPrefix) {
		return "", false
	}
	return strings.ToLower(strings.TrimPrefix(name, EnvPrefix)), true
}

func readEnvFile() (map[string]string, error) {
	path := os.Getenv(EnvEnvFile)
	if path == "" {
		if _, err := os.Stat(defaultEnvFile); err != nil {
			return nil, nil
		}
		path = defaultEnvFile
	}
	vars, err := godotenv.Read(path)
	if err != nil {
		return nil, fmt.Errorf("%w: env file %s: %v", ErrLoadConfig, path, err)
	}
	return vars, nil
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.BaseURL) == "" {
		return fmt.Errorf("%w: base_url must not be empty", ErrInvalidConfig)
	}
	u, err := url.Parse(c.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%w: base_url %q must be an absolute URL", ErrInvalidConfig, c.BaseURL)
	}
	if c.RequestTimeoutMS < 0 {
		return fmt.Errorf("%w: request_timeout_ms must not be negative", ErrInvalidConfig)
	}
	switch c.SessionBackend {
	case SessionBackendFile:
		if strings.TrimSpace(c.SessionDir) == "" {
			return fmt.Errorf("%w: session_dir must not be empty for the file backend", ErrInvalidConfig)
		}
	case SessionBackendMemory:
	case SessionBackendRedis:
		if strings.TrimSpace(c.RedisURL) == "" {
			return fmt.Errorf("%w: redis_url must be set for the redis backend", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown session_backend %q", ErrInvalidConfig, c.SessionBackend)
	}
	if c.NotifyBuffer <= 0 {
		return fmt.Errorf("%w: notify_buffer must be positive", ErrInvalidConfig)
	}
	return nil
}
