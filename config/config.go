// Package config loads server settings from the environment and an optional .env file
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

var ErrInvalidConfig = errors.New("invalid configuration")

const (
	BackendFS     = "fs"
	BackendBadger = "badger"
)

type Config struct {
	Port           string
	AllowedOrigins []string
	StorageBackend string
	OutputDir      string
	BadgerDir      string
	ArtifactTTL    time.Duration
	SweepInterval  time.Duration
	MaxUploadBytes int64
	LogLevel       logrus.Level
	GinMode        string
}

// Load reads the given .env files (default ".env"), skipping missing ones,
// then builds the config from the environment. Variables already set in the
// environment win over the file.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: loading %s: %v", ErrInvalidConfig, f, err)
		}
	}
	return FromEnv()
}

// FromEnv builds the config from environment variables only.
func FromEnv() (*Config, error) {
	cfg := &Config{
		Port:           getenv("PORT", "8080"),
		AllowedOrigins: splitList(getenv("ALLOWED_ORIGINS", "http://localhost:3000,http://localhost:5173")),
		StorageBackend: strings.ToLower(getenv("STORAGE_BACKEND", BackendFS)),
		OutputDir:      getenv("OUTPUT_DIR", "./output"),
		BadgerDir:      getenv("BADGER_DIR", "./data"),
		GinMode:        os.Getenv("GIN_MODE"),
	}

	var err error
	if cfg.ArtifactTTL, err = parseDuration("ARTIFACT_TTL", "24h"); err != nil {
		return nil, err
	}
	if cfg.SweepInterval, err = parseDuration("SWEEP_INTERVAL", "1h"); err != nil {
		return nil, err
	}

	size, err := humanize.ParseBytes(getenv("MAX_UPLOAD_BYTES", "32MiB"))
	if err != nil || size == 0 {
		return nil, fmt.Errorf("%w: MAX_UPLOAD_BYTES: %q", ErrInvalidConfig, os.Getenv("MAX_UPLOAD_BYTES"))
	}
	cfg.MaxUploadBytes = int64(size)

	if cfg.LogLevel, err = logrus.ParseLevel(getenv("LOG_LEVEL", "info")); err != nil {
		return nil, fmt.Errorf("%w: LOG_LEVEL: %v", ErrInvalidConfig, err)
	}

	switch cfg.StorageBackend {
	case BackendFS, BackendBadger:
	default:
		return nil, fmt.Errorf("%w: STORAGE_BACKEND must be %q or %q, got %q",
			ErrInvalidConfig, BackendFS, BackendBadger, cfg.StorageBackend)
	}

	return cfg, nil
}

func getenv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return fallback
}

func parseDuration(key, fallback string) (time.Duration, error) {
	d, err := time.ParseDuration(getenv(key, fallback))
	if err != nil || d < 0 {
		return 0, fmt.Errorf("%w: %s: %q", ErrInvalidConfig, key, os.Getenv(key))
	}
	return d, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
