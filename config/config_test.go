package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var keys = []string{
	"PORT", "ALLOWED_ORIGINS", "STORAGE_BACKEND", "OUTPUT_DIR", "BADGER_DIR",
	"ARTIFACT_TTL", "SWEEP_INTERVAL", "MAX_UPLOAD_BYTES", "LOG_LEVEL", "GIN_MODE",
}

// clearEnv unsets every key for the duration of the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range keys {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
}

func TestDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, []string{"http://localhost:3000", "http://localhost:5173"}, cfg.AllowedOrigins)
	assert.Equal(t, BackendFS, cfg.StorageBackend)
	assert.Equal(t, "./output", cfg.OutputDir)
	assert.Equal(t, "./data", cfg.BadgerDir)
	assert.Equal(t, 24*time.Hour, cfg.ArtifactTTL)
	assert.Equal(t, time.Hour, cfg.SweepInterval)
	assert.Equal(t, int64(32<<20), cfg.MaxUploadBytes)
	assert.Equal(t, logrus.InfoLevel, cfg.LogLevel)
}

func TestEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "9000")
	t.Setenv("ALLOWED_ORIGINS", " https://a.example , https://b.example,")
	t.Setenv("STORAGE_BACKEND", "Badger")
	t.Setenv("ARTIFACT_TTL", "30m")
	t.Setenv("MAX_UPLOAD_BYTES", "8MiB")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, "9000", cfg.Port)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins)
	assert.Equal(t, BackendBadger, cfg.StorageBackend)
	assert.Equal(t, 30*time.Minute, cfg.ArtifactTTL)
	assert.Equal(t, int64(8<<20), cfg.MaxUploadBytes)
	assert.Equal(t, logrus.DebugLevel, cfg.LogLevel)
}

func TestLoadDotEnv(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("PORT=7070\nOUTPUT_DIR=/tmp/stego\n"), 0o600))
	t.Cleanup(func() {
		os.Unsetenv("PORT")
		os.Unsetenv("OUTPUT_DIR")
	})

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "7070", cfg.Port)
	assert.Equal(t, "/tmp/stego", cfg.OutputDir)
}

func TestInvalidValues(t *testing.T) {
	cases := map[string]string{
		"STORAGE_BACKEND":  "s3",
		"ARTIFACT_TTL":     "forever",
		"MAX_UPLOAD_BYTES": "lots",
		"LOG_LEVEL":        "loud",
	}
	for key, value := range cases {
		t.Run(key, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(key, value)
			_, err := FromEnv()
			require.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}
