package main

import (
	"context"
	"io"
	"net"
	"net/http"
	"testing"
	"time"

	"steganography-backend/config"
	"steganography-backend/storage"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func busyPort(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", ":0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })
	_, port, err := net.SplitHostPort(ln.Addr().String())
	require.NoError(t, err)
	return port
}

func TestServeReturnsListenError(t *testing.T) {
	srv := &http.Server{Addr: ":" + busyPort(t)}

	done := make(chan error, 1)
	go func() { done <- serve(context.Background(), srv, quietLogger()) }()

	select {
	case err := <-done:
		require.Error(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("serve did not return after the listener failed")
	}
}

func TestServeStopsOnCancel(t *testing.T) {
	srv := &http.Server{Addr: "127.0.0.1:0"}
	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(50*time.Millisecond, cancel)

	require.NoError(t, serve(ctx, srv, quietLogger()))
}

func TestRunClosesStoreWhenListenFails(t *testing.T) {
	gin.SetMode(gin.TestMode)
	dir := t.TempDir()
	cfg := &config.Config{
		Port:           busyPort(t),
		AllowedOrigins: []string{"http://localhost:3000"},
		StorageBackend: config.BackendBadger,
		BadgerDir:      dir,
		ArtifactTTL:    time.Hour,
		MaxUploadBytes: 1 << 20,
	}

	err := run(context.Background(), cfg, quietLogger())
	require.Error(t, err)

	// badger holds a directory lock until closed
	store, err := storage.OpenBadger(storage.BadgerConfig{Path: dir, TTL: time.Hour})
	require.NoError(t, err)
	require.NoError(t, store.Close())
}
