package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"steganography-backend/config"
	"steganography-backend/handlers"
	"steganography-backend/storage"

	"github.com/dustin/go-humanize"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

func main() {
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	log.SetLevel(cfg.LogLevel)
	if cfg.GinMode != "" {
		gin.SetMode(cfg.GinMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err = run(ctx, cfg, log)
	stop()
	if err != nil {
		log.Fatal(err)
	}
}

// run serves the API until ctx is cancelled or the listener fails. The store
// is closed before it returns.
func run(ctx context.Context, cfg *config.Config, log *logrus.Logger) error {
	store, diskPath, err := openStore(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("failed to open %s storage: %w", cfg.StorageBackend, err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.WithError(err).Warn("closing storage")
		}
	}()

	router := gin.New()
	router.Use(gin.Recovery(), handlers.RequestLogger(log))
	router.MaxMultipartMemory = cfg.MaxUploadBytes

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.AllowedOrigins
	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Requested-With", "Range"}
	corsConfig.ExposeHeaders = []string{"Content-Disposition", "Content-Length", "Content-Range", "Accept-Ranges"}
	corsConfig.AllowCredentials = true
	router.Use(cors.New(corsConfig))

	stegoHandler := handlers.NewStegoHandler(handlers.Options{
		Store:          store,
		Logger:         log,
		MaxUploadBytes: cfg.MaxUploadBytes,
		DiskPath:       diskPath,
	})

	// API Routes
	stegoHandler.RegisterRoutes(router.Group("/api"))

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	log.WithFields(logrus.Fields{
		"port":       cfg.Port,
		"storage":    store.Name(),
		"origins":    cfg.AllowedOrigins,
		"max_upload": humanize.IBytes(uint64(cfg.MaxUploadBytes)),
		"ttl":        cfg.ArtifactTTL.String(),
	}).Info("Server starting")
	log.Info("API endpoints:")
	log.Info("  POST /api/encode                        - Hide a secret file in MP3/WAV/FLAC audio (stores stego WAV)")
	log.Info("  POST /api/decode                        - Extract a secret file from stego audio")
	log.Info("  POST /api/capacity                      - Report the capacity of a cover file")
	log.Info("  GET  /api/download/stego/:filename      - Download stego audio")
	log.Info("  GET  /api/download/extracted/:filename  - Download an extracted secret")
	log.Info("  GET  /api/play/stego/:filename          - Stream stego audio")
	log.Info("  GET  /api/health                        - Health check")

	return serve(ctx, srv, log)
}

func serve(ctx context.Context, srv *http.Server, log *logrus.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}
	log.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	return nil
}

// openStore returns the configured artifact store and the directory whose
// disk usage the health check reports.
func openStore(ctx context.Context, cfg *config.Config, log *logrus.Logger) (storage.Store, string, error) {
	if cfg.StorageBackend == config.BackendBadger {
		store, err := storage.OpenBadger(storage.BadgerConfig{
			Path:   cfg.BadgerDir,
			TTL:    cfg.ArtifactTTL,
			Logger: log,
		})
		return store, cfg.BadgerDir, err
	}

	store, err := storage.NewFileStore(cfg.OutputDir, log)
	if err != nil {
		return nil, "", err
	}
	if cfg.ArtifactTTL > 0 && cfg.SweepInterval > 0 {
		go store.RunSweeper(ctx, cfg.SweepInterval, cfg.ArtifactTTL)
	}
	return store, cfg.OutputDir, nil
}
