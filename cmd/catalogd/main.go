// Package main is the entry point for the catalog service daemon.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ZemaLabs/zema-catalog-go/internal/config"
	"github.com/ZemaLabs/zema-catalog-go/internal/event"
	"github.com/ZemaLabs/zema-catalog-go/internal/media"
	"github.com/ZemaLabs/zema-catalog-go/internal/metrics"
	"github.com/ZemaLabs/zema-catalog-go/internal/server"
	"github.com/ZemaLabs/zema-catalog-go/internal/storage"
	"github.com/ZemaLabs/zema-catalog-go/internal/telemetry"
)

const version = "1.0.0"

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	logLevel := slog.LevelInfo
	if cfg.Env == "dev" {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	shutdownTracer, err := telemetry.Setup("zema-catalog", version, logger)
	if err != nil {
		logger.Error("failed to initialize tracer", "error", err)
		os.Exit(1)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		shutdownTracer(ctx)
	}()

	var store storage.Store
	if cfg.DatabaseDSN != "" {
		store, err = storage.NewPostgres(cfg.DatabaseDSN)
		if err != nil {
			logger.Error("failed to initialize postgres storage", "error", err)
			os.Exit(1)
		}
		logger.Info("storage ready", "backend", "postgres")
	} else {
		store = storage.NewMemory()
		logger.Warn("no database configured, using in-memory storage")
	}

	publisher, err := event.NewPublisher(cfg.NATSURL, logger)
	if err != nil {
		logger.Error("failed to initialize event publisher", "error", err)
		os.Exit(1)
	}
	defer publisher.Close()

	// Asset store is optional. Without it the API still serves; file
	// uploads are rejected with an explicit error.
	var assets media.Store
	if cfg.AssetStoreConfigured() {
		s3Store, err := media.NewS3Store(cfg.S3Endpoint, cfg.S3Region, cfg.S3Bucket,
			cfg.S3AccessKey, cfg.S3SecretKey, cfg.S3PublicURL)
		if err != nil {
			logger.Error("failed to initialize asset store", "error", err)
			os.Exit(1)
		}
		assets = s3Store
		logger.Info("asset store ready", "bucket", cfg.S3Bucket)
	} else {
		logger.Warn("asset store not configured, file uploads disabled")
	}

	mtr := metrics.New()

	mux, err := server.New(cfg, store, assets, publisher, mtr, logger, version)
	if err != nil {
		logger.Error("failed to build HTTP handler", "error", err)
		os.Exit(1)
	}

	addr := fmt.Sprintf(":%s", cfg.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      mux.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 150 * time.Second, // generous: covers streamed asset uploads
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server starting", "addr", addr, "env", cfg.Env, "version", version)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", "error", err)
	}

	if closer, ok := store.(interface{ Close() }); ok {
		closer.Close()
	}
	logger.Info("server stopped")
}
