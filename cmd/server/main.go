// NDVI web service entry point
package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/aydiaziz/ndvi-webapp/internal/config"
	"github.com/aydiaziz/ndvi-webapp/pkg/server"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// A local .env is optional; real environment variables take precedence.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to read .env: %w", err)
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Set up logger
	logger := setupLogger(cfg.Logging.Level, cfg.Logging.Format)

	logger.Info("starting NDVI service",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
		"static_dir", cfg.Static.Dir,
		"output_dir", cfg.OutputDir(),
	)

	srv, err := server.New(server.Options{
		PublicBaseURL:   cfg.Server.PublicBaseURL,
		StaticDir:       cfg.Static.Dir,
		OutputSubdir:    cfg.NDVI.OutputSubdir,
		SentinelHubURL:  cfg.SentinelHub.BaseURL,
		TokenURL:        cfg.SentinelHub.TokenURL,
		ClientID:        cfg.SentinelHub.ClientID,
		ClientSecret:    cfg.SentinelHub.ClientSecret,
		Collection:      cfg.SentinelHub.Collection,
		Timeout:         cfg.SentinelHub.Timeout,
		Resolution:      cfg.SentinelHub.Resolution,
		TimeStart:       cfg.SentinelHub.TimeStart,
		TimeEnd:         cfg.SentinelHub.TimeEnd,
		LookbackDays:    cfg.SentinelHub.LookbackDays,
		LowerPercentile: cfg.NDVI.LowerPercentile,
		UpperPercentile: cfg.NDVI.UpperPercentile,
		Colormap:        cfg.NDVI.Colormap,
		Logger:          logger,
	})
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	// Create server
	httpServer := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      srv.Router(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	// Start server in goroutine
	serverErr := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", httpServer.Addr, "live", srv.Live())
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		return fmt.Errorf("server error: %w", err)
	case sig := <-quit:
		logger.Info("received shutdown signal", "signal", sig)
	}

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	logger.Info("shutting down server", "timeout", cfg.Server.ShutdownTimeout)
	if err := httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}

	logger.Info("server stopped")
	return nil
}

func setupLogger(level, format string) *slog.Logger {
	var logLevel slog.Level
	if err := logLevel.UnmarshalText([]byte(level)); err != nil {
		logLevel = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: logLevel}

	var handler slog.Handler
	if format == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}
