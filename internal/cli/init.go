// Package cli provides common initialization shared by cmd/jangbu and
// cmd/jangbu-worker.
package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"jangbu/internal/config"
	applog "jangbu/internal/log"
	"jangbu/internal/store"
)

// SetupLogger initializes structured logging and installs it as the
// process default.
func SetupLogger() *applog.Logger {
	logger := applog.New(applog.DefaultConfig())
	applog.SetDefault(logger)
	return logger
}

// LoadEnvFile loads the .env file for local development. Missing files
// are fine in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadAndValidateConfig loads configuration, exiting the process on
// validation failure.
func LoadAndValidateConfig(logger *applog.Logger) *config.Config {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}
	return cfg
}

// OpenStore opens the configured store backend. The memory backend may
// be seeded from DATA_DIR.
func OpenStore(logger *applog.Logger, cfg *config.Config) store.Store {
	switch cfg.DataBackend {
	case "sqlite":
		s, err := store.NewSQLite(cfg.SQLiteDBPath)
		if err != nil {
			logger.Error("Failed to open SQLite store", "error", err, "path", cfg.SQLiteDBPath)
			os.Exit(1)
		}
		logger.Info("SQLite store opened", "path", cfg.SQLiteDBPath)
		return s
	default:
		if cfg.DataDir != "" {
			logger.Info("Memory store seeded from directory", "dir", cfg.DataDir)
			return store.NewMemoryFromDir(cfg.DataDir)
		}
		return store.NewMemory()
	}
}

// GracefulShutdown wires SIGINT/SIGTERM to context cancellation.
// cleanup runs before the context is cancelled; done closes when
// shutdown has finished.
func GracefulShutdown(logger *applog.Logger, timeout time.Duration, cleanup func()) (context.Context, <-chan struct{}) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), timeout)
		defer shutdownCancel()

		if cleanup != nil {
			cleanup()
		}

		cancel()

		select {
		case <-shutdownCtx.Done():
			logger.Warn("Shutdown timeout reached")
		case <-time.After(2 * time.Second):
			logger.Info("Shutdown complete")
		}
		close(done)
	}()

	return ctx, done
}

// WaitForShutdown blocks until shutdown finishes.
func WaitForShutdown(ctx context.Context, done <-chan struct{}) {
	<-ctx.Done()
	<-done
}
