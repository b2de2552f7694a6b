// Package main provides the iris analytics server.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/iris-analytics/iris/internal/config"
	"github.com/iris-analytics/iris/internal/engine"
	"github.com/iris-analytics/iris/internal/server"
)

const version = "0.1.0"

func main() {
	cfg := config.Load()

	// Dual output: stderr text + file JSON
	logger, cleanup := config.SetupLogger(cfg.LogFile, cfg.LogLevel)
	defer cleanup()

	logger.Info("iris-server starting",
		"version", version,
		"port", cfg.ServerPort,
		"surrealdb_url", cfg.SurrealDBURL,
		"llm_provider", cfg.LLMProvider,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	initCtx, cancel := context.WithTimeout(ctx, 60*time.Second)
	eng, err := engine.New(initCtx, cfg, logger)
	cancel()
	if err != nil {
		logger.Error("failed to start engine", "error", err)
		os.Exit(1)
	}

	report := eng.InitReport()
	for _, model := range report.Models {
		if model.Available {
			logger.Info("model ready", "model", model.Kind, "elapsed", model.Elapsed)
		} else {
			logger.Warn("model unavailable", "model", model.Kind, "error", model.Error)
		}
	}

	srv := server.New(eng, ":"+cfg.ServerPort, logger)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", "http://localhost:"+cfg.ServerPort)
		errCh <- srv.Run()
	}()

	select {
	case err := <-errCh:
		if err != nil {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		logger.Info("shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}
	if err := eng.Shutdown(shutdownCtx); err != nil {
		logger.Error("engine shutdown error", "error", err)
	}

	logger.Info("shutdown complete")
}
