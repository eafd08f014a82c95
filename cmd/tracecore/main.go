package main

import (
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/secstrace/tracecore/internal/api"
	"github.com/secstrace/tracecore/internal/config"
	"github.com/secstrace/tracecore/internal/logger"
	"github.com/secstrace/tracecore/internal/metrics"
	"github.com/secstrace/tracecore/internal/parser"
	"github.com/secstrace/tracecore/internal/scheduler"
	"github.com/secstrace/tracecore/internal/shutdown"
	"github.com/secstrace/tracecore/internal/storage"
	"github.com/secstrace/tracecore/internal/store"
)

// Version is set at build time.
var Version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := cfg.Server.ValidateTLS(); err != nil {
		fmt.Fprintf(os.Stderr, "TLS configuration error: %v\n", err)
		os.Exit(1)
	}

	logger.Setup(cfg.Log.Level, cfg.Log.Format)
	log.Info().Str("version", Version).Msg("Starting tracecore...")

	metrics.Init(logger.Get("metrics"))

	shutdownCoordinator := shutdown.New(30*time.Second, logger.Get("shutdown"))

	backend, err := storage.NewLocalBackend(cfg.Storage.LocalPath, logger.Get("storage"))
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize storage backend")
	}
	shutdownCoordinator.Register("storage", backend, shutdown.PriorityStorage)
	log.Info().Str("path", cfg.Storage.LocalPath).Msg("Storage backend initialized")

	sessionStore := store.New(backend, logger.Get("store"))
	registry := parser.NewRegistry()

	sweeper, err := scheduler.New(scheduler.Config{
		TTL:     time.Duration(cfg.Session.TTLHours) * time.Hour,
		Period:  time.Duration(cfg.Session.SweepIntervalMins) * time.Minute,
		Store:   sessionStore,
		Backend: backend,
		Logger:  logger.Get("scheduler"),
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize TTL sweeper")
	}
	shutdownCoordinator.Register("ttl-sweeper", sweeper, shutdown.PrioritySweeper)
	if err := sweeper.Start(); err != nil {
		log.Fatal().Err(err).Msg("Failed to start TTL sweeper")
	}

	serverConfig := api.ServerConfig{
		Host:            cfg.Server.Host,
		Port:            cfg.Server.Port,
		ReadTimeout:     time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout:    time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:     60 * time.Second,
		ShutdownTimeout: 30 * time.Second,
		MaxPayloadSize:  cfg.Server.MaxPayloadSize,
	}
	server := api.NewServer(serverConfig, sessionStore, registry, logger.Get("server"))
	shutdownCoordinator.Register("http-server", server, shutdown.PriorityHTTPServer)

	if err := server.Start(); err != nil {
		log.Fatal().Err(err).Msg("Failed to start HTTP server")
	}

	log.Info().Int("port", cfg.Server.Port).Str("version", Version).Msg("tracecore is ready")

	sig := shutdownCoordinator.WaitForSignal()
	log.Info().Str("signal", sig.String()).Msg("Initiating graceful shutdown...")

	if err := shutdownCoordinator.Shutdown(); err != nil {
		log.Error().Err(err).Msg("Shutdown completed with errors")
		os.Exit(1)
	}

	log.Info().Msg("tracecore shutdown complete")
}
