// Package api implements the HTTP surface: session upload, metadata,
// windowed and filtered message retrieval, payload lookup and deletion,
// plus the ambient health/metrics endpoints.
package api

import (
	"context"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/rs/zerolog"

	"github.com/secstrace/tracecore/internal/metrics"
	"github.com/secstrace/tracecore/internal/parser"
	"github.com/secstrace/tracecore/internal/store"
)

// Server is the Fiber-backed HTTP API.
type Server struct {
	app    *fiber.App
	logger zerolog.Logger
	port   int
	host   string
}

// ServerConfig holds server bootstrap configuration.
type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
	MaxPayloadSize  int64
}

var startTime = time.Now()

// NewServer creates the HTTP server and wires the session/query handlers.
func NewServer(cfg ServerConfig, st *store.Store, reg *parser.Registry, logger zerolog.Logger) *Server {
	app := fiber.New(fiber.Config{
		AppName:               "tracecore",
		ReadTimeout:           cfg.ReadTimeout,
		WriteTimeout:          cfg.WriteTimeout,
		IdleTimeout:           cfg.IdleTimeout,
		DisableStartupMessage: true,
		ErrorHandler:          customErrorHandler(logger),
		BodyLimit:             int(cfg.MaxPayloadSize),
	})

	app.Use(recover.New(recover.Config{EnableStackTrace: true}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,DELETE,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept",
	}))
	app.Use(requestLogger(logger))

	s := &Server{
		app:    app,
		logger: logger.With().Str("component", "api-server").Logger(),
		port:   cfg.Port,
		host:   cfg.Host,
	}

	h := &sessionHandlers{
		store:    st,
		registry: reg,
		logger:   logger.With().Str("component", "session-handlers").Logger(),
	}
	s.registerRoutes(h)
	return s
}

func (s *Server) registerRoutes(h *sessionHandlers) {
	s.app.Get("/health", s.healthHandler)
	s.app.Get("/metrics", s.metricsHandler)
	s.app.Get("/api/v1/metrics", s.apiMetricsHandler)

	s.app.Post("/sessions", h.createSession)
	s.app.Get("/sessions/:id/meta", h.getMeta)
	s.app.Get("/sessions/:id/messages.arrow", h.getMessages)
	s.app.Post("/sessions/:id/search", h.search)
	s.app.Get("/sessions/:id/payload/:row_id", h.getPayload)
	s.app.Delete("/sessions/:id", h.deleteSession)
}

func (s *Server) healthHandler(c *fiber.Ctx) error {
	return c.SendString("ok")
}

func (s *Server) metricsHandler(c *fiber.Ctx) error {
	m := metrics.Get()
	if c.Get("Accept") == "application/json" {
		return c.JSON(m.Snapshot())
	}
	c.Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
	return c.SendString(m.PrometheusFormat())
}

func (s *Server) apiMetricsHandler(c *fiber.Ctx) error {
	snapshot := metrics.Get().Snapshot()
	snapshot["timestamp"] = time.Now().UTC().Format(time.RFC3339)
	return c.JSON(snapshot)
}

// Start starts the HTTP server in a background goroutine.
func (s *Server) Start() error {
	s.logger.Info().Str("host", s.host).Int("port", s.port).Msg("starting HTTP server")
	go func() {
		addr := fmt.Sprintf("%s:%d", s.host, s.port)
		if err := s.app.Listen(addr); err != nil {
			s.logger.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()
	return nil
}

// Close implements shutdown.Shutdownable.
func (s *Server) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := s.app.ShutdownWithContext(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	return nil
}

func customErrorHandler(logger zerolog.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		if e, ok := err.(*fiber.Error); ok {
			code = e.Code
		}
		logger.Error().Err(err).Int("status", code).Str("method", c.Method()).Str("path", c.Path()).Msg("request error")
		return c.Status(code).JSON(fiber.Map{"error": err.Error()})
	}
}

func requestLogger(logger zerolog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		duration := time.Since(start)
		status := c.Response().StatusCode()
		m := metrics.Get()
		m.IncHTTPRequests()
		m.RecordHTTPLatency(duration.Microseconds())
		if status >= 400 {
			m.IncHTTPError()
		} else {
			m.IncHTTPSuccess()
		}

		if status >= 400 {
			logEvent := logger.Warn()
			if status >= 500 {
				logEvent = logger.Error()
			}
			logEvent.Str("method", c.Method()).Str("path", c.Path()).Int("status", status).
				Dur("duration_ms", duration).Str("ip", c.IP()).Msg("request error")
		}

		return err
	}
}
