// Package api exposes the medicine registry, dose tracking and reporting
// over HTTP.
package api

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/gmsas95/medicinett/internal/adherence"
	"github.com/gmsas95/medicinett/internal/config"
	"github.com/gmsas95/medicinett/internal/report"
	"github.com/gmsas95/medicinett/internal/store"
	"github.com/gmsas95/medicinett/internal/voice"
)

// Server handles the HTTP API
type Server struct {
	app        *fiber.App
	config     *config.Config
	store      *store.Store
	engine     *adherence.Engine
	builder    *report.Builder
	parser     *voice.Parser
	translator *voice.Translator
	logger     *zap.Logger
}

// New creates a new API server
func New(cfg *config.Config, st *store.Store, engine *adherence.Engine, builder *report.Builder, logger *zap.Logger) *Server {
	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  120 * time.Second,
	})

	s := &Server{
		app:        app,
		config:     cfg,
		store:      st,
		engine:     engine,
		builder:    builder,
		parser:     voice.NewParser(),
		translator: voice.NewTranslator(cfg.Voice, logger),
		logger:     logger,
	}

	s.setupRoutes()
	return s
}

// Start starts the server
func (s *Server) Start() error {
	return s.app.Listen(s.config.ListenAddr())
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.app.ShutdownWithContext(ctx)
}
