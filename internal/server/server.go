// Copyright Barclays Bank PLC
// SPDX-License-Identifier: Apache-2.0

package server

import (
	"context"
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"

	"github.com/Barclays/research-data-science/internal/info"
	"github.com/Barclays/research-data-science/internal/logger"
	"github.com/Barclays/research-data-science/internal/registry"
)

const loggerName = "ctrlaltdata:server"

var (
	ErrServerListen   = errors.New("server listen error")
	ErrServerShutdown = errors.New("server shutdown error")
)

// Server serves the data-access layer over HTTP.
type Server struct {
	config Config

	app      *fiber.App
	registry *registry.Registry
}

// NewServer builds the HTTP server over the configured module registry.
func NewServer(ctx context.Context, reg *registry.Registry) (*Server, error) {
	cfg, err := LoadServerConfig()
	if err != nil {
		return nil, err
	}

	app := fiber.New(fiber.Config{
		DisableStartupMessage: cfg.DisableStartupMessage,
		Immutable:             true,
	})
	log := logger.FromContext(ctx)
	app.Use(logger.RequestMiddlewareLogger(log, []string{"/-/"}))

	statusRoutes(app, info.AppName, info.Version)

	server := &Server{
		app:      app,
		config:   *cfg,
		registry: reg,
	}

	app.Post("/panels", server.handleBuildPanel)
	app.Get("/fred/series/:id", server.handleFredSeries)
	app.Get("/fred/search", server.handleFredSearch)

	return server, nil
}

// App exposes the underlying fiber application, used in tests.
func (s *Server) App() *fiber.App {
	return s.app
}

func (s *Server) Start() error {
	if err := s.app.Listen(fmt.Sprintf("%s:%s", s.config.HTTPHost, s.config.HTTPPort)); err != nil {
		return fmt.Errorf("%w: %w", ErrServerListen, err)
	}
	return nil
}

func (s *Server) Stop() error {
	if err := s.app.Shutdown(); err != nil {
		return fmt.Errorf("%w: %w", ErrServerShutdown, err)
	}
	return nil
}

func (s *Server) StartAsync(ctx context.Context) {
	log := logger.FromContext(ctx).WithName(loggerName)
	go func() {
		if err := s.Start(); err != nil {
			log.Error(err.Error())
		}
	}()
}
