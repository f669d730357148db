package server

import (
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"

	"docqa/app/api"
	"docqa/config"
	"docqa/pipeline"
	"docqa/store"
)

var fiberCfg = fiber.Config{
	ErrorHandler: api.ErrorHandler,
}

type Server struct {
	listenAddr string
	app        *fiber.App
	logger     *slog.Logger
}

func New(cfg *config.Settings, p *pipeline.Pipeline, vs store.VectorStore) *Server {
	var (
		app          = fiber.New(fiberCfg)
		checkHandler = api.NewCheckHandler(vs)
		handler      = api.NewHandler(p, cfg.DocumentsPath)
		check        = app.Group("/check")
		apiv1        = app.Group("/api/v1")
	)

	check.Get("/healthy", checkHandler.HandleHealthy)
	check.Get("/ready", checkHandler.HandleReady)

	apiv1.Post("/query", handler.HandleQuery)
	apiv1.Post("/ingest", handler.HandleIngest)
	apiv1.Post("/documents/upload", handler.HandleUpload)
	apiv1.Get("/stats", handler.HandleStats)
	apiv1.Post("/reset", handler.HandleReset)

	return &Server{
		listenAddr: cfg.ListenAddr,
		app:        app,
		logger:     slog.Default().With("component", "server"),
	}
}

func (s *Server) Run() error {
	s.logger.Info("server listening", "addr", s.listenAddr)
	return s.app.Listen(s.listenAddr)
}

func (s *Server) Stop() {
	if err := s.app.ShutdownWithTimeout(10 * time.Second); err != nil {
		s.logger.Error("shutdown failed", "error", err)
	}
	s.logger.Info("server stopped")
}
