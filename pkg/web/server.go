// Package web serves the HTTP control surface and the live distance stream.
package web

import (
	"context"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"

	"github.com/teslashibe/go-rangefinder/internal/log"
	"github.com/teslashibe/go-rangefinder/pkg/distance"
	"github.com/teslashibe/go-rangefinder/pkg/hub"
)

// Server exposes an Engine over HTTP.
type Server struct {
	app    *fiber.App
	port   string
	engine *distance.Engine
	unit   string
	logger *slog.Logger

	distances *hub.Hub
	ctx       context.Context // lifetime of Run, bounds websocket subscriptions
}

const subscribeTimeout = 5 * time.Second

// Config holds server settings.
type Config struct {
	Port string
	Unit string // label unit for /api/estimate, "cm" or "m"
}

// NewServer creates the server and its routes.
func NewServer(cfg Config, engine *distance.Engine, logger *slog.Logger) *Server {
	l := log.Or(logger, "web")
	s := &Server{
		port:      cfg.Port,
		engine:    engine,
		unit:      cfg.Unit,
		logger:    l,
		distances: hub.New("distances", l),
		ctx:       context.Background(),
	}
	if s.unit == "" {
		s.unit = "cm"
	}

	app := fiber.New(fiber.Config{
		AppName:               "Rangefinder",
		DisableStartupMessage: true,
	})
	app.Use(recover.New())
	app.Use(cors.New())

	api := app.Group("/api")
	api.Get("/status", s.handleStatus)
	api.Get("/classes", s.handleClasses)
	api.Get("/calibration", s.handleGetCalibration)
	api.Post("/calibration", s.handleCalibrate)
	api.Post("/tracking/reset", s.handleResetTracking)
	api.Delete("/tracking/:id", s.handleReleaseObject)
	api.Post("/estimate", s.handleEstimate)

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/distances", websocket.New(s.handleDistancesWS))

	s.app = app
	return s
}

// App returns the underlying fiber app.
func (s *Server) App() *fiber.App {
	return s.app
}

// Hub returns the hub that feeds /ws/distances.
func (s *Server) Hub() *hub.Hub {
	return s.distances
}

// Run serves until ctx is done.
func (s *Server) Run(ctx context.Context) error {
	s.ctx = ctx
	go s.distances.Run(ctx)
	go func() {
		<-ctx.Done()
		if err := s.app.Shutdown(); err != nil {
			s.logger.Warn("shutdown failed", "error", err)
		}
	}()

	s.logger.Info("listening", "url", "http://localhost:"+s.port)
	return s.app.Listen(":" + s.port)
}
