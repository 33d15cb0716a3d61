// Package web serves the morph API, the renderer websockets and the
// browser client.
package web

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"

	"github.com/teslashibe/go-morph/internal/log"
	"github.com/teslashibe/go-morph/pkg/gesture"
	"github.com/teslashibe/go-morph/pkg/hub"
	"github.com/teslashibe/go-morph/pkg/particles"
	"github.com/teslashibe/go-morph/pkg/protocol"
	"github.com/teslashibe/go-morph/pkg/show"
)

const (
	// commandTimeout bounds how long an HTTP request waits on the director
	commandTimeout = 2 * time.Second

	// shutdownTimeout bounds graceful shutdown of open connections
	shutdownTimeout = 5 * time.Second
)

// Director is the part of show.Director the server talks to.
type Director interface {
	Submit(ctx context.Context, cmd show.Command) error
	Status() show.Status
	Tuning() particles.TuningParams
	ClientConfig() protocol.ConfigData
	Colors() []float32
}

// LandmarkSink accepts landmarks received from browsers.
type LandmarkSink interface {
	Push(hands []gesture.Landmarks, at time.Time) error
}

// Config configures the server.
type Config struct {
	Port       string
	WebDir     string // Static browser client
	RequestLog bool   // Log every HTTP request
}

// Server is the morph web server
type Server struct {
	app      *fiber.App
	config   Config
	director Director
	sink     LandmarkSink
	logger   *slog.Logger

	// Hubs for websocket fan-out
	frames    *hub.Hub // Binary position frames
	events    *hub.Hub // JSON state, intent and mode events
	landmarks *hub.Hub // Inbound landmark producers
}

// NewServer creates the server. frames and events are the hubs the
// director publishes to; sink may be nil when landmarks come from a
// local camera.
func NewServer(config Config, director Director, sink LandmarkSink, frames, events *hub.Hub) *Server {
	s := &Server{
		config:    config,
		director:  director,
		sink:      sink,
		logger:    log.Component("web"),
		frames:    frames,
		events:    events,
		landmarks: hub.New("landmarks"),
	}

	app := fiber.New(fiber.Config{
		AppName:               "go-morph",
		DisableStartupMessage: true,
	})

	app.Use(recover.New())
	if config.RequestLog {
		app.Use(logger.New())
	}

	// CORS for local development
	app.Use(cors.New())

	// API routes
	api := app.Group("/api")
	api.Get("/status", s.handleStatus)
	api.Get("/config", s.handleConfig)
	api.Get("/tuning", s.handleGetTuning)
	api.Post("/tuning", s.handleSetTuning)
	api.Post("/engine/:action", s.handleEngineAction)
	api.Post("/text", s.handleText)
	api.Get("/colors", s.handleColors)

	// WebSocket upgrade middleware
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	// WebSocket routes
	app.Get("/ws/landmarks", websocket.New(s.handleLandmarksWS))
	app.Get("/ws/frames", websocket.New(s.handleFramesWS))
	app.Get("/ws/events", websocket.New(s.handleEventsWS))

	// Static files
	if config.WebDir != "" {
		app.Static("/", config.WebDir)
	}

	s.app = app
	return s
}

// App exposes the fiber app, mainly for tests.
func (s *Server) App() *fiber.App {
	return s.app
}

// Start runs the hubs and serves HTTP until ctx is done, then shuts down
// gracefully.
func (s *Server) Start(ctx context.Context) error {
	for _, h := range []*hub.Hub{s.frames, s.events, s.landmarks} {
		if h != nil {
			go h.Run(ctx)
		}
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("web server listening", "url", "http://localhost:"+s.config.Port)
		errCh <- s.app.Listen(":" + s.config.Port)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.app.ShutdownWithContext(shutdownCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	s.logger.Info("web server stopped")
	return nil
}

// Shutdown gracefully stops the web server
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}
