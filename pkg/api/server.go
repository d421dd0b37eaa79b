// Package api serves the transition pipeline over HTTP and streams frames
// over WebSocket.
package api

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"

	"github.com/teslashibe/go-motionblend/internal/metrics"
	"github.com/teslashibe/go-motionblend/pkg/clips"
	"github.com/teslashibe/go-motionblend/pkg/hub"
	"github.com/teslashibe/go-motionblend/pkg/pipeline"
	"github.com/teslashibe/go-motionblend/pkg/store"
)

// maxBodySize bounds request bodies; a 600-frame pair of records fits well
// within it.
const maxBodySize = 32 << 20

// Defaults are applied to requests that omit a field.
type Defaults struct {
	Length        int
	PhaseSchedule float64
}

// Option configures a Server.
type Option func(*Server)

// WithStore persists generated transitions.
func WithStore(st *store.Store) Option {
	return func(s *Server) { s.store = st }
}

// WithClips serves a clip library.
func WithClips(r *clips.Registry) Option {
	return func(s *Server) { s.clips = r }
}

// WithMetrics exposes collectors at /metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// WithDefaults sets request defaults.
func WithDefaults(d Defaults) Option {
	return func(s *Server) { s.defaults = d }
}

// Server is the HTTP serving layer.
type Server struct {
	app      *fiber.App
	pipeline *pipeline.Pipeline
	store    *store.Store
	clips    *clips.Registry
	metrics  *metrics.Metrics
	logger   *slog.Logger
	defaults Defaults

	// Hub for streamed frames (thread-safe)
	frames *hub.Hub

	// Lifetime of background work such as clip playback
	ctxMu sync.RWMutex
	ctx   context.Context
}

// New creates a server over p.
func New(p *pipeline.Pipeline, opts ...Option) *Server {
	s := &Server{
		pipeline: p,
		logger:   slog.Default(),
		defaults: Defaults{Length: 30, PhaseSchedule: 1},
		ctx:      context.Background(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "api.Server")
	if s.metrics == nil {
		s.metrics = metrics.New()
	}
	s.frames = hub.New("frames", s.logger)
	if s.clips != nil {
		s.clips.SetCallback(s.onClipFrame)
	}

	app := fiber.New(fiber.Config{
		AppName:               "motionblend",
		DisableStartupMessage: true,
		BodyLimit:             maxBodySize,
		ErrorHandler:          s.handleError,
	})

	app.Use(recover.New())
	app.Use(cors.New())
	app.Use(s.observe)

	api := app.Group("/api")
	api.Get("/health", s.handleHealth)
	api.Get("/skeleton", s.handleSkeleton)
	api.Post("/encode_phase", s.handleEncodePhase)
	api.Post("/encode_style", s.handleEncodeStyle)
	api.Post("/generate_transition", s.handleGenerate)
	api.Post("/generate_transitions", s.handleGenerateBatch)

	if s.store != nil {
		api.Get("/transitions", s.handleListTransitions)
		api.Get("/transitions/:id", s.handleGetTransition)
		api.Get("/transitions/:id/bvh", s.handleGetTransitionBVH)
		api.Delete("/transitions/:id", s.handleDeleteTransition)
	}
	if s.clips != nil {
		api.Get("/clips", s.handleListClips)
		api.Get("/clips/categories", s.handleClipCategories)
		api.Get("/clips/status", s.handleClipStatus)
		api.Post("/clips/stop", s.handleStopClip)
		api.Post("/clips/pause", s.handlePauseClip)
		api.Post("/clips/resume", s.handleResumeClip)
		api.Post("/clips/:name/play", s.handlePlayClip)
		api.Delete("/clips/:name", s.handleDeleteClip)
	}

	app.Get("/metrics", adaptor.HTTPHandler(s.metrics.Handler()))

	// WebSocket upgrade middleware
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/frames", websocket.New(s.handleFramesWS))

	app.Use(func(c *fiber.Ctx) error {
		return fiber.ErrNotFound
	})

	s.app = app
	return s
}

// App returns the underlying fiber app.
func (s *Server) App() *fiber.App {
	return s.app
}

// Frames returns the frame stream hub.
func (s *Server) Frames() *hub.Hub {
	return s.frames
}

// Start runs the hub and serves on addr until ctx is done.
func (s *Server) Start(ctx context.Context, addr string) error {
	s.ctxMu.Lock()
	s.ctx = ctx
	s.ctxMu.Unlock()

	go s.frames.Run(ctx)
	go func() {
		<-ctx.Done()
		if s.clips != nil {
			s.clips.Stop()
		}
		if err := s.app.ShutdownWithTimeout(5 * time.Second); err != nil {
			s.logger.Warn("shutdown failed", "error", err)
		}
	}()

	s.logger.Info("listening", "addr", addr)
	return s.app.Listen(addr)
}

func (s *Server) baseContext() context.Context {
	s.ctxMu.RLock()
	defer s.ctxMu.RUnlock()
	return s.ctx
}

// observe records request counts and latency per route.
func (s *Server) observe(c *fiber.Ctx) error {
	start := time.Now()
	err := c.Next()

	status := c.Response().StatusCode()
	if err != nil {
		var fe *fiber.Error
		if errors.As(err, &fe) {
			status = fe.Code
		} else {
			status, _ = classify(err)
		}
	}
	s.metrics.ObserveRequest(c.Method(), c.Route().Path, strconv.Itoa(status), time.Since(start))
	return err
}

// handleError renders errors returned by handlers as {"error": {...}}.
func (s *Server) handleError(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code := CodeInvalid
		switch fe.Code {
		case fiber.StatusNotFound:
			code = CodeNotFound
		case fiber.StatusInternalServerError:
			code = CodeInternal
		}
		s.metrics.ObserveFailure(code)
		return c.Status(fe.Code).JSON(ErrorResponse{Error: ErrorBody{Code: code, Message: fe.Message}})
	}

	status, body := errorBody(err)
	s.metrics.ObserveFailure(body.Code)
	if body.Code == CodeInternal {
		s.logger.Error("request failed", "path", c.Path(), "error", err)
	} else {
		s.logger.Debug("request rejected", "path", c.Path(), "code", body.Code, "error", err)
	}
	return c.Status(status).JSON(ErrorResponse{Error: body})
}
