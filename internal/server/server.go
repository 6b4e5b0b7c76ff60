// Package server exposes the document backend on the wire: auth endpoints,
// collection CRUD and realtime snapshot subscriptions over websocket.
package server

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"driftline/internal/config"
	"driftline/internal/docstore"
	"driftline/internal/observability"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
)

// fiberprometheus registers its collectors globally, so the middleware is
// created once and shared by every Server instance in the process.
var (
	promOnce       sync.Once
	promMiddleware *fiberprometheus.FiberPrometheus
)

func promInstance() *fiberprometheus.FiberPrometheus {
	promOnce.Do(func() {
		promMiddleware = fiberprometheus.New("driftline")
	})
	return promMiddleware
}

// Server holds all dependencies and provides handlers.
type Server struct {
	config *config.Config
	store  *docstore.Store
	auth   *docstore.AuthService
	app    *fiber.App
	prom   *fiberprometheus.FiberPrometheus
	logger *slog.Logger
}

// New creates a server over an already-open docstore and auth service.
func New(cfg *config.Config, store *docstore.Store, auth *docstore.AuthService) *Server {
	s := &Server{
		config: cfg,
		store:  store,
		auth:   auth,
		prom:   promInstance(),
		logger: observability.Component("server"),
	}

	app := fiber.New(fiber.Config{
		AppName:      "driftline",
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	})
	s.setupMiddleware(app)
	s.setupRoutes(app)
	s.app = app
	return s
}

// App returns the underlying fiber app, used by tests.
func (s *Server) App() *fiber.App {
	return s.app
}

// Listen serves until the listener fails or Shutdown is called.
func (s *Server) Listen() error {
	return s.app.Listen(":" + s.config.Port)
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

func (s *Server) setupMiddleware(app *fiber.App) {
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(s.requestLogger())

	s.prom.RegisterAt(app, "/metrics")
	app.Use(s.prom.Middleware)

	app.Use(cors.New(cors.Config{
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, Upgrade, Connection, Sec-WebSocket-Key, Sec-WebSocket-Version",
		MaxAge:       86400,
	}))
}

func (s *Server) setupRoutes(app *fiber.App) {
	app.Get("/health", s.HealthCheck)

	api := app.Group("/api")

	auth := api.Group("/auth")
	auth.Post("/signup", s.Signup)
	auth.Post("/signin", s.Signin)
	auth.Post("/signout", s.Signout)

	// Reads and subscriptions are public; writes carry a session token.
	collections := api.Group("/collections/:collection", s.ValidCollection)
	collections.Get("/", s.QueryCollection)
	collections.Get("/:id", s.GetDocument)
	collections.Post("/", s.AuthRequired, s.AddDocument)
	collections.Put("/:id", s.AuthRequired, s.SetDocument)
	collections.Patch("/:id", s.AuthRequired, s.UpdateDocument)
	collections.Delete("/:id", s.AuthRequired, s.DeleteDocument)

	app.Get("/ws/collections/:collection", s.WebSocketUpgrade, s.SubscribeHandler())
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

// requestLogger logs each request with its outcome through slog.
func (s *Server) requestLogger() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		s.logger.Info("request",
			slog.String("method", c.Method()),
			slog.String("path", c.Path()),
			slog.Int("status", c.Response().StatusCode()),
			slog.Duration("elapsed", time.Since(start)),
			slog.String("request_id", requestID(c)),
		)
		return err
	}
}

func requestID(c *fiber.Ctx) string {
	if id, ok := c.Locals("requestid").(string); ok {
		return id
	}
	return ""
}
