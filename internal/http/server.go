// Package http provides the public API server and its middleware.
package http

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	postsHTTP "github.com/allisson/community/internal/posts/http"
)

// RouterConfig holds the handlers and middleware settings used to build the
// API router.
type RouterConfig struct {
	PostHandler *postsHTTP.PostHandler

	CORSEnabled      bool
	CORSAllowOrigins string

	RateLimitEnabled        bool
	RateLimitRequestsPerSec float64
	RateLimitBurst          int
}

// Server represents the public API HTTP server.
type Server struct {
	db     *sql.DB
	server *http.Server
	router *gin.Engine
	logger *slog.Logger
}

// NewServer creates a new HTTP server. The router is built separately with
// SetupRouter so tests can register a subset of routes.
func NewServer(
	db *sql.DB,
	host string,
	port int,
	logger *slog.Logger,
) *Server {
	return &Server{
		db:     db,
		logger: logger,
		server: &http.Server{
			Addr:         fmt.Sprintf("%s:%d", host, port),
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
	}
}

// SetupRouter builds the Gin router with all API routes and middleware.
func (s *Server) SetupRouter(cfg RouterConfig) {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestid.New(requestid.WithGenerator(func() string {
		return uuid.Must(uuid.NewV7()).String()
	})))
	router.Use(CustomLoggerMiddleware(s.logger))

	if corsMiddleware := createCORSMiddleware(cfg.CORSEnabled, cfg.CORSAllowOrigins, s.logger); corsMiddleware != nil {
		router.Use(corsMiddleware)
	}

	router.GET("/health", s.healthHandler)
	router.GET("/ready", s.readinessHandler)

	v1 := router.Group("/v1")
	if cfg.RateLimitEnabled {
		v1.Use(RateLimitMiddleware(cfg.RateLimitRequestsPerSec, cfg.RateLimitBurst, s.logger))
	}

	if cfg.PostHandler != nil {
		posts := v1.Group("/posts")
		posts.POST("", cfg.PostHandler.CreateHandler)
		posts.GET("", cfg.PostHandler.ListHandler)
		posts.GET("/trending", cfg.PostHandler.TrendingHandler)
		posts.GET("/:id", cfg.PostHandler.GetHandler)
		posts.PUT("/:id", cfg.PostHandler.UpdateHandler)
		posts.DELETE("/:id", cfg.PostHandler.DeleteHandler)
		posts.POST("/:id/view", cfg.PostHandler.ViewHandler)
		posts.POST("/:id/comments", cfg.PostHandler.AddCommentHandler)
		posts.PUT("/:id/reaction", cfg.PostHandler.SetReactionHandler)
		posts.DELETE("/:id/reaction", cfg.PostHandler.RemoveReactionHandler)

		v1.DELETE("/comments/:id", cfg.PostHandler.RemoveCommentHandler)
	}

	s.router = router
}

// healthHandler reports process liveness.
func (s *Server) healthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

// readinessHandler reports whether the server can take traffic. The database
// is the only hard dependency: reads degrade to it and writes require it.
func (s *Server) readinessHandler(c *gin.Context) {
	components := gin.H{}
	ready := true

	if s.db == nil {
		components["database"] = "error"
		ready = false
	} else {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		if err := s.db.PingContext(ctx); err != nil {
			components["database"] = "error"
			ready = false
		} else {
			components["database"] = "ok"
		}
	}

	if !ready {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":     "not_ready",
			"components": components,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":     "ready",
		"components": components,
	})
}

// Start starts the HTTP server. SetupRouter (or a test router) must have been
// called first.
func (s *Server) Start(ctx context.Context) error {
	if s.router == nil {
		return fmt.Errorf("router not configured, call SetupRouter first")
	}

	s.server.Handler = s.router

	s.logger.Info("starting http server", slog.String("addr", s.server.Addr))

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")
	return s.server.Shutdown(ctx)
}

// GetHandler returns the configured router for testing purposes.
func (s *Server) GetHandler() http.Handler {
	return s.router
}
