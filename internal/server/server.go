package server

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"

	"github.com/pageza/larder/backend/config"
	"github.com/pageza/larder/backend/internal/api"
	"github.com/pageza/larder/backend/internal/database"
	"github.com/pageza/larder/backend/internal/logger"
	"github.com/pageza/larder/backend/internal/middleware"
)

// Deps are the pieces main wires together before the server exists.
type Deps struct {
	Services api.Services
	Auth     *middleware.Authenticator
	Limiters api.Limiters
	// MediaRoot is served under the configured media URL path when images
	// are stored on local disk; empty disables it.
	MediaRoot string
}

// Server represents the HTTP server
type Server struct {
	router *gin.Engine
	http   *http.Server
	db     *gorm.DB
	log    *logger.Logger
}

// New builds the router and every route.
func New(cfg *config.Config, db *gorm.DB, log *logger.Logger, deps Deps) (*Server, error) {
	if cfg.Environment == config.Production {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.MaxMultipartMemory = 12 << 20
	router.Use(
		otelgin.Middleware(cfg.ServiceName),
		gin.Recovery(),
		middleware.RequestID(),
		middleware.RequestLogger(log),
		middleware.ErrorHandler(log),
		middleware.CORS(cfg.CORSOrigins),
	)

	s := &Server{router: router, db: db, log: log.With("component", "server")}
	router.GET("/health", s.health)

	if deps.MediaRoot != "" {
		if path := mediaPath(cfg.MediaURL); path != "" {
			router.Static(path, deps.MediaRoot)
		}
	}

	if err := api.RegisterRoutes(router, deps.Services, deps.Auth, deps.Limiters, api.SettingsFromConfig(cfg)); err != nil {
		return nil, err
	}

	s.http = &http.Server{
		Addr:              cfg.ServerHost + ":" + cfg.ServerPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s, nil
}

// mediaPath reduces MEDIA_URL to the path gin can mount; absolute URLs
// pointing elsewhere are served by someone else.
func mediaPath(mediaURL string) string {
	if !strings.HasPrefix(mediaURL, "/") {
		return ""
	}
	return strings.TrimRight(mediaURL, "/")
}

func (s *Server) health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()
	if err := database.HealthCheck(ctx, s.db); err != nil {
		s.log.Warn("health check failed", "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start blocks serving HTTP until Shutdown is called.
func (s *Server) Start() error {
	s.log.Info("starting server", "addr", s.http.Addr)
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests for up to five seconds.
func (s *Server) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return s.http.Shutdown(ctx)
}
