// Package api exposes the evaluation and feedback services over HTTP.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/sirupsen/logrus"

	"github.com/medication-net-benefit/internal/domain"
	"github.com/medication-net-benefit/internal/middleware"
	"github.com/medication-net-benefit/internal/service"
)

// Version is reported by the health endpoint.
const Version = "1.0.0"

func init() {
	binding.EnableDecoderDisallowUnknownFields = true
}

// Dependencies are the services the HTTP surface delegates to.
type Dependencies struct {
	Evaluation *service.EvaluationService
	Feedback   *service.FeedbackService
	Cache      domain.ResultCache
}

// Server represents the HTTP server
type Server struct {
	config  *domain.Config
	deps    Dependencies
	logger  *logrus.Logger
	router  *gin.Engine
	server  *http.Server
	started time.Time
}

// NewServer creates a new HTTP server instance
func NewServer(config *domain.Config, deps Dependencies, logger *logrus.Logger) *Server {
	switch config.Server.Mode {
	case gin.DebugMode, gin.TestMode:
		gin.SetMode(config.Server.Mode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(middleware.CorrelationID())
	router.Use(middleware.Recovery(logger))
	router.Use(middleware.AuditLogger())
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.CORS(config.Server.AllowedOrigins))
	if config.RateLimit.Enabled {
		router.Use(middleware.NewRateLimiter(config.RateLimit, logger).Middleware())
	}
	router.Use(middleware.RequestTimeout(config.Server.RequestTimeout))

	server := &Server{
		config:  config,
		deps:    deps,
		logger:  logger,
		router:  router,
		started: time.Now(),
	}
	server.setupRoutes()

	return server
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	cfg := s.config.Server
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.WithFields(logrus.Fields{
			"addr": addr,
			"tls":  cfg.TLSEnabled,
		}).Info("HTTP server listening")

		var err error
		if cfg.TLSEnabled {
			err = s.server.ListenAndServeTLS(cfg.CertFile, cfg.KeyFile)
		} else {
			err = s.server.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	timeout := cfg.ShutdownTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	s.logger.Info("Shutting down HTTP server")
	return s.server.Shutdown(shutdownCtx)
}

// setupRoutes configures the API routes
func (s *Server) setupRoutes() {
	s.router.GET("/health", s.handleHealth)

	v1 := s.router.Group("/api/v1")
	{
		v1.GET("/medications", s.handleListMedications)
		v1.GET("/medications/:id", s.handleGetMedication)
		v1.POST("/risks", s.handleRisks)
		v1.POST("/evaluate", s.handleEvaluate)
		v1.POST("/feedback", s.handleRecordFeedback)
		v1.GET("/feedback", s.handleListFeedback)
		v1.GET("/feedback/export", s.handleExportFeedback)
		v1.POST("/feedback/import", s.handleImportFeedback)
		v1.GET("/feedback/:evaluation_id/:medication_id", s.handleGetFeedback)
	}
}
