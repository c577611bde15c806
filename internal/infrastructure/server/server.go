package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	api "github.com/GriffinCanCode/docfs/internal/api/http"
	"github.com/GriffinCanCode/docfs/internal/api/middleware"
	"github.com/GriffinCanCode/docfs/internal/infrastructure/config"
	"github.com/GriffinCanCode/docfs/internal/infrastructure/logging"
	"github.com/GriffinCanCode/docfs/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/docfs/internal/infrastructure/tracing"
	"github.com/GriffinCanCode/docfs/internal/packager"
	"github.com/GriffinCanCode/docfs/internal/vfs"
)

// Server wraps the command listener, the operational listener and their
// dependencies
type Server struct {
	router  *gin.Engine
	ops     *gin.Engine
	http    *http.Server
	opsHTTP *http.Server
	tracer  *tracing.Tracer
	logger  *logging.Logger
	config  *config.Config
	metrics *monitoring.Metrics
}

// NewServer creates a new server instance
func NewServer(cfg *config.Config, logger *logging.Logger) (*Server, error) {
	if logger == nil {
		logger = logging.FromSettings(cfg.Logging.Level, cfg.Logging.Development)
	}

	info, err := os.Stat(cfg.Storage.Root)
	if err != nil {
		return nil, fmt.Errorf("invalid storage root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("invalid storage root: %s is not a directory", cfg.Storage.Root)
	}

	logger.Info("Initializing docfs server",
		zap.String("addr", cfg.Server.Addr()),
		zap.String("storage_root", cfg.Storage.Root),
	)

	metrics := monitoring.NewMetrics()
	tracer := tracing.New("docfs", logger)

	pkg, err := packager.New(packager.Options{
		Command: cfg.Packager.Command,
		Root:    cfg.Storage.Root,
		Exclude: cfg.Packager.Exclude,
		Logger:  logger,
		Metrics: metrics,
	})
	if err != nil {
		tracer.Close()
		return nil, fmt.Errorf("failed to create packager: %w", err)
	}
	logger.Info("Packager ready", zap.String("packager", pkg.Name()))

	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(tracing.HTTPMiddleware(tracer))
	router.Use(monitoring.Middleware(metrics))
	router.Use(middleware.CORS(middleware.DefaultCORSConfig()))
	if cfg.RateLimit.Enabled {
		logger.Info("Rate limiting enabled",
			zap.Int("rps", cfg.RateLimit.RequestsPerSecond),
			zap.Int("burst", cfg.RateLimit.Burst),
			zap.String("scope", cfg.RateLimit.Scope),
		)
		rl := middleware.DefaultRateLimitConfig()
		rl.RequestsPerSecond = cfg.RateLimit.RequestsPerSecond
		rl.Burst = cfg.RateLimit.Burst
		if cfg.RateLimit.Scope == config.RateLimitScopeGlobal {
			router.Use(middleware.GlobalRateLimit(rl))
		} else {
			router.Use(middleware.RateLimit(rl))
		}
	}

	handlers := api.NewHandlers(api.Options{
		FS:           vfs.NewStore(cfg.Storage.Root, logger),
		Packager:     pkg,
		Logger:       logger,
		Metrics:      metrics,
		FrontPage:    cfg.Server.FrontPage,
		MaxBodyBytes: cfg.Server.MaxBodyBytes,
	})
	api.RegisterRoutes(router, handlers)

	s := &Server{
		router:  router,
		tracer:  tracer,
		logger:  logger,
		config:  cfg,
		metrics: metrics,
	}
	s.ops = s.newOpsRouter()

	s.http = &http.Server{Addr: cfg.Server.Addr(), Handler: router}
	if cfg.Metrics.Enabled {
		s.opsHTTP = &http.Server{Addr: cfg.Metrics.Address, Handler: s.ops}
	}

	logger.Info("Server initialized successfully")
	return s, nil
}

// newOpsRouter serves /metrics and /health away from the command namespace
func (s *Server) newOpsRouter() *gin.Engine {
	ops := gin.New()
	ops.Use(gin.Recovery())

	ops.GET("/metrics", gin.WrapH(s.metrics.Handler()))
	ops.GET("/health", s.health)

	return ops
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":       "healthy",
		"service":      "docfs",
		"storage_root": s.config.Storage.Root,
		"stats":        s.metrics.Snapshot(),
	})
}

// Handler returns the command router
func (s *Server) Handler() http.Handler {
	return s.router
}

// OpsHandler returns the operational router
func (s *Server) OpsHandler() http.Handler {
	return s.ops
}

// Run serves both listeners until Shutdown is called or one of them fails
func (s *Server) Run() error {
	var g errgroup.Group

	g.Go(func() error {
		s.logger.Info("Starting HTTP server", zap.String("addr", s.http.Addr))
		return serve(s.http)
	})

	if s.opsHTTP != nil {
		g.Go(func() error {
			s.logger.Info("Starting operational server", zap.String("addr", s.opsHTTP.Addr))
			return serve(s.opsHTTP)
		})
	}

	return g.Wait()
}

func serve(srv *http.Server) error {
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("listen on %s: %w", srv.Addr, err)
	}
	return nil
}

// Shutdown stops accepting requests, waits for in-flight ones until ctx
// expires, then flushes spans and logs
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down server...")

	var errs []error
	if err := s.http.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("http server: %w", err))
	}
	if s.opsHTTP != nil {
		if err := s.opsHTTP.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("operational server: %w", err))
		}
	}

	s.tracer.Close()
	_ = s.logger.Sync()

	return errors.Join(errs...)
}
