// Package server exposes the weld inference service over HTTP.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/YuminosukeSato/weldsim/internal/config"
	"github.com/YuminosukeSato/weldsim/pkg/log"
	"github.com/YuminosukeSato/weldsim/sklearn/drift"
	"github.com/YuminosukeSato/weldsim/weld"
)

// Recorder stores a trained bank's metadata.
type Recorder interface {
	Record(ctx context.Context, info weld.BankInfo) error
}

// Route is one entry of the routing table.
type Route struct {
	Method  string
	Path    string
	Handler gin.HandlerFunc
}

// Server serves the prediction API.
type Server struct {
	svc      *weld.Service
	cfg      *config.Config
	logger   log.Logger
	limiter  gin.HandlerFunc
	recorder Recorder
	drift    *drift.ADWIN
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the server logger.
func WithLogger(logger log.Logger) Option {
	return func(s *Server) { s.logger = logger }
}

// WithRateLimiter installs a rate-limiting middleware.
func WithRateLimiter(limiter gin.HandlerFunc) Option {
	return func(s *Server) { s.limiter = limiter }
}

// WithRecorder records banks installed by /retrain.
func WithRecorder(r Recorder) Option {
	return func(s *Server) { s.recorder = r }
}

// WithDrift reports the drift monitor state on /health.
func WithDrift(d *drift.ADWIN) Option {
	return func(s *Server) { s.drift = d }
}

// New returns a server for svc.
func New(svc *weld.Service, cfg *config.Config, opts ...Option) *Server {
	s := &Server{
		svc:    svc,
		cfg:    cfg,
		logger: log.GetLoggerWithName("server"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Server) routes() []Route {
	routes := []Route{
		{Method: http.MethodGet, Path: "/model_info", Handler: s.modelInfo},
		{Method: http.MethodPost, Path: "/predict", Handler: s.predict},
		{Method: http.MethodPost, Path: "/simulate", Handler: s.simulate},
		{Method: http.MethodGet, Path: "/health", Handler: s.health},
		{Method: http.MethodGet, Path: "/power_quality/classes", Handler: s.powerQualityClasses},
	}
	if s.cfg.Server.AllowRetrain {
		routes = append(routes, Route{Method: http.MethodPost, Path: "/retrain", Handler: s.retrain})
	}
	return routes
}

// Router builds the gin engine with middleware and routes.
func (s *Server) Router() *gin.Engine {
	gin.SetMode(s.cfg.Server.Mode)

	r := gin.New()
	if err := r.SetTrustedProxies(s.cfg.Server.TrustedProxies); err != nil {
		s.logger.Warn("invalid trusted proxies, trusting none", err)
		_ = r.SetTrustedProxies(nil)
	}
	r.Use(requestID(), s.recovery(), accessLog(s.logger), cors())
	if s.limiter != nil {
		r.Use(s.limiter)
	}
	for _, route := range s.routes() {
		r.Handle(route.Method, route.Path, route.Handler)
	}
	return r
}

// Run listens on the configured address until ctx is cancelled, then shuts
// down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.cfg.Server.Addr,
		Handler:      s.Router(),
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s.logger.Info("shutting down")
	return srv.Shutdown(shutdownCtx)
}
