package server

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"

	"mercator-hq/chronicle/pkg/config"
	"mercator-hq/chronicle/pkg/history/query"
	"mercator-hq/chronicle/pkg/retention"
	"mercator-hq/chronicle/pkg/telemetry/health"
	"mercator-hq/chronicle/pkg/telemetry/metrics"
	"mercator-hq/chronicle/pkg/telemetry/tracing"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// Deps are the collaborators the server exposes over HTTP.
type Deps struct {
	Executor   *query.Executor
	Aggregator *retention.Aggregator

	// Health is optional; without it the probe endpoints are not mounted.
	Health *health.Checker

	// Metrics is optional; a nil or disabled collector leaves /metrics unmounted.
	Metrics *metrics.Collector

	// Tracer defaults to the global tracer provider.
	Tracer trace.Tracer

	Logger *slog.Logger

	// Version information reported by /version.
	Version   string
	GitCommit string
	BuildDate string
}

// Server is the chronicle REST server.
type Server struct {
	cfg        *config.Config
	deps       Deps
	logger     *slog.Logger
	handler    http.Handler
	httpServer *http.Server

	mu        sync.RWMutex
	isRunning bool
}

// New creates a server over deps. Routes are built once; New does not listen.
func New(cfg *config.Config, deps Deps) *Server {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Tracer == nil {
		deps.Tracer = otel.Tracer(tracing.InstrumentationName + "/server")
	}
	s := &Server{
		cfg:    cfg,
		deps:   deps,
		logger: deps.Logger.With("component", "server"),
	}
	s.handler = s.routes()
	return s
}

// Handler returns the HTTP handler with the full middleware chain.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start listens on the configured address and serves until ctx is canceled,
// then shuts down gracefully within the configured timeout.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Server.ListenAddress)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.cfg.Server.ListenAddress, err)
	}
	return s.Serve(ctx, ln)
}

// Serve is Start on an existing listener. With TLS enabled the listener is
// wrapped before serving.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	if s.cfg.Server.TLS.Enabled {
		tlsCfg, err := newTLSConfig(&s.cfg.Server.TLS, s.logger)
		if err != nil {
			ln.Close()
			return fmt.Errorf("failed to configure TLS: %w", err)
		}
		ln = tls.NewListener(ln, tlsCfg)
	}

	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return errors.New("server is already running")
	}
	s.isRunning = true
	s.httpServer = &http.Server{
		Handler:      s.handler,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
		BaseContext:  func(net.Listener) context.Context { return ctx },
	}
	srv := s.httpServer
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.isRunning = false
		s.mu.Unlock()
	}()

	errChan := make(chan error, 1)
	go func() {
		s.logger.Info("starting HTTP server", "address", ln.Addr().String(), "tls", s.cfg.Server.TLS.Enabled)
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("server error: %w", err)
		}
		close(errChan)
	}()

	select {
	case err := <-errChan:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("initiating graceful shutdown", "timeout", s.cfg.Server.ShutdownTimeout.String())
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}
	s.logger.Info("HTTP server stopped")
	return nil
}

// IsRunning returns true if the server is serving.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()

	r.Use(recovery(s.logger))
	r.Use(requestID)
	r.Use(tracing.HTTPMiddleware(s.deps.Tracer))
	r.Use(accessLog(s.logger))
	if len(s.cfg.Server.CORS.AllowedOrigins) > 0 {
		r.Use(corsHandler(s.cfg.Server.CORS))
	}

	if s.deps.Health != nil {
		r.Get("/health/live", s.deps.Health.LivenessHandler())
		r.Get("/health/ready", s.deps.Health.ReadinessHandler())
	}
	r.Get("/version", health.VersionHandler(s.deps.Version, s.deps.GitCommit, s.deps.BuildDate))

	if s.deps.Metrics != nil && s.deps.Metrics.Enabled() {
		r.Handle(s.cfg.Telemetry.Metrics.Path, s.deps.Metrics.Handler())
	}

	r.Route("/history", func(r chi.Router) {
		if s.cfg.Server.RateLimit.RequestsPerSecond > 0 {
			r.Use(rateLimit(s.cfg.Server.RateLimit))
		}

		r.Get("/process-instance", s.listProcessInstances)
		r.Get("/process-instance/count", s.countProcessInstances)

		for _, route := range reportRoutes {
			r.Get(route.path, s.cleanableReport(route.kind))
			r.Get(route.path+"/count", s.cleanableReportCount(route.kind))
		}
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusNotFound, "NotFound", "no route for "+r.Method+" "+r.URL.Path)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusMethodNotAllowed, "MethodNotAllowed", r.Method+" is not allowed on "+r.URL.Path)
	})

	return r
}
