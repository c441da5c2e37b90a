package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/kundliinsight/kundli/internal/config"
	apperrors "github.com/kundliinsight/kundli/internal/errors"
	"github.com/kundliinsight/kundli/internal/observability"
	"github.com/kundliinsight/kundli/internal/server/handlers"
	servermw "github.com/kundliinsight/kundli/internal/server/middleware"
)

// Default HTTP timeouts used when the configuration leaves them at zero.
// WriteTimeout must outlast a guidance generation call.
const (
	DefaultReadTimeout  = 30 * time.Second
	DefaultWriteTimeout = 90 * time.Second
	DefaultIdleTimeout  = 120 * time.Second
)

// Server represents the HTTP server
type Server struct {
	router  *chi.Mux
	server  *http.Server
	cfg     config.ServerConfig
	api     *handlers.API
	health  *handlers.HealthManager
	uploads string
	probes  bool
	pprof   bool

	mu   sync.Mutex
	addr net.Addr
}

// Options carries what the server routes to.
type Options struct {
	Server  config.ServerConfig
	API     *handlers.API
	Health  *handlers.HealthManager
	Uploads string

	// DisableProbes leaves out /health/live, /health/ready and /health/startup.
	DisableProbes bool
	// Pprof mounts net/http/pprof under /debug/pprof.
	Pprof bool
}

// New creates a new HTTP server instance
func New(opts Options) *Server {
	r := chi.NewRouter()

	if opts.Server.TrustProxy {
		r.Use(middleware.RealIP)
	}

	// RequestID → Metrics → Recovery; recovery sits inside metrics so a
	// recovered panic is still counted as a 500.
	r.Use(servermw.RequestID)
	r.Use(servermw.RequestMetrics)
	r.Use(servermw.Recovery)
	r.Use(servermw.SecurityHeaders)
	r.Use(middleware.Compress(5, "application/json", "application/xml"))

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		HandleError(w, req, apperrors.NewNotFoundError("The requested resource was not found"))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
		HandleError(w, req, apperrors.NewMethodNotAllowedError("The requested method is not allowed for this resource"))
	})

	health := opts.Health
	if health == nil {
		health = handlers.NewHealthManager(handlers.AppVersion)
		health.MarkStarted()
	}

	s := &Server{
		router:  r,
		cfg:     opts.Server,
		api:     opts.API,
		health:  health,
		uploads: opts.Uploads,
		probes:  !opts.DisableProbes,
		pprof:   opts.Pprof,
	}

	handlers.SetHTTPErrorResponder(HandleError)
	s.registerRoutes()

	return s
}

// Start listens on the configured address and serves until Shutdown.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}
	return s.Serve(ln)
}

// Serve serves on ln. It returns nil after a graceful Shutdown.
func (s *Server) Serve(ln net.Listener) error {
	srv := &http.Server{
		Handler:      s.router,
		ReadTimeout:  durationOr(s.cfg.ReadTimeout, DefaultReadTimeout),
		WriteTimeout: durationOr(s.cfg.WriteTimeout, DefaultWriteTimeout),
		IdleTimeout:  durationOr(s.cfg.IdleTimeout, DefaultIdleTimeout),
	}
	s.mu.Lock()
	s.addr = ln.Addr()
	s.server = srv
	s.mu.Unlock()

	if observability.ServerLogger != nil {
		observability.ServerLogger.Info("Starting HTTP server",
			zap.String("addr", ln.Addr().String()),
			zap.Bool("trust_proxy", s.cfg.TrustProxy))
	}

	err := srv.Serve(ln)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown gracefully shuts down the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	srv := s.server
	s.mu.Unlock()
	if srv == nil {
		return nil
	}
	if observability.ServerLogger != nil {
		observability.ServerLogger.Info("Shutting down HTTP server")
	}
	return srv.Shutdown(ctx)
}

// Handler exposes the underlying router for testing and instrumentation
func (s *Server) Handler() http.Handler {
	return s.router
}

// Addr returns the listening address once serving.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}

func durationOr(d, fallback time.Duration) time.Duration {
	if d > 0 {
		return d
	}
	return fallback
}
