package server

import (
	"net/http"

	"github.com/fulmenhq/gofulmen/signals"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/kundliinsight/kundli/internal/observability"
	"github.com/kundliinsight/kundli/internal/server/handlers"
)

const signalPath = "/admin/signal"

func (s *Server) registerRoutes() {
	gets := map[string]http.HandlerFunc{
		"/health":  s.health.HealthHandler,
		"/version": handlers.VersionHandler,
		"/metrics": MetricsHandler,
	}
	if s.probes {
		gets["/health/live"] = s.health.LivenessHandler
		gets["/health/ready"] = s.health.ReadinessHandler
		gets["/health/startup"] = s.health.StartupHandler
	}
	for path, h := range gets {
		s.router.Get(path, h)
	}
	if s.pprof {
		s.router.Mount("/debug", middleware.Profiler())
	}

	if s.api != nil {
		s.api.Mount(s.router, s.uploads)
	}
	if s.cfg.SignalToken != "" {
		s.mountSignals(s.cfg.SignalToken)
	}
}

// mountSignals exposes gofulmen's signal handler so operators can request a
// config reload or shutdown over HTTP. Requests need the bearer token and are
// limited to 10 per minute.
func (s *Server) mountSignals(token string) {
	h := signals.NewHTTPHandler(signals.HTTPConfig{
		TokenAuth: token,
		RateLimit: 10,
		RateBurst: 5,
	})
	s.router.Post(signalPath, h.ServeHTTP)

	if log := observability.ServerLogger; log != nil {
		log.Warn("Signal endpoint enabled; keep it off the public internet",
			zap.String("path", signalPath),
			zap.String("rate_limit", "10/min, burst 5"))
	}
}
