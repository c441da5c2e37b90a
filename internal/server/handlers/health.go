package handlers

import (
	"context"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/fulmenhq/gofulmen/errors"

	apperrors "github.com/kundliinsight/kundli/internal/errors"
	"github.com/kundliinsight/kundli/internal/metrics"
)

const (
	StatusHealthy   = "healthy"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"
	StatusTimeout   = "timeout"
)

const (
	healthTimeout  = 5 * time.Second
	startupTimeout = 3 * time.Second
)

// HealthResponse is the /health body.
type HealthResponse struct {
	Status    string            `json:"status"`
	Version   string            `json:"version"`
	Timestamp string            `json:"timestamp"`
	Checks    map[string]string `json:"checks,omitempty"`
}

// ProbeResponse is the body of the /health/* probes.
type ProbeResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

type HealthChecker interface {
	CheckHealth(ctx context.Context) error
}

type CheckerFunc func(ctx context.Context) error

func (f CheckerFunc) CheckHealth(ctx context.Context) error { return f(ctx) }

type namedChecker struct {
	name     string
	check    HealthChecker
	optional bool
}

// HealthManager runs the registered dependency checks behind /health,
// /health/ready and /health/startup. A failing required check makes the
// service unhealthy (503); a failing optional one only degrades it.
type HealthManager struct {
	version string

	mu       sync.RWMutex
	checkers []namedChecker
	started  bool
}

func NewHealthManager(version string) *HealthManager {
	return &HealthManager{version: version}
}

func (hm *HealthManager) RegisterChecker(name string, checker HealthChecker) {
	hm.register(namedChecker{name: name, check: checker})
}

// RegisterOptionalChecker is for dependencies the site can live without,
// such as guidance generation.
func (hm *HealthManager) RegisterOptionalChecker(name string, checker HealthChecker) {
	hm.register(namedChecker{name: name, check: checker, optional: true})
}

// register replaces an existing checker of the same name.
func (hm *HealthManager) register(c namedChecker) {
	hm.mu.Lock()
	defer hm.mu.Unlock()
	for i := range hm.checkers {
		if hm.checkers[i].name == c.name {
			hm.checkers[i] = c
			return
		}
	}
	hm.checkers = append(hm.checkers, c)
}

// MarkStarted lets the startup probe pass.
func (hm *HealthManager) MarkStarted() {
	hm.mu.Lock()
	hm.started = true
	hm.mu.Unlock()
}

func (hm *HealthManager) snapshot() ([]namedChecker, bool) {
	hm.mu.RLock()
	defer hm.mu.RUnlock()
	return append([]namedChecker(nil), hm.checkers...), hm.started
}

// runHealthChecks runs every checker concurrently. Checks that cannot start
// because ctx is already done report StatusTimeout.
func (hm *HealthManager) runHealthChecks(ctx context.Context) map[string]string {
	checkers, _ := hm.snapshot()
	results := make([]string, len(checkers))

	var wg sync.WaitGroup
	for i, c := range checkers {
		if ctx.Err() != nil {
			results[i] = StatusTimeout
			continue
		}
		wg.Add(1)
		go func(i int, c namedChecker) {
			defer wg.Done()
			start := time.Now()
			err := c.check.CheckHealth(ctx)
			metrics.RecordHealthCheck(c.name, err == nil, time.Since(start))
			switch {
			case err == nil:
				results[i] = StatusHealthy
			case c.optional:
				results[i] = StatusDegraded
			default:
				results[i] = StatusUnhealthy
			}
		}(i, c)
	}
	wg.Wait()

	checks := make(map[string]string, len(checkers))
	for i, c := range checkers {
		checks[c.name] = results[i]
	}
	return checks
}

func (hm *HealthManager) determineOverallStatus(checks map[string]string) string {
	overall := StatusHealthy
	for _, status := range checks {
		switch status {
		case StatusUnhealthy:
			return StatusUnhealthy
		case StatusDegraded, StatusTimeout:
			overall = StatusDegraded
		}
	}
	return overall
}

func (hm *HealthManager) evaluate(r *http.Request, timeout time.Duration) (map[string]string, string) {
	ctx, cancel := context.WithTimeout(r.Context(), timeout)
	defer cancel()
	checks := hm.runHealthChecks(ctx)
	return checks, hm.determineOverallStatus(checks)
}

func (hm *HealthManager) HealthHandler(w http.ResponseWriter, r *http.Request) {
	checks, status := hm.evaluate(r, healthTimeout)
	if status == StatusUnhealthy {
		respondWithError(w, r, healthFailure("aggregate health check failed", "", status, checks))
		return
	}
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:    status,
		Version:   hm.version,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Checks:    checks,
	})
}

// LivenessHandler always answers 200 while the process can serve; a database
// outage must not get the process restarted.
func (hm *HealthManager) LivenessHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, ProbeResponse{Status: StatusHealthy, Timestamp: time.Now().UTC()})
}

func (hm *HealthManager) ReadinessHandler(w http.ResponseWriter, r *http.Request) {
	hm.probe(w, r, "ready", healthTimeout)
}

func (hm *HealthManager) StartupHandler(w http.ResponseWriter, r *http.Request) {
	if _, started := hm.snapshot(); !started {
		respondWithError(w, r, healthFailure("startup in progress", "startup", "starting", nil))
		return
	}
	hm.probe(w, r, "startup", startupTimeout)
}

func (hm *HealthManager) probe(w http.ResponseWriter, r *http.Request, name string, timeout time.Duration) {
	checks, status := hm.evaluate(r, timeout)
	if status == StatusUnhealthy {
		respondWithError(w, r, healthFailure(name+" probe failed", name, status, checks))
		return
	}
	writeJSON(w, http.StatusOK, ProbeResponse{Status: status, Timestamp: time.Now().UTC()})
}

// healthFailure builds the 503 envelope. Check names and states go in
// Details; checker errors are never exposed.
func healthFailure(message, probe, status string, checks map[string]string) *errors.ErrorEnvelope {
	details := map[string]interface{}{"status": status}
	logged := map[string]interface{}{"status": status}
	if probe != "" {
		details["probe"] = probe
		logged["probe"] = probe
	}
	if len(checks) > 0 {
		details["checks"] = checks
		var failing []string
		for name, result := range checks {
			if result != StatusHealthy {
				failing = append(failing, name)
			}
		}
		sort.Strings(failing)
		logged["unhealthy_checks"] = failing
	}

	envelope := apperrors.NewUnavailableError(message).WithDetails(details)
	envelope, _ = envelope.WithContext(logged)
	return envelope
}
