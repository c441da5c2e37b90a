package engine

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/kundliinsight/kundli/internal/core"
)

// UnknownClient is the identifier used when the caller cannot be identified.
// All unidentifiable callers share one window.
const UnknownClient = "unknown"

// RateLimit represents a rate limit window.
type RateLimit struct {
	RequestsPerWindow int
	WindowDuration    time.Duration
}

// DefaultLimit admits ten interpretations per client every ten minutes.
var DefaultLimit = RateLimit{RequestsPerWindow: 10, WindowDuration: 10 * time.Minute}

// DefaultSweepInterval is how often expired windows are dropped.
const DefaultSweepInterval = 5 * time.Minute

// WindowLimiter is a fixed-window request counter keyed by client
// identifier. State is process-local and lost on restart.
type WindowLimiter struct {
	Limit RateLimit
	Clock func() time.Time

	mu      sync.Mutex
	clients map[string]*core.ClientWindowState
}

// NewWindowLimiter returns a limiter using limit, falling back to
// DefaultLimit for non-positive values.
func NewWindowLimiter(limit RateLimit) *WindowLimiter {
	if limit.RequestsPerWindow <= 0 {
		limit.RequestsPerWindow = DefaultLimit.RequestsPerWindow
	}
	if limit.WindowDuration <= 0 {
		limit.WindowDuration = DefaultLimit.WindowDuration
	}
	return &WindowLimiter{
		Limit:   limit,
		clients: make(map[string]*core.ClientWindowState),
	}
}

// Allow records a request for identifier and reports whether it is admitted.
// A new or expired window restarts at a count of one. A full window rejects
// without counting the rejected request.
func (l *WindowLimiter) Allow(identifier string) bool {
	if l == nil {
		return true
	}
	key := normalizeClient(identifier)
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	l.ensure()
	state, ok := l.clients[key]
	if !ok || state.Expired(now) {
		l.clients[key] = &core.ClientWindowState{
			Count:     1,
			ResetTime: now.Add(l.window()),
		}
		return true
	}

	if state.Count >= l.max() {
		return false
	}
	state.Count++
	return true
}

// Remaining reports how many more requests identifier may make in its
// current window.
func (l *WindowLimiter) Remaining(identifier string) int {
	if l == nil {
		return 0
	}
	key := normalizeClient(identifier)
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	state, ok := l.clients[key]
	if !ok || state.Expired(now) {
		return l.max()
	}
	if remaining := l.max() - state.Count; remaining > 0 {
		return remaining
	}
	return 0
}

// ResetAt reports when the current window for identifier ends. The zero time
// is returned when there is no live window.
func (l *WindowLimiter) ResetAt(identifier string) time.Time {
	if l == nil {
		return time.Time{}
	}
	key := normalizeClient(identifier)
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	state, ok := l.clients[key]
	if !ok || state.Expired(now) {
		return time.Time{}
	}
	return state.ResetTime
}

// Len reports the number of tracked clients, including expired ones not yet
// swept.
func (l *WindowLimiter) Len() int {
	if l == nil {
		return 0
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.clients)
}

// Sweep drops expired windows and returns how many were removed.
func (l *WindowLimiter) Sweep() int {
	if l == nil {
		return 0
	}
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	removed := 0
	for key, state := range l.clients {
		if state.Expired(now) {
			delete(l.clients, key)
			removed++
		}
	}
	return removed
}

// Run sweeps every interval until ctx is done. onSweep, when set, receives
// the number of removed and remaining entries after each pass.
func (l *WindowLimiter) Run(ctx context.Context, interval time.Duration, onSweep func(removed, remaining int)) {
	if l == nil {
		return
	}
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed := l.Sweep()
			if onSweep != nil {
				onSweep(removed, l.Len())
			}
		}
	}
}

func (l *WindowLimiter) ensure() {
	if l.clients == nil {
		l.clients = make(map[string]*core.ClientWindowState)
	}
}

func (l *WindowLimiter) max() int {
	if l.Limit.RequestsPerWindow <= 0 {
		return DefaultLimit.RequestsPerWindow
	}
	return l.Limit.RequestsPerWindow
}

func (l *WindowLimiter) window() time.Duration {
	if l.Limit.WindowDuration <= 0 {
		return DefaultLimit.WindowDuration
	}
	return l.Limit.WindowDuration
}

func (l *WindowLimiter) now() time.Time {
	if l != nil && l.Clock != nil {
		return l.Clock()
	}
	return time.Now().UTC()
}

func normalizeClient(identifier string) string {
	key := strings.TrimSpace(identifier)
	if key == "" {
		return UnknownClient
	}
	return key
}
