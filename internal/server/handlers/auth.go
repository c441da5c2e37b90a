package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/kundliinsight/kundli/internal/core"
	"github.com/kundliinsight/kundli/internal/core/store"
	apperrors "github.com/kundliinsight/kundli/internal/errors"
	"github.com/kundliinsight/kundli/internal/metrics"
)

// Session defaults used when auth configuration is empty.
const (
	DefaultSessionTTL = 7 * 24 * time.Hour
	DefaultCookieName = "kundli_session"
)

type userContextKey struct{}

// UserFromContext returns the signed-in user loaded by LoadSession.
func UserFromContext(ctx context.Context) (*core.User, bool) {
	user, ok := ctx.Value(userContextKey{}).(*core.User)
	return user, ok && user != nil
}

func isAdmin(r *http.Request) bool {
	user, ok := UserFromContext(r.Context())
	return ok && user.IsAdmin
}

func (a *API) cookieName() string {
	if a.Auth.CookieName != "" {
		return a.Auth.CookieName
	}
	return DefaultCookieName
}

func (a *API) sessionTTL() time.Duration {
	if a.Auth.SessionTTL > 0 {
		return a.Auth.SessionTTL
	}
	return DefaultSessionTTL
}

// LoadSession attaches the user behind the session cookie, if any. Requests
// without a valid session continue anonymously.
func (a *API) LoadSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(a.cookieName())
		if err != nil || cookie.Value == "" {
			next.ServeHTTP(w, r)
			return
		}

		user, err := a.sessionUser(r.Context(), cookie.Value)
		if err != nil {
			if !errors.Is(err, store.ErrNotFound) {
				if l := a.logger(); l != nil {
					l.Warn("Failed to load admin session", zap.Error(err))
				}
			}
			next.ServeHTTP(w, r)
			return
		}
		ctx := context.WithValue(r.Context(), userContextKey{}, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (a *API) sessionUser(ctx context.Context, sessionID string) (*core.User, error) {
	session, err := a.Store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return a.Store.GetUser(ctx, session.UserID)
}

// RequireAdmin rejects requests that LoadSession did not authenticate as an
// admin.
func (a *API) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := UserFromContext(r.Context())
		if !ok {
			respondWithError(w, r, apperrors.NewUnauthorizedError("sign in required"))
			return
		}
		if !user.IsAdmin {
			respondWithError(w, r, apperrors.NewForbiddenError("admin access required"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type userResponse struct {
	User *core.User `json:"user"`
}

// Login handles POST /api/admin/login.
func (a *API) Login(w http.ResponseWriter, r *http.Request) {
	client := ClientID(r)
	if !a.logins.allow(client) {
		metrics.RecordAdminLogin("throttled")
		w.Header().Set("Retry-After", "60")
		respondWithError(w, r, apperrors.NewRateLimitedError("too many login attempts, try again later"))
		return
	}

	var req loginRequest
	if err := a.decodeJSON(w, r, &req); err != nil {
		respondWithError(w, r, err)
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" || req.Password == "" {
		respondWithError(w, r, apperrors.NewValidationError("username and password are required"))
		return
	}

	user, err := a.Store.Authenticate(r.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, store.ErrInvalidCredentials) {
			metrics.RecordAdminLogin("invalid")
			respondWithError(w, r, apperrors.NewUnauthorizedError("invalid username or password"))
			return
		}
		metrics.RecordAdminLogin("error")
		respondWithError(w, r, apperrors.FromStore(r.Context(), err, "user"))
		return
	}
	if !user.IsAdmin {
		metrics.RecordAdminLogin("forbidden")
		respondWithError(w, r, apperrors.NewForbiddenError("admin access required"))
		return
	}

	session, err := a.Store.CreateSession(r.Context(), user.ID, a.sessionTTL())
	if err != nil {
		metrics.RecordAdminLogin("error")
		respondWithError(w, r, apperrors.FromStore(r.Context(), err, "session"))
		return
	}

	metrics.RecordAdminLogin("success")
	if l := a.logger(); l != nil {
		l.Info("Admin signed in", zap.String("user", user.Username), zap.String("client", client))
	}
	http.SetCookie(w, a.sessionCookie(session.ID, session.ExpiresAt))
	writeJSON(w, http.StatusOK, userResponse{User: user})
}

// Logout handles POST /api/admin/logout. It succeeds without a session.
func (a *API) Logout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(a.cookieName()); err == nil && cookie.Value != "" {
		if err := a.Store.DeleteSession(r.Context(), cookie.Value); err != nil && !errors.Is(err, store.ErrNotFound) {
			respondWithError(w, r, apperrors.FromStore(r.Context(), err, "session"))
			return
		}
	}
	expired := a.sessionCookie("", time.Unix(0, 0))
	expired.MaxAge = -1
	http.SetCookie(w, expired)
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// Me handles GET /api/admin/me.
func (a *API) Me(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		respondWithError(w, r, apperrors.NewUnauthorizedError("not signed in"))
		return
	}
	writeJSON(w, http.StatusOK, userResponse{User: user})
}

func (a *API) sessionCookie(value string, expires time.Time) *http.Cookie {
	return &http.Cookie{
		Name:     a.cookieName(),
		Value:    value,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   a.Auth.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	}
}

// loginLimiter is a token bucket per client address.
type loginLimiter struct {
	limit rate.Limit
	burst int

	mu       sync.Mutex
	limiters map[string]*loginBucket
}

type loginBucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// loginLimiterIdle is how long an unused bucket is kept.
const loginLimiterIdle = 30 * time.Minute

func newLoginLimiter(perSecond float64, burst int) *loginLimiter {
	if perSecond <= 0 {
		perSecond = 0.2
	}
	if burst <= 0 {
		burst = 5
	}
	return &loginLimiter{
		limit:    rate.Limit(perSecond),
		burst:    burst,
		limiters: make(map[string]*loginBucket),
	}
}

func (l *loginLimiter) allow(client string) bool {
	if l == nil {
		return true
	}
	now := time.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	bucket, ok := l.limiters[client]
	if !ok {
		l.pruneLocked(now)
		bucket = &loginBucket{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.limiters[client] = bucket
	}
	bucket.lastSeen = now
	return bucket.limiter.AllowN(now, 1)
}

func (l *loginLimiter) pruneLocked(now time.Time) {
	for key, bucket := range l.limiters {
		if now.Sub(bucket.lastSeen) > loginLimiterIdle {
			delete(l.limiters, key)
		}
	}
}
