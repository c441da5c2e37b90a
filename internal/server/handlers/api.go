package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/fulmenhq/gofulmen/logging"
	"github.com/go-chi/chi/v5"

	"github.com/kundliinsight/kundli/internal/config"
	"github.com/kundliinsight/kundli/internal/core"
	"github.com/kundliinsight/kundli/internal/core/engine"
	apperrors "github.com/kundliinsight/kundli/internal/errors"
	"github.com/kundliinsight/kundli/internal/observability"
)

// ContentStore is the persistence the site endpoints need.
type ContentStore interface {
	CountAdmins(ctx context.Context) (int, error)
	CreateUser(ctx context.Context, username, password string, isAdmin bool) (*core.User, error)
	GetUser(ctx context.Context, id string) (*core.User, error)
	Authenticate(ctx context.Context, username, password string) (*core.User, error)

	CreateSession(ctx context.Context, userID string, ttl time.Duration) (*core.Session, error)
	GetSession(ctx context.Context, id string) (*core.Session, error)
	DeleteSession(ctx context.Context, id string) error

	ListCategories(ctx context.Context) ([]core.Category, error)
	GetCategory(ctx context.Context, id int64) (*core.Category, error)
	CreateCategory(ctx context.Context, category core.Category) (*core.Category, error)
	DeleteCategory(ctx context.Context, id int64) error

	ListPosts(ctx context.Context, query core.PostQuery) ([]core.Post, error)
	GetPost(ctx context.Context, id int64) (*core.Post, error)
	GetPostBySlug(ctx context.Context, slug string) (*core.Post, error)
	CreatePost(ctx context.Context, post core.Post) (*core.Post, error)
	UpdatePost(ctx context.Context, post core.Post) (*core.Post, error)
	DeletePost(ctx context.Context, id int64) error

	CreateContactMessage(ctx context.Context, msg core.ContactMessage) (*core.ContactMessage, error)
	ListContactMessages(ctx context.Context, limit int) ([]core.ContactMessage, error)

	GetSiteSettings(ctx context.Context) (core.SiteSettings, error)
	SaveSiteSettings(ctx context.Context, settings core.SiteSettings) error
}

// DefaultMaxBodyBytes caps JSON bodies when no limit is configured.
const DefaultMaxBodyBytes = 64 << 10

// API serves the site's JSON endpoints.
type API struct {
	Guidance     *engine.Orchestrator
	Store        ContentStore
	Site         config.SiteConfig
	Auth         config.AuthConfig
	Uploads      config.UploadsConfig
	MaxBodyBytes int64
	Logger       *logging.Logger
	Now          func() time.Time

	logins *loginLimiter
}

// NewAPI wires the site endpoints from configuration.
func NewAPI(cfg *config.Config, st ContentStore, guidance *engine.Orchestrator) *API {
	api := &API{
		Guidance: guidance,
		Store:    st,
	}
	if cfg != nil {
		api.Site = cfg.Site
		api.Auth = cfg.Auth
		api.Uploads = cfg.Uploads
		api.MaxBodyBytes = cfg.Server.MaxBodyBytes
	}
	api.logins = newLoginLimiter(api.Auth.LoginRate, api.Auth.LoginBurst)
	return api
}

func (a *API) now() time.Time {
	if a.Now != nil {
		return a.Now()
	}
	return time.Now()
}

func (a *API) logger() *logging.Logger {
	if a.Logger != nil {
		return a.Logger
	}
	return observability.ServerLogger
}

func (a *API) maxBodyBytes() int64 {
	if a.MaxBodyBytes > 0 {
		return a.MaxBodyBytes
	}
	return DefaultMaxBodyBytes
}

// readBody reads at most the configured body limit.
func (a *API) readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	return io.ReadAll(http.MaxBytesReader(w, r.Body, a.maxBodyBytes()))
}

// decodeJSON decodes the request body into dst. Oversized bodies and
// malformed JSON come back as envelopes ready for respondWithError.
func (a *API) decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	body, err := a.readBody(w, r)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return apperrors.NewPayloadTooLargeError("request body too large")
		}
		return apperrors.WrapInvalidInput(r.Context(), err, "unable to read request body")
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return apperrors.WrapInvalidInput(r.Context(), err, "request body must be valid JSON")
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// ClientID names the caller for rate limiting: the host part of the remote
// address, or "unknown".
func ClientID(r *http.Request) string {
	addr := strings.TrimSpace(r.RemoteAddr)
	if addr == "" {
		return engine.UnknownClient
	}
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		// RealIP leaves a bare address without a port.
		host = addr
	}
	if host == "" {
		return engine.UnknownClient
	}
	return host
}

func idParam(r *http.Request, name string) (int64, error) {
	raw := chi.URLParam(r, name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, apperrors.NewInvalidInputError("invalid " + name)
	}
	return id, nil
}
