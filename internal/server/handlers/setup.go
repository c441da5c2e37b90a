package handlers

import (
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/kundliinsight/kundli/internal/core"
	"github.com/kundliinsight/kundli/internal/core/store"
	apperrors "github.com/kundliinsight/kundli/internal/errors"
	"github.com/kundliinsight/kundli/internal/sanitize"
)

type setupStatusResponse struct {
	SetupComplete bool   `json:"isSetupComplete"`
	SiteName      string `json:"siteName"`
}

// SetupStatus handles GET /api/setup/status. Setup is complete once an admin
// account exists.
func (a *API) SetupStatus(w http.ResponseWriter, r *http.Request) {
	admins, err := a.Store.CountAdmins(r.Context())
	if err != nil {
		respondWithError(w, r, apperrors.FromStore(r.Context(), err, "users"))
		return
	}
	site := a.siteSettings(r)
	writeJSON(w, http.StatusOK, setupStatusResponse{
		SetupComplete: admins > 0,
		SiteName:      site.Name,
	})
}

type setupRequest struct {
	SiteName             string `json:"siteName"`
	SiteDescription      string `json:"siteDescription"`
	SiteKeywords         string `json:"siteKeywords"`
	OpenAIAPIKey         string `json:"openaiApiKey"`
	AdminUsername        string `json:"adminUsername"`
	AdminPassword        string `json:"adminPassword"`
	AdminPasswordConfirm string `json:"adminPasswordConfirm"`
}

// Setup handles POST /api/setup: it creates the first admin, stores the site
// metadata and signs the new admin in. It is refused once an admin exists.
func (a *API) Setup(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	admins, err := a.Store.CountAdmins(ctx)
	if err != nil {
		respondWithError(w, r, apperrors.FromStore(ctx, err, "users"))
		return
	}
	if admins > 0 {
		respondWithError(w, r, apperrors.NewConflictError("setup has already been completed"))
		return
	}

	var req setupRequest
	if err := a.decodeJSON(w, r, &req); err != nil {
		respondWithError(w, r, err)
		return
	}
	req.AdminUsername = strings.TrimSpace(req.AdminUsername)
	if req.AdminPassword != req.AdminPasswordConfirm {
		respondWithError(w, r, apperrors.NewValidationError("passwords do not match"))
		return
	}
	if err := core.ValidateCredentials(req.AdminUsername, req.AdminPassword); err != nil {
		respondWithError(w, r, apperrors.WrapValidationError(ctx, err, err.Error()))
		return
	}
	if strings.TrimSpace(req.OpenAIAPIKey) != "" {
		// Credentials come from configuration only; the key is never persisted.
		if l := a.logger(); l != nil {
			l.Warn("Ignoring OpenAI API key submitted during setup; set OPENAI_API_KEY instead")
		}
	}

	user, err := a.Store.CreateUser(ctx, req.AdminUsername, req.AdminPassword, true)
	if err != nil {
		if errors.Is(err, store.ErrConflict) {
			respondWithError(w, r, apperrors.NewConflictError("username already exists"))
			return
		}
		respondWithError(w, r, apperrors.FromStore(ctx, err, "user"))
		return
	}

	settings := core.SiteSettings{
		Name:        sanitize.PlainText(req.SiteName),
		Description: sanitize.PlainText(req.SiteDescription),
		Keywords:    core.SplitKeywords(sanitize.PlainText(req.SiteKeywords)),
	}
	if err := a.Store.SaveSiteSettings(ctx, settings); err != nil {
		respondWithError(w, r, apperrors.FromStore(ctx, err, "settings"))
		return
	}

	session, err := a.Store.CreateSession(ctx, user.ID, a.sessionTTL())
	if err != nil {
		respondWithError(w, r, apperrors.FromStore(ctx, err, "session"))
		return
	}
	if l := a.logger(); l != nil {
		l.Info("Setup completed", zap.String("admin", user.Username))
	}
	http.SetCookie(w, a.sessionCookie(session.ID, session.ExpiresAt))
	writeJSON(w, http.StatusCreated, userResponse{User: user})
}
