package handlers

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupBody() map[string]string {
	return map[string]string{
		"siteName":             "Jyotish Mitra",
		"siteDescription":      "Daily guidance",
		"siteKeywords":         "kundli, rashi, kundli",
		"openaiApiKey":         "sk-test",
		"adminUsername":        "pandit",
		"adminPassword":        "secret123",
		"adminPasswordConfirm": "secret123",
	}
}

func TestSetupFlow(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, call{method: http.MethodGet, path: "/api/setup/status"})
	require.Equal(t, http.StatusOK, rec.Code)
	status := decode[setupStatusResponse](t, rec)
	assert.False(t, status.SetupComplete)
	assert.Equal(t, "Kundli Insight", status.SiteName)

	rec = env.do(t, call{method: http.MethodPost, path: "/api/setup", body: setupBody()})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[userResponse](t, rec)
	require.NotNil(t, created.User)
	assert.True(t, created.User.IsAdmin)

	var session *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == DefaultCookieName {
			session = c
		}
	}
	require.NotNil(t, session, "setup signs the new admin in")

	assert.Equal(t, "Jyotish Mitra", env.store.settings.Name)
	assert.Equal(t, []string{"kundli", "rashi"}, env.store.settings.Keywords)

	rec = env.do(t, call{method: http.MethodGet, path: "/api/setup/status"})
	status = decode[setupStatusResponse](t, rec)
	assert.True(t, status.SetupComplete)
	assert.Equal(t, "Jyotish Mitra", status.SiteName)

	rec = env.do(t, call{method: http.MethodGet, path: "/api/admin/me", cookie: session})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestSetupOnlyOnce(t *testing.T) {
	env := newTestEnv(t)
	require.Equal(t, http.StatusCreated, env.do(t, call{method: http.MethodPost, path: "/api/setup", body: setupBody()}).Code)

	second := setupBody()
	second["adminUsername"] = "intruder"
	rec := env.do(t, call{method: http.MethodPost, path: "/api/setup", body: second})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Len(t, env.store.users, 1)
}

func TestSetupValidation(t *testing.T) {
	env := newTestEnv(t)

	mismatch := setupBody()
	mismatch["adminPasswordConfirm"] = "different"
	assert.Equal(t, http.StatusBadRequest, env.do(t, call{method: http.MethodPost, path: "/api/setup", body: mismatch}).Code)

	short := setupBody()
	short["adminUsername"] = "ab"
	assert.Equal(t, http.StatusBadRequest, env.do(t, call{method: http.MethodPost, path: "/api/setup", body: short}).Code)

	weak := setupBody()
	weak["adminPassword"], weak["adminPasswordConfirm"] = "12345", "12345"
	assert.Equal(t, http.StatusBadRequest, env.do(t, call{method: http.MethodPost, path: "/api/setup", body: weak}).Code)

	assert.Empty(t, env.store.users)
}
