package handlers

import (
	"encoding/xml"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSiteConfigDefaults(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, call{method: http.MethodGet, path: "/api/site-config"})
	require.Equal(t, http.StatusOK, rec.Code)

	got := decode[siteConfigResponse](t, rec)
	assert.Equal(t, "Kundli Insight", got.SiteName)
	assert.Equal(t, "Guidance", got.SiteDescription)
	assert.Equal(t, "kundli, jyotish", got.SiteKeywords)
}

func TestSiteConfigStoredValuesWin(t *testing.T) {
	env := newTestEnv(t)
	env.store.settings.Name = "Rashi Darpan"

	got := decode[siteConfigResponse](t, env.do(t, call{method: http.MethodGet, path: "/api/site-config"}))
	assert.Equal(t, "Rashi Darpan", got.SiteName)
	assert.Equal(t, "Guidance", got.SiteDescription)
}

func TestSiteConfigFallsBackOnStoreError(t *testing.T) {
	env := newTestEnv(t)
	env.store.settings.Name = "Rashi Darpan"
	env.store.failWith = errors.New("database is locked")

	rec := env.do(t, call{method: http.MethodGet, path: "/api/site-config"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Kundli Insight", decode[siteConfigResponse](t, rec).SiteName)
}

func TestUpdateSiteConfig(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, call{method: http.MethodPut, path: "/api/admin/site-config", body: map[string]string{"siteName": "x"}})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	cookie := env.signIn(t)
	rec = env.do(t, call{method: http.MethodPut, path: "/api/admin/site-config", cookie: cookie, body: map[string]string{
		"siteName":     "<b>Rashi</b> Darpan",
		"siteKeywords": "rashi, panchang",
	}})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	got := decode[siteConfigResponse](t, rec)
	assert.Equal(t, "Rashi Darpan", got.SiteName)
	assert.Equal(t, "Guidance", got.SiteDescription)
	assert.Equal(t, "rashi, panchang", got.SiteKeywords)
}

func TestSitemap(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.signIn(t)
	env.do(t, call{method: http.MethodPost, path: "/api/posts", cookie: cookie, body: map[string]any{
		"title": "Mangal Dosh", "content": "<p>x</p>", "status": "published",
	}})
	env.do(t, call{method: http.MethodPost, path: "/api/posts", cookie: cookie, body: map[string]any{
		"title": "Unfinished", "content": "<p>x</p>",
	}})

	req := httptest.NewRequest(http.MethodGet, "/sitemap.xml", nil)
	req.Host = "kundli.example"
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "application/xml")

	var set sitemapURLSet
	require.NoError(t, xml.Unmarshal(rec.Body.Bytes(), &set))
	locs := make([]string, 0, len(set.URLs))
	for _, u := range set.URLs {
		locs = append(locs, u.Loc)
		assert.Equal(t, "2026-03-01", u.LastMod, u.Loc)
	}
	assert.Equal(t, "http://kundli.example/", locs[0])
	assert.Equal(t, "1.0", set.URLs[0].Priority)
	assert.Contains(t, locs, "http://kundli.example/blog/mangal-dosh")
	assert.NotContains(t, locs, "http://kundli.example/blog/unfinished")
	assert.Len(t, locs, len(sitemapPages)+1)
}

func TestSitemapUsesConfiguredBaseURL(t *testing.T) {
	env := newTestEnv(t)
	env.api.Site.BaseURL = "https://kundli.example/"

	rec := env.do(t, call{method: http.MethodGet, path: "/sitemap.xml"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "<loc>https://kundli.example/about</loc>")
	assert.NotContains(t, rec.Body.String(), "kundli.example//")
}
