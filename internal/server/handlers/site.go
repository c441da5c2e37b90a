package handlers

import (
	"encoding/xml"
	"net/http"
	"strings"
	"time"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/kundliinsight/kundli/internal/core"
	apperrors "github.com/kundliinsight/kundli/internal/errors"
	"github.com/kundliinsight/kundli/internal/sanitize"
)

type siteConfigResponse struct {
	SiteName        string `json:"siteName"`
	SiteDescription string `json:"siteDescription"`
	SiteKeywords    string `json:"siteKeywords"`
	BaseURL         string `json:"baseUrl,omitempty"`
}

// siteSettings merges stored settings over the configured defaults. A store
// failure is logged and the defaults are served.
func (a *API) siteSettings(r *http.Request) core.SiteSettings {
	fallback := core.SiteSettings{
		Name:        a.Site.Name,
		Description: a.Site.Description,
		Keywords:    a.Site.Keywords,
	}
	stored, err := a.Store.GetSiteSettings(r.Context())
	if err != nil {
		if l := a.logger(); l != nil {
			l.Warn("Failed to load site settings, using configured defaults", zap.Error(err))
		}
		return fallback
	}
	return stored.Merge(fallback)
}

// SiteConfig handles GET /api/site-config.
func (a *API) SiteConfig(w http.ResponseWriter, r *http.Request) {
	site := a.siteSettings(r)
	writeJSON(w, http.StatusOK, siteConfigResponse{
		SiteName:        site.Name,
		SiteDescription: site.Description,
		SiteKeywords:    strings.Join(site.Keywords, ", "),
		BaseURL:         a.Site.BaseURL,
	})
}

type siteConfigUpdate struct {
	SiteName        string `json:"siteName"`
	SiteDescription string `json:"siteDescription"`
	SiteKeywords    string `json:"siteKeywords"`
}

// UpdateSiteConfig handles PUT /api/admin/site-config. Empty fields keep
// their stored value.
func (a *API) UpdateSiteConfig(w http.ResponseWriter, r *http.Request) {
	var req siteConfigUpdate
	if err := a.decodeJSON(w, r, &req); err != nil {
		respondWithError(w, r, err)
		return
	}
	settings := core.SiteSettings{
		Name:        sanitize.PlainText(req.SiteName),
		Description: sanitize.PlainText(req.SiteDescription),
		Keywords:    core.SplitKeywords(sanitize.PlainText(req.SiteKeywords)),
	}
	if err := a.Store.SaveSiteSettings(r.Context(), settings); err != nil {
		respondWithError(w, r, apperrors.FromStore(r.Context(), err, "settings"))
		return
	}
	a.SiteConfig(w, r)
}

// Sitemap protocol 0.9.
const sitemapNamespace = "http://www.sitemaps.org/schemas/sitemap/0.9"

type sitemapURLSet struct {
	XMLName xml.Name     `xml:"urlset"`
	Xmlns   string       `xml:"xmlns,attr"`
	URLs    []sitemapURL `xml:"url"`
}

type sitemapURL struct {
	Loc      string `xml:"loc"`
	LastMod  string `xml:"lastmod,omitempty"`
	Priority string `xml:"priority,omitempty"`
}

type staticPage struct {
	path     string
	priority string
}

var sitemapPages = []staticPage{
	{"/", "1.0"},
	{"/blog", "0.9"},
	{"/about", "0.8"},
	{"/contact", "0.7"},
	{"/privacy", "0.5"},
	{"/terms", "0.5"},
}

// Sitemap handles GET /sitemap.xml: the static pages plus every published
// post under /blog/{slug}.
func (a *API) Sitemap(w http.ResponseWriter, r *http.Request) {
	posts, err := a.Store.ListPosts(r.Context(), core.PostQuery{PublishedOnly: true})
	if err != nil {
		respondWithError(w, r, apperrors.FromStore(r.Context(), err, "posts"))
		return
	}

	base := a.baseURL(r)
	today := a.now().UTC().Format(time.DateOnly)
	urls := lo.Map(sitemapPages, func(page staticPage, _ int) sitemapURL {
		return sitemapURL{Loc: base + page.path, LastMod: today, Priority: page.priority}
	})
	urls = append(urls, lo.Map(posts, func(post core.Post, _ int) sitemapURL {
		return sitemapURL{
			Loc:      base + "/blog/" + post.Slug,
			LastMod:  post.UpdatedAt.UTC().Format(time.DateOnly),
			Priority: "0.6",
		}
	})...)

	w.Header().Set("Content-Type", "application/xml; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(xml.Header))
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	_ = enc.Encode(sitemapURLSet{Xmlns: sitemapNamespace, URLs: urls})
}

// baseURL is site.base_url, or the scheme and host the request arrived on.
func (a *API) baseURL(r *http.Request) string {
	if base := strings.TrimRight(strings.TrimSpace(a.Site.BaseURL), "/"); base != "" {
		return base
	}
	scheme := "http"
	if r.TLS != nil || strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https") {
		scheme = "https"
	}
	return scheme + "://" + r.Host
}
