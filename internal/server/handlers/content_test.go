package handlers

import (
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kundliinsight/kundli/internal/core"
)

func TestCategoriesCRUD(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.signIn(t)

	rec := env.do(t, call{method: http.MethodPost, path: "/api/categories", cookie: cookie, body: map[string]string{
		"name": "Festival Guide", "description": "<i>Dates</i> and rituals",
	}})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[categoryResponse](t, rec).Category
	assert.Equal(t, "festival-guide", created.Slug)
	assert.Equal(t, "Dates and rituals", created.Description)

	rec = env.do(t, call{method: http.MethodPost, path: "/api/categories", cookie: cookie, body: map[string]string{"name": "Festival Guide"}})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = env.do(t, call{method: http.MethodGet, path: "/api/categories"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[categoriesResponse](t, rec).Categories, 1)

	rec = env.do(t, call{method: http.MethodDelete, path: fmt.Sprintf("/api/categories/%d", created.ID), cookie: cookie})
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = env.do(t, call{method: http.MethodDelete, path: fmt.Sprintf("/api/categories/%d", created.ID), cookie: cookie})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = env.do(t, call{method: http.MethodDelete, path: "/api/categories/abc", cookie: cookie})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestEmptyCategoryListIsArray(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, call{method: http.MethodGet, path: "/api/categories"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"categories":[]}`, rec.Body.String())
}

func TestPostLifecycle(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.signIn(t)

	rec := env.do(t, call{method: http.MethodPost, path: "/api/posts", cookie: cookie, body: map[string]any{
		"title":   "Rahu Kaal Explained",
		"content": `<p>Avoid new starts.</p><script>alert(1)</script>`,
		"status":  "draft",
	}})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	post := decode[postResponse](t, rec).Post
	assert.Equal(t, "rahu-kaal-explained", post.Slug)
	assert.Equal(t, "<p>Avoid new starts.</p>", post.Content)
	assert.Equal(t, core.PostStatusDraft, post.Status)
	assert.NotEmpty(t, post.AuthorID)

	// Drafts are invisible to visitors.
	rec = env.do(t, call{method: http.MethodGet, path: "/api/posts"})
	assert.JSONEq(t, `{"posts":[]}`, rec.Body.String())
	rec = env.do(t, call{method: http.MethodGet, path: "/api/posts/slug/rahu-kaal-explained"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = env.do(t, call{method: http.MethodGet, path: fmt.Sprintf("/api/posts/%d", post.ID)})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// Admins see them.
	rec = env.do(t, call{method: http.MethodGet, path: "/api/posts", cookie: cookie})
	assert.Len(t, decode[postsResponse](t, rec).Posts, 1)

	rec = env.do(t, call{method: http.MethodPut, path: fmt.Sprintf("/api/posts/%d", post.ID), cookie: cookie, body: map[string]any{
		"title":         "Rahu Kaal Explained",
		"slug":          "rahu-kaal",
		"content":       "<p>Avoid new starts during Rahu Kaal.</p>",
		"status":        "published",
		"featuredImage": "/uploads/abc.jpg",
	}})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = env.do(t, call{method: http.MethodGet, path: "/api/posts/slug/rahu-kaal"})
	require.Equal(t, http.StatusOK, rec.Code)
	published := decode[postResponse](t, rec).Post
	assert.True(t, published.Published())
	assert.Equal(t, "/uploads/abc.jpg", published.FeaturedImage)

	rec = env.do(t, call{method: http.MethodDelete, path: fmt.Sprintf("/api/posts/%d", post.ID), cookie: cookie})
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = env.do(t, call{method: http.MethodGet, path: "/api/posts/slug/rahu-kaal"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPostValidation(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.signIn(t)

	cases := []map[string]any{
		{"title": "", "content": "<p>x</p>"},
		{"title": "T", "content": "<script>x</script>"},
		{"title": "T", "content": "<p>x</p>", "status": "archived"},
		{"title": "T", "content": "<p>x</p>", "slug": "Not A Slug"},
		{"title": "T", "content": "<p>x</p>", "featuredImage": "javascript:alert(1)"},
		{"title": "T", "content": "<p>x</p>", "categoryId": 999},
	}
	for _, body := range cases {
		rec := env.do(t, call{method: http.MethodPost, path: "/api/posts", cookie: cookie, body: body})
		assert.Equal(t, http.StatusBadRequest, rec.Code, "%v: %s", body, rec.Body.String())
	}
	assert.Empty(t, env.store.posts)
}

func TestPostSlugConflictAndFallback(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.signIn(t)
	body := map[string]any{"title": "Shani Dosh", "content": "<p>x</p>", "status": "published"}

	require.Equal(t, http.StatusCreated, env.do(t, call{method: http.MethodPost, path: "/api/posts", cookie: cookie, body: body}).Code)
	rec := env.do(t, call{method: http.MethodPost, path: "/api/posts", cookie: cookie, body: body})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = env.do(t, call{method: http.MethodPost, path: "/api/posts", cookie: cookie, body: map[string]any{
		"title": "शनि दोष", "content": "<p>x</p>",
	}})
	require.Equal(t, http.StatusCreated, rec.Code)
	post := decode[postResponse](t, rec).Post
	assert.Equal(t, "शनि दोष", post.Title)
	assert.True(t, strings.HasPrefix(post.Slug, "post-"), post.Slug)
	assert.True(t, core.ValidSlug(post.Slug))
}

func TestListPostsByCategory(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.signIn(t)
	rec := env.do(t, call{method: http.MethodPost, path: "/api/categories", cookie: cookie, body: map[string]string{"name": "Remedies"}})
	cat := decode[categoryResponse](t, rec).Category

	env.do(t, call{method: http.MethodPost, path: "/api/posts", cookie: cookie, body: map[string]any{
		"title": "Gemstones", "content": "<p>x</p>", "status": "published", "categoryId": cat.ID,
	}})
	env.do(t, call{method: http.MethodPost, path: "/api/posts", cookie: cookie, body: map[string]any{
		"title": "Basics", "content": "<p>x</p>", "status": "published",
	}})

	rec = env.do(t, call{method: http.MethodGet, path: fmt.Sprintf("/api/posts?category=%d", cat.ID)})
	posts := decode[postsResponse](t, rec).Posts
	require.Len(t, posts, 1)
	assert.Equal(t, "gemstones", posts[0].Slug)

	rec = env.do(t, call{method: http.MethodGet, path: "/api/posts?category=x"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = env.do(t, call{method: http.MethodGet, path: "/api/posts?limit=1"})
	assert.Len(t, decode[postsResponse](t, rec).Posts, 1)
}

func TestResolveSlug(t *testing.T) {
	slug, err := resolveSlug("", "Navratri 2026: Day 1!", "post")
	require.NoError(t, err)
	assert.Equal(t, "navratri-2026-day-1", slug)

	slug, err = resolveSlug("custom-slug", "ignored", "post")
	require.NoError(t, err)
	assert.Equal(t, "custom-slug", slug)

	_, err = resolveSlug("Bad Slug", "x", "post")
	assert.Error(t, err)
}

func TestCleanImageRef(t *testing.T) {
	for raw, ok := range map[string]bool{
		"":                               true,
		"/uploads/a.jpg":                 true,
		"https://cdn.example.com/a.png":  true,
		"/uploads/../config.yaml":        false,
		"javascript:alert(1)":            false,
		"data:image/png;base64,AAAA":     false,
		"//evil.example.com/tracker.gif": false,
	} {
		_, err := cleanImageRef(raw)
		assert.Equal(t, ok, err == nil, raw)
	}
}
