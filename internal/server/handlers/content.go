package handlers

import (
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/kundliinsight/kundli/internal/core"
	"github.com/kundliinsight/kundli/internal/core/store"
	apperrors "github.com/kundliinsight/kundli/internal/errors"
	"github.com/kundliinsight/kundli/internal/sanitize"
)

// Listing limits.
const (
	defaultPostLimit    = 50
	maxPostLimit        = 200
	defaultContactLimit = 100
)

type categoriesResponse struct {
	Categories []core.Category `json:"categories"`
}

type categoryResponse struct {
	Category *core.Category `json:"category"`
}

type postsResponse struct {
	Posts []core.Post `json:"posts"`
}

type postResponse struct {
	Post *core.Post `json:"post"`
}

// ListCategories handles GET /api/categories.
func (a *API) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := a.Store.ListCategories(r.Context())
	if err != nil {
		respondWithError(w, r, apperrors.FromStore(r.Context(), err, "categories"))
		return
	}
	if categories == nil {
		categories = []core.Category{}
	}
	writeJSON(w, http.StatusOK, categoriesResponse{Categories: categories})
}

type categoryRequest struct {
	Name        string `json:"name"`
	Slug        string `json:"slug"`
	Description string `json:"description"`
}

// CreateCategory handles POST /api/categories.
func (a *API) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var req categoryRequest
	if err := a.decodeJSON(w, r, &req); err != nil {
		respondWithError(w, r, err)
		return
	}
	category := core.Category{
		Name:        sanitize.PlainText(req.Name),
		Description: sanitize.PlainText(req.Description),
	}
	if category.Name == "" {
		respondWithError(w, r, apperrors.NewValidationError("category name is required"))
		return
	}
	slug, err := resolveSlug(req.Slug, category.Name, "category")
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	category.Slug = slug

	created, err := a.Store.CreateCategory(r.Context(), category)
	if err != nil {
		respondWithError(w, r, apperrors.FromStore(r.Context(), err, "category"))
		return
	}
	writeJSON(w, http.StatusCreated, categoryResponse{Category: created})
}

// DeleteCategory handles DELETE /api/categories/{id}.
func (a *API) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	if err := a.Store.DeleteCategory(r.Context(), id); err != nil {
		respondWithError(w, r, apperrors.FromStore(r.Context(), err, "category"))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListPosts handles GET /api/posts. Visitors only see published posts;
// admins see drafts too. ?category= filters by category id.
func (a *API) ListPosts(w http.ResponseWriter, r *http.Request) {
	query := core.PostQuery{
		PublishedOnly: !isAdmin(r),
		Limit:         defaultPostLimit,
	}
	if raw := r.URL.Query().Get("category"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			respondWithError(w, r, apperrors.NewInvalidInputError("invalid category"))
			return
		}
		query.CategoryID = &id
	}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit <= 0 {
			respondWithError(w, r, apperrors.NewInvalidInputError("invalid limit"))
			return
		}
		query.Limit = min(limit, maxPostLimit)
	}

	posts, err := a.Store.ListPosts(r.Context(), query)
	if err != nil {
		respondWithError(w, r, apperrors.FromStore(r.Context(), err, "posts"))
		return
	}
	if posts == nil {
		posts = []core.Post{}
	}
	writeJSON(w, http.StatusOK, postsResponse{Posts: posts})
}

// GetPost handles GET /api/posts/{id}.
func (a *API) GetPost(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	post, err := a.Store.GetPost(r.Context(), id)
	a.writePost(w, r, post, err)
}

// GetPostBySlug handles GET /api/posts/slug/{slug}.
func (a *API) GetPostBySlug(w http.ResponseWriter, r *http.Request) {
	slug := strings.ToLower(strings.TrimSpace(chi.URLParam(r, "slug")))
	if !core.ValidSlug(slug) {
		respondWithError(w, r, apperrors.NewNotFoundError("post not found"))
		return
	}
	post, err := a.Store.GetPostBySlug(r.Context(), slug)
	a.writePost(w, r, post, err)
}

// writePost hides drafts from visitors behind the same 404 as a missing post.
func (a *API) writePost(w http.ResponseWriter, r *http.Request, post *core.Post, err error) {
	if err == nil && !post.Published() && !isAdmin(r) {
		err = store.ErrNotFound
	}
	if err != nil {
		respondWithError(w, r, apperrors.FromStore(r.Context(), err, "post"))
		return
	}
	writeJSON(w, http.StatusOK, postResponse{Post: post})
}

type postRequest struct {
	Title         string `json:"title"`
	Slug          string `json:"slug"`
	Content       string `json:"content"`
	Excerpt       string `json:"excerpt"`
	FeaturedImage string `json:"featuredImage"`
	Status        string `json:"status"`
	CategoryID    *int64 `json:"categoryId"`
}

// CreatePost handles POST /api/posts.
func (a *API) CreatePost(w http.ResponseWriter, r *http.Request) {
	post, ok := a.postFromRequest(w, r)
	if !ok {
		return
	}
	if user, signedIn := UserFromContext(r.Context()); signedIn {
		post.AuthorID = user.ID
	}

	created, err := a.Store.CreatePost(r.Context(), post)
	if err != nil {
		respondWithError(w, r, postStoreError(r, err))
		return
	}
	writeJSON(w, http.StatusCreated, postResponse{Post: created})
}

// UpdatePost handles PUT /api/posts/{id}.
func (a *API) UpdatePost(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	post, ok := a.postFromRequest(w, r)
	if !ok {
		return
	}
	post.ID = id

	updated, err := a.Store.UpdatePost(r.Context(), post)
	if err != nil {
		respondWithError(w, r, postStoreError(r, err))
		return
	}
	writeJSON(w, http.StatusOK, postResponse{Post: updated})
}

// DeletePost handles DELETE /api/posts/{id}.
func (a *API) DeletePost(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	if err := a.Store.DeletePost(r.Context(), id); err != nil {
		respondWithError(w, r, apperrors.FromStore(r.Context(), err, "post"))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// postFromRequest decodes and cleans a post body. On failure the error has
// already been written.
func (a *API) postFromRequest(w http.ResponseWriter, r *http.Request) (core.Post, bool) {
	var req postRequest
	if err := a.decodeJSON(w, r, &req); err != nil {
		respondWithError(w, r, err)
		return core.Post{}, false
	}

	post := core.Post{
		Title:      sanitize.PlainText(req.Title),
		Content:    sanitize.PostContent(req.Content),
		Excerpt:    sanitize.PlainText(req.Excerpt),
		CategoryID: req.CategoryID,
	}
	if post.Title == "" {
		respondWithError(w, r, apperrors.NewValidationError("title is required"))
		return core.Post{}, false
	}
	if post.Content == "" {
		respondWithError(w, r, apperrors.NewValidationError("content is required"))
		return core.Post{}, false
	}
	status, err := core.ParsePostStatus(req.Status)
	if err != nil {
		respondWithError(w, r, apperrors.WrapValidationError(r.Context(), err, "status must be draft or published"))
		return core.Post{}, false
	}
	post.Status = status

	slug, err := resolveSlug(req.Slug, post.Title, "post")
	if err != nil {
		respondWithError(w, r, err)
		return core.Post{}, false
	}
	post.Slug = slug

	image, err := cleanImageRef(req.FeaturedImage)
	if err != nil {
		respondWithError(w, r, err)
		return core.Post{}, false
	}
	post.FeaturedImage = image

	if post.CategoryID != nil {
		if _, err := a.Store.GetCategory(r.Context(), *post.CategoryID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				respondWithError(w, r, apperrors.NewValidationError("category does not exist"))
			} else {
				respondWithError(w, r, apperrors.FromStore(r.Context(), err, "category"))
			}
			return core.Post{}, false
		}
	}
	return post, true
}

func postStoreError(r *http.Request, err error) error {
	if errors.Is(err, store.ErrConflict) {
		return apperrors.NewConflictError("a post with this slug already exists")
	}
	return apperrors.FromStore(r.Context(), err, "post")
}

// resolveSlug validates an explicit slug or derives one from title. Titles
// with no ASCII letters get a random suffix.
func resolveSlug(explicit, title, kind string) (string, error) {
	if explicit = strings.TrimSpace(explicit); explicit != "" {
		if !core.ValidSlug(explicit) {
			return "", apperrors.NewValidationError("slug may only contain lowercase letters, digits and dashes")
		}
		return explicit, nil
	}
	if slug := core.Slugify(title); slug != "" {
		return slug, nil
	}
	return kind + "-" + strings.SplitN(uuid.NewString(), "-", 2)[0], nil
}

// cleanImageRef accepts an uploaded image path or an absolute http(s) URL.
func cleanImageRef(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", nil
	}
	if strings.HasPrefix(raw, uploadsPrefix) && !strings.Contains(raw, "..") {
		return raw, nil
	}
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", apperrors.NewValidationError("featured image must be an uploaded image or an http(s) URL")
	}
	return u.String(), nil
}

type contactMessagesResponse struct {
	Messages []core.ContactMessage `json:"messages"`
}

// ListContactMessages handles GET /api/admin/contact.
func (a *API) ListContactMessages(w http.ResponseWriter, r *http.Request) {
	messages, err := a.Store.ListContactMessages(r.Context(), defaultContactLimit)
	if err != nil {
		respondWithError(w, r, apperrors.FromStore(r.Context(), err, "contact messages"))
		return
	}
	if messages == nil {
		messages = []core.ContactMessage{}
	}
	writeJSON(w, http.StatusOK, contactMessagesResponse{Messages: messages})
}
