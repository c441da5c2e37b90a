package handlers

import (
	"context"
	"errors"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/kundliinsight/kundli/internal/core"
	"github.com/kundliinsight/kundli/internal/core/store"
)

// memStore is an in-memory ContentStore for handler tests.
type memStore struct {
	mu        sync.Mutex
	now       time.Time
	users     map[string]*core.User
	passwords map[string]string
	sessions  map[string]*core.Session
	cats      map[int64]*core.Category
	posts     map[int64]*core.Post
	contacts  []core.ContactMessage
	settings  core.SiteSettings
	nextID    int64
	failWith  error
}

var _ ContentStore = (*memStore)(nil)

func newMemStore() *memStore {
	return &memStore{
		now:       time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
		users:     map[string]*core.User{},
		passwords: map[string]string{},
		sessions:  map[string]*core.Session{},
		cats:      map[int64]*core.Category{},
		posts:     map[int64]*core.Post{},
	}
}

func (m *memStore) id() int64 {
	m.nextID++
	return m.nextID
}

func (m *memStore) CountAdmins(ctx context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return 0, m.failWith
	}
	n := 0
	for _, u := range m.users {
		if u.IsAdmin {
			n++
		}
	}
	return n, nil
}

func (m *memStore) CreateUser(ctx context.Context, username, password string, isAdmin bool) (*core.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Username == username {
			return nil, store.ErrConflict
		}
	}
	u := &core.User{ID: "u" + strconv.FormatInt(m.id(), 10), Username: username, IsAdmin: isAdmin, CreatedAt: m.now}
	m.users[u.ID] = u
	m.passwords[u.ID] = password
	return u, nil
}

func (m *memStore) GetUser(ctx context.Context, id string) (*core.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *memStore) Authenticate(ctx context.Context, username, password string) (*core.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, u := range m.users {
		if u.Username == username && m.passwords[id] == password {
			cp := *u
			return &cp, nil
		}
	}
	return nil, store.ErrInvalidCredentials
}

func (m *memStore) CreateSession(ctx context.Context, userID string, ttl time.Duration) (*core.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := &core.Session{ID: "s" + strconv.FormatInt(m.id(), 10), UserID: userID, CreatedAt: m.now, ExpiresAt: m.now.Add(ttl)}
	m.sessions[s.ID] = s
	return s, nil
}

func (m *memStore) GetSession(ctx context.Context, id string) (*core.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok || s.Expired(m.now) {
		return nil, store.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *memStore) DeleteSession(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[id]; !ok {
		return store.ErrNotFound
	}
	delete(m.sessions, id)
	return nil
}

func (m *memStore) ListCategories(ctx context.Context) ([]core.Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return nil, m.failWith
	}
	var out []core.Category
	for _, c := range m.cats {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *memStore) GetCategory(ctx context.Context, id int64) (*core.Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.cats[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *memStore) CreateCategory(ctx context.Context, category core.Category) (*core.Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.cats {
		if c.Slug == category.Slug {
			return nil, store.ErrConflict
		}
	}
	category.ID = m.id()
	category.CreatedAt = m.now
	m.cats[category.ID] = &category
	cp := category
	return &cp, nil
}

func (m *memStore) DeleteCategory(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.cats[id]; !ok {
		return store.ErrNotFound
	}
	delete(m.cats, id)
	for _, p := range m.posts {
		if p.CategoryID != nil && *p.CategoryID == id {
			p.CategoryID = nil
		}
	}
	return nil
}

func (m *memStore) ListPosts(ctx context.Context, query core.PostQuery) ([]core.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []core.Post
	for _, p := range m.posts {
		if query.PublishedOnly && !p.Published() {
			continue
		}
		if query.CategoryID != nil && (p.CategoryID == nil || *p.CategoryID != *query.CategoryID) {
			continue
		}
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	if query.Limit > 0 && len(out) > query.Limit {
		out = out[:query.Limit]
	}
	return out, nil
}

func (m *memStore) GetPost(ctx context.Context, id int64) (*core.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.posts[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *memStore) GetPostBySlug(ctx context.Context, slug string) (*core.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.posts {
		if p.Slug == slug {
			cp := *p
			return &cp, nil
		}
	}
	return nil, store.ErrNotFound
}

func (m *memStore) slugTaken(slug string, except int64) bool {
	for _, p := range m.posts {
		if p.Slug == slug && p.ID != except {
			return true
		}
	}
	return false
}

func (m *memStore) CreatePost(ctx context.Context, post core.Post) (*core.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if post.AuthorID == "" {
		return nil, errors.New("post author is required")
	}
	if m.slugTaken(post.Slug, 0) {
		return nil, store.ErrConflict
	}
	post.ID = m.id()
	post.CreatedAt = m.now
	post.UpdatedAt = m.now
	if post.Published() {
		now := m.now
		post.PublishedAt = &now
	}
	m.posts[post.ID] = &post
	cp := post
	return &cp, nil
}

func (m *memStore) UpdatePost(ctx context.Context, post core.Post) (*core.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.posts[post.ID]
	if !ok {
		return nil, store.ErrNotFound
	}
	if m.slugTaken(post.Slug, post.ID) {
		return nil, store.ErrConflict
	}
	post.AuthorID = existing.AuthorID
	post.CreatedAt = existing.CreatedAt
	post.UpdatedAt = m.now
	post.PublishedAt = existing.PublishedAt
	m.posts[post.ID] = &post
	cp := post
	return &cp, nil
}

func (m *memStore) DeletePost(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.posts[id]; !ok {
		return store.ErrNotFound
	}
	delete(m.posts, id)
	return nil
}

func (m *memStore) CreateContactMessage(ctx context.Context, msg core.ContactMessage) (*core.ContactMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return nil, m.failWith
	}
	msg.ID = "c" + strconv.FormatInt(m.id(), 10)
	msg.CreatedAt = m.now
	m.contacts = append(m.contacts, msg)
	return &msg, nil
}

func (m *memStore) ListContactMessages(ctx context.Context, limit int) ([]core.ContactMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := append([]core.ContactMessage(nil), m.contacts...)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memStore) GetSiteSettings(ctx context.Context) (core.SiteSettings, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return core.SiteSettings{}, m.failWith
	}
	return m.settings, nil
}

func (m *memStore) SaveSiteSettings(ctx context.Context, settings core.SiteSettings) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.settings = settings.Merge(m.settings)
	return nil
}
