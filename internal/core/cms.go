package core

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/samber/lo"
)

// User is an account that can sign in to the admin area.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	IsAdmin      bool      `json:"isAdmin"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Session is a signed-in admin browser.
type Session struct {
	ID        string
	UserID    string
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Expired reports whether the session is no longer valid at now.
func (s Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// Category groups blog posts.
type Category struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Slug        string    `json:"slug"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// PostStatus is the publication state of a post.
type PostStatus string

const (
	PostStatusDraft     PostStatus = "draft"
	PostStatusPublished PostStatus = "published"
)

// ParsePostStatus accepts draft or published; empty means draft.
func ParsePostStatus(raw string) (PostStatus, error) {
	switch PostStatus(strings.ToLower(strings.TrimSpace(raw))) {
	case "", PostStatusDraft:
		return PostStatusDraft, nil
	case PostStatusPublished:
		return PostStatusPublished, nil
	default:
		return "", fmt.Errorf("unsupported post status %q", raw)
	}
}

// Post is a blog article.
type Post struct {
	ID            int64      `json:"id"`
	Title         string     `json:"title"`
	Slug          string     `json:"slug"`
	Content       string     `json:"content"`
	Excerpt       string     `json:"excerpt,omitempty"`
	FeaturedImage string     `json:"featuredImage,omitempty"`
	Status        PostStatus `json:"status"`
	CategoryID    *int64     `json:"categoryId,omitempty"`
	AuthorID      string     `json:"authorId"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
	PublishedAt   *time.Time `json:"publishedAt,omitempty"`
}

// Published reports whether the post is visible to the public.
func (p Post) Published() bool {
	return p.Status == PostStatusPublished
}

// PostQuery filters ListPosts.
type PostQuery struct {
	PublishedOnly bool
	CategoryID    *int64
	Limit         int
}

// ContactMessage is a message left through the contact form.
type ContactMessage struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"createdAt"`
}

// SiteSettings is the public site metadata. Stored values override the
// configured defaults field by field.
type SiteSettings struct {
	Name        string   `json:"siteName"`
	Description string   `json:"siteDescription"`
	Keywords    []string `json:"siteKeywords"`
}

// Merge returns s with empty fields filled from fallback.
func (s SiteSettings) Merge(fallback SiteSettings) SiteSettings {
	if strings.TrimSpace(s.Name) == "" {
		s.Name = fallback.Name
	}
	if strings.TrimSpace(s.Description) == "" {
		s.Description = fallback.Description
	}
	if len(s.Keywords) == 0 {
		s.Keywords = fallback.Keywords
	}
	return s
}

// SplitKeywords turns "a, b,,a" into [a b].
func SplitKeywords(raw string) []string {
	parts := lo.Map(strings.Split(raw, ","), func(part string, _ int) string {
		return strings.TrimSpace(part)
	})
	return lo.Uniq(lo.Compact(parts))
}

var (
	slugInvalid = regexp.MustCompile(`[^a-z0-9\s-]`)
	slugSpaces  = regexp.MustCompile(`\s+`)
	slugDashes  = regexp.MustCompile(`-+`)
)

// Slugify lowercases title and keeps ASCII letters, digits and dashes.
// Titles written entirely in Devanagari produce an empty slug.
func Slugify(title string) string {
	slug := strings.ToLower(strings.TrimSpace(title))
	slug = slugInvalid.ReplaceAllString(slug, "")
	slug = slugSpaces.ReplaceAllString(slug, "-")
	slug = slugDashes.ReplaceAllString(slug, "-")
	return strings.Trim(slug, "-")
}

// ValidSlug reports whether slug is already in Slugify form.
func ValidSlug(slug string) bool {
	return slug != "" && Slugify(slug) == slug
}

// Username and password bounds for admin accounts.
const (
	MinUsernameLength = 3
	MinPasswordLength = 6
	// bcrypt ignores input past 72 bytes.
	MaxPasswordLength = 72
)

// ValidateCredentials checks admin account input before hashing.
func ValidateCredentials(username, password string) error {
	var errs []error
	if len(strings.TrimSpace(username)) < MinUsernameLength {
		errs = append(errs, fmt.Errorf("username must be at least %d characters", MinUsernameLength))
	}
	if len(password) < MinPasswordLength {
		errs = append(errs, fmt.Errorf("password must be at least %d characters", MinPasswordLength))
	}
	if len(password) > MaxPasswordLength {
		errs = append(errs, fmt.Errorf("password must be at most %d bytes", MaxPasswordLength))
	}
	return errors.Join(errs...)
}
