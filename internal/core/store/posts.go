package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/kundliinsight/kundli/internal/core"
)

const postColumns = `id, title, slug, content, excerpt, featured_image, status, category_id,
	author_id, created_at, updated_at, published_at`

// ListPosts returns posts newest first.
func (s *Store) ListPosts(ctx context.Context, query core.PostQuery) ([]core.Post, error) {
	ctx, err := s.ready(ctx)
	if err != nil {
		return nil, err
	}

	var (
		where []string
		args  []any
	)
	if query.PublishedOnly {
		where = append(where, "status = ?")
		args = append(args, string(core.PostStatusPublished))
	}
	if query.CategoryID != nil {
		where = append(where, "category_id = ?")
		args = append(args, *query.CategoryID)
	}

	stmt := `SELECT ` + postColumns + ` FROM posts`
	if len(where) > 0 {
		stmt += ` WHERE ` + strings.Join(where, " AND ")
	}
	stmt += ` ORDER BY COALESCE(published_at, created_at) DESC, id DESC`
	if query.Limit > 0 {
		stmt += ` LIMIT ?`
		args = append(args, query.Limit)
	}

	rows, err := s.DB.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	defer rows.Close() // nolint:errcheck // best-effort cleanup on SQL rows

	posts := []core.Post{}
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		posts = append(posts, *post)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	return posts, nil
}

// GetPost returns the post with id regardless of status.
func (s *Store) GetPost(ctx context.Context, id int64) (*core.Post, error) {
	ctx, err := s.ready(ctx)
	if err != nil {
		return nil, err
	}
	return s.getPost(ctx, `SELECT `+postColumns+` FROM posts WHERE id = ?`, id)
}

// GetPostBySlug returns the post with slug regardless of status.
func (s *Store) GetPostBySlug(ctx context.Context, slug string) (*core.Post, error) {
	ctx, err := s.ready(ctx)
	if err != nil {
		return nil, err
	}
	return s.getPost(ctx, `SELECT `+postColumns+` FROM posts WHERE slug = ?`, strings.TrimSpace(slug))
}

func (s *Store) getPost(ctx context.Context, stmt string, arg any) (*core.Post, error) {
	post, err := scanPost(s.DB.QueryRowContext(ctx, stmt, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return post, err
}

// CreatePost inserts post. ID and timestamps are assigned here.
func (s *Store) CreatePost(ctx context.Context, post core.Post) (*core.Post, error) {
	ctx, err := s.ready(ctx)
	if err != nil {
		return nil, err
	}
	if err := validatePost(&post); err != nil {
		return nil, err
	}

	now := s.now()
	post.CreatedAt = now
	post.UpdatedAt = now
	post.PublishedAt = nil
	if post.Published() {
		post.PublishedAt = &now
	}

	err = s.DB.QueryRowContext(ctx, `
		INSERT INTO posts (title, slug, content, excerpt, featured_image, status, category_id,
			author_id, created_at, updated_at, published_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id
	`, post.Title, post.Slug, post.Content, nullString(post.Excerpt), nullString(post.FeaturedImage),
		string(post.Status), nullInt64(post.CategoryID), post.AuthorID,
		now.Unix(), now.Unix(), unixOrNull(post.PublishedAt)).Scan(&post.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("post %s: %w", post.Slug, ErrConflict)
		}
		return nil, fmt.Errorf("store post: %w", err)
	}
	return &post, nil
}

// UpdatePost replaces the editable fields of the post with post.ID.
// PublishedAt is set the first time the post becomes published.
func (s *Store) UpdatePost(ctx context.Context, post core.Post) (*core.Post, error) {
	ctx, err := s.ready(ctx)
	if err != nil {
		return nil, err
	}
	if err := validatePost(&post); err != nil {
		return nil, err
	}

	existing, err := s.GetPost(ctx, post.ID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	post.AuthorID = existing.AuthorID
	post.CreatedAt = existing.CreatedAt
	post.UpdatedAt = now
	post.PublishedAt = existing.PublishedAt
	if post.Published() && post.PublishedAt == nil {
		post.PublishedAt = &now
	}

	res, err := s.DB.ExecContext(ctx, `
		UPDATE posts SET
			title = ?, slug = ?, content = ?, excerpt = ?, featured_image = ?,
			status = ?, category_id = ?, updated_at = ?, published_at = ?
		WHERE id = ?
	`, post.Title, post.Slug, post.Content, nullString(post.Excerpt), nullString(post.FeaturedImage),
		string(post.Status), nullInt64(post.CategoryID), now.Unix(), unixOrNull(post.PublishedAt), post.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("post %s: %w", post.Slug, ErrConflict)
		}
		return nil, fmt.Errorf("update post: %w", err)
	}
	if err := expectAffected(res, "post"); err != nil {
		return nil, err
	}
	return &post, nil
}

// DeletePost removes the post with id.
func (s *Store) DeletePost(ctx context.Context, id int64) error {
	ctx, err := s.ready(ctx)
	if err != nil {
		return err
	}
	res, err := s.DB.ExecContext(ctx, `DELETE FROM posts WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete post: %w", err)
	}
	return expectAffected(res, "post")
}

func validatePost(post *core.Post) error {
	post.Title = strings.TrimSpace(post.Title)
	post.Slug = strings.TrimSpace(post.Slug)
	post.Excerpt = strings.TrimSpace(post.Excerpt)
	post.FeaturedImage = strings.TrimSpace(post.FeaturedImage)
	switch {
	case post.Title == "":
		return errors.New("post title is required")
	case post.Slug == "":
		return errors.New("post slug is required")
	case strings.TrimSpace(post.Content) == "":
		return errors.New("post content is required")
	case strings.TrimSpace(post.AuthorID) == "" && post.ID == 0:
		return errors.New("post author is required")
	}
	status, err := core.ParsePostStatus(string(post.Status))
	if err != nil {
		return err
	}
	post.Status = status
	return nil
}

func scanPost(row rowScanner) (*core.Post, error) {
	var (
		post          core.Post
		excerpt       sql.NullString
		featuredImage sql.NullString
		status        string
		categoryID    sql.NullInt64
		createdAt     int64
		updatedAt     int64
		publishedAt   sql.NullInt64
	)
	if err := row.Scan(&post.ID, &post.Title, &post.Slug, &post.Content, &excerpt, &featuredImage,
		&status, &categoryID, &post.AuthorID, &createdAt, &updatedAt, &publishedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan post: %w", err)
	}
	post.Excerpt = excerpt.String
	post.FeaturedImage = featuredImage.String
	post.Status = core.PostStatus(status)
	if categoryID.Valid {
		id := categoryID.Int64
		post.CategoryID = &id
	}
	post.CreatedAt = fromUnix(createdAt)
	post.UpdatedAt = fromUnix(updatedAt)
	if publishedAt.Valid {
		at := fromUnix(publishedAt.Int64)
		post.PublishedAt = &at
	}
	return &post, nil
}

func nullInt64(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}
