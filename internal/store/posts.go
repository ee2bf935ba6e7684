package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
)

// Post is a row of the posts table.
type Post struct {
	ID          int64     `db:"id" json:"id"`
	Title       string    `db:"title" json:"title"`
	Description string    `db:"description" json:"description"`
	Slug        string    `db:"slug" json:"slug"`
	Content     string    `db:"content" json:"content"`
	AuthorID    string    `db:"author_id" json:"authorId"`
	CreatedAt   time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time `db:"updated_at" json:"updatedAt"`
}

// Author is the public part of a post's author.
type Author struct {
	ID    string `db:"id" json:"id"`
	Name  string `db:"name" json:"name"`
	Email string `db:"email" json:"email"`
}

// PostWithAuthor is a post joined with its author, as listed and shown to readers.
type PostWithAuthor struct {
	Post
	Author Author `db:"author" json:"author"`
}

// PostInput is the editable part of a post. The slug is derived from Title.
type PostInput struct {
	Title       string
	Description string
	Content     string
}

const (
	postColumns = `id, title, description, slug, content, author_id, created_at, updated_at`

	joinedColumns = `p.id, p.title, p.description, p.slug, p.content, p.author_id, p.created_at, p.updated_at,
		u.id AS "author.id", u.name AS "author.name", u.email AS "author.email"`

	joinedFrom = ` FROM posts p JOIN users u ON u.id = p.author_id`
)

// PostStore reads and writes posts.
type PostStore struct {
	db *sqlx.DB
}

// NewPostStore returns a PostStore on db.
func NewPostStore(db *sqlx.DB) *PostStore {
	return &PostStore{db: db}
}

// List returns every post with its author, oldest first.
func (s *PostStore) List(ctx context.Context) ([]PostWithAuthor, error) {
	out := []PostWithAuthor{}
	if err := s.db.SelectContext(ctx, &out, `SELECT `+joinedColumns+joinedFrom+` ORDER BY p.created_at`); err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	return out, nil
}

// GetBySlug returns one post with its author, or ErrNotFound.
func (s *PostStore) GetBySlug(ctx context.Context, slug string) (PostWithAuthor, error) {
	var p PostWithAuthor
	err := s.db.GetContext(ctx, &p, `SELECT `+joinedColumns+joinedFrom+` WHERE p.slug = $1 LIMIT 1`, slug)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return PostWithAuthor{}, ErrNotFound
		}
		return PostWithAuthor{}, fmt.Errorf("get post: %w", err)
	}
	return p, nil
}

// ListByAuthor returns the posts written by authorID, oldest first.
func (s *PostStore) ListByAuthor(ctx context.Context, authorID string) ([]Post, error) {
	out := []Post{}
	err := s.db.SelectContext(ctx, &out,
		`SELECT `+postColumns+` FROM posts WHERE author_id = $1 ORDER BY created_at`, authorID)
	if err != nil {
		return nil, fmt.Errorf("list author posts: %w", err)
	}
	return out, nil
}

// Create inserts a post for authorID.
func (s *PostStore) Create(ctx context.Context, authorID string, in PostInput) (Post, error) {
	slug := Slugify(in.Title)
	if slug == "" {
		return Post{}, ErrEmptySlug
	}

	var p Post
	err := s.db.GetContext(ctx, &p,
		`INSERT INTO posts (title, description, slug, content, author_id)
		 VALUES ($1, $2, $3, $4, $5) RETURNING `+postColumns,
		in.Title, in.Description, slug, in.Content, authorID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return Post{}, ErrSlugTaken
		}
		return Post{}, fmt.Errorf("insert post: %w", err)
	}
	return p, nil
}

// Update rewrites the post at slug if authorID wrote it. The slug follows the new title.
// A missing post and a post by someone else both return ErrNotFound.
func (s *PostStore) Update(ctx context.Context, slug, authorID string, in PostInput) (Post, error) {
	newSlug := Slugify(in.Title)
	if newSlug == "" {
		return Post{}, ErrEmptySlug
	}

	var p Post
	err := s.db.GetContext(ctx, &p,
		`UPDATE posts SET title = $1, description = $2, slug = $3, content = $4, updated_at = now()
		 WHERE slug = $5 AND author_id = $6 RETURNING `+postColumns,
		in.Title, in.Description, newSlug, in.Content, slug, authorID,
	)
	switch {
	case err == nil:
		return p, nil
	case errors.Is(err, sql.ErrNoRows):
		return Post{}, ErrNotFound
	case isUniqueViolation(err):
		return Post{}, ErrSlugTaken
	default:
		return Post{}, fmt.Errorf("update post: %w", err)
	}
}

// Delete removes the post at slug if authorID wrote it, else ErrNotFound.
func (s *PostStore) Delete(ctx context.Context, slug, authorID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM posts WHERE slug = $1 AND author_id = $2`, slug, authorID)
	if err != nil {
		return fmt.Errorf("delete post: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil || n == 0 {
		return ErrNotFound
	}
	return nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// Search matches q case-insensitively as a substring of title, description or content.
// A blank query returns no posts without touching the database.
func (s *PostStore) Search(ctx context.Context, q string) ([]PostWithAuthor, error) {
	q = strings.TrimSpace(q)
	out := []PostWithAuthor{}
	if q == "" {
		return out, nil
	}

	pattern := "%" + likeEscaper.Replace(q) + "%"
	err := s.db.SelectContext(ctx, &out,
		`SELECT `+joinedColumns+joinedFrom+`
		 WHERE p.title ILIKE $1 OR p.description ILIKE $1 OR p.content ILIKE $1
		 ORDER BY p.created_at`, pattern)
	if err != nil {
		return nil, fmt.Errorf("search posts: %w", err)
	}
	return out, nil
}
