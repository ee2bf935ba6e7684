package httpapi

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/MrEthical07/sessiongate"
	"github.com/MrEthical07/sessiongate/internal/store"
)

var fakeNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// memUsers backs both the engine's UserProvider and the profile lookup.
type memUsers struct {
	mu     sync.Mutex
	byID   map[string]store.User
	nextID int
}

func newMemUsers() *memUsers {
	return &memUsers{byID: map[string]store.User{}}
}

func (m *memUsers) findEmail(email string) (store.User, bool) {
	for _, u := range m.byID {
		if u.Email == email {
			return u, true
		}
	}
	return store.User{}, false
}

func toRecord(u store.User) sessiongate.UserRecord {
	return sessiongate.UserRecord{UserID: u.ID, Name: u.Name, Email: u.Email, PasswordHash: u.Password.String}
}

func (m *memUsers) FindByID(_ context.Context, id string) (store.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return store.User{}, store.ErrNotFound
	}
	return u, nil
}

func (m *memUsers) GetUserByEmail(_ context.Context, email string) (sessiongate.UserRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.findEmail(email)
	if !ok {
		return sessiongate.UserRecord{}, sessiongate.ErrUserNotFound
	}
	return toRecord(u), nil
}

func (m *memUsers) GetUserByID(ctx context.Context, id string) (sessiongate.UserRecord, error) {
	u, err := m.FindByID(ctx, id)
	if err != nil {
		return sessiongate.UserRecord{}, sessiongate.ErrUserNotFound
	}
	return toRecord(u), nil
}

func (m *memUsers) CreateUser(_ context.Context, in sessiongate.CreateUserInput) (sessiongate.UserRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.findEmail(in.Email); ok {
		return sessiongate.UserRecord{}, store.ErrEmailTaken
	}
	m.nextID++
	u := store.User{
		ID:        fmt.Sprintf("u%d", m.nextID),
		Name:      in.Name,
		Email:     in.Email,
		Password:  sql.NullString{String: in.PasswordHash, Valid: true},
		CreatedAt: fakeNow,
		UpdatedAt: fakeNow,
	}
	m.byID[u.ID] = u
	return toRecord(u), nil
}

func (m *memUsers) UpdatePasswordHash(_ context.Context, id, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return sessiongate.ErrUserNotFound
	}
	u.Password = sql.NullString{String: hash, Valid: true}
	m.byID[id] = u
	return nil
}

type memPosts struct {
	mu     sync.Mutex
	users  *memUsers
	posts  []store.Post
	nextID int64
}

func (m *memPosts) withAuthor(p store.Post) store.PostWithAuthor {
	u := m.users.byID[p.AuthorID]
	return store.PostWithAuthor{Post: p, Author: store.Author{ID: u.ID, Name: u.Name, Email: u.Email}}
}

func (m *memPosts) List(context.Context) ([]store.PostWithAuthor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []store.PostWithAuthor
	for _, p := range m.posts {
		out = append(out, m.withAuthor(p))
	}
	return out, nil
}

func (m *memPosts) GetBySlug(_ context.Context, slug string) (store.PostWithAuthor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.posts {
		if p.Slug == slug {
			return m.withAuthor(p), nil
		}
	}
	return store.PostWithAuthor{}, store.ErrNotFound
}

func (m *memPosts) ListByAuthor(_ context.Context, authorID string) ([]store.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []store.Post
	for _, p := range m.posts {
		if p.AuthorID == authorID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *memPosts) slugTaken(slug string, except int) bool {
	for i, p := range m.posts {
		if i != except && p.Slug == slug {
			return true
		}
	}
	return false
}

func (m *memPosts) Create(_ context.Context, authorID string, in store.PostInput) (store.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	slug := store.Slugify(in.Title)
	if slug == "" {
		return store.Post{}, store.ErrEmptySlug
	}
	if m.slugTaken(slug, -1) {
		return store.Post{}, store.ErrSlugTaken
	}
	m.nextID++
	p := store.Post{
		ID: m.nextID, Title: in.Title, Description: in.Description, Slug: slug,
		Content: in.Content, AuthorID: authorID, CreatedAt: fakeNow, UpdatedAt: fakeNow,
	}
	m.posts = append(m.posts, p)
	return p, nil
}

func (m *memPosts) Update(_ context.Context, slug, authorID string, in store.PostInput) (store.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, p := range m.posts {
		if p.Slug != slug || p.AuthorID != authorID {
			continue
		}
		next := store.Slugify(in.Title)
		if next == "" {
			return store.Post{}, store.ErrEmptySlug
		}
		if m.slugTaken(next, i) {
			return store.Post{}, store.ErrSlugTaken
		}
		p.Title, p.Description, p.Content, p.Slug = in.Title, in.Description, in.Content, next
		m.posts[i] = p
		return p, nil
	}
	return store.Post{}, store.ErrNotFound
}

func (m *memPosts) Delete(_ context.Context, slug, authorID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, p := range m.posts {
		if p.Slug == slug && p.AuthorID == authorID {
			m.posts = append(m.posts[:i], m.posts[i+1:]...)
			return nil
		}
	}
	return store.ErrNotFound
}

func (m *memPosts) Search(_ context.Context, q string) ([]store.PostWithAuthor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	q = strings.ToLower(strings.TrimSpace(q))
	if q == "" {
		return nil, nil
	}
	var out []store.PostWithAuthor
	for _, p := range m.posts {
		hay := strings.ToLower(p.Title + " " + p.Description + " " + p.Content)
		if strings.Contains(hay, q) {
			out = append(out, m.withAuthor(p))
		}
	}
	return out, nil
}
