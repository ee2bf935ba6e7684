package httpapi

import (
	"errors"
	"net/http"
	"time"

	"github.com/MrEthical07/sessiongate/internal/store"
	"github.com/MrEthical07/sessiongate/middleware"
)

const msgPostFieldsRequired = "Title, description, and content are required"

type postRequest struct {
	Title       string `json:"title" validate:"required"`
	Description string `json:"description" validate:"required"`
	Content     string `json:"content" validate:"required"`
}

func (p postRequest) input() store.PostInput {
	return store.PostInput{Title: p.Title, Description: p.Description, Content: p.Content}
}

type sessionListItem struct {
	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt"`
	Current   bool      `json:"current"`
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	claims, _ := middleware.ClaimsFromContext(r.Context())
	ctx := r.Context()

	user, err := s.users.FindByID(ctx, claims.UserID)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "User not found")
		return
	}
	if err != nil {
		s.logger.WithError(err).Error("profile lookup failed")
		writeError(w, http.StatusInternalServerError, "Failed to fetch profile")
		return
	}

	posts, err := s.posts.ListByAuthor(ctx, claims.UserID)
	if err != nil {
		s.logger.WithError(err).Error("profile posts lookup failed")
		writeError(w, http.StatusInternalServerError, "Failed to fetch profile")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"user":     user,
		"posts":    nonNil(posts),
		"sessions": s.sessionList(r, claims.UserID, claims.SessionID),
	})
}

// sessionList is informational; a Redis failure yields an empty list.
func (s *Server) sessionList(r *http.Request, userID, sid string) []sessionListItem {
	infos, err := s.engine.ListSessions(r.Context(), userID, sid)
	if err != nil {
		s.logger.WithError(err).Warn("session list failed")
	}
	out := make([]sessionListItem, 0, len(infos))
	for _, info := range infos {
		out = append(out, sessionListItem{CreatedAt: info.CreatedAt, ExpiresAt: info.ExpiresAt, Current: info.Current})
	}
	return out
}

func (s *Server) handleListPosts(w http.ResponseWriter, r *http.Request) {
	posts, err := s.posts.List(r.Context())
	if err != nil {
		s.logger.WithError(err).Error("list posts failed")
		writeError(w, http.StatusInternalServerError, "Failed to fetch posts")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"posts": nonNil(posts)})
}

func (s *Server) handleCreatePost(w http.ResponseWriter, r *http.Request) {
	claims, _ := middleware.ClaimsFromContext(r.Context())

	var req postRequest
	if _, ok := s.decode(w, r, &req); !ok {
		writeError(w, http.StatusBadRequest, msgPostFieldsRequired)
		return
	}

	post, err := s.posts.Create(r.Context(), claims.UserID, req.input())
	switch {
	case err == nil:
		writeJSON(w, http.StatusCreated, map[string]any{"post": post})
	case errors.Is(err, store.ErrEmptySlug):
		writeError(w, http.StatusBadRequest, "Title must contain a letter or digit")
	case errors.Is(err, store.ErrSlugTaken):
		writeError(w, http.StatusConflict, "A post with this title already exists")
	default:
		s.logger.WithError(err).Error("create post failed")
		writeError(w, http.StatusInternalServerError, "Failed to create post")
	}
}

func (s *Server) handleGetPost(w http.ResponseWriter, r *http.Request) {
	post, err := s.posts.GetBySlug(r.Context(), r.PathValue("slug"))
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, map[string]any{"post": post})
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "Post not found")
	default:
		s.logger.WithError(err).Error("get post failed")
		writeError(w, http.StatusInternalServerError, "Failed to fetch post")
	}
}

func (s *Server) handleUpdatePost(w http.ResponseWriter, r *http.Request) {
	claims, _ := middleware.ClaimsFromContext(r.Context())

	var req postRequest
	if _, ok := s.decode(w, r, &req); !ok {
		writeError(w, http.StatusBadRequest, msgPostFieldsRequired)
		return
	}

	post, err := s.posts.Update(r.Context(), r.PathValue("slug"), claims.UserID, req.input())
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, map[string]any{"post": post})
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "Post not found or you don't have permission to edit it")
	case errors.Is(err, store.ErrEmptySlug):
		writeError(w, http.StatusBadRequest, "Title must contain a letter or digit")
	case errors.Is(err, store.ErrSlugTaken):
		writeError(w, http.StatusConflict, "A post with this title already exists")
	default:
		s.logger.WithError(err).Error("update post failed")
		writeError(w, http.StatusInternalServerError, "Failed to update post")
	}
}

func (s *Server) handleDeletePost(w http.ResponseWriter, r *http.Request) {
	claims, _ := middleware.ClaimsFromContext(r.Context())

	err := s.posts.Delete(r.Context(), r.PathValue("slug"), claims.UserID)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, map[string]string{"message": "Post deleted successfully"})
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "Post not found or you don't have permission to delete it")
	default:
		s.logger.WithError(err).Error("delete post failed")
		writeError(w, http.StatusInternalServerError, "Failed to delete post")
	}
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	posts, err := s.posts.Search(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		s.logger.WithError(err).Error("search failed")
		writeError(w, http.StatusInternalServerError, "Failed to search posts")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"posts": nonNil(posts)})
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
