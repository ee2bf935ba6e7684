package httpapi

import (
	"errors"
	"net/http"
	"time"

	"github.com/MrEthical07/sessiongate"
	"github.com/MrEthical07/sessiongate/jwt"
	"github.com/MrEthical07/sessiongate/middleware"
)

type registerRequest struct {
	Name     string `json:"name" validate:"required,max=255"`
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type userView struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

type sessionView struct {
	UserID    string    `json:"userId"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	IssuedAt  time.Time `json:"issuedAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

func newSessionView(c *jwt.Claims) *sessionView {
	if c == nil {
		return nil
	}
	return &sessionView{
		UserID:    c.UserID,
		Username:  c.Username,
		Email:     c.Email,
		IssuedAt:  c.IssuedAt,
		ExpiresAt: c.ExpiresAt,
	}
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if msg, ok := s.decode(w, r, &req); !ok {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	issued, user, err := s.engine.Register(s.requestContext(r), sessiongate.RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	})
	switch {
	case err == nil:
	case errors.Is(err, sessiongate.ErrInvalidInput), errors.Is(err, sessiongate.ErrPasswordPolicy):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, sessiongate.ErrAccountExists):
		writeError(w, http.StatusConflict, "Email already registered")
		return
	case errors.Is(err, sessiongate.ErrRegisterRateLimited):
		writeError(w, http.StatusTooManyRequests, "Too many registrations, try again later")
		return
	default:
		s.logger.WithError(err).Error("register failed")
		writeError(w, http.StatusInternalServerError, "Failed to register")
		return
	}

	http.SetCookie(w, issued.Cookie)
	writeJSON(w, http.StatusCreated, map[string]any{
		"success": true,
		"user":    userView{ID: user.UserID, Name: user.Name, Email: user.Email},
	})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if msg, ok := s.decode(w, r, &req); !ok {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	issued, err := s.engine.Login(s.requestContext(r), req.Email, req.Password)
	switch {
	case err == nil:
	case errors.Is(err, sessiongate.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	case errors.Is(err, sessiongate.ErrLoginRateLimited):
		writeError(w, http.StatusTooManyRequests, "Too many login attempts, try again later")
		return
	default:
		s.logger.WithError(err).Error("login failed")
		writeError(w, http.StatusInternalServerError, "Failed to log in")
		return
	}

	http.SetCookie(w, issued.Cookie)
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := s.engine.Logout(s.requestContext(r), r, w); err != nil {
		s.logger.WithError(err).Error("logout failed")
		writeError(w, http.StatusInternalServerError, "Failed to log out")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// handleSession answers {"session": null} rather than 401 for anonymous callers.
func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	claims, _ := middleware.ClaimsFromContext(r.Context())
	writeJSON(w, http.StatusOK, map[string]any{"session": newSessionView(claims)})
}
