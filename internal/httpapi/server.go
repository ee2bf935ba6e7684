// Package httpapi serves the blog's JSON API, its page shells, health and metrics on top
// of a sessiongate Engine and the Postgres store.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"reflect"
	"strings"

	"github.com/MrEthical07/sessiongate"
	"github.com/MrEthical07/sessiongate/internal/store"
	"github.com/MrEthical07/sessiongate/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
)

const maxBodyBytes = 1 << 20

// Users is the account lookup the profile endpoint needs.
type Users interface {
	FindByID(ctx context.Context, id string) (store.User, error)
}

// Posts is the post repository behind the /api/posts and /api/search endpoints.
type Posts interface {
	List(ctx context.Context) ([]store.PostWithAuthor, error)
	GetBySlug(ctx context.Context, slug string) (store.PostWithAuthor, error)
	ListByAuthor(ctx context.Context, authorID string) ([]store.Post, error)
	Create(ctx context.Context, authorID string, in store.PostInput) (store.Post, error)
	Update(ctx context.Context, slug, authorID string, in store.PostInput) (store.Post, error)
	Delete(ctx context.Context, slug, authorID string) error
	Search(ctx context.Context, q string) ([]store.PostWithAuthor, error)
}

// Check is one named dependency probe for /healthz.
type Check struct {
	Name string
	Ping func(ctx context.Context) error
}

// Deps wires a Server. Engine, Users and Posts are required.
type Deps struct {
	Engine *sessiongate.Engine
	Users  Users
	Posts  Posts
	// Guard protects the page routes. Nil means a guard over the default policy.
	Guard *middleware.Guard
	// Metrics serves /metrics when set.
	Metrics http.Handler
	Checks  []Check
	Logger  logrus.FieldLogger
	// TrustProxy makes X-Forwarded-For the client address for throttling.
	TrustProxy bool
}

// Server holds the handlers.
type Server struct {
	engine     *sessiongate.Engine
	users      Users
	posts      Posts
	guard      *middleware.Guard
	metrics    http.Handler
	checks     []Check
	logger     logrus.FieldLogger
	validate   *validator.Validate
	trustProxy bool
}

// New returns a Server for d.
func New(d Deps) *Server {
	logger := d.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	guard := d.Guard
	if guard == nil {
		guard = middleware.NewGuard(d.Engine, nil, middleware.WithLogger(logger))
	}

	return &Server{
		engine:     d.Engine,
		users:      d.Users,
		posts:      d.Posts,
		guard:      guard,
		metrics:    d.Metrics,
		checks:     d.Checks,
		logger:     logger,
		validate:   newValidator(),
		trustProxy: d.TrustProxy,
	}
}

// Handler returns the full route table wrapped in request logging.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	required := middleware.RequireSession(s.engine)
	optional := middleware.OptionalSession(s.engine)

	// Auth
	mux.HandleFunc("POST /api/register", s.handleRegister)
	mux.HandleFunc("POST /api/login", s.handleLogin)
	mux.HandleFunc("POST /api/logout", s.handleLogout)
	mux.Handle("GET /api/session", optional(http.HandlerFunc(s.handleSession)))
	mux.Handle("GET /api/profile", required(http.HandlerFunc(s.handleProfile)))

	// Posts
	mux.HandleFunc("GET /api/posts", s.handleListPosts)
	mux.Handle("POST /api/posts", required(http.HandlerFunc(s.handleCreatePost)))
	mux.HandleFunc("GET /api/posts/{slug}", s.handleGetPost)
	mux.Handle("PUT /api/posts/{slug}", required(http.HandlerFunc(s.handleUpdatePost)))
	mux.Handle("DELETE /api/posts/{slug}", required(http.HandlerFunc(s.handleDeletePost)))
	mux.HandleFunc("GET /api/search", s.handleSearch)

	// Ops
	mux.HandleFunc("GET /healthz", s.handleHealth)
	if s.metrics != nil {
		mux.Handle("GET /metrics", s.metrics)
	}

	mux.Handle("/", s.guard.Middleware(s.pages()))

	return logRequests(s.logger, mux)
}

func (s *Server) requestContext(r *http.Request) context.Context {
	return sessiongate.WithRequestInfo(r.Context(), r, s.trustProxy)
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// decode reads a JSON body into dst and validates it. The returned message is safe to
// send to the client.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst any) (string, bool) {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		return "Invalid request body", false
	}
	if err := s.validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fe.Field())
			}
			return "Invalid fields: " + strings.Join(fields, ", "), false
		}
		return "Invalid request body", false
	}
	return "", true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
