package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/MrEthical07/sessiongate"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

type apiFixture struct {
	handler http.Handler
	engine  *sessiongate.Engine
	users   *memUsers
	posts   *memPosts
	mr      *miniredis.Miniredis
}

func newAPIFixture(t *testing.T, checks ...Check) *apiFixture {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	cfg := sessiongate.DefaultConfig()
	cfg.Password.Cost = bcrypt.MinCost
	cfg.Security.MaxLoginAttempts = 3

	logger, _ := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)

	users := newMemUsers()
	engine, err := sessiongate.New().
		WithConfig(cfg).
		WithSecret(testSecret).
		WithRedis(rdb).
		WithUserProvider(users).
		WithLogger(logger).
		WithClock(func() time.Time { return fakeNow }).
		Build()
	require.NoError(t, err)
	t.Cleanup(engine.Close)

	posts := &memPosts{users: users}
	srv := New(Deps{
		Engine:  engine,
		Users:   users,
		Posts:   posts,
		Checks:  checks,
		Logger:  logger,
		Metrics: http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { _, _ = w.Write([]byte("ok")) }),
	})

	return &apiFixture{handler: srv.Handler(), engine: engine, users: users, posts: posts, mr: mr}
}

func (f *apiFixture) do(t *testing.T, method, path string, body any, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.RemoteAddr = "203.0.113.7:5000"
	for _, c := range cookies {
		req.AddCookie(c)
	}

	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func (f *apiFixture) register(t *testing.T, name, email string) *http.Cookie {
	t.Helper()
	rec := f.do(t, http.MethodPost, "/api/register", map[string]string{
		"name": name, "email": email, "password": "correct-horse",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return sessionCookie(t, rec)
}

func sessionCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == "session" {
			return c
		}
	}
	t.Fatal("no session cookie set")
	return nil
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestRegisterIssuesSession(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, http.MethodPost, "/api/register", map[string]string{
		"name": "Ada", "email": "Ada@Example.com", "password": "correct-horse",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	c := sessionCookie(t, rec)
	assert.True(t, c.HttpOnly)
	assert.Equal(t, http.SameSiteStrictMode, c.SameSite)

	body := decodeBody(t, rec)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "ada@example.com", body["user"].(map[string]any)["email"])
}

func TestRegisterRejectsBadInput(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, http.MethodPost, "/api/register", map[string]string{"name": "Ada", "email": "nope", "password": "x"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decodeBody(t, rec)["error"], "email")

	rec = f.do(t, http.MethodPost, "/api/register", map[string]string{"name": "Ada", "email": "a@example.com", "password": "short"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	f.register(t, "Ada", "ada@example.com")
	rec = f.do(t, http.MethodPost, "/api/register", map[string]string{"name": "Ada", "email": "ada@example.com", "password": "correct-horse"})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestLogin(t *testing.T) {
	f := newAPIFixture(t)
	f.register(t, "Ada", "ada@example.com")

	rec := f.do(t, http.MethodPost, "/api/login", map[string]string{"email": "ada@example.com", "password": "correct-horse"})
	require.Equal(t, http.StatusOK, rec.Code)
	sessionCookie(t, rec)

	for _, body := range []map[string]string{
		{"email": "ada@example.com", "password": "wrong-horse"},
		{"email": "nobody@example.com", "password": "correct-horse"},
	} {
		rec = f.do(t, http.MethodPost, "/api/login", body)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "Invalid credentials", decodeBody(t, rec)["error"])
	}

	rec = f.do(t, http.MethodPost, "/api/login", map[string]string{"email": "", "password": ""})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLoginThrottled(t *testing.T) {
	f := newAPIFixture(t)
	f.register(t, "Ada", "ada@example.com")

	bad := map[string]string{"email": "ada@example.com", "password": "wrong-horse"}
	for i := 0; i < 3; i++ {
		f.do(t, http.MethodPost, "/api/login", bad)
	}

	rec := f.do(t, http.MethodPost, "/api/login", map[string]string{"email": "ada@example.com", "password": "correct-horse"})
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestSessionEndpoint(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, http.MethodGet, "/api/session", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Nil(t, decodeBody(t, rec)["session"])

	c := f.register(t, "Ada", "ada@example.com")
	rec = f.do(t, http.MethodGet, "/api/session", nil, c)
	sess := decodeBody(t, rec)["session"].(map[string]any)
	assert.Equal(t, "Ada", sess["username"])
	assert.Equal(t, "u1", sess["userId"])
}

func TestLogoutClearsCookie(t *testing.T) {
	f := newAPIFixture(t)
	c := f.register(t, "Ada", "ada@example.com")

	rec := f.do(t, http.MethodPost, "/api/logout", nil, c)
	require.Equal(t, http.StatusOK, rec.Code)
	cleared := sessionCookie(t, rec)
	assert.Equal(t, "", cleared.Value)
	assert.Less(t, cleared.MaxAge, 0)
}

func TestProfile(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, http.MethodGet, "/api/profile", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	c := f.register(t, "Ada", "ada@example.com")
	f.do(t, http.MethodPost, "/api/posts", map[string]string{"title": "First", "description": "d", "content": "c"}, c)

	rec = f.do(t, http.MethodGet, "/api/profile", nil, c)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "Ada", body["user"].(map[string]any)["name"])
	assert.NotContains(t, body["user"], "password")
	assert.Len(t, body["posts"], 1)
	sessions := body["sessions"].([]any)
	require.Len(t, sessions, 1)
	assert.Equal(t, true, sessions[0].(map[string]any)["current"])

	delete(f.users.byID, "u1")
	rec = f.do(t, http.MethodGet, "/api/profile", nil, c)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPostLifecycle(t *testing.T) {
	f := newAPIFixture(t)
	ada := f.register(t, "Ada", "ada@example.com")
	bob := f.register(t, "Bob", "bob@example.com")

	rec := f.do(t, http.MethodPost, "/api/posts", map[string]string{"title": "Hi", "description": "d", "content": "c"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = f.do(t, http.MethodPost, "/api/posts", map[string]string{"title": "Hi"}, ada)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Title, description, and content are required", decodeBody(t, rec)["error"])

	rec = f.do(t, http.MethodPost, "/api/posts", map[string]string{"title": "Hello, World!", "description": "d", "content": "c"}, ada)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "hello-world", decodeBody(t, rec)["post"].(map[string]any)["slug"])

	rec = f.do(t, http.MethodGet, "/api/posts/hello-world", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Ada", decodeBody(t, rec)["post"].(map[string]any)["author"].(map[string]any)["name"])

	rec = f.do(t, http.MethodPut, "/api/posts/hello-world", map[string]string{"title": "Edited", "description": "d", "content": "c"}, bob)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Post not found or you don't have permission to edit it", decodeBody(t, rec)["error"])

	rec = f.do(t, http.MethodPut, "/api/posts/hello-world", map[string]string{"title": "Edited", "description": "d", "content": "c"}, ada)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "edited", decodeBody(t, rec)["post"].(map[string]any)["slug"])

	rec = f.do(t, http.MethodDelete, "/api/posts/edited", nil, bob)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.do(t, http.MethodDelete, "/api/posts/edited", nil, ada)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/posts/edited", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListAndSearch(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, http.MethodGet, "/api/posts", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []any{}, decodeBody(t, rec)["posts"])

	c := f.register(t, "Ada", "ada@example.com")
	f.do(t, http.MethodPost, "/api/posts", map[string]string{"title": "Go generics", "description": "d", "content": "c"}, c)
	f.do(t, http.MethodPost, "/api/posts", map[string]string{"title": "Rust", "description": "d", "content": "c"}, c)

	rec = f.do(t, http.MethodGet, "/api/search?q=GENERICS", nil)
	assert.Len(t, decodeBody(t, rec)["posts"], 1)

	rec = f.do(t, http.MethodGet, "/api/search?q=+", nil)
	assert.Equal(t, []any{}, decodeBody(t, rec)["posts"])
}

func TestPagesBehindGuard(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, http.MethodGet, "/profile", nil)
	assert.Equal(t, http.StatusTemporaryRedirect, rec.Code)
	assert.Equal(t, "/auth", rec.Header().Get("Location"))

	for _, path := range []string{"/post/a%2Fb", "/post/edit/x", "/post/my-slug"} {
		rec = f.do(t, http.MethodGet, path, nil)
		assert.Equal(t, http.StatusTemporaryRedirect, rec.Code, path)
		assert.Equal(t, "/auth", rec.Header().Get("Location"), path)
	}

	rec = f.do(t, http.MethodGet, "/", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `data-page="home"`)
	assert.Empty(t, rec.Result().Cookies())

	c := f.register(t, "Ada", "ada@example.com")

	rec = f.do(t, http.MethodGet, "/post/my-slug", nil, c)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `data-slug="my-slug"`)
	assert.Contains(t, rec.Body.String(), `data-user="Ada"`)
	sessionCookie(t, rec)

	rec = f.do(t, http.MethodGet, "/post/create-post", nil, c)
	assert.Contains(t, rec.Body.String(), `data-page="create-post"`)

	rec = f.do(t, http.MethodGet, "/auth", nil, c)
	assert.Equal(t, http.StatusTemporaryRedirect, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))
}

func TestHealth(t *testing.T) {
	f := newAPIFixture(t,
		Check{Name: "db", Ping: func(context.Context) error { return nil }},
		Check{Name: "redis", Ping: func(context.Context) error { return errors.New("down") }},
	)

	rec := f.do(t, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	checks := decodeBody(t, rec)["checks"].(map[string]any)
	assert.Equal(t, "ok", checks["db"])
	assert.Equal(t, "down", checks["redis"])

	rec = f.do(t, http.MethodGet, "/metrics", nil)
	assert.Equal(t, "ok", rec.Body.String())
}
