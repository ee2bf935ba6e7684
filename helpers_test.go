package sessiongate

import (
	"context"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"golang.org/x/crypto/bcrypt"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

var testEpoch = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: testEpoch}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestRedis(t testing.TB) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = rdb.Close()
		mr.Close()
	})
	return mr, rdb
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Session.Secret = append([]byte(nil), testSecret...)
	cfg.Password.Cost = bcrypt.MinCost
	return cfg
}

type engineFixture struct {
	engine *Engine
	clock  *testClock
	mr     *miniredis.Miniredis
	rdb    *redis.Client
	users  *mockUserProvider
	logs   *test.Hook
}

type fixtureOption func(*Builder, *engineFixture)

func withRedis() fixtureOption {
	return func(b *Builder, f *engineFixture) {
		b.WithRedis(f.rdb)
	}
}

func withConfig(mutate func(*Config)) fixtureOption {
	return func(b *Builder, _ *engineFixture) {
		cfg := testConfig()
		mutate(&cfg)
		b.WithConfig(cfg)
	}
}

func withSink(sink AuditSink) fixtureOption {
	return func(b *Builder, _ *engineFixture) {
		b.WithAuditSink(sink)
	}
}

func newEngineFixture(t testing.TB, opts ...fixtureOption) *engineFixture {
	t.Helper()

	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)

	f := &engineFixture{
		clock: newTestClock(),
		users: newMockUserProvider(),
		logs:  hook,
	}
	f.mr, f.rdb = newTestRedis(t)

	b := New().
		WithConfig(testConfig()).
		WithUserProvider(f.users).
		WithLogger(logger).
		WithClock(f.clock.Now)
	for _, opt := range opts {
		opt(b, f)
	}

	engine, err := b.Build()
	if err != nil {
		t.Fatalf("build engine: %v", err)
	}
	t.Cleanup(engine.Close)
	f.engine = engine
	return f
}

type mockUserProvider struct {
	mu        sync.Mutex
	users     map[string]UserRecord
	byEmail   map[string]string
	nextID    int
	getErr    error
	createErr error
	updates   map[string]string
}

func newMockUserProvider() *mockUserProvider {
	return &mockUserProvider{
		users:   map[string]UserRecord{},
		byEmail: map[string]string{},
		updates: map[string]string{},
	}
}

func (m *mockUserProvider) add(t *testing.T, name, email, plaintext string, cost int) UserRecord {
	t.Helper()
	var hash string
	if plaintext != "" {
		b, err := bcrypt.GenerateFromPassword([]byte(plaintext), cost)
		if err != nil {
			t.Fatalf("hash: %v", err)
		}
		hash = string(b)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	rec := UserRecord{
		UserID:       "u" + strconv.Itoa(m.nextID),
		Name:         name,
		Email:        email,
		PasswordHash: hash,
	}
	m.users[rec.UserID] = rec
	m.byEmail[email] = rec.UserID
	return rec
}

func (m *mockUserProvider) GetUserByEmail(_ context.Context, email string) (UserRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return UserRecord{}, m.getErr
	}
	id, ok := m.byEmail[email]
	if !ok {
		return UserRecord{}, ErrUserNotFound
	}
	return m.users[id], nil
}

func (m *mockUserProvider) GetUserByID(_ context.Context, userID string) (UserRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.users[userID]
	if !ok {
		return UserRecord{}, ErrUserNotFound
	}
	return rec, nil
}

func (m *mockUserProvider) CreateUser(_ context.Context, in CreateUserInput) (UserRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return UserRecord{}, m.createErr
	}
	if _, ok := m.byEmail[in.Email]; ok {
		return UserRecord{}, ErrAccountExists
	}
	m.nextID++
	rec := UserRecord{
		UserID:       "u" + strconv.Itoa(m.nextID),
		Name:         in.Name,
		Email:        in.Email,
		PasswordHash: in.PasswordHash,
	}
	m.users[rec.UserID] = rec
	m.byEmail[in.Email] = rec.UserID
	return rec, nil
}

func (m *mockUserProvider) UpdatePasswordHash(_ context.Context, userID, newHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.users[userID]
	if !ok {
		return ErrUserNotFound
	}
	rec.PasswordHash = newHash
	m.users[userID] = rec
	m.updates[userID] = newHash
	return nil
}
