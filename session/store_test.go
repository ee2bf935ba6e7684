package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newStoreTest(t *testing.T) (*Store, *miniredis.Miniredis, *redis.Client) {
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
	return NewStore(rdb, "sg"), mr, rdb
}

func testRecord(id, userID string) *Record {
	now := time.Now()
	return &Record{
		ID:            id,
		UserID:        userID,
		TokenHash:     HashValue("token-" + id),
		IPHash:        HashValue("203.0.113.7"),
		UserAgentHash: HashValue("curl/8"),
		CreatedAt:     now.Unix(),
		UpdatedAt:     now.Unix(),
		ExpiresAt:     now.Add(time.Hour).Unix(),
	}
}

func TestSaveGetRoundTrip(t *testing.T) {
	store, _, _ := newStoreTest(t)
	ctx := context.Background()
	rec := testRecord("s1", "u1")

	if err := store.Save(ctx, rec); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := store.Get(ctx, "s1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if *got != *rec {
		t.Fatalf("record mismatch:\n got %+v\nwant %+v", got, rec)
	}
}

func TestSaveSetsKeyTTLFromExpiry(t *testing.T) {
	store, mr, _ := newStoreTest(t)
	rec := testRecord("s1", "u1")

	if err := store.Save(context.Background(), rec); err != nil {
		t.Fatalf("save: %v", err)
	}
	ttl := mr.TTL(store.key("s1"))
	if ttl <= 0 || ttl > time.Hour {
		t.Fatalf("expected ttl within (0, 1h], got %v", ttl)
	}
}

func TestSaveRejectsExpiredAndIncomplete(t *testing.T) {
	store, _, _ := newStoreTest(t)
	ctx := context.Background()

	rec := testRecord("s1", "u1")
	rec.ExpiresAt = time.Now().Add(-time.Minute).Unix()
	if err := store.Save(ctx, rec); !errors.Is(err, ErrRecordExpired) {
		t.Fatalf("expected ErrRecordExpired, got %v", err)
	}
	if err := store.Save(ctx, &Record{ID: "s2"}); err == nil {
		t.Fatal("expected record without user id to be rejected")
	}
}

func TestGetMissingReturnsNotFound(t *testing.T) {
	store, _, _ := newStoreTest(t)
	if _, err := store.Get(context.Background(), "nope"); !errors.Is(err, ErrRecordNotFound) {
		t.Fatalf("expected ErrRecordNotFound, got %v", err)
	}
}

func TestTouchUpdatesHashAndExpiry(t *testing.T) {
	store, mr, _ := newStoreTest(t)
	ctx := context.Background()
	rec := testRecord("s1", "u1")
	rec.ExpiresAt = time.Now().Add(5 * time.Minute).Unix()
	if err := store.Save(ctx, rec); err != nil {
		t.Fatalf("save: %v", err)
	}

	nextHash := HashValue("token-renewed")
	nextExpiry := time.Now().Add(time.Hour).Unix()
	if err := store.Touch(ctx, "s1", nextHash, nextExpiry); err != nil {
		t.Fatalf("touch: %v", err)
	}

	got, err := store.Get(ctx, "s1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.TokenHash != nextHash || got.ExpiresAt != nextExpiry {
		t.Fatalf("touch not applied: %+v", got)
	}
	if got.CreatedAt != rec.CreatedAt {
		t.Fatalf("touch must not change CreatedAt")
	}
	if ttl := mr.TTL(store.key("s1")); ttl <= 5*time.Minute {
		t.Fatalf("expected ttl to be extended past 5m, got %v", ttl)
	}
}

func TestTouchMissingDoesNotResurrect(t *testing.T) {
	store, mr, _ := newStoreTest(t)
	ctx := context.Background()

	if err := store.Touch(ctx, "ghost", HashValue("x"), time.Now().Add(time.Hour).Unix()); !errors.Is(err, ErrRecordNotFound) {
		t.Fatalf("expected ErrRecordNotFound, got %v", err)
	}
	if mr.Exists(store.key("ghost")) {
		t.Fatal("touch created a record")
	}
}

func TestDeleteIdempotentAndClearsIndex(t *testing.T) {
	store, _, rdb := newStoreTest(t)
	ctx := context.Background()
	rec := testRecord("s1", "u1")
	if err := store.Save(ctx, rec); err != nil {
		t.Fatalf("save: %v", err)
	}

	if err := store.Delete(ctx, "s1"); err != nil {
		t.Fatalf("first delete: %v", err)
	}
	if err := store.Delete(ctx, "s1"); err != nil {
		t.Fatalf("second delete: %v", err)
	}

	members, err := rdb.SMembers(ctx, store.userKey("u1")).Result()
	if err != nil {
		t.Fatalf("smembers: %v", err)
	}
	if len(members) != 0 {
		t.Fatalf("expected empty user index, got %v", members)
	}
}

func TestListForUserPrunesExpired(t *testing.T) {
	store, mr, rdb := newStoreTest(t)
	ctx := context.Background()

	short := testRecord("s-short", "u1")
	short.ExpiresAt = time.Now().Add(time.Minute).Unix()
	long := testRecord("s-long", "u1")
	other := testRecord("s-other", "u2")
	for _, rec := range []*Record{short, long, other} {
		if err := store.Save(ctx, rec); err != nil {
			t.Fatalf("save %s: %v", rec.ID, err)
		}
	}

	mr.FastForward(2 * time.Minute)

	recs, err := store.ListForUser(ctx, "u1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(recs) != 1 || recs[0].ID != "s-long" {
		t.Fatalf("expected only s-long, got %+v", recs)
	}

	members, err := rdb.SMembers(ctx, store.userKey("u1")).Result()
	if err != nil {
		t.Fatalf("smembers: %v", err)
	}
	if len(members) != 1 || members[0] != "s-long" {
		t.Fatalf("expected stale index entry pruned, got %v", members)
	}
}

func TestListForUserEmpty(t *testing.T) {
	store, _, _ := newStoreTest(t)
	recs, err := store.ListForUser(context.Background(), "nobody")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(recs) != 0 {
		t.Fatalf("expected no records, got %d", len(recs))
	}
}

func TestStoreReportsRedisUnavailable(t *testing.T) {
	store, mr, _ := newStoreTest(t)
	mr.Close()

	ctx := context.Background()
	if err := store.Save(ctx, testRecord("s1", "u1")); !errors.Is(err, ErrRedisUnavailable) {
		t.Fatalf("expected ErrRedisUnavailable from Save, got %v", err)
	}
	if _, err := store.Get(ctx, "s1"); !errors.Is(err, ErrRedisUnavailable) {
		t.Fatalf("expected ErrRedisUnavailable from Get, got %v", err)
	}
	if _, err := store.Ping(ctx); !errors.Is(err, ErrRedisUnavailable) {
		t.Fatalf("expected ErrRedisUnavailable from Ping, got %v", err)
	}
}
