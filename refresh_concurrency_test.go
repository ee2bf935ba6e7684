package sessiongate

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestRefreshConcurrentRenewalsAllSucceed(t *testing.T) {
	f := newEngineFixture(t, withConfig(func(c *Config) { c.Session.TrackRenewals = true }), withRedis())

	issued, err := f.engine.Issue(context.Background(), Identity{UserID: "u1", Username: "ada"})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	f.clock.Advance(2 * time.Minute)

	const n = 16
	var wg sync.WaitGroup
	wg.Add(n)

	results := make(chan *IssuedToken, n)
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			next, err := f.engine.Refresh(context.Background(), issued.Claims)
			if err != nil {
				errs <- err
				return
			}
			results <- next
		}()
	}
	wg.Wait()
	close(results)
	close(errs)

	for err := range errs {
		t.Fatalf("refresh failed: %v", err)
	}

	want := testEpoch.Add(2*time.Minute + f.engine.TTL())
	count := 0
	for next := range results {
		count++
		if next.Claims.SessionID != issued.Claims.SessionID {
			t.Fatalf("sid changed: %q", next.Claims.SessionID)
		}
		if !next.Claims.ExpiresAt.Equal(want) {
			t.Fatalf("exp=%v want %v", next.Claims.ExpiresAt, want)
		}
		if _, err := f.engine.VerifyToken(next.Token); err != nil {
			t.Fatalf("renewed token invalid: %v", err)
		}
	}
	if count != n {
		t.Fatalf("got %d renewals, want %d", count, n)
	}

	sessions, err := f.engine.ListSessions(context.Background(), "u1", issued.Claims.SessionID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(sessions) != 1 || !sessions[0].ExpiresAt.Equal(want) {
		t.Fatalf("record not extended: %+v", sessions)
	}
	if got := f.engine.MetricsSnapshot().Counters[MetricSessionRenewed]; got != n {
		t.Fatalf("renewed counter=%d want %d", got, n)
	}
}
