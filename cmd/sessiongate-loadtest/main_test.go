package main

import (
	"errors"
	"testing"
	"time"
)

func TestPercentile(t *testing.T) {
	samples := []time.Duration{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	cases := map[int]time.Duration{0: 1, 50: 5, 95: 9, 100: 10}
	for p, want := range cases {
		if got := percentile(samples, p); got != want {
			t.Fatalf("p%d: got %d want %d", p, got, want)
		}
	}
	if percentile(nil, 50) != 0 {
		t.Fatal("empty samples must yield 0")
	}
}

func TestRunPhaseCountsFailures(t *testing.T) {
	states := make([]sessionState, 4)
	var n int
	stats := runPhase(states, 100, 1, 1, func(*sessionState) error {
		n++
		if n%4 == 0 {
			return errors.New("boom")
		}
		return nil
	})
	if stats.ops != 100 || stats.failures != 25 {
		t.Fatalf("ops=%d failures=%d", stats.ops, stats.failures)
	}
}
