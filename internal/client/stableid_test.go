package client

import (
	"context"
	"testing"
	"time"

	"nearcore/internal/store"
)

func newTestCache(t *testing.T) *StableIDCache {
	t.Helper()
	st, err := store.Open("")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return NewStableIDCache(st, time.Minute)
}

func TestShouldEnterStableEndpointIdModeDecisionTable(t *testing.T) {
	cases := []struct {
		name string
		opts Options
		want bool
	}{
		{"explicit stable wins", Options{UseStableEndpointID: true, LowPower: true}, true},
		{"low power rotates", Options{LowPower: true}, false},
		{"fallback defaults stable", Options{}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ShouldEnterStableEndpointIdMode(tc.opts); got != tc.want {
				t.Fatalf("got %v, want %v", got, tc.want)
			}
		})
	}
}

func TestResolveReusesCachedIDWithinTimeout(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	first, err := c.Resolve(ctx, "svc", "client1", Options{UseStableEndpointID: true})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	second, err := c.Resolve(ctx, "svc", "client1", Options{UseStableEndpointID: true})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if first != second {
		t.Fatalf("expected stable id to be reused, got %q then %q", first, second)
	}
}

func TestResolveRotatesWhenNotStable(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	first, err := c.Resolve(ctx, "svc", "client1", Options{UseStableEndpointID: true})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	rotated, err := c.Resolve(ctx, "svc", "client1", Options{LowPower: true})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if len(rotated) != 4 {
		t.Fatalf("expected a fresh 4-character id, got %q", rotated)
	}
	if rotated == first {
		t.Fatalf("expected a new id, got the cached %q again", first)
	}
}
