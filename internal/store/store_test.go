package store

import (
	"context"
	"testing"
	"time"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	st, err := Open("")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

func TestStableEndpointIDRoundTrip(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	now := time.Now()

	if err := st.PutStableEndpointID(ctx, "svc", "client1", "ABCD", now.Add(time.Minute)); err != nil {
		t.Fatalf("put: %v", err)
	}
	got, err := st.GetStableEndpointID(ctx, "svc", "client1", now)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got != "ABCD" {
		t.Fatalf("got %q, want ABCD", got)
	}
}

func TestStableEndpointIDExpires(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	now := time.Now()

	if err := st.PutStableEndpointID(ctx, "svc", "client1", "ABCD", now.Add(-time.Second)); err != nil {
		t.Fatalf("put: %v", err)
	}
	if _, err := st.GetStableEndpointID(ctx, "svc", "client1", now); err != ErrStableIDNotFound {
		t.Fatalf("expected ErrStableIDNotFound for expired entry, got %v", err)
	}
}

func TestStableEndpointIDMissing(t *testing.T) {
	st := openTestStore(t)
	if _, err := st.GetStableEndpointID(context.Background(), "svc", "unknown", time.Now()); err != ErrStableIDNotFound {
		t.Fatalf("expected ErrStableIDNotFound, got %v", err)
	}
}

func TestPutStableEndpointIDOverwrites(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	now := time.Now()

	st.PutStableEndpointID(ctx, "svc", "client1", "AAAA", now.Add(time.Minute))
	st.PutStableEndpointID(ctx, "svc", "client1", "BBBB", now.Add(time.Minute))

	got, err := st.GetStableEndpointID(ctx, "svc", "client1", now)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got != "BBBB" {
		t.Fatalf("got %q, want BBBB", got)
	}
}

func TestRecordAndRecentEvents(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	for i, event := range []string{"connected", "rejected", "disconnected"} {
		if err := st.RecordEvent(ctx, AnalyticsEvent{
			ClientID:   "client1",
			EndpointID: "EP1",
			Event:      event,
			Timestamp:  time.Now().Add(time.Duration(i) * time.Millisecond),
		}); err != nil {
			t.Fatalf("record: %v", err)
		}
	}

	events, err := st.RecentEvents(ctx, "client1", 10)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("expected 3 events, got %d", len(events))
	}
	if events[0].Event != "disconnected" {
		t.Fatalf("expected newest-first ordering, got %q first", events[0].Event)
	}
}

func TestRecentEventsFiltersByClient(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	st.RecordEvent(ctx, AnalyticsEvent{ClientID: "client1", EndpointID: "EP1", Event: "connected"})
	st.RecordEvent(ctx, AnalyticsEvent{ClientID: "client2", EndpointID: "EP2", Event: "connected"})

	events, err := st.RecentEvents(ctx, "client1", 10)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(events) != 1 || events[0].ClientID != "client1" {
		t.Fatalf("expected only client1's events, got %v", events)
	}
}
