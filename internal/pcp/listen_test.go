package pcp

import (
	"context"
	"testing"
)

func TestStartListeningForIncomingConnectionsTwiceIsAlreadyListening(t *testing.T) {
	net := newFakeNetwork()
	h, session, _, _ := newTestHandler(net, "c1")
	ctx := context.Background()

	status, err := h.StartListeningForIncomingConnections(ctx)
	if err != nil || status != StatusSuccess {
		t.Fatalf("start listening: status=%v err=%v", status, err)
	}
	if !session.IsListening() {
		t.Fatalf("expected session to report listening")
	}

	status, _ = h.StartListeningForIncomingConnections(ctx)
	if status != StatusAlreadyListening {
		t.Fatalf("expected ALREADY_LISTENING, got %v", status)
	}
}

func TestStopListeningForIncomingConnectionsClearsState(t *testing.T) {
	net := newFakeNetwork()
	h, session, _, _ := newTestHandler(net, "c1")
	ctx := context.Background()

	if _, err := h.StartListeningForIncomingConnections(ctx); err != nil {
		t.Fatalf("start listening: %v", err)
	}
	if status, err := h.StopListeningForIncomingConnections(ctx); err != nil || status != StatusSuccess {
		t.Fatalf("stop listening: status=%v err=%v", status, err)
	}
	if session.IsListening() {
		t.Fatalf("expected session to report not listening")
	}

	status, err := h.StartListeningForIncomingConnections(ctx)
	if err != nil || status != StatusSuccess {
		t.Fatalf("restart listening after stop: status=%v err=%v", status, err)
	}
}
