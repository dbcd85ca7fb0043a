package pcp

import (
	"context"
	"testing"

	"nearcore/internal/client"
	"nearcore/internal/medium"
)

func TestStartAdvertisingSucceedsOverAvailableMediums(t *testing.T) {
	net := newFakeNetwork()
	h, session, _, _ := newTestHandler(net, "c1")
	ctx := context.Background()

	status, err := h.StartAdvertising(ctx, "svc", client.Options{
		AllowedMediums: medium.NewSelector(medium.Bluetooth, medium.WifiLan),
	}, []byte("info"))
	if err != nil {
		t.Fatalf("start advertising: %v", err)
	}
	if status != StatusSuccess {
		t.Fatalf("expected success, got %v", status)
	}
	if !session.IsAdvertising() {
		t.Fatalf("expected session to report advertising")
	}
}

func TestStartAdvertisingTwiceIsAlreadyListening(t *testing.T) {
	net := newFakeNetwork()
	h, _, _, _ := newTestHandler(net, "c1")
	ctx := context.Background()
	opts := client.Options{AllowedMediums: medium.NewSelector(medium.Bluetooth)}

	if status, _ := h.StartAdvertising(ctx, "svc", opts, nil); status != StatusSuccess {
		t.Fatalf("expected first start to succeed")
	}
	status, _ := h.StartAdvertising(ctx, "svc", opts, nil)
	if status != StatusAlreadyListening {
		t.Fatalf("expected ALREADY_LISTENING on second start, got %v", status)
	}
}

func TestStartAdvertisingFailsWhenNoMediumAvailable(t *testing.T) {
	net := newFakeNetwork()
	h, _, reg, _ := newTestHandler(net, "c1")
	reg.available[medium.Bluetooth] = false
	reg.available[medium.WifiLan] = false

	status, _ := h.StartAdvertising(context.Background(), "svc", client.Options{
		AllowedMediums: medium.NewSelector(medium.Bluetooth, medium.WifiLan),
	}, nil)
	if status != StatusError {
		t.Fatalf("expected StatusError when nothing can advertise, got %v", status)
	}
}

func TestStopAdvertisingClearsState(t *testing.T) {
	net := newFakeNetwork()
	h, session, _, _ := newTestHandler(net, "c1")
	ctx := context.Background()
	opts := client.Options{AllowedMediums: medium.NewSelector(medium.Bluetooth)}

	h.StartAdvertising(ctx, "svc", opts, nil)
	if _, err := h.StopAdvertising(ctx); err != nil {
		t.Fatalf("stop advertising: %v", err)
	}
	if session.IsAdvertising() {
		t.Fatalf("expected advertising to be stopped")
	}
}

func TestUpdateAdvertisingOptionsWithoutStartingIsOutOfOrder(t *testing.T) {
	net := newFakeNetwork()
	h, _, _, _ := newTestHandler(net, "c1")
	status, _ := h.UpdateAdvertisingOptions(context.Background(), client.Options{}, nil)
	if status != StatusOutOfOrderApiCall {
		t.Fatalf("expected OUT_OF_ORDER_API_CALL, got %v", status)
	}
}
