package pcp

import (
	"context"
	"strings"
	"testing"
)

func TestInjectEndpointAcceptsWellFormedRecord(t *testing.T) {
	net := newFakeNetwork()
	h, _, _, _ := newTestHandler(net, "c1")

	status, err := h.InjectEndpoint(context.Background(), "svc", "EP01", []byte("hello"), "AA:BB:CC:DD:EE:FF")
	if err != nil {
		t.Fatalf("inject: %v", err)
	}
	if status != StatusSuccess {
		t.Fatalf("expected success, got %v", status)
	}
	if len(h.table.All()) != 1 {
		t.Fatalf("expected one discovered endpoint, got %d", len(h.table.All()))
	}
}

func TestInjectEndpointRejectsEmptyEndpointID(t *testing.T) {
	net := newFakeNetwork()
	h, _, _, _ := newTestHandler(net, "c1")

	status, _ := h.InjectEndpoint(context.Background(), "svc", "", []byte("hello"), "AA:BB:CC:DD:EE:FF")
	if status != StatusError {
		t.Fatalf("expected StatusError for empty endpoint id, got %v", status)
	}
	if len(h.table.All()) != 0 {
		t.Fatalf("expected no side effect on invalid injection")
	}
}

func TestInjectEndpointRejectsOversizedInfo(t *testing.T) {
	net := newFakeNetwork()
	h, _, _, _ := newTestHandler(net, "c1")

	status, _ := h.InjectEndpoint(context.Background(), "svc", "EP01", []byte(strings.Repeat("x", 131)), "AA:BB:CC:DD:EE:FF")
	if status != StatusError {
		t.Fatalf("expected StatusError for oversized endpoint info, got %v", status)
	}
}

func TestInjectEndpointRejectsMalformedMAC(t *testing.T) {
	net := newFakeNetwork()
	h, _, _, _ := newTestHandler(net, "c1")

	for _, mac := range []string{"", "not-a-mac", "AA:BB:CC:DD:EE", "GG:BB:CC:DD:EE:FF"} {
		status, _ := h.InjectEndpoint(context.Background(), "svc", "EP01", nil, mac)
		if status != StatusError {
			t.Errorf("mac %q: expected StatusError, got %v", mac, status)
		}
	}
	if len(h.table.All()) != 0 {
		t.Fatalf("expected no side effect on any invalid injection")
	}
}
