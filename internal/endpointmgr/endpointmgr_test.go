package endpointmgr

import (
	"testing"

	"nearcore/internal/channel"
	"nearcore/internal/medium"
	"nearcore/internal/pending"
	"nearcore/internal/wire"
)

func testChannel() channel.EndpointChannel {
	a, _ := channel.NewLoopbackPair(medium.WifiLan, "a", "b")
	return a
}

func TestRegisterAndLookup(t *testing.T) {
	s := NewSink()
	ch := testChannel()
	if err := s.RegisterEndpoint("client1", "EP1", []byte("info"), ch, pending.Listener{}, "authtok"); err != nil {
		t.Fatalf("register: %v", err)
	}
	got, ok := s.ChannelFor("EP1")
	if !ok || got != ch {
		t.Fatalf("expected registered channel back")
	}
	if !s.IsRegistered("EP1") {
		t.Fatalf("expected EP1 to be registered")
	}
}

func TestRegisterDuplicateFails(t *testing.T) {
	s := NewSink()
	if err := s.RegisterEndpoint("c", "EP1", nil, testChannel(), pending.Listener{}, ""); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := s.RegisterEndpoint("c", "EP1", nil, testChannel(), pending.Listener{}, ""); err == nil {
		t.Fatalf("expected error registering duplicate endpoint")
	}
}

func TestDiscardEndpointRemovesRegistration(t *testing.T) {
	s := NewSink()
	s.RegisterEndpoint("c", "EP1", nil, testChannel(), pending.Listener{}, "")
	s.DiscardEndpoint("c", "EP1", "test")
	if s.IsRegistered("EP1") {
		t.Fatalf("expected EP1 to be discarded")
	}
}

func TestReplaceChannelForUpdatesRegistration(t *testing.T) {
	s := NewSink()
	orig := testChannel()
	s.RegisterEndpoint("c", "EP1", nil, orig, pending.Listener{}, "")

	next := testChannel()
	if err := s.ReplaceChannelFor("EP1", next); err != nil {
		t.Fatalf("replace: %v", err)
	}
	got, _ := s.ChannelFor("EP1")
	if got != next {
		t.Fatalf("expected channel to be replaced")
	}
}

type fakeProcessor struct {
	calls []string
}

func (f *fakeProcessor) ProcessFrame(endpointID string, frame *wire.Frame) {
	f.calls = append(f.calls, endpointID)
}

func TestDispatchRoutesToRegisteredProcessor(t *testing.T) {
	s := NewSink()
	proc := &fakeProcessor{}
	s.RegisterFrameProcessor(wire.FrameConnectionResponse, proc)

	s.Dispatch("EP1", &wire.Frame{Type: wire.FrameConnectionResponse})
	s.Dispatch("EP1", &wire.Frame{Type: wire.FrameKeepAlive})

	if len(proc.calls) != 1 || proc.calls[0] != "EP1" {
		t.Fatalf("expected exactly one dispatched call for EP1, got %v", proc.calls)
	}
}
