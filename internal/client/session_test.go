package client

import "testing"

func TestNewGeneratesFourCharEndpointID(t *testing.T) {
	s, err := New("client1", []byte("info"), Callbacks{})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if len(s.LocalEndpointID()) != 4 {
		t.Fatalf("expected 4-character endpoint id, got %q", s.LocalEndpointID())
	}
	if s.ClientID() != "client1" {
		t.Fatalf("expected client id to round-trip")
	}
}

func TestAdvertisingDiscoveryListeningStateTransitions(t *testing.T) {
	s, _ := New("c", nil, Callbacks{})

	if s.IsAdvertising() || s.IsDiscovering() || s.IsListening() {
		t.Fatalf("expected all-false initial state")
	}
	s.StartAdvertising("svc", Options{})
	if !s.IsAdvertising() {
		t.Fatalf("expected advertising after StartAdvertising")
	}
	s.StopAdvertising()
	if s.IsAdvertising() {
		t.Fatalf("expected not advertising after StopAdvertising")
	}

	s.StartDiscovery("svc", Options{})
	if !s.IsDiscovering() {
		t.Fatalf("expected discovering after StartDiscovery")
	}
	s.StartListening()
	if !s.IsListening() {
		t.Fatalf("expected listening after StartListening")
	}
}

func TestConnectionDecisionTracking(t *testing.T) {
	s, _ := New("c", nil, Callbacks{})

	localAccepted, localRejected, remoteAccepted, remoteRejected := s.ConnectionDecision("EP1")
	if localAccepted || localRejected || remoteAccepted || remoteRejected {
		t.Fatalf("expected no decisions recorded initially")
	}

	s.LocalEndpointAccepted("EP1")
	s.RemoteEndpointAccepted("EP1")
	localAccepted, _, remoteAccepted, _ = s.ConnectionDecision("EP1")
	if !localAccepted || !remoteAccepted {
		t.Fatalf("expected both sides accepted")
	}

	s.ClearConnectionDecision("EP1")
	localAccepted, _, remoteAccepted, _ = s.ConnectionDecision("EP1")
	if localAccepted || remoteAccepted {
		t.Fatalf("expected decisions cleared")
	}
}

func TestCancellationFlagLifecycle(t *testing.T) {
	s, _ := New("c", nil, Callbacks{})

	if s.IsCancelled("EP1") {
		t.Fatalf("expected not cancelled for unknown endpoint")
	}
	s.BeginAttempt("EP1")
	if s.IsCancelled("EP1") {
		t.Fatalf("expected un-cancelled after BeginAttempt")
	}
	s.Cancel("EP1")
	if !s.IsCancelled("EP1") {
		t.Fatalf("expected cancelled after Cancel")
	}
	s.BeginAttempt("EP1")
	if s.IsCancelled("EP1") {
		t.Fatalf("expected BeginAttempt to reset an existing cancellation flag")
	}
}

func TestCallbacksFireWhenSet(t *testing.T) {
	var found, lost, initiated, accepted string
	var rejectedStatus int
	s, _ := New("c", nil, Callbacks{
		OnEndpointFound:       func(id string, info []byte) { found = id },
		OnEndpointLost:        func(id string) { lost = id },
		OnConnectionInitiated: func(id string) { initiated = id },
		OnConnectionAccepted:  func(id string) { accepted = id },
		OnConnectionRejected:  func(id string, status int) { rejectedStatus = status },
	})

	s.OnEndpointFound("EP1", []byte("info"))
	s.OnEndpointLost("EP2")
	s.OnConnectionInitiated("EP3")
	s.OnConnectionAccepted("EP4")
	s.OnConnectionRejected("EP5", 7)

	if found != "EP1" || lost != "EP2" || initiated != "EP3" || accepted != "EP4" || rejectedStatus != 7 {
		t.Fatalf("expected callbacks to fire with correct arguments")
	}
}
