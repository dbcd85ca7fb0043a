package medium

import "testing"

func TestClusterAlwaysAdmits(t *testing.T) {
	s := Cluster
	if !s.CanSendOutgoingConnection(Admission{Outgoing: 5, Incoming: 5}) {
		t.Fatalf("cluster should always allow outgoing connections")
	}
	if !s.CanReceiveIncomingConnection(Admission{Outgoing: 5, Incoming: 5}) {
		t.Fatalf("cluster should always allow incoming connections")
	}
}

func TestStarHubSpokeAdmission(t *testing.T) {
	s := Star
	if !s.CanSendOutgoingConnection(Admission{}) {
		t.Fatalf("star should allow the first outgoing connection")
	}
	if s.CanSendOutgoingConnection(Admission{Outgoing: 1}) {
		t.Fatalf("star should refuse a second outgoing connection")
	}
	if s.CanSendOutgoingConnection(Admission{Incoming: 1}) {
		t.Fatalf("star hub (has incoming) should refuse outgoing")
	}
	if !s.CanReceiveIncomingConnection(Admission{Incoming: 3}) {
		t.Fatalf("star hub should accept many incoming connections")
	}
	if s.CanReceiveIncomingConnection(Admission{Outgoing: 1}) {
		t.Fatalf("star spoke (has outgoing) should refuse incoming")
	}
}

func TestPointToPointAdmission(t *testing.T) {
	s := PointToPoint
	if !s.CanSendOutgoingConnection(Admission{}) {
		t.Fatalf("p2p should allow a first connection")
	}
	if s.CanSendOutgoingConnection(Admission{Outgoing: 1}) {
		t.Fatalf("p2p should refuse a second outgoing connection")
	}
	if s.CanReceiveIncomingConnection(Admission{Incoming: 1}) {
		t.Fatalf("p2p should refuse a second incoming connection")
	}
}

func TestStrategyIdentity(t *testing.T) {
	if !None.IsNone() || None.IsValid() {
		t.Fatalf("None strategy misreports identity")
	}
	for _, s := range []Strategy{Cluster, Star, PointToPoint} {
		if s.IsNone() || !s.IsValid() {
			t.Fatalf("%v misreports identity", s.GetName())
		}
	}
}
