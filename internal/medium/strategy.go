package medium

// Strategy is a copyable, comparable connection-topology policy: one of
// Cluster, Star, or PointToPoint (spec.md §4.5, GLOSSARY). It is modeled as
// a small comparable value type rather than a bare string or int, matching
// original_source/connections/strategy.h's Strategy class (IsNone/IsValid/
// GetName over an internal (connection_type, topology_type) pair) — see
// DESIGN.md's grounding ledger.
type Strategy struct {
	name string
	kind strategyKind
}

type strategyKind uint8

const (
	kindNone strategyKind = iota
	kindCluster
	kindStar
	kindPointToPoint
)

// None is the zero value: no strategy selected.
var None = Strategy{name: "NONE", kind: kindNone}

// Cluster is many-to-many: every pair of devices may connect directly.
var Cluster = Strategy{name: "P2P_CLUSTER", kind: kindCluster}

// Star is hub many-to-one: one device (the hub) accepts from many; spokes
// connect to at most one hub.
var Star = Strategy{name: "P2P_STAR", kind: kindStar}

// PointToPoint restricts both sides to at most one connection total.
var PointToPoint = Strategy{name: "P2P_POINT_TO_POINT", kind: kindPointToPoint}

// IsNone reports whether this is the unset strategy.
func (s Strategy) IsNone() bool { return s.kind == kindNone }

// IsValid reports whether this is one of the three supported strategies.
func (s Strategy) IsValid() bool { return s.kind != kindNone }

// GetName returns the wire/log name of the strategy.
func (s Strategy) GetName() string { return s.name }

// Admission gates outgoing and incoming connection attempts based on the
// counts of existing outgoing/incoming connections a client already holds
// (spec.md §4.5 "Strategy variants").
type Admission struct {
	Outgoing int
	Incoming int
}

// CanSendOutgoingConnection reports whether another outgoing connection
// attempt is permitted under this strategy.
//
// The Cluster variant is left unconditionally true per spec.md §9's first
// Open Question: the base class defaults to "always true" and no override
// narrows it for Cluster, so resource-pressure admission control for
// Cluster is intentionally not invented here. See DESIGN.md.
func (s Strategy) CanSendOutgoingConnection(a Admission) bool {
	switch s.kind {
	case kindStar:
		return a.Outgoing == 0 && a.Incoming == 0
	case kindPointToPoint:
		return a.Outgoing == 0 && a.Incoming == 0
	default:
		return true
	}
}

// CanReceiveIncomingConnection reports whether another incoming connection
// is permitted under this strategy.
func (s Strategy) CanReceiveIncomingConnection(a Admission) bool {
	switch s.kind {
	case kindStar:
		return a.Outgoing == 0
	case kindPointToPoint:
		return a.Outgoing == 0 && a.Incoming == 0
	default:
		return true
	}
}
