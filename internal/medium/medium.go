// Package medium defines the transport medium vocabulary the core reasons
// about: the Medium enum, the MediumSelector set type, and the capability
// contracts (Registry) the core consumes for each medium. Concrete radio or
// socket implementations are an external collaborator (spec.md §1 Non-goals)
// — this package only defines the boundary.
package medium

import "strings"

// Medium is one concrete transport (spec.md §3).
type Medium uint8

const (
	Unknown Medium = iota
	Bluetooth
	BLE
	WifiLan
	WifiDirect
	WifiHotspot
	WebRTC
)

// All enumerates every concrete medium in the priority order a Cluster
// strategy advertises/discovers them, before strategy-specific reordering.
var All = []Medium{Bluetooth, BLE, WifiLan, WifiDirect, WifiHotspot, WebRTC}

func (m Medium) String() string {
	switch m {
	case Bluetooth:
		return "BLUETOOTH"
	case BLE:
		return "BLE"
	case WifiLan:
		return "WIFI_LAN"
	case WifiDirect:
		return "WIFI_DIRECT"
	case WifiHotspot:
		return "WIFI_HOTSPOT"
	case WebRTC:
		return "WEB_RTC"
	default:
		return "UNKNOWN"
	}
}

// Selector is a set-of-mediums value with one boolean flag per medium. It is
// used both for "what the client allows" and "what the remote announced"
// (spec.md §3).
type Selector struct {
	// One slot per entry of All; WebRTC is the last constant, so its value
	// equals len(All).
	flags [WebRTC]bool
}

// NewSelector builds a Selector containing exactly the given mediums.
func NewSelector(mediums ...Medium) Selector {
	var s Selector
	for _, m := range mediums {
		s.Set(m, true)
	}
	return s
}

// AllMediums returns a Selector with every known medium enabled.
func AllMediums() Selector {
	return NewSelector(All...)
}

func index(m Medium) (int, bool) {
	for i, x := range All {
		if x == m {
			return i, true
		}
	}
	return 0, false
}

// Set enables or disables m in the selector. Unknown mediums are a no-op.
func (s *Selector) Set(m Medium, on bool) {
	if i, ok := index(m); ok {
		s.flags[i] = on
	}
}

// Has reports whether m is enabled.
func (s Selector) Has(m Medium) bool {
	if i, ok := index(m); ok {
		return s.flags[i]
	}
	return false
}

// IsEmpty reports whether no medium is enabled.
func (s Selector) IsEmpty() bool {
	for _, v := range s.flags {
		if v {
			return false
		}
	}
	return true
}

// Enumerate returns the enabled mediums in All's priority order.
func (s Selector) Enumerate() []Medium {
	out := make([]Medium, 0, len(All))
	for i, m := range All {
		if s.flags[i] {
			out = append(out, m)
		}
	}
	return out
}

// Intersect returns a new Selector containing only mediums enabled in both
// s and other — used to compute the set of mediums two peers both support
// for an upgrade path (spec.md §4.5 request_connection step 4).
func (s Selector) Intersect(other Selector) Selector {
	var out Selector
	for i := range s.flags {
		out.flags[i] = s.flags[i] && other.flags[i]
	}
	return out
}

// String renders the selector as a comma-joined list, e.g. "BLUETOOTH,BLE".
func (s Selector) String() string {
	parts := make([]string, 0, len(All))
	for _, m := range s.Enumerate() {
		parts = append(parts, m.String())
	}
	return strings.Join(parts, ",")
}
