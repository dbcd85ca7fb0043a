// Package flags captures process-wide feature toggles into a single
// immutable snapshot at session-creation time, instead of reading global
// state at arbitrary call sites deep inside the state machine.
package flags

import "time"

// Snapshot is the set of feature flags a PcpHandler receives once, at
// construction (pcp.NewHandler), and carries explicitly from then on. See spec.md §9
// ("Global flags") — the source reads process-wide flags at many call
// sites; this groups them so the rest of the core never touches a global.
type Snapshot struct {
	// KeepAliveIntervalDefault is used when a remote ConnectionRequest omits
	// (or sends zero for) keep_alive_interval_ms.
	KeepAliveIntervalDefault time.Duration
	// KeepAliveTimeoutDefault is used when a remote ConnectionRequest omits
	// (or sends zero for) keep_alive_timeout_ms.
	KeepAliveTimeoutDefault time.Duration

	// ConnectionRequestReadTimeout bounds how long on_incoming_connection
	// waits for the ConnectionRequest frame (spec.md §5).
	ConnectionRequestReadTimeout time.Duration
	// EndpointLostAlarmTimeout is the default per-medium "endpoint lost"
	// deadline (spec.md §3, §4.2).
	EndpointLostAlarmTimeout time.Duration
	// RejectionCloseDelay is how long a rejected endpoint's channel is kept
	// open after the ConnectionResponse is written, so the frame reaches the
	// peer before the socket closes (spec.md §4.5, §7).
	RejectionCloseDelay time.Duration
	// StableEndpointIDCacheTimeout bounds how long a cached endpoint id
	// survives a stop/start pair under stable-id mode (spec.md §8).
	StableEndpointIDCacheTimeout time.Duration

	// AutoUpgradeBandwidth mirrors the feature flag gating automatic BWU
	// initiation on incoming-connection acceptance (spec.md §4.5).
	AutoUpgradeBandwidth bool
	// EnableMultiplexSocket is carried in the snapshot but nothing in this
	// module reads it; ConnectionResponse.multiplex_socket_bitmask (spec.md
	// §4.1) is always written as 0.
	EnableMultiplexSocket bool
}

// Default returns the flag values this module's tests and the reference
// cmd/nearcored binary assume absent explicit overrides.
func Default() Snapshot {
	return Snapshot{
		KeepAliveIntervalDefault:     5 * time.Second,
		KeepAliveTimeoutDefault:      30 * time.Second,
		ConnectionRequestReadTimeout: 2 * time.Second,
		EndpointLostAlarmTimeout:     10 * time.Second,
		RejectionCloseDelay:          2 * time.Second,
		StableEndpointIDCacheTimeout: 20 * time.Second,
		AutoUpgradeBandwidth:         true,
		EnableMultiplexSocket:        false,
	}
}
