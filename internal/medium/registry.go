package medium

import "context"

// DiscoveredCallbacks is what a medium's scan reports back to the core on
// every found/lost event (spec.md §4.5 "Discovery").
type DiscoveredCallbacks struct {
	OnFound func(ctx context.Context, blob Advertisement, medium Medium)
	OnLost  func(ctx context.Context, endpointID string, medium Medium)
}

// Socket is the minimal thing a medium hands the core when a remote peer
// connects, before it has been wrapped into a channel.EndpointChannel. It is
// intentionally narrow: the core never needs more than a byte stream plus a
// name to identify the medium it came from.
type Socket interface {
	Medium() Medium
	Name() string
}

// Registry is the capability set the core consumes from the (external,
// out-of-scope) per-medium transport implementations: one method per
// advertise/accept/discover/connect operation (spec.md §6.3). Real radio or
// socket code behind this interface is explicitly a Non-goal (spec.md §1);
// this module only defines and consumes the boundary.
type Registry interface {
	// IsAvailable reports whether the local device currently supports m
	// (e.g. the Bluetooth adapter is on).
	IsAvailable(m Medium) bool

	StartAdvertising(ctx context.Context, m Medium, serviceID string, blob Advertisement) error
	StopAdvertising(m Medium, serviceID string) error

	StartAccepting(ctx context.Context, m Medium, serviceID string, onSocket func(Socket)) error
	StopAccepting(m Medium, serviceID string) error

	StartDiscovery(ctx context.Context, m Medium, serviceID string, cb DiscoveredCallbacks) error
	StopDiscovery(m Medium, serviceID string) error

	// Connect dials endpointID over m, yielding a raw Socket the caller wraps
	// in a channel.EndpointChannel. cancel is closed to abort an in-flight
	// dial (spec.md §5 "Cancellation").
	Connect(ctx context.Context, m Medium, endpointID string, cancel <-chan struct{}) (Socket, error)
}

// Advertisement is the per-medium advertisement blob (spec.md §6.2): a
// fixed header plus an opaque endpoint-info payload. A "fast" BLE
// advertisement omits ServiceIDHash (IsFast == true); the scan filter UUID
// supplies it out of band.
type Advertisement struct {
	Version        uint8
	Pcp            string // strategy.GetName()
	ServiceIDHash  []byte
	EndpointID     string
	EndpointInfo   []byte
	BluetoothMAC   []byte // present only for high-power BLE advertisements
	UWBAddress     []byte
	WebRTCConnectable bool
	IsFast         bool
}
