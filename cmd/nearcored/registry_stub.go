package main

import (
	"context"
	"errors"

	"nearcore/internal/medium"
)

// errNoMediums is returned by every nullRegistry operation. Real Bluetooth/
// BLE/WiFi-LAN/WiFi-Direct/WebRTC transport implementations are an explicit
// Non-goal (spec.md §1) — the PcpHandler only needs something satisfying
// medium.Registry to construct, and local testing/demos drive the state
// machine through InjectEndpoint (exposed over HTTP by internal/httpapi)
// instead of a real radio.
var errNoMediums = errors.New("nearcored: no medium transports are wired in this build")

// nullRegistry is the boundary stub listed in DESIGN.md's grounding ledger:
// it satisfies medium.Registry without touching any hardware. IsAvailable
// reports false for every medium and every start or connect call fails with
// errNoMediums, so in this binary advertising and discovery start on no
// medium and request_connection fails at connect; InjectEndpoint still fills
// the discovery table.
type nullRegistry struct{}

func (nullRegistry) IsAvailable(medium.Medium) bool { return false }

func (nullRegistry) StartAdvertising(context.Context, medium.Medium, string, medium.Advertisement) error {
	return errNoMediums
}

func (nullRegistry) StopAdvertising(medium.Medium, string) error { return nil }

func (nullRegistry) StartAccepting(context.Context, medium.Medium, string, func(medium.Socket)) error {
	return errNoMediums
}

func (nullRegistry) StopAccepting(medium.Medium, string) error { return nil }

func (nullRegistry) StartDiscovery(context.Context, medium.Medium, string, medium.DiscoveredCallbacks) error {
	return errNoMediums
}

func (nullRegistry) StopDiscovery(medium.Medium, string) error { return nil }

func (nullRegistry) Connect(context.Context, medium.Medium, string, <-chan struct{}) (medium.Socket, error) {
	return nil, errNoMediums
}
