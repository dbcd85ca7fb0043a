// Package discovery implements the DiscoveredEndpointTable: the concurrent
// multimap from endpoint_id to one DiscoveredEndpoint per medium, with
// medium-priority ordering and per-medium "endpoint lost" alarms
// (spec.md §3, §4.2).
package discovery

import "nearcore/internal/medium"

// Variant is the medium-specific payload carried by an Endpoint — the
// "polymorphic DiscoveredEndpoint" design note in spec.md §9, expressed as a
// tagged struct with one populated field rather than an inheritance
// hierarchy.
type Variant struct {
	BluetoothMAC string // medium.Bluetooth
	BleAdvertisement []byte // medium.BLE
	WifiLanIP    string // medium.WifiLan
	WifiLanPort  int    // medium.WifiLan
	WebRTCPeerID string // medium.WebRTC
}

// Endpoint is one (endpoint_id, medium) discovery record (spec.md §3). The
// same endpoint_id may have several Endpoints, one per medium; each
// (EndpointID, Medium) pair is unique within a Table.
type Endpoint struct {
	EndpointID   string
	EndpointInfo []byte
	ServiceID    string
	Medium       medium.Medium
	WebRTCState  string
	Variant      Variant
}

// key identifies one table slot.
type key struct {
	endpointID string
	medium     medium.Medium
}
