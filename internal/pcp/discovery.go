package pcp

import (
	"bytes"
	"context"

	"nearcore/internal/client"
	"nearcore/internal/discovery"
	"nearcore/internal/medium"
)

// StartDiscovery begins scanning serviceID over every available medium in
// opts.AllowedMediums. Found/lost events are validated against serviceID's
// hash before being folded into the discovery table (spec.md §4.5
// "Discovery").
func (h *Handler) StartDiscovery(ctx context.Context, serviceID string, opts client.Options) (Status, error) {
	return h.run(ctx, func() Status {
		if h.session.IsDiscovering() {
			return StatusAlreadyListening
		}

		hash := serviceIDHash(serviceID, 4)
		started := 0
		for _, m := range opts.AllowedMediums.Enumerate() {
			if !h.registry.IsAvailable(m) {
				continue
			}
			cb := medium.DiscoveredCallbacks{
				OnFound: h.onMediumFound(serviceID, hash),
				OnLost:  h.onMediumLost(),
			}
			if err := h.registry.StartDiscovery(ctx, m, serviceID, cb); err != nil {
				logger().Warn("discovery: medium failed to start", "medium", m, "err", err)
				continue
			}
			started++
		}
		if started == 0 {
			return StatusError
		}

		h.serviceID = serviceID
		h.session.StartDiscovery(serviceID, opts)
		return StatusSuccess
	})
}

// StopDiscovery halts every medium started by StartDiscovery and clears the
// discovered-endpoint table.
func (h *Handler) StopDiscovery(ctx context.Context) (Status, error) {
	return h.run(ctx, func() Status {
		if !h.session.IsDiscovering() {
			return StatusSuccess
		}
		serviceID := h.session.ServiceID()
		opts := h.session.GetDiscoveryOptions()
		for _, m := range opts.AllowedMediums.Enumerate() {
			h.registry.StopDiscovery(m, serviceID)
		}
		h.table.Clear()
		h.session.StopDiscovery()
		return StatusSuccess
	})
}

// UpdateDiscoveryOptions diffs opts against the currently scanned mediums,
// the discovery analog of UpdateAdvertisingOptions.
func (h *Handler) UpdateDiscoveryOptions(ctx context.Context, opts client.Options) (Status, error) {
	return h.run(ctx, func() Status {
		if !h.session.IsDiscovering() {
			return StatusOutOfOrderApiCall
		}
		prior := h.session.GetDiscoveryOptions().AllowedMediums
		serviceID := h.session.ServiceID()
		hash := serviceIDHash(serviceID, 4)

		for _, m := range prior.Enumerate() {
			if !opts.AllowedMediums.Has(m) {
				h.registry.StopDiscovery(m, serviceID)
			}
		}
		for _, m := range opts.AllowedMediums.Enumerate() {
			if prior.Has(m) || !h.registry.IsAvailable(m) {
				continue
			}
			cb := medium.DiscoveredCallbacks{
				OnFound: h.onMediumFound(serviceID, hash),
				OnLost:  h.onMediumLost(),
			}
			h.registry.StartDiscovery(ctx, m, serviceID, cb)
		}

		h.session.StartDiscovery(serviceID, opts)
		return StatusSuccess
	})
}

func (h *Handler) onMediumFound(serviceID string, hash []byte) func(context.Context, medium.Advertisement, medium.Medium) {
	return func(_ context.Context, blob medium.Advertisement, reportedMedium medium.Medium) {
		if blob.Pcp != h.strategy.GetName() {
			return
		}
		if !blob.IsFast && !bytes.Equal(blob.ServiceIDHash, hash) {
			return
		}
		if blob.EndpointID == "" {
			return
		}
		h.table.OnFound(discovery.Endpoint{
			EndpointID:   blob.EndpointID,
			EndpointInfo: blob.EndpointInfo,
			ServiceID:    serviceID,
			Medium:       reportedMedium,
			Variant:      discovery.Variant{BluetoothMAC: string(blob.BluetoothMAC)},
		})
		h.table.ArmLostAlarm(reportedMedium, h.flags.EndpointLostAlarmTimeout, func(endpointID string) {
			h.table.OnLost(endpointID, reportedMedium)
		})
	}
}

func (h *Handler) onMediumLost() func(context.Context, string, medium.Medium) {
	return func(_ context.Context, endpointID string, reportedMedium medium.Medium) {
		h.table.StopLostAlarm(reportedMedium, endpointID)
		h.table.OnLost(endpointID, reportedMedium)
	}
}

// InjectEndpoint synchronously reports a locally-known endpoint as
// discovered, bypassing medium scanning (spec.md §4.5 "inject_endpoint",
// §8 boundary behaviors). Returns StatusError without any side effect for a
// malformed MAC, empty endpoint id, or oversized endpoint info. The endpoint
// is always recorded under Bluetooth.
func (h *Handler) InjectEndpoint(ctx context.Context, serviceID string, endpointID string, endpointInfo []byte, bluetoothMAC string) (Status, error) {
	return h.run(ctx, func() Status {
		if endpointID == "" {
			return StatusError
		}
		if len(endpointInfo) >= 131 {
			return StatusError
		}
		if !isValidMAC(bluetoothMAC) {
			return StatusError
		}
		h.table.OnFound(discovery.Endpoint{
			EndpointID:   endpointID,
			EndpointInfo: endpointInfo,
			ServiceID:    serviceID,
			Medium:       medium.Bluetooth,
			Variant:      discovery.Variant{BluetoothMAC: bluetoothMAC},
		})
		return StatusSuccess
	})
}

func isValidMAC(mac string) bool {
	if len(mac) != 17 {
		return false
	}
	for i, c := range mac {
		if i%3 == 2 {
			if c != ':' {
				return false
			}
			continue
		}
		if !isHexDigit(byte(c)) {
			return false
		}
	}
	return true
}

func isHexDigit(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}
