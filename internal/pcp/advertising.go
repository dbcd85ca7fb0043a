package pcp

import (
	"context"
	"fmt"

	"nearcore/internal/client"
	"nearcore/internal/medium"
)

// StartAdvertising begins advertising serviceID with localEndpointInfo over
// every medium in opts.AllowedMediums the registry reports available,
// starting both StartAdvertising and StartAccepting for each so inbound
// sockets flow to onIncomingConnection (spec.md §4.5 "Advertising": validate,
// resolve endpoint id, then per medium advertise+accept). If every medium
// fails, advertising is rolled back entirely and StatusError is returned.
func (h *Handler) StartAdvertising(ctx context.Context, serviceID string, opts client.Options, endpointInfo []byte) (Status, error) {
	return h.run(ctx, func() Status {
		if h.session.IsAdvertising() {
			return StatusAlreadyListening
		}

		endpointID, err := h.resolveEndpointID(ctx, serviceID, opts)
		if err != nil {
			logger().Warn("advertising: resolve endpoint id failed", "service_id", serviceID, "err", err)
			return StatusError
		}
		h.session.SetLocalEndpointID(endpointID)
		h.serviceID = serviceID

		started := make([]medium.Medium, 0, len(medium.All))
		for _, m := range opts.AllowedMediums.Enumerate() {
			if !h.registry.IsAvailable(m) {
				continue
			}
			blob := h.advertisementFor(serviceID, endpointID, endpointInfo)
			if err := h.registry.StartAdvertising(ctx, m, serviceID, blob); err != nil {
				logger().Warn("advertising: medium failed to start", "medium", m, "err", err)
				continue
			}
			if err := h.registry.StartAccepting(ctx, m, serviceID, h.onSocket(serviceID, m)); err != nil {
				logger().Warn("accepting: medium failed to start", "medium", m, "err", err)
				h.registry.StopAdvertising(m, serviceID)
				continue
			}
			started = append(started, m)
		}

		if len(started) == 0 {
			h.session.StopAdvertising()
			return StatusError
		}

		h.session.StartAdvertising(serviceID, opts)
		return StatusSuccess
	})
}

// StopAdvertising halts every medium started by StartAdvertising.
func (h *Handler) StopAdvertising(ctx context.Context) (Status, error) {
	return h.run(ctx, func() Status {
		if !h.session.IsAdvertising() {
			return StatusSuccess
		}
		serviceID := h.session.ServiceID()
		for _, m := range medium.All {
			h.registry.StopAccepting(m, serviceID)
			h.registry.StopAdvertising(m, serviceID)
		}
		h.session.StopAdvertising()
		return StatusSuccess
	})
}

// UpdateAdvertisingOptions diffs opts against the currently advertised
// mediums, starting newly-allowed ones and stopping newly-disallowed ones.
// A medium that fails to start during the diff is rolled back individually;
// it does not abort updates to the other mediums (spec.md §4.5).
func (h *Handler) UpdateAdvertisingOptions(ctx context.Context, opts client.Options, endpointInfo []byte) (Status, error) {
	return h.run(ctx, func() Status {
		if !h.session.IsAdvertising() {
			return StatusOutOfOrderApiCall
		}
		prior := h.session.GetAdvertisingOptions().AllowedMediums
		serviceID := h.session.ServiceID()
		endpointID := h.session.LocalEndpointID()

		for _, m := range prior.Enumerate() {
			if !opts.AllowedMediums.Has(m) {
				h.registry.StopAccepting(m, serviceID)
				h.registry.StopAdvertising(m, serviceID)
			}
		}
		for _, m := range opts.AllowedMediums.Enumerate() {
			if prior.Has(m) || !h.registry.IsAvailable(m) {
				continue
			}
			blob := h.advertisementFor(serviceID, endpointID, endpointInfo)
			if err := h.registry.StartAdvertising(ctx, m, serviceID, blob); err != nil {
				continue
			}
			if err := h.registry.StartAccepting(ctx, m, serviceID, h.onSocket(serviceID, m)); err != nil {
				h.registry.StopAdvertising(m, serviceID)
			}
		}

		h.session.StartAdvertising(serviceID, opts)
		return StatusSuccess
	})
}

func (h *Handler) advertisementFor(serviceID, endpointID string, endpointInfo []byte) medium.Advertisement {
	return medium.Advertisement{
		Version:       1,
		Pcp:           h.strategy.GetName(),
		ServiceIDHash: serviceIDHash(serviceID, 4),
		EndpointID:    endpointID,
		EndpointInfo:  endpointInfo,
	}
}

// resolveEndpointID asks the stable-id cache (when configured) which
// endpoint id this advertising cycle should use.
func (h *Handler) resolveEndpointID(ctx context.Context, serviceID string, opts client.Options) (string, error) {
	if h.stableIDs == nil {
		return h.session.LocalEndpointID(), nil
	}
	id, err := h.stableIDs.Resolve(ctx, serviceID, h.session.ClientID(), opts)
	if err != nil {
		return "", fmt.Errorf("pcp: resolve endpoint id: %w", err)
	}
	return id, nil
}
