package pcp

import "context"

// StartListeningForIncomingConnections marks the session ready to accept
// connections without advertising a discoverable presence — e.g. after an
// out-of-band exchange of endpoint info (spec.md §4.5, distinct from
// StartAdvertising per the PcpHandler operation table in spec.md §6.4).
func (h *Handler) StartListeningForIncomingConnections(ctx context.Context) (Status, error) {
	return h.run(ctx, func() Status {
		if h.session.IsListening() {
			return StatusAlreadyListening
		}
		h.session.StartListening()
		return StatusSuccess
	})
}

// StopListeningForIncomingConnections undoes StartListeningForIncomingConnections.
func (h *Handler) StopListeningForIncomingConnections(ctx context.Context) (Status, error) {
	return h.run(ctx, func() Status {
		h.session.StopListening()
		return StatusSuccess
	})
}
