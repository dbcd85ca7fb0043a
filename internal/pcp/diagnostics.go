package pcp

import (
	"nearcore/internal/discovery"
)

// SessionStatus is a read-only snapshot of the handler's session state, for
// internal/httpapi's diagnostics routes. It is assembled fresh on every call
// rather than cached, since the underlying Session fields are already
// mutex-guarded (internal/client.Session).
type SessionStatus struct {
	ClientID         string `json:"client_id"`
	LocalEndpointID  string `json:"local_endpoint_id"`
	ServiceID        string `json:"service_id"`
	Advertising      bool   `json:"advertising"`
	Discovering      bool   `json:"discovering"`
	Listening        bool   `json:"listening"`
	PendingCount     int    `json:"pending_count"`
	RegisteredCount  int    `json:"registered_count"`
}

// SessionStatus reports the current session/connection counters. It reads only
// already-synchronized collaborators (client.Session, pending.Map,
// endpointmgr.Sink) and never touches the serial executor, so it is safe to
// call concurrently with in-flight PcpHandler operations.
func (h *Handler) SessionStatus() SessionStatus {
	return SessionStatus{
		ClientID:        h.session.ClientID(),
		LocalEndpointID: h.session.LocalEndpointID(),
		ServiceID:       h.session.ServiceID(),
		Advertising:     h.session.IsAdvertising(),
		Discovering:     h.session.IsDiscovering(),
		Listening:       h.session.IsListening(),
		PendingCount:    h.pending.Len(),
		RegisteredCount: len(h.endpoints.Endpoints()),
	}
}

// DiscoveredEndpoints returns every endpoint currently known to the
// discovery table, for diagnostics.
func (h *Handler) DiscoveredEndpoints() []discovery.Endpoint {
	return h.table.All()
}

// PendingEndpointIDs returns the ids of every connection attempt currently
// in flight (channel opened, decision not yet final).
func (h *Handler) PendingEndpointIDs() []string {
	return h.pending.Snapshot()
}

// RegisteredEndpointIDs returns the ids of every endpoint fully registered
// with the EndpointManager — i.e. a live, encrypted connection.
func (h *Handler) RegisteredEndpointIDs() []string {
	return h.endpoints.Endpoints()
}
