package channel

import (
	"fmt"
	"sync"
)

// endpointState is the manager's bookkeeping for one endpoint's current
// channel plus the bandwidth-upgrade safe-to-disconnect flag (spec.md §6.3).
type endpointState struct {
	ch                 EndpointChannel
	safeToDisconnect   bool
}

// Manager is the EndpointChannelManager: the single owner of "which channel
// is current for this endpoint" (spec.md §3 invariant 2, §6.3). Replacing a
// channel during bandwidth upgrade does not close the old one — the caller
// (internal/bwu) is responsible for draining and closing it once the
// LAST_WRITE_TO_PRIOR_CHANNEL/SAFE_TO_CLOSE_PRIOR_CHANNEL handshake
// completes (spec.md §4.6).
type Manager struct {
	mu    sync.Mutex
	byEP  map[string]*endpointState
}

// NewManager returns an empty EndpointChannelManager.
func NewManager() *Manager {
	return &Manager{byEP: make(map[string]*endpointState)}
}

// GetChannelForEndpoint returns the current channel for endpointID, or nil
// if none is registered.
func (m *Manager) GetChannelForEndpoint(endpointID string) EndpointChannel {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.byEP[endpointID]
	if !ok {
		return nil
	}
	return st.ch
}

// RegisterChannel makes ch the current channel for endpointID. Used both for
// the first channel established during connection setup and, unqualified,
// would clobber an existing registration — callers doing a bandwidth upgrade
// must use ReplaceChannelForEndpoint instead so the prior channel is
// returned rather than silently dropped.
func (m *Manager) RegisterChannel(endpointID string, ch EndpointChannel) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byEP[endpointID] = &endpointState{ch: ch}
}

// ReplaceChannelForEndpoint swaps in next as the current channel for
// endpointID and returns whatever channel was current before, so the caller
// can carry out the prior channel's drain-then-close sequence (spec.md
// §4.6). Returns an error if no channel was registered for endpointID.
func (m *Manager) ReplaceChannelForEndpoint(endpointID string, next EndpointChannel) (EndpointChannel, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.byEP[endpointID]
	if !ok {
		return nil, fmt.Errorf("channel: no channel registered for endpoint %s", endpointID)
	}
	prior := st.ch
	st.ch = next
	st.safeToDisconnect = false
	return prior, nil
}

// EncryptChannelForEndpoint attaches c to endpointID's current channel
// (spec.md §6.3 "encrypt_channel_for_endpoint").
func (m *Manager) EncryptChannelForEndpoint(endpointID string, c Crypto) error {
	m.mu.Lock()
	st, ok := m.byEP[endpointID]
	m.mu.Unlock()
	if !ok {
		return fmt.Errorf("channel: no channel registered for endpoint %s", endpointID)
	}
	st.ch.AttachEncryption(c)
	return nil
}

// UpdateSafeToDisconnectForEndpoint records whether the remote side has
// acknowledged it is safe to close the prior channel during a bandwidth
// upgrade handoff (spec.md §4.6 "SAFE_TO_CLOSE_PRIOR_CHANNEL").
func (m *Manager) UpdateSafeToDisconnectForEndpoint(endpointID string, safe bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if st, ok := m.byEP[endpointID]; ok {
		st.safeToDisconnect = safe
	}
}

// IsSafeToDisconnectForEndpoint reports the flag set by
// UpdateSafeToDisconnectForEndpoint, defaulting to false for unknown
// endpoints.
func (m *Manager) IsSafeToDisconnectForEndpoint(endpointID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.byEP[endpointID]
	return ok && st.safeToDisconnect
}

// RemoveChannelForEndpoint drops endpointID's bookkeeping entirely — called
// once a connection is fully torn down. It does not close the channel; the
// caller must do that first.
func (m *Manager) RemoveChannelForEndpoint(endpointID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.byEP, endpointID)
}
