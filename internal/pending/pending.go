// Package pending implements PendingConnectionInfo and the PendingConnections
// map: the hottest entity in the core, tracking one in-flight connection
// attempt per endpoint from the moment a channel is opened until it is
// either registered with the EndpointManager or torn down (spec.md §3).
package pending

import (
	"log/slog"
	"sync"
	"time"

	"nearcore/internal/channel"
	"nearcore/internal/crypto"
	"nearcore/internal/executor"
	"nearcore/internal/medium"
)

// Status is the generic outcome vocabulary PendingConnectionInfo.Result
// resolves to — a narrow mirror of pcp.Status kept here so this package has
// no dependency on internal/pcp (pcp depends on pending, not the reverse).
type Status int

const (
	StatusSuccess Status = iota
	StatusError
	StatusEndpointIOError
	StatusConnectionRejected
)

// ConnectionOptions is the remote-announced subset of connection options
// carried on a PendingConnectionInfo (spec.md §3 "connection_options").
type ConnectionOptions struct {
	RemoteKeepAliveIntervalMs int
	RemoteKeepAliveTimeoutMs  int
	AllowedUpgradeMediums     medium.Selector
	RemoteBluetoothMAC        string
}

// Listener carries the connection-lifecycle callbacks supplied by the
// client at request/accept time (spec.md §3 "listener").
type Listener struct {
	OnInitiated func(endpointID string)
	OnAccepted  func(endpointID string)
	OnRejected  func(endpointID string, status Status)
	OnPayload   func(endpointID string, data []byte)
}

// Info is PendingConnectionInfo (spec.md §3). AuthenticateAsInitiator
// records the EncryptionRunner role of the attempt: NewOutgoing sets it true
// and NewIncoming sets it false. internal/pcp picks the runner role at the
// call site (client for outgoing, server for incoming) and does not read
// this field (see DESIGN.md decision 3).
type Info struct {
	EndpointID string

	RemoteEndpointInfo []byte
	Nonce              uint32
	IsIncoming         bool
	AuthenticateAsInitiator bool
	StartTime          time.Time

	ConnectionOptions ConnectionOptions
	SupportedMediums  []medium.Medium
	Medium            medium.Medium

	// Channel is non-nil only while this Info lives in the pending map and
	// the endpoint hasn't yet been handed to the EndpointManager (spec.md §3
	// invariant 2). Once registered, it is nulled and lookups go through the
	// channel manager.
	Channel channel.EndpointChannel

	UKey2 *crypto.Context

	AuthenticationStatus Status
	AuthenticationToken  string
	ConnectionToken      string

	Result   *executor.Future[Status]
	Listener Listener

	LocalAccepted  bool
	RemoteAccepted bool
	LocalRejected  bool
	RemoteRejected bool
}

// NewOutgoing builds the PendingConnectionInfo for a locally-initiated
// request_connection call.
func NewOutgoing(endpointID string, nonce uint32, m medium.Medium, ch channel.EndpointChannel, l Listener) *Info {
	return &Info{
		EndpointID:              endpointID,
		Nonce:                   nonce,
		IsIncoming:              false,
		AuthenticateAsInitiator: true,
		StartTime:               time.Now(),
		Medium:                  m,
		Channel:                 ch,
		Result:                  executor.NewFuture[Status](),
		Listener:                l,
	}
}

// NewIncoming builds the PendingConnectionInfo for a peer-initiated
// connection accepted by on_incoming_connection.
func NewIncoming(endpointID string, nonce uint32, m medium.Medium, ch channel.EndpointChannel, l Listener) *Info {
	return &Info{
		EndpointID:              endpointID,
		Nonce:                   nonce,
		IsIncoming:              true,
		AuthenticateAsInitiator: false,
		StartTime:               time.Now(),
		Medium:                  m,
		Channel:                 ch,
		Result:                  executor.NewFuture[Status](),
		Listener:                l,
	}
}

// BothDecided reports whether both the local and remote side have reached a
// decision (accept or reject) on this connection.
func (i *Info) BothDecided() bool {
	localDone := i.LocalAccepted || i.LocalRejected
	remoteDone := i.RemoteAccepted || i.RemoteRejected
	return localDone && remoteDone
}

// BothAccepted reports whether both sides accepted.
func (i *Info) BothAccepted() bool {
	return i.LocalAccepted && i.RemoteAccepted
}

// Teardown resolves Result to a generic failure if it hasn't already been
// set, and scrubs the UKey2 context. Per spec.md §3 invariant 3 and §5
// "UKey2 context ... must be explicitly reset before the info is destructed"
// — callers must invoke this exactly once when removing an Info from the
// PendingConnections map, whether or not the attempt succeeded.
func (i *Info) Teardown() {
	if i.Result != nil && !i.Result.IsSet() {
		i.Result.Set(StatusError)
	}
	i.UKey2 = nil
}

// Map is PendingConnections: endpoint_id -> *Info, accessed only from the
// PcpHandler's serial executor (spec.md §5 "pending_connections_ is
// accessed only from S"), so it needs no internal locking of its own. The
// mutex here exists only to let diagnostics code (internal/httpapi) take a
// safe read-only snapshot from a different goroutine.
type Map struct {
	mu      sync.RWMutex
	entries map[string]*Info
}

// NewMap returns an empty PendingConnections map.
func NewMap() *Map {
	return &Map{entries: make(map[string]*Info)}
}

// Get returns the pending info for endpointID, if any.
func (m *Map) Get(endpointID string) (*Info, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	info, ok := m.entries[endpointID]
	return info, ok
}

// Put inserts info, enforcing spec.md §3 invariant 1 (at most one per
// endpoint_id) by replacing and tearing down any prior entry.
func (m *Map) Put(info *Info) {
	m.mu.Lock()
	prior, existed := m.entries[info.EndpointID]
	m.entries[info.EndpointID] = info
	m.mu.Unlock()

	if existed && prior != info {
		slog.Warn("pending connection replaced without explicit removal", "endpoint_id", info.EndpointID)
		prior.Teardown()
	}
}

// Remove tears down and deletes the entry for endpointID, if present.
func (m *Map) Remove(endpointID string) {
	m.mu.Lock()
	info, ok := m.entries[endpointID]
	if ok {
		delete(m.entries, endpointID)
	}
	m.mu.Unlock()

	if ok {
		info.Teardown()
	}
}

// Len reports the number of in-flight connections.
func (m *Map) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// Snapshot returns every pending endpoint id, for diagnostics.
func (m *Map) Snapshot() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, 0, len(m.entries))
	for id := range m.entries {
		out = append(out, id)
	}
	return out
}
