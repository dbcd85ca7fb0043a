// Package client implements ClientProxy/ClientSession: the per-session
// state spec.md §3 and §6.3 describe only through its interface boundary —
// advertising/discovery/listening state, the local endpoint identity, the
// per-endpoint cancellation flags request_connection honors, and the
// lifecycle callbacks the core fires into the application.
package client

import (
	"crypto/rand"
	"fmt"
	"sync"

	"nearcore/internal/medium"
)

// Options bundles the allowed-mediums/low-power/out-of-band knobs shared by
// advertising and discovery option sets (spec.md §4.5 "Advertising" step 1,
// "Discovery").
type Options struct {
	AllowedMediums      medium.Selector
	LowPower            bool
	FastAdvertisementServiceUUID string
	IsOutOfBand         bool
	UseStableEndpointID bool
}

// Callbacks are the connection-lifecycle hooks a ClientSession fires into
// the application (spec.md §6.3 ClientSession interface).
type Callbacks struct {
	OnEndpointFound            func(endpointID string, endpointInfo []byte)
	OnEndpointLost             func(endpointID string)
	OnConnectionInitiated      func(endpointID string)
	OnConnectionAccepted       func(endpointID string)
	OnConnectionRejected       func(endpointID string, status int)
	OnBandwidthChanged         func(endpointID string, newMedium medium.Medium)
	OnDisconnected             func(endpointID string)
}

// Session is ClientProxy/ClientSession: the per-session state one advertiser
// or discoverer carries. One Session corresponds to one application's use of
// the core; internal/pcp.Handler holds exactly one.
type Session struct {
	id                  string
	localEndpointID     string
	localEndpointInfo   []byte
	serviceID           string

	mu                 sync.Mutex
	advertisingOptions Options
	discoveryOptions   Options
	advertising        bool
	discovering        bool
	listening          bool
	callbacks          Callbacks

	localAccepted  map[string]bool
	remoteAccepted map[string]bool
	localRejected  map[string]bool
	remoteRejected map[string]bool

	cancellation map[string]*cancellationFlag
}

type cancellationFlag struct {
	mu        sync.Mutex
	cancelled bool
}

func (f *cancellationFlag) isCancelled() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cancelled
}

func (f *cancellationFlag) cancel() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancelled = true
}

func (f *cancellationFlag) reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancelled = false
}

// New returns a Session identified by clientID, with a freshly generated
// local endpoint id.
func New(clientID string, localEndpointInfo []byte, callbacks Callbacks) (*Session, error) {
	endpointID, err := generateEndpointID()
	if err != nil {
		return nil, err
	}
	return &Session{
		id:                clientID,
		localEndpointID:   endpointID,
		localEndpointInfo: localEndpointInfo,
		callbacks:         callbacks,
		localAccepted:     make(map[string]bool),
		remoteAccepted:    make(map[string]bool),
		localRejected:     make(map[string]bool),
		remoteRejected:    make(map[string]bool),
		cancellation:      make(map[string]*cancellationFlag),
	}, nil
}

// ClientID returns the session's client identifier (spec.md §6.3
// "client_id()").
func (s *Session) ClientID() string { return s.id }

// LocalEndpointID returns the current 4-character local endpoint id
// (spec.md §6.3 "local_endpoint_id()").
func (s *Session) LocalEndpointID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.localEndpointID
}

// SetLocalEndpointID overwrites the local endpoint id, used by the stable-id
// cache to reuse a prior id across an advertising stop/start pair.
func (s *Session) SetLocalEndpointID(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.localEndpointID = id
}

// LocalEndpointInfo returns the opaque info bytes surfaced to peers
// (spec.md §6.3 "local_endpoint_info()").
func (s *Session) LocalEndpointInfo() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.localEndpointInfo
}

// ServiceID returns the service id the session last started
// advertising/discovering on.
func (s *Session) ServiceID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.serviceID
}

// GetAdvertisingOptions returns the currently active advertising options
// (spec.md §6.3 "get_advertising_options()").
func (s *Session) GetAdvertisingOptions() Options {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.advertisingOptions
}

// GetDiscoveryOptions mirrors GetAdvertisingOptions for discovery.
func (s *Session) GetDiscoveryOptions() Options {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.discoveryOptions
}

// StartAdvertising records the session as advertising with opts.
func (s *Session) StartAdvertising(serviceID string, opts Options) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.serviceID = serviceID
	s.advertisingOptions = opts
	s.advertising = true
}

// StopAdvertising clears advertising state.
func (s *Session) StopAdvertising() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.advertising = false
}

// IsAdvertising reports whether StartAdvertising has been called without a
// matching StopAdvertising.
func (s *Session) IsAdvertising() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.advertising
}

// StartDiscovery records the session as discovering with opts.
func (s *Session) StartDiscovery(serviceID string, opts Options) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.serviceID = serviceID
	s.discoveryOptions = opts
	s.discovering = true
}

// StopDiscovery clears discovery state.
func (s *Session) StopDiscovery() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.discovering = false
}

// IsDiscovering reports whether StartDiscovery has been called without a
// matching StopDiscovery.
func (s *Session) IsDiscovering() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.discovering
}

// StartListening/StopListening/IsListening track
// start_listening_for_incoming_connections independently of advertising,
// since a client can listen without running a discoverable advertisement.
func (s *Session) StartListening() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listening = true
}

func (s *Session) StopListening() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listening = false
}

func (s *Session) IsListening() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listening
}

// OnEndpointFound/OnEndpointLost forward discovery events to the
// application (spec.md §6.3).
func (s *Session) OnEndpointFound(endpointID string, endpointInfo []byte) {
	if s.callbacks.OnEndpointFound != nil {
		s.callbacks.OnEndpointFound(endpointID, endpointInfo)
	}
}

func (s *Session) OnEndpointLost(endpointID string) {
	if s.callbacks.OnEndpointLost != nil {
		s.callbacks.OnEndpointLost(endpointID)
	}
}

// LocalEndpointAccepted/LocalEndpointRejected/RemoteEndpointAccepted/
// RemoteEndpointRejected record each side's accept/reject decision
// (spec.md §6.3 "local/remote_endpoint_accepted/rejected").
func (s *Session) LocalEndpointAccepted(endpointID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.localAccepted[endpointID] = true
}

func (s *Session) LocalEndpointRejected(endpointID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.localRejected[endpointID] = true
}

func (s *Session) RemoteEndpointAccepted(endpointID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.remoteAccepted[endpointID] = true
}

func (s *Session) RemoteEndpointRejected(endpointID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.remoteRejected[endpointID] = true
}

// ConnectionDecision reports whether each side has accepted/rejected
// endpointID, for evaluate_connection_result.
func (s *Session) ConnectionDecision(endpointID string) (localAccepted, localRejected, remoteAccepted, remoteRejected bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.localAccepted[endpointID], s.localRejected[endpointID], s.remoteAccepted[endpointID], s.remoteRejected[endpointID]
}

// ClearConnectionDecision discards the recorded decision state for
// endpointID, called once a connection is fully torn down.
func (s *Session) ClearConnectionDecision(endpointID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.localAccepted, endpointID)
	delete(s.localRejected, endpointID)
	delete(s.remoteAccepted, endpointID)
	delete(s.remoteRejected, endpointID)
}

func (s *Session) OnConnectionInitiated(endpointID string) {
	if s.callbacks.OnConnectionInitiated != nil {
		s.callbacks.OnConnectionInitiated(endpointID)
	}
}

func (s *Session) OnConnectionAccepted(endpointID string) {
	if s.callbacks.OnConnectionAccepted != nil {
		s.callbacks.OnConnectionAccepted(endpointID)
	}
}

func (s *Session) OnConnectionRejected(endpointID string, status int) {
	if s.callbacks.OnConnectionRejected != nil {
		s.callbacks.OnConnectionRejected(endpointID, status)
	}
}

func (s *Session) OnBandwidthChanged(endpointID string, m medium.Medium) {
	if s.callbacks.OnBandwidthChanged != nil {
		s.callbacks.OnBandwidthChanged(endpointID, m)
	}
}

func (s *Session) OnDisconnected(endpointID string) {
	if s.callbacks.OnDisconnected != nil {
		s.callbacks.OnDisconnected(endpointID)
	}
}

// BeginAttempt ensures endpointID has an un-cancelled cancellation flag,
// creating it on first use and resetting it if one already exists so
// retries after a cancelled attempt work (spec.md §5 "Adding a cancellation
// flag for an endpoint that already has one resets it"). Called at the
// start of request_connection.
func (s *Session) BeginAttempt(endpointID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.cancellation[endpointID]
	if !ok {
		s.cancellation[endpointID] = &cancellationFlag{}
		return
	}
	f.reset()
}

// IsCancelled reports endpointID's cancellation state without creating a
// flag if none exists.
func (s *Session) IsCancelled(endpointID string) bool {
	s.mu.Lock()
	f, ok := s.cancellation[endpointID]
	s.mu.Unlock()
	return ok && f.isCancelled()
}

// Cancel flips endpointID's cancellation flag, creating it if necessary.
func (s *Session) Cancel(endpointID string) {
	s.mu.Lock()
	f, ok := s.cancellation[endpointID]
	if !ok {
		f = &cancellationFlag{}
		s.cancellation[endpointID] = f
	}
	s.mu.Unlock()
	f.cancel()
}

const endpointIDAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// generateEndpointID returns a 4-character opaque short id (spec.md §3).
func generateEndpointID() (string, error) {
	buf := make([]byte, 4)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("client: generate endpoint id: %w", err)
	}
	out := make([]byte, 4)
	for i, b := range buf {
		out[i] = endpointIDAlphabet[int(b)%len(endpointIDAlphabet)]
	}
	return string(out), nil
}
