// Package endpointmgr defines the EndpointManager capability contract
// (spec.md §6.3) and a minimal in-repo registration sink the PcpHandler
// hands channels to once a connection is fully encrypted. Payload
// chunking/transfer itself is explicitly out of scope (spec.md §1
// Non-goals); this package only tracks "who owns which channel now" for
// accept/reject and diagnostics.
package endpointmgr

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"nearcore/internal/channel"
	"nearcore/internal/pending"
	"nearcore/internal/wire"
)

// FrameProcessor receives post-registration frames of one type — the core
// registers itself for FrameConnectionResponse so that late-arriving
// response frames (e.g. a retransmit) still reach PcpHandler after the
// endpoint has left the pending map.
type FrameProcessor interface {
	ProcessFrame(endpointID string, f *wire.Frame)
}

// Manager is the EndpointManager contract the core consumes (spec.md §6.3).
type Manager interface {
	RegisterFrameProcessor(t wire.FrameType, p FrameProcessor)
	RegisterEndpoint(clientID, endpointID string, info []byte, ch channel.EndpointChannel, listener pending.Listener, authToken string) error
	DiscardEndpoint(clientID, endpointID string, reason string)
}

type registeredEndpoint struct {
	clientID  string
	info      []byte
	channel   channel.EndpointChannel
	listener  pending.Listener
	authToken string
	since     time.Time
}

// Sink is the in-repo Manager implementation: it owns the map of live,
// fully-registered endpoints and fans incoming frames out to whichever
// processor was registered for that frame type, mirroring the teacher's
// registration-table pattern in server/internal/core (one handler per
// message kind, looked up by a small enum key).
type Sink struct {
	mu        sync.Mutex
	endpoints map[string]*registeredEndpoint
	processors map[wire.FrameType]FrameProcessor
}

var _ Manager = (*Sink)(nil)

// NewSink returns an empty registration sink.
func NewSink() *Sink {
	return &Sink{
		endpoints:  make(map[string]*registeredEndpoint),
		processors: make(map[wire.FrameType]FrameProcessor),
	}
}

func (s *Sink) RegisterFrameProcessor(t wire.FrameType, p FrameProcessor) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.processors[t] = p
}

// RegisterEndpoint records endpointID as fully connected, owned by
// clientID. This is the moment PendingConnectionInfo.Channel is nulled in
// the caller and ownership passes here (spec.md §3 invariant 2, §5
// "EndpointChannel ownership").
func (s *Sink) RegisterEndpoint(clientID, endpointID string, info []byte, ch channel.EndpointChannel, listener pending.Listener, authToken string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.endpoints[endpointID]; exists {
		return fmt.Errorf("endpointmgr: endpoint %s already registered", endpointID)
	}
	s.endpoints[endpointID] = &registeredEndpoint{
		clientID:  clientID,
		info:      info,
		channel:   ch,
		listener:  listener,
		authToken: authToken,
		since:     time.Now(),
	}
	slog.Debug("endpoint registered", "client_id", clientID, "endpoint_id", endpointID)
	go s.pump(endpointID, ch)
	return nil
}

// pump continuously reads frames off ch and fans them out via Dispatch,
// and exits on the first read error. It does not consult the registration:
// after ReplaceChannelFor starts a pump on the new channel, the pump on the
// old channel keeps running until a read on the old channel fails.
func (s *Sink) pump(endpointID string, ch channel.EndpointChannel) {
	for {
		b, err := ch.Read(context.Background())
		if err != nil {
			slog.Debug("endpoint read loop exiting", "endpoint_id", endpointID, "err", err)
			return
		}
		f, err := wire.Decode(b)
		if err != nil {
			slog.Warn("endpoint read loop: invalid frame", "endpoint_id", endpointID, "err", err)
			continue
		}
		s.Dispatch(endpointID, f)
	}
}

// DiscardEndpoint removes endpointID's registration, e.g. on disconnection
// or rejection-close. It does not close the channel; the caller has already
// done so (or is the one deciding whether to delay the close).
func (s *Sink) DiscardEndpoint(clientID, endpointID string, reason string) {
	s.mu.Lock()
	_, existed := s.endpoints[endpointID]
	delete(s.endpoints, endpointID)
	s.mu.Unlock()

	if existed {
		slog.Debug("endpoint discarded", "client_id", clientID, "endpoint_id", endpointID, "reason", reason)
	}
}

// ChannelFor returns the channel registered for endpointID, if any. This is
// the read side of the "shared, reference-counted" channel ownership model
// (spec.md §5): once registered, accept/reject paths fetch the channel from
// here rather than from the now-nulled PendingConnectionInfo.Channel.
func (s *Sink) ChannelFor(endpointID string) (channel.EndpointChannel, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ep, ok := s.endpoints[endpointID]
	if !ok {
		return nil, false
	}
	return ep.channel, true
}

// ReplaceChannelFor swaps the channel backing an already-registered
// endpoint, used by internal/bwu once a bandwidth upgrade completes.
func (s *Sink) ReplaceChannelFor(endpointID string, ch channel.EndpointChannel) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ep, ok := s.endpoints[endpointID]
	if !ok {
		return fmt.Errorf("endpointmgr: endpoint %s not registered", endpointID)
	}
	ep.channel = ch
	go s.pump(endpointID, ch)
	return nil
}

// Dispatch fans an inbound frame for an already-registered endpoint out to
// the processor registered for its type, if any.
func (s *Sink) Dispatch(endpointID string, f *wire.Frame) {
	s.mu.Lock()
	p, ok := s.processors[f.Type]
	s.mu.Unlock()
	if ok {
		p.ProcessFrame(endpointID, f)
	}
}

// IsRegistered reports whether endpointID currently has a live registration.
func (s *Sink) IsRegistered(endpointID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.endpoints[endpointID]
	return ok
}

// Endpoints returns every currently-registered endpoint id, for
// diagnostics.
func (s *Sink) Endpoints() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.endpoints))
	for id := range s.endpoints {
		out = append(out, id)
	}
	return out
}
