package pcp

import (
	"context"
	"fmt"
	"sync"

	"nearcore/internal/channel"
	"nearcore/internal/client"
	"nearcore/internal/endpointmgr"
	"nearcore/internal/flags"
	"nearcore/internal/medium"
)

// fakeNetwork connects several fakeRegistry instances so RequestConnection
// on one can dial StartAccepting on another, standing in for real radio I/O
// (spec.md §1 Non-goals) the way internal/channel.Loopback stands in for a
// real socket.
type fakeNetwork struct {
	mu        sync.Mutex
	accepting map[string]func(medium.Socket) // keyed by the accepting device's endpoint id
}

func newFakeNetwork() *fakeNetwork {
	return &fakeNetwork{accepting: make(map[string]func(medium.Socket))}
}

type fakeRegistry struct {
	net       *fakeNetwork
	localID   string
	available map[medium.Medium]bool
}

func newFakeRegistry(net *fakeNetwork, localID string) *fakeRegistry {
	return &fakeRegistry{net: net, localID: localID, available: map[medium.Medium]bool{
		medium.Bluetooth: true,
		medium.BLE:       true,
		medium.WifiLan:   true,
	}}
}

func (r *fakeRegistry) IsAvailable(m medium.Medium) bool { return r.available[m] }

func (r *fakeRegistry) StartAdvertising(ctx context.Context, m medium.Medium, serviceID string, blob medium.Advertisement) error {
	return nil
}

func (r *fakeRegistry) StopAdvertising(m medium.Medium, serviceID string) error { return nil }

func (r *fakeRegistry) StartAccepting(ctx context.Context, m medium.Medium, serviceID string, onSocket func(medium.Socket)) error {
	r.net.mu.Lock()
	defer r.net.mu.Unlock()
	r.net.accepting[r.localID] = onSocket
	return nil
}

func (r *fakeRegistry) StopAccepting(m medium.Medium, serviceID string) error {
	r.net.mu.Lock()
	defer r.net.mu.Unlock()
	delete(r.net.accepting, r.localID)
	return nil
}

func (r *fakeRegistry) StartDiscovery(ctx context.Context, m medium.Medium, serviceID string, cb medium.DiscoveredCallbacks) error {
	return nil
}

func (r *fakeRegistry) StopDiscovery(m medium.Medium, serviceID string) error { return nil }

func (r *fakeRegistry) Connect(ctx context.Context, m medium.Medium, endpointID string, cancel <-chan struct{}) (medium.Socket, error) {
	r.net.mu.Lock()
	onSocket, ok := r.net.accepting[endpointID]
	r.net.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("fakeRegistry: no one accepting for endpoint %s", endpointID)
	}
	a, b := channel.NewLoopbackPair(m, r.localID, endpointID)
	onSocket(b)
	return a, nil
}

// newTestHandler builds a Handler wired to a fresh session, strategy, and
// endpointmgr sink sharing net under clientID.
func newTestHandler(net *fakeNetwork, clientID string) (*Handler, *client.Session, *fakeRegistry, *endpointmgr.Sink) {
	session, err := client.New(clientID, []byte("info-"+clientID), client.Callbacks{})
	if err != nil {
		panic(err)
	}
	reg := newFakeRegistry(net, session.LocalEndpointID())
	sink := endpointmgr.NewSink()
	h := NewHandler(session, reg, medium.Cluster, flags.Default(), nil, sink, nil)
	return h, session, reg, sink
}
