package pcp

import (
	"context"
	"crypto/sha256"
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"log/slog"

	"nearcore/internal/bwu"
	"nearcore/internal/channel"
	"nearcore/internal/client"
	"nearcore/internal/discovery"
	"nearcore/internal/endpointmgr"
	"nearcore/internal/executor"
	"nearcore/internal/flags"
	"nearcore/internal/medium"
	"nearcore/internal/pending"
	cryptorunner "nearcore/internal/crypto"
)

// Handler is the PcpHandler: the single serial-executor-driven state
// machine that owns advertising, discovery, and connection lifecycle for
// one ClientSession (spec.md §4.5).
type Handler struct {
	session   *client.Session
	registry  medium.Registry
	strategy  medium.Strategy
	flags     flags.Snapshot
	stableIDs *client.StableIDCache

	serial *executor.Serial
	alarms *executor.Alarms

	table     *discovery.Table
	pending   *pending.Map
	channels  *channel.Manager
	endpoints *endpointmgr.Sink
	runner    *cryptorunner.Runner
	bwuMgr    bwu.Manager

	serviceID string
}

// NewHandler wires one PcpHandler together. registry, endpoints, and bwuMgr
// are the external collaborators (spec.md §6.3); stableIDs may be nil, in
// which case advertising keeps the session's current local endpoint id.
func NewHandler(session *client.Session, registry medium.Registry, strategy medium.Strategy, flagSnapshot flags.Snapshot, stableIDs *client.StableIDCache, endpoints *endpointmgr.Sink, bwuMgr bwu.Manager) *Handler {
	alarms := executor.NewAlarms()
	h := &Handler{
		session:   session,
		registry:  registry,
		strategy:  strategy,
		flags:     flagSnapshot,
		stableIDs: stableIDs,
		serial:    executor.NewSerial(64),
		alarms:    alarms,
		pending:   pending.NewMap(),
		channels:  channel.NewManager(),
		endpoints: endpoints,
		runner:    cryptorunner.NewRunner(),
		bwuMgr:    bwuMgr,
	}
	h.table = discovery.NewTable(alarms, discovery.Listener{
		OnEndpointFound: func(ep discovery.Endpoint) { session.OnEndpointFound(ep.EndpointID, ep.EndpointInfo) },
		OnEndpointLost:  func(id string) { session.OnEndpointLost(id) },
	})
	h.registerFrameProcessors()
	return h
}

// Stop shuts the handler's executors down. Call once the session is fully
// torn down.
func (h *Handler) Stop() {
	h.alarms.StopAll()
	h.serial.Stop()
}

// run posts fn onto the serial executor S and blocks the caller for its
// result, the shape every public operation in spec.md §4.5 uses.
func (h *Handler) run(ctx context.Context, fn func() Status) (Status, error) {
	var result Status
	err := h.serial.Run(ctx, func() error {
		result = fn()
		return nil
	})
	return result, err
}

func serviceIDHash(serviceID string, n int) []byte {
	sum := sha256.Sum256([]byte(serviceID))
	if n > len(sum) {
		n = len(sum)
	}
	return sum[:n]
}

func randomNonce() (uint32, error) {
	var b [4]byte
	if _, err := rand.Read(b[:]); err != nil {
		return 0, fmt.Errorf("pcp: generate nonce: %w", err)
	}
	return binary.BigEndian.Uint32(b[:]), nil
}

func logger() *slog.Logger { return slog.Default() }
