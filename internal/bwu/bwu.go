// Package bwu implements the in-scope half of bandwidth-upgrade negotiation
// (spec.md §4.6): the control-frame choreography that hands an endpoint's
// channel over from a slow medium to a fast one. Opening the actual
// fast-medium socket is an external collaborator's job (the BwuManager
// contract below); this package owns the pause/swap/drain sequence once
// both ends have a new channel in hand.
package bwu

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"nearcore/internal/channel"
	"nearcore/internal/wire"
)

// Manager is the BwuManager capability contract the core consumes
// (spec.md §6.3 "initiate_bwu_for_endpoint"). The concrete implementation is
// an external collaborator that knows how to actually open a fast-medium
// socket; this module only needs to be able to ask it to start.
type Manager interface {
	InitiateForEndpoint(clientID, endpointID string)
}

// PathOpener opens the new, faster channel once a peer has advertised an
// UPGRADE_PATH_AVAILABLE. Concrete per-medium implementations live outside
// this module (spec.md §1 Non-goals); the tests use internal/channel.Loopback.
type PathOpener interface {
	Open(ctx context.Context, path wire.UpgradePathInfo) (channel.EndpointChannel, error)
}

// Negotiation drives one endpoint's channel-swap handoff. It holds no
// executor affinity of its own: its methods write and read frames directly
// on the channels passed to them and block until the peer's replies arrive.
type Negotiation struct {
	endpointID string
	opener     PathOpener
	sendOnOld  func(ctx context.Context, f *wire.Frame) error
	sendOnNew  func(ctx context.Context, f *wire.Frame) error
	manager    *channel.Manager
}

// New returns a Negotiation for endpointID that opens new channels through
// opener and registers them with manager. The sendOnOld/sendOnNew fields are
// left unset.
func New(endpointID string, opener PathOpener, manager *channel.Manager) *Negotiation {
	return &Negotiation{endpointID: endpointID, opener: opener, manager: manager}
}

// ProposeUpgrade is step 1 (spec.md §4.6): the initiator writes
// UPGRADE_PATH_AVAILABLE on the existing channel.
func (n *Negotiation) ProposeUpgrade(ctx context.Context, prior channel.EndpointChannel, path wire.UpgradePathInfo, supportsAck bool) error {
	frame := &wire.Frame{
		Type: wire.FrameBandwidthUpgradeNegotiation,
		Bwu: &wire.BandwidthUpgradeNegotiation{
			EventType:              wire.BwuUpgradePathAvailable,
			UpgradePathInfo:        &path,
			SupportsClientIntroAck: supportsAck,
		},
	}
	return writeFrame(ctx, prior, frame)
}

// AcceptUpgrade is the responder's side of step 2: open the new channel,
// write CLIENT_INTRODUCTION, and, if the initiator supports it, wait for the
// CLIENT_INTRODUCTION_ACK before returning.
func (n *Negotiation) AcceptUpgrade(ctx context.Context, path wire.UpgradePathInfo, supportsAck bool) (channel.EndpointChannel, error) {
	newCh, err := n.opener.Open(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("bwu: open upgrade path: %w", err)
	}

	intro := &wire.Frame{
		Type: wire.FrameBandwidthUpgradeNegotiation,
		Bwu: &wire.BandwidthUpgradeNegotiation{
			EventType:          wire.BwuClientIntroduction,
			ClientIntroduction: &wire.ClientIntroduction{EndpointID: n.endpointID},
		},
	}
	if err := writeFrame(ctx, newCh, intro); err != nil {
		newCh.Close(channel.CloseIOError)
		return nil, fmt.Errorf("bwu: write client introduction: %w", err)
	}

	if supportsAck {
		f, err := readFrame(ctx, newCh)
		if err != nil {
			newCh.Close(channel.CloseIOError)
			return nil, fmt.Errorf("bwu: read client introduction ack: %w", err)
		}
		if f.Type != wire.FrameBandwidthUpgradeNegotiation || f.Bwu == nil || f.Bwu.EventType != wire.BwuClientIntroductionAck {
			newCh.Close(channel.CloseIOError)
			return nil, fmt.Errorf("bwu: expected CLIENT_INTRODUCTION_ACK, got frame type %v", f.Type)
		}
	}
	return newCh, nil
}

// CompleteHandoff carries out step 3-4: pause and register the new channel,
// tell the peer LAST_WRITE_TO_PRIOR_CHANNEL on the old one, wait for the
// peer's own LAST_WRITE_TO_PRIOR_CHANNEL, then write SAFE_TO_CLOSE_PRIOR_CHANNEL
// and a Disconnection on the old channel, drain and close it (UPGRADED), and
// resume the new one (spec.md §4.6).
func (n *Negotiation) CompleteHandoff(ctx context.Context, prior, next channel.EndpointChannel) error {
	next.Pause()
	prior2, err := n.manager.ReplaceChannelForEndpoint(n.endpointID, next)
	if err != nil {
		return fmt.Errorf("bwu: register new channel: %w", err)
	}
	if prior2 != prior {
		slog.Warn("bwu: prior channel mismatch during handoff", "endpoint_id", n.endpointID)
	}

	lastWrite := &wire.Frame{
		Type: wire.FrameBandwidthUpgradeNegotiation,
		Bwu:  &wire.BandwidthUpgradeNegotiation{EventType: wire.BwuLastWriteToPriorChannel},
	}
	if err := writeFrame(ctx, prior, lastWrite); err != nil {
		return fmt.Errorf("bwu: write last-write-to-prior-channel: %w", err)
	}

	if err := n.waitForPeerReadyToClose(ctx, prior); err != nil {
		return err
	}

	safeToClose := &wire.Frame{
		Type: wire.FrameBandwidthUpgradeNegotiation,
		Bwu:  &wire.BandwidthUpgradeNegotiation{EventType: wire.BwuSafeToClosePriorChannel},
	}
	if err := writeFrame(ctx, prior, safeToClose); err != nil {
		return fmt.Errorf("bwu: write safe-to-close-prior-channel: %w", err)
	}

	// The Disconnection goes through the prior channel's ordinary Write, so it
	// is sealed whenever encryption is attached to that channel; there is no
	// unencrypted write path here.
	disconnect := &wire.Frame{Type: wire.FrameDisconnection, Disconnection: &wire.Disconnection{RequestSafeToDisconnect: true}}
	if err := writeFrame(ctx, prior, disconnect); err != nil {
		return fmt.Errorf("bwu: write disconnection: %w", err)
	}

	drain(prior)
	if err := prior.Close(channel.CloseUpgraded); err != nil {
		slog.Warn("bwu: closing prior channel", "endpoint_id", n.endpointID, "err", err)
	}
	next.Resume()
	return nil
}

// waitForPeerReadyToClose blocks until the peer's LAST_WRITE_TO_PRIOR_CHANNEL
// arrives on the old channel (the mirror image of the frame this side just
// sent, from the peer driving its own CompleteHandoff).
func (n *Negotiation) waitForPeerReadyToClose(ctx context.Context, prior channel.EndpointChannel) error {
	f, err := readFrame(ctx, prior)
	if err != nil {
		return fmt.Errorf("bwu: read last-write-to-prior-channel: %w", err)
	}
	if f.Type != wire.FrameBandwidthUpgradeNegotiation || f.Bwu == nil || f.Bwu.EventType != wire.BwuLastWriteToPriorChannel {
		return fmt.Errorf("bwu: expected LAST_WRITE_TO_PRIOR_CHANNEL, got frame type %v", f.Type)
	}
	return nil
}

// drain reads and discards any frames still in flight on ch before it's
// closed, so a straggling payload frame doesn't get silently lost mid-read
// by the caller that's about to stop looking at this channel.
func drain(ch channel.EndpointChannel) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	for {
		if _, err := ch.Read(ctx); err != nil {
			return
		}
	}
}

func writeFrame(ctx context.Context, ch channel.EndpointChannel, f *wire.Frame) error {
	b, err := wire.Encode(f)
	if err != nil {
		return err
	}
	return ch.Write(ctx, b)
}

func readFrame(ctx context.Context, ch channel.EndpointChannel) (*wire.Frame, error) {
	b, err := ch.Read(ctx)
	if err != nil {
		return nil, err
	}
	return wire.Decode(b)
}
