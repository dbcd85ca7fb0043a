package pcp

import (
	"context"
	"fmt"

	"nearcore/internal/channel"
	"nearcore/internal/crypto"
	"nearcore/internal/medium"
	"nearcore/internal/pending"
	"nearcore/internal/wire"
)

// registerFrameProcessors wires the handler up as the FrameProcessor for
// every frame type the core itself must react to once an endpoint is
// registered with the EndpointManager (spec.md §6.3 "frame_processors_").
// PayloadTransfer and AutoReconnect are out of scope (spec.md §1 Non-goals)
// and are left unregistered; the EndpointManager drops frames with no
// registered processor.
func (h *Handler) registerFrameProcessors() {
	if h.endpoints == nil {
		return
	}
	h.endpoints.RegisterFrameProcessor(wire.FrameConnectionResponse, frameProcessorFunc(h.onConnectionResponseFrame))
	h.endpoints.RegisterFrameProcessor(wire.FrameDisconnection, frameProcessorFunc(h.onDisconnectionFrame))
	h.endpoints.RegisterFrameProcessor(wire.FrameBandwidthUpgradeNegotiation, frameProcessorFunc(h.onBwuFrame))
}

// frameProcessorFunc adapts a plain function to endpointmgr.FrameProcessor.
type frameProcessorFunc func(endpointID string, f *wire.Frame)

func (f frameProcessorFunc) ProcessFrame(endpointID string, frame *wire.Frame) { f(endpointID, frame) }

func (h *Handler) onConnectionResponseFrame(endpointID string, f *wire.Frame) {
	h.serial.Submit(func() { h.onRemoteResponse(endpointID, f.ConnectionResponse) })
}

func (h *Handler) onDisconnectionFrame(endpointID string, f *wire.Frame) {
	h.serial.Submit(func() {
		h.teardownEndpoint(endpointID, channel.CloseRemoteDisconnect)
	})
}

func (h *Handler) onBwuFrame(endpointID string, f *wire.Frame) {
	// The channel-swap choreography (internal/bwu.Negotiation) drives its own
	// frame reads directly off the paused/resumed channel; frames that reach
	// the generic dispatcher here are logged for visibility only.
	if f.Bwu != nil {
		logger().Debug("bwu frame observed by dispatcher", "endpoint_id", endpointID, "event", f.Bwu.EventType)
	}
}

// onSocket is the callback bound to registry.StartAccepting for medium m: it
// runs on whatever goroutine the medium implementation delivers a new
// incoming socket from, and hands the work to the serial executor
// (spec.md §4.5 "on_incoming_connection").
func (h *Handler) onSocket(serviceID string, m medium.Medium) func(medium.Socket) {
	return func(s medium.Socket) {
		ch, ok := s.(channel.EndpointChannel)
		if !ok {
			logger().Warn("medium handed back a socket with no channel adapter", "medium", m)
			return
		}
		h.serial.Submit(func() {
			h.onIncomingConnection(serviceID, m, ch)
		})
	}
}

// onIncomingConnection reads the peer's ConnectionRequest and decides
// whether to accept the attempt into the pending map (spec.md §4.5
// "on_incoming_connection", §6.4 tie-breaking).
func (h *Handler) onIncomingConnection(serviceID string, m medium.Medium, ch channel.EndpointChannel) {
	if !h.session.IsAdvertising() && !h.session.IsListening() {
		ch.Close(channel.CloseUnspecified)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.flags.ConnectionRequestReadTimeout)
	defer cancel()

	frame, err := readFrame(ctx, ch)
	if err != nil || frame.Type != wire.FrameConnectionRequest || frame.ConnectionRequest == nil {
		logger().Warn("on_incoming_connection: failed to read connection request", "err", err)
		ch.Close(channel.CloseIOError)
		return
	}
	req := frame.ConnectionRequest

	if h.endpoints.IsRegistered(req.EndpointID) {
		h.writeResponse(ch, false)
		ch.Close(channel.CloseUnspecified)
		return
	}

	nonce := uint32(req.Nonce)
	if existing, ok := h.pending.Get(req.EndpointID); ok {
		if !h.tieBreak(existing, req.EndpointID, nonce, ch) {
			return
		}
		// This incoming attempt won the tie-break: existing's outgoing
		// channel has already been torn down, fall through and register
		// this socket as the (sole) pending connection for the endpoint.
	}

	admission := h.admissionCounts()
	if !h.strategy.CanReceiveIncomingConnection(admission) {
		h.writeResponse(ch, false)
		ch.Close(channel.CloseUnspecified)
		return
	}

	listener := pending.Listener{
		OnInitiated: func(id string) { h.session.OnConnectionInitiated(id) },
		OnAccepted:  func(id string) { h.session.OnConnectionAccepted(id) },
		OnRejected:  func(id string, st pending.Status) { h.session.OnConnectionRejected(id, int(st)) },
	}
	info := pending.NewIncoming(req.EndpointID, nonce, m, ch, listener)
	info.RemoteEndpointInfo = req.EndpointInfo
	keepAliveInterval, keepAliveTimeout := int(req.KeepAliveIntervalMs), int(req.KeepAliveTimeoutMs)
	if keepAliveInterval <= 0 {
		keepAliveInterval = int(h.flags.KeepAliveIntervalDefault.Milliseconds())
	}
	if keepAliveTimeout <= 0 {
		keepAliveTimeout = int(h.flags.KeepAliveTimeoutDefault.Milliseconds())
	}
	info.ConnectionOptions = pending.ConnectionOptions{
		RemoteKeepAliveIntervalMs: keepAliveInterval,
		RemoteKeepAliveTimeoutMs:  keepAliveTimeout,
		RemoteBluetoothMAC:        req.Medium.Bssid,
	}
	for _, raw := range req.Mediums {
		info.SupportedMediums = append(info.SupportedMediums, medium.Medium(raw))
	}
	h.pending.Put(info)
	h.channels.RegisterChannel(req.EndpointID, ch)

	info.Listener.OnInitiated(req.EndpointID)

	h.runner.StartServer(req.EndpointID, ch, crypto.Listener{
		OnSuccess: func(res crypto.Result) { h.onHandshakeSuccess(req.EndpointID, res, ch) },
		OnFailure: func(endpointID string, _ channel.EndpointChannel) { h.onHandshakeFailure(endpointID) },
	})
}

// tieBreak resolves a simultaneous-connect collision per spec.md §6.4: the
// side whose own nonce is higher keeps its outgoing attempt and rejects the
// incoming socket; the side whose own nonce is lower drops its outgoing
// attempt and lets the incoming one proceed instead. Reports whether the
// caller should continue processing the incoming socket as a fresh pending
// connection.
func (h *Handler) tieBreak(existing *pending.Info, endpointID string, incomingNonce uint32, ch channel.EndpointChannel) bool {
	if incomingNonce <= existing.Nonce {
		ch.Close(channel.CloseUnspecified)
		return false
	}
	if priorCh := h.channels.GetChannelForEndpoint(endpointID); priorCh != nil {
		priorCh.Close(channel.CloseUnspecified)
	}
	h.channels.RemoveChannelForEndpoint(endpointID)
	h.pending.Remove(endpointID)
	return true
}

func (h *Handler) admissionCounts() medium.Admission {
	var a medium.Admission
	for _, id := range h.pending.Snapshot() {
		info, ok := h.pending.Get(id)
		if !ok {
			continue
		}
		if info.IsIncoming {
			a.Incoming++
		} else {
			a.Outgoing++
		}
	}
	return a
}

// RequestConnection initiates an outgoing connection attempt to endpointID
// over the first medium the registry can connect on, among those the
// discovery table has recorded for it (spec.md §4.5 "request_connection").
func (h *Handler) RequestConnection(ctx context.Context, endpointID string, remoteEndpointInfo []byte) (Status, error) {
	return h.run(ctx, func() Status {
		if h.endpoints.IsRegistered(endpointID) {
			return StatusAlreadyConnectedToEndpoint
		}
		if _, ok := h.pending.Get(endpointID); ok {
			return StatusOutOfOrderApiCall
		}
		if !h.strategy.CanSendOutgoingConnection(h.admissionCounts()) {
			return StatusOutOfOrderApiCall
		}

		candidates := h.table.GetPreferred(endpointID)
		if len(candidates) == 0 {
			return StatusEndpointUnknown
		}

		h.session.BeginAttempt(endpointID)

		var lastErr error
		for _, cand := range candidates {
			if h.session.IsCancelled(endpointID) {
				return StatusError
			}
			sock, err := h.registry.Connect(ctx, cand.Medium, endpointID, nil)
			if err != nil {
				lastErr = err
				continue
			}
			ch, ok := sock.(channel.EndpointChannel)
			if !ok {
				lastErr = fmt.Errorf("pcp: medium %s returned a socket with no channel adapter", cand.Medium)
				continue
			}
			return h.startOutgoing(ctx, endpointID, remoteEndpointInfo, cand.Medium, ch)
		}

		if lastErr != nil {
			logger().Warn("request_connection: every candidate medium failed", "endpoint_id", endpointID, "err", lastErr)
		}
		return mediumErrorStatus(candidates[0].Medium)
	})
}

func (h *Handler) startOutgoing(ctx context.Context, endpointID string, remoteEndpointInfo []byte, m medium.Medium, ch channel.EndpointChannel) Status {
	nonce, err := randomNonce()
	if err != nil {
		ch.Close(channel.CloseUnspecified)
		return StatusError
	}

	req := &wire.Frame{
		Type: wire.FrameConnectionRequest,
		ConnectionRequest: &wire.ConnectionRequest{
			EndpointID:          h.session.LocalEndpointID(),
			EndpointInfo:        h.session.LocalEndpointInfo(),
			Nonce:               int32(nonce),
			KeepAliveIntervalMs: int32(h.flags.KeepAliveIntervalDefault.Milliseconds()),
			KeepAliveTimeoutMs:  int32(h.flags.KeepAliveTimeoutDefault.Milliseconds()),
		},
	}
	if err := writeFrame(ctx, ch, req); err != nil {
		ch.Close(channel.CloseIOError)
		return StatusEndpointIOError
	}

	listener := pending.Listener{
		OnInitiated: func(id string) { h.session.OnConnectionInitiated(id) },
		OnAccepted:  func(id string) { h.session.OnConnectionAccepted(id) },
		OnRejected:  func(id string, st pending.Status) { h.session.OnConnectionRejected(id, int(st)) },
	}
	info := pending.NewOutgoing(endpointID, nonce, m, ch, listener)
	info.RemoteEndpointInfo = remoteEndpointInfo
	h.pending.Put(info)
	h.channels.RegisterChannel(endpointID, ch)
	info.Listener.OnInitiated(endpointID)

	h.runner.StartClient(endpointID, ch, crypto.Listener{
		OnSuccess: func(res crypto.Result) { h.onHandshakeSuccess(endpointID, res, ch) },
		OnFailure: func(id string, _ channel.EndpointChannel) { h.onHandshakeFailure(id) },
	})

	return StatusSuccess
}

// readRemoteDecision waits for the peer's single CONNECTION_RESPONSE frame
// while endpointID is still pending and feeds the decision back onto the
// serial executor. It starts only once the encryption handshake has
// completed, since the handshake and this read would otherwise race to
// consume each other's bytes off the same channel (spec.md §4.4 runs before
// §4.5's accept/reject exchange on the wire, not concurrently with it). It
// exits after that one frame (or on read error): once both sides have
// decided, evaluate_connection_result hands the channel to the
// EndpointManager, whose own read pump becomes the channel's sole reader
// (spec.md §4.5 "evaluate_connection_result", §5 "EndpointChannel
// ownership").
func (h *Handler) readRemoteDecision(endpointID string, ch channel.EndpointChannel) {
	f, err := readFrame(context.Background(), ch)
	if err != nil {
		return
	}
	switch f.Type {
	case wire.FrameConnectionResponse:
		h.serial.Submit(func() { h.onRemoteResponse(endpointID, f.ConnectionResponse) })
	case wire.FrameDisconnection:
		h.serial.Submit(func() { h.teardownEndpoint(endpointID, channel.CloseRemoteDisconnect) })
	}
}

func (h *Handler) onRemoteResponse(endpointID string, resp *wire.ConnectionResponse) {
	info, ok := h.pending.Get(endpointID)
	if !ok || resp == nil {
		return
	}
	if resp.EffectiveResponse() == wire.ResponseAccept {
		info.RemoteAccepted = true
		h.session.RemoteEndpointAccepted(endpointID)
	} else {
		info.RemoteRejected = true
		h.session.RemoteEndpointRejected(endpointID)
	}
	h.evaluateConnectionResult(context.Background(), endpointID)
}

func (h *Handler) onHandshakeSuccess(endpointID string, res crypto.Result, ch channel.EndpointChannel) {
	h.serial.Submit(func() {
		info, ok := h.pending.Get(endpointID)
		if !ok {
			return
		}
		info.UKey2 = res.Context
		info.AuthenticationToken = res.AuthToken
		info.ConnectionToken = res.AuthToken

		if info.LocalAccepted || info.LocalRejected {
			if err := h.writeLocalDecision(context.Background(), endpointID, info); err != nil {
				logger().Warn("on_handshake_success: failed to write deferred decision", "endpoint_id", endpointID, "err", err)
				h.teardownEndpoint(endpointID, channel.CloseIOError)
				return
			}
		}
		go h.readRemoteDecision(endpointID, ch)
		h.evaluateConnectionResult(context.Background(), endpointID)
	})
}

func (h *Handler) onHandshakeFailure(endpointID string) {
	h.serial.Submit(func() {
		info, ok := h.pending.Get(endpointID)
		if !ok {
			return
		}
		if info.Result != nil && !info.Result.IsSet() {
			info.Result.Set(pending.StatusEndpointIOError)
		}
		h.pending.Remove(endpointID)
		h.channels.RemoveChannelForEndpoint(endpointID)
	})
}

// AcceptConnection records the local accept decision for endpointID and
// writes CONNECTION_RESPONSE(ACCEPT), then evaluates whether both sides
// have now decided (spec.md §4.5 "accept_connection").
func (h *Handler) AcceptConnection(ctx context.Context, endpointID string) (Status, error) {
	return h.run(ctx, func() Status {
		return h.decide(ctx, endpointID, true)
	})
}

// RejectConnection is the reject counterpart of AcceptConnection.
func (h *Handler) RejectConnection(ctx context.Context, endpointID string) (Status, error) {
	return h.run(ctx, func() Status {
		return h.decide(ctx, endpointID, false)
	})
}

// decide records the local accept/reject decision. The CONNECTION_RESPONSE
// frame itself is only written once the encryption handshake has completed
// (writeLocalDecision, called either here or from onHandshakeSuccess,
// whichever runs second): writing it earlier would race the handshake's own
// reads/writes on the same channel (spec.md §4.4 precedes §4.5's
// accept/reject exchange on the wire).
func (h *Handler) decide(ctx context.Context, endpointID string, accept bool) Status {
	info, ok := h.pending.Get(endpointID)
	if !ok {
		return StatusEndpointUnknown
	}
	if h.channels.GetChannelForEndpoint(endpointID) == nil {
		return StatusEndpointUnknown
	}

	if accept {
		info.LocalAccepted = true
		h.session.LocalEndpointAccepted(endpointID)
	} else {
		info.LocalRejected = true
		h.session.LocalEndpointRejected(endpointID)
	}

	if info.UKey2 == nil {
		// Handshake still running; writeLocalDecision fires from
		// onHandshakeSuccess once it completes.
		return StatusSuccess
	}
	if err := h.writeLocalDecision(ctx, endpointID, info); err != nil {
		return StatusEndpointIOError
	}
	h.evaluateConnectionResult(ctx, endpointID)
	return StatusSuccess
}

// writeLocalDecision sends the CONNECTION_RESPONSE frame for whichever
// decision decide() already recorded on info.
func (h *Handler) writeLocalDecision(ctx context.Context, endpointID string, info *pending.Info) error {
	ch := h.channels.GetChannelForEndpoint(endpointID)
	if ch == nil {
		return fmt.Errorf("pcp: no channel registered for endpoint %s", endpointID)
	}
	return h.writeResponse(ch, info.LocalAccepted)
}

func (h *Handler) writeResponse(ch channel.EndpointChannel, accept bool) error {
	resp := wire.ResponseReject
	status := wire.StatusConnectionRejected
	if accept {
		resp = wire.ResponseAccept
		status = wire.StatusSuccess
	}
	return writeFrame(context.Background(), ch, &wire.Frame{
		Type: wire.FrameConnectionResponse,
		ConnectionResponse: &wire.ConnectionResponse{
			Status:   status,
			Response: resp,
		},
	})
}

// evaluateConnectionResult checks whether both sides have now decided on
// endpointID and, if so, either promotes it to a live, encrypted connection
// or tears it down (spec.md §4.5 "evaluate_connection_result").
func (h *Handler) evaluateConnectionResult(ctx context.Context, endpointID string) {
	info, ok := h.pending.Get(endpointID)
	if !ok {
		return
	}
	if !info.BothDecided() {
		return
	}

	if !info.BothAccepted() {
		if info.Listener.OnRejected != nil {
			info.Listener.OnRejected(endpointID, pending.StatusConnectionRejected)
		}
		h.session.OnConnectionRejected(endpointID, int(StatusConnectionRejected))
		h.closeRejected(endpointID)
		return
	}

	ch := h.channels.GetChannelForEndpoint(endpointID)
	if ch == nil || info.UKey2 == nil {
		return
	}
	if err := h.channels.EncryptChannelForEndpoint(endpointID, info.UKey2); err != nil {
		logger().Warn("evaluate_connection_result: failed to attach encryption", "endpoint_id", endpointID, "err", err)
		h.teardownEndpoint(endpointID, channel.CloseIOError)
		return
	}

	if err := h.endpoints.RegisterEndpoint(h.session.ClientID(), endpointID, info.RemoteEndpointInfo, ch, info.Listener, info.AuthenticationToken); err != nil {
		logger().Warn("evaluate_connection_result: failed to register endpoint", "endpoint_id", endpointID, "err", err)
		h.teardownEndpoint(endpointID, channel.CloseIOError)
		return
	}

	info.Channel = nil
	if info.Result != nil && !info.Result.IsSet() {
		info.Result.Set(pending.StatusSuccess)
	}
	h.pending.Remove(endpointID)

	if info.Listener.OnAccepted != nil {
		info.Listener.OnAccepted(endpointID)
	}
	h.session.OnBandwidthChanged(endpointID, info.Medium)

	if h.flags.AutoUpgradeBandwidth && info.IsIncoming && h.bwuMgr != nil {
		h.bwuMgr.InitiateForEndpoint(h.session.ClientID(), endpointID)
	}
}

func (h *Handler) closeRejected(endpointID string) {
	ch := h.channels.GetChannelForEndpoint(endpointID)
	closeFn := func() {
		h.pending.Remove(endpointID)
		h.channels.RemoveChannelForEndpoint(endpointID)
		if ch != nil {
			ch.Close(channel.CloseUnspecified)
		}
	}
	if h.flags.RejectionCloseDelay <= 0 {
		closeFn()
		return
	}
	h.alarms.Schedule("reject:"+endpointID, h.flags.RejectionCloseDelay, func() {
		h.serial.Submit(closeFn)
	})
}

// teardownEndpoint tears down a fully-registered (or still-pending)
// endpoint, whichever map currently owns it.
func (h *Handler) teardownEndpoint(endpointID string, reason channel.CloseReason) {
	if ch, ok := h.endpoints.ChannelFor(endpointID); ok {
		h.endpoints.DiscardEndpoint(h.session.ClientID(), endpointID, reason.String())
		ch.Close(reason)
		h.channels.RemoveChannelForEndpoint(endpointID)
		h.session.OnDisconnected(endpointID)
		return
	}
	if ch := h.channels.GetChannelForEndpoint(endpointID); ch != nil {
		ch.Close(reason)
		h.channels.RemoveChannelForEndpoint(endpointID)
	}
	h.pending.Remove(endpointID)
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
