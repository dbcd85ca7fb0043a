package wire

// This file holds the per-frame-type encode/decode pairs. Keeping them
// grouped here (rather than spread across codec.go) mirrors how
// offline_frames.cc groups one To*/From* pair per frame kind.

func encodeConnectionRequest(w *writer, c *ConnectionRequest) {
	w.putString(c.EndpointID)
	w.putBytes(c.EndpointInfo)
	w.putI32(c.Nonce)
	w.putBool(c.Medium.Supports5Ghz)
	w.putString(c.Medium.Bssid)
	w.putI32(c.Medium.ApFrequency)
	w.putBytes(c.Medium.IPAddress)
	w.putU8(uint8(len(c.Mediums)))
	for _, m := range c.Mediums {
		w.putU8(m)
	}
	w.putI32(c.KeepAliveIntervalMs)
	w.putI32(c.KeepAliveTimeoutMs)
	w.putOptional(c.Device.ConnectionsDevice != nil, func() { w.putBytes(c.Device.ConnectionsDevice) })
	w.putOptional(c.Device.PresenceDevice != nil, func() { w.putBytes(c.Device.PresenceDevice) })
}

func decodeConnectionRequest(r *reader) (*ConnectionRequest, error) {
	c := &ConnectionRequest{}
	c.EndpointID = r.getString()
	c.EndpointInfo = r.getBytes()
	c.Nonce = r.getI32()
	c.Medium.Supports5Ghz = r.getBool()
	c.Medium.Bssid = r.getString()
	c.Medium.ApFrequency = r.getI32()
	c.Medium.IPAddress = r.getBytes()
	n := r.getU8()
	c.Mediums = make([]uint8, 0, n)
	for i := uint8(0); i < n; i++ {
		c.Mediums = append(c.Mediums, r.getU8())
	}
	c.KeepAliveIntervalMs = r.getI32()
	c.KeepAliveTimeoutMs = r.getI32()
	r.getOptional(func() { c.Device.ConnectionsDevice = r.getBytes() })
	r.getOptional(func() { c.Device.PresenceDevice = r.getBytes() })
	return c, r.err
}

func encodeConnectionResponse(w *writer, c *ConnectionResponse) {
	w.putI32(int32(c.Status))
	w.putU8(uint8(c.Response))
	w.putBytes(c.OsInfo)
	w.putI32(c.MultiplexSocketBitmask)
	w.putI32(c.SafeToDisconnectVersion)
}

func decodeConnectionResponse(r *reader) (*ConnectionResponse, error) {
	c := &ConnectionResponse{}
	c.Status = ResponseStatus(r.getI32())
	c.Response = ResponseKind(r.getU8())
	c.OsInfo = r.getBytes()
	c.MultiplexSocketBitmask = r.getI32()
	c.SafeToDisconnectVersion = r.getI32()
	return c, r.err
}

func encodePayloadTransfer(w *writer, p *PayloadTransfer) {
	w.putU8(uint8(p.PacketType))
	w.putBytes(p.PayloadHeader)
	w.putBytes(p.PayloadChunk)
	w.putBytes(p.ControlMessage)
}

func decodePayloadTransfer(r *reader) (*PayloadTransfer, error) {
	p := &PayloadTransfer{}
	p.PacketType = PayloadPacketType(r.getU8())
	p.PayloadHeader = r.getBytes()
	p.PayloadChunk = r.getBytes()
	p.ControlMessage = r.getBytes()
	return p, r.err
}

func encodeBwu(w *writer, b *BandwidthUpgradeNegotiation) {
	w.putU8(uint8(b.EventType))
	w.putBool(b.SupportsClientIntroAck)
	w.putOptional(b.UpgradePathInfo != nil, func() {
		w.putU8(b.UpgradePathInfo.Medium)
		w.putString(b.UpgradePathInfo.IP)
		w.putI32(b.UpgradePathInfo.Port)
		w.putBytes(b.UpgradePathInfo.Metadata)
	})
	w.putOptional(b.ClientIntroduction != nil, func() {
		w.putString(b.ClientIntroduction.EndpointID)
		w.putBool(b.ClientIntroduction.SupportsDisablingCrypto)
	})
}

func decodeBwu(r *reader) (*BandwidthUpgradeNegotiation, error) {
	b := &BandwidthUpgradeNegotiation{}
	b.EventType = BwuEventType(r.getU8())
	b.SupportsClientIntroAck = r.getBool()
	r.getOptional(func() {
		b.UpgradePathInfo = &UpgradePathInfo{}
		b.UpgradePathInfo.Medium = r.getU8()
		b.UpgradePathInfo.IP = r.getString()
		b.UpgradePathInfo.Port = r.getI32()
		b.UpgradePathInfo.Metadata = r.getBytes()
	})
	r.getOptional(func() {
		b.ClientIntroduction = &ClientIntroduction{}
		b.ClientIntroduction.EndpointID = r.getString()
		b.ClientIntroduction.SupportsDisablingCrypto = r.getBool()
	})
	return b, r.err
}

func encodeDisconnection(w *writer, d *Disconnection) {
	w.putBool(d.RequestSafeToDisconnect)
	w.putBool(d.AckSafeToDisconnect)
}

func decodeDisconnection(r *reader) (*Disconnection, error) {
	d := &Disconnection{}
	d.RequestSafeToDisconnect = r.getBool()
	d.AckSafeToDisconnect = r.getBool()
	return d, r.err
}

func encodeAutoReconnect(w *writer, a *AutoReconnect) {
	w.putU8(uint8(a.EventType))
	w.putString(a.EndpointID)
}

func decodeAutoReconnect(r *reader) (*AutoReconnect, error) {
	a := &AutoReconnect{}
	a.EventType = AutoReconnectEventType(r.getU8())
	a.EndpointID = r.getString()
	return a, r.err
}
