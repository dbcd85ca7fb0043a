// Package wire implements the control-plane frame format: encode/decode for
// the length-prefixed, version-tagged frames peers exchange before and
// during bandwidth upgrade (spec.md §4.1, §6.1).
package wire

// Version is the only wire version this codec understands.
const Version uint8 = 1

// FrameType tags the V1Frame union (spec.md §4.1, §6.1).
type FrameType uint8

const (
	FrameUnknown FrameType = iota
	FrameConnectionRequest
	FrameConnectionResponse
	FramePayloadTransfer
	FrameBandwidthUpgradeNegotiation
	FrameKeepAlive
	FrameDisconnection
	FrameAutoReconnect
)

// ResponseStatus is the legacy integer status carried alongside the newer
// Response enum in a ConnectionResponse frame. Readers accept either field;
// writers set both in lock-step (spec.md §4.1).
type ResponseStatus int32

const (
	StatusSuccess            ResponseStatus = 0
	StatusConnectionRejected ResponseStatus = 1
)

// ResponseKind is the newer ACCEPT|REJECT enum on a ConnectionResponse.
type ResponseKind uint8

const (
	ResponseUnset ResponseKind = iota
	ResponseAccept
	ResponseReject
)

// BwuEventType tags a BandwidthUpgradeNegotiation frame's payload
// (spec.md §4.1, §4.6).
type BwuEventType uint8

const (
	BwuUnknown BwuEventType = iota
	BwuUpgradePathAvailable
	BwuLastWriteToPriorChannel
	BwuSafeToClosePriorChannel
	BwuClientIntroduction
	BwuClientIntroductionAck
	BwuUpgradeFailure
)

// PayloadPacketType tags a PayloadTransfer frame (spec.md §4.1). The core
// only round-trips these; chunking/reassembly is out of scope.
type PayloadPacketType uint8

const (
	PayloadUnknown PayloadPacketType = iota
	PayloadData
	PayloadControl
	PayloadAck
)

// AutoReconnectEventType tags an AutoReconnect frame (spec.md §4.1).
type AutoReconnectEventType uint8

const (
	AutoReconnectUnknown AutoReconnectEventType = iota
	AutoReconnectRequest
	AutoReconnectAck
)

// MediumMetadata is the medium_metadata sub-message of ConnectionRequest
// (spec.md §4.1).
type MediumMetadata struct {
	Supports5Ghz bool
	Bssid        string
	ApFrequency  int32
	IPAddress    []byte
}

// DeviceInfo is either a Connections-device or a Presence-device sub-message
// embedded in a ConnectionRequest (spec.md §4.5 step 5). Exactly one of the
// two byte slices is non-nil; both nil means the legacy layout applies.
type DeviceInfo struct {
	ConnectionsDevice []byte
	PresenceDevice    []byte
}

// ConnectionRequest is the v1 CONNECTION_REQUEST frame body (spec.md §4.1).
type ConnectionRequest struct {
	EndpointID          string
	EndpointInfo        []byte
	Nonce               int32
	Medium              MediumMetadata
	Mediums             []uint8 // medium.Medium values, in priority order
	KeepAliveIntervalMs int32
	KeepAliveTimeoutMs  int32
	Device              DeviceInfo
}

// ConnectionResponse is the v1 CONNECTION_RESPONSE frame body (spec.md §4.1).
type ConnectionResponse struct {
	Status                  ResponseStatus
	Response                ResponseKind
	OsInfo                  []byte
	MultiplexSocketBitmask  int32
	SafeToDisconnectVersion int32
}

// EffectiveResponse returns the ResponseKind, inferring it from the legacy
// Status field when Response is unset (spec.md §4.1 "unset response → infer
// from status == 0").
func (r ConnectionResponse) EffectiveResponse() ResponseKind {
	if r.Response != ResponseUnset {
		return r.Response
	}
	if r.Status == StatusSuccess {
		return ResponseAccept
	}
	return ResponseReject
}

// PayloadTransfer is the v1 PAYLOAD_TRANSFER frame body (spec.md §4.1). The
// core round-trips it unopened; this module does not interpret the chunk.
type PayloadTransfer struct {
	PacketType     PayloadPacketType
	PayloadHeader  []byte
	PayloadChunk   []byte
	ControlMessage []byte
}

// UpgradePathInfo describes a proposed upgrade medium (spec.md §4.6).
type UpgradePathInfo struct {
	Medium   uint8
	IP       string
	Port     int32
	Metadata []byte
}

// ClientIntroduction is the CLIENT_INTRODUCTION payload (spec.md §4.6).
type ClientIntroduction struct {
	EndpointID                string
	SupportsDisablingCrypto   bool
}

// BandwidthUpgradeNegotiation is the v1 BANDWIDTH_UPGRADE_NEGOTIATION frame
// body (spec.md §4.1, §4.6).
type BandwidthUpgradeNegotiation struct {
	EventType                 BwuEventType
	UpgradePathInfo           *UpgradePathInfo
	ClientIntroduction        *ClientIntroduction
	SupportsClientIntroAck    bool
}

// KeepAlive is the v1 KEEP_ALIVE frame body; it carries no fields.
type KeepAlive struct{}

// Disconnection is the v1 DISCONNECTION frame body (spec.md §4.1).
type Disconnection struct {
	RequestSafeToDisconnect bool
	AckSafeToDisconnect     bool
}

// AutoReconnect is the v1 AUTO_RECONNECT frame body (spec.md §4.1).
type AutoReconnect struct {
	EventType  AutoReconnectEventType
	EndpointID string
}

// Frame is the decoded OfflineFrame: a version tag plus exactly one typed
// V1Frame body, held in the matching pointer field.
type Frame struct {
	Version uint8
	Type    FrameType

	ConnectionRequest  *ConnectionRequest
	ConnectionResponse *ConnectionResponse
	PayloadTransfer    *PayloadTransfer
	Bwu                *BandwidthUpgradeNegotiation
	KeepAlive          *KeepAlive
	Disconnection      *Disconnection
	AutoReconnect      *AutoReconnect
}
