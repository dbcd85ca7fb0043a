package wire

import (
	"bytes"
	"errors"
	"testing"
)

func roundTrip(t *testing.T, f *Frame) *Frame {
	t.Helper()
	enc, err := Encode(f)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	got, err := Decode(enc)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	return got
}

func TestConnectionRequestRoundTrip(t *testing.T) {
	want := &Frame{
		Type: FrameConnectionRequest,
		ConnectionRequest: &ConnectionRequest{
			EndpointID:   "ABCD",
			EndpointInfo: []byte("advName"),
			Nonce:        9000,
			Medium: MediumMetadata{
				Supports5Ghz: true,
				Bssid:        "aa:bb:cc:dd:ee:ff",
				ApFrequency:  5180,
				IPAddress:    []byte{192, 168, 1, 1},
			},
			Mediums:             []uint8{2, 0, 1},
			KeepAliveIntervalMs: 5000,
			KeepAliveTimeoutMs:  30000,
		},
	}
	got := roundTrip(t, want)
	if got.ConnectionRequest.EndpointID != "ABCD" {
		t.Fatalf("endpoint id = %q", got.ConnectionRequest.EndpointID)
	}
	if !bytes.Equal(got.ConnectionRequest.EndpointInfo, []byte("advName")) {
		t.Fatalf("endpoint info = %q", got.ConnectionRequest.EndpointInfo)
	}
	if got.ConnectionRequest.Nonce != 9000 {
		t.Fatalf("nonce = %d", got.ConnectionRequest.Nonce)
	}
	if len(got.ConnectionRequest.Mediums) != 3 {
		t.Fatalf("mediums = %v", got.ConnectionRequest.Mediums)
	}
}

func TestConnectionResponseLegacyStatusInference(t *testing.T) {
	f := &Frame{
		Type: FrameConnectionResponse,
		ConnectionResponse: &ConnectionResponse{
			Status:   StatusSuccess,
			Response: ResponseUnset,
		},
	}
	got := roundTrip(t, f)
	if got.ConnectionResponse.EffectiveResponse() != ResponseAccept {
		t.Fatalf("expected inferred accept, got %v", got.ConnectionResponse.EffectiveResponse())
	}

	f.ConnectionResponse.Status = StatusConnectionRejected
	got = roundTrip(t, f)
	if got.ConnectionResponse.EffectiveResponse() != ResponseReject {
		t.Fatalf("expected inferred reject, got %v", got.ConnectionResponse.EffectiveResponse())
	}
}

func TestKeepAliveRoundTrip(t *testing.T) {
	got := roundTrip(t, &Frame{Type: FrameKeepAlive, KeepAlive: &KeepAlive{}})
	if got.Type != FrameKeepAlive || got.KeepAlive == nil {
		t.Fatalf("unexpected keep-alive decode: %+v", got)
	}
}

func TestBandwidthUpgradeNegotiationRoundTrip(t *testing.T) {
	f := &Frame{
		Type: FrameBandwidthUpgradeNegotiation,
		Bwu: &BandwidthUpgradeNegotiation{
			EventType:              BwuUpgradePathAvailable,
			SupportsClientIntroAck: true,
			UpgradePathInfo: &UpgradePathInfo{
				Medium: 2,
				IP:     "10.0.0.5",
				Port:   4242,
			},
		},
	}
	got := roundTrip(t, f)
	if got.Bwu.EventType != BwuUpgradePathAvailable {
		t.Fatalf("event type = %v", got.Bwu.EventType)
	}
	if got.Bwu.UpgradePathInfo == nil || got.Bwu.UpgradePathInfo.Port != 4242 {
		t.Fatalf("upgrade path info = %+v", got.Bwu.UpgradePathInfo)
	}
	if got.Bwu.ClientIntroduction != nil {
		t.Fatalf("unexpected client introduction: %+v", got.Bwu.ClientIntroduction)
	}
}

func TestDecodeUnknownFrameTypeIsInvalid(t *testing.T) {
	enc, err := Encode(&Frame{Type: FrameKeepAlive, KeepAlive: &KeepAlive{}})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	// Corrupt the type byte (index 5: [len(4)][version(1)][type(1)]...).
	enc[5] = 0xEE
	_, err = Decode(enc)
	if !errors.Is(err, ErrInvalidFrame) {
		t.Fatalf("expected ErrInvalidFrame, got %v", err)
	}
}

func TestDecodeTruncatedRecordIsInvalid(t *testing.T) {
	enc, err := Encode(&Frame{
		Type:              FrameConnectionRequest,
		ConnectionRequest: &ConnectionRequest{EndpointID: "ABCD"},
	})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	_, err = Decode(enc[:len(enc)-2])
	if err == nil {
		t.Fatalf("expected error decoding truncated record")
	}
}

func TestDecodeConnectionRequestMissingEndpointIDIsInvalid(t *testing.T) {
	enc, err := Encode(&Frame{
		Type:              FrameConnectionRequest,
		ConnectionRequest: &ConnectionRequest{EndpointID: ""},
	})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	_, err = Decode(enc)
	if !errors.Is(err, ErrInvalidFrame) {
		t.Fatalf("expected ErrInvalidFrame for empty endpoint id, got %v", err)
	}
}

func TestFrameLength(t *testing.T) {
	enc, err := Encode(&Frame{Type: FrameKeepAlive, KeepAlive: &KeepAlive{}})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	n, err := FrameLength(enc[:4])
	if err != nil {
		t.Fatalf("frame length: %v", err)
	}
	if n != len(enc) {
		t.Fatalf("frame length = %d, want %d", n, len(enc))
	}
}
