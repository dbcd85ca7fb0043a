package wire

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// ErrInvalidFrame is returned for malformed bytes, an unrecognized frame
// type, or a frame that decodes but fails post-decode validation (e.g. a
// ConnectionRequest with an empty endpoint id). Per spec.md §4.1 "Decoding
// policy" and the Supplemented-features note in SPEC_FULL.md §3, both cases
// are treated identically by callers: close the channel with IO_ERROR.
var ErrInvalidFrame = errors.New("wire: invalid protocol frame")

// Encode serializes f into a length-delimited record: a big-endian u32
// length prefix followed by [version][type][body]. The length prefix lets
// EndpointChannel.Read assemble exactly one frame's worth of bytes off a
// streaming transport.
func Encode(f *Frame) ([]byte, error) {
	if f == nil {
		return nil, fmt.Errorf("wire: encode nil frame")
	}
	body, typ, err := encodeBody(f)
	if err != nil {
		return nil, err
	}

	payload := make([]byte, 2+len(body))
	payload[0] = Version
	payload[1] = uint8(typ)
	copy(payload[2:], body)

	out := make([]byte, 4+len(payload))
	binary.BigEndian.PutUint32(out[:4], uint32(len(payload)))
	copy(out[4:], payload)
	return out, nil
}

// FrameLength inspects a length prefix and reports how many bytes the
// complete record occupies, including the prefix itself. Callers read the
// first 4 bytes, call FrameLength, then read the remainder before calling
// Decode — this is what lets EndpointChannel implementations avoid
// buffering an unbounded amount of data per read.
func FrameLength(prefix []byte) (int, error) {
	if len(prefix) < 4 {
		return 0, fmt.Errorf("wire: short length prefix")
	}
	n := binary.BigEndian.Uint32(prefix[:4])
	if n == 0 || n > 16<<20 {
		return 0, fmt.Errorf("%w: implausible frame length %d", ErrInvalidFrame, n)
	}
	return 4 + int(n), nil
}

// Decode parses one complete length-delimited record (as produced by
// Encode) into a Frame. Unknown frame types and malformed bodies both
// surface as ErrInvalidFrame (spec.md §4.1).
func Decode(record []byte) (*Frame, error) {
	if len(record) < 6 {
		return nil, fmt.Errorf("%w: record too short", ErrInvalidFrame)
	}
	n := binary.BigEndian.Uint32(record[:4])
	if int(n) != len(record)-4 {
		return nil, fmt.Errorf("%w: length mismatch", ErrInvalidFrame)
	}
	body := record[4:]
	version := body[0]
	typ := FrameType(body[1])
	rest := body[2:]

	f := &Frame{Version: version, Type: typ}
	r := newReader(rest)

	var err error
	switch typ {
	case FrameConnectionRequest:
		f.ConnectionRequest, err = decodeConnectionRequest(r)
	case FrameConnectionResponse:
		f.ConnectionResponse, err = decodeConnectionResponse(r)
	case FramePayloadTransfer:
		f.PayloadTransfer, err = decodePayloadTransfer(r)
	case FrameBandwidthUpgradeNegotiation:
		f.Bwu, err = decodeBwu(r)
	case FrameKeepAlive:
		f.KeepAlive = &KeepAlive{}
	case FrameDisconnection:
		f.Disconnection, err = decodeDisconnection(r)
	case FrameAutoReconnect:
		f.AutoReconnect, err = decodeAutoReconnect(r)
	default:
		return nil, fmt.Errorf("%w: unknown frame type %d", ErrInvalidFrame, typ)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFrame, err)
	}
	if r.err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFrame, r.err)
	}
	if err := validate(f); err != nil {
		return nil, err
	}
	return f, nil
}

// validate applies the post-decode checks offline_frames_validator.cc
// performs in the original implementation (see SPEC_FULL.md §3).
func validate(f *Frame) error {
	switch f.Type {
	case FrameConnectionRequest:
		if f.ConnectionRequest.EndpointID == "" {
			return fmt.Errorf("%w: connection request missing endpoint id", ErrInvalidFrame)
		}
	case FrameAutoReconnect:
		if f.AutoReconnect.EndpointID == "" {
			return fmt.Errorf("%w: auto reconnect missing endpoint id", ErrInvalidFrame)
		}
	}
	return nil
}

func encodeBody(f *Frame) ([]byte, FrameType, error) {
	w := newWriter()
	switch f.Type {
	case FrameConnectionRequest:
		encodeConnectionRequest(w, f.ConnectionRequest)
	case FrameConnectionResponse:
		encodeConnectionResponse(w, f.ConnectionResponse)
	case FramePayloadTransfer:
		encodePayloadTransfer(w, f.PayloadTransfer)
	case FrameBandwidthUpgradeNegotiation:
		encodeBwu(w, f.Bwu)
	case FrameKeepAlive:
		// no fields
	case FrameDisconnection:
		encodeDisconnection(w, f.Disconnection)
	case FrameAutoReconnect:
		encodeAutoReconnect(w, f.AutoReconnect)
	default:
		return nil, 0, fmt.Errorf("wire: unsupported frame type %d", f.Type)
	}
	return w.bytes(), f.Type, nil
}
