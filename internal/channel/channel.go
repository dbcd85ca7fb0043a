// Package channel abstracts one bidirectional byte stream over one medium
// (spec.md §4.3): read/write/close/pause/resume plus encryption attachment.
// Concrete per-medium implementations live outside this module (spec.md §1
// Non-goals); this package defines the contract and an in-memory reference
// implementation used by the tests.
package channel

import (
	"context"
	"errors"
	"time"

	"nearcore/internal/medium"
)

// CloseReason records why an EndpointChannel was closed (spec.md §4.3).
type CloseReason int

const (
	CloseUnspecified CloseReason = iota
	CloseShutdown
	CloseIOError
	CloseUpgraded
	CloseUnfinished
	CloseRemoteDisconnect
	CloseLocalDisconnect
)

func (r CloseReason) String() string {
	switch r {
	case CloseShutdown:
		return "SHUTDOWN"
	case CloseIOError:
		return "IO_ERROR"
	case CloseUpgraded:
		return "UPGRADED"
	case CloseUnfinished:
		return "UNFINISHED"
	case CloseRemoteDisconnect:
		return "REMOTE_DISCONNECT"
	case CloseLocalDisconnect:
		return "LOCAL_DISCONNECT"
	default:
		return "UNSPECIFIED"
	}
}

// ErrClosed is returned by Read/Write once the channel has been closed.
var ErrClosed = errors.New("channel: closed")

// Crypto is the minimal interface an attached encryption context must
// satisfy: symmetric, sequence-numbered transforms over whole frames. The
// concrete implementation lives in internal/crypto; this package only needs
// the shape so channel doesn't import crypto (crypto imports channel, so the
// reverse import would be a cycle).
type Crypto interface {
	Seal(plaintext []byte) ([]byte, error)
	Open(ciphertext []byte) ([]byte, error)
}

// EndpointChannel is the polymorphic contract every per-medium transport
// satisfies (spec.md §4.3). All concrete implementations are treated
// interchangeably by the core.
type EndpointChannel interface {
	// Read blocks for the next complete frame's bytes, or returns ErrClosed
	// once Close has been called, or an I/O error.
	Read(ctx context.Context) ([]byte, error)
	// Write sends a complete frame's bytes.
	Write(ctx context.Context, b []byte) error
	// Close shuts the channel down, recording why.
	Close(reason CloseReason) error

	// Pause suspends delivery of further Read results until Resume — the
	// only mechanism for safely handing a channel off during bandwidth
	// upgrade, since UKEY2 framing is sequence-numbered and cannot tolerate
	// out-of-order reads (spec.md §4.3, §5).
	Pause()
	Resume()
	IsPaused() bool

	// AttachEncryption makes subsequent Read/Write transparently
	// encrypt/decrypt. Idempotent per channel (spec.md §4.3).
	AttachEncryption(c Crypto)

	Medium() medium.Medium
	Name() string
	LastReadTime() time.Time
}
