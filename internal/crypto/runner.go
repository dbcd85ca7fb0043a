package crypto

import (
	"context"
	"crypto/sha256"
	"fmt"
	"hash"
	"log/slog"
	"time"

	"nearcore/internal/channel"
)

func newSHA256() hash.Hash { return sha256.New() }

// handshakeTimeout bounds how long a single EncryptionRunner attempt may
// take before it's treated as a failure; this is independent of the
// ConnectionRequest read deadline in internal/pcp, which governs the frame
// exchange that precedes the handshake.
const handshakeTimeout = 10 * time.Second

// Runner drives one UKEY2-analog handshake per call (spec.md §4.4). Each
// call spawns its own goroutine — the runner does its I/O off the
// PcpHandler's serial executor and reports back onto whatever executor the
// caller's Listener callbacks post onto.
type Runner struct{}

// NewRunner returns a stateless EncryptionRunner. Stateless because every
// handshake carries its own ephemeral key pair and channel; nothing needs to
// be shared across calls.
func NewRunner() *Runner { return &Runner{} }

// StartClient runs the handshake in the initiator role: generate a key
// pair, send it, receive the peer's, derive keys, and confirm with a
// Finished message (spec.md §4.4 "start_client").
func (r *Runner) StartClient(endpointID string, ch channel.EndpointChannel, l Listener) {
	go r.run(RoleClient, endpointID, ch, l)
}

// StartServer is the responder-role counterpart.
func (r *Runner) StartServer(endpointID string, ch channel.EndpointChannel, l Listener) {
	go r.run(RoleServer, endpointID, ch, l)
}

func (r *Runner) run(role Role, endpointID string, ch channel.EndpointChannel, l Listener) {
	ctx, cancel := context.WithTimeout(context.Background(), handshakeTimeout)
	defer cancel()

	result, err := r.handshake(ctx, role, endpointID, ch)
	if err != nil {
		slog.Warn("encryption handshake failed", "endpoint_id", endpointID, "role", roleName(role), "err", err)
		if l.OnFailure != nil {
			l.OnFailure(endpointID, ch)
		}
		return
	}
	slog.Debug("encryption handshake succeeded", "endpoint_id", endpointID, "role", roleName(role), "auth_token", result.AuthToken)
	if l.OnSuccess != nil {
		l.OnSuccess(result)
	}
}

func (r *Runner) handshake(ctx context.Context, role Role, endpointID string, ch channel.EndpointChannel) (Result, error) {
	self, err := newKeyPair()
	if err != nil {
		return Result{}, err
	}

	var clientPub, serverPub [32]byte
	switch role {
	case RoleClient:
		if err := writeHello(ctx, ch, self.public); err != nil {
			return Result{}, fmt.Errorf("crypto: write hello: %w", err)
		}
		peer, err := readHello(ctx, ch)
		if err != nil {
			return Result{}, fmt.Errorf("crypto: read hello: %w", err)
		}
		clientPub, serverPub = self.public, peer
	case RoleServer:
		peer, err := readHello(ctx, ch)
		if err != nil {
			return Result{}, fmt.Errorf("crypto: read hello: %w", err)
		}
		if err := writeHello(ctx, ch, self.public); err != nil {
			return Result{}, fmt.Errorf("crypto: write hello: %w", err)
		}
		clientPub, serverPub = peer, self.public
	default:
		return Result{}, fmt.Errorf("crypto: unknown role %d", role)
	}

	var peerPub [32]byte
	if role == RoleClient {
		peerPub = serverPub
	} else {
		peerPub = clientPub
	}
	shared, err := sharedSecret(self.private, peerPub)
	if err != nil {
		return Result{}, fmt.Errorf("crypto: compute shared secret: %w", err)
	}

	c2s, s2c, rawAuth, err := deriveKeys(shared, clientPub, serverPub)
	if err != nil {
		return Result{}, err
	}

	cryptoCtx := &Context{}
	if role == RoleClient {
		cryptoCtx.sendKey, cryptoCtx.recvKey = c2s, s2c
	} else {
		cryptoCtx.sendKey, cryptoCtx.recvKey = s2c, c2s
	}

	if err := writeFinished(ctx, ch); err != nil {
		return Result{}, fmt.Errorf("crypto: write finished: %w", err)
	}
	if err := readFinished(ctx, ch); err != nil {
		return Result{}, fmt.Errorf("crypto: read finished: %w", err)
	}

	return Result{
		EndpointID:   endpointID,
		Context:      cryptoCtx,
		AuthToken:    shortAuthToken(rawAuth),
		RawAuthToken: rawAuth,
	}, nil
}

func roleName(r Role) string {
	if r == RoleClient {
		return "client"
	}
	return "server"
}
