// Package crypto implements the EncryptionRunner: a Diffie-Hellman
// key-exchange handshake run over an EndpointChannel, in either initiator
// ("client") or responder ("server") role, standing in for the UKEY2
// library the real stack links (spec.md §4.4). It uses curve25519 for the
// exchange, HKDF to derive a transport key and the human-verifiable auth
// token, and chacha20poly1305 as the resulting AEAD — the same primitive
// family golang.org/x/crypto offers for exactly this kind of
// handshake-then-seal protocol.
package crypto

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"io"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/curve25519"
	"golang.org/x/crypto/hkdf"

	"nearcore/internal/channel"
)

// Role identifies which side of the handshake a runner takes.
type Role int

const (
	RoleClient Role = iota // initiator
	RoleServer             // responder
)

// Result carries the handshake outcome passed to Listener.OnSuccess.
type Result struct {
	EndpointID    string
	Context       *Context
	AuthToken     string // short, human-verifiable (spec.md §4.4)
	RawAuthToken  []byte // full secret for out-of-band authentication
}

// Listener receives the asynchronous outcome of a handshake. Per spec.md
// §4.4, OnFailure carries the channel the handshake ran on so the caller can
// tell a stale handshake (on a channel that has since been replaced) from
// the current one.
type Listener struct {
	OnSuccess func(Result)
	OnFailure func(endpointID string, ch channel.EndpointChannel)
}

// Context is the post-handshake crypto state attached to an EndpointChannel
// via AttachEncryption. It implements channel.Crypto.
type Context struct {
	sendKey   [chacha20poly1305.KeySize]byte
	recvKey   [chacha20poly1305.KeySize]byte
	sendSeq   uint64
	recvSeq   uint64
}

var _ channel.Crypto = (*Context)(nil)

// Seal encrypts plaintext with the next send sequence number as part of the
// AEAD nonce, so reordered or replayed frames fail to decrypt on the other
// side — this is why a channel must be Pause()d, not merely left alone,
// while its owner is swapped during bandwidth upgrade (spec.md §4.3).
func (c *Context) Seal(plaintext []byte) ([]byte, error) {
	aead, err := chacha20poly1305.New(c.sendKey[:])
	if err != nil {
		return nil, fmt.Errorf("crypto: new aead: %w", err)
	}
	nonce := make([]byte, aead.NonceSize())
	binary.BigEndian.PutUint64(nonce[aead.NonceSize()-8:], c.sendSeq)
	c.sendSeq++
	return aead.Seal(nonce[:0:0], nonce, plaintext, nil), nil
}

// Open decrypts ciphertext produced by the peer's Seal, enforcing strictly
// increasing sequence numbers.
func (c *Context) Open(ciphertext []byte) ([]byte, error) {
	aead, err := chacha20poly1305.New(c.recvKey[:])
	if err != nil {
		return nil, fmt.Errorf("crypto: new aead: %w", err)
	}
	nonce := make([]byte, aead.NonceSize())
	binary.BigEndian.PutUint64(nonce[aead.NonceSize()-8:], c.recvSeq)
	plaintext, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("crypto: open (seq %d): %w", c.recvSeq, err)
	}
	c.recvSeq++
	return plaintext, nil
}

// keyPair is an ephemeral curve25519 pair generated fresh for each
// handshake — UKEY2, like Noise and TLS 1.3, never reuses a DH key across
// sessions.
type keyPair struct {
	private [32]byte
	public  [32]byte
}

func newKeyPair() (keyPair, error) {
	var kp keyPair
	if _, err := io.ReadFull(rand.Reader, kp.private[:]); err != nil {
		return kp, fmt.Errorf("crypto: generate private key: %w", err)
	}
	pub, err := curve25519.X25519(kp.private[:], curve25519.Basepoint)
	if err != nil {
		return kp, fmt.Errorf("crypto: derive public key: %w", err)
	}
	copy(kp.public[:], pub)
	return kp, nil
}

// sharedSecret runs X25519 between a local private scalar and a peer's
// public point.
func sharedSecret(private, peerPublic [32]byte) ([]byte, error) {
	shared, err := curve25519.X25519(private[:], peerPublic[:])
	if err != nil {
		return nil, err
	}
	return shared, nil
}

// frameHello and frameFinished tag the two handshake messages on the wire,
// since the EncryptionRunner speaks directly over the raw channel
// before any Frame/FrameCodec concept applies.
const (
	frameHello    byte = 1
	frameFinished byte = 2
)

func writeHello(ctx context.Context, ch channel.EndpointChannel, pub [32]byte) error {
	msg := make([]byte, 1+32)
	msg[0] = frameHello
	copy(msg[1:], pub[:])
	return ch.Write(ctx, msg)
}

func readHello(ctx context.Context, ch channel.EndpointChannel) ([32]byte, error) {
	var peer [32]byte
	msg, err := ch.Read(ctx)
	if err != nil {
		return peer, err
	}
	if len(msg) != 1+32 || msg[0] != frameHello {
		return peer, fmt.Errorf("crypto: malformed hello (%d bytes)", len(msg))
	}
	copy(peer[:], msg[1:])
	return peer, nil
}

func writeFinished(ctx context.Context, ch channel.EndpointChannel) error {
	return ch.Write(ctx, []byte{frameFinished})
}

func readFinished(ctx context.Context, ch channel.EndpointChannel) error {
	msg, err := ch.Read(ctx)
	if err != nil {
		return err
	}
	if len(msg) != 1 || msg[0] != frameFinished {
		return fmt.Errorf("crypto: malformed finished (%d bytes)", len(msg))
	}
	return nil
}

// deriveKeys runs HKDF-SHA256 over the shared secret to produce the two
// directional transport keys and the auth token material. The "client" and
// "server" info strings fix which key each role sends with, mirroring how
// UKEY2 binds direction into the KDF rather than trusting channel identity.
func deriveKeys(shared []byte, clientPub, serverPub [32]byte) (clientToServer, serverToClient [chacha20poly1305.KeySize]byte, authToken []byte, err error) {
	salt := append(append([]byte{}, clientPub[:]...), serverPub[:]...)

	c2s := hkdf.New(newSHA256, shared, salt, []byte("nearcore pcp client->server"))
	if _, err = io.ReadFull(c2s, clientToServer[:]); err != nil {
		return clientToServer, serverToClient, nil, fmt.Errorf("crypto: derive client->server key: %w", err)
	}

	s2c := hkdf.New(newSHA256, shared, salt, []byte("nearcore pcp server->client"))
	if _, err = io.ReadFull(s2c, serverToClient[:]); err != nil {
		return clientToServer, serverToClient, nil, fmt.Errorf("crypto: derive server->client key: %w", err)
	}

	authKDF := hkdf.New(newSHA256, shared, salt, []byte("nearcore pcp auth token"))
	raw := make([]byte, 32)
	if _, err = io.ReadFull(authKDF, raw); err != nil {
		return clientToServer, serverToClient, nil, fmt.Errorf("crypto: derive auth token: %w", err)
	}
	return clientToServer, serverToClient, raw, nil
}

// shortAuthToken renders the first 5 bytes of raw as a human-comparable
// hex string, the same role UKEY2's short auth string plays when two users
// confirm a pairing out of band.
func shortAuthToken(raw []byte) string {
	n := 5
	if len(raw) < n {
		n = len(raw)
	}
	return hex.EncodeToString(raw[:n])
}
