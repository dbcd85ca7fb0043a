package channel

import (
	"context"
	"testing"
	"time"

	"nearcore/internal/medium"
)

func TestLoopbackRoundTrip(t *testing.T) {
	a, b := NewLoopbackPair(medium.WifiLan, "a", "b")
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if err := a.Write(ctx, []byte("hello")); err != nil {
		t.Fatalf("write: %v", err)
	}
	got, err := b.Read(ctx)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(got) != "hello" {
		t.Fatalf("got %q, want hello", got)
	}
}

func TestLoopbackPauseBlocksDelivery(t *testing.T) {
	a, b := NewLoopbackPair(medium.WifiLan, "a", "b")
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	b.Pause()
	if err := a.Write(context.Background(), []byte("queued")); err != nil {
		t.Fatalf("write: %v", err)
	}

	readDone := make(chan struct{})
	go func() {
		defer close(readDone)
		got, err := b.Read(context.Background())
		if err != nil {
			t.Errorf("read: %v", err)
			return
		}
		if string(got) != "queued" {
			t.Errorf("got %q, want queued", got)
		}
	}()

	select {
	case <-readDone:
		t.Fatalf("read returned before resume")
	case <-ctx.Done():
	}

	b.Resume()
	select {
	case <-readDone:
	case <-time.After(time.Second):
		t.Fatalf("read did not complete after resume")
	}
}

func TestLoopbackCloseUnblocksReadAndWrite(t *testing.T) {
	a, b := NewLoopbackPair(medium.Bluetooth, "a", "b")
	a.Close(CloseShutdown)

	if _, err := a.Read(context.Background()); err != ErrClosed {
		t.Fatalf("expected ErrClosed from Read, got %v", err)
	}
	if err := a.Write(context.Background(), []byte("x")); err != ErrClosed {
		t.Fatalf("expected ErrClosed from Write, got %v", err)
	}
	_ = b
}

type xorCrypto struct{ key byte }

func (x xorCrypto) Seal(p []byte) ([]byte, error) {
	out := make([]byte, len(p))
	for i, b := range p {
		out[i] = b ^ x.key
	}
	return out, nil
}

func (x xorCrypto) Open(c []byte) ([]byte, error) { return x.Seal(c) }

func TestLoopbackAttachEncryptionRoundTrips(t *testing.T) {
	a, b := NewLoopbackPair(medium.WebRTC, "a", "b")
	a.AttachEncryption(xorCrypto{key: 0x42})
	b.AttachEncryption(xorCrypto{key: 0x42})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := a.Write(ctx, []byte("secret")); err != nil {
		t.Fatalf("write: %v", err)
	}
	got, err := b.Read(ctx)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(got) != "secret" {
		t.Fatalf("got %q, want secret", got)
	}
}
