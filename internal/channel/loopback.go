package channel

import (
	"context"
	"fmt"
	"sync"
	"time"

	"nearcore/internal/medium"
)

// Loopback is an in-memory EndpointChannel used by the tests, standing in
// for the out-of-scope real per-medium sockets (spec.md §1 Non-goals). NewLoopbackPair wires two
// Loopbacks together so the PCP handler can drive both sides of a handshake
// within a single process, which is how the end-to-end scenarios in
// spec.md §8 are exercised in internal/pcp's tests.
type Loopback struct {
	name string
	med  medium.Medium

	out chan<- []byte
	in  <-chan []byte

	mu       sync.Mutex
	paused   bool
	resumeCh chan struct{}
	crypto   Crypto
	lastRead time.Time
	closed   chan struct{}
	closeErr error
	closeOne sync.Once
}

// NewLoopbackPair returns two ends of one in-memory channel over m, named a
// and b for diagnostics.
func NewLoopbackPair(m medium.Medium, nameA, nameB string) (*Loopback, *Loopback) {
	aToB := make(chan []byte, 8)
	bToA := make(chan []byte, 8)

	a := newLoopback(m, nameA, aToB, bToA)
	b := newLoopback(m, nameB, bToA, aToB)
	return a, b
}

func newLoopback(m medium.Medium, name string, out chan<- []byte, in <-chan []byte) *Loopback {
	return &Loopback{
		name:     name,
		med:      m,
		out:      out,
		in:       in,
		resumeCh: closedChan(),
		closed:   make(chan struct{}),
	}
}

func closedChan() chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}

func (l *Loopback) Medium() medium.Medium  { return l.med }
func (l *Loopback) Name() string           { return l.name }
func (l *Loopback) LastReadTime() time.Time {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.lastRead
}

func (l *Loopback) AttachEncryption(c Crypto) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.crypto == nil {
		l.crypto = c
	}
}

func (l *Loopback) Pause() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.paused {
		l.paused = true
		l.resumeCh = make(chan struct{})
	}
}

func (l *Loopback) Resume() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.paused {
		l.paused = false
		close(l.resumeCh)
	}
}

func (l *Loopback) IsPaused() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.paused
}

func (l *Loopback) Write(ctx context.Context, b []byte) error {
	select {
	case <-l.closed:
		return ErrClosed
	default:
	}

	l.mu.Lock()
	crypto := l.crypto
	l.mu.Unlock()

	payload := b
	if crypto != nil {
		sealed, err := crypto.Seal(b)
		if err != nil {
			return fmt.Errorf("channel: seal: %w", err)
		}
		payload = sealed
	}

	select {
	case l.out <- payload:
		return nil
	case <-l.closed:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (l *Loopback) Read(ctx context.Context) ([]byte, error) {
	for {
		select {
		case <-l.closed:
			return nil, ErrClosed
		default:
		}

		l.mu.Lock()
		gate := l.resumeCh
		paused := l.paused
		l.mu.Unlock()

		if paused {
			select {
			case <-gate:
				continue
			case <-l.closed:
				return nil, ErrClosed
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		select {
		case payload, ok := <-l.in:
			if !ok {
				return nil, ErrClosed
			}
			l.mu.Lock()
			l.lastRead = time.Now()
			crypto := l.crypto
			l.mu.Unlock()

			if crypto != nil {
				plain, err := crypto.Open(payload)
				if err != nil {
					return nil, fmt.Errorf("channel: open: %w", err)
				}
				return plain, nil
			}
			return payload, nil
		case <-l.closed:
			return nil, ErrClosed
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

func (l *Loopback) Close(reason CloseReason) error {
	l.closeOne.Do(func() {
		l.closeErr = fmt.Errorf("channel %s closed: %s", l.name, reason)
		close(l.closed)
	})
	return nil
}
