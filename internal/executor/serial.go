// Package executor implements the two scheduling primitives the PCP core
// runs on (spec.md §5, §9 "Serial executor"): a single-worker serial task
// queue S that eliminates locking on the core's central maps, and a
// one-shot Future callers block on for a synchronous-looking API over an
// asynchronous core.
package executor

import (
	"context"
	"fmt"
)

// Serial is an MPSC work queue with exactly one worker goroutine. Every
// mutation of the PcpHandler's central state (pending connections map,
// client session transitions) runs as a task submitted here, so those
// structures never need their own mutex (spec.md §5).
//
// Tasks must never block on anything that itself needs to run on this same
// Serial, or the queue deadlocks (spec.md §5 "Suspension points").
type Serial struct {
	tasks  chan func()
	done   chan struct{}
	closed chan struct{}
}

// NewSerial starts the worker goroutine and returns a ready-to-use Serial.
// queueDepth bounds how many pending tasks may be buffered before Submit
// blocks the caller; 0 means unbuffered.
func NewSerial(queueDepth int) *Serial {
	s := &Serial{
		tasks:  make(chan func(), queueDepth),
		done:   make(chan struct{}),
		closed: make(chan struct{}),
	}
	go s.run()
	return s
}

func (s *Serial) run() {
	defer close(s.done)
	for {
		select {
		case task, ok := <-s.tasks:
			if !ok {
				return
			}
			task()
		case <-s.closed:
			// Drain remaining tasks before exiting so in-flight Submit callers
			// don't hang forever waiting on a Future that will never resolve.
			for {
				select {
				case task := <-s.tasks:
					task()
				default:
					return
				}
			}
		}
	}
}

// Submit enqueues fn to run on the worker goroutine and returns immediately.
// Use this for fire-and-forget mutations (e.g. recording a discovered
// endpoint).
func (s *Serial) Submit(fn func()) {
	select {
	case s.tasks <- fn:
	case <-s.closed:
	}
}

// Run submits fn and blocks the caller until fn has executed on the worker,
// returning whatever error fn produced. This is how public PcpHandler
// operations get their synchronous-looking return value (spec.md §5
// "Suspension points").
func (s *Serial) Run(ctx context.Context, fn func() error) error {
	result := make(chan error, 1)
	submitted := func() {
		result <- fn()
	}
	select {
	case s.tasks <- submitted:
	case <-s.closed:
		return fmt.Errorf("executor: serial queue is stopped")
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-result:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stop signals the worker to drain remaining queued tasks and exit. It does
// not wait for completion; use Wait for that.
func (s *Serial) Stop() {
	select {
	case <-s.closed:
	default:
		close(s.closed)
	}
}

// Wait blocks until the worker goroutine has exited.
func (s *Serial) Wait() {
	<-s.done
}
