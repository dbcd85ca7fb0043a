package executor

import (
	"sync"
	"time"
)

// Alarms is the second serial executor, A, dedicated to timers: per-medium
// endpoint-lost deadlines and the rejection-close delay (spec.md §5). Each
// alarm fires on its own time.AfterFunc goroutine and the callbacks run one
// at a time. The ConnectionRequest read deadline is not an alarm; internal/pcp
// bounds that read with a context timeout. It is kept separate from Serial so
// a long-running handshake never starves timer delivery, and vice versa.
type Alarms struct {
	mu     sync.Mutex
	fire   sync.Mutex
	timers map[string]*time.Timer
}

// NewAlarms returns a ready-to-use Alarms registry.
func NewAlarms() *Alarms {
	return &Alarms{timers: make(map[string]*time.Timer)}
}

// Schedule arms (or re-arms) the named alarm to fire fn after d. Scheduling
// under a key that already has a pending alarm cancels the old one first —
// this is what "finding the endpoint again cancels it" (spec.md §4.2) and
// "re-arm the cancellation flag" style reset semantics reduce to.
func (a *Alarms) Schedule(key string, d time.Duration, fn func()) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if t, ok := a.timers[key]; ok {
		t.Stop()
	}
	a.timers[key] = time.AfterFunc(d, func() {
		a.mu.Lock()
		delete(a.timers, key)
		a.mu.Unlock()
		a.fire.Lock()
		defer a.fire.Unlock()
		fn()
	})
}

// Cancel stops the named alarm, if pending. Returns true if an alarm was
// actually cancelled.
func (a *Alarms) Cancel(key string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	t, ok := a.timers[key]
	if !ok {
		return false
	}
	delete(a.timers, key)
	return t.Stop()
}

// CancelPrefix cancels every pending alarm whose key has the given prefix,
// e.g. every lost-alarm for one medium in one call. stop_discovery does not
// use it; it clears the discovery table through discovery.Table.Clear.
func (a *Alarms) CancelPrefix(prefix string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for key, t := range a.timers {
		if len(key) >= len(prefix) && key[:len(prefix)] == prefix {
			t.Stop()
			delete(a.timers, key)
		}
	}
}

// StopAll cancels every pending alarm.
func (a *Alarms) StopAll() {
	a.mu.Lock()
	defer a.mu.Unlock()
	for key, t := range a.timers {
		t.Stop()
		delete(a.timers, key)
	}
}
