package discovery

import (
	"log/slog"
	"sort"
	"sync"
	"time"

	"nearcore/internal/executor"
	"nearcore/internal/medium"
)

// PriorityOrder ranks mediums best-first for get_preferred (spec.md §4.2).
// Nearby's real priority table changes by platform and isn't part of the
// distilled spec; this module ranks mediums in the order of medium.All:
// Bluetooth, BLE, WifiLan, WifiDirect, WifiHotspot, WebRTC.
var PriorityOrder = medium.All

func priorityRank(m medium.Medium) int {
	for i, x := range PriorityOrder {
		if x == m {
			return i
		}
	}
	return len(PriorityOrder)
}

// Listener receives found/lost notifications. The table calls these exactly
// once per logical event, regardless of how many mediums are involved
// (spec.md §4.2, §8 invariants 3 and 4).
type Listener struct {
	OnEndpointFound func(ep Endpoint)
	OnEndpointLost  func(endpointID string)
}

// Table is the concurrent DiscoveredEndpointTable. It is guarded by one
// mutex because medium callbacks deliver discovery events on arbitrary
// goroutines (spec.md §5 "Shared resources").
type Table struct {
	mu        sync.Mutex
	endpoints map[key]Endpoint
	alarms    *executor.Alarms
	listener  Listener
}

// NewTable returns an empty table reporting found/lost events to listener.
func NewTable(alarms *executor.Alarms, listener Listener) *Table {
	return &Table{
		endpoints: make(map[key]Endpoint),
		alarms:    alarms,
		listener:  listener,
	}
}

func alarmKey(m medium.Medium, endpointID string) string {
	return m.String() + ":" + endpointID
}

// OnFound records ep. If (EndpointID, Medium) is new and EndpointInfo
// differs from an existing record for the same EndpointID on another
// medium, every prior medium for that id is treated as lost first (and the
// client notified once), before the new one is inserted and reported found.
// If this is simply the first medium seen for an id, the client is notified
// once; if it's an additional medium for an id already known with the same
// EndpointInfo, no additional notification fires (spec.md §4.2).
func (t *Table) OnFound(ep Endpoint) {
	t.mu.Lock()

	k := key{endpointID: ep.EndpointID, medium: ep.Medium}
	if _, exists := t.endpoints[k]; exists {
		t.endpoints[k] = ep
		t.mu.Unlock()
		t.alarms.Cancel(alarmKey(ep.Medium, ep.EndpointID))
		return
	}

	hadAny := false
	infoConflict := false
	for existingKey, existing := range t.endpoints {
		if existingKey.endpointID != ep.EndpointID {
			continue
		}
		hadAny = true
		if string(existing.EndpointInfo) != string(ep.EndpointInfo) {
			infoConflict = true
		}
	}

	if infoConflict {
		for existingKey := range t.endpoints {
			if existingKey.endpointID == ep.EndpointID {
				delete(t.endpoints, existingKey)
				t.alarms.Cancel(alarmKey(existingKey.medium, ep.EndpointID))
			}
		}
		hadAny = false
		if t.listener.OnEndpointLost != nil {
			t.listener.OnEndpointLost(ep.EndpointID)
		}
	}

	t.endpoints[k] = ep
	shouldNotifyFound := !hadAny
	t.mu.Unlock()

	t.alarms.Cancel(alarmKey(ep.Medium, ep.EndpointID))
	if shouldNotifyFound && t.listener.OnEndpointFound != nil {
		slog.Debug("endpoint found", "endpoint_id", ep.EndpointID, "medium", ep.Medium.String())
		t.listener.OnEndpointFound(ep)
	}
}

// OnLost removes only the (endpointID, m) entry.
// The client is notified only when that was the last medium for the id
// (spec.md §4.2).
func (t *Table) OnLost(endpointID string, m medium.Medium) {
	t.mu.Lock()
	delete(t.endpoints, key{endpointID: endpointID, medium: m})
	remaining := t.countLocked(endpointID)
	t.mu.Unlock()

	t.alarms.Cancel(alarmKey(m, endpointID))
	if remaining == 0 && t.listener.OnEndpointLost != nil {
		slog.Debug("endpoint lost", "endpoint_id", endpointID)
		t.listener.OnEndpointLost(endpointID)
	}
}

func (t *Table) countLocked(endpointID string) int {
	n := 0
	for k := range t.endpoints {
		if k.endpointID == endpointID {
			n++
		}
	}
	return n
}

// GetPreferred returns every Endpoint known for endpointID, best medium
// first (spec.md §4.2).
func (t *Table) GetPreferred(endpointID string) []Endpoint {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]Endpoint, 0, 2)
	for k, ep := range t.endpoints {
		if k.endpointID == endpointID {
			out = append(out, ep)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return priorityRank(out[i].Medium) < priorityRank(out[j].Medium)
	})
	return out
}

// All returns every known endpoint across all ids and mediums, for
// diagnostics (internal/httpapi).
func (t *Table) All() []Endpoint {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Endpoint, 0, len(t.endpoints))
	for _, ep := range t.endpoints {
		out = append(out, ep)
	}
	return out
}

// ArmLostAlarm schedules the per-medium "endpoint lost" deadline for every
// endpoint currently discovered on m (spec.md §4.2, §4.5
// "start_endpoint_lost_alarms"). Finding the endpoint again before the
// deadline cancels it (handled in OnFound/OnLost above).
func (t *Table) ArmLostAlarm(m medium.Medium, timeout time.Duration, onFire func(endpointID string)) {
	t.mu.Lock()
	ids := make([]string, 0)
	for k := range t.endpoints {
		if k.medium == m {
			ids = append(ids, k.endpointID)
		}
	}
	t.mu.Unlock()

	for _, id := range ids {
		id := id
		t.alarms.Schedule(alarmKey(m, id), timeout, func() {
			onFire(id)
		})
	}
}

// StopLostAlarm cancels one endpoint's lost alarm on m, e.g. because it was
// explicitly removed (spec.md §4.5 "stop_endpoint_lost_alarm").
func (t *Table) StopLostAlarm(m medium.Medium, endpointID string) {
	t.alarms.Cancel(alarmKey(m, endpointID))
}

// Clear removes every discovered endpoint and cancels every pending lost
// alarm — stop_discovery's effect (spec.md §8 invariant 5).
func (t *Table) Clear() {
	t.mu.Lock()
	ids := make(map[string]struct{})
	keys := make([]key, 0, len(t.endpoints))
	for k := range t.endpoints {
		ids[k.endpointID] = struct{}{}
		keys = append(keys, k)
	}
	t.endpoints = make(map[key]Endpoint)
	t.mu.Unlock()

	for _, k := range keys {
		t.alarms.Cancel(alarmKey(k.medium, k.endpointID))
	}
	if t.listener.OnEndpointLost != nil {
		for id := range ids {
			t.listener.OnEndpointLost(id)
		}
	}
}
