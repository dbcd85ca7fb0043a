package discovery

import (
	"testing"
	"time"

	"nearcore/internal/executor"
	"nearcore/internal/medium"
)

func newTestTable(t *testing.T) (*Table, *[]string, *[]string) {
	t.Helper()
	var found, lost []string
	alarms := executor.NewAlarms()
	t.Cleanup(alarms.StopAll)
	tbl := NewTable(alarms, Listener{
		OnEndpointFound: func(ep Endpoint) { found = append(found, ep.EndpointID) },
		OnEndpointLost:  func(id string) { lost = append(lost, id) },
	})
	return tbl, &found, &lost
}

func TestOnFoundNotifiesOnceForFirstMedium(t *testing.T) {
	tbl, found, _ := newTestTable(t)

	tbl.OnFound(Endpoint{EndpointID: "ABCD", EndpointInfo: []byte("info"), Medium: medium.Bluetooth})
	tbl.OnFound(Endpoint{EndpointID: "ABCD", EndpointInfo: []byte("info"), Medium: medium.BLE})

	if len(*found) != 1 {
		t.Fatalf("expected exactly one found notification, got %v", *found)
	}
}

func TestOnFoundConflictingInfoTreatedAsLostThenFound(t *testing.T) {
	tbl, found, lost := newTestTable(t)

	tbl.OnFound(Endpoint{EndpointID: "ABCD", EndpointInfo: []byte("old"), Medium: medium.Bluetooth})
	tbl.OnFound(Endpoint{EndpointID: "ABCD", EndpointInfo: []byte("new"), Medium: medium.WifiLan})

	if len(*lost) != 1 {
		t.Fatalf("expected one lost notification on info conflict, got %v", *lost)
	}
	if len(*found) != 2 {
		t.Fatalf("expected two found notifications (original + re-found), got %v", *found)
	}
}

func TestOnLostOnlyNotifiesWhenLastMediumRemoved(t *testing.T) {
	tbl, _, lost := newTestTable(t)

	tbl.OnFound(Endpoint{EndpointID: "ABCD", EndpointInfo: []byte("info"), Medium: medium.Bluetooth})
	tbl.OnFound(Endpoint{EndpointID: "ABCD", EndpointInfo: []byte("info"), Medium: medium.BLE})

	tbl.OnLost("ABCD", medium.Bluetooth)
	if len(*lost) != 0 {
		t.Fatalf("should not notify lost while BLE medium remains, got %v", *lost)
	}

	tbl.OnLost("ABCD", medium.BLE)
	if len(*lost) != 1 {
		t.Fatalf("expected lost notification once all mediums removed, got %v", *lost)
	}
}

func TestGetPreferredOrdersByMediumPriority(t *testing.T) {
	tbl, _, _ := newTestTable(t)

	tbl.OnFound(Endpoint{EndpointID: "ABCD", Medium: medium.WebRTC})
	tbl.OnFound(Endpoint{EndpointID: "ABCD", Medium: medium.Bluetooth})
	tbl.OnFound(Endpoint{EndpointID: "ABCD", Medium: medium.WifiLan})

	got := tbl.GetPreferred("ABCD")
	if len(got) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(got))
	}
	if got[0].Medium != medium.Bluetooth || got[1].Medium != medium.WifiLan || got[2].Medium != medium.WebRTC {
		t.Fatalf("unexpected priority order: %v", got)
	}
}

func TestLostAlarmFiresWithoutExplicitLost(t *testing.T) {
	tbl, _, lost := newTestTable(t)
	tbl.OnFound(Endpoint{EndpointID: "ABCD", Medium: medium.Bluetooth})

	fired := make(chan struct{}, 1)
	tbl.ArmLostAlarm(medium.Bluetooth, 10*time.Millisecond, func(id string) {
		tbl.OnLost(id, medium.Bluetooth)
		fired <- struct{}{}
	})

	select {
	case <-fired:
	case <-time.After(200 * time.Millisecond):
		t.Fatalf("expected lost alarm to fire")
	}
	if len(*lost) != 1 || (*lost)[0] != "ABCD" {
		t.Fatalf("expected exactly one lost notification for ABCD, got %v", *lost)
	}
}

func TestLostAlarmCancelledByRefresh(t *testing.T) {
	tbl, _, lost := newTestTable(t)
	tbl.OnFound(Endpoint{EndpointID: "ABCD", Medium: medium.Bluetooth})

	tbl.ArmLostAlarm(medium.Bluetooth, 30*time.Millisecond, func(id string) {
		tbl.OnLost(id, medium.Bluetooth)
	})

	time.Sleep(10 * time.Millisecond)
	tbl.OnFound(Endpoint{EndpointID: "ABCD", Medium: medium.Bluetooth}) // refresh cancels the alarm

	time.Sleep(50 * time.Millisecond)
	if len(*lost) != 0 {
		t.Fatalf("refreshed endpoint should not be reported lost, got %v", *lost)
	}
}

func TestClearRemovesEverythingAndNotifiesOnce(t *testing.T) {
	tbl, _, lost := newTestTable(t)
	tbl.OnFound(Endpoint{EndpointID: "ABCD", Medium: medium.Bluetooth})
	tbl.OnFound(Endpoint{EndpointID: "WXYZ", Medium: medium.WifiLan})

	tbl.Clear()

	if len(*lost) != 2 {
		t.Fatalf("expected lost notification for each endpoint, got %v", *lost)
	}
	if len(tbl.All()) != 0 {
		t.Fatalf("expected table to be empty after Clear")
	}
}
