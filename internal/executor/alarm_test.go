package executor

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestAlarmFiresAfterDelay(t *testing.T) {
	a := NewAlarms()
	defer a.StopAll()

	var fired atomic.Bool
	a.Schedule("ep1", 10*time.Millisecond, func() { fired.Store(true) })

	time.Sleep(50 * time.Millisecond)
	if !fired.Load() {
		t.Fatalf("expected alarm to have fired")
	}
}

func TestAlarmRescheduleCancelsPrevious(t *testing.T) {
	a := NewAlarms()
	defer a.StopAll()

	var fires atomic.Int32
	a.Schedule("ep1", 10*time.Millisecond, func() { fires.Add(1) })
	a.Schedule("ep1", 10*time.Millisecond, func() { fires.Add(1) })

	time.Sleep(50 * time.Millisecond)
	if got := fires.Load(); got != 1 {
		t.Fatalf("expected exactly one fire after reschedule, got %d", got)
	}
}

func TestAlarmCancel(t *testing.T) {
	a := NewAlarms()
	defer a.StopAll()

	var fired atomic.Bool
	a.Schedule("ep1", 10*time.Millisecond, func() { fired.Store(true) })
	if !a.Cancel("ep1") {
		t.Fatalf("expected cancel to report an alarm was pending")
	}
	time.Sleep(30 * time.Millisecond)
	if fired.Load() {
		t.Fatalf("cancelled alarm should not fire")
	}
}

func TestAlarmCancelPrefix(t *testing.T) {
	a := NewAlarms()
	defer a.StopAll()

	var fires atomic.Int32
	a.Schedule("bluetooth:ep1", time.Hour, func() { fires.Add(1) })
	a.Schedule("bluetooth:ep2", time.Hour, func() { fires.Add(1) })
	a.Schedule("wifi_lan:ep3", time.Hour, func() { fires.Add(1) })

	a.CancelPrefix("bluetooth:")

	if a.Cancel("wifi_lan:ep3") == false {
		t.Fatalf("expected wifi_lan alarm to remain scheduled")
	}
}
