package clock

import (
	"testing"
	"time"
)

var epoch = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

func TestFakeTimerFiresAtDeadline(t *testing.T) {
	c := Fake(epoch)
	timer := c.NewTimer(30 * time.Second)

	c.Advance(29 * time.Second)
	select {
	case <-timer.C:
		t.Fatalf("timer fired early")
	default:
	}

	c.Advance(time.Second)
	select {
	case got := <-timer.C:
		if !got.Equal(epoch.Add(30 * time.Second)) {
			t.Fatalf("unexpected fire time %v", got)
		}
	default:
		t.Fatalf("timer did not fire")
	}
	if timer.Stop() {
		t.Fatalf("stop after fire should report false")
	}
}

func TestFakeTimerStop(t *testing.T) {
	c := Fake(epoch)
	timer := c.NewTimer(time.Second)
	if !timer.Stop() {
		t.Fatalf("expected stop to cancel pending timer")
	}
	c.Advance(time.Minute)
	select {
	case <-timer.C:
		t.Fatalf("stopped timer fired")
	default:
	}
	if c.PendingCount() != 0 {
		t.Fatalf("expected no pending waiters, got %d", c.PendingCount())
	}
}

func TestFakeTickerReschedules(t *testing.T) {
	c := Fake(epoch)
	ticker := c.NewTicker(time.Second)
	defer ticker.Stop()

	for i := 0; i < 3; i++ {
		c.Advance(time.Second)
		select {
		case <-ticker.C:
		default:
			t.Fatalf("tick %d missing", i)
		}
	}
	if c.PendingCount() != 1 {
		t.Fatalf("ticker should stay pending")
	}
}

func TestNilTimerStop(t *testing.T) {
	var timer *Timer
	if timer.Stop() {
		t.Fatalf("nil timer stop should be false")
	}
}
