package watchdog

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func discardLog() *slog.Logger { return slog.New(slog.DiscardHandler) }

func TestBackgroundTimeoutKillsOnce(t *testing.T) {
	var kills atomic.Int32
	w := Start(Config{
		Start:    time.Now(),
		Timeout:  50 * time.Millisecond,
		Interval: 10 * time.Millisecond,
		Kill:     func() { kills.Add(1) },
		Log:      discardLog(),
	})

	time.Sleep(200 * time.Millisecond)
	if got := w.Stop(); got != Timeout {
		t.Fatalf("expected Timeout, got %v", got)
	}
	if n := kills.Load(); n != 1 {
		t.Fatalf("kill invoked %d times, want 1", n)
	}
}

func TestBackgroundStopBeforeTrigger(t *testing.T) {
	w := Start(Config{
		Start:    time.Now(),
		Timeout:  time.Hour,
		Interval: 10 * time.Millisecond,
		Kill:     func() { t.Error("kill must not run") },
		Log:      discardLog(),
	})
	if got := w.Stop(); got != None {
		t.Fatalf("expected None, got %v", got)
	}
	// Stop is idempotent.
	if got := w.Stop(); got != None {
		t.Fatalf("second Stop returned %v", got)
	}
}

func TestBackgroundPredicateCancels(t *testing.T) {
	var cancel atomic.Bool
	killed := make(chan struct{})
	w := Start(Config{
		Start:    time.Now(),
		StopOn:   cancel.Load,
		Interval: 10 * time.Millisecond,
		Kill:     func() { close(killed) },
		Log:      discardLog(),
	})

	cancel.Store(true)
	select {
	case <-killed:
	case <-time.After(time.Second):
		t.Fatalf("predicate never triggered the kill")
	}
	if got := w.Stop(); got != Cancelled {
		t.Fatalf("expected Cancelled, got %v", got)
	}
}

func TestCheckLatchesFirstOutcome(t *testing.T) {
	var kills atomic.Int32
	stop := false
	c := NewCheck(context.Background(), Config{
		Start:  time.Now(),
		StopOn: func() bool { return stop },
		Kill:   func() { kills.Add(1) },
		Log:    discardLog(),
	})

	if got := c.Do(); got != None {
		t.Fatalf("premature trigger: %v", got)
	}
	if got := c.Fired(); got != None {
		t.Fatalf("Fired before trigger returned %v", got)
	}

	stop = true
	if got := c.Do(); got != Cancelled {
		t.Fatalf("expected Cancelled, got %v", got)
	}

	// Later results stay latched even if the predicate flips back.
	stop = false
	if got := c.Do(); got != Cancelled {
		t.Fatalf("latch lost: %v", got)
	}
	if got := c.Fired(); got != Cancelled {
		t.Fatalf("Fired returned %v", got)
	}
	if n := kills.Load(); n != 1 {
		t.Fatalf("kill invoked %d times, want 1", n)
	}
}

func TestCheckContextWinsOverPredicate(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	c := NewCheck(ctx, Config{
		Start:  time.Now(),
		StopOn: func() bool { return true },
		Kill:   func() {},
		Log:    discardLog(),
	})
	if got := c.Do(); got != Interrupted {
		t.Fatalf("expected Interrupted, got %v", got)
	}
}

func TestHeartbeatEmitsWhileRunning(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewTextHandler(&buf, nil))

	stop := Heartbeat(log, 30*time.Millisecond, "sleep 10", time.Now())
	time.Sleep(150 * time.Millisecond)
	stop()
	stop() // idempotent

	lines := strings.Count(buf.String(), "command still running")
	if lines < 2 {
		t.Fatalf("expected at least 2 heartbeat lines, got %d: %s", lines, buf.String())
	}

	before := buf.Len()
	time.Sleep(80 * time.Millisecond)
	if buf.Len() != before {
		t.Fatalf("heartbeat kept logging after stop")
	}
}

func TestHeartbeatDisabled(t *testing.T) {
	stop := Heartbeat(discardLog(), 0, "true", time.Now())
	stop()
}
