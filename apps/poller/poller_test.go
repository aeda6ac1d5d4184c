package poller

import (
	"sync"
	"testing"
	"time"
)

type recordingOwner struct {
	mu       sync.Mutex
	messages []struct{ channel, message string }
}

func (o *recordingOwner) Broadcast(channel, message string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.messages = append(o.messages, struct{ channel, message string }{channel, message})
}

func (o *recordingOwner) count() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.messages)
}

func TestTicksBroadcastTrigger(t *testing.T) {
	owner := &recordingOwner{}
	app, err := New("poller", owner, map[string]any{"periodSeconds": 0.01})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	a := app.(*App)
	defer a.Close()

	deadline := time.Now().Add(2 * time.Second)
	for owner.count() < 3 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if owner.count() < 3 {
		t.Fatalf("ticks = %d, want at least 3", owner.count())
	}

	owner.mu.Lock()
	m := owner.messages[0]
	owner.mu.Unlock()
	if m.channel != TickChannel || m.message != TickMessage {
		t.Fatalf("broadcast = %+v", m)
	}
}

func TestCloseStopsTicking(t *testing.T) {
	owner := &recordingOwner{}
	app, err := New("poller", owner, map[string]any{"periodSeconds": 0.01})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	a := app.(*App)
	a.Close()
	a.Close() // idempotent

	time.Sleep(30 * time.Millisecond)
	before := owner.count()
	time.Sleep(50 * time.Millisecond)
	if owner.count() != before {
		t.Fatal("ticks continued after Close")
	}
}

func TestInvalidPeriodRejected(t *testing.T) {
	owner := &recordingOwner{}
	if _, err := New("poller", owner, map[string]any{"periodSeconds": float64(-1)}); err == nil {
		t.Fatal("expected error for negative period")
	}
}
