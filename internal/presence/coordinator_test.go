package presence

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
)

// fakeBroadcaster collects global broadcasts.
type fakeBroadcaster struct {
	mu     sync.Mutex
	events []map[string]interface{}
}

func (f *fakeBroadcaster) ToAll(data []byte) {
	var m map[string]interface{}
	if err := json.Unmarshal(data, &m); err != nil {
		panic(err)
	}
	f.mu.Lock()
	f.events = append(f.events, m)
	f.mu.Unlock()
}

func (f *fakeBroadcaster) last(t *testing.T) map[string]interface{} {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.events) == 0 {
		t.Fatal("no broadcasts recorded")
	}
	return f.events[len(f.events)-1]
}

func TestMarkOnlineBroadcastsGlobally(t *testing.T) {
	store := newTestStore(t)
	bc := &fakeBroadcaster{}
	coord := NewCoordinator(store, bc)
	ctx := context.Background()

	if err := coord.MarkOnline(ctx, "u1"); err != nil {
		t.Fatalf("MarkOnline() error: %v", err)
	}

	ev := bc.last(t)
	if ev["type"] != "presence_changed" {
		t.Errorf("expected presence_changed, got %v", ev["type"])
	}
	if ev["user_id"] != "u1" || ev["is_online"] != true {
		t.Errorf("unexpected payload: %v", ev)
	}

	online, _ := store.IsOnline(ctx, "u1")
	if !online {
		t.Error("expected u1 in the online set")
	}
}

func TestMarkOnlineBroadcastsEvenWhenAlreadyOnline(t *testing.T) {
	store := newTestStore(t)
	bc := &fakeBroadcaster{}
	coord := NewCoordinator(store, bc)
	ctx := context.Background()

	coord.MarkOnline(ctx, "u1")
	coord.MarkOnline(ctx, "u1") // second session, same user

	bc.mu.Lock()
	n := len(bc.events)
	bc.mu.Unlock()
	if n != 2 {
		t.Errorf("expected 2 broadcasts (fan-out is unconditional), got %d", n)
	}
}

func TestMarkOfflineAfterDisconnect(t *testing.T) {
	store := newTestStore(t)
	bc := &fakeBroadcaster{}
	coord := NewCoordinator(store, bc)
	ctx := context.Background()

	coord.MarkOnline(ctx, "u1")
	if err := coord.MarkOffline(ctx, "u1"); err != nil {
		t.Fatalf("MarkOffline() error: %v", err)
	}

	ev := bc.last(t)
	if ev["user_id"] != "u1" || ev["is_online"] != false {
		t.Errorf("unexpected payload: %v", ev)
	}

	statuses, err := coord.Statuses(ctx, []string{"u1"})
	if err != nil {
		t.Fatalf("Statuses() error: %v", err)
	}
	if len(statuses) != 1 || statuses[0].IsOnline {
		t.Errorf("expected u1 offline after disconnect, got %v", statuses)
	}
}

// A second concurrent session disconnecting drops the user's presence even
// though the first session is still live. This asserts the behavior clients
// were built against, not an ideal.
func TestSecondSessionDisconnectDropsPresence(t *testing.T) {
	store := newTestStore(t)
	bc := &fakeBroadcaster{}
	coord := NewCoordinator(store, bc)
	ctx := context.Background()

	coord.MarkOnline(ctx, "u1") // session S1
	coord.MarkOnline(ctx, "u1") // session S2

	// S2 disconnects while S1 is still connected.
	coord.MarkOffline(ctx, "u1")

	online, _ := store.IsOnline(ctx, "u1")
	if online {
		t.Error("expected u1 offline after any session disconnect (no refcounting)")
	}
	ev := bc.last(t)
	if ev["is_online"] != false {
		t.Errorf("expected offline broadcast, got %v", ev)
	}
}

func TestStatusesPreservesOrder(t *testing.T) {
	store := newTestStore(t)
	coord := NewCoordinator(store, &fakeBroadcaster{})
	ctx := context.Background()

	coord.MarkOnline(ctx, "b")

	statuses, err := coord.Statuses(ctx, []string{"a", "b", "c"})
	if err != nil {
		t.Fatalf("Statuses() error: %v", err)
	}
	if len(statuses) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(statuses))
	}
	want := []struct {
		id     string
		online bool
	}{{"a", false}, {"b", true}, {"c", false}}
	for i, w := range want {
		if statuses[i].UserID != w.id || statuses[i].IsOnline != w.online {
			t.Errorf("entry %d: expected {%s %v}, got %+v", i, w.id, w.online, statuses[i])
		}
	}
}
