package syncd

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/example/braid/internal/index"
	"github.com/example/braid/internal/models"
)

func TestState_String(t *testing.T) {
	cases := map[State]string{
		StateDisconnected: "disconnected",
		StateConnecting:   "connecting",
		StateConnected:    "connected",
		StateReconnecting: "reconnecting",
	}
	for state, want := range cases {
		if got := state.String(); got != want {
			t.Errorf("expected %q, got %q", want, got)
		}
	}
}

// ============================================================================
// Delta application (no transport)
// ============================================================================

func TestApplyDelta_InOrder(t *testing.T) {
	o := NewObserver("ws://unused", nil)
	for v := int64(1); v <= 3; v++ {
		o.applyDelta(nil, delta(v), false)
	}
	if o.Version() != 3 {
		t.Errorf("expected version 3, got %d", o.Version())
	}
	if o.Snapshot().Len() != 3 {
		t.Errorf("expected 3 replica entities, got %d", o.Snapshot().Len())
	}
}

func TestApplyDelta_DuplicateDropped(t *testing.T) {
	o := NewObserver("ws://unused", nil)
	o.applyDelta(nil, delta(1), false)

	var applied int
	o.OnApply = func(*Message) { applied++ }
	o.applyDelta(nil, delta(1), false)

	if applied != 0 {
		t.Error("expected duplicate delta to be dropped silently")
	}
	if o.Version() != 1 {
		t.Errorf("expected version 1, got %d", o.Version())
	}
}

func TestApplyDelta_GapNotApplied(t *testing.T) {
	o := NewObserver("ws://unused", nil)
	o.applyDelta(nil, delta(1), false)
	// Version 3 with 2 missing is a gap: the payload must not land.
	o.applyDelta(nil, delta(3), false)

	if o.Version() != 1 {
		t.Errorf("expected version to stay at 1 across gap, got %d", o.Version())
	}
	if o.Snapshot().Len() != 1 {
		t.Errorf("expected gap payload unapplied, got %d entities", o.Snapshot().Len())
	}
}

func TestApplyDelta_UnknownTypeAdvancesVersion(t *testing.T) {
	o := NewObserver("ws://unused", nil)
	o.applyDelta(nil, delta(1), false)
	// A delta type from a newer server: skip the payload, keep the
	// stream contiguous.
	o.applyDelta(nil, &Message{Type: "entity_archived", Version: 2}, false)
	o.applyDelta(nil, delta(3), false)

	if o.Version() != 3 {
		t.Errorf("expected version 3 after unknown delta, got %d", o.Version())
	}
	if o.Snapshot().Len() != 2 {
		t.Errorf("expected 2 entities, got %d", o.Snapshot().Len())
	}
}

func TestApplySnapshot_ReplacesReplica(t *testing.T) {
	o := NewObserver("ws://unused", nil)
	o.applyDelta(nil, delta(1), false)

	o.applySnapshot(&Message{
		Type:    MsgSnapshot,
		Version: 9,
		Entities: map[string][]*models.Entity{
			models.TypeTask: {wireEntity("tk-aaaa1111"), wireEntity("tk-bbbb2222")},
		},
		Edges: []*models.Edge{{ID: "ed-00000001", Source: "tk-aaaa1111", Target: "tk-bbbb2222", Type: models.EdgeDependsOn}},
	})

	if o.Version() != 9 {
		t.Errorf("expected version 9, got %d", o.Version())
	}
	snap := o.Snapshot()
	if snap.Len() != 2 || snap.EdgeCount() != 1 {
		t.Errorf("expected replaced replica, got %d entities and %d edges", snap.Len(), snap.EdgeCount())
	}
	if snap.Entity("tk-00000001") != nil {
		t.Error("expected pre-snapshot state discarded")
	}
}

// ============================================================================
// Live round trip over a websocket
// ============================================================================

type syncHarness struct {
	hub      *Hub
	snap     *index.Snapshot
	srv      *httptest.Server
	observer *Observer
	applied  chan *Message
}

func newSyncHarness(t *testing.T, prepublish int64) *syncHarness {
	t.Helper()
	h := &syncHarness{snap: index.New(), applied: make(chan *Message, 64)}
	h.hub = NewHub(nil, 0, func() *index.Snapshot { return h.snap })
	for v := int64(1); v <= prepublish; v++ {
		publish(h.hub, h.snap, v)
	}

	h.srv = httptest.NewServer(NewServer(h.hub, nil).Handler())
	t.Cleanup(h.srv.Close)

	h.observer = NewObserver("ws"+strings.TrimPrefix(h.srv.URL, "http"), nil)
	h.observer.OnApply = func(m *Message) { h.applied <- m }
	h.observer.Connect(context.Background())
	t.Cleanup(h.observer.Disconnect)
	return h
}

func (h *syncHarness) wait(t *testing.T, what string) *Message {
	t.Helper()
	select {
	case m := <-h.applied:
		return m
	case <-time.After(5 * time.Second):
		t.Fatalf("timed out waiting for %s", what)
		return nil
	}
}

func TestObserver_SnapshotThenDeltas(t *testing.T) {
	h := newSyncHarness(t, 2)

	first := h.wait(t, "initial snapshot")
	if first.Type != MsgSnapshot || first.Version != 2 {
		t.Fatalf("expected snapshot at version 2 first, got %s/%d", first.Type, first.Version)
	}
	if h.observer.State() != StateConnected {
		t.Errorf("expected connected state, got %s", h.observer.State())
	}

	publish(h.hub, h.snap, 3)
	msg := h.wait(t, "delta 3")
	if msg.Version != 3 {
		t.Errorf("expected delta 3, got %d", msg.Version)
	}
	if h.observer.Version() != 3 {
		t.Errorf("expected observer at version 3, got %d", h.observer.Version())
	}
	if h.observer.Snapshot().Entity("tk-00000003") == nil {
		t.Error("expected delta payload in replica")
	}
}

func TestObserver_GapTriggersResyncCatchUp(t *testing.T) {
	h := newSyncHarness(t, 3)
	h.wait(t, "initial snapshot")

	// Simulate local loss: rewind the applied version, then let the next
	// broadcast look like a gap.
	h.observer.mu.Lock()
	h.observer.lastApplied = 1
	h.observer.mu.Unlock()

	publish(h.hub, h.snap, 4)

	// The observer must request a resync and work back up to 4 via the
	// retained catch-up batch.
	deadline := time.After(5 * time.Second)
	for h.observer.Version() != 4 {
		select {
		case <-h.applied:
		case <-deadline:
			t.Fatalf("observer stuck at version %d", h.observer.Version())
		}
	}
	if h.observer.Snapshot().Entity("tk-00000004") == nil {
		t.Error("expected catch-up payload in replica")
	}
}

func TestObserver_ManualDisconnect(t *testing.T) {
	h := newSyncHarness(t, 0)
	h.wait(t, "initial snapshot")

	h.observer.Disconnect()
	if h.observer.State() != StateDisconnected {
		t.Errorf("expected disconnected after manual stop, got %s", h.observer.State())
	}
}

func TestObserver_ReconnectLoopAfterDrop(t *testing.T) {
	snap := index.New()
	hub := NewHub(nil, 0, func() *index.Snapshot { return snap })
	applied := make(chan *Message, 64)

	srv := httptest.NewServer(NewServer(hub, nil).Handler())
	url := "ws" + strings.TrimPrefix(srv.URL, "http")

	obs := NewObserver(url, nil)
	obs.backoff = Backoff{Initial: 10 * time.Millisecond, Max: 100 * time.Millisecond}
	obs.OnApply = func(m *Message) { applied <- m }
	obs.Connect(context.Background())
	defer obs.Disconnect()

	select {
	case <-applied:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for first snapshot")
	}

	// Drop every connection: the observer must leave Connected and start
	// its backoff loop rather than give up.
	srv.CloseClientConnections()
	srv.Close()

	deadline := time.After(5 * time.Second)
	for obs.State() == StateConnected {
		select {
		case <-deadline:
			t.Fatal("observer never noticed the dropped connection")
		case <-time.After(10 * time.Millisecond):
		}
	}
	if s := obs.State(); s != StateReconnecting && s != StateConnecting {
		t.Errorf("expected reconnecting after drop, got %s", s)
	}
}
