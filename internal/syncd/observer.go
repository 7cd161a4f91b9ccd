package syncd

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/example/braid/internal/index"
)

// State is an observer's connection state.
type State int

// Observer states. Disconnected is reached only by explicit manual
// disconnect; transport drops go through Reconnecting.
const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateReconnecting
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateReconnecting:
		return "reconnecting"
	default:
		return "disconnected"
	}
}

// Observer is a sync client maintaining a local replica of the store.
// It tracks its last applied version; a message that is neither the
// next version nor an old duplicate triggers a resync request. The
// reconnect loop is a timer-driven state machine so cancellation
// composes with the surrounding context.
type Observer struct {
	url     string
	logger  *slog.Logger
	backoff Backoff
	dialer  *websocket.Dialer

	mu          sync.Mutex
	state       State
	lastApplied int64
	replica     *index.Snapshot
	conn        *websocket.Conn
	manual      bool
	cancel      context.CancelFunc
	done        chan struct{}

	// OnApply, when set, is called after each applied message.
	OnApply func(*Message)
}

// NewObserver creates an observer for a sync endpoint URL (ws://...).
func NewObserver(url string, logger *slog.Logger) *Observer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Observer{
		url:     url,
		logger:  logger,
		dialer:  websocket.DefaultDialer,
		replica: index.New(),
	}
}

// Connect starts the observer loop. It returns immediately; the state
// machine runs until Disconnect or context cancellation.
func (o *Observer) Connect(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)

	o.mu.Lock()
	o.manual = false
	o.cancel = cancel
	o.done = make(chan struct{})
	o.state = StateConnecting
	done := o.done
	o.mu.Unlock()

	go func() {
		defer close(done)
		o.run(ctx)
	}()
}

// Disconnect stops the observer. Manual disconnect suppresses
// auto-reconnect and is the only path back to Disconnected.
func (o *Observer) Disconnect() {
	o.mu.Lock()
	o.manual = true
	cancel := o.cancel
	conn := o.conn
	done := o.done
	o.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if conn != nil {
		conn.Close()
	}
	if done != nil {
		<-done
	}

	o.mu.Lock()
	o.state = StateDisconnected
	o.mu.Unlock()
}

// State returns the current connection state.
func (o *Observer) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

func (o *Observer) setState(s State) {
	o.mu.Lock()
	o.state = s
	o.mu.Unlock()
}

// Version returns the last applied version.
func (o *Observer) Version() int64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.lastApplied
}

// Snapshot returns the current local replica.
func (o *Observer) Snapshot() *index.Snapshot {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.replica
}

func (o *Observer) run(ctx context.Context) {
	for {
		o.setState(StateConnecting)
		conn, _, err := o.dialer.DialContext(ctx, o.url, nil)
		if err != nil {
			if !o.waitReconnect(ctx, err) {
				return
			}
			continue
		}

		o.mu.Lock()
		o.conn = conn
		o.state = StateConnected
		o.mu.Unlock()
		o.backoff.Reset()
		o.logger.Info("sync connected", "url", o.url)

		err = o.readLoop(conn)
		conn.Close()
		o.mu.Lock()
		o.conn = nil
		o.mu.Unlock()

		if !o.waitReconnect(ctx, err) {
			return
		}
	}
}

// waitReconnect sleeps out the backoff on a timer, honoring
// cancellation. Reports false when the observer must stop.
func (o *Observer) waitReconnect(ctx context.Context, cause error) bool {
	o.mu.Lock()
	manual := o.manual
	o.mu.Unlock()
	if manual || ctx.Err() != nil {
		return false
	}

	o.setState(StateReconnecting)
	delay := o.backoff.Next()
	o.logger.Info("sync reconnecting", "delay", delay.String(), "cause", errString(cause))

	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

func (o *Observer) readLoop(conn *websocket.Conn) error {
	for {
		var msg Message
		if err := conn.ReadJSON(&msg); err != nil {
			return err
		}
		o.apply(conn, &msg)
	}
}

// apply folds one inbound message into the replica, requesting a resync
// on any version gap.
func (o *Observer) apply(conn *websocket.Conn, msg *Message) {
	if err := msg.Validate(); err != nil {
		o.logger.Warn("dropping malformed sync message", "error", err)
		o.requestResync(conn)
		return
	}

	switch {
	case msg.Type == MsgSnapshot:
		o.applySnapshot(msg)
	case msg.Type == MsgResyncBatch:
		for _, delta := range msg.Deltas {
			o.applyDelta(conn, delta, false)
		}
	case msg.Delta():
		o.applyDelta(conn, msg, true)
	default:
		o.logger.Warn("ignoring unexpected sync message", "type", string(msg.Type))
	}
}

func (o *Observer) applySnapshot(msg *Message) {
	snap := index.New()
	snap.SetVersion(msg.Version)
	for _, group := range msg.Entities {
		for _, e := range group {
			snap.PutEntity(e)
		}
	}
	for _, e := range msg.Edges {
		snap.PutEdge(e)
	}

	o.mu.Lock()
	o.replica = snap
	o.lastApplied = msg.Version
	o.mu.Unlock()

	if o.OnApply != nil {
		o.OnApply(msg)
	}
}

// applyDelta applies an in-order delta. Old or duplicate versions are
// dropped silently; a version beyond last+1 is a gap, and the payload
// must not be applied before the resync completes.
func (o *Observer) applyDelta(conn *websocket.Conn, msg *Message, allowResync bool) {
	o.mu.Lock()
	last := o.lastApplied
	if msg.Version <= last {
		o.mu.Unlock()
		return
	}
	if msg.Version != last+1 {
		o.mu.Unlock()
		if allowResync {
			o.logger.Info("sync gap detected", "have", last, "got", msg.Version)
			o.requestResync(conn)
		}
		return
	}

	next := o.replica.Clone()
	if rec := msg.Record(); rec != nil {
		next.Apply(rec)
	} else {
		// Unknown-but-valid delta type: advance the version so the
		// stream stays contiguous.
		next.SetVersion(msg.Version)
	}
	o.replica = next
	o.lastApplied = msg.Version
	o.mu.Unlock()

	if o.OnApply != nil {
		o.OnApply(msg)
	}
}

func (o *Observer) requestResync(conn *websocket.Conn) {
	o.mu.Lock()
	last := o.lastApplied
	o.mu.Unlock()
	req := &Message{Type: MsgResyncRequest, Version: last}
	if err := conn.WriteJSON(req); err != nil {
		o.logger.Warn("failed to request resync", "error", err)
	}
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
