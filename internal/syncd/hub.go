package syncd

import (
	"log/slog"
	"sync"

	"github.com/example/braid/internal/index"
)

// DefaultRetention is how many recent deltas the hub buffers for
// catch-up before demanding a full resync.
const DefaultRetention = 256

// sessionBuffer is the per-observer outbox depth. An observer that
// falls this far behind is disconnected rather than allowed to stall
// the broadcast path.
const sessionBuffer = 64

// Session is one attached observer's server-side state.
type Session struct {
	out    chan *Message
	closed bool
}

// Out is the channel the transport drains to the observer.
func (s *Session) Out() <-chan *Message { return s.out }

// Hub is the broadcast side of the version/sync coordinator. Deltas are
// published strictly after durable commit. Delivery failure to one
// observer never affects the others or the committed state.
type Hub struct {
	mu        sync.Mutex
	logger    *slog.Logger
	sessions  map[*Session]struct{}
	retention []*Message // ring of recent deltas, oldest first
	capacity  int
	snapshot  func() *index.Snapshot
}

// NewHub creates a hub. snapshot must return the current committed
// index snapshot; retention <= 0 selects DefaultRetention.
func NewHub(logger *slog.Logger, retention int, snapshot func() *index.Snapshot) *Hub {
	if retention <= 0 {
		retention = DefaultRetention
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		logger:   logger,
		sessions: make(map[*Session]struct{}),
		capacity: retention,
		snapshot: snapshot,
	}
}

// Attach registers a new observer session. The caller sends it a full
// snapshot first, per the connect contract.
func (h *Hub) Attach() *Session {
	s := &Session{out: make(chan *Message, sessionBuffer)}
	h.mu.Lock()
	h.sessions[s] = struct{}{}
	h.mu.Unlock()
	return s
}

// Detach removes a session and closes its outbox.
func (h *Hub) Detach(s *Session) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.detachLocked(s)
}

func (h *Hub) detachLocked(s *Session) {
	if _, ok := h.sessions[s]; !ok {
		return
	}
	delete(h.sessions, s)
	s.closed = true
	close(s.out)
}

// SendTo queues a direct reply (snapshot, catch-up batch) to one
// session, sharing the outbox with broadcast so the transport has a
// single writer. Reports false if the session is gone or saturated.
func (h *Hub) SendTo(s *Session, msg *Message) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if s.closed {
		return false
	}
	select {
	case s.out <- msg:
		return true
	default:
		h.detachLocked(s)
		return false
	}
}

// Observers returns the number of attached sessions.
func (h *Hub) Observers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.sessions)
}

// Publish buffers one committed delta and fans it out. A session whose
// outbox is full is detached; the remaining sessions are unaffected.
func (h *Hub) Publish(msg *Message) {
	if msg == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	h.retention = append(h.retention, msg)
	if len(h.retention) > h.capacity {
		h.retention = h.retention[len(h.retention)-h.capacity:]
	}

	for s := range h.sessions {
		select {
		case s.out <- msg:
		default:
			h.logger.Warn("observer too slow, detaching", "version", msg.Version)
			h.detachLocked(s)
		}
	}
}

// SnapshotMessage returns a full snapshot of current committed state.
func (h *Hub) SnapshotMessage() *Message {
	return SnapshotMessage(h.snapshot())
}

// Resync answers an observer that applied versions up to lastApplied.
// If every missing delta is still retained, the reply is a bounded
// catch-up batch; otherwise the reply is a fresh full snapshot.
func (h *Hub) Resync(lastApplied int64) *Message {
	h.mu.Lock()
	var deltas []*Message
	covered := true
	if len(h.retention) == 0 {
		covered = lastApplied >= h.currentVersionLocked()
	} else if h.retention[0].Version > lastApplied+1 {
		covered = false
	} else {
		for _, m := range h.retention {
			if m.Version > lastApplied {
				deltas = append(deltas, m)
			}
		}
	}
	h.mu.Unlock()

	if !covered {
		return h.SnapshotMessage()
	}
	var version int64 = lastApplied
	if len(deltas) > 0 {
		version = deltas[len(deltas)-1].Version
	}
	return &Message{Type: MsgResyncBatch, Version: version, Deltas: deltas}
}

func (h *Hub) currentVersionLocked() int64 {
	if h.snapshot == nil {
		return 0
	}
	return h.snapshot().Version
}
