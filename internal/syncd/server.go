package syncd

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"
)

// Server exposes the hub over a websocket endpoint. Each observer gets
// an independent duplex connection: a write loop draining its session
// outbox, and a read loop accepting resync requests.
type Server struct {
	hub      *Hub
	logger   *slog.Logger
	upgrader websocket.Upgrader
}

// NewServer creates a websocket server for the hub.
func NewServer(hub *Hub, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		hub:    hub,
		logger: logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Handler returns the http handler for the sync endpoint.
func (s *Server) Handler() http.Handler {
	return http.HandlerFunc(s.serve)
}

func (s *Server) serve(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	session := s.hub.Attach()
	defer s.hub.Detach(session)
	s.logger.Info("observer connected", "remote", conn.RemoteAddr().String())

	// Connect contract: full snapshot before any delta.
	if err := conn.WriteJSON(s.hub.SnapshotMessage()); err != nil {
		s.logger.Warn("failed to send snapshot", "error", err)
		return
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for msg := range session.Out() {
			if err := conn.WriteJSON(msg); err != nil {
				s.logger.Info("observer write failed", "error", err)
				conn.Close()
				return
			}
		}
		// Hub detached us (slow consumer); drop the connection so the
		// observer reconnects and resyncs.
		conn.Close()
	}()

	for {
		var msg Message
		if err := conn.ReadJSON(&msg); err != nil {
			s.logger.Info("observer disconnected", "remote", conn.RemoteAddr().String())
			break
		}
		// Replies share the session outbox with broadcast deltas so the
		// connection has a single writer.
		if reply := s.handle(&msg); reply != nil {
			if !s.hub.SendTo(session, reply) {
				break
			}
		}
	}
	s.hub.Detach(session)
	<-done
}

// handle processes one inbound observer message. A malformed message
// yields a full snapshot for that observer only, never a server-wide
// fault.
func (s *Server) handle(msg *Message) *Message {
	if err := msg.Validate(); err != nil {
		s.logger.Warn("protocol error from observer", "error", err)
		return s.hub.SnapshotMessage()
	}
	switch msg.Type {
	case MsgResyncRequest:
		return s.hub.Resync(msg.Version)
	default:
		s.logger.Warn("unexpected message from observer", "type", string(msg.Type))
		return nil
	}
}
