package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

const (
	// wsWriteWait is the write deadline used when the hub gives no deadline.
	wsWriteWait = 10 * time.Second

	// wsMaxMessageSize caps inbound frames. Viewers have nothing to say;
	// reads only detect liveness.
	wsMaxMessageSize = 4096
)

// wsSink delivers hub events as WebSocket text frames.
type wsSink struct {
	conn *websocket.Conn
}

// Send writes data as one text frame. The hub is the only writer on the
// connection, so no write lock is needed.
func (s *wsSink) Send(ctx context.Context, data []byte) error {
	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(wsWriteWait)
	}
	if err := s.conn.SetWriteDeadline(deadline); err != nil {
		return err
	}
	return s.conn.WriteMessage(websocket.TextMessage, data)
}

// handleWS upgrades to a WebSocket and keeps the viewer subscribed until
// the connection closes.
//
// Inbound frames are read and discarded. No read deadline is set: an idle
// viewer stays connected until the peer goes away or the server shuts down.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written an HTTP error response
		s.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	conn.SetReadLimit(wsMaxMessageSize)

	handle := s.hub.Subscribe(&wsSink{conn: conn})
	// deregistration runs after the connection is closed, so a write
	// blocked on this peer fails fast instead of waiting out its deadline
	defer s.hub.Unsubscribe(handle)
	defer func() { _ = conn.Close() }()

	s.logger.Info("websocket client connected", "subscriber", handle, "remote", r.RemoteAddr)

	// close the connection on server shutdown; the read loop then exits.
	// request context is derived from server context via BaseContext.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-r.Context().Done():
			_ = conn.Close()
		case <-done:
		}
	}()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseNoStatusReceived) {
				s.logger.Debug("websocket read error", "subscriber", handle, "error", err)
			}
			break
		}
	}

	s.logger.Info("websocket client disconnected", "subscriber", handle)
}
