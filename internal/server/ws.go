package server

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPingPeriod = 30 * time.Second
	// wsBuffer bounds how far a slow websocket client can lag before
	// points are dropped for it.
	wsBuffer = 256
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// handleFeed upgrades to a websocket and forwards realtime points as JSON
// until the client disconnects.
func (s *Server) handleFeed(w http.ResponseWriter, req *http.Request) {
	conn, err := upgrader.Upgrade(w, req, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	points, cancel := s.engine.SubscribePoints(wsBuffer)
	defer cancel()

	s.logger.Info("realtime feed connected", "remote", req.RemoteAddr)

	// Reader goroutine: we never expect client messages, but reading is
	// the only way to notice a close frame.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(wsPingPeriod)
	defer ping.Stop()

	for {
		select {
		case <-closed:
			s.logger.Info("realtime feed disconnected", "remote", req.RemoteAddr)
			return
		case <-ping.C:
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case point, ok := <-points:
			if !ok {
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteJSON(point); err != nil {
				s.logger.Debug("realtime feed write failed", "error", err)
				return
			}
		}
	}
}
