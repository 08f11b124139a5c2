package main

import (
	"net/http"
	"net/url"
	"time"

	"github.com/gorilla/websocket"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = wsPongWait * 9 / 10
	wsMaxMessage = 4096
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     sameOrigin,
}

// sameOrigin accepts requests without an Origin header and those whose
// Origin host matches the request host.
func sameOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	return u.Host == r.Host
}

// GET /api/sessions/{id}/ws: inputs in, snapshots out.
func (s *Server) handleSessionWS(w http.ResponseWriter, r *http.Request) {
	g := s.store.GetGame(r.PathValue("id"))
	if g == nil {
		jsonError(w, "Partie introuvable", http.StatusNotFound)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade", "err", err)
		return
	}
	logger := s.logger.With("session", g.ID, "remote", r.RemoteAddr)

	c := s.sse.Register(g.ID)
	logger.Debug("websocket connected", "subscribers", s.sse.ClientCount(g.ID))
	c.send(Event{Type: EventSnapshot, Data: publicSnapshot(g.Snapshot())})

	done := make(chan struct{})
	go func() {
		defer close(done)
		s.wsWriter(conn, c)
	}()

	conn.SetReadLimit(wsMaxMessage)
	_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	for {
		var in Input
		if err := conn.ReadJSON(&in); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Warn("websocket read", "err", err)
			}
			break
		}
		if !s.moveRL.allow(clientIP(r)) {
			c.send(Event{Type: EventError, Data: "Trop de requêtes, réessayez plus tard"})
			continue
		}
		if _, err := s.applyInput(g, in); err != nil {
			c.send(Event{Type: EventError, Data: inputErrorMessage(err)})
		}
	}

	s.sse.Unregister(c)
	<-done
	_ = conn.Close()
	logger.Debug("websocket closed", "subscribers", s.sse.ClientCount(g.ID))
}

// wsWriter is the only goroutine writing to conn. It returns when the
// client channel closes or a write fails.
func (s *Server) wsWriter(conn *websocket.Conn, c *client) {
	ticker := time.NewTicker(wsPingPeriod)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-c.ch:
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
				drain(conn, c)
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				drain(conn, c)
				return
			}
		}
	}
}

// drain unblocks the reader after a failed write: closing the connection
// makes ReadJSON return, and the channel is consumed until Unregister.
func drain(conn *websocket.Conn, c *client) {
	_ = conn.Close()
	go func() {
		for range c.ch {
		}
	}()
}
