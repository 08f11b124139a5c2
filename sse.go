package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"
)

const (
	sseChannelBuffer = 32
	sseHeartbeat     = 30 * time.Second
)

// Event types pushed to session subscribers.
const (
	EventSnapshot  = "snapshot"
	EventAnalytics = "analytics"
	EventError     = "error"
)

// Event is the envelope of every pushed message.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

// client is one subscriber: an SSE stream or a websocket writer.
type client struct {
	ch        chan string
	sessionID string
}

// Broadcaster fans session events out to subscribers.
type Broadcaster struct {
	mu      sync.RWMutex
	clients map[*client]struct{}
}

// NewBroadcaster creates an empty broadcaster.
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{
		clients: make(map[*client]struct{}),
	}
}

// Register subscribes to a session.
func (b *Broadcaster) Register(sessionID string) *client {
	c := &client{
		ch:        make(chan string, sseChannelBuffer),
		sessionID: sessionID,
	}
	b.mu.Lock()
	b.clients[c] = struct{}{}
	b.mu.Unlock()
	return c
}

// Unregister removes a client and closes its channel.
func (b *Broadcaster) Unregister(c *client) {
	b.mu.Lock()
	if _, ok := b.clients[c]; ok {
		delete(b.clients, c)
		close(c.ch)
	}
	b.mu.Unlock()
}

// Publish encodes evt and sends it to every subscriber of the session.
func (b *Broadcaster) Publish(sessionID string, evt Event) {
	data, err := json.Marshal(evt)
	if err != nil {
		return
	}
	b.Broadcast(sessionID, string(data))
}

// Broadcast sends a raw message to all subscribers of a session.
func (b *Broadcaster) Broadcast(sessionID, data string) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for c := range b.clients {
		if c.sessionID == sessionID {
			select {
			case c.ch <- data:
			default:
				// Slow subscriber: drop, the next snapshot supersedes it.
			}
		}
	}
}

// ClientCount returns the number of subscribers of a session.
func (b *Broadcaster) ClientCount(sessionID string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	n := 0
	for c := range b.clients {
		if c.sessionID == sessionID {
			n++
		}
	}
	return n
}

// ServeSSE streams a session's events until the request ends.
func (b *Broadcaster) ServeSSE(w http.ResponseWriter, r *http.Request, sessionID string, onConnect func(c *client)) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming non supporté", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	c := b.Register(sessionID)
	defer b.Unregister(c)

	if onConnect != nil {
		onConnect(c)
	}

	ticker := time.NewTicker(sseHeartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case msg, ok := <-c.ch:
			if !ok {
				return
			}
			fmt.Fprintf(w, "data: %s\n\n", msg)
			flusher.Flush()
		case <-ticker.C:
			fmt.Fprintf(w, ": heartbeat\n\n")
			flusher.Flush()
		}
	}
}

// send queues evt for one client without blocking.
func (c *client) send(evt Event) {
	data, err := json.Marshal(evt)
	if err != nil {
		return
	}
	select {
	case c.ch <- string(data):
	default:
	}
}
