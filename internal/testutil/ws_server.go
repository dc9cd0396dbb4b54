package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gorilla/websocket"

	"github.com/nikhilesh121/luvrix-realtime/wire"
)

// WSServer is a minimal in-process stand-in for the gateway's websocket
// endpoint: it accepts connections, records every inbound frame, and lets
// tests push frames to all connected clients.
type WSServer struct {
	t  *testing.T
	ts *httptest.Server

	mu       sync.Mutex
	conns    []*websocket.Conn
	received []wire.Envelope
	frames   chan wire.Envelope
}

// NewWSServer starts a websocket test server.
func NewWSServer(t *testing.T) *WSServer {
	t.Helper()
	s := &WSServer{t: t, frames: make(chan wire.Envelope, 64)}
	upgrader := websocket.Upgrader{}
	s.ts = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		s.mu.Lock()
		s.conns = append(s.conns, conn)
		s.mu.Unlock()
		go s.readLoop(conn)
	}))
	t.Cleanup(s.Close)
	return s
}

func (s *WSServer) readLoop(conn *websocket.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var env wire.Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			continue
		}
		s.mu.Lock()
		s.received = append(s.received, env)
		s.mu.Unlock()
		select {
		case s.frames <- env:
		default:
		}
	}
}

// URL returns the ws:// endpoint of the server.
func (s *WSServer) URL() string {
	return "ws" + strings.TrimPrefix(s.ts.URL, "http")
}

// Frames exposes inbound envelopes as they arrive.
func (s *WSServer) Frames() <-chan wire.Envelope { return s.frames }

// Received returns a copy of every envelope seen so far.
func (s *WSServer) Received() []wire.Envelope {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]wire.Envelope, len(s.received))
	copy(out, s.received)
	return out
}

// Push sends an event to every connected client.
func (s *WSServer) Push(room string, ev wire.Event) {
	data, err := wire.Encode(room, ev)
	if err != nil {
		s.t.Fatalf("encode push: %v", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, conn := range s.conns {
		_ = conn.WriteMessage(websocket.TextMessage, data)
	}
}

// PushRaw sends a raw frame to every connected client.
func (s *WSServer) PushRaw(data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, conn := range s.conns {
		_ = conn.WriteMessage(websocket.TextMessage, data)
	}
}

// DropClients closes every live connection, simulating a network drop.
func (s *WSServer) DropClients() {
	s.mu.Lock()
	conns := s.conns
	s.conns = nil
	s.mu.Unlock()
	for _, conn := range conns {
		conn.Close()
	}
}

// Close shuts the server down.
func (s *WSServer) Close() {
	s.DropClients()
	s.ts.Close()
}
