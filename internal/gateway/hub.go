package gateway

import (
	"encoding/json"
	"log"
	"sync"

	"github.com/nikhilesh121/luvrix-realtime/wire"
)

// Client is one connected session. Frames are queued on a buffered channel
// drained by the connection's write loop; a full queue drops the frame.
// Slow consumers correct drift through snapshot refetches.
type Client struct {
	UserID string
	send   chan []byte

	closeOnce sync.Once
}

// Send returns the outbound frame channel.
func (c *Client) Send() <-chan []byte { return c.send }

func (c *Client) enqueue(frame []byte) {
	select {
	case c.send <- frame:
	default:
	}
}

func (c *Client) close() {
	c.closeOnce.Do(func() { close(c.send) })
}

// Hub tracks connections and their room subscriptions and fans published
// frames out to every member of a room. It guarantees nothing across
// rooms: ordering holds only within a room, per connection.
type Hub struct {
	onJoin func(*Client, string)

	mu      sync.RWMutex
	clients map[*Client]struct{}
	rooms   map[string]map[*Client]struct{}
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		clients: make(map[*Client]struct{}),
		rooms:   make(map[string]map[*Client]struct{}),
	}
}

// Register adds a connection for a user.
func (h *Hub) Register(userID string) *Client {
	c := &Client{UserID: userID, send: make(chan []byte, 64)}
	h.mu.Lock()
	h.clients[c] = struct{}{}
	total := len(h.clients)
	h.mu.Unlock()
	log.Printf("gateway: user %s connected (total: %d)", userID, total)
	return c
}

// Unregister drops a connection and every membership it held. The room
// itself disappears with its last subscriber.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	delete(h.clients, c)
	for room, members := range h.rooms {
		delete(members, c)
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}
	total := len(h.clients)
	h.mu.Unlock()
	c.close()
	log.Printf("gateway: user %s disconnected (total: %d)", c.UserID, total)
}

// OnJoin registers a hook invoked after a connection joins a room. Set
// once, before any connection registers.
func (h *Hub) OnJoin(fn func(*Client, string)) { h.onJoin = fn }

// Join subscribes a connection to a room, creating the room on first join.
func (h *Hub) Join(c *Client, room string) {
	if room == "" {
		return
	}
	h.mu.Lock()
	members := h.rooms[room]
	if members == nil {
		members = make(map[*Client]struct{})
		h.rooms[room] = members
	}
	members[c] = struct{}{}
	h.mu.Unlock()
	if h.onJoin != nil {
		h.onJoin(c, room)
	}
}

// Leave unsubscribes a connection from a room.
func (h *Hub) Leave(c *Client, room string) {
	h.mu.Lock()
	if members := h.rooms[room]; members != nil {
		delete(members, c)
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}
	h.mu.Unlock()
}

// Members returns how many connections a room currently has.
func (h *Hub) Members(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}

// Publish fans a raw frame out to every member of a room, including the
// sender's own other sessions.
func (h *Hub) Publish(room string, frame []byte) {
	h.mu.RLock()
	members := make([]*Client, 0, len(h.rooms[room]))
	for c := range h.rooms[room] {
		members = append(members, c)
	}
	h.mu.RUnlock()

	for _, c := range members {
		c.enqueue(frame)
	}
}

// PublishEvent encodes an event and fans it out to a room.
func (h *Hub) PublishEvent(room string, ev wire.Event) {
	frame, err := wire.Encode(room, ev)
	if err != nil {
		log.Printf("gateway: encode %s: %v", ev.Kind(), err)
		return
	}
	h.Publish(room, frame)
}

// PushToUser delivers an event on a user's personal channel.
func (h *Hub) PushToUser(userID string, ev wire.Event) {
	h.PublishEvent("user:"+userID, ev)
}

// HandleFrame processes one inbound frame from a client: control frames
// mutate membership, event frames are rebroadcast to their room, anything
// else is dropped.
func (h *Hub) HandleFrame(c *Client, frame []byte) {
	var env wire.Envelope
	if err := json.Unmarshal(frame, &env); err != nil {
		return
	}
	ev, err := wire.DecodeEnvelope(&env)
	if err != nil {
		// Unknown or malformed kinds are dropped for forward compatibility.
		return
	}

	switch ctrl := ev.(type) {
	case *wire.RoomJoin:
		h.Join(c, ctrl.Room)
		return
	case *wire.RoomLeave:
		h.Leave(c, ctrl.Room)
		return
	}

	if env.Room == "" {
		return
	}
	h.Publish(env.Room, frame)
}
