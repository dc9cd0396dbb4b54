package realtime

import (
	"fmt"
	"log"
	"sync"

	"github.com/nikhilesh121/luvrix-realtime/wire"
)

// RoomFor builds the conventional room name for a content item.
func RoomFor(targetType wire.TargetType, targetID string) string {
	return fmt.Sprintf("%s:%s", targetType, targetID)
}

// PersonalRoom builds the room name of a user's notification channel.
func PersonalRoom(userID string) string {
	return "user:" + userID
}

// Rooms tracks the client's own room membership and issues join/leave
// control frames. Joins attempted while disconnected are dropped, not
// queued; callers re-join once the state callback reports connected.
type Rooms struct {
	conn *Conn

	mu     sync.Mutex
	joined map[string]struct{}
}

// NewRooms creates a room router bound to a connection. Membership held at
// reconnect time is re-issued automatically, since the server forgets
// subscriptions when a connection drops.
func NewRooms(conn *Conn) *Rooms {
	r := &Rooms{conn: conn, joined: make(map[string]struct{})}
	conn.AddConnectedHandler(r.rejoinAll)
	return r
}

// Join subscribes to a room. Idempotent: joining a joined room is a no-op,
// as is joining while disconnected.
func (r *Rooms) Join(room string) {
	r.mu.Lock()
	if _, ok := r.joined[room]; ok {
		r.mu.Unlock()
		return
	}
	r.mu.Unlock()

	if err := r.conn.sendControl(&wire.RoomJoin{Room: room}); err != nil {
		return
	}
	r.mu.Lock()
	r.joined[room] = struct{}{}
	r.mu.Unlock()
}

// Leave unsubscribes from a room. Leaving a room never joined is a no-op.
func (r *Rooms) Leave(room string) {
	r.mu.Lock()
	if _, ok := r.joined[room]; !ok {
		r.mu.Unlock()
		return
	}
	delete(r.joined, room)
	r.mu.Unlock()

	if err := r.conn.sendControl(&wire.RoomLeave{Room: room}); err != nil {
		// In-flight deliveries for the room may still arrive; the merges
		// downstream tolerate them.
		log.Printf("realtime: leave %s: %v", room, err)
	}
}

// Joined reports whether the client currently holds a membership for room.
func (r *Rooms) Joined(room string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.joined[room]
	return ok
}

// rejoinAll re-issues joins for every held membership after a reconnect.
func (r *Rooms) rejoinAll() {
	r.mu.Lock()
	rooms := make([]string, 0, len(r.joined))
	for room := range r.joined {
		rooms = append(rooms, room)
	}
	r.mu.Unlock()

	for _, room := range rooms {
		if err := r.conn.sendControl(&wire.RoomJoin{Room: room}); err != nil {
			log.Printf("realtime: rejoin %s: %v", room, err)
		}
	}
}
