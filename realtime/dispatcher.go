package realtime

import (
	"errors"
	"log"
	"sync"

	"github.com/nikhilesh121/luvrix-realtime/wire"
)

// Handler receives a decoded inbound event. Handlers run sequentially on
// the reader goroutine, so merges applied from handlers never race each
// other.
type Handler func(wire.Event)

type subscription struct {
	id int
	fn Handler
}

// Dispatcher is the typed pub/sub bus between the wire and local state.
// Inbound frames are decoded against the closed taxonomy and fanned out to
// the handlers registered for that kind, in registration order. Unknown
// kinds and malformed payloads are dropped, never fatal.
type Dispatcher struct {
	conn *Conn

	mu       sync.Mutex
	nextID   int
	handlers map[string][]subscription
}

// NewDispatcher creates a dispatcher and installs itself as the
// connection's message handler.
func NewDispatcher(conn *Conn) *Dispatcher {
	d := &Dispatcher{
		conn:     conn,
		handlers: make(map[string][]subscription),
	}
	conn.SetMessageHandler(d.handleFrame)
	return d
}

// Subscribe registers a handler for one event kind and returns its
// unsubscribe function.
func (d *Dispatcher) Subscribe(kind string, fn Handler) func() {
	d.mu.Lock()
	d.nextID++
	id := d.nextID
	d.handlers[kind] = append(d.handlers[kind], subscription{id: id, fn: fn})
	d.mu.Unlock()

	return func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		subs := d.handlers[kind]
		for i, s := range subs {
			if s.id == id {
				d.handlers[kind] = append(subs[:i], subs[i+1:]...)
				return
			}
		}
	}
}

// Emit sends an event to a room, best effort. While disconnected the frame
// is silently dropped: every mutation flow also calls the persistence API,
// which is the source of truth, so a lost emit only delays other viewers
// until their next refetch.
func (d *Dispatcher) Emit(room string, ev wire.Event) {
	data, err := wire.Encode(room, ev)
	if err != nil {
		log.Printf("realtime: encode %s: %v", ev.Kind(), err)
		return
	}
	if err := d.conn.Send(data); err != nil && !errors.Is(err, ErrNotConnected) {
		log.Printf("realtime: emit %s: %v", ev.Kind(), err)
	}
}

// handleFrame decodes one inbound frame and dispatches it. Batch frames
// are unpacked and their envelopes dispatched in order.
func (d *Dispatcher) handleFrame(data []byte) {
	ev, err := wire.Decode(data)
	if err != nil {
		if errors.Is(err, wire.ErrUnknownKind) {
			return
		}
		log.Printf("realtime: drop undecodable frame: %v", err)
		return
	}
	d.dispatch(ev)
}

func (d *Dispatcher) dispatch(ev wire.Event) {
	if batch, ok := ev.(*wire.Batch); ok {
		for i := range batch.Events {
			inner, err := wire.DecodeEnvelope(&batch.Events[i])
			if err != nil {
				continue
			}
			d.dispatch(inner)
		}
		return
	}

	d.mu.Lock()
	subs := make([]subscription, len(d.handlers[ev.Kind()]))
	copy(subs, d.handlers[ev.Kind()])
	d.mu.Unlock()

	for _, s := range subs {
		s.fn(ev)
	}
}
