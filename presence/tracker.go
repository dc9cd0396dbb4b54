// Package presence tracks who is typing on a content item. The state is
// ephemeral: it exists only while a session is open and is rebuilt from
// scratch after a reconnect.
package presence

import (
	"time"

	"github.com/nikhilesh121/luvrix-realtime/state"
	"github.com/nikhilesh121/luvrix-realtime/wire"
)

// Emitter sends an outbound event to a room. Satisfied by
// realtime.Dispatcher.
type Emitter interface {
	Emit(room string, ev wire.Event)
}

// ExpireAfter is how long a typing entry survives without a refresh
// signal. Covers clients that die mid-type without sending a stop.
const ExpireAfter = 6 * time.Second

// Tracker wraps the typing merge with outbound signalling. Debouncing of
// start signals is the caller's job; the caller must send a stop on
// blur, clear and submit so other viewers don't see a stuck indicator.
type Tracker struct {
	emitter Emitter
	sets    *state.TypingSets
	selfID  string
	name    string
}

// NewTracker creates a tracker for the local user.
func NewTracker(emitter Emitter, selfID, selfName string) *Tracker {
	return &Tracker{
		emitter: emitter,
		sets:    state.NewTypingSets(selfID),
		selfID:  selfID,
		name:    selfName,
	}
}

// Apply merges an inbound comment.typing event.
func (t *Tracker) Apply(ev wire.CommentTyping) {
	t.sets.Apply(ev)
}

// ListFor returns the typists currently visible for a content item.
func (t *Tracker) ListFor(entityID string) []state.Typist {
	return t.sets.List(entityID)
}

// StartTyping signals that the local user is typing on a content item.
func (t *Tracker) StartTyping(room, entityID string) {
	t.signal(room, entityID, true)
}

// StopTyping clears the local user's indicator for a content item.
func (t *Tracker) StopTyping(room, entityID string) {
	t.signal(room, entityID, false)
}

func (t *Tracker) signal(room, entityID string, typing bool) {
	if t.selfID == "" {
		return
	}
	t.emitter.Emit(room, &wire.CommentTyping{
		EntityID:  entityID,
		ActorID:   t.selfID,
		ActorName: t.name,
		IsTyping:  typing,
	})
}

// StartSweeper evicts stale entries on an interval until the returned
// stop function is called.
func (t *Tracker) StartSweeper(interval time.Duration) func() {
	stop := make(chan struct{})
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				t.sets.Expire(time.Now().Add(-ExpireAfter))
			}
		}
	}()
	return func() { close(stop) }
}
