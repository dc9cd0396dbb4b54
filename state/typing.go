package state

import (
	"sort"
	"sync"
	"time"

	"github.com/nikhilesh121/luvrix-realtime/wire"
)

// Typist is one entry of a room's typing set.
type Typist struct {
	ActorID   string `json:"actor_id"`
	ActorName string `json:"actor_name"`
}

type typingEntry struct {
	name string
	seen time.Time
}

// TypingSets holds the ephemeral per-entity typing presence. The local
// user is filtered out, duplicate start signals refresh the existing
// entry, and a stop signal removes it. Entries also carry a last-seen
// stamp so a sweeper can evict typers whose client died without sending
// a stop.
type TypingSets struct {
	selfID string

	mu    sync.RWMutex
	rooms map[string]map[string]typingEntry
}

// NewTypingSets creates an empty presence map. selfID is excluded from
// every set.
func NewTypingSets(selfID string) *TypingSets {
	return &TypingSets{
		selfID: selfID,
		rooms:  make(map[string]map[string]typingEntry),
	}
}

// Apply merges a comment.typing event.
func (t *TypingSets) Apply(ev wire.CommentTyping) {
	if ev.ActorID == "" || ev.ActorID == t.selfID {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	set := t.rooms[ev.EntityID]
	if !ev.IsTyping {
		if set != nil {
			delete(set, ev.ActorID)
			if len(set) == 0 {
				delete(t.rooms, ev.EntityID)
			}
		}
		return
	}
	if set == nil {
		set = make(map[string]typingEntry)
		t.rooms[ev.EntityID] = set
	}
	set[ev.ActorID] = typingEntry{name: ev.ActorName, seen: time.Now()}
}

// List returns the current typists for an entity, sorted by name.
func (t *TypingSets) List(entityID string) []Typist {
	t.mu.RLock()
	defer t.mu.RUnlock()

	set := t.rooms[entityID]
	out := make([]Typist, 0, len(set))
	for id, e := range set {
		out = append(out, Typist{ActorID: id, ActorName: e.name})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ActorName < out[j].ActorName })
	return out
}

// Expire evicts entries not refreshed since the cutoff and returns how
// many were removed.
func (t *TypingSets) Expire(cutoff time.Time) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	removed := 0
	for room, set := range t.rooms {
		for id, e := range set {
			if e.seen.Before(cutoff) {
				delete(set, id)
				removed++
			}
		}
		if len(set) == 0 {
			delete(t.rooms, room)
		}
	}
	return removed
}
