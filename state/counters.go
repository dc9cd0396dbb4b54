package state

import (
	"sync"

	"github.com/nikhilesh121/luvrix-realtime/wire"
)

// CounterKind selects which counter of an entity an update targets.
type CounterKind string

const (
	CounterViews     CounterKind = "views"
	CounterLikes     CounterKind = "likes"
	CounterFavorites CounterKind = "favorites"
)

// Counters caches the last broadcast value of every counter, keyed by
// entity. Values are absolute and merged last-write-wins: a duplicate or
// out-of-order delivery simply re-applies what the server said, which
// avoids double counting when the local actor's own action echoes back.
//
// Per-user flags (liked-by-me, favorited-by-me) cannot be derived from the
// counter value, so they are reconciled from the action field whenever the
// event's actor is the local user.
type Counters struct {
	selfID string

	mu          sync.RWMutex
	values      map[CounterKind]map[string]int
	likedByMe   map[string]bool
	favoritedBy map[string]bool
}

// NewCounters creates an empty counter cache. selfID is the local user's
// id, used to reconcile the per-user flags; empty for signed-out sessions.
func NewCounters(selfID string) *Counters {
	return &Counters{
		selfID: selfID,
		values: map[CounterKind]map[string]int{
			CounterViews:     {},
			CounterLikes:     {},
			CounterFavorites: {},
		},
		likedByMe:   make(map[string]bool),
		favoritedBy: make(map[string]bool),
	}
}

// ApplyView merges a view.updated event.
func (c *Counters) ApplyView(ev wire.ViewUpdated) {
	c.mu.Lock()
	c.values[CounterViews][ev.EntityID] = ev.Views
	c.mu.Unlock()
}

// ApplyLike merges a like.updated event.
func (c *Counters) ApplyLike(ev wire.LikeUpdated) {
	c.mu.Lock()
	c.values[CounterLikes][ev.EntityID] = ev.Likes
	if c.selfID != "" && ev.ActorID == c.selfID {
		c.likedByMe[ev.EntityID] = ev.Action == wire.ActionLike
	}
	c.mu.Unlock()
}

// ApplyFavorite merges a favorite.updated event.
func (c *Counters) ApplyFavorite(ev wire.FavoriteUpdated) {
	c.mu.Lock()
	c.values[CounterFavorites][ev.EntityID] = ev.Favorites
	if c.selfID != "" && ev.ActorID == c.selfID {
		c.favoritedBy[ev.EntityID] = ev.Action == wire.ActionFavorite
	}
	c.mu.Unlock()
}

// Set seeds a counter from a fetched snapshot.
func (c *Counters) Set(kind CounterKind, entityID string, value int) {
	c.mu.Lock()
	c.values[kind][entityID] = value
	c.mu.Unlock()
}

// Value returns the cached counter and whether one has been seen.
func (c *Counters) Value(kind CounterKind, entityID string) (int, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.values[kind][entityID]
	return v, ok
}

// LikedByMe reports the local user's like flag for an entity.
func (c *Counters) LikedByMe(entityID string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.likedByMe[entityID]
}

// FavoritedByMe reports the local user's favorite flag for an entity.
func (c *Counters) FavoritedByMe(entityID string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.favoritedBy[entityID]
}
