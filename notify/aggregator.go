// Package notify merges the two notification pools a session sees: the
// ephemeral queue pushed over the wire during this session, and the
// persisted, paginated log fetched from the platform API. The pools keep
// independent invalidation rules; the merged view is a projection computed
// on read, never a mutation of either pool.
package notify

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nikhilesh121/luvrix-realtime/api"
	"github.com/nikhilesh121/luvrix-realtime/wire"
)

// EphemeralCap bounds the session-only pool; the oldest entries beyond it
// are dropped.
const EphemeralCap = 20

// Item is one entry of the merged view. Ephemeral marks entries that only
// exist in session memory: they have no persisted read flag and always
// count as unread.
type Item struct {
	wire.Notification
	Ephemeral bool `json:"ephemeral"`
}

// Aggregator owns the two pools and the read-state transitions.
type Aggregator struct {
	store api.Store

	mu             sync.RWMutex
	ephemeral      []wire.Notification // newest first
	persisted      []wire.Notification
	unread         int
	categoryCounts map[string]int
	category       string
	limit          int
}

// NewAggregator creates an aggregator backed by the persistence API.
func NewAggregator(store api.Store) *Aggregator {
	return &Aggregator{
		store:          store,
		categoryCounts: make(map[string]int),
		category:       wire.CategoryAll,
		limit:          50,
	}
}

// Fetch loads a page of persisted notifications for a category, replacing
// the persisted pool and the unread counters.
func (a *Aggregator) Fetch(ctx context.Context, category string, limit int) error {
	if category == "" {
		category = wire.CategoryAll
	}
	page, err := a.store.FetchNotifications(ctx, category, limit)
	if err != nil {
		return err
	}

	a.mu.Lock()
	a.persisted = page.Items
	a.unread = page.UnreadCount
	a.categoryCounts = page.CategoryCounts
	if a.categoryCounts == nil {
		a.categoryCounts = make(map[string]int)
	}
	a.category = category
	if limit > 0 {
		a.limit = limit
	}
	a.mu.Unlock()
	return nil
}

// PushLive prepends a pushed notification to the ephemeral pool, assigning
// a synthetic id when the wire carried none.
func (a *Aggregator) PushLive(n wire.Notification) {
	if n.ID == "" {
		n.ID = "live-" + uuid.NewString()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now()
	}
	n.Read = false

	a.mu.Lock()
	a.ephemeral = append([]wire.Notification{n}, a.ephemeral...)
	if len(a.ephemeral) > EphemeralCap {
		a.ephemeral = a.ephemeral[:EphemeralCap]
	}
	a.mu.Unlock()
}

// Merged projects the display list: ephemeral entries first, then the
// fetched persisted page, filtered by category.
func (a *Aggregator) Merged(category string) []Item {
	if category == "" {
		category = wire.CategoryAll
	}
	a.mu.RLock()
	defer a.mu.RUnlock()

	out := make([]Item, 0, len(a.ephemeral)+len(a.persisted))
	for _, n := range a.ephemeral {
		if category == wire.CategoryAll || wire.CategoryOf(n) == category {
			out = append(out, Item{Notification: n, Ephemeral: true})
		}
	}
	for _, n := range a.persisted {
		if category == wire.CategoryAll || wire.CategoryOf(n) == category {
			out = append(out, Item{Notification: n, Ephemeral: false})
		}
	}
	return out
}

// MarkOneRead transitions one item to read. Ephemeral items are simply
// removed from their pool; persisted items flip the stored flag and
// decrement the local unread count, floored at zero. The local update is
// optimistic: a failed call is corrected by the next refetch.
func (a *Aggregator) MarkOneRead(ctx context.Context, item Item) error {
	if item.Ephemeral {
		a.mu.Lock()
		for i := range a.ephemeral {
			if a.ephemeral[i].ID == item.ID {
				a.ephemeral = append(a.ephemeral[:i], a.ephemeral[i+1:]...)
				break
			}
		}
		a.mu.Unlock()
		return nil
	}

	a.mu.Lock()
	for i := range a.persisted {
		if a.persisted[i].ID == item.ID && !a.persisted[i].Read {
			a.persisted[i].Read = true
			if a.unread > 0 {
				a.unread--
			}
			category := wire.CategoryOf(a.persisted[i])
			if a.categoryCounts[category] > 0 {
				a.categoryCounts[category]--
			}
			if a.categoryCounts[wire.CategoryAll] > 0 {
				a.categoryCounts[wire.CategoryAll]--
			}
			break
		}
	}
	a.mu.Unlock()

	return a.store.MarkNotificationRead(ctx, item.ID)
}

// MarkAllRead clears the ephemeral pool, marks the category's persisted
// items read, and refetches counts.
func (a *Aggregator) MarkAllRead(ctx context.Context, category string) error {
	if category == "" {
		category = wire.CategoryAll
	}
	a.mu.Lock()
	a.ephemeral = nil
	limit := a.limit
	a.mu.Unlock()

	if err := a.store.MarkAllNotificationsRead(ctx, category); err != nil {
		return err
	}
	return a.Fetch(ctx, category, limit)
}

// TotalUnread is what the badge shows: persisted unread plus the whole
// ephemeral pool, which has no read flag yet. The persisted part comes from
// the all-categories count when the server supplies one; the last page's
// unread count is scoped to the fetched category and would undercount the
// badge while a filtered view is open.
func (a *Aggregator) TotalUnread() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	unread := a.unread
	if total, ok := a.categoryCounts[wire.CategoryAll]; ok {
		unread = total
	}
	return unread + len(a.ephemeral)
}

// UnreadFor returns the persisted unread count of one category.
func (a *Aggregator) UnreadFor(category string) int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.categoryCounts[category]
}

// Refresh refetches the current category with the current limit. Called
// when the notification panel opens, and by the interval refresher.
func (a *Aggregator) Refresh(ctx context.Context) error {
	a.mu.RLock()
	category, limit := a.category, a.limit
	a.mu.RUnlock()
	return a.Fetch(ctx, category, limit)
}

// StartRefresh refreshes counts on an interval until the returned stop
// function is called. Staleness stays bounded even when deliveries are
// lost.
func (a *Aggregator) StartRefresh(interval time.Duration) func() {
	stop := make(chan struct{})
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				if err := a.Refresh(ctx); err != nil {
					log.Printf("notify: refresh: %v", err)
				}
				cancel()
			}
		}
	}()
	return func() { close(stop) }
}
