package gateway

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/vmihailenco/msgpack/v5"
)

// TTLs for the cache entries. Counters change often, unread counts are
// invalidated on every write anyway.
const (
	countersTTL = 1 * time.Minute
	unreadTTL   = 2 * time.Minute
)

// Cache wraps redis for the gateway's hot reads. A nil *Cache is valid
// and disables caching, so the gateway runs without redis in development.
type Cache struct {
	client *redis.Client
	ctx    context.Context
}

// NewCache creates a redis-backed cache.
func NewCache(addr, password string, db int) *Cache {
	return &Cache{
		client: redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: password,
			DB:       db,
		}),
		ctx: context.Background(),
	}
}

// Ping checks that redis is reachable.
func (c *Cache) Ping() error {
	if c == nil {
		return nil
	}
	return c.client.Ping(c.ctx).Err()
}

// Close closes the redis connection.
func (c *Cache) Close() error {
	if c == nil {
		return nil
	}
	return c.client.Close()
}

func countersKey(targetID string) string { return fmt.Sprintf("counters:%s", targetID) }
func unreadKey(userID string) string     { return fmt.Sprintf("unread:%s", userID) }

// GetCounters returns cached counters for a target.
func (c *Cache) GetCounters(targetID string) (ContentCounter, bool) {
	if c == nil {
		return ContentCounter{}, false
	}
	data, err := c.client.Get(c.ctx, countersKey(targetID)).Bytes()
	if err != nil {
		return ContentCounter{}, false
	}
	var counter ContentCounter
	if err := msgpack.Unmarshal(data, &counter); err != nil {
		return ContentCounter{}, false
	}
	return counter, true
}

// SetCounters caches the counters of a target.
func (c *Cache) SetCounters(targetID string, counter ContentCounter) {
	if c == nil {
		return
	}
	data, err := msgpack.Marshal(counter)
	if err != nil {
		return
	}
	c.client.Set(c.ctx, countersKey(targetID), data, countersTTL)
}

// InvalidateCounters drops a target's cached counters.
func (c *Cache) InvalidateCounters(targetID string) {
	if c == nil {
		return
	}
	c.client.Del(c.ctx, countersKey(targetID))
}

// GetUnread returns cached per-category unread counts for a user.
func (c *Cache) GetUnread(userID string) (map[string]int, bool) {
	if c == nil {
		return nil, false
	}
	data, err := c.client.Get(c.ctx, unreadKey(userID)).Bytes()
	if err != nil {
		return nil, false
	}
	var counts map[string]int
	if err := msgpack.Unmarshal(data, &counts); err != nil {
		return nil, false
	}
	return counts, true
}

// SetUnread caches per-category unread counts for a user.
func (c *Cache) SetUnread(userID string, counts map[string]int) {
	if c == nil {
		return
	}
	data, err := msgpack.Marshal(counts)
	if err != nil {
		return
	}
	c.client.Set(c.ctx, unreadKey(userID), data, unreadTTL)
}

// InvalidateUnread drops a user's cached unread counts.
func (c *Cache) InvalidateUnread(userID string) {
	if c == nil {
		return
	}
	c.client.Del(c.ctx, unreadKey(userID))
}
