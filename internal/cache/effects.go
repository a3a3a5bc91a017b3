// Package cache holds the short-lived state shared across requests: user
// skill effect maps and recent chat activity. Each concern has an in-process
// and a Redis implementation.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/cory-johannsen/waifu/internal/game/skill"
)

type effectEntry struct {
	fx      skill.Effects
	expires time.Time
}

// MemoryEffectCache is an in-process skill.EffectCache with a fixed TTL.
// A janitor goroutine evicts expired entries until Close is called.
type MemoryEffectCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	entries map[int64]effectEntry

	closeOnce sync.Once
	done      chan struct{}
}

// NewMemoryEffectCache creates a cache whose entries live for ttl.
//
// Precondition: ttl > 0.
// Postcondition: The janitor runs until Close.
func NewMemoryEffectCache(ttl time.Duration) *MemoryEffectCache {
	c := &MemoryEffectCache{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[int64]effectEntry),
		done:    make(chan struct{}),
	}
	go c.janitor()
	return c
}

// Get returns a copy of the cached map for userID.
func (c *MemoryEffectCache) Get(_ context.Context, userID int64) (skill.Effects, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[userID]
	if !ok || !c.now().Before(e.expires) {
		return nil, false, nil
	}
	return e.fx.Merge(nil), true, nil
}

// Set stores a copy of fx for userID.
func (c *MemoryEffectCache) Set(_ context.Context, userID int64, fx skill.Effects) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[userID] = effectEntry{fx: fx.Merge(nil), expires: c.now().Add(c.ttl)}
	return nil
}

// Delete evicts userID.
func (c *MemoryEffectCache) Delete(_ context.Context, userID int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, userID)
	return nil
}

// Len returns the number of live and not-yet-evicted entries.
func (c *MemoryEffectCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Close stops the janitor. Safe to call more than once.
func (c *MemoryEffectCache) Close() {
	c.closeOnce.Do(func() { close(c.done) })
}

func (c *MemoryEffectCache) janitor() {
	ticker := time.NewTicker(c.ttl)
	defer ticker.Stop()
	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			c.evict()
		}
	}
}

func (c *MemoryEffectCache) evict() {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	for id, e := range c.entries {
		if !now.Before(e.expires) {
			delete(c.entries, id)
		}
	}
}

// RedisEffectCache stores effect maps as JSON strings with a TTL.
type RedisEffectCache struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
}

// NewRedisEffectCache creates a Redis-backed skill.EffectCache.
//
// Precondition: client must be non-nil; ttl > 0.
func NewRedisEffectCache(client *redis.Client, ttl time.Duration) *RedisEffectCache {
	return &RedisEffectCache{client: client, ttl: ttl, prefix: "waifu:effects:"}
}

func (c *RedisEffectCache) key(userID int64) string {
	return fmt.Sprintf("%s%d", c.prefix, userID)
}

// Get returns the cached map for userID. A miss is (nil, false, nil).
func (c *RedisEffectCache) Get(ctx context.Context, userID int64) (skill.Effects, bool, error) {
	raw, err := c.client.Get(ctx, c.key(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("reading effects for user %d: %w", userID, err)
	}
	var fx skill.Effects
	if err := json.Unmarshal(raw, &fx); err != nil {
		return nil, false, fmt.Errorf("decoding effects for user %d: %w", userID, err)
	}
	return fx, true, nil
}

// Set stores fx for userID.
func (c *RedisEffectCache) Set(ctx context.Context, userID int64, fx skill.Effects) error {
	raw, err := json.Marshal(fx)
	if err != nil {
		return fmt.Errorf("encoding effects: %w", err)
	}
	if err := c.client.Set(ctx, c.key(userID), raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("writing effects for user %d: %w", userID, err)
	}
	return nil
}

// Delete evicts userID.
func (c *RedisEffectCache) Delete(ctx context.Context, userID int64) error {
	if err := c.client.Del(ctx, c.key(userID)).Err(); err != nil {
		return fmt.Errorf("evicting effects for user %d: %w", userID, err)
	}
	return nil
}
