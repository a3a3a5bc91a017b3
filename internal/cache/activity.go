package cache

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// ActivityTracker records which users wrote in which chats and when.
type ActivityTracker interface {
	Touch(ctx context.Context, chatID, userID int64, at time.Time) error
	ActiveSince(ctx context.Context, chatID int64, since time.Time) ([]int64, error)
	Chats(ctx context.Context) ([]int64, error)
}

// MemoryActivity is an in-process ActivityTracker. Entries older than the
// retention are dropped on write.
type MemoryActivity struct {
	mu        sync.Mutex
	retention time.Duration
	chats     map[int64]map[int64]time.Time
}

// NewMemoryActivity creates a tracker that remembers activity for retention.
//
// Precondition: retention > 0.
func NewMemoryActivity(retention time.Duration) *MemoryActivity {
	return &MemoryActivity{retention: retention, chats: make(map[int64]map[int64]time.Time)}
}

// Touch records userID as active in chatID at at.
func (m *MemoryActivity) Touch(_ context.Context, chatID, userID int64, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	users, ok := m.chats[chatID]
	if !ok {
		users = make(map[int64]time.Time)
		m.chats[chatID] = users
	}
	if prev, ok := users[userID]; !ok || at.After(prev) {
		users[userID] = at
	}
	cutoff := at.Add(-m.retention)
	for u, t := range users {
		if t.Before(cutoff) {
			delete(users, u)
		}
	}
	return nil
}

// ActiveSince returns the users seen in chatID at or after since, in
// ascending id order.
func (m *MemoryActivity) ActiveSince(_ context.Context, chatID int64, since time.Time) ([]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []int64
	for u, t := range m.chats[chatID] {
		if !t.Before(since) {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

// Chats returns every chat with recorded activity.
func (m *MemoryActivity) Chats(context.Context) ([]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]int64, 0, len(m.chats))
	for c, users := range m.chats {
		if len(users) > 0 {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

// RedisActivity keeps one sorted set per chat, scored by unix seconds, plus
// a set of known chat ids.
type RedisActivity struct {
	client    *redis.Client
	retention time.Duration
	prefix    string
}

// NewRedisActivity creates a Redis-backed ActivityTracker.
//
// Precondition: client must be non-nil; retention > 0.
func NewRedisActivity(client *redis.Client, retention time.Duration) *RedisActivity {
	return &RedisActivity{client: client, retention: retention, prefix: "waifu:activity:"}
}

func (r *RedisActivity) chatKey(chatID int64) string {
	return r.prefix + strconv.FormatInt(chatID, 10)
}

func (r *RedisActivity) chatsKey() string { return r.prefix + "chats" }

// Touch records userID as active in chatID at at and trims old entries.
func (r *RedisActivity) Touch(ctx context.Context, chatID, userID int64, at time.Time) error {
	key := r.chatKey(chatID)
	cutoff := at.Add(-r.retention).Unix()
	_, err := r.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.ZAdd(ctx, key, redis.Z{Score: float64(at.Unix()), Member: strconv.FormatInt(userID, 10)})
		p.ZRemRangeByScore(ctx, key, "-inf", "("+strconv.FormatInt(cutoff, 10))
		p.Expire(ctx, key, r.retention)
		p.SAdd(ctx, r.chatsKey(), strconv.FormatInt(chatID, 10))
		return nil
	})
	if err != nil {
		return fmt.Errorf("recording activity in chat %d: %w", chatID, err)
	}
	return nil
}

// ActiveSince returns the users seen in chatID at or after since, in
// ascending id order.
func (r *RedisActivity) ActiveSince(ctx context.Context, chatID int64, since time.Time) ([]int64, error) {
	members, err := r.client.ZRangeByScore(ctx, r.chatKey(chatID), &redis.ZRangeBy{
		Min: strconv.FormatInt(since.Unix(), 10),
		Max: "+inf",
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("reading activity in chat %d: %w", chatID, err)
	}
	return parseIDs(members)
}

// Chats returns every chat that still holds activity. Chats whose sorted set
// has expired are removed from the index.
func (r *RedisActivity) Chats(ctx context.Context) ([]int64, error) {
	members, err := r.client.SMembers(ctx, r.chatsKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("listing active chats: %w", err)
	}
	ids, err := parseIDs(members)
	if err != nil {
		return nil, err
	}
	out := ids[:0]
	for _, id := range ids {
		n, err := r.client.Exists(ctx, r.chatKey(id)).Result()
		if err != nil {
			return nil, fmt.Errorf("checking chat %d: %w", id, err)
		}
		if n == 0 {
			r.client.SRem(ctx, r.chatsKey(), strconv.FormatInt(id, 10))
			continue
		}
		out = append(out, id)
	}
	return out, nil
}

func parseIDs(members []string) ([]int64, error) {
	out := make([]int64, 0, len(members))
	for _, m := range members {
		id, err := strconv.ParseInt(m, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parsing id %q: %w", m, err)
		}
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}
