package rbac

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/redis/go-redis/v9"
)

const snapshotKeyPrefix = "rbac:snapshot:"

// CachedPrincipal is the cached form of a principal's capability snapshot.
type CachedPrincipal struct {
	UserID  int64    `json:"user_id"`
	Role    Role     `json:"role"`
	Modules Snapshot `json:"modules"`
}

// Principal rebuilds the typed principal.
func (c CachedPrincipal) Principal() *Principal {
	return &Principal{UserID: c.UserID, Role: c.Role, Capabilities: NewCapabilities(c.Modules)}
}

// SnapshotCache keeps principal snapshots for a fixed staleness window.
type SnapshotCache interface {
	Get(ctx context.Context, userID int64) (CachedPrincipal, bool, error)
	Set(ctx context.Context, p CachedPrincipal) error
	Delete(ctx context.Context, userID int64) error
}

// RedisSnapshotCache stores snapshots in Redis with a TTL.
type RedisSnapshotCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisSnapshotCache instantiates the cache helper.
func NewRedisSnapshotCache(client *redis.Client, ttl time.Duration) *RedisSnapshotCache {
	return &RedisSnapshotCache{client: client, ttl: ttl}
}

// Get implements SnapshotCache.
func (c *RedisSnapshotCache) Get(ctx context.Context, userID int64) (CachedPrincipal, bool, error) {
	if c == nil || c.client == nil {
		return CachedPrincipal{}, false, nil
	}
	payload, err := c.client.Get(ctx, snapshotKey(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return CachedPrincipal{}, false, nil
	}
	if err != nil {
		return CachedPrincipal{}, false, err
	}
	var p CachedPrincipal
	if err := json.Unmarshal(payload, &p); err != nil {
		return CachedPrincipal{}, false, err
	}
	return p, true, nil
}

// Set implements SnapshotCache.
func (c *RedisSnapshotCache) Set(ctx context.Context, p CachedPrincipal) error {
	if c == nil || c.client == nil {
		return nil
	}
	raw, err := json.Marshal(p)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, snapshotKey(p.UserID), raw, c.ttl).Err()
}

// Delete implements SnapshotCache.
func (c *RedisSnapshotCache) Delete(ctx context.Context, userID int64) error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Del(ctx, snapshotKey(userID)).Err()
}

// LocalSnapshotCache is a size-bounded in-process cache with a TTL.
type LocalSnapshotCache struct {
	lru *expirable.LRU[int64, CachedPrincipal]
}

// NewLocalSnapshotCache builds a cache holding at most size entries for ttl.
func NewLocalSnapshotCache(size int, ttl time.Duration) *LocalSnapshotCache {
	if size <= 0 {
		size = 1024
	}
	return &LocalSnapshotCache{lru: expirable.NewLRU[int64, CachedPrincipal](size, nil, ttl)}
}

// Get implements SnapshotCache.
func (c *LocalSnapshotCache) Get(_ context.Context, userID int64) (CachedPrincipal, bool, error) {
	p, ok := c.lru.Get(userID)
	return p, ok, nil
}

// Set implements SnapshotCache.
func (c *LocalSnapshotCache) Set(_ context.Context, p CachedPrincipal) error {
	c.lru.Add(p.UserID, p)
	return nil
}

// Delete implements SnapshotCache.
func (c *LocalSnapshotCache) Delete(_ context.Context, userID int64) error {
	c.lru.Remove(userID)
	return nil
}

func snapshotKey(userID int64) string {
	return snapshotKeyPrefix + strconv.FormatInt(userID, 10)
}

var (
	_ SnapshotCache = (*RedisSnapshotCache)(nil)
	_ SnapshotCache = (*LocalSnapshotCache)(nil)
)
