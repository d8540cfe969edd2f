package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/p-iacone88/booksearch/internal/domain/user"
	"github.com/p-iacone88/booksearch/internal/redisclient"
	"github.com/redis/go-redis/v9"
)

// Profiles caches the hash-free user profile served by the me query.
type Profiles interface {
	Get(ctx context.Context, id string) (user.User, bool, error)
	Set(ctx context.Context, u user.User) error
	Delete(ctx context.Context, id string) error
}

// MemoryProfiles keeps profiles in the process.
type MemoryProfiles struct {
	c *Cache[user.User]
}

func NewMemoryProfiles(ttl time.Duration) *MemoryProfiles {
	return &MemoryProfiles{c: New[user.User](ttl)}
}

func (m *MemoryProfiles) Get(_ context.Context, id string) (user.User, bool, error) {
	u, ok := m.c.Get(id)
	return u, ok, nil
}

func (m *MemoryProfiles) Set(_ context.Context, u user.User) error {
	m.c.Set(u.ID.Hex(), u.Profile())
	return nil
}

func (m *MemoryProfiles) Delete(_ context.Context, id string) error {
	m.c.Delete(id)
	return nil
}

// RedisProfiles shares cached profiles between API replicas.
type RedisProfiles struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisProfiles(client *redisclient.Client, ttl time.Duration) *RedisProfiles {
	return &RedisProfiles{rdb: client.Client, ttl: ttl}
}

func profileKey(id string) string {
	return "booksearch:profile:" + id
}

func (r *RedisProfiles) Get(ctx context.Context, id string) (user.User, bool, error) {
	raw, err := r.rdb.Get(ctx, profileKey(id)).Bytes()

	if err != nil {
		if errors.Is(err, redis.Nil) {
			return user.User{}, false, nil
		}
		return user.User{}, false, fmt.Errorf("redis get profile: %w", err)
	}

	var u user.User

	err = json.Unmarshal(raw, &u)

	if err != nil || u.ID.IsZero() {
		// a corrupt entry is a miss; drop it
		_ = r.rdb.Del(ctx, profileKey(id)).Err()
		return user.User{}, false, nil
	}

	return u.Profile(), true, nil
}

func (r *RedisProfiles) Set(ctx context.Context, u user.User) error {
	// json never carries the hash (json:"-")
	raw, err := json.Marshal(u.Profile())

	if err != nil {
		return err
	}

	return r.rdb.Set(ctx, profileKey(u.ID.Hex()), raw, r.ttl).Err()
}

func (r *RedisProfiles) Delete(ctx context.Context, id string) error {
	return r.rdb.Del(ctx, profileKey(id)).Err()
}
