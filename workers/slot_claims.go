package workers

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// SlotClaimer coordinates scheduler replicas so only one of them tries to
// create a given slot.
type SlotClaimer interface {
	Claim(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key string) error
}

// NoopSlotClaims is used without redis; every claim succeeds and the
// store's unique dedup key is the only guard.
type NoopSlotClaims struct{}

func (NoopSlotClaims) Claim(context.Context, string, time.Duration) (bool, error) { return true, nil }
func (NoopSlotClaims) Release(context.Context, string) error                      { return nil }

// releaseScript deletes the key only while this replica still owns it.
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

type RedisSlotClaims struct {
	rdb   *redis.Client
	owner string
}

// NewRedisSlotClaims connects to redisURL (redis:// or rediss://) and pings.
func NewRedisSlotClaims(ctx context.Context, redisURL string) (*RedisSlotClaims, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse REDIS_URL: %w", err)
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &RedisSlotClaims{rdb: rdb, owner: uuid.NewString()}, nil
}

func slotKey(key string) string { return "tournament-engine:slot:" + key }

func (r *RedisSlotClaims) Claim(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := r.rdb.SetNX(ctx, slotKey(key), r.owner, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis claim %s: %w", key, err)
	}
	return ok, nil
}

func (r *RedisSlotClaims) Release(ctx context.Context, key string) error {
	if err := releaseScript.Run(ctx, r.rdb, []string{slotKey(key)}, r.owner).Err(); err != nil {
		return fmt.Errorf("redis release %s: %w", key, err)
	}
	return nil
}

func (r *RedisSlotClaims) Ping(ctx context.Context) error {
	return r.rdb.Ping(ctx).Err()
}

func (r *RedisSlotClaims) Close() error {
	return r.rdb.Close()
}
