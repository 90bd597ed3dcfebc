package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"sygl/internal/entity/dto"

	"github.com/redis/go-redis/v9"
)

// versionTTL 版本计数器的保留时间，远大于摘要 TTL
const versionTTL = 24 * time.Hour

var errStaleVersion = errors.New("credits cache version changed")

// CreditsCache caches the per-user credits summary.
//
// Readers take Version before loading from the database and hand it back to Set,
// so a summary loaded before an Invalidate is never written after it.
type CreditsCache interface {
	Get(ctx context.Context, userID uint) (*dto.CreditsResponse, bool, error)
	Version(ctx context.Context, userID uint) (int64, error)
	Set(ctx context.Context, userID uint, version int64, value *dto.CreditsResponse) error
	Invalidate(ctx context.Context, userID uint) error
}

// RedisCreditsCache stores summaries as JSON with a TTL.
type RedisCreditsCache struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
}

// NewRedisCreditsCache wraps an existing client.
func NewRedisCreditsCache(client *redis.Client, ttl time.Duration) *RedisCreditsCache {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &RedisCreditsCache{client: client, ttl: ttl, prefix: "sygl:credits:"}
}

func (c *RedisCreditsCache) key(userID uint) string {
	return fmt.Sprintf("%s%d", c.prefix, userID)
}

func (c *RedisCreditsCache) versionKey(userID uint) string {
	return fmt.Sprintf("%sver:%d", c.prefix, userID)
}

// Get returns the cached summary; a miss is (nil, false, nil).
func (c *RedisCreditsCache) Get(ctx context.Context, userID uint) (*dto.CreditsResponse, bool, error) {
	raw, err := c.client.Get(ctx, c.key(userID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("redis get: %w", err)
	}
	var value dto.CreditsResponse
	if err := json.Unmarshal(raw, &value); err != nil {
		// 数据损坏时当作未命中并清理
		_ = c.client.Del(ctx, c.key(userID)).Err()
		return nil, false, nil
	}
	return &value, true, nil
}

// Version returns the invalidation counter of userID, 0 when never invalidated.
func (c *RedisCreditsCache) Version(ctx context.Context, userID uint) (int64, error) {
	v, err := c.client.Get(ctx, c.versionKey(userID)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("redis get version: %w", err)
	}
	return v, nil
}

// Set stores the summary only while the counter still equals version.
// A lost race is not an error: the write is skipped.
func (c *RedisCreditsCache) Set(ctx context.Context, userID uint, version int64, value *dto.CreditsResponse) error {
	if value == nil {
		return nil
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal credits: %w", err)
	}

	vkey := c.versionKey(userID)
	err = c.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, vkey).Int64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if current != version {
			return errStaleVersion
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, c.key(userID), raw, c.ttl)
			return nil
		})
		return err
	}, vkey)

	switch {
	case err == nil, errors.Is(err, errStaleVersion), errors.Is(err, redis.TxFailedErr):
		return nil
	default:
		return fmt.Errorf("redis set: %w", err)
	}
}

// Invalidate bumps the counter and drops the cached summary after a balance change.
func (c *RedisCreditsCache) Invalidate(ctx context.Context, userID uint) error {
	vkey := c.versionKey(userID)
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, vkey)
		pipe.Expire(ctx, vkey, versionTTL)
		pipe.Del(ctx, c.key(userID))
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis invalidate: %w", err)
	}
	return nil
}

// NoopCache is used when Redis is not configured.
type NoopCache struct{}

func (NoopCache) Get(context.Context, uint) (*dto.CreditsResponse, bool, error) { return nil, false, nil }
func (NoopCache) Version(context.Context, uint) (int64, error)                  { return 0, nil }
func (NoopCache) Set(context.Context, uint, int64, *dto.CreditsResponse) error  { return nil }
func (NoopCache) Invalidate(context.Context, uint) error                        { return nil }

var (
	_ CreditsCache = (*RedisCreditsCache)(nil)
	_ CreditsCache = NoopCache{}
)
