package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/law-makers/tracktime/pkg/models"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// RedisCache keeps results in Redis as JSON
type RedisCache struct {
	client *redis.Client
	owned  bool
}

// NewRedisCache wraps an existing client. The caller keeps ownership of it.
func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{client: client}
}

// DialRedis connects to the Redis server at url (redis://...) and pings it
func DialRedis(ctx context.Context, url string) (*RedisCache, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis unreachable: %w", err)
	}
	return &RedisCache{client: client, owned: true}, nil
}

// Get treats any Redis failure as a miss
func (c *RedisCache) Get(ctx context.Context, code string) (*models.TrackingResult, bool) {
	data, err := c.client.Get(ctx, Key(code)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			log.Warn().Err(err).Str("tracking_code", code).Msg("Redis cache read failed")
		}
		return nil, false
	}
	var result models.TrackingResult
	if err := json.Unmarshal(data, &result); err != nil {
		log.Warn().Err(err).Str("tracking_code", code).Msg("Discarding undecodable cache entry")
		return nil, false
	}
	return &result, true
}

func (c *RedisCache) Set(ctx context.Context, result models.TrackingResult, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	data, err := json.Marshal(result)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, Key(result.TrackingCode), data, ttl).Err()
}

func (c *RedisCache) Delete(ctx context.Context, code string) error {
	return c.client.Del(ctx, Key(code)).Err()
}

// Close closes the client when it was dialed by DialRedis
func (c *RedisCache) Close() error {
	if c.owned {
		return c.client.Close()
	}
	return nil
}
