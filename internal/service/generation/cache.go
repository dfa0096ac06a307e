package generation

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"inkwell/internal/domain/models"
	"inkwell/internal/domain/services"
)

// RedisCache stores generated results in Redis with a fixed TTL
type RedisCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

var _ services.GenerationCache = (*RedisCache)(nil)

// NewRedisCache connects to redisURL and verifies the connection
func NewRedisCache(redisURL string, ttl time.Duration) (*RedisCache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return NewRedisCacheWithClient(client, ttl), nil
}

// NewRedisCacheWithClient creates a cache from an existing Redis client
func NewRedisCacheWithClient(client *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{
		client: client,
		prefix: "inkwell:generation:",
		ttl:    ttl,
	}
}

// key hashes mode and content so arbitrarily long posts map to short keys
func (c *RedisCache) key(mode models.GenerationMode, content string) string {
	sum := sha256.Sum256([]byte(string(mode) + "\x00" + content))
	return c.prefix + hex.EncodeToString(sum[:])
}

// Get returns the cached result for (mode, content)
func (c *RedisCache) Get(ctx context.Context, mode models.GenerationMode, content string) (string, bool, error) {
	result, err := c.client.Get(ctx, c.key(mode, content)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("lookup generation cache: %w", err)
	}
	return result, true, nil
}

// Set stores result for (mode, content)
func (c *RedisCache) Set(ctx context.Context, mode models.GenerationMode, content, result string) error {
	if err := c.client.Set(ctx, c.key(mode, content), result, c.ttl).Err(); err != nil {
		return fmt.Errorf("store generation cache: %w", err)
	}
	return nil
}

// Close closes the Redis connection
func (c *RedisCache) Close() error {
	return c.client.Close()
}

// Ping checks if Redis is reachable
func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}
