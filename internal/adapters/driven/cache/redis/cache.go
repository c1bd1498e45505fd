// Package redis provides an answer cache shared across processes through
// a redis server.
package redis

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/custodia-labs/effortqa/internal/core/domain"
	"github.com/custodia-labs/effortqa/internal/core/ports/driven"
)

// Ensure Cache implements the interface.
var _ driven.AnswerCache = (*Cache)(nil)

// DefaultPrefix namespaces cached answers.
const DefaultPrefix = "effortqa:answer:"

// Config holds redis connection settings.
type Config struct {
	Addr     string
	Password string
	DB       int

	// Prefix namespaces keys (default: effortqa:answer:).
	Prefix string

	// DialTimeout bounds connection setup (default: 2s).
	DialTimeout time.Duration
}

// Cache stores answers as JSON strings with a redis TTL.
type Cache struct {
	client *goredis.Client
	prefix string
}

// New connects to redis and verifies the server answers a PING.
func New(ctx context.Context, cfg Config) (*Cache, error) {
	if cfg.Addr == "" {
		return nil, fmt.Errorf("%w: redis address is required", domain.ErrInvalidInput)
	}
	if cfg.Prefix == "" {
		cfg.Prefix = DefaultPrefix
	}
	if cfg.DialTimeout == 0 {
		cfg.DialTimeout = 2 * time.Second
	}

	client := goredis.NewClient(&goredis.Options{
		Addr:        cfg.Addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: cfg.DialTimeout,
		MaxRetries:  1,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: redis ping %s: %w", domain.ErrPersistence, cfg.Addr, err)
	}
	return &Cache{client: client, prefix: cfg.Prefix}, nil
}

// key hashes the normalised question so arbitrary text is a safe key.
func (c *Cache) key(question string) string {
	sum := sha256.Sum256([]byte(question))
	return c.prefix + hex.EncodeToString(sum[:])
}

// Get returns the cached result.
func (c *Cache) Get(ctx context.Context, key string) (*domain.ResolveResult, bool, error) {
	data, err := c.client.Get(ctx, c.key(key)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get: %w", err)
	}

	var res domain.ResolveResult
	if err := json.Unmarshal(data, &res); err != nil {
		return nil, false, fmt.Errorf("decode cached answer: %w", err)
	}
	return &res, true, nil
}

// Set stores result for ttl. A non-positive ttl is a no-op.
func (c *Cache) Set(ctx context.Context, key string, result *domain.ResolveResult, ttl time.Duration) error {
	if ttl <= 0 || result == nil {
		return nil
	}
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encode answer: %w", err)
	}
	if err := c.client.Set(ctx, c.key(key), data, ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Flush deletes every key under the prefix.
func (c *Cache) Flush(ctx context.Context) error {
	iter := c.client.Scan(ctx, 0, c.prefix+"*", 100).Iterator()
	var batch []string
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == 100 {
			if err := c.client.Del(ctx, batch...).Err(); err != nil {
				return fmt.Errorf("redis del: %w", err)
			}
			batch = batch[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("redis scan: %w", err)
	}
	if len(batch) > 0 {
		if err := c.client.Del(ctx, batch...).Err(); err != nil {
			return fmt.Errorf("redis del: %w", err)
		}
	}
	return nil
}

// Close closes the connection pool.
func (c *Cache) Close() error {
	return c.client.Close()
}
