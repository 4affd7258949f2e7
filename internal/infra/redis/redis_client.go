// Package redis wraps the go-redis client used for catalog caching and for
// the webhook reconciliation lock.
package redis

import (
	"context"
	"time"

	"iptv-client-portal/internal/config"

	"github.com/go-redis/redis/v8"
)

const dialTimeout = 5 * time.Second

// RedisClient is the slice of the redis API the caches need. The locker
// bypasses it and talks to the underlying client for SetNX and scripting.
type RedisClient interface {
	Ping(ctx context.Context) error
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	Close() error
}

type redClient struct {
	cli *redis.Client
}

var _ RedisClient = (*redClient)(nil)

// NewClient connects and pings; a portal instance refuses to start without
// its cache because the webhook path takes locks through it.
func NewClient(ctx context.Context, cfg *config.RedisConfig) (*redClient, error) {
	c := redis.NewClient(&redis.Options{
		Addr:        cfg.URL,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: dialTimeout,
	})
	if err := c.Ping(ctx).Err(); err != nil {
		_ = c.Close()
		return nil, err
	}
	return &redClient{cli: c}, nil
}

func (c *redClient) Ping(ctx context.Context) error { return c.cli.Ping(ctx).Err() }

func (c *redClient) Get(ctx context.Context, key string) (string, error) {
	return c.cli.Get(ctx, key).Result()
}

func (c *redClient) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	return c.cli.Set(ctx, key, value, ttl).Err()
}

func (c *redClient) Del(ctx context.Context, keys ...string) error {
	return c.cli.Del(ctx, keys...).Err()
}

func (c *redClient) Close() error { return c.cli.Close() }

// IsCacheMiss reports whether err is the client's key-not-found reply.
func IsCacheMiss(err error) bool { return err == redis.Nil }
