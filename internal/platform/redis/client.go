// Package redis connects the optional namespace cache.
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"feedlog/internal/platform/config"
)

type Client struct {
	*redis.Client
}

// Health is a point-in-time view of the connection used by /healthz.
type Health struct {
	Latency    time.Duration
	TotalConns uint32
	IdleConns  uint32
}

// New dials cfg.URL and pings it within DialTimeout. An empty URL disables the
// cache and returns a nil client.
func New(ctx context.Context, cfg config.RedisConfig) (*Client, error) {
	if cfg.URL == "" {
		return nil, nil
	}
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}
	if cfg.PoolSize > 0 {
		opts.PoolSize = cfg.PoolSize
	}
	opts.MinIdleConns = cfg.MinIdleConns
	opts.DialTimeout = cfg.DialTimeout
	opts.ReadTimeout = cfg.ReadTimeout
	opts.WriteTimeout = cfg.WriteTimeout

	c := &Client{Client: redis.NewClient(opts)}
	pingCtx := ctx
	if cfg.DialTimeout > 0 {
		var cancel context.CancelFunc
		pingCtx, cancel = context.WithTimeout(ctx, cfg.DialTimeout)
		defer cancel()
	}
	if _, err := c.Health(pingCtx); err != nil {
		_ = c.Client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return c, nil
}

func (c *Client) Health(ctx context.Context) (Health, error) {
	start := time.Now()
	if err := c.Ping(ctx).Err(); err != nil {
		return Health{}, err
	}
	stats := c.PoolStats()
	return Health{
		Latency:    time.Since(start),
		TotalConns: stats.TotalConns,
		IdleConns:  stats.IdleConns,
	}, nil
}
