// Package redisclient opens the shared Redis connection used by the
// profile cache.
package redisclient

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultTimeout = 2 * time.Second

type Config struct {
	Addr     string
	Password string
	DB       int
	// Timeout bounds dialing and each read or write; zero means 2s.
	Timeout time.Duration
}

// Client is a go-redis client; commands are called on it directly.
type Client struct {
	*redis.Client
}

func New(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &Client{Client: redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  timeout,
		ReadTimeout:  timeout,
		WriteTimeout: timeout,
	})}
}

// Check reports whether the server answers PING.
func (c *Client) Check(ctx context.Context) error {
	err := c.Ping(ctx).Err()

	if err != nil {
		return fmt.Errorf("redis ping %s: %w", c.Options().Addr, err)
	}

	return nil
}
