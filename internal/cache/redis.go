// Package cache holds the optional Redis client used for the post list
// cache, token revocation and rate limiting. Every helper degrades to a
// no-op when Redis is not configured.
package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"time"

	"littletimes/internal/middleware"

	"github.com/redis/go-redis/v9"
)

const pingTimeout = 5 * time.Second

var client *redis.Client

// errorCounter increments the Redis error metric for failed commands.
// A cache miss is not an error.
type errorCounter struct{}

func (errorCounter) DialHook(next redis.DialHook) redis.DialHook {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		conn, err := next(ctx, network, addr)
		if err != nil {
			middleware.RedisErrors.WithLabelValues("dial").Inc()
		}
		return conn, err
	}
}

func (errorCounter) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		err := next(ctx, cmd)
		countError(cmd.Name(), err)
		return err
	}
}

func (errorCounter) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redis.Cmder) error {
		err := next(ctx, cmds)
		countError("pipeline", err)
		return err
	}
}

func countError(op string, err error) {
	if err != nil && !errors.Is(err, redis.Nil) {
		middleware.RedisErrors.WithLabelValues(op).Inc()
	}
}

// parseAddr accepts either host:port or a redis:// URL.
func parseAddr(addr string) (*redis.Options, error) {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return nil, errors.New("empty redis address")
	}
	if !strings.Contains(addr, "://") {
		return &redis.Options{Addr: addr}, nil
	}
	opts, err := redis.ParseURL(addr)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return opts, nil
}

// InitRedis connects to addr. When the address is invalid or the server
// does not answer a ping the client stays nil.
func InitRedis(addr string) {
	opts, err := parseAddr(addr)
	if err != nil {
		middleware.Logger.Warn("Redis disabled", slog.String("error", err.Error()))
		client = nil
		return
	}

	c := redis.NewClient(opts)
	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if err := c.Ping(ctx).Err(); err != nil {
		middleware.Logger.Warn("Redis unreachable, continuing without cache",
			slog.String("addr", opts.Addr),
			slog.String("error", err.Error()),
		)
		_ = c.Close()
		client = nil
		return
	}

	c.AddHook(errorCounter{})
	middleware.Logger.Info("Redis connected", slog.String("addr", opts.Addr))
	client = c
}

// SetClient replaces the package client. Tests point it at miniredis.
func SetClient(c *redis.Client) {
	if c != nil {
		c.AddHook(errorCounter{})
	}
	client = c
}

// GetClient returns the client, or nil when Redis is disabled.
func GetClient() *redis.Client {
	return client
}
