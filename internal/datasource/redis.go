package datasource

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisParams configures a Redis source.
type RedisParams struct {
	URL string `mapstructure:"url"`
}

// Redis is a key/value source. It cannot run SQL rules; detections can be
// published to it.
type Redis struct {
	opts   *redis.Options
	client *redis.Client
}

// NewRedis parses the connection URL.
func NewRedis(p RedisParams) (*Redis, error) {
	if p.URL == "" {
		return nil, fmt.Errorf("redis: url is required")
	}
	opts, err := redis.ParseURL(p.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}
	return &Redis{opts: opts}, nil
}

// NewRedisFromClient wraps an existing client.
func NewRedisFromClient(client *redis.Client) *Redis {
	return &Redis{client: client}
}

// Open creates the client and pings the server.
func (r *Redis) Open(ctx context.Context) error {
	if r.client != nil {
		return nil
	}
	client := redis.NewClient(r.opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return fmt.Errorf("ping redis: %w", err)
	}
	r.client = client
	return nil
}

// Client returns the underlying client, nil before Open.
func (r *Redis) Client() *redis.Client {
	return r.client
}

// Close closes the client.
func (r *Redis) Close() error {
	if r.client == nil {
		return nil
	}
	err := r.client.Close()
	r.client = nil
	return err
}
