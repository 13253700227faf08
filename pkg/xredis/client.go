package xredis

import (
	"context"
	"encoding/json"
	"time"

	"github.com/questx-lab/authserver/pkg/xcontext"
	"github.com/redis/go-redis/v9"
)

// ErrNil is returned by Get-like methods when the key does not exist.
var ErrNil = redis.Nil

type Client interface {
	SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error)
	SetObjNX(ctx context.Context, key string, obj any, ttl time.Duration) (bool, error)

	// GetDel reads and removes key atomically.
	GetDel(ctx context.Context, key string) (string, error)
	GetDelObj(ctx context.Context, key string, v any) error
}

type client struct {
	redisClient redis.UniversalClient
}

func NewClient(ctx context.Context) (*client, error) {
	redisClient := redis.NewClient(&redis.Options{
		Addr:            xcontext.Configs(ctx).Redis.Addr,
		MaxRetries:      5,
		MinRetryBackoff: 8 * time.Millisecond,
		MaxRetryBackoff: 512 * time.Millisecond,
		DialTimeout:     5 * time.Second,
		ReadTimeout:     5 * time.Second,
		WriteTimeout:    5 * time.Second,
		PoolFIFO:        false,
		PoolSize:        5,
	})

	if err := redisClient.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return &client{redisClient: redisClient}, nil
}

// Wrap builds a Client on top of an existing redis client.
func Wrap(redisClient redis.UniversalClient) *client {
	return &client{redisClient: redisClient}
}

func (c *client) SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	return c.redisClient.SetNX(ctx, key, value, ttl).Result()
}

func (c *client) SetObjNX(ctx context.Context, key string, obj any, ttl time.Duration) (bool, error) {
	b, err := json.Marshal(obj)
	if err != nil {
		return false, err
	}

	return c.SetNX(ctx, key, string(b), ttl)
}

func (c *client) GetDel(ctx context.Context, key string) (string, error) {
	return c.redisClient.GetDel(ctx, key).Result()
}

func (c *client) GetDelObj(ctx context.Context, key string, v any) error {
	s, err := c.GetDel(ctx, key)
	if err != nil {
		return err
	}

	return json.Unmarshal([]byte(s), v)
}
