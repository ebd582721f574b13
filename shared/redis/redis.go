package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

var ctx = context.Background()

// Client wraps a redis connection used as a chat history cache
type Client struct {
	client *redis.Client
	ttl    time.Duration
}

// NewClient connects to the given redis address
func NewClient(addr, password string, db int, ttl time.Duration) *Client {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return &Client{client: client, ttl: ttl}
}

// Ping verifies the connection is usable
func (r *Client) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Set stores a value with the configured TTL
func (r *Client) Set(key string, value string) {
	r.client.Set(ctx, key, value, r.ttl)
}

// Get retrieves a value; the second return is false on a miss or error
func (r *Client) Get(key string) (string, bool) {
	val, err := r.client.Get(ctx, key).Result()
	if err != nil {
		return "", false
	}
	return val, true
}

// Delete removes a key
func (r *Client) Delete(key string) {
	r.client.Del(ctx, key)
}

// Close releases the underlying connection
func (r *Client) Close() error {
	return r.client.Close()
}
