package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-redis/redis/v8"
)

// RedisToken reads the token from a redis string key shared with the web
// login flow. A missing key means the user is signed out.
type RedisToken struct {
	client *redis.Client
	key    string
}

// NewRedisToken creates a redis-backed token source
func NewRedisToken(client *redis.Client, key string) *RedisToken {
	return &RedisToken{client: client, key: key}
}

func (r *RedisToken) Token(ctx context.Context) (string, bool, error) {
	val, err := r.client.Get(ctx, r.key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("reading session token from redis: %w", err)
	}
	return val, val != "", nil
}

// Close releases the underlying client
func (r *RedisToken) Close() error {
	return r.client.Close()
}
