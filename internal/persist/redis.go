package persist

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisSlot stores the slot as a plain Redis string key.
type RedisSlot struct {
	client *redis.Client
	name   string
}

// NewRedisSlot connects to redisURL (e.g. "redis://localhost:6379/0").
func NewRedisSlot(ctx context.Context, redisURL, name string) (*RedisSlot, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &RedisSlot{client: client, name: name}, nil
}

func (s *RedisSlot) Name() string { return s.name }

func (s *RedisSlot) Read(ctx context.Context) ([]byte, error) {
	data, err := s.client.Get(ctx, s.name).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrSlotEmpty
	}
	return data, err
}

func (s *RedisSlot) Write(ctx context.Context, data []byte) error {
	return s.client.Set(ctx, s.name, data, 0).Err()
}

func (s *RedisSlot) Close() error {
	return s.client.Close()
}
