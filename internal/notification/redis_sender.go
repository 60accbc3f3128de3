package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"shape/internal/config"
)

// RedisSender pushes welcome emails onto a Redis list for an external
// mail worker to consume.
type RedisSender struct {
	client *redis.Client
	key    string
}

func NewRedisSender(cfg config.RedisConfig) (*RedisSender, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Addr, err)
	}

	return &RedisSender{client: client, key: cfg.Key}, nil
}

func (s *RedisSender) Send(ctx context.Context, msg WelcomeEmail) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to encode welcome email: %w", err)
	}

	if err := s.client.RPush(ctx, s.key, payload).Err(); err != nil {
		return fmt.Errorf("failed to enqueue welcome email: %w", err)
	}
	return nil
}

func (s *RedisSender) Close() error {
	return s.client.Close()
}
