package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/ml-career-pulse/backend/pkg/config"
	"github.com/ml-career-pulse/backend/pkg/logger"
)

type Client struct {
	client *redis.Client
}

func NewClient(cfg config.RedisConfig) (*Client, error) {
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := client.Ping(ctx).Result(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	logger.Info("Redis client initialized", zap.String("addr", addr))

	return New(client), nil
}

// New wraps an existing go-redis client.
func New(client *redis.Client) *Client {
	return &Client{client: client}
}

func (c *Client) Close() error {
	return c.client.Close()
}

func (c *Client) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func responseKey(hash string) string {
	return fmt.Sprintf("llm:response:%s", hash)
}

func (c *Client) SetResponse(ctx context.Context, key, response string, ttl time.Duration) error {
	if err := c.client.Set(ctx, responseKey(key), response, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set response cache: %w", err)
	}

	logger.Debug("Model response cached", zap.String("key", key), zap.Duration("ttl", ttl))
	return nil
}

func (c *Client) GetResponse(ctx context.Context, key string) (string, bool, error) {
	val, err := c.client.Get(ctx, responseKey(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to get response cache: %w", err)
	}

	logger.Debug("Response cache hit", zap.String("key", key))
	return val, true, nil
}

// InvalidateResponses drops every cached model response.
func (c *Client) InvalidateResponses(ctx context.Context) (int, error) {
	deleted := 0
	iter := c.client.Scan(ctx, 0, responseKey("*"), 0).Iterator()
	for iter.Next(ctx) {
		if err := c.client.Del(ctx, iter.Val()).Err(); err != nil {
			logger.Warn("Failed to delete cache key", zap.Error(err))
			continue
		}
		deleted++
	}

	if err := iter.Err(); err != nil {
		return deleted, fmt.Errorf("failed to iterate cache keys: %w", err)
	}

	logger.Info("Response cache invalidated", zap.Int("deleted", deleted))
	return deleted, nil
}

func (c *Client) IncrementMetricBy(ctx context.Context, metricName string, n int64) error {
	return c.client.IncrBy(ctx, fmt.Sprintf("metric:%s", metricName), n).Err()
}

func (c *Client) GetMetric(ctx context.Context, metricName string) (int64, error) {
	val, err := c.client.Get(ctx, fmt.Sprintf("metric:%s", metricName)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return val, err
}
