package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/mihir1816/teaching-content-generator/pkg/logger"
)

// EmbeddingCache stores embedding vectors in redis keyed by text hash.
// Because the embedding model is deterministic (same text, same vector),
// serving from cache never changes retrieval results.
type EmbeddingCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewEmbeddingCache(host string, port int, password string, db int, ttl time.Duration) (*EmbeddingCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", host, port),
		Password: password,
		DB:       db,
	})

	if _, err := client.Ping(context.Background()).Result(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	if ttl <= 0 {
		ttl = 24 * time.Hour
	}

	logger.Info("Embedding cache initialized", zap.String("addr", fmt.Sprintf("%s:%d", host, port)))
	return &EmbeddingCache{client: client, ttl: ttl}, nil
}

func (c *EmbeddingCache) Close() error {
	return c.client.Close()
}

func (c *EmbeddingCache) Get(ctx context.Context, textHash string) ([]float32, bool, error) {
	data, err := c.client.Get(ctx, key(textHash)).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get cached embedding: %w", err)
	}

	var embedding []float32
	if err := json.Unmarshal(data, &embedding); err != nil {
		return nil, false, fmt.Errorf("failed to unmarshal cached embedding: %w", err)
	}
	return embedding, true, nil
}

func (c *EmbeddingCache) Set(ctx context.Context, textHash string, embedding []float32) error {
	data, err := json.Marshal(embedding)
	if err != nil {
		return fmt.Errorf("failed to marshal embedding: %w", err)
	}
	if err := c.client.Set(ctx, key(textHash), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache embedding: %w", err)
	}
	return nil
}

func key(textHash string) string {
	return fmt.Sprintf("embedding:%s", textHash)
}
