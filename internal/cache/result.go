package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"taobao/crawler/internal/domain"
	"time"

	"github.com/redis/go-redis/v9"
)

type ResultCache interface {
	SaveResult(ctx context.Context, productID string, result *domain.ScrapeResult) error
	GetResult(ctx context.Context, productID string) (*domain.ScrapeResult, error)
}

type redisResultCache struct {
	redisClient *redis.Client
	keyPrefix   string
	ttl         time.Duration
}

func NewRedisResultCache(redisClient *redis.Client, keyPrefix string, ttl time.Duration) ResultCache {
	return &redisResultCache{
		redisClient: redisClient,
		keyPrefix:   keyPrefix,
		ttl:         ttl,
	}
}

func (c *redisResultCache) key(productID string) string {
	return c.keyPrefix + productID
}

func (c *redisResultCache) SaveResult(ctx context.Context, productID string, result *domain.ScrapeResult) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to serialize result for product %s: %w", productID, err)
	}

	if err := c.redisClient.SetEx(ctx, c.key(productID), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache result for product %s: %w", productID, err)
	}
	return nil
}

// GetResult returns the cached result, or nil when none is stored or it has expired
func (c *redisResultCache) GetResult(ctx context.Context, productID string) (*domain.ScrapeResult, error) {
	val, err := c.redisClient.Get(ctx, c.key(productID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get cached result for product %s: %w", productID, err)
	}

	var result domain.ScrapeResult
	if err := json.Unmarshal(val, &result); err != nil {
		return nil, fmt.Errorf("failed to decode cached result for product %s: %w", productID, err)
	}
	return &result, nil
}
