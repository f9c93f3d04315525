package infra

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/bharathmeg/InsightHub/internal/model"

	"github.com/redis/go-redis/v9"
)

const analyticsKeyPrefix = "analytics:revenue:"

// AnalyticsCache keeps the revenue-by-product aggregate per company in Redis.
type AnalyticsCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewAnalyticsCache(rdb *redis.Client, ttl time.Duration) *AnalyticsCache {
	return &AnalyticsCache{rdb: rdb, ttl: ttl}
}

// Get returns the cached aggregate; ok is false on a miss.
func (c *AnalyticsCache) Get(ctx context.Context, company string) (rows []model.ProductRevenue, ok bool, err error) {
	raw, err := c.rdb.Get(ctx, analyticsKeyPrefix+company).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	if err := json.Unmarshal(raw, &rows); err != nil {
		return nil, false, err
	}
	return rows, true, nil
}

func (c *AnalyticsCache) Set(ctx context.Context, company string, rows []model.ProductRevenue) error {
	b, err := json.Marshal(rows)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, analyticsKeyPrefix+company, b, c.ttl).Err()
}

// Invalidate drops the company's aggregate after a mutation.
func (c *AnalyticsCache) Invalidate(ctx context.Context, company string) error {
	return c.rdb.Del(ctx, analyticsKeyPrefix+company).Err()
}
