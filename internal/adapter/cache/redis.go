package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	domain "p2p-lending-backend/internal/domain/risk"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "risk:assessment:"

// RedisAssessmentCache stores risk assessments in redis under a fixed TTL.
// Expiry is left entirely to redis; a missing key is a miss, never an error.
type RedisAssessmentCache struct {
	rdb *redis.Client
}

func NewRedisAssessmentCache(rdb *redis.Client) *RedisAssessmentCache {
	return &RedisAssessmentCache{rdb: rdb}
}

func (c *RedisAssessmentCache) Get(ctx context.Context, key string) (*domain.Assessment, bool, error) {
	raw, err := c.rdb.Get(ctx, keyPrefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, err
	}
	var a domain.Assessment
	if err := json.Unmarshal(raw, &a); err != nil {
		// A corrupt entry behaves like a miss so it gets overwritten.
		return nil, false, nil
	}
	return &a, true, nil
}

func (c *RedisAssessmentCache) Set(ctx context.Context, key string, a *domain.Assessment, ttl time.Duration) error {
	payload, err := json.Marshal(a)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, keyPrefix+key, payload, ttl).Err()
}
