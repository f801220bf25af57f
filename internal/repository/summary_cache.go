package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// SummaryCache 用 Redis 缓存按用户计算的统计结果。
type SummaryCache struct {
	Redis *redis.Client
	TTL   time.Duration
}

func NewSummaryCache(rdb *redis.Client, ttl time.Duration) *SummaryCache {
	return &SummaryCache{Redis: rdb, TTL: ttl}
}

func summaryKey(userID uint) string {
	return fmt.Sprintf("kege:stats:summary:%d", userID)
}

// Get 将缓存内容解码到 dst，未命中时返回 false。
func (c *SummaryCache) Get(ctx context.Context, userID uint, dst interface{}) (bool, error) {
	raw, err := c.Redis.Get(ctx, summaryKey(userID)).Bytes()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return false, err
	}
	return true, nil
}

func (c *SummaryCache) Set(ctx context.Context, userID uint, value interface{}) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.Redis.Set(ctx, summaryKey(userID), raw, c.TTL).Err()
}

func (c *SummaryCache) Invalidate(ctx context.Context, userID uint) error {
	return c.Redis.Del(ctx, summaryKey(userID)).Err()
}
