package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"cruise-backend/internal/config"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const availablePeriodsKey = "settlement:available-periods"

// NewRedisClient connects to cfg.RedisAddr. It returns nil when Redis is not configured or
// not reachable; callers then run without the cache.
func NewRedisClient(cfg *config.Config, log *zap.Logger) *redis.Client {
	if cfg.RedisAddr == "" {
		return nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.RedisAddr,
		Password:     cfg.RedisPassword,
		DB:           cfg.RedisDB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MaxRetries:   3,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		log.Warn("redis connection failed, period cache disabled", zap.String("addr", cfg.RedisAddr), zap.Error(err))
		_ = client.Close()
		return nil
	}

	log.Info("connected to redis", zap.String("addr", cfg.RedisAddr))
	return client
}

// PeriodCache keeps the list of months with settled sales.
type PeriodCache struct {
	rdb redis.Cmdable
	ttl time.Duration
}

func NewPeriodCache(rdb redis.Cmdable, ttl time.Duration) *PeriodCache {
	return &PeriodCache{rdb: rdb, ttl: ttl}
}

// Get reports ok=false on a miss.
func (c *PeriodCache) Get(ctx context.Context) ([]string, bool, error) {
	raw, err := c.rdb.Get(ctx, availablePeriodsKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read period cache: %w", err)
	}

	var periods []string
	if err := json.Unmarshal(raw, &periods); err != nil {
		return nil, false, fmt.Errorf("decode period cache: %w", err)
	}
	return periods, true, nil
}

func (c *PeriodCache) Set(ctx context.Context, periods []string) error {
	raw, err := json.Marshal(periods)
	if err != nil {
		return err
	}
	if err := c.rdb.Set(ctx, availablePeriodsKey, raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("write period cache: %w", err)
	}
	return nil
}

func (c *PeriodCache) Invalidate(ctx context.Context) error {
	if err := c.rdb.Del(ctx, availablePeriodsKey).Err(); err != nil {
		return fmt.Errorf("invalidate period cache: %w", err)
	}
	return nil
}
