package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/modelrelay/modelrelay/internal/core/domain"
	"github.com/modelrelay/modelrelay/internal/core/ports"
	"github.com/modelrelay/modelrelay/internal/platform/logger"
)

const redisKeyPrefix = "modelrelay:route:"

// Redis shares sticky routes across instances. The key TTL mirrors the
// domain validity window, so Redis handles expiry; Valid is still checked
// on read to keep the boundary exact.
type Redis struct {
	client *redis.Client
}

func NewRedis(addr, password string, db int) (ports.RouteCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return &Redis{client: client}, nil
}

func (c *Redis) Get(ctx context.Context, virtualModel string) (domain.CachedEntryInfo, bool) {
	raw, err := c.client.Get(ctx, redisKeyPrefix+virtualModel).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			logger.Warn("Route cache read failed", zap.String("virtual_model", virtualModel), zap.Error(err))
		}
		return domain.CachedEntryInfo{}, false
	}

	var info domain.CachedEntryInfo
	if err := json.Unmarshal(raw, &info); err != nil {
		return domain.CachedEntryInfo{}, false
	}
	if !info.Valid(time.Now()) {
		return domain.CachedEntryInfo{}, false
	}
	return info, true
}

func (c *Redis) Set(ctx context.Context, virtualModel string, info domain.CachedEntryInfo) error {
	raw, err := json.Marshal(info)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, redisKeyPrefix+virtualModel, raw, domain.RouteCacheTTL).Err()
}

func (c *Redis) Delete(ctx context.Context, virtualModel string) error {
	return c.client.Del(ctx, redisKeyPrefix+virtualModel).Err()
}
