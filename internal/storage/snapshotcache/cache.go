// Package snapshotcache caches computed indicator snapshots in Redis.
package snapshotcache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	goredis "github.com/go-redis/redis/v8"
	"github.com/pkg/errors"
	"github.com/vadiminshakov/riskgate/internal/domain"
	"go.uber.org/zap"
)

const (
	keyPrefix  = "riskgate:snapshot:"
	DefaultTTL = 15 * time.Minute
)

// client subset of the Redis client used by the cache.
type client interface {
	Get(ctx context.Context, key string) *goredis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *goredis.StatusCmd
	Ping(ctx context.Context) *goredis.StatusCmd
	Close() error
}

// Config Redis connection settings.
type Config struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

// Cache stores snapshots per pair and interval.
type Cache struct {
	logger *zap.Logger
	client client
	ttl    time.Duration
}

// New connects to Redis and pings the server.
func New(ctx context.Context, logger *zap.Logger, cfg Config) (*Cache, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, errors.Wrapf(err, "redis ping %s", cfg.Addr)
	}

	logger.Info("snapshot cache connected", zap.String("addr", cfg.Addr))
	return newCache(logger, rdb, cfg.TTL), nil
}

func newCache(logger *zap.Logger, c client, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{logger: logger, client: c, ttl: ttl}
}

// Key returns the Redis key of a pair and interval.
func Key(pair domain.Pair, interval string) string {
	return fmt.Sprintf("%s%s:%s", keyPrefix, pair, interval)
}

// Get returns the cached snapshot. ok is false on a cache miss.
func (c *Cache) Get(ctx context.Context, pair domain.Pair, interval string) (snap domain.IndicatorSnapshot, ok bool, err error) {
	raw, err := c.client.Get(ctx, Key(pair, interval)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return domain.IndicatorSnapshot{}, false, nil
	}
	if err != nil {
		return domain.IndicatorSnapshot{}, false, errors.Wrap(err, "redis get snapshot")
	}

	if err := json.Unmarshal(raw, &snap); err != nil {
		c.logger.Warn("dropping undecodable cached snapshot", zap.String("pair", pair.String()), zap.Error(err))
		return domain.IndicatorSnapshot{}, false, nil
	}
	return snap, true, nil
}

// Set stores the snapshot with the configured TTL.
func (c *Cache) Set(ctx context.Context, pair domain.Pair, interval string, snap domain.IndicatorSnapshot) error {
	payload, err := json.Marshal(snap)
	if err != nil {
		return errors.Wrap(err, "marshal snapshot")
	}
	if err := c.client.Set(ctx, Key(pair, interval), payload, c.ttl).Err(); err != nil {
		return errors.Wrap(err, "redis set snapshot")
	}
	return nil
}

// Close closes the Redis connection.
func (c *Cache) Close() error {
	return c.client.Close()
}
