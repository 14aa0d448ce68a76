package cache

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/medication-net-benefit/internal/domain"
)

// Stats counts cache traffic per tier.
type Stats struct {
	MemoryHits   int64 `json:"memory_hits"`
	MemoryMisses int64 `json:"memory_misses"`
	RedisHits    int64 `json:"redis_hits"`
	RedisMisses  int64 `json:"redis_misses"`
	WriteErrors  int64 `json:"write_errors"`
}

// Tiered checks memory first, then Redis, and back-fills memory on a Redis hit.
type Tiered struct {
	memory *MemoryCache
	redis  *RedisCache
	ttl    time.Duration
	logger *logrus.Logger

	memoryHits   atomic.Int64
	memoryMisses atomic.Int64
	redisHits    atomic.Int64
	redisMisses  atomic.Int64
	writeErrors  atomic.Int64
}

// NewTiered combines a memory tier with an optional Redis tier.
func NewTiered(memory *MemoryCache, redis *RedisCache, ttl time.Duration, logger *logrus.Logger) *Tiered {
	if logger == nil {
		logger = logrus.New()
	}
	return &Tiered{memory: memory, redis: redis, ttl: ttl, logger: logger}
}

// New builds the result cache described by cfg. A disabled cache is a Noop;
// a Redis connection failure is logged and the cache runs memory-only.
func New(cfg domain.CacheConfig, logger *logrus.Logger) domain.ResultCache {
	if !cfg.Enabled {
		return Noop{}
	}
	if logger == nil {
		logger = logrus.New()
	}

	memory := NewMemoryCache(cfg.MemoryMaxItems, cfg.MemoryTTL)
	var remote *RedisCache
	if cfg.RedisURL != "" {
		r, err := NewRedisCache(cfg, logger)
		if err != nil {
			logger.WithError(err).Warn("Redis result cache unavailable, continuing with memory cache only")
		} else {
			remote = r
		}
	}
	return NewTiered(memory, remote, cfg.DefaultTTL, logger)
}

func (t *Tiered) Get(ctx context.Context, key string) (*domain.NetBenefitResult, bool) {
	if result, ok := t.memory.Get(ctx, key); ok {
		t.memoryHits.Add(1)
		return result, true
	}
	t.memoryMisses.Add(1)

	if t.redis == nil {
		return nil, false
	}
	result, ok := t.redis.Get(ctx, key)
	if !ok {
		t.redisMisses.Add(1)
		return nil, false
	}
	t.redisHits.Add(1)
	_ = t.memory.Set(ctx, key, result, 0)
	t.logger.WithFields(logrus.Fields{
		"key":        key,
		"cache_tier": "redis",
	}).Debug("Cache hit in Redis")
	return result, true
}

func (t *Tiered) Set(ctx context.Context, key string, result *domain.NetBenefitResult, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = t.ttl
	}
	_ = t.memory.Set(ctx, key, result, ttl)
	if t.redis == nil {
		return nil
	}
	if err := t.redis.Set(ctx, key, result, ttl); err != nil {
		t.writeErrors.Add(1)
		return fmt.Errorf("redis tier: %w", err)
	}
	return nil
}

// Stats returns a snapshot of the counters.
func (t *Tiered) Stats() Stats {
	return Stats{
		MemoryHits:   t.memoryHits.Load(),
		MemoryMisses: t.memoryMisses.Load(),
		RedisHits:    t.redisHits.Load(),
		RedisMisses:  t.redisMisses.Load(),
		WriteErrors:  t.writeErrors.Load(),
	}
}

// HasRedis reports whether the shared tier is active.
func (t *Tiered) HasRedis() bool {
	return t.redis != nil
}

func (t *Tiered) Close() error {
	_ = t.memory.Close()
	if t.redis != nil {
		return t.redis.Close()
	}
	return nil
}

var _ domain.ResultCache = (*Tiered)(nil)
