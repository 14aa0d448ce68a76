package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"

	"github.com/medication-net-benefit/internal/domain"
)

const redisKeyPrefix = "netbenefit:result:"

// cachedResult is the Redis payload.
type cachedResult struct {
	Result   domain.NetBenefitResult `json:"result"`
	CachedAt time.Time               `json:"cached_at"`
}

// RedisCache is the shared warm tier. Every round trip runs through a circuit
// breaker so an unavailable Redis degrades to cache misses.
type RedisCache struct {
	client     *redis.Client
	breaker    *gobreaker.CircuitBreaker
	defaultTTL time.Duration
	logger     *logrus.Logger
}

// NewRedisCache connects to cfg.RedisURL and verifies the connection.
func NewRedisCache(cfg domain.CacheConfig, logger *logrus.Logger) (*RedisCache, error) {
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	if cfg.PoolSize > 0 {
		opts.PoolSize = cfg.PoolSize
	}
	if cfg.PoolTimeout > 0 {
		opts.PoolTimeout = cfg.PoolTimeout
	}
	opts.MaxRetries = cfg.MaxRetries

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewRedisCacheFromClient(client, cfg.DefaultTTL, logger), nil
}

// NewRedisCacheFromClient wraps an existing client without pinging it.
func NewRedisCacheFromClient(client *redis.Client, defaultTTL time.Duration, logger *logrus.Logger) *RedisCache {
	if defaultTTL <= 0 {
		defaultTTL = DefaultRedisTTL
	}
	if logger == nil {
		logger = logrus.New()
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "redis-result-cache",
		MaxRequests: 3,
		Interval:    30 * time.Second,
		Timeout:     60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= 0.6
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.WithFields(logrus.Fields{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			}).Warn("Circuit breaker state changed")
		},
	})

	return &RedisCache{
		client:     client,
		breaker:    breaker,
		defaultTTL: defaultTTL,
		logger:     logger,
	}
}

// Get reads a result. Misses, breaker rejections and decode failures all
// report ok=false.
func (r *RedisCache) Get(ctx context.Context, key string) (*domain.NetBenefitResult, bool) {
	value, err := r.breaker.Execute(func() (interface{}, error) {
		val, err := r.client.Get(ctx, redisKeyPrefix+key).Bytes()
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return val, err
	})
	if err != nil {
		r.logger.WithError(err).WithField("key", key).Debug("Redis cache read failed")
		return nil, false
	}
	raw, _ := value.([]byte)
	if raw == nil {
		return nil, false
	}

	var cached cachedResult
	if err := json.Unmarshal(raw, &cached); err != nil {
		r.client.Del(ctx, redisKeyPrefix+key)
		return nil, false
	}
	return &cached.Result, true
}

// Set writes a result with ttl, or the default TTL when ttl is zero.
func (r *RedisCache) Set(ctx context.Context, key string, result *domain.NetBenefitResult, ttl time.Duration) error {
	if result == nil {
		return nil
	}
	if ttl <= 0 {
		ttl = r.defaultTTL
	}

	payload, err := json.Marshal(cachedResult{Result: *result, CachedAt: time.Now().UTC()})
	if err != nil {
		return fmt.Errorf("failed to marshal cached result: %w", err)
	}

	_, err = r.breaker.Execute(func() (interface{}, error) {
		return nil, r.client.Set(ctx, redisKeyPrefix+key, payload, ttl).Err()
	})
	if err != nil {
		return domain.NewEngineError(domain.CodeCacheError, "failed to write result cache", key, err)
	}
	return nil
}

// State reports the circuit breaker state.
func (r *RedisCache) State() gobreaker.State {
	return r.breaker.State()
}

// Close releases the Redis connection pool.
func (r *RedisCache) Close() error {
	return r.client.Close()
}

var _ domain.ResultCache = (*RedisCache)(nil)
