// Package cache stores evaluation results keyed by a content hash of their
// inputs. A bounded in-memory LRU is always present; Redis can be added as a
// shared second tier behind a circuit breaker.
package cache

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/medication-net-benefit/internal/domain"
)

// Defaults used when the configuration leaves a field at zero.
const (
	DefaultMemoryItems = 1000
	DefaultMemoryTTL   = 15 * time.Minute
	DefaultRedisTTL    = 24 * time.Hour
)

// MemoryCache is the hot tier: a size-bounded LRU with a fixed entry TTL.
type MemoryCache struct {
	lru *expirable.LRU[string, domain.NetBenefitResult]
}

// NewMemoryCache creates an LRU holding at most size entries for ttl each.
func NewMemoryCache(size int, ttl time.Duration) *MemoryCache {
	if size <= 0 {
		size = DefaultMemoryItems
	}
	if ttl <= 0 {
		ttl = DefaultMemoryTTL
	}
	return &MemoryCache{lru: expirable.NewLRU[string, domain.NetBenefitResult](size, nil, ttl)}
}

// Get returns a copy of the cached result.
func (m *MemoryCache) Get(_ context.Context, key string) (*domain.NetBenefitResult, bool) {
	result, ok := m.lru.Get(key)
	if !ok {
		return nil, false
	}
	return &result, true
}

// Set stores a copy of result. The per-call ttl is ignored; the LRU applies
// its own entry lifetime.
func (m *MemoryCache) Set(_ context.Context, key string, result *domain.NetBenefitResult, _ time.Duration) error {
	if result == nil {
		return nil
	}
	m.lru.Add(key, *result)
	return nil
}

// Len reports the number of live entries.
func (m *MemoryCache) Len() int {
	return m.lru.Len()
}

// Close implements domain.ResultCache.
func (m *MemoryCache) Close() error {
	m.lru.Purge()
	return nil
}

// Noop is a cache that never stores anything.
type Noop struct{}

func (Noop) Get(context.Context, string) (*domain.NetBenefitResult, bool) { return nil, false }

func (Noop) Set(context.Context, string, *domain.NetBenefitResult, time.Duration) error { return nil }

func (Noop) Close() error { return nil }

var (
	_ domain.ResultCache = (*MemoryCache)(nil)
	_ domain.ResultCache = Noop{}
)
