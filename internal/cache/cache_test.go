package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medication-net-benefit/internal/domain"
)

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.FatalLevel)
	return logger
}

func sampleResult(id string) *domain.NetBenefitResult {
	nnt := 27.0
	return &domain.NetBenefitResult{
		MedicationID:   id,
		MedicationName: "Sample",
		NetScore:       3.704,
		NNTEquivalent:  &nnt,
		Recommendation: domain.STRONGLY_RECOMMENDED,
		Benefits:       []domain.BenefitEntry{{Indication: "hfref", Outcome: domain.OutcomeAllCauseMortality, Magnitude: 3.704}},
		Harms:          []domain.HarmEntry{},
	}
}

// unreachableRedis points at a port nothing listens on.
func unreachableRedis() *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		MaxRetries:  -1,
		DialTimeout: 100 * time.Millisecond,
	})
}

func TestMemoryCache(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache(2, time.Minute)

	_, ok := c.Get(ctx, "a")
	assert.False(t, ok)

	require.NoError(t, c.Set(ctx, "a", sampleResult("a"), 0))
	require.NoError(t, c.Set(ctx, "b", sampleResult("b"), 0))
	got, ok := c.Get(ctx, "a")
	require.True(t, ok)
	assert.Equal(t, sampleResult("a"), got)

	require.NoError(t, c.Set(ctx, "c", sampleResult("c"), 0))
	assert.Equal(t, 2, c.Len())
	_, ok = c.Get(ctx, "b")
	assert.False(t, ok, "least recently used entry is evicted")

	require.NoError(t, c.Set(ctx, "nil", nil, 0))
	_, ok = c.Get(ctx, "nil")
	assert.False(t, ok)

	require.NoError(t, c.Close())
	assert.Equal(t, 0, c.Len())
}

func TestMemoryCacheExpiry(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache(10, 50*time.Millisecond)
	require.NoError(t, c.Set(ctx, "a", sampleResult("a"), 0))

	time.Sleep(120 * time.Millisecond)
	_, ok := c.Get(ctx, "a")
	assert.False(t, ok)
}

func TestNoop(t *testing.T) {
	ctx := context.Background()
	var c domain.ResultCache = Noop{}
	require.NoError(t, c.Set(ctx, "a", sampleResult("a"), time.Minute))
	_, ok := c.Get(ctx, "a")
	assert.False(t, ok)
	assert.NoError(t, c.Close())
}

func TestKey(t *testing.T) {
	patient := domain.PatientAttributes{Age: domain.Int(70), HeartFailure: true}
	prefs := domain.DefaultPreferences()

	first, err := Key("2025.1", "apixaban", patient, prefs)
	require.NoError(t, err)
	second, err := Key("2025.1", "apixaban", patient, prefs)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Len(t, first, 64)

	otherVersion, err := Key("2026.1", "apixaban", patient, prefs)
	require.NoError(t, err)
	assert.NotEqual(t, first, otherVersion)

	older := patient
	older.Age = domain.Int(71)
	otherPatient, err := Key("2025.1", "apixaban", older, prefs)
	require.NoError(t, err)
	assert.NotEqual(t, first, otherPatient)

	_, err = Key("2025.1", make(chan int))
	assert.Error(t, err)
}

func TestNewFromConfig(t *testing.T) {
	assert.IsType(t, Noop{}, New(domain.CacheConfig{Enabled: false}, quietLogger()))

	c := New(domain.CacheConfig{Enabled: true, MemoryMaxItems: 10}, quietLogger())
	tiered, ok := c.(*Tiered)
	require.True(t, ok)
	assert.False(t, tiered.HasRedis())

	degraded := New(domain.CacheConfig{Enabled: true, RedisURL: "redis://127.0.0.1:1/0", MaxRetries: -1}, quietLogger())
	tiered, ok = degraded.(*Tiered)
	require.True(t, ok)
	assert.False(t, tiered.HasRedis(), "an unreachable Redis falls back to memory only")
}

func TestTieredMemoryOnly(t *testing.T) {
	ctx := context.Background()
	c := NewTiered(NewMemoryCache(10, time.Minute), nil, 0, quietLogger())

	_, ok := c.Get(ctx, "k")
	assert.False(t, ok)
	require.NoError(t, c.Set(ctx, "k", sampleResult("k"), 0))
	got, ok := c.Get(ctx, "k")
	require.True(t, ok)
	assert.Equal(t, "k", got.MedicationID)

	assert.Equal(t, Stats{MemoryHits: 1, MemoryMisses: 1}, c.Stats())
	assert.NoError(t, c.Close())
}

func TestRedisBreakerOpensWhenUnreachable(t *testing.T) {
	ctx := context.Background()
	r := NewRedisCacheFromClient(unreachableRedis(), time.Minute, quietLogger())
	defer r.Close()

	for i := 0; i < 3; i++ {
		_, ok := r.Get(ctx, "k")
		assert.False(t, ok)
	}
	assert.Equal(t, gobreaker.StateOpen, r.State())

	err := r.Set(ctx, "k", sampleResult("k"), 0)
	require.Error(t, err)
	assert.Equal(t, domain.CodeCacheError, domain.ErrorCode(err))
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
}

func TestTieredSurvivesRedisFailure(t *testing.T) {
	ctx := context.Background()
	remote := NewRedisCacheFromClient(unreachableRedis(), time.Minute, quietLogger())
	c := NewTiered(NewMemoryCache(10, time.Minute), remote, 0, quietLogger())
	defer c.Close()

	err := c.Set(ctx, "k", sampleResult("k"), 0)
	assert.Error(t, err)

	got, ok := c.Get(ctx, "k")
	require.True(t, ok, "memory tier still serves the entry")
	assert.Equal(t, "k", got.MedicationID)

	_, ok = c.Get(ctx, "missing")
	assert.False(t, ok)
	stats := c.Stats()
	assert.Equal(t, int64(1), stats.WriteErrors)
	assert.Equal(t, int64(1), stats.RedisMisses)
}

func TestRedisCacheIntegration(t *testing.T) {
	url := os.Getenv("TEST_REDIS_URL")
	if url == "" {
		t.Skip("TEST_REDIS_URL not set")
	}

	ctx := context.Background()
	r, err := NewRedisCache(domain.CacheConfig{RedisURL: url, DefaultTTL: time.Minute}, quietLogger())
	require.NoError(t, err)
	defer r.Close()

	key, err := Key("test", t.Name(), time.Now().UnixNano())
	require.NoError(t, err)

	_, ok := r.Get(ctx, key)
	assert.False(t, ok)

	require.NoError(t, r.Set(ctx, key, sampleResult("redis"), 0))
	got, ok := r.Get(ctx, key)
	require.True(t, ok)
	assert.Equal(t, sampleResult("redis"), got)

	memory := NewMemoryCache(10, time.Minute)
	c := NewTiered(memory, r, 0, quietLogger())
	got, ok = c.Get(ctx, key)
	require.True(t, ok)
	assert.Equal(t, "redis", got.MedicationID)
	assert.Equal(t, 1, memory.Len(), "redis hit back-fills memory")
}
