package cache_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/agentops/internal/cache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupRedis spins up a Redis container and returns a connected RedisCache + cleanup.
func setupRedis(t *testing.T) *cache.RedisCache {
	t.Helper()
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(30 * time.Second),
	}
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, container.Terminate(ctx)) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "6379")
	require.NoError(t, err)

	redisURL := "redis://" + host + ":" + port.Port()
	rc, err := cache.NewRedisCache(redisURL)
	require.NoError(t, err)
	t.Cleanup(func() { _ = rc.Close() })

	return rc
}

// --- Redis ---

func TestRedis_Ping(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	rc := setupRedis(t)
	err := rc.Ping(context.Background())
	assert.NoError(t, err)
}

func TestRedis_IncrWithExpiry(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	rc := setupRedis(t)
	ctx := context.Background()
	key := cache.RateLimitKey("test", uuid.NewString()[:8])

	for want := int64(1); want <= 3; want++ {
		val, err := rc.IncrWithExpiry(ctx, key, 10*time.Second)
		require.NoError(t, err)
		assert.Equal(t, want, val)
	}
}

func TestRedis_IncrWithExpiry_WindowIsFixed(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	rc := setupRedis(t)
	ctx := context.Background()
	key := cache.RateLimitKey("expiry", uuid.NewString()[:8])

	_, err := rc.IncrWithExpiry(ctx, key, 1*time.Second)
	require.NoError(t, err)

	time.Sleep(600 * time.Millisecond)
	// A second increment must not push the deadline out.
	_, err = rc.IncrWithExpiry(ctx, key, 1*time.Second)
	require.NoError(t, err)

	time.Sleep(900 * time.Millisecond)

	val, err := rc.IncrWithExpiry(ctx, key, 10*time.Second)
	require.NoError(t, err)
	assert.Equal(t, int64(1), val)
}

func TestNewRedisCache_InvalidURL(t *testing.T) {
	_, err := cache.NewRedisCache("not a url")
	assert.Error(t, err)
}

// --- Memory ---

func TestMemory_Ping(t *testing.T) {
	mc := cache.NewMemoryCache()
	assert.NoError(t, mc.Ping(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, mc.Ping(ctx), context.Canceled)
}

func TestMemory_IncrWithExpiry(t *testing.T) {
	mc := cache.NewMemoryCache()
	ctx := context.Background()

	for want := int64(1); want <= 3; want++ {
		val, err := mc.IncrWithExpiry(ctx, "k", time.Minute)
		require.NoError(t, err)
		assert.Equal(t, want, val)
	}

	val, err := mc.IncrWithExpiry(ctx, "other", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(1), val)
}

func TestMemory_IncrWithExpiry_WindowIsFixed(t *testing.T) {
	mc := cache.NewMemoryCache()
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	mc.SetClock(func() time.Time { return now })
	ctx := context.Background()

	_, err := mc.IncrWithExpiry(ctx, "k", time.Second)
	require.NoError(t, err)

	now = now.Add(900 * time.Millisecond)
	val, err := mc.IncrWithExpiry(ctx, "k", time.Second)
	require.NoError(t, err)
	assert.Equal(t, int64(2), val)

	// Deadline is the first increment plus one second.
	now = now.Add(100 * time.Millisecond)
	val, err = mc.IncrWithExpiry(ctx, "k", time.Second)
	require.NoError(t, err)
	assert.Equal(t, int64(1), val)
}

func TestMemory_ExpiredCountersAreCollected(t *testing.T) {
	mc := cache.NewMemoryCache()
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	mc.SetClock(func() time.Time { return now })
	ctx := context.Background()

	for _, key := range []string{"a", "b", "c"} {
		_, err := mc.IncrWithExpiry(ctx, key, time.Second)
		require.NoError(t, err)
	}
	assert.Equal(t, 3, mc.Len())

	now = now.Add(2 * time.Minute)
	_, err := mc.IncrWithExpiry(ctx, "d", time.Second)
	require.NoError(t, err)
	assert.Equal(t, 1, mc.Len())
}

func TestMemory_ConcurrentIncrements(t *testing.T) {
	mc := cache.NewMemoryCache()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = mc.IncrWithExpiry(ctx, "shared", time.Minute)
		}()
	}
	wg.Wait()

	val, err := mc.IncrWithExpiry(ctx, "shared", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(51), val)
}

// --- Key builders ---

func TestRateLimitKey(t *testing.T) {
	assert.Equal(t, "ratelimit:api:10.0.0.1", cache.RateLimitKey("api", "10.0.0.1"))
	assert.NotEqual(t, cache.RateLimitKey("api", "x"), cache.RateLimitKey("ingest", "x"))
}
