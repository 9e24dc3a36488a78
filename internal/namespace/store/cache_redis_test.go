package store

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"feedlog/internal/namespace/models"
	"feedlog/pkg/platform/circuit"
	"feedlog/pkg/platform/sentinel"
)

func TestRedisCacheFallsBackWhenRedisIsDown(t *testing.T) {
	ctx := context.Background()
	backing := NewInMemory()
	ns, err := models.NewNamespace("example.com", models.PolicyTLSCert, models.Permissions{}, time.Now())
	require.NoError(t, err)

	// nothing listens on port 1
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { _ = client.Close() })

	breaker := circuit.New("namespace-cache", circuit.WithFailureThreshold(2))
	cache := NewRedisCache(backing, client, time.Minute, WithBreaker(breaker))

	created, err := cache.Upsert(ctx, ns, models.ExpectAbsent())
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, 1, cache.pendingCount(), "write that missed redis is remembered")

	for range 3 {
		found, err := cache.FindByIssuer(ctx, "example.com")
		require.NoError(t, err)
		assert.Equal(t, models.PolicyTLSCert, found.TrustPolicy)
	}
	assert.True(t, breaker.IsOpen())

	_, err = cache.FindByIssuer(ctx, "missing.example")
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
	assert.Equal(t, 1, cache.pendingCount())
}

func TestRedisCacheWritesThroughWhileBreakerIsOpen(t *testing.T) {
	ctx := context.Background()
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { _ = client.Close() })

	breaker := circuit.New("namespace-cache", circuit.WithFailureThreshold(1))
	breaker.RecordFailure()
	require.True(t, breaker.IsOpen())
	cache := NewRedisCache(NewInMemory(), client, time.Minute, WithBreaker(breaker))

	for _, policy := range []models.PolicyKind{models.PolicyTLSCert, models.PolicyJWKS} {
		ns, err := models.NewNamespace("example.com", policy, models.Permissions{}, time.Now())
		require.NoError(t, err)
		_, err = cache.Upsert(ctx, ns, nil)
		require.NoError(t, err)
	}
	assert.Equal(t, 1, cache.pendingCount(), "pending invalidations are tracked per issuer")

	found, err := cache.FindByIssuer(ctx, "example.com")
	require.NoError(t, err)
	assert.Equal(t, models.PolicyJWKS, found.TrustPolicy)
	assert.EqualValues(t, 2, found.Version)
}
