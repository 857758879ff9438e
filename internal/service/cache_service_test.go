package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCacheServiceGetSetInvalidate(t *testing.T) {
	metrics := NewMetricsService()
	repo := newMemCache()
	svc := NewCacheService(repo, metrics, time.Minute, nil, true)
	require.True(t, svc.Enabled())

	var dest map[string]string
	assert.False(t, svc.Get(context.Background(), "k1", &dest))

	svc.Set(context.Background(), "k1", map[string]string{"grade": "A"})
	require.True(t, svc.Get(context.Background(), "k1", &dest))
	assert.Equal(t, "A", dest["grade"])

	svc.Invalidate(context.Background(), "k1")
	assert.False(t, svc.Get(context.Background(), "k1", &dest))

	snap := metrics.Snapshot()
	assert.Equal(t, uint64(1), snap.CacheHits)
	assert.Equal(t, uint64(2), snap.CacheMisses)
	assert.InDelta(t, 1.0/3.0, snap.CacheHitRatio, 0.0001)
}

func TestCacheServiceDisabled(t *testing.T) {
	repo := newMemCache()
	svc := NewCacheService(repo, nil, 0, nil, false)
	assert.False(t, svc.Enabled())

	svc.Set(context.Background(), "k1", "value")
	assert.Empty(t, repo.items)

	var nilSvc *CacheService
	var dest string
	assert.False(t, nilSvc.Get(context.Background(), "k1", &dest))
	nilSvc.InvalidatePattern(context.Background(), "*")
}
