package service

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/timetable-sync/pkg/errors"
)

type memoryCacheRepo struct {
	values map[string][]byte
}

func (r *memoryCacheRepo) Get(ctx context.Context, key string, dest interface{}) error {
	raw, ok := r.values[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (r *memoryCacheRepo) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	r.values[key] = raw
	return nil
}

func (r *memoryCacheRepo) DeleteByPattern(ctx context.Context, pattern string) (int, error) {
	prefix := strings.TrimSuffix(pattern, "*")
	removed := 0
	for key := range r.values {
		if strings.HasPrefix(key, prefix) {
			delete(r.values, key)
			removed++
		}
	}
	return removed, nil
}

func TestCacheServiceInvalidateSchedule(t *testing.T) {
	repo := &memoryCacheRepo{values: map[string][]byte{}}
	metrics := NewMetricsService()
	cache := NewCacheService(repo, metrics, time.Minute, nil, true)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "schedule:workload:r1:17", 12.5, 0))
	require.NoError(t, cache.Set(ctx, "other:key", 1, 0))

	var workload float64
	hit, err := cache.Get(ctx, "schedule:workload:r1:17", &workload)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, 12.5, workload)

	require.NoError(t, cache.InvalidateSchedule(ctx))
	hit, err = cache.Get(ctx, "schedule:workload:r1:17", &workload)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Contains(t, repo.values, "other:key")

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.cacheHits))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.cacheMisses))
}

func TestCacheServiceDisabled(t *testing.T) {
	var nilCache *CacheService
	assert.False(t, nilCache.Enabled())
	assert.NoError(t, nilCache.InvalidateSchedule(context.Background()))

	cache := NewCacheService(&memoryCacheRepo{values: map[string][]byte{}}, nil, 0, nil, false)
	hit, err := cache.Get(context.Background(), "k", new(int))
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestWorkloadIsCached(t *testing.T) {
	repo := &memoryCacheRepo{values: map[string][]byte{}}
	cache := NewCacheService(repo, nil, time.Minute, nil, true)
	svc := newOccupancyFixture(roomLesson("r1", "call-1", 1, "", 1))
	svc.cache = cache

	first, err := svc.Workload(context.Background(), "r1")
	require.NoError(t, err)
	assert.Contains(t, repo.values, "schedule:workload:r1:17")

	repo.values["schedule:workload:r1:17"] = []byte("42")
	second, err := svc.Workload(context.Background(), "r1")
	require.NoError(t, err)
	assert.NotEqual(t, first, second)
	assert.Equal(t, 42.0, second)
}
