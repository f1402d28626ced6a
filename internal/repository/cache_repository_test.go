package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/timetable-sync/pkg/errors"
)

func TestCacheRepositoryWithoutClient(t *testing.T) {
	repo := NewCacheRepository(nil, nil)
	ctx := context.Background()

	var dest float64
	err := repo.Get(ctx, "schedule:workload:room-1", &dest)
	assert.True(t, errors.Is(err, appErrors.ErrCacheMiss))

	require.NoError(t, repo.Set(ctx, "schedule:workload:room-1", 12.5, time.Minute))
	removed, err := repo.DeleteByPattern(ctx, "schedule:*")
	require.NoError(t, err)
	assert.Zero(t, removed)
	assert.NoError(t, repo.Close())
}
