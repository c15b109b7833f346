package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/caraka20/tutontrack/pkg/errors"
)

func TestCacheRepositoryWithoutClient(t *testing.T) {
	repo := NewCacheRepository(nil, nil)
	ctx := context.Background()

	var dest interface{}
	assert.ErrorIs(t, repo.Get(ctx, "tuton:progress:student:1", &dest), appErrors.ErrCacheMiss)
	assert.NoError(t, repo.Set(ctx, "k", map[string]int{"a": 1}, time.Minute))
	assert.NoError(t, repo.Delete(ctx, "k"))
	assert.NoError(t, repo.DeleteByPattern(ctx, "tuton:*"))

	won, err := repo.Claim(ctx, "tuton:reminder:1", time.Minute)
	require.NoError(t, err)
	assert.True(t, won)

	assert.Error(t, repo.Publish(ctx, "events", map[string]int{"reminderId": 1}))
	assert.NoError(t, repo.Close())
}
