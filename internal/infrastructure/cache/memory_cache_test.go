package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryCache(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	_, err := c.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrMiss)

	require.NoError(t, c.Set(ctx, "advertisement:1", "payload", time.Minute))
	got, err := c.Get(ctx, "advertisement:1")
	require.NoError(t, err)
	assert.Equal(t, "payload", got)

	now = now.Add(2 * time.Minute)
	_, err = c.Get(ctx, "advertisement:1")
	assert.ErrorIs(t, err, ErrMiss)

	n, err := c.Incr(ctx, "gen")
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
	n, err = c.Incr(ctx, "gen")
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	require.NoError(t, c.Delete(ctx, "gen"))
	_, err = c.Get(ctx, "gen")
	assert.ErrorIs(t, err, ErrMiss)
}
