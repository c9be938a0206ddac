package redis

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lexforge/TermForge-Intelligence/internal/infrastructure/monitoring/logging"
)

type cachedTerm struct {
	Term      string `json:"term"`
	Frequency int    `json:"frequency"`
}

func newTestCache(t *testing.T) (Cache, *Client) {
	t.Helper()
	client, _ := newTestClient(t)
	return NewRedisCache(client, logging.NewNopLogger()), client
}

func TestCache_SetGetRoundTrip(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()

	in := cachedTerm{Term: "bioreactor", Frequency: 7}
	require.NoError(t, cache.Set(ctx, "term:en:bioreactor", in, time.Minute))

	var out cachedTerm
	require.NoError(t, cache.Get(ctx, "term:en:bioreactor", &out))
	assert.Equal(t, in, out)
}

func TestCache_GetMiss(t *testing.T) {
	cache, _ := newTestCache(t)

	var out cachedTerm
	err := cache.Get(context.Background(), "absent", &out)
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestCache_KeysCarryPrefix(t *testing.T) {
	cache, client := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "term:en:agitator", cachedTerm{Term: "agitator"}, time.Minute))

	exists, err := client.Exists(ctx, "termforge:term:en:agitator").Result()
	require.NoError(t, err)
	assert.Equal(t, int64(1), exists)
}

func TestCache_GetOrSet_LoadsOnce(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()

	loads := 0
	loader := func(ctx context.Context) (interface{}, error) {
		loads++
		return cachedTerm{Term: "impeller", Frequency: 3}, nil
	}

	var first, second cachedTerm
	require.NoError(t, cache.GetOrSet(ctx, "term:en:impeller", &first, time.Minute, loader))
	require.NoError(t, cache.GetOrSet(ctx, "term:en:impeller", &second, time.Minute, loader))

	assert.Equal(t, 1, loads)
	assert.Equal(t, first, second)
}

func TestCache_GetOrSet_CachesNegativeLookup(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()

	loads := 0
	loader := func(ctx context.Context) (interface{}, error) {
		loads++
		return nil, nil
	}

	var out cachedTerm
	err := cache.GetOrSet(ctx, "term:en:ghost", &out, time.Minute, loader)
	assert.ErrorIs(t, err, ErrCacheMiss)

	err = cache.GetOrSet(ctx, "term:en:ghost", &out, time.Minute, loader)
	assert.ErrorIs(t, err, ErrCacheMiss)
	assert.Equal(t, 1, loads)
}

func TestCache_DeleteByPrefix(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "term:en:a", cachedTerm{}, time.Minute))
	require.NoError(t, cache.Set(ctx, "term:en:b", cachedTerm{}, time.Minute))
	require.NoError(t, cache.Set(ctx, "doc:1", cachedTerm{}, time.Minute))

	deleted, err := cache.DeleteByPrefix(ctx, "term:en:")
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)

	exists, err := cache.Exists(ctx, "doc:1")
	require.NoError(t, err)
	assert.True(t, exists)
}
