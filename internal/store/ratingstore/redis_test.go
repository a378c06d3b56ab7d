package ratingstore

import (
	"context"
	"testing"

	"beautymatch/internal/common/logger"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redismock/v9"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return mr, client
}

func newStore(t *testing.T) (*miniredis.Miniredis, *RedisStore) {
	mr, client := setupRedis(t)
	return mr, NewRedisStore(client, logger.NewNoOpLogger())
}

func TestRedisStore_LoadMissing(t *testing.T) {
	_, store := newStore(t)

	_, found, err := store.Load(context.Background(), "s1")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestRedisStore_InitThenLoad(t *testing.T) {
	_, store := newStore(t)
	ctx := context.Background()

	rec, err := store.Init(ctx, "s1", 1200)
	require.NoError(t, err)
	assert.Equal(t, "s1", rec.StylistID)
	assert.Equal(t, 1200, rec.Rating)

	loaded, found, err := store.Load(ctx, "s1")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, 1200, loaded.Rating)
	assert.False(t, loaded.UpdatedAt.IsZero())
}

func TestRedisStore_InitDoesNotOverwrite(t *testing.T) {
	_, store := newStore(t)
	ctx := context.Background()

	_, err := store.Init(ctx, "s1", 1200)
	require.NoError(t, err)

	// A second initializer must get the existing record back.
	rec, err := store.Init(ctx, "s1", 900)
	require.NoError(t, err)
	assert.Equal(t, 1200, rec.Rating)
}

func TestRedisStore_CompareAndSwap(t *testing.T) {
	_, store := newStore(t)
	ctx := context.Background()

	_, err := store.Init(ctx, "s1", 1200)
	require.NoError(t, err)

	swapped, err := store.CompareAndSwap(ctx, "s1", 1200, 1216)
	require.NoError(t, err)
	assert.True(t, swapped)

	rec, found, err := store.Load(ctx, "s1")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, 1216, rec.Rating)
}

func TestRedisStore_CompareAndSwapStaleExpected(t *testing.T) {
	_, store := newStore(t)
	ctx := context.Background()

	_, err := store.Init(ctx, "s1", 1200)
	require.NoError(t, err)

	swapped, err := store.CompareAndSwap(ctx, "s1", 1100, 1116)
	require.NoError(t, err)
	assert.False(t, swapped)

	rec, _, err := store.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, 1200, rec.Rating, "stale swap must not write")
}

func TestRedisStore_CompareAndSwapMissingRecord(t *testing.T) {
	_, store := newStore(t)

	swapped, err := store.CompareAndSwap(context.Background(), "ghost", 1200, 1216)
	require.NoError(t, err)
	assert.False(t, swapped)
}

func TestRedisStore_LoadTransportError(t *testing.T) {
	client, mock := redismock.NewClientMock()
	t.Cleanup(func() { client.Close() })
	store := NewRedisStore(client, logger.NewNoOpLogger())

	mock.ExpectGet(ratingKey("s1")).SetErr(assert.AnError)

	_, _, err := store.Load(context.Background(), "s1")
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisStore_LoadCorruptRecord(t *testing.T) {
	mr, store := newStore(t)
	mr.Set(ratingKey("s1"), "not-json")

	_, _, err := store.Load(context.Background(), "s1")
	require.Error(t, err)
}

func TestRedisStore_RecordRoundTripsUpdatedAt(t *testing.T) {
	_, store := newStore(t)
	ctx := context.Background()

	first, err := store.Init(ctx, "s1", 1200)
	require.NoError(t, err)

	swapped, err := store.CompareAndSwap(ctx, "s1", 1200, 1232)
	require.NoError(t, err)
	require.True(t, swapped)

	after, found, err := store.Load(ctx, "s1")
	require.NoError(t, err)
	require.True(t, found)
	assert.False(t, after.UpdatedAt.Before(first.UpdatedAt))
}
