package repository

import (
	"context"
	"testing"
	"time"

	"hotelbooking/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRooms() []models.AvailableRoom {
	return []models.AvailableRoom{
		{
			Room: models.Room{
				ID:     "r-101",
				Number: "101",
				Type:   models.RoomStandard,
				Status: models.RoomAvailable,
			},
			PricePerNight: models.MustMoney(10000),
			TotalPrice:    models.MustMoney(20000),
			Nights:        2,
		},
	}
}

func TestRedisSearchCache(t *testing.T) {
	s, err := miniredis.Run()
	require.NoError(t, err)
	defer s.Close()

	client := redis.NewClient(&redis.Options{
		Addr: s.Addr(),
	})
	defer client.Close()

	cache := NewRedisSearchCache(client)
	ctx := context.Background()
	set := func(t *testing.T, key string, ttl time.Duration) {
		t.Helper()
		gen, err := cache.Generation(ctx)
		require.NoError(t, err)
		require.NoError(t, cache.SetRooms(ctx, gen, key, sampleRooms(), ttl))
	}

	t.Run("MissOnEmpty", func(t *testing.T) {
		rooms, ok, err := cache.GetRooms(ctx, "absent")
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Nil(t, rooms)
	})

	t.Run("SetAndGet", func(t *testing.T) {
		set(t, "k1", time.Minute)

		rooms, ok, err := cache.GetRooms(ctx, "k1")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, sampleRooms(), rooms)
	})

	t.Run("InvalidateHidesEntries", func(t *testing.T) {
		set(t, "k2", time.Minute)
		require.NoError(t, cache.Invalidate(ctx))

		_, ok, err := cache.GetRooms(ctx, "k2")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("WriteFromOlderGenerationIsNotServed", func(t *testing.T) {
		before, err := cache.Generation(ctx)
		require.NoError(t, err)
		require.NoError(t, cache.Invalidate(ctx))
		require.NoError(t, cache.SetRooms(ctx, before, "k4", sampleRooms(), time.Minute))

		_, ok, err := cache.GetRooms(ctx, "k4")
		require.NoError(t, err)
		assert.False(t, ok)
		assert.True(t, s.Exists("search:"+before+":k4"))
	})

	t.Run("InvalidGeneration", func(t *testing.T) {
		assert.Error(t, cache.SetRooms(ctx, "p:1", "k5", sampleRooms(), time.Minute))
	})

	t.Run("Expiry", func(t *testing.T) {
		set(t, "k3", time.Second)
		s.FastForward(2 * time.Second)

		_, ok, err := cache.GetRooms(ctx, "k3")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("ErrorWhenDown", func(t *testing.T) {
		down := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", MaxRetries: -1})
		defer down.Close()

		_, _, err := NewRedisSearchCache(down).GetRooms(ctx, "k1")
		assert.Error(t, err)
	})
}

func TestRedisDeduper(t *testing.T) {
	s, err := miniredis.Run()
	require.NoError(t, err)
	defer s.Close()

	client := redis.NewClient(&redis.Options{
		Addr: s.Addr(),
	})
	defer client.Close()

	deduper := NewRedisDeduper(client)
	ctx := context.Background()

	seen, err := deduper.Seen(ctx, "notify:booking.created:b-1")
	require.NoError(t, err)
	assert.False(t, seen)

	require.NoError(t, deduper.Mark(ctx, "notify:booking.created:b-1", time.Hour))

	seen, err = deduper.Seen(ctx, "notify:booking.created:b-1")
	require.NoError(t, err)
	assert.True(t, seen)

	s.FastForward(2 * time.Hour)
	seen, err = deduper.Seen(ctx, "notify:booking.created:b-1")
	require.NoError(t, err)
	assert.False(t, seen)
}
