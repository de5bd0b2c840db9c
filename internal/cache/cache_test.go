package cache

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/law-makers/tracktime/pkg/models"
)

func delivered(code string) models.TrackingResult {
	return models.TrackingResult{
		TrackingCode:   code,
		DeliveryStatus: models.StatusDelivered,
		Duration:       "2 dagen",
		TimelineEvents: []models.TimelineEvent{},
	}
}

func TestMemoryCache_SetGet(t *testing.T) {
	mc := NewMemoryCache(10)
	defer mc.Close()
	ctx := context.Background()

	require.NoError(t, mc.Set(ctx, delivered("JVGL0612"), time.Minute))

	got, ok := mc.Get(ctx, " jvgl0612 ")
	require.True(t, ok, "keys are normalized")
	require.Equal(t, models.StatusDelivered, got.DeliveryStatus)

	require.NoError(t, mc.Delete(ctx, "JVGL0612"))
	_, ok = mc.Get(ctx, "JVGL0612")
	require.False(t, ok)
}

func TestMemoryCache_Expiry(t *testing.T) {
	mc := NewMemoryCache(10)
	defer mc.Close()
	now := time.Date(2025, 1, 15, 12, 0, 0, 0, time.UTC)
	mc.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, mc.Set(ctx, delivered("A"), time.Minute))
	now = now.Add(2 * time.Minute)

	_, ok := mc.Get(ctx, "A")
	require.False(t, ok)
	require.Equal(t, 0, mc.Len())
}

func TestMemoryCache_EvictsLeastRecentlyUsed(t *testing.T) {
	mc := NewMemoryCache(2)
	defer mc.Close()
	ctx := context.Background()

	require.NoError(t, mc.Set(ctx, delivered("A"), time.Minute))
	require.NoError(t, mc.Set(ctx, delivered("B"), time.Minute))
	_, _ = mc.Get(ctx, "A")
	require.NoError(t, mc.Set(ctx, delivered("C"), time.Minute))

	_, okA := mc.Get(ctx, "A")
	_, okB := mc.Get(ctx, "B")
	_, okC := mc.Get(ctx, "C")
	require.True(t, okA)
	require.False(t, okB, "B was least recently used")
	require.True(t, okC)
}

func TestMemoryCache_RemoveExpired(t *testing.T) {
	mc := NewMemoryCache(10)
	defer mc.Close()
	now := time.Date(2025, 1, 15, 12, 0, 0, 0, time.UTC)
	mc.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, mc.Set(ctx, delivered("A"), time.Minute))
	require.NoError(t, mc.Set(ctx, delivered("B"), time.Hour))
	now = now.Add(10 * time.Minute)

	require.Equal(t, 1, mc.removeExpired())
	require.Equal(t, 1, mc.Len())
}

func TestRedisCache_RoundTrip(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	rc := NewRedisCache(client)
	ctx := context.Background()

	_, ok := rc.Get(ctx, "JVGL0612")
	require.False(t, ok)

	require.NoError(t, rc.Set(ctx, delivered("JVGL0612"), time.Minute))
	require.True(t, mr.Exists(Key("JVGL0612")))

	got, ok := rc.Get(ctx, "jvgl0612")
	require.True(t, ok)
	require.Equal(t, "2 dagen", got.Duration)

	mr.FastForward(2 * time.Minute)
	_, ok = rc.Get(ctx, "JVGL0612")
	require.False(t, ok, "entry should expire with its TTL")
}

func TestRedisCache_CorruptEntryIsMiss(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	require.NoError(t, mr.Set(Key("X"), "{not json"))

	rc, err := DialRedis(context.Background(), "redis://"+mr.Addr())
	require.NoError(t, err)
	t.Cleanup(func() { _ = rc.Close() })

	_, ok := rc.Get(context.Background(), "X")
	require.False(t, ok)
}
