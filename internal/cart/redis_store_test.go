package cart

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/fjod/storefront/internal/domain"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
	t.Cleanup(func() { client.Close() })
	return NewRedisStore(client, time.Hour), mr
}

func sampleCart(sessionID string) *domain.Cart {
	c := domain.NewCart(sessionID)
	c.Lines["1-10"] = domain.CartLine{
		Key:         "1-10",
		ProductID:   1,
		VariationID: int64p(10),
		Name:        "T-Shirt",
		Quantity:    2,
		UnitPrice:   decimal.RequireFromString("15.10"),
		Attributes:  map[string]string{"size": "m"},
	}
	c.PromoCode = "WELCOME10"
	return c
}

func TestRedisStore_RoundTrip(t *testing.T) {
	store, _ := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, sampleCart("sess-1")))

	got, err := store.Load(ctx, "sess-1")
	require.NoError(t, err)
	assert.Equal(t, "WELCOME10", got.PromoCode)
	require.Contains(t, got.Lines, "1-10")
	assert.True(t, got.Lines["1-10"].UnitPrice.Equal(decimal.RequireFromString("15.10")))
	assert.Equal(t, int64(10), *got.Lines["1-10"].VariationID)
}

func TestRedisStore_Miss(t *testing.T) {
	store, _ := setupTestRedis(t)

	got, err := store.Load(context.Background(), "nonexistent")
	assert.ErrorIs(t, err, ErrCartNotFound)
	assert.Nil(t, got)
}

func TestRedisStore_InvalidJSON(t *testing.T) {
	store, mr := setupTestRedis(t)
	require.NoError(t, mr.Set(cartKey("broken"), `{"lines":`))

	_, err := store.Load(context.Background(), "broken")
	assert.ErrorContains(t, err, "unmarshal cart failed")
}

func TestRedisStore_TTLWithJitter(t *testing.T) {
	store, mr := setupTestRedis(t)

	require.NoError(t, store.Save(context.Background(), domain.NewCart("sess-ttl")))

	ttl := mr.TTL(cartKey("sess-ttl"))
	assert.GreaterOrEqual(t, ttl, time.Hour)
	assert.Less(t, ttl, time.Hour+maxTTLJitter)
}

func TestRedisStore_Delete(t *testing.T) {
	store, mr := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, domain.NewCart("sess-del")))
	assert.True(t, mr.Exists(cartKey("sess-del")))

	require.NoError(t, store.Delete(ctx, "sess-del"))
	assert.False(t, mr.Exists(cartKey("sess-del")))

	assert.NoError(t, store.Delete(ctx, "never-existed"))
}

func TestRedisStore_ServerDown(t *testing.T) {
	store, mr := setupTestRedis(t)
	mr.Close()

	_, err := store.Load(context.Background(), "sess")
	assert.ErrorContains(t, err, "redis get failed")
}

func TestCartKey_Format(t *testing.T) {
	assert.Equal(t, "cart:abc", cartKey("abc"))
}
