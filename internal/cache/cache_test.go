package cache

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T, secret string) (*Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	c, err := NewWithClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}), secret)
	require.NoError(t, err)
	return c, mr
}

func TestRoundTrip(t *testing.T) {
	c, _ := newTestCache(t, "secret")
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", []byte(`{"userProfile":{"name":"alice"}}`)))

	got, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, `{"userProfile":{"name":"alice"}}`, string(got))
}

func TestGetMissingKey(t *testing.T) {
	c, _ := newTestCache(t, "secret")

	_, ok, err := c.Get(context.Background(), "absent")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStoredValueIsSealed(t *testing.T) {
	c, mr := newTestCache(t, "secret")
	ctx := context.Background()

	plain := []byte("sensitive profile data")
	require.NoError(t, c.Set(ctx, "k", plain))

	stored, err := mr.Get("k")
	require.NoError(t, err)
	assert.NotContains(t, stored, "sensitive")
}

func TestWrongKeyFailsAuthentication(t *testing.T) {
	c, mr := newTestCache(t, "secret-a")
	ctx := context.Background()
	require.NoError(t, c.Set(ctx, "k", []byte("value")))

	other, err := NewWithClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}), "secret-b")
	require.NoError(t, err)

	_, ok, err := other.Get(ctx, "k")
	assert.Error(t, err)
	assert.False(t, ok)
}

func TestTamperedBlobFailsAuthentication(t *testing.T) {
	c, mr := newTestCache(t, "secret")
	ctx := context.Background()
	require.NoError(t, c.Set(ctx, "k", []byte("value")))

	stored, err := mr.Get("k")
	require.NoError(t, err)
	tampered := []byte(stored)
	tampered[len(tampered)-1] ^= 0xff
	require.NoError(t, mr.Set("k", string(tampered)))

	_, ok, err := c.Get(ctx, "k")
	assert.Error(t, err)
	assert.False(t, ok)
}

func TestRemove(t *testing.T) {
	c, _ := newTestCache(t, "secret")
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", []byte("value")))
	require.NoError(t, c.Remove(ctx, "k"))

	_, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDisabledCacheIsNoOp(t *testing.T) {
	c, err := NewWithClient(nil, "secret")
	require.NoError(t, err)
	ctx := context.Background()

	assert.False(t, c.Enabled())
	assert.NoError(t, c.Set(ctx, "k", []byte("value")))
	_, ok, err := c.Get(ctx, "k")
	assert.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, c.Remove(ctx, "k"))

	var nilCache *Cache
	assert.False(t, nilCache.Enabled())
}
