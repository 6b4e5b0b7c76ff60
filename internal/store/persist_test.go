package store

import (
	"context"
	"testing"

	"driftline/internal/cache"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) *cache.Cache {
	t.Helper()
	mr := miniredis.RunT(t)
	c, err := cache.NewWithClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}), "state-secret")
	require.NoError(t, err)
	return c
}

func TestProfileSurvivesRestart(t *testing.T) {
	e := newTestEnv(t)
	c := newTestCache(t)
	e.store.cache = c
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	e.signup(t, "nina@example.com", "nina")
	require.Equal(t, "nina", e.store.Profile().Name)

	// A fresh store over the same cache rehydrates the profile on Start.
	restarted := New(e.client, c)
	require.NoError(t, restarted.Start(ctx))
	assert.Equal(t, "nina", restarted.Profile().Name)
}

func TestLogoutPersistsClearedProfile(t *testing.T) {
	e := newTestEnv(t)
	c := newTestCache(t)
	e.store.cache = c
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	e.signup(t, "oscar@example.com", "oscar")
	require.NoError(t, e.store.Logout(context.Background()))

	restarted := New(e.client, c)
	require.NoError(t, restarted.Start(ctx))
	assert.True(t, restarted.Profile().IsZero())
}
