package session

import (
	"context"
	"testing"

	"driftline/internal/docstore"
	"driftline/internal/router"
	"driftline/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type gateEnv struct {
	gate   *Gate
	store  *store.Store
	router *router.Router
	auth   *docstore.AuthService
	mounts int
}

func newGateEnv(t *testing.T) *gateEnv {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, docstore.Migrate(db))

	auth := docstore.NewAuth(db, []byte("test-secret"))
	client := docstore.NewClient(docstore.New(db), auth)
	st := store.New(client, nil)
	rt := router.New(auth.CurrentUser)

	e := &gateEnv{store: st, router: rt, auth: auth}
	e.gate = New(st, rt, auth, func() { e.mounts++ })
	return e
}

func TestAttachMountsOnceSignedOut(t *testing.T) {
	e := newGateEnv(t)

	assert.False(t, e.gate.Mounted())
	e.gate.Attach()
	assert.True(t, e.gate.Mounted())
	assert.Equal(t, 1, e.mounts)
}

func TestMountHappensExactlyOnce(t *testing.T) {
	e := newGateEnv(t)
	e.gate.Attach()

	require.NoError(t, e.store.Signup(context.Background(), "a@example.com", "secret123", "alice", ""))
	require.NoError(t, e.store.Logout(context.Background()))
	require.NoError(t, e.store.Login(context.Background(), "a@example.com", "secret123"))

	assert.Equal(t, 1, e.mounts)
}

func TestSignOutRedirectsOffGuardedRoute(t *testing.T) {
	e := newGateEnv(t)
	ctx := context.Background()
	require.NoError(t, e.store.Signup(ctx, "b@example.com", "secret123", "bob", ""))
	e.gate.Attach()

	_, err := e.router.Push("/accounts/settings")
	require.NoError(t, err)
	require.Equal(t, "settings", e.router.Current().Route.Name)

	require.NoError(t, e.store.Logout(ctx))
	assert.Equal(t, "login", e.router.Current().Route.Name)
}

func TestSignOutLeavesUnguardedRouteAlone(t *testing.T) {
	e := newGateEnv(t)
	ctx := context.Background()
	require.NoError(t, e.store.Signup(ctx, "c@example.com", "secret123", "carol", ""))
	e.gate.Attach()

	_, err := e.router.Push(router.LoginPath)
	require.NoError(t, err)

	require.NoError(t, e.store.Logout(ctx))
	assert.Equal(t, "login", e.router.Current().Route.Name)
}

func TestLoginFromLoginViewNavigatesToOwnPosts(t *testing.T) {
	e := newGateEnv(t)
	ctx := context.Background()
	require.NoError(t, e.store.Signup(ctx, "d@example.com", "secret123", "dave", ""))
	require.NoError(t, e.store.Logout(ctx))
	e.gate.Attach()

	_, err := e.router.Push(router.LoginPath)
	require.NoError(t, err)

	require.NoError(t, e.store.Login(ctx, "d@example.com", "secret123"))

	current := e.router.Current()
	require.NotNil(t, current.Route)
	assert.Equal(t, "my_posts", current.Route.Name)
	assert.Equal(t, "dave", current.Params["name"])
}

func TestLoginWithoutProfileStaysOnLogin(t *testing.T) {
	e := newGateEnv(t)
	ctx := context.Background()
	e.gate.Attach()

	_, err := e.router.Push(router.LoginPath)
	require.NoError(t, err)

	// An account without a profile document loads the empty profile and
	// must not be navigated anywhere.
	_, err = e.auth.SignUp(ctx, "ghost@example.com", "secret123")
	require.NoError(t, err)

	assert.Equal(t, "login", e.router.Current().Route.Name)
	assert.True(t, e.store.Profile().IsZero())
}

func TestLoginAwayFromLoginViewDoesNotNavigate(t *testing.T) {
	e := newGateEnv(t)
	ctx := context.Background()
	e.gate.Attach()

	require.NoError(t, e.store.Signup(ctx, "e@example.com", "secret123", "erin", ""))

	// No view was ever navigated to; a sign-in must not force one.
	assert.Nil(t, e.router.Current().Route)
}
