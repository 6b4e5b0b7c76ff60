package router

import (
	"testing"

	"driftline/internal/models"
	"driftline/internal/remote"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signedOut() *remote.Identity { return nil }

func signedIn() *remote.Identity {
	return &remote.Identity{UID: "u1", Email: "u1@example.com"}
}

func TestResolve(t *testing.T) {
	r := New(signedOut)

	tests := []struct {
		path       string
		wantName   string
		wantParams Params
	}{
		{"/", "dashboard", Params{}},
		{"/login", "login", Params{}},
		{"/accounts/settings", "settings", Params{}},
		{"/alice/", "my_posts", Params{"name": "alice"}},
		{"/profile/alice", "profile", Params{"name": "alice"}},
	}
	for _, tt := range tests {
		match, err := r.Resolve(tt.path)
		require.NoError(t, err, tt.path)
		assert.Equal(t, tt.wantName, match.Route.Name, tt.path)
		assert.Equal(t, tt.wantParams, match.Params, tt.path)
	}
}

func TestResolveUnknownPath(t *testing.T) {
	r := New(signedOut)

	_, err := r.Resolve("/no/such/view")
	require.Error(t, err)
	assert.Equal(t, "NOT_FOUND", models.ErrorCode(err))
}

func TestResolveDeclarationOrder(t *testing.T) {
	r := New(signedOut)

	// A single segment matches the dashboard pattern only when empty;
	// "/settings" style single-segment paths fall through to my_posts.
	match, err := r.Resolve("/bob")
	require.NoError(t, err)
	assert.Equal(t, "my_posts", match.Route.Name)
	assert.Equal(t, "bob", match.Params["name"])

	// Two-segment literal routes win over the profile pattern by order.
	match, err = r.Resolve("/accounts/settings")
	require.NoError(t, err)
	assert.Equal(t, "settings", match.Route.Name)
}

func TestPushGuardRedirectsToLogin(t *testing.T) {
	r := New(signedOut)

	match, err := r.Push("/accounts/settings")
	require.NoError(t, err)
	assert.Equal(t, "login", match.Route.Name)
	assert.Equal(t, LoginPath, r.Current().Path)
}

func TestPushWithSession(t *testing.T) {
	r := New(signedIn)

	match, err := r.Push("/accounts/settings")
	require.NoError(t, err)
	assert.Equal(t, "settings", match.Route.Name)
	assert.Equal(t, "/accounts/settings", r.Current().Path)
}

func TestPushLoginWithSessionStaysOnLogin(t *testing.T) {
	// The guard only forces signed-out sessions off guarded routes; a
	// signed-in session may still visit the login view.
	r := New(signedIn)

	match, err := r.Push(LoginPath)
	require.NoError(t, err)
	assert.Equal(t, "login", match.Route.Name)
}

func TestPushNamed(t *testing.T) {
	r := New(signedIn)

	match, err := r.PushNamed("profile", Params{"name": "carol"})
	require.NoError(t, err)
	assert.Equal(t, "/profile/carol", match.Path)
	assert.Equal(t, "carol", match.Params["name"])
}

func TestPushNamedMissingParam(t *testing.T) {
	r := New(signedIn)

	_, err := r.PushNamed("profile", Params{})
	require.Error(t, err)
	assert.Equal(t, "VALIDATION_ERROR", models.ErrorCode(err))
}

func TestPushNamedUnknownRoute(t *testing.T) {
	r := New(signedIn)

	_, err := r.PushNamed("nope", Params{})
	require.Error(t, err)
	assert.Equal(t, "NOT_FOUND", models.ErrorCode(err))
}

func TestCurrentStartsZero(t *testing.T) {
	r := New(signedOut)
	assert.Nil(t, r.Current().Route)
}
