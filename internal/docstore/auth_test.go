package docstore

import (
	"context"
	"testing"

	"driftline/internal/models"
	"driftline/internal/remote"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func newTestAuth(t *testing.T) *AuthService {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, Migrate(db))
	return NewAuth(db, []byte("test-secret"))
}

func TestSignUpAndSignIn(t *testing.T) {
	a := newTestAuth(t)
	ctx := context.Background()

	identity, err := a.SignUp(ctx, "alice@example.com", "secret123")
	require.NoError(t, err)
	assert.NotEmpty(t, identity.UID)
	assert.Equal(t, "alice@example.com", identity.Email)

	// Signup signs the account in.
	current := a.CurrentUser()
	require.NotNil(t, current)
	assert.Equal(t, identity.UID, current.UID)

	require.NoError(t, a.SignOut(ctx))
	assert.Nil(t, a.CurrentUser())

	again, err := a.SignIn(ctx, "alice@example.com", "secret123")
	require.NoError(t, err)
	assert.Equal(t, identity.UID, again.UID)
}

func TestSignUpDuplicateEmail(t *testing.T) {
	a := newTestAuth(t)
	ctx := context.Background()

	_, err := a.SignUp(ctx, "bob@example.com", "secret123")
	require.NoError(t, err)

	_, err = a.SignUp(ctx, "bob@example.com", "other456")
	require.Error(t, err)
	assert.Equal(t, "VALIDATION_ERROR", models.ErrorCode(err))
}

func TestSignUpEmptyCredentials(t *testing.T) {
	a := newTestAuth(t)

	_, err := a.SignUp(context.Background(), "", "secret123")
	assert.Error(t, err)

	_, err = a.SignUp(context.Background(), "x@example.com", "")
	assert.Error(t, err)
}

func TestSignInBadCredentials(t *testing.T) {
	a := newTestAuth(t)
	ctx := context.Background()

	_, err := a.SignUp(ctx, "carol@example.com", "secret123")
	require.NoError(t, err)

	_, err = a.SignIn(ctx, "carol@example.com", "wrong")
	require.Error(t, err)
	assert.Equal(t, "UNAUTHORIZED", models.ErrorCode(err))

	_, err = a.SignIn(ctx, "nobody@example.com", "secret123")
	require.Error(t, err)
	assert.Equal(t, "UNAUTHORIZED", models.ErrorCode(err))
}

func TestOnIdentityChange(t *testing.T) {
	a := newTestAuth(t)
	ctx := context.Background()

	var seen []*remote.Identity
	a.OnIdentityChange(func(identity *remote.Identity) {
		seen = append(seen, identity)
	})

	// Registration delivers the current state immediately.
	require.Len(t, seen, 1)
	assert.Nil(t, seen[0])

	identity, err := a.SignUp(ctx, "dave@example.com", "secret123")
	require.NoError(t, err)
	require.Len(t, seen, 2)
	require.NotNil(t, seen[1])
	assert.Equal(t, identity.UID, seen[1].UID)

	require.NoError(t, a.SignOut(ctx))
	require.Len(t, seen, 3)
	assert.Nil(t, seen[2])
}

func TestTokenRoundTrip(t *testing.T) {
	a := newTestAuth(t)

	identity := &remote.Identity{UID: "u1", Email: "u1@example.com"}
	token, err := a.Token(identity)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	got, err := a.VerifyToken(token)
	require.NoError(t, err)
	assert.Equal(t, identity.UID, got.UID)
	assert.Equal(t, identity.Email, got.Email)
}

func TestVerifyTokenWrongSecret(t *testing.T) {
	a := newTestAuth(t)
	other := newTestAuth(t)
	other.secret = []byte("different-secret")

	token, err := other.Token(&remote.Identity{UID: "u1"})
	require.NoError(t, err)

	_, err = a.VerifyToken(token)
	require.Error(t, err)
	assert.Equal(t, "UNAUTHORIZED", models.ErrorCode(err))
}
