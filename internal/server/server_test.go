package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"driftline/internal/config"
	"driftline/internal/docstore"
	"driftline/internal/remote"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type serverEnv struct {
	srv   *Server
	store *docstore.Store
	auth  *docstore.AuthService
}

func newServerEnv(t *testing.T) *serverEnv {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, docstore.Migrate(db))

	store := docstore.New(db)
	auth := docstore.NewAuth(db, []byte("test-secret"))
	cfg := &config.Config{Port: "0", Env: "test"}
	return &serverEnv{
		srv:   New(cfg, store, auth),
		store: store,
		auth:  auth,
	}
}

func (e *serverEnv) request(t *testing.T, method, path, token string, body any) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := e.srv.App().Test(req)
	require.NoError(t, err)
	return resp
}

func (e *serverEnv) token(t *testing.T) string {
	t.Helper()
	identity, err := e.auth.SignUp(t.Context(), fmt.Sprintf("%s@example.com", t.Name()), "secret123")
	require.NoError(t, err)
	token, err := e.auth.Token(identity)
	require.NoError(t, err)
	return token
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer func() { _ = resp.Body.Close() }()
	var payload map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
	return payload
}

func TestHealthEndpoint(t *testing.T) {
	e := newServerEnv(t)

	resp := e.request(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", decodeBody(t, resp)["status"])
}

func TestSignupSigninSignout(t *testing.T) {
	e := newServerEnv(t)
	creds := map[string]string{"email": "alice@example.com", "password": "secret123"}

	resp := e.request(t, http.MethodPost, "/api/auth/signup", "", creds)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	payload := decodeBody(t, resp)
	assert.NotEmpty(t, payload["token"])
	require.NotNil(t, payload["identity"])

	resp = e.request(t, http.MethodPost, "/api/auth/signin", "", creds)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, decodeBody(t, resp)["token"])

	resp = e.request(t, http.MethodPost, "/api/auth/signout", "", nil)
	assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)
}

func TestSigninBadCredentials(t *testing.T) {
	e := newServerEnv(t)
	resp := e.request(t, http.MethodPost, "/api/auth/signin", "",
		map[string]string{"email": "nobody@example.com", "password": "x"})
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestUnknownCollectionIsRejected(t *testing.T) {
	e := newServerEnv(t)
	resp := e.request(t, http.MethodGet, "/api/collections/secrets", "", nil)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestWritesRequireToken(t *testing.T) {
	e := newServerEnv(t)

	resp := e.request(t, http.MethodPost, "/api/collections/posts", "",
		map[string]any{"content": "unauthenticated"})
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	resp = e.request(t, http.MethodDelete, "/api/collections/posts/p1", "", nil)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestDocumentLifecycle(t *testing.T) {
	e := newServerEnv(t)
	token := e.token(t)

	resp := e.request(t, http.MethodPost, "/api/collections/posts", token,
		map[string]any{"content": "hello", "userId": "u1", "likes": 0})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	id, _ := decodeBody(t, resp)["id"].(string)
	require.NotEmpty(t, id)

	resp = e.request(t, http.MethodGet, "/api/collections/posts/"+id, "", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	doc := decodeBody(t, resp)
	assert.Equal(t, id, doc["id"])

	resp = e.request(t, http.MethodPatch, "/api/collections/posts/"+id, token,
		map[string]any{"likes": 5})
	require.Equal(t, fiber.StatusNoContent, resp.StatusCode)

	got, err := e.store.Get(t.Context(), remote.CollectionPosts, id)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "hello", got.Data["content"])
	assert.Equal(t, float64(5), got.Data["likes"])

	resp = e.request(t, http.MethodDelete, "/api/collections/posts/"+id, token, nil)
	require.Equal(t, fiber.StatusNoContent, resp.StatusCode)

	resp = e.request(t, http.MethodGet, "/api/collections/posts/"+id, "", nil)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestSetDocumentWithClientID(t *testing.T) {
	e := newServerEnv(t)
	token := e.token(t)

	resp := e.request(t, http.MethodPut, "/api/collections/likes/u1_p1", token,
		map[string]any{"userId": "u1", "postId": "p1"})
	require.Equal(t, fiber.StatusNoContent, resp.StatusCode)

	doc, err := e.store.Get(t.Context(), remote.CollectionLikes, "u1_p1")
	require.NoError(t, err)
	require.NotNil(t, doc)
	assert.Equal(t, "p1", doc.Data["postId"])
}

func TestQueryCollection(t *testing.T) {
	e := newServerEnv(t)
	ctx := t.Context()
	require.NoError(t, e.store.Set(ctx, remote.CollectionUsers, "u1",
		remote.Fields{"name": "alice"}))
	require.NoError(t, e.store.Set(ctx, remote.CollectionUsers, "u2",
		remote.Fields{"name": "bob"}))

	resp := e.request(t, http.MethodGet, "/api/collections/users", "", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var all []map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&all))
	_ = resp.Body.Close()
	assert.Len(t, all, 2)

	resp = e.request(t, http.MethodGet, `/api/collections/users?field=name&value="alice"`, "", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var filtered []map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&filtered))
	_ = resp.Body.Close()
	require.Len(t, filtered, 1)
	assert.Equal(t, "u1", filtered[0]["id"])
}

func TestQueryCollectionBadValue(t *testing.T) {
	e := newServerEnv(t)
	resp := e.request(t, http.MethodGet, "/api/collections/users?field=name&value=", "", nil)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestUpdateMissingDocumentIs404(t *testing.T) {
	e := newServerEnv(t)
	token := e.token(t)

	resp := e.request(t, http.MethodPatch, "/api/collections/posts/nope", token,
		map[string]any{"likes": 1})
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}
