package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"driftline/internal/models"
	"driftline/internal/observability"

	"github.com/gorilla/websocket"
)

// WireClient talks to the hosted backend over HTTP JSON, with realtime
// subscriptions over websocket. It implements Client.
type WireClient struct {
	baseURL string
	http    *http.Client
	logger  *slog.Logger

	mu        sync.RWMutex
	token     string
	current   *Identity
	listeners []IdentityFunc
}

// NewWireClient creates a client for the backend at baseURL
// (e.g. "http://localhost:8460").
func NewWireClient(baseURL string) *WireClient {
	return &WireClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 30 * time.Second},
		logger:  observability.Component("wire"),
	}
}

func (c *WireClient) Users() Collection    { return &wireCollection{c, CollectionUsers} }
func (c *WireClient) Posts() Collection    { return &wireCollection{c, CollectionPosts} }
func (c *WireClient) Likes() Collection    { return &wireCollection{c, CollectionLikes} }
func (c *WireClient) Comments() Collection { return &wireCollection{c, CollectionComments} }
func (c *WireClient) Stories() Collection  { return &wireCollection{c, CollectionStories} }
func (c *WireClient) Auth() Auth           { return c }

// sessionResponse is the backend's answer to signup/signin.
type sessionResponse struct {
	Token    string   `json:"token"`
	Identity Identity `json:"identity"`
}

// SignUp creates an account on the backend and starts a session.
func (c *WireClient) SignUp(ctx context.Context, email, password string) (*Identity, error) {
	return c.authenticate(ctx, "/api/auth/signup", email, password)
}

// SignIn authenticates against the backend and starts a session.
func (c *WireClient) SignIn(ctx context.Context, email, password string) (*Identity, error) {
	return c.authenticate(ctx, "/api/auth/signin", email, password)
}

func (c *WireClient) authenticate(ctx context.Context, path, email, password string) (*Identity, error) {
	body := map[string]string{"email": email, "password": password}

	var session sessionResponse
	if err := c.do(ctx, http.MethodPost, path, nil, body, &session); err != nil {
		return nil, err
	}

	identity := session.Identity
	c.mu.Lock()
	c.token = session.Token
	c.current = &identity
	listeners := make([]IdentityFunc, len(c.listeners))
	copy(listeners, c.listeners)
	c.mu.Unlock()

	for _, fn := range listeners {
		id := identity
		fn(&id)
	}
	return &identity, nil
}

// SignOut ends the session. The backend call is best effort; the local
// session is cleared regardless.
func (c *WireClient) SignOut(ctx context.Context) error {
	if err := c.do(ctx, http.MethodPost, "/api/auth/signout", nil, nil, nil); err != nil {
		c.logger.Warn("signout request failed", slog.String("error", err.Error()))
	}

	c.mu.Lock()
	c.token = ""
	c.current = nil
	listeners := make([]IdentityFunc, len(c.listeners))
	copy(listeners, c.listeners)
	c.mu.Unlock()

	for _, fn := range listeners {
		fn(nil)
	}
	return nil
}

// CurrentUser returns the present session identity, or nil.
func (c *WireClient) CurrentUser() *Identity {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.current == nil {
		return nil
	}
	id := *c.current
	return &id
}

// OnIdentityChange registers fn and invokes it immediately with the current state.
func (c *WireClient) OnIdentityChange(fn IdentityFunc) {
	c.mu.Lock()
	c.listeners = append(c.listeners, fn)
	current := c.current
	c.mu.Unlock()

	if current == nil {
		fn(nil)
		return
	}
	id := *current
	fn(&id)
}

// do performs one JSON request against the backend and decodes the response
// into out when non-nil.
func (c *WireClient) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return models.NewInternalError(err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return models.NewInternalError(err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.currentToken(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return models.NewInternalError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return models.NewNotFoundError("Document", path)
	}
	if resp.StatusCode >= 400 {
		var apiErr struct {
			Error string `json:"error"`
			Code  string `json:"code"`
		}
		msg := fmt.Sprintf("backend returned %d", resp.StatusCode)
		if err := json.NewDecoder(resp.Body).Decode(&apiErr); err == nil && apiErr.Error != "" {
			msg = apiErr.Error
		}
		switch {
		case resp.StatusCode == http.StatusUnauthorized:
			return models.NewUnauthorizedError(msg)
		case resp.StatusCode < 500:
			return models.NewValidationError(msg)
		default:
			return models.NewInternalError(fmt.Errorf("%s", msg))
		}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (c *WireClient) currentToken() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// wireCollection is one named collection addressed over the wire.
type wireCollection struct {
	c    *WireClient
	name string
}

func (w *wireCollection) path(id string) string {
	if id == "" {
		return "/api/collections/" + w.name
	}
	return "/api/collections/" + w.name + "/" + url.PathEscape(id)
}

func (w *wireCollection) Add(ctx context.Context, fields Fields) (string, error) {
	var out struct {
		ID string `json:"id"`
	}
	if err := w.c.do(ctx, http.MethodPost, w.path(""), nil, fields, &out); err != nil {
		return "", err
	}
	return out.ID, nil
}

func (w *wireCollection) Set(ctx context.Context, id string, fields Fields) error {
	return w.c.do(ctx, http.MethodPut, w.path(id), nil, fields, nil)
}

func (w *wireCollection) Get(ctx context.Context, id string) (*Document, error) {
	var doc Document
	err := w.c.do(ctx, http.MethodGet, w.path(id), nil, nil, &doc)
	if err != nil {
		// Absent documents are an empty result, not a failure.
		if models.ErrorCode(err) == "NOT_FOUND" {
			return nil, nil
		}
		return nil, err
	}
	return &doc, nil
}

func (w *wireCollection) Update(ctx context.Context, id string, fields Fields) error {
	return w.c.do(ctx, http.MethodPatch, w.path(id), nil, fields, nil)
}

func (w *wireCollection) Delete(ctx context.Context, id string) error {
	return w.c.do(ctx, http.MethodDelete, w.path(id), nil, nil, nil)
}

func (w *wireCollection) Where(ctx context.Context, field string, value any) (Snapshot, error) {
	raw, err := json.Marshal(value)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	query := url.Values{}
	query.Set("field", field)
	query.Set("value", string(raw))

	var snap Snapshot
	if err := w.c.do(ctx, http.MethodGet, w.path(""), query, nil, &snap); err != nil {
		return nil, err
	}
	return snap, nil
}

// Subscribe dials the backend's websocket endpoint and mirrors its snapshot
// stream into a coalescing channel: when the consumer lags, the undelivered
// snapshot is replaced by the newer one.
func (w *wireCollection) Subscribe(ctx context.Context, order Order) (<-chan Snapshot, error) {
	wsURL := strings.Replace(w.c.baseURL, "http", "ws", 1) + "/ws/collections/" + w.name
	query := url.Values{}
	if order.Field != "" {
		query.Set("orderBy", order.Field)
		if order.Desc {
			query.Set("desc", "true")
		}
	}
	if token := w.c.currentToken(); token != "" {
		query.Set("token", token)
	}
	if len(query) > 0 {
		wsURL += "?" + query.Encode()
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	ch := make(chan Snapshot, 1)

	go func() {
		<-ctx.Done()
		_ = conn.Close()
	}()

	go func() {
		defer close(ch)
		defer conn.Close()
		for {
			var snap Snapshot
			if err := conn.ReadJSON(&snap); err != nil {
				if ctx.Err() == nil {
					w.c.logger.Warn("subscription closed",
						slog.String("collection", w.name),
						slog.String("error", err.Error()),
					)
				}
				return
			}
			for {
				select {
				case ch <- snap:
				default:
					select {
					case <-ch:
					default:
					}
					continue
				}
				break
			}
		}
	}()

	return ch, nil
}
