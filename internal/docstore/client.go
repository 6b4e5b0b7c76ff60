package docstore

import (
	"context"

	"driftline/internal/remote"
)

// Client binds a Store and AuthService into the remote.Client contract for
// in-process use (development, seeding and tests). The wire client in
// internal/remote talks to the same backend over HTTP and websocket.
type Client struct {
	store *Store
	auth  *AuthService
}

// NewClient creates an in-process backend client.
func NewClient(store *Store, auth *AuthService) *Client {
	return &Client{store: store, auth: auth}
}

func (c *Client) Users() remote.Collection    { return &boundCollection{c.store, remote.CollectionUsers} }
func (c *Client) Posts() remote.Collection    { return &boundCollection{c.store, remote.CollectionPosts} }
func (c *Client) Likes() remote.Collection    { return &boundCollection{c.store, remote.CollectionLikes} }
func (c *Client) Comments() remote.Collection {
	return &boundCollection{c.store, remote.CollectionComments}
}
func (c *Client) Stories() remote.Collection {
	return &boundCollection{c.store, remote.CollectionStories}
}
func (c *Client) Auth() remote.Auth { return c.auth }

// boundCollection is a Store scoped to one collection name.
type boundCollection struct {
	s    *Store
	name string
}

func (b *boundCollection) Add(ctx context.Context, fields remote.Fields) (string, error) {
	return b.s.Add(ctx, b.name, fields)
}

func (b *boundCollection) Set(ctx context.Context, id string, fields remote.Fields) error {
	return b.s.Set(ctx, b.name, id, fields)
}

func (b *boundCollection) Get(ctx context.Context, id string) (*remote.Document, error) {
	return b.s.Get(ctx, b.name, id)
}

func (b *boundCollection) Update(ctx context.Context, id string, fields remote.Fields) error {
	return b.s.Update(ctx, b.name, id, fields)
}

func (b *boundCollection) Delete(ctx context.Context, id string) error {
	return b.s.Delete(ctx, b.name, id)
}

func (b *boundCollection) Where(ctx context.Context, field string, value any) (remote.Snapshot, error) {
	return b.s.Where(ctx, b.name, field, value)
}

func (b *boundCollection) Subscribe(ctx context.Context, order remote.Order) (<-chan remote.Snapshot, error) {
	return b.s.Subscribe(ctx, b.name, order)
}
