// Package remote defines the contract of the hosted document database and its
// authentication service. The client-side layers (store, session, router)
// depend only on these interfaces; internal/docstore provides the reference
// implementation and internal/remote/wire.go the over-the-network one.
package remote

import (
	"context"
	"encoding/json"
)

// Collection names served by the backend.
const (
	CollectionUsers    = "users"
	CollectionPosts    = "posts"
	CollectionLikes    = "likes"
	CollectionComments = "comments"
	CollectionStories  = "stories"
)

// Fields is the schemaless payload of a document write.
type Fields map[string]any

// Document is one record in a collection, with the backend-assigned id
// attached alongside its raw fields.
type Document struct {
	ID   string `json:"id"`
	Data Fields `json:"data"`
}

// DataTo decodes the document fields into v, with the document id attached
// as the "id" field.
func (d Document) DataTo(v any) error {
	merged := make(Fields, len(d.Data)+1)
	for k, val := range d.Data {
		merged[k] = val
	}
	merged["id"] = d.ID

	raw, err := json.Marshal(merged)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, v)
}

// Snapshot is the complete contents of a collection at one notification.
// Subscriptions always deliver full snapshots, never deltas.
type Snapshot []Document

// DataTo decodes every document of the snapshot into the slice pointed to by v.
func (s Snapshot) DataTo(v any) error {
	docs := make([]json.RawMessage, 0, len(s))
	for _, d := range s {
		merged := make(Fields, len(d.Data)+1)
		for k, val := range d.Data {
			merged[k] = val
		}
		merged["id"] = d.ID
		raw, err := json.Marshal(merged)
		if err != nil {
			return err
		}
		docs = append(docs, raw)
	}
	raw, err := json.Marshal(docs)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, v)
}

// Order requests backend-side ordering of subscription snapshots.
// The zero Order means backend enumeration order.
type Order struct {
	Field string
	Desc  bool
}

// Collection is one named document collection on the backend.
type Collection interface {
	// Add creates a document with a backend-assigned id and returns the id.
	Add(ctx context.Context, fields Fields) (string, error)
	// Set creates or replaces the document with the given id.
	Set(ctx context.Context, id string, fields Fields) error
	// Get returns the document, or nil without error when it does not exist.
	Get(ctx context.Context, id string) (*Document, error)
	// Update overwrites only the given fields of an existing document.
	Update(ctx context.Context, id string, fields Fields) error
	// Delete removes the document by id.
	Delete(ctx context.Context, id string) error
	// Where returns all documents whose field equals value.
	Where(ctx context.Context, field string, value any) (Snapshot, error)
	// Subscribe delivers the current full contents immediately and again
	// after every change. The channel is closed when ctx is done.
	Subscribe(ctx context.Context, order Order) (<-chan Snapshot, error)
}

// Identity is the authenticated user's unique reference as reported by the
// authentication service.
type Identity struct {
	UID   string `json:"uid"`
	Email string `json:"email"`
}

// IdentityFunc receives identity-change notifications. A nil identity is the
// absent marker.
type IdentityFunc func(*Identity)

// Auth is the authentication sub-interface of the backend.
type Auth interface {
	SignUp(ctx context.Context, email, password string) (*Identity, error)
	SignIn(ctx context.Context, email, password string) (*Identity, error)
	SignOut(ctx context.Context) error
	// CurrentUser returns the present session identity, or nil.
	CurrentUser() *Identity
	// OnIdentityChange registers fn and invokes it immediately with the
	// current state, then on every subsequent transition.
	OnIdentityChange(fn IdentityFunc)
}

// Client is the full backend surface: the five named collections plus auth.
type Client interface {
	Users() Collection
	Posts() Collection
	Likes() Collection
	Comments() Collection
	Stories() Collection
	Auth() Auth
}
