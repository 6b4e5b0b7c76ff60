// Package store implements the realtime sync store: five live mirrors of the
// backend collections plus the profile of the signed-in user. Each collection
// has a single consumer goroutine draining a snapshot channel and replacing
// the local mirror atomically; local state is never mutated directly by an
// action, only by the round trip through the backend.
package store

import (
	"context"
	"encoding/json"
	"log/slog"
	"sort"
	"sync"

	"driftline/internal/cache"
	"driftline/internal/models"
	"driftline/internal/observability"
	"driftline/internal/remote"
)

// stateKey is the persisted cache key for the cross-session state blob.
const stateKey = "driftline:state"

// persistedState is the subset of state written to the encrypted local cache
// and rehydrated at startup.
type persistedState struct {
	UserProfile models.UserProfile `json:"userProfile"`
}

// Store owns all client-side application state.
type Store struct {
	client remote.Client
	cache  *cache.Cache
	logger *slog.Logger

	mu       sync.RWMutex
	profile  models.UserProfile
	posts    []models.Post
	stories  []models.Story
	likes    []models.Like
	comments []models.Comment
	users    []models.User
}

// New creates a Store over the given backend client. cache may be nil.
func New(client remote.Client, c *cache.Cache) *Store {
	return &Store{
		client: client,
		cache:  c,
		logger: observability.Component("store"),
	}
}

// Start rehydrates persisted state and attaches the five collection mirrors.
// Subscriptions live until ctx is done; there is no per-subscription teardown.
func (s *Store) Start(ctx context.Context) error {
	s.rehydrate(ctx)

	// Posts are ordered by the backend; stories and comments are sorted
	// client-side after each full snapshot. Likes and users are unordered.
	mirrors := []struct {
		name       string
		collection remote.Collection
		order      remote.Order
		apply      func(remote.Snapshot) error
	}{
		{remote.CollectionPosts, s.client.Posts(), remote.Order{Field: "createdOn", Desc: true}, s.applyPosts},
		{remote.CollectionStories, s.client.Stories(), remote.Order{}, s.applyStories},
		{remote.CollectionComments, s.client.Comments(), remote.Order{}, s.applyComments},
		{remote.CollectionLikes, s.client.Likes(), remote.Order{}, s.applyLikes},
		{remote.CollectionUsers, s.client.Users(), remote.Order{}, s.applyUsers},
	}

	for _, m := range mirrors {
		ch, err := m.collection.Subscribe(ctx, m.order)
		if err != nil {
			return err
		}
		go s.consume(m.name, ch, m.apply)
	}
	return nil
}

// consume drains one collection's snapshot channel. Every snapshot replaces
// the mirror wholesale; a failed decode keeps the previous mirror.
func (s *Store) consume(collection string, ch <-chan remote.Snapshot, apply func(remote.Snapshot) error) {
	for snap := range ch {
		if err := apply(snap); err != nil {
			s.logger.Error("snapshot apply failed",
				slog.String("collection", collection),
				slog.String("error", err.Error()),
			)
		}
	}
}

func (s *Store) applyPosts(snap remote.Snapshot) error {
	var posts []models.Post
	if err := snap.DataTo(&posts); err != nil {
		return err
	}
	s.mu.Lock()
	s.posts = posts
	s.mu.Unlock()
	s.persist()
	return nil
}

func (s *Store) applyStories(snap remote.Snapshot) error {
	var stories []models.Story
	if err := snap.DataTo(&stories); err != nil {
		return err
	}
	sort.SliceStable(stories, func(i, j int) bool {
		return stories[i].CreatedOn.Before(stories[j].CreatedOn)
	})
	s.mu.Lock()
	s.stories = stories
	s.mu.Unlock()
	s.persist()
	return nil
}

func (s *Store) applyComments(snap remote.Snapshot) error {
	var comments []models.Comment
	if err := snap.DataTo(&comments); err != nil {
		return err
	}
	sort.SliceStable(comments, func(i, j int) bool {
		return comments[j].CreatedOn.Before(comments[i].CreatedOn)
	})
	s.mu.Lock()
	s.comments = comments
	s.mu.Unlock()
	s.persist()
	return nil
}

func (s *Store) applyLikes(snap remote.Snapshot) error {
	var likes []models.Like
	if err := snap.DataTo(&likes); err != nil {
		return err
	}
	s.mu.Lock()
	s.likes = likes
	s.mu.Unlock()
	s.persist()
	return nil
}

func (s *Store) applyUsers(snap remote.Snapshot) error {
	var users []models.User
	if err := snap.DataTo(&users); err != nil {
		return err
	}
	s.mu.Lock()
	s.users = users
	s.mu.Unlock()
	s.persist()
	return nil
}

// setProfile replaces the profile wholesale and persists.
func (s *Store) setProfile(profile models.UserProfile) {
	s.mu.Lock()
	s.profile = profile
	s.mu.Unlock()
	s.persist()
}

// persist writes the persisted subset of state to the encrypted cache.
// Best effort: a cache failure never fails the state mutation that caused it.
func (s *Store) persist() {
	if !s.cache.Enabled() {
		return
	}

	s.mu.RLock()
	state := persistedState{UserProfile: s.profile}
	s.mu.RUnlock()

	blob, err := json.Marshal(state)
	if err != nil {
		s.logger.Error("persisted state marshal failed", slog.String("error", err.Error()))
		return
	}
	if err := s.cache.Set(context.Background(), stateKey, blob); err != nil {
		s.logger.Warn("persisted state write failed", slog.String("error", err.Error()))
	}
}

// rehydrate restores the persisted subset of state at startup.
func (s *Store) rehydrate(ctx context.Context) {
	if !s.cache.Enabled() {
		return
	}

	blob, ok, err := s.cache.Get(ctx, stateKey)
	if err != nil {
		s.logger.Warn("persisted state read failed", slog.String("error", err.Error()))
		return
	}
	if !ok {
		return
	}

	var state persistedState
	if err := json.Unmarshal(blob, &state); err != nil {
		s.logger.Warn("persisted state decode failed", slog.String("error", err.Error()))
		return
	}

	s.mu.Lock()
	s.profile = state.UserProfile
	s.mu.Unlock()
}

// Profile returns the current user profile.
func (s *Store) Profile() models.UserProfile {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.profile
}

// Posts returns the mirrored posts, newest first.
func (s *Store) Posts() []models.Post {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Post, len(s.posts))
	copy(out, s.posts)
	return out
}

// Stories returns the mirrored stories, oldest first.
func (s *Store) Stories() []models.Story {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Story, len(s.stories))
	copy(out, s.stories)
	return out
}

// Likes returns the mirrored likes.
func (s *Store) Likes() []models.Like {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Like, len(s.likes))
	copy(out, s.likes)
	return out
}

// Comments returns the mirrored comments, newest first.
func (s *Store) Comments() []models.Comment {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Comment, len(s.comments))
	copy(out, s.comments)
	return out
}

// Users returns the mirrored public user directory.
func (s *Store) Users() []models.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.User, len(s.users))
	copy(out, s.users)
	return out
}
