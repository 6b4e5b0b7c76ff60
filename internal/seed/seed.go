// Package seed provides demo data generation for development and testing.
// It drives the document store through the same client surface the sync
// store uses, so seeded data goes through the normal write paths.
package seed

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"driftline/internal/docstore"
	"driftline/internal/models"
	"driftline/internal/observability"
	"driftline/internal/remote"

	"github.com/brianvoe/gofakeit/v6"
)

// Options configures a seeding run.
type Options struct {
	NumUsers   int
	NumPosts   int
	NumStories int
	// MaxDays bounds how far back createdOn timestamps are spread.
	MaxDays int
	// Password assigned to every seeded account.
	Password string
}

func (o *Options) defaults() {
	if o.NumUsers <= 0 {
		o.NumUsers = 8
	}
	if o.NumPosts <= 0 {
		o.NumPosts = 40
	}
	if o.NumStories <= 0 {
		o.NumStories = 15
	}
	if o.MaxDays <= 0 {
		o.MaxDays = 60
	}
	if o.Password == "" {
		o.Password = "password123"
	}
}

// Seeder populates the document store with fake users, posts, stories,
// comments and likes.
type Seeder struct {
	client remote.Client
	auth   *docstore.AuthService
	opts   Options
	rng    *rand.Rand
	logger *slog.Logger
}

// New creates a Seeder over an in-process docstore client.
func New(client remote.Client, auth *docstore.AuthService, opts Options) *Seeder {
	opts.defaults()
	gofakeit.Seed(time.Now().UnixNano())
	return &Seeder{
		client: client,
		auth:   auth,
		opts:   opts,
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
		logger: observability.Component("seed"),
	}
}

type seededUser struct {
	uid  string
	name string
}

// Run creates the full dataset. Accounts are created through the auth
// service and documents through collection writes, matching what the
// application itself does on signup and post creation.
func (s *Seeder) Run(ctx context.Context) error {
	users := make([]seededUser, 0, s.opts.NumUsers)
	for i := 0; i < s.opts.NumUsers; i++ {
		u, err := s.createUser(ctx)
		if err != nil {
			return fmt.Errorf("seed user: %w", err)
		}
		users = append(users, u)
	}
	s.logger.Info("seeded users", slog.Int("count", len(users)))

	postIDs := make([]string, 0, s.opts.NumPosts)
	for i := 0; i < s.opts.NumPosts; i++ {
		u := users[s.rng.Intn(len(users))]
		id, err := s.createPost(ctx, u)
		if err != nil {
			return fmt.Errorf("seed post: %w", err)
		}
		postIDs = append(postIDs, id)
	}
	s.logger.Info("seeded posts", slog.Int("count", len(postIDs)))

	for i := 0; i < s.opts.NumStories; i++ {
		u := users[s.rng.Intn(len(users))]
		if err := s.createStory(ctx, u); err != nil {
			return fmt.Errorf("seed story: %w", err)
		}
	}

	comments, likes := 0, 0
	for _, postID := range postIDs {
		n := s.rng.Intn(4)
		for j := 0; j < n; j++ {
			u := users[s.rng.Intn(len(users))]
			if err := s.createComment(ctx, u, postID); err != nil {
				return fmt.Errorf("seed comment: %w", err)
			}
			comments++
		}
		for _, u := range users {
			if s.rng.Intn(3) != 0 {
				continue
			}
			if err := s.createLike(ctx, u, postID); err != nil {
				return fmt.Errorf("seed like: %w", err)
			}
			likes++
		}
	}
	s.logger.Info("seed complete",
		slog.Int("comments", comments),
		slog.Int("likes", likes))
	return nil
}

func (s *Seeder) createUser(ctx context.Context) (seededUser, error) {
	name := gofakeit.Username()
	email := fmt.Sprintf("%s@%s", name, gofakeit.DomainName())

	identity, err := s.auth.SignUp(ctx, email, s.opts.Password)
	if err != nil {
		return seededUser{}, err
	}

	err = s.client.Users().Set(ctx, identity.UID, remote.Fields{
		"name":    name,
		"title":   gofakeit.JobTitle(),
		"avatar":  fmt.Sprintf("https://picsum.photos/seed/%s/200/200", identity.UID),
		"userId":  identity.UID,
		"posts":   0,
		"stories": 0,
	})
	if err != nil {
		return seededUser{}, err
	}
	return seededUser{uid: identity.UID, name: name}, nil
}

func (s *Seeder) createPost(ctx context.Context, u seededUser) (string, error) {
	fields := remote.Fields{
		"content":   gofakeit.Sentence(8 + s.rng.Intn(12)),
		"userId":    u.uid,
		"userName":  u.name,
		"createdOn": s.spreadTime().Format(time.RFC3339),
		"comments":  0,
		"likes":     0,
	}
	if s.rng.Intn(2) == 0 {
		fields["img"] = fmt.Sprintf("https://picsum.photos/seed/%s/800/600", gofakeit.UUID())
	}
	return s.client.Posts().Add(ctx, fields)
}

func (s *Seeder) createStory(ctx context.Context, u seededUser) error {
	_, err := s.client.Stories().Add(ctx, remote.Fields{
		"img":       fmt.Sprintf("https://picsum.photos/seed/%s/400/700", gofakeit.UUID()),
		"userId":    u.uid,
		"userName":  u.name,
		"createdOn": s.spreadTime().Format(time.RFC3339),
	})
	return err
}

func (s *Seeder) createComment(ctx context.Context, u seededUser, postID string) error {
	_, err := s.client.Comments().Add(ctx, remote.Fields{
		"content":   gofakeit.Sentence(4 + s.rng.Intn(10)),
		"postId":    postID,
		"userId":    u.uid,
		"userName":  u.name,
		"createdOn": s.spreadTime().Format(time.RFC3339),
	})
	if err != nil {
		return err
	}
	return s.bumpCounter(ctx, postID, "comments")
}

func (s *Seeder) createLike(ctx context.Context, u seededUser, postID string) error {
	id := models.LikeID(u.uid, postID)
	err := s.client.Likes().Set(ctx, id, remote.Fields{
		"postId":   postID,
		"userId":   u.uid,
		"userName": u.name,
	})
	if err != nil {
		return err
	}
	return s.bumpCounter(ctx, postID, "likes")
}

func (s *Seeder) bumpCounter(ctx context.Context, postID, field string) error {
	doc, err := s.client.Posts().Get(ctx, postID)
	if err != nil || doc == nil {
		return err
	}
	var post models.Post
	if err := doc.DataTo(&post); err != nil {
		return err
	}
	current := post.Likes
	if field == "comments" {
		current = post.Comments
	}
	return s.client.Posts().Update(ctx, postID, remote.Fields{field: current + 1})
}

func (s *Seeder) spreadTime() time.Time {
	back := time.Duration(s.rng.Intn(s.opts.MaxDays))*24*time.Hour +
		time.Duration(s.rng.Intn(24))*time.Hour +
		time.Duration(s.rng.Intn(60))*time.Minute
	return time.Now().UTC().Add(-back)
}
