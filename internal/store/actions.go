package store

import (
	"context"
	"time"

	"driftline/internal/models"
	"driftline/internal/remote"
)

// Every action is a fire-once write against the backend; there is no retry
// policy. Local state is only updated by the resulting subscription push
// (or, for the profile, by the explicit reload the action performs).

// Login authenticates the credential and loads the profile.
func (s *Store) Login(ctx context.Context, email, password string) error {
	identity, err := s.client.Auth().SignIn(ctx, email, password)
	if err != nil {
		return err
	}
	_, err = s.FetchUserProfile(ctx, identity.UID)
	return err
}

// Signup creates the auth identity, the matching profile document with zero
// counters, and loads the profile. The display name must be unused.
func (s *Store) Signup(ctx context.Context, email, password, name, title string) error {
	if err := s.CheckUserName(ctx, name); err != nil {
		return err
	}

	identity, err := s.client.Auth().SignUp(ctx, email, password)
	if err != nil {
		return err
	}

	err = s.client.Users().Set(ctx, identity.UID, remote.Fields{
		"name":    name,
		"title":   title,
		"userId":  identity.UID,
		"posts":   0,
		"stories": 0,
	})
	if err != nil {
		return err
	}

	_, err = s.FetchUserProfile(ctx, identity.UID)
	return err
}

// FetchUserProfile loads the profile document for the given uid and replaces
// the local profile. A missing document yields the empty profile, not an
// error. The caller decides whether the result warrants a navigation.
func (s *Store) FetchUserProfile(ctx context.Context, uid string) (models.UserProfile, error) {
	doc, err := s.client.Users().Get(ctx, uid)
	if err != nil {
		return models.UserProfile{}, err
	}

	var profile models.UserProfile
	if doc != nil {
		if err := doc.DataTo(&profile); err != nil {
			return models.UserProfile{}, err
		}
	}

	s.setProfile(profile)
	return profile, nil
}

// Logout signs out and clears the local profile. Navigation is the caller's.
func (s *Store) Logout(ctx context.Context) error {
	if err := s.client.Auth().SignOut(ctx); err != nil {
		return err
	}
	s.setProfile(models.UserProfile{})
	return nil
}

// CreatePost writes a new post stamped with the current time and user, with
// zero comment and like counters.
func (s *Store) CreatePost(ctx context.Context, content, img string) error {
	identity, err := s.currentIdentity()
	if err != nil {
		return err
	}

	_, err = s.client.Posts().Add(ctx, remote.Fields{
		"createdOn": time.Now().UTC(),
		"content":   content,
		"userId":    identity.UID,
		"userName":  s.Profile().Name,
		"comments":  0,
		"likes":     0,
		"img":       img,
	})
	return err
}

// CreateStory writes a new story stamped with the current time and user.
func (s *Store) CreateStory(ctx context.Context, img string) error {
	identity, err := s.currentIdentity()
	if err != nil {
		return err
	}

	_, err = s.client.Stories().Add(ctx, remote.Fields{
		"createdOn": time.Now().UTC(),
		"userId":    identity.UID,
		"userName":  s.Profile().Name,
		"img":       img,
	})
	return err
}

// LikePost creates the like document with the deterministic id
// "<userId>_<postId>". If the like already exists the call is a silent no-op.
//
// The post's like counter is written as the caller's locally-held count plus
// one, not a server-side atomic increment, so concurrent likers can
// undercount.
func (s *Store) LikePost(ctx context.Context, post models.Post) error {
	identity, err := s.currentIdentity()
	if err != nil {
		return err
	}

	likeID := models.LikeID(identity.UID, post.ID)
	existing, err := s.client.Likes().Get(ctx, likeID)
	if err != nil {
		return err
	}
	if existing != nil {
		return nil
	}

	err = s.client.Likes().Set(ctx, likeID, remote.Fields{
		"postId":   post.ID,
		"userId":   identity.UID,
		"userName": s.Profile().Name,
	})
	if err != nil {
		return err
	}

	return s.client.Posts().Update(ctx, post.ID, remote.Fields{
		"likes": post.Likes + 1,
	})
}

// CreateComment writes a comment and bumps the post's comment counter using
// the caller's locally-held count, same stale-count pattern as LikePost.
func (s *Store) CreateComment(ctx context.Context, post models.Post, content string) error {
	identity, err := s.currentIdentity()
	if err != nil {
		return err
	}

	_, err = s.client.Comments().Add(ctx, remote.Fields{
		"postId":    post.ID,
		"userId":    identity.UID,
		"userName":  s.Profile().Name,
		"content":   content,
		"createdOn": time.Now().UTC(),
	})
	if err != nil {
		return err
	}

	return s.client.Posts().Update(ctx, post.ID, remote.Fields{
		"comments": post.Comments + 1,
	})
}

// UpdatePostsCount overwrites the profile's post counter with the supplied
// value and reloads the profile.
func (s *Store) UpdatePostsCount(ctx context.Context, posts int) error {
	identity, err := s.currentIdentity()
	if err != nil {
		return err
	}

	err = s.client.Users().Update(ctx, identity.UID, remote.Fields{"posts": posts})
	if err != nil {
		return err
	}
	_, err = s.FetchUserProfile(ctx, identity.UID)
	return err
}

// UpdateStoriesCount overwrites the profile's story counter with the supplied
// value and reloads the profile.
func (s *Store) UpdateStoriesCount(ctx context.Context, stories int) error {
	identity, err := s.currentIdentity()
	if err != nil {
		return err
	}

	err = s.client.Users().Update(ctx, identity.UID, remote.Fields{"stories": stories})
	if err != nil {
		return err
	}
	_, err = s.FetchUserProfile(ctx, identity.UID)
	return err
}

// CheckUserName resolves nil when no profile uses the name, and a NAME_TAKEN
// failure otherwise.
func (s *Store) CheckUserName(ctx context.Context, name string) error {
	snap, err := s.client.Users().Where(ctx, "name", name)
	if err != nil {
		return err
	}
	if len(snap) > 0 {
		return models.NewNameTakenError(name)
	}
	return nil
}

// ProfileUpdate carries the overwritable profile fields.
type ProfileUpdate struct {
	Name   string
	Title  string
	Avatar string
}

// UpdateProfile overwrites the profile fields, reloads the profile, then
// rewrites the denormalized userName on every post and comment authored by
// the user. The fan-out is unbatched and non-transactional: a failure partway
// leaves earlier rewrites in place.
func (s *Store) UpdateProfile(ctx context.Context, in ProfileUpdate) error {
	identity, err := s.currentIdentity()
	if err != nil {
		return err
	}

	err = s.client.Users().Update(ctx, identity.UID, remote.Fields{
		"name":   in.Name,
		"title":  in.Title,
		"avatar": in.Avatar,
	})
	if err != nil {
		return err
	}

	if _, err := s.FetchUserProfile(ctx, identity.UID); err != nil {
		return err
	}

	postDocs, err := s.client.Posts().Where(ctx, "userId", identity.UID)
	if err != nil {
		return err
	}
	for _, doc := range postDocs {
		if err := s.client.Posts().Update(ctx, doc.ID, remote.Fields{"userName": in.Name}); err != nil {
			return err
		}
	}

	commentDocs, err := s.client.Comments().Where(ctx, "userId", identity.UID)
	if err != nil {
		return err
	}
	for _, doc := range commentDocs {
		if err := s.client.Comments().Update(ctx, doc.ID, remote.Fields{"userName": in.Name}); err != nil {
			return err
		}
	}

	return nil
}

// DeletePost removes a post by id.
func (s *Store) DeletePost(ctx context.Context, id string) error {
	return s.client.Posts().Delete(ctx, id)
}

// DeleteLike removes a like by id.
func (s *Store) DeleteLike(ctx context.Context, id string) error {
	return s.client.Likes().Delete(ctx, id)
}

// UpdatePost overwrites the post content and stamps the update time.
func (s *Store) UpdatePost(ctx context.Context, id, content string) error {
	return s.client.Posts().Update(ctx, id, remote.Fields{
		"content":  content,
		"updateOn": time.Now().UTC(),
	})
}

func (s *Store) currentIdentity() (*remote.Identity, error) {
	identity := s.client.Auth().CurrentUser()
	if identity == nil {
		return nil, models.NewUnauthorizedError("No active session")
	}
	return identity, nil
}
