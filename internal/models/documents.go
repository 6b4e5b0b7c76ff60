// Package models contains data structures for the application's domain documents.
//
// Every type here is a flat record mirrored verbatim from the remote document
// database; there is no locally derived state. JSON field names follow the wire
// format of the hosted collections.
package models

import "time"

// UserProfile is the signed-in user's profile document, keyed by the auth uid.
type UserProfile struct {
	UserID  string `json:"userId"`
	Name    string `json:"name"`
	Title   string `json:"title"`
	Avatar  string `json:"avatar,omitempty"`
	Posts   int    `json:"posts"`
	Stories int    `json:"stories"`
}

// IsZero reports whether the profile is the cleared/empty profile.
func (p UserProfile) IsZero() bool {
	return p == UserProfile{}
}

// Post is a feed post. Comments and Likes are denormalized counters maintained
// by the write actions, not computed locally.
type Post struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	UserID    string    `json:"userId"`
	UserName  string    `json:"userName"`
	CreatedOn time.Time `json:"createdOn"`
	UpdateOn  time.Time `json:"updateOn,omitzero"`
	Comments  int       `json:"comments"`
	Likes     int       `json:"likes"`
	Img       string    `json:"img,omitempty"`
}

// Story is an ephemeral image story.
type Story struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	UserName  string    `json:"userName"`
	CreatedOn time.Time `json:"createdOn"`
	Img       string    `json:"img"`
}

// Like records one user liking one post. Its ID is the deterministic compound
// "<userId>_<postId>", which makes at-most-one-like-per-user-per-post an
// invariant of the identifier space.
type Like struct {
	ID       string `json:"id"`
	PostID   string `json:"postId"`
	UserID   string `json:"userId"`
	UserName string `json:"userName"`
}

// LikeID returns the deterministic like document id for a user/post pair.
func LikeID(userID, postID string) string {
	return userID + "_" + postID
}

// Comment is a comment on a post. UserName is denormalized and rewritten on
// profile updates.
type Comment struct {
	ID        string    `json:"id"`
	PostID    string    `json:"postId"`
	UserID    string    `json:"userId"`
	UserName  string    `json:"userName"`
	Content   string    `json:"content"`
	CreatedOn time.Time `json:"createdOn"`
}

// User is the public directory listing entry for a user.
type User struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Title  string `json:"title"`
	Avatar string `json:"avatar,omitempty"`
}
