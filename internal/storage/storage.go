// Package storage contains a storage interface.
package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/agora-net/agora/internal/entities"
	"github.com/agora-net/agora/internal/ident"
)

//go:generate mockgen -destination=./mock/storage.go -package=mock -source=storage.go

// ErrNotFound ...
var ErrNotFound = fmt.Errorf("not found")

// ErrAlreadyExists returned when an insert violates a uniqueness constraint.
var ErrAlreadyExists = fmt.Errorf("already exists")

// Storage provides methods for interacting with database.
type Storage interface {
	Ping(ctx context.Context) error

	CreateUser(ctx context.Context, p *CreateUserParams) error
	GetUserByEmail(ctx context.Context, email string) (*entities.User, error)
	GetProfile(ctx context.Context, id ident.ID) (*Profile, error)

	CreatePost(ctx context.Context, p *CreatePostParams) error
	GetPost(ctx context.Context, id ident.ID) (*Post, error)
	DeletePost(ctx context.Context, id, author ident.ID) error
	ListPosts(ctx context.Context, p *ListPostsParams) ([]*Post, error)

	CreateComment(ctx context.Context, p *CreateCommentParams) error
	DeleteComment(ctx context.Context, id, author ident.ID) error
	ListComments(ctx context.Context, postID ident.ID, limit uint16, offset uint32) ([]*Comment, error)

	Follow(ctx context.Context, follower, followee ident.ID) error
	Unfollow(ctx context.Context, follower, followee ident.ID) error
	ListFollowers(ctx context.Context, profile ident.ID, limit uint16, offset uint32) ([]*Person, error)
	ListFollowing(ctx context.Context, profile ident.ID, limit uint16, offset uint32) ([]*Person, error)

	Like(ctx context.Context, post, user ident.ID) error
	Unlike(ctx context.Context, post, user ident.ID) error
	SavePost(ctx context.Context, post, user ident.ID) error
	UnsavePost(ctx context.Context, post, user ident.ID) error

	GetPostStats(ctx context.Context, id ...ident.ID) (map[ident.ID]Stats, error)
	GetLikes(ctx context.Context, likedBy ident.ID, id ...ident.ID) (map[ident.ID]struct{}, error)
	GetSaved(ctx context.Context, savedBy ident.ID, id ...ident.ID) (map[ident.ID]struct{}, error)
	GetFollowing(ctx context.Context, follower ident.ID, id ...ident.ID) (map[ident.ID]struct{}, error)

	GetGlobalStats(ctx context.Context) (*GlobalStats, error)
}

// CreateUserParams ...
type CreateUserParams struct {
	ID           ident.ID
	FirstName    string
	LastName     string
	Username     string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}

// CreatePostParams ...
type CreatePostParams struct {
	ID        ident.ID
	AuthorID  ident.ID
	Content   string
	MediaURL  string
	CreatedAt time.Time
}

// CreateCommentParams ...
type CreateCommentParams struct {
	ID        ident.ID
	PostID    ident.ID
	AuthorID  ident.ID
	Content   string
	CreatedAt time.Time
}

// ListPostsParams is a single query shape for all post feeds. At most one of
// Owner, FollowedBy, SavedBy may be set, none of them means the global feed.
type ListPostsParams struct {
	Owner      *ident.ID
	FollowedBy *ident.ID
	SavedBy    *ident.ID
	Limit      uint16
	Offset     uint32
}

// Person is a public identity of a user joined into feed rows.
type Person struct {
	ID        ident.ID
	Username  string
	FirstName string
	LastName  string
	AvatarURL string
}

// Post is a post row joined with its author's public identity.
type Post struct {
	ID        ident.ID
	Author    Person
	Content   string
	MediaURL  string
	CreatedAt time.Time
}

// Comment is a comment row joined with its author's public identity.
type Comment struct {
	ID        ident.ID
	PostID    ident.ID
	Author    Person
	Content   string
	CreatedAt time.Time
}

// Profile is a user's public identity with aggregate counts.
type Profile struct {
	Person
	BackgroundURL  string
	CreatedAt      time.Time
	PostsCount     uint32
	FollowerCount  uint32
	FollowingCount uint32
}

// Stats is aggregate counts of a single post.
type Stats struct {
	Likes    uint32
	Comments uint32
}

// GlobalStats ...
type GlobalStats struct {
	Users    uint32
	Posts    uint32
	Comments uint32
	Likes    uint32
}
