package server

import (
	"github.com/agora-net/agora/internal/ident"
)

// pageSize is a fixed count of items per page, pages are 1-indexed.
const pageSize = 10

const (
	maxContentLength = 500
	maxCommentLength = 300
)

// Error ...
// swagger:model
type Error struct {
	Error string `json:"error"`
	// Fields contains per-field validation messages.
	Fields map[string]string `json:"fields,omitempty"`
}

// Person is a public identity of a user.
type Person struct {
	ID        ident.ID `json:"id"`
	Username  string   `json:"username"`
	FirstName string   `json:"first_name"`
	LastName  string   `json:"last_name"`
	AvatarURL string   `json:"avatar_url,omitempty"`
}

// Post carries a stored post, its author and viewer-relative enrichment.
// IsLiked, IsSaved and IsFollowingAuthor are omitted entirely for an anonymous
// viewer, their absence means unknown rather than false.
type Post struct {
	ID           ident.ID `json:"id"`
	Author       Person   `json:"author"`
	Content      string   `json:"content"`
	MediaURL     string   `json:"media_url,omitempty"`
	CreatedAt    uint64   `json:"created_at"`
	LikeCount    uint32   `json:"like_count"`
	CommentCount uint32   `json:"comment_count"`

	IsLiked           *bool `json:"is_liked,omitempty"`
	IsSaved           *bool `json:"is_saved,omitempty"`
	IsFollowingAuthor *bool `json:"is_following_author,omitempty"`
}

// Comment ...
type Comment struct {
	ID        ident.ID `json:"id"`
	PostID    ident.ID `json:"post_id"`
	Author    Person   `json:"author"`
	Content   string   `json:"content"`
	CreatedAt uint64   `json:"created_at"`
}

// PersonItem is a follow-list entry enriched with whether the viewer follows it.
type PersonItem struct {
	Person

	IsFollowing *bool `json:"is_following,omitempty"`
}

// ListPostsResponse ...
// swagger:model
type ListPostsResponse struct {
	Posts   []*Post `json:"posts"`
	HasMore bool    `json:"has_more"`
}

// ListCommentsResponse ...
// swagger:model
type ListCommentsResponse struct {
	Comments []*Comment `json:"comments"`
	HasMore  bool       `json:"has_more"`
}

// ListPeopleResponse ...
// swagger:model
type ListPeopleResponse struct {
	People  []*PersonItem `json:"people"`
	HasMore bool          `json:"has_more"`
}

// ProfileResponse ...
// swagger:model
type ProfileResponse struct {
	Person

	BackgroundURL  string `json:"background_url,omitempty"`
	CreatedAt      uint64 `json:"created_at"`
	PostsCount     uint32 `json:"posts_count"`
	FollowerCount  uint32 `json:"follower_count"`
	FollowingCount uint32 `json:"following_count"`

	IsFollowing *bool `json:"is_following,omitempty"`
}

// TokenResponse ...
// swagger:model
type TokenResponse struct {
	Token string `json:"token"`
}

// CreatedResponse ...
// swagger:model
type CreatedResponse struct {
	ID ident.ID `json:"id"`
}

// StatsResponse ...
// swagger:model
type StatsResponse struct {
	Users    uint32 `json:"users"`
	Posts    uint32 `json:"posts"`
	Comments uint32 `json:"comments"`
	Likes    uint32 `json:"likes"`
}

// SignUpRequest ...
// swagger:model
type SignUpRequest struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	Password  string `json:"password"`
}

// LogInRequest ...
// swagger:model
type LogInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// CreatePostRequest ...
// swagger:model
type CreatePostRequest struct {
	Content  string `json:"content"`
	MediaURL string `json:"media_url"`
}

// CreateCommentRequest ...
// swagger:model
type CreateCommentRequest struct {
	Content string `json:"content"`
}
