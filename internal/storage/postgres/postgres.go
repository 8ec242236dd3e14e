// Package postgres is implementation of storage interface.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/agora-net/agora/internal/entities"
	"github.com/agora-net/agora/internal/ident"
	"github.com/agora-net/agora/internal/storage"
)

const (
	foreignKeyViolation = "23503"
	uniqueViolation     = "23505"
)

type pg struct {
	ext sqlx.ExtContext
}

// New creates new instance of pg.
func New(db *sql.DB) storage.Storage {
	return pg{
		ext: sqlx.NewDb(db, "postgres"),
	}
}

type userDTO struct {
	ID            ident.ID  `db:"user_id"`
	FirstName     string    `db:"first_name"`
	LastName      string    `db:"last_name"`
	Username      string    `db:"username"`
	Email         string    `db:"email"`
	PasswordHash  string    `db:"password_hash"`
	AvatarURL     string    `db:"avatar_url"`
	BackgroundURL string    `db:"background_url"`
	CreatedAt     time.Time `db:"date_created"`
}

type personDTO struct {
	ID        ident.ID `db:"author_id"`
	Username  string   `db:"username"`
	FirstName string   `db:"first_name"`
	LastName  string   `db:"last_name"`
	AvatarURL string   `db:"avatar_url"`
}

type postDTO struct {
	ID        ident.ID  `db:"post_id"`
	Content   string    `db:"content"`
	MediaURL  string    `db:"media_url"`
	CreatedAt time.Time `db:"date_created"`

	personDTO
}

type commentDTO struct {
	ID        ident.ID  `db:"comment_id"`
	PostID    ident.ID  `db:"post_id"`
	Content   string    `db:"content"`
	CreatedAt time.Time `db:"date_created"`

	personDTO
}

func (p personDTO) toPerson() storage.Person {
	return storage.Person{
		ID:        p.ID,
		Username:  p.Username,
		FirstName: p.FirstName,
		LastName:  p.LastName,
		AvatarURL: p.AvatarURL,
	}
}

func (s pg) Ping(ctx context.Context) error {
	var one int
	if err := sqlx.GetContext(ctx, s.ext, &one, `SELECT 1`); err != nil {
		return fmt.Errorf("failed to ping postgres: %w", err)
	}

	return nil
}

func (s pg) CreateUser(ctx context.Context, p *storage.CreateUserParams) error {
	if _, err := s.ext.ExecContext(ctx,
		`
			INSERT INTO users(user_id, first_name, last_name, username, email, password_hash, date_created)
			VALUES($1, $2, $3, $4, $5, $6, $7)
		`,
		p.ID, p.FirstName, p.LastName, p.Username, p.Email, p.PasswordHash, p.CreatedAt.UTC(),
	); err != nil {
		return translatePgError(err)
	}

	return nil
}

func (s pg) GetUserByEmail(ctx context.Context, email string) (*entities.User, error) {
	var u userDTO

	if err := sqlx.GetContext(ctx, s.ext, &u, `
			SELECT user_id, first_name, last_name, username, email, password_hash, avatar_url, background_url, date_created
			FROM users
			WHERE email = $1
		`, email,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrNotFound
		}

		return nil, fmt.Errorf("failed to query: %w", err)
	}

	return &entities.User{
		ID:            u.ID,
		FirstName:     u.FirstName,
		LastName:      u.LastName,
		Username:      u.Username,
		Email:         u.Email,
		PasswordHash:  u.PasswordHash,
		AvatarURL:     u.AvatarURL,
		BackgroundURL: u.BackgroundURL,
		CreatedAt:     u.CreatedAt,
	}, nil
}

func (s pg) GetProfile(ctx context.Context, id ident.ID) (*storage.Profile, error) {
	var p struct {
		userDTO
		PostsCount     uint32 `db:"posts_count"`
		FollowerCount  uint32 `db:"follower_count"`
		FollowingCount uint32 `db:"following_count"`
	}

	if err := sqlx.GetContext(ctx, s.ext, &p, `
			SELECT u.user_id, u.first_name, u.last_name, u.username, u.email, u.password_hash,
				u.avatar_url, u.background_url, u.date_created,
				(SELECT COUNT(*) FROM posts p WHERE p.user_id = u.user_id) AS posts_count,
				(SELECT COUNT(*) FROM followers f WHERE f.followee_id = u.user_id) AS follower_count,
				(SELECT COUNT(*) FROM followers f WHERE f.follower_id = u.user_id) AS following_count
			FROM users u
			WHERE u.user_id = $1
		`, id,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrNotFound
		}

		return nil, fmt.Errorf("failed to query: %w", err)
	}

	return &storage.Profile{
		Person: storage.Person{
			ID:        p.ID,
			Username:  p.Username,
			FirstName: p.FirstName,
			LastName:  p.LastName,
			AvatarURL: p.AvatarURL,
		},
		BackgroundURL:  p.BackgroundURL,
		CreatedAt:      p.CreatedAt,
		PostsCount:     p.PostsCount,
		FollowerCount:  p.FollowerCount,
		FollowingCount: p.FollowingCount,
	}, nil
}

func (s pg) CreatePost(ctx context.Context, p *storage.CreatePostParams) error {
	if _, err := s.ext.ExecContext(ctx,
		`
			INSERT INTO posts(post_id, user_id, content, media_url, date_created)
			VALUES($1, $2, $3, $4, $5)
		`,
		p.ID, p.AuthorID, p.Content, p.MediaURL, p.CreatedAt.UTC(),
	); err != nil {
		return translatePgError(err)
	}

	return nil
}

func (s pg) GetPost(ctx context.Context, id ident.ID) (*storage.Post, error) {
	var p postDTO

	if err := sqlx.GetContext(ctx, s.ext, &p, `
			SELECT p.post_id, p.content, p.media_url, p.date_created,
				u.user_id AS author_id, u.username, u.first_name, u.last_name, u.avatar_url
			FROM posts p
			JOIN users u ON u.user_id = p.user_id
			WHERE p.post_id = $1
		`, id,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrNotFound
		}

		return nil, fmt.Errorf("failed to query: %w", err)
	}

	return &storage.Post{
		ID:        p.ID,
		Author:    p.toPerson(),
		Content:   p.Content,
		MediaURL:  p.MediaURL,
		CreatedAt: p.CreatedAt,
	}, nil
}

func (s pg) DeletePost(ctx context.Context, id, author ident.ID) error {
	res, err := s.ext.ExecContext(ctx,
		`DELETE FROM posts WHERE post_id=$1 AND user_id=$2`,
		id, author,
	)
	if err != nil {
		return fmt.Errorf("failed to exec: %w", err)
	}

	if c, _ := res.RowsAffected(); c == 0 {
		return storage.ErrNotFound
	}

	return nil
}

func (s pg) ListPosts(ctx context.Context, p *storage.ListPostsParams) ([]*storage.Post, error) {
	var (
		join  strings.Builder
		where string
		order = "p.date_created DESC"
		args  []interface{}
	)

	if p.FollowedBy != nil {
		join.WriteString(` JOIN followers f ON f.followee_id = p.user_id AND f.follower_id = ?`)
		args = append(args, *p.FollowedBy)
	}

	if p.SavedBy != nil {
		join.WriteString(` JOIN saved_posts sp ON sp.post_id = p.post_id AND sp.user_id = ?`)
		args = append(args, *p.SavedBy)
		order = "sp.saved_at DESC"
	}

	if p.Owner != nil {
		where = ` WHERE p.user_id = ?`
		args = append(args, *p.Owner)
	}

	args = append(args, p.Limit, p.Offset)

	query := fmt.Sprintf(`
			SELECT p.post_id, p.content, p.media_url, p.date_created,
				u.user_id AS author_id, u.username, u.first_name, u.last_name, u.avatar_url
			FROM posts p
			JOIN users u ON u.user_id = p.user_id%s%s
			ORDER BY %s
			LIMIT ? OFFSET ?
		`, join.String(), where, order)

	var dto []*postDTO
	if err := sqlx.SelectContext(ctx, s.ext, &dto, s.ext.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to query: %w", err)
	}

	out := make([]*storage.Post, len(dto))
	for i, v := range dto {
		out[i] = &storage.Post{
			ID:        v.ID,
			Author:    v.toPerson(),
			Content:   v.Content,
			MediaURL:  v.MediaURL,
			CreatedAt: v.CreatedAt,
		}
	}

	return out, nil
}

func (s pg) CreateComment(ctx context.Context, p *storage.CreateCommentParams) error {
	if _, err := s.ext.ExecContext(ctx,
		`
			INSERT INTO comments(comment_id, post_id, user_id, content, date_created)
			VALUES($1, $2, $3, $4, $5)
		`,
		p.ID, p.PostID, p.AuthorID, p.Content, p.CreatedAt.UTC(),
	); err != nil {
		return translatePgError(err)
	}

	return nil
}

func (s pg) DeleteComment(ctx context.Context, id, author ident.ID) error {
	res, err := s.ext.ExecContext(ctx,
		`DELETE FROM comments WHERE comment_id=$1 AND user_id=$2`,
		id, author,
	)
	if err != nil {
		return fmt.Errorf("failed to exec: %w", err)
	}

	if c, _ := res.RowsAffected(); c == 0 {
		return storage.ErrNotFound
	}

	return nil
}

func (s pg) ListComments(ctx context.Context, postID ident.ID, limit uint16, offset uint32) ([]*storage.Comment, error) {
	var dto []*commentDTO

	if err := sqlx.SelectContext(ctx, s.ext, &dto, `
			SELECT c.comment_id, c.post_id, c.content, c.date_created,
				u.user_id AS author_id, u.username, u.first_name, u.last_name, u.avatar_url
			FROM comments c
			JOIN users u ON u.user_id = c.user_id
			WHERE c.post_id = $1
			ORDER BY c.date_created DESC
			LIMIT $2 OFFSET $3
		`, postID, limit, offset,
	); err != nil {
		return nil, fmt.Errorf("failed to query: %w", err)
	}

	out := make([]*storage.Comment, len(dto))
	for i, v := range dto {
		out[i] = &storage.Comment{
			ID:        v.ID,
			PostID:    v.PostID,
			Author:    v.toPerson(),
			Content:   v.Content,
			CreatedAt: v.CreatedAt,
		}
	}

	return out, nil
}

func (s pg) Follow(ctx context.Context, follower, followee ident.ID) error {
	if _, err := s.ext.ExecContext(ctx,
		`
			INSERT INTO followers(follower_id, followee_id, date_created) VALUES($1, $2, $3)
		`, follower, followee, time.Now().UTC(),
	); err != nil {
		return translatePgError(err)
	}

	return nil
}

func (s pg) Unfollow(ctx context.Context, follower, followee ident.ID) error {
	if _, err := s.ext.ExecContext(ctx,
		`
			DELETE FROM followers WHERE follower_id=$1 AND followee_id=$2
		`, follower, followee,
	); err != nil {
		return fmt.Errorf("failed to exec: %w", err)
	}

	return nil
}

func (s pg) ListFollowers(ctx context.Context, profile ident.ID, limit uint16, offset uint32) ([]*storage.Person, error) {
	return s.listFollowEdge(ctx, `
			SELECT u.user_id AS author_id, u.username, u.first_name, u.last_name, u.avatar_url
			FROM followers f
			JOIN users u ON u.user_id = f.follower_id
			WHERE f.followee_id = $1
			ORDER BY f.date_created DESC
			LIMIT $2 OFFSET $3
		`, profile, limit, offset)
}

func (s pg) ListFollowing(ctx context.Context, profile ident.ID, limit uint16, offset uint32) ([]*storage.Person, error) {
	return s.listFollowEdge(ctx, `
			SELECT u.user_id AS author_id, u.username, u.first_name, u.last_name, u.avatar_url
			FROM followers f
			JOIN users u ON u.user_id = f.followee_id
			WHERE f.follower_id = $1
			ORDER BY f.date_created DESC
			LIMIT $2 OFFSET $3
		`, profile, limit, offset)
}

func (s pg) listFollowEdge(ctx context.Context, query string, profile ident.ID, limit uint16, offset uint32) ([]*storage.Person, error) {
	var dto []*personDTO

	if err := sqlx.SelectContext(ctx, s.ext, &dto, query, profile, limit, offset); err != nil {
		return nil, fmt.Errorf("failed to query: %w", err)
	}

	out := make([]*storage.Person, len(dto))
	for i, v := range dto {
		p := v.toPerson()
		out[i] = &p
	}

	return out, nil
}

func (s pg) Like(ctx context.Context, post, user ident.ID) error {
	if _, err := s.ext.ExecContext(ctx,
		`
			INSERT INTO likes(post_id, user_id, date_created) VALUES($1, $2, $3)
		`, post, user, time.Now().UTC(),
	); err != nil {
		return translatePgError(err)
	}

	return nil
}

func (s pg) Unlike(ctx context.Context, post, user ident.ID) error {
	if _, err := s.ext.ExecContext(ctx,
		`
			DELETE FROM likes WHERE post_id=$1 AND user_id=$2
		`, post, user,
	); err != nil {
		return fmt.Errorf("failed to exec: %w", err)
	}

	return nil
}

func (s pg) SavePost(ctx context.Context, post, user ident.ID) error {
	if _, err := s.ext.ExecContext(ctx,
		`
			INSERT INTO saved_posts(post_id, user_id, saved_at) VALUES($1, $2, $3)
		`, post, user, time.Now().UTC(),
	); err != nil {
		return translatePgError(err)
	}

	return nil
}

func (s pg) UnsavePost(ctx context.Context, post, user ident.ID) error {
	if _, err := s.ext.ExecContext(ctx,
		`
			DELETE FROM saved_posts WHERE post_id=$1 AND user_id=$2
		`, post, user,
	); err != nil {
		return fmt.Errorf("failed to exec: %w", err)
	}

	return nil
}

func (s pg) GetPostStats(ctx context.Context, id ...ident.ID) (map[ident.ID]storage.Stats, error) {
	if len(id) == 0 {
		return map[ident.ID]storage.Stats{}, nil
	}

	query, args, err := sqlx.In(`
			SELECT p.post_id,
				(SELECT COUNT(*) FROM likes l WHERE l.post_id = p.post_id) AS likes,
				(SELECT COUNT(*) FROM comments c WHERE c.post_id = p.post_id) AS comments
			FROM posts p
			WHERE p.post_id IN (?)
		`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to construct IN clause: %w", err)
	}

	var dto []*struct {
		ID       ident.ID `db:"post_id"`
		Likes    uint32   `db:"likes"`
		Comments uint32   `db:"comments"`
	}

	if err := sqlx.SelectContext(ctx, s.ext, &dto, s.ext.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to query: %w", err)
	}

	out := make(map[ident.ID]storage.Stats, len(dto))
	for _, v := range dto {
		out[v.ID] = storage.Stats{Likes: v.Likes, Comments: v.Comments}
	}

	return out, nil
}

func (s pg) GetLikes(ctx context.Context, likedBy ident.ID, id ...ident.ID) (map[ident.ID]struct{}, error) {
	return s.getEdgeSet(ctx, `SELECT post_id FROM likes WHERE user_id = ? AND post_id IN (?)`, likedBy, id)
}

func (s pg) GetSaved(ctx context.Context, savedBy ident.ID, id ...ident.ID) (map[ident.ID]struct{}, error) {
	return s.getEdgeSet(ctx, `SELECT post_id FROM saved_posts WHERE user_id = ? AND post_id IN (?)`, savedBy, id)
}

func (s pg) GetFollowing(ctx context.Context, follower ident.ID, id ...ident.ID) (map[ident.ID]struct{}, error) {
	return s.getEdgeSet(ctx, `SELECT followee_id FROM followers WHERE follower_id = ? AND followee_id IN (?)`, follower, id)
}

// getEdgeSet returns the subset of id which is present in the edge set owned by owner.
func (s pg) getEdgeSet(ctx context.Context, query string, owner ident.ID, id []ident.ID) (map[ident.ID]struct{}, error) {
	if len(id) == 0 {
		return map[ident.ID]struct{}{}, nil
	}

	query, args, err := sqlx.In(query, owner, id)
	if err != nil {
		return nil, fmt.Errorf("failed to construct IN clause: %w", err)
	}

	var ids []ident.ID
	if err := sqlx.SelectContext(ctx, s.ext, &ids, s.ext.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to query: %w", err)
	}

	out := make(map[ident.ID]struct{}, len(ids))
	for _, v := range ids {
		out[v] = struct{}{}
	}

	return out, nil
}

func (s pg) GetGlobalStats(ctx context.Context) (*storage.GlobalStats, error) {
	var dto struct {
		Users    uint32 `db:"users"`
		Posts    uint32 `db:"posts"`
		Comments uint32 `db:"comments"`
		Likes    uint32 `db:"likes"`
	}

	if err := sqlx.GetContext(ctx, s.ext, &dto, `
			SELECT
				(SELECT COUNT(*) FROM users) AS users,
				(SELECT COUNT(*) FROM posts) AS posts,
				(SELECT COUNT(*) FROM comments) AS comments,
				(SELECT COUNT(*) FROM likes) AS likes
		`,
	); err != nil {
		return nil, fmt.Errorf("failed to query: %w", err)
	}

	return &storage.GlobalStats{
		Users:    dto.Users,
		Posts:    dto.Posts,
		Comments: dto.Comments,
		Likes:    dto.Likes,
	}, nil
}

// translatePgError maps constraint violations to storage sentinels so callers
// never see driver errors. Uniqueness is enforced at insert time, an
// application-level pre-check would race with a concurrent insert.
func translatePgError(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case uniqueViolation:
			return storage.ErrAlreadyExists
		case foreignKeyViolation:
			return storage.ErrNotFound
		}
	}

	return fmt.Errorf("failed to exec: %w", err)
}
