package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi"
	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agora-net/agora/internal/ident"
	"github.com/agora-net/agora/internal/storage"
	"github.com/agora-net/agora/internal/storage/mock"
)

var (
	postID    = mustParse("11111111-1111-1111-1111-111111111111")
	postID2   = mustParse("22222222-2222-2222-2222-222222222222")
	authorID  = mustParse("aaaaaaaa-aaaa-aaaa-aaaa-aaaaaaaaaaaa")
	authorID2 = mustParse("bbbbbbbb-bbbb-bbbb-bbbb-bbbbbbbbbbbb")
	viewer    = mustParse("cccccccc-cccc-cccc-cccc-cccccccccccc")
)

func mustParse(s string) ident.ID {
	id, err := ident.Parse(s)
	if err != nil {
		panic(err)
	}
	return id
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v))
}

func newTestPost(id, author ident.ID) *storage.Post {
	return &storage.Post{
		ID: id,
		Author: storage.Person{
			ID:        author,
			Username:  "u_" + author.String()[:4],
			FirstName: "f",
			LastName:  "l",
		},
		Content:   "content of " + id.String()[:4],
		CreatedAt: time.Unix(100, 0),
	}
}

func Test_listPosts_anonymous(t *testing.T) {
	r, err := http.NewRequest(http.MethodGet, "/v1/posts", nil)
	require.NoError(t, err)

	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	s := mock.NewMockStorage(ctrl)

	s.EXPECT().ListPosts(gomock.Any(), &storage.ListPostsParams{
		Limit: pageSize + 1,
	}).Return([]*storage.Post{newTestPost(postID, authorID)}, nil)

	s.EXPECT().GetPostStats(gomock.Any(), postID).Return(map[ident.ID]storage.Stats{
		postID: {Likes: 3, Comments: 1},
	}, nil)

	router := chi.NewRouter()
	srv := server{s: s}
	router.Get("/v1/posts", srv.listPosts)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, fmt.Sprintf(`
{
	"posts": [
		{
			"id": "%s",
			"author": {
				"id": "%s",
				"username": "u_aaaa",
				"first_name": "f",
				"last_name": "l"
			},
			"content": "content of 1111",
			"created_at": 100,
			"like_count": 3,
			"comment_count": 1
		}
	],
	"has_more": false
}`, postID, authorID), w.Body.String())
}

func Test_listPosts_viewer(t *testing.T) {
	r, err := http.NewRequest(http.MethodGet, "/v1/posts", nil)
	require.NoError(t, err)
	r = r.WithContext(withViewer(r.Context(), viewer))

	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	s := mock.NewMockStorage(ctrl)

	s.EXPECT().ListPosts(gomock.Any(), gomock.Any()).
		Return([]*storage.Post{newTestPost(postID, authorID), newTestPost(postID2, authorID2)}, nil)

	s.EXPECT().GetPostStats(gomock.Any(), postID, postID2).Return(map[ident.ID]storage.Stats{
		postID:  {Likes: 1},
		postID2: {Comments: 2},
	}, nil)

	s.EXPECT().GetLikes(gomock.Any(), viewer, postID, postID2).
		Return(map[ident.ID]struct{}{postID: {}}, nil)
	s.EXPECT().GetSaved(gomock.Any(), viewer, postID, postID2).
		Return(map[ident.ID]struct{}{postID2: {}}, nil)
	s.EXPECT().GetFollowing(gomock.Any(), viewer, authorID, authorID2).
		Return(map[ident.ID]struct{}{authorID: {}}, nil)

	router := chi.NewRouter()
	srv := server{s: s}
	router.Get("/v1/posts", srv.listPosts)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, fmt.Sprintf(`
{
	"posts": [
		{
			"id": "%s",
			"author": {
				"id": "%s",
				"username": "u_aaaa",
				"first_name": "f",
				"last_name": "l"
			},
			"content": "content of 1111",
			"created_at": 100,
			"like_count": 1,
			"comment_count": 0,
			"is_liked": true,
			"is_saved": false,
			"is_following_author": true
		},
		{
			"id": "%s",
			"author": {
				"id": "%s",
				"username": "u_bbbb",
				"first_name": "f",
				"last_name": "l"
			},
			"content": "content of 2222",
			"created_at": 100,
			"like_count": 0,
			"comment_count": 2,
			"is_liked": false,
			"is_saved": true,
			"is_following_author": false
		}
	],
	"has_more": false
}`, postID, authorID, postID2, authorID2), w.Body.String())
}

func Test_listPosts_pagination(t *testing.T) {
	r, err := http.NewRequest(http.MethodGet, "/v1/posts?page=3", nil)
	require.NoError(t, err)

	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	s := mock.NewMockStorage(ctrl)

	// pageSize+1 rows come back, the extra one only sets has_more
	posts := make([]*storage.Post, 0, pageSize+1)
	ids := make([]interface{}, 0, pageSize)
	for i := 0; i < pageSize+1; i++ {
		p := newTestPost(ident.New(), authorID)
		posts = append(posts, p)
		if i < pageSize {
			ids = append(ids, p.ID)
		}
	}

	s.EXPECT().ListPosts(gomock.Any(), &storage.ListPostsParams{
		Limit:  pageSize + 1,
		Offset: 2 * pageSize,
	}).Return(posts, nil)

	s.EXPECT().GetPostStats(gomock.Any(), ids...).Return(map[ident.ID]storage.Stats{}, nil)

	router := chi.NewRouter()
	srv := server{s: s}
	router.Get("/v1/posts", srv.listPosts)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)

	require.Equal(t, http.StatusOK, w.Code)

	var resp ListPostsResponse
	decodeBody(t, w, &resp)

	assert.True(t, resp.HasMore)
	assert.Len(t, resp.Posts, pageSize)
}

func Test_listPosts_lastFullPage(t *testing.T) {
	r, err := http.NewRequest(http.MethodGet, "/v1/posts", nil)
	require.NoError(t, err)

	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	s := mock.NewMockStorage(ctrl)

	// exactly pageSize rows: a full page, but nothing behind it
	posts := make([]*storage.Post, 0, pageSize)
	ids := make([]interface{}, 0, pageSize)
	for i := 0; i < pageSize; i++ {
		p := newTestPost(ident.New(), authorID)
		posts = append(posts, p)
		ids = append(ids, p.ID)
	}

	s.EXPECT().ListPosts(gomock.Any(), &storage.ListPostsParams{
		Limit: pageSize + 1,
	}).Return(posts, nil)

	s.EXPECT().GetPostStats(gomock.Any(), ids...).Return(map[ident.ID]storage.Stats{}, nil)

	router := chi.NewRouter()
	srv := server{s: s}
	router.Get("/v1/posts", srv.listPosts)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)

	require.Equal(t, http.StatusOK, w.Code)

	var resp ListPostsResponse
	decodeBody(t, w, &resp)

	assert.False(t, resp.HasMore)
	assert.Len(t, resp.Posts, pageSize)
}

func Test_listPosts_emptyPage(t *testing.T) {
	r, err := http.NewRequest(http.MethodGet, "/v1/posts?page=2", nil)
	require.NoError(t, err)

	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	s := mock.NewMockStorage(ctrl)

	s.EXPECT().ListPosts(gomock.Any(), &storage.ListPostsParams{
		Limit:  pageSize + 1,
		Offset: pageSize,
	}).Return([]*storage.Post{}, nil)

	s.EXPECT().GetPostStats(gomock.Any()).Return(map[ident.ID]storage.Stats{}, nil)

	router := chi.NewRouter()
	srv := server{s: s}
	router.Get("/v1/posts", srv.listPosts)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"posts":[],"has_more":false}`, w.Body.String())
}

func Test_listPosts_invalidPage(t *testing.T) {
	for _, q := range []string{"page=0", "page=nan", "page=-1", "page=4294967295"} {
		r, err := http.NewRequest(http.MethodGet, "/v1/posts?"+q, nil)
		require.NoError(t, err)

		ctrl := gomock.NewController(t)
		s := mock.NewMockStorage(ctrl)

		router := chi.NewRouter()
		srv := server{s: s}
		router.Get("/v1/posts", srv.listPosts)

		w := httptest.NewRecorder()
		router.ServeHTTP(w, r)

		assert.Equal(t, http.StatusBadRequest, w.Code, q)
		ctrl.Finish()
	}
}

func Test_listFeedPosts(t *testing.T) {
	r, err := http.NewRequest(http.MethodGet, "/v1/posts/feed", nil)
	require.NoError(t, err)
	r = r.WithContext(withViewer(r.Context(), viewer))

	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	s := mock.NewMockStorage(ctrl)

	s.EXPECT().ListPosts(gomock.Any(), &storage.ListPostsParams{
		FollowedBy: &viewer,
		Limit:      pageSize + 1,
	}).Return([]*storage.Post{}, nil)

	s.EXPECT().GetPostStats(gomock.Any()).Return(map[ident.ID]storage.Stats{}, nil)
	s.EXPECT().GetLikes(gomock.Any(), viewer).Return(map[ident.ID]struct{}{}, nil)
	s.EXPECT().GetSaved(gomock.Any(), viewer).Return(map[ident.ID]struct{}{}, nil)
	s.EXPECT().GetFollowing(gomock.Any(), viewer).Return(map[ident.ID]struct{}{}, nil)

	router := chi.NewRouter()
	srv := server{s: s}
	router.Get("/v1/posts/feed", srv.listFeedPosts)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"posts":[],"has_more":false}`, w.Body.String())
}

func Test_listSavedPosts(t *testing.T) {
	r, err := http.NewRequest(http.MethodGet, "/v1/posts/saved", nil)
	require.NoError(t, err)
	r = r.WithContext(withViewer(r.Context(), viewer))

	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	s := mock.NewMockStorage(ctrl)

	s.EXPECT().ListPosts(gomock.Any(), &storage.ListPostsParams{
		SavedBy: &viewer,
		Limit:   pageSize + 1,
	}).Return([]*storage.Post{}, nil)

	s.EXPECT().GetPostStats(gomock.Any()).Return(map[ident.ID]storage.Stats{}, nil)
	s.EXPECT().GetLikes(gomock.Any(), viewer).Return(map[ident.ID]struct{}{}, nil)
	s.EXPECT().GetSaved(gomock.Any(), viewer).Return(map[ident.ID]struct{}{}, nil)
	s.EXPECT().GetFollowing(gomock.Any(), viewer).Return(map[ident.ID]struct{}{}, nil)

	router := chi.NewRouter()
	srv := server{s: s}
	router.Get("/v1/posts/saved", srv.listSavedPosts)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)

	assert.Equal(t, http.StatusOK, w.Code)
}

func Test_listProfilePosts(t *testing.T) {
	r, err := http.NewRequest(http.MethodGet, fmt.Sprintf("/v1/profiles/%s/posts", authorID), nil)
	require.NoError(t, err)

	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	s := mock.NewMockStorage(ctrl)

	s.EXPECT().ListPosts(gomock.Any(), &storage.ListPostsParams{
		Owner: &authorID,
		Limit: pageSize + 1,
	}).Return([]*storage.Post{}, nil)

	s.EXPECT().GetPostStats(gomock.Any()).Return(map[ident.ID]storage.Stats{}, nil)

	router := chi.NewRouter()
	srv := server{s: s}
	router.Get("/v1/profiles/{profileID}/posts", srv.listProfilePosts)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)

	assert.Equal(t, http.StatusOK, w.Code)
}

func Test_getPost(t *testing.T) {
	r, err := http.NewRequest(http.MethodGet, fmt.Sprintf("/v1/posts/%s", postID), nil)
	require.NoError(t, err)

	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	s := mock.NewMockStorage(ctrl)

	s.EXPECT().GetPost(gomock.Any(), postID).Return(newTestPost(postID, authorID), nil)
	s.EXPECT().GetPostStats(gomock.Any(), postID).Return(map[ident.ID]storage.Stats{
		postID: {Likes: 5, Comments: 2},
	}, nil)

	router := chi.NewRouter()
	srv := server{s: s}
	router.Get("/v1/posts/{postID}", srv.getPost)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, fmt.Sprintf(`
{
	"id": "%s",
	"author": {
		"id": "%s",
		"username": "u_aaaa",
		"first_name": "f",
		"last_name": "l"
	},
	"content": "content of 1111",
	"created_at": 100,
	"like_count": 5,
	"comment_count": 2
}`, postID, authorID), w.Body.String())
}

func Test_getPost_notFound(t *testing.T) {
	r, err := http.NewRequest(http.MethodGet, fmt.Sprintf("/v1/posts/%s", postID), nil)
	require.NoError(t, err)

	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	s := mock.NewMockStorage(ctrl)

	s.EXPECT().GetPost(gomock.Any(), postID).Return(nil, storage.ErrNotFound)

	router := chi.NewRouter()
	srv := server{s: s}
	router.Get("/v1/posts/{postID}", srv.getPost)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"error":"post not found"}`, w.Body.String())
}

func Test_listComments(t *testing.T) {
	r, err := http.NewRequest(http.MethodGet, fmt.Sprintf("/v1/posts/%s/comments", postID), nil)
	require.NoError(t, err)

	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	s := mock.NewMockStorage(ctrl)

	commentID := mustParse("dddddddd-dddd-dddd-dddd-dddddddddddd")

	s.EXPECT().ListComments(gomock.Any(), postID, uint16(pageSize+1), uint32(0)).
		Return([]*storage.Comment{
			{
				ID:     commentID,
				PostID: postID,
				Author: storage.Person{
					ID:        authorID,
					Username:  "u_aaaa",
					FirstName: "f",
					LastName:  "l",
				},
				Content:   "nice",
				CreatedAt: time.Unix(200, 0),
			},
		}, nil)

	router := chi.NewRouter()
	srv := server{s: s}
	router.Get("/v1/posts/{postID}/comments", srv.listComments)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, fmt.Sprintf(`
{
	"comments": [
		{
			"id": "%s",
			"post_id": "%s",
			"author": {
				"id": "%s",
				"username": "u_aaaa",
				"first_name": "f",
				"last_name": "l"
			},
			"content": "nice",
			"created_at": 200
		}
	],
	"has_more": false
}`, commentID, postID, authorID), w.Body.String())
}

func Test_listFollowers(t *testing.T) {
	r, err := http.NewRequest(http.MethodGet, fmt.Sprintf("/v1/profiles/%s/followers", authorID), nil)
	require.NoError(t, err)
	r = r.WithContext(withViewer(r.Context(), viewer))

	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	s := mock.NewMockStorage(ctrl)

	s.EXPECT().ListFollowers(gomock.Any(), authorID, uint16(pageSize+1), uint32(0)).
		Return([]*storage.Person{
			{ID: authorID2, Username: "u_bbbb", FirstName: "f", LastName: "l"},
		}, nil)

	s.EXPECT().GetFollowing(gomock.Any(), viewer, authorID2).
		Return(map[ident.ID]struct{}{authorID2: {}}, nil)

	router := chi.NewRouter()
	srv := server{s: s}
	router.Get("/v1/profiles/{profileID}/followers", srv.listFollowers)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, fmt.Sprintf(`
{
	"people": [
		{
			"id": "%s",
			"username": "u_bbbb",
			"first_name": "f",
			"last_name": "l",
			"is_following": true
		}
	],
	"has_more": false
}`, authorID2), w.Body.String())
}

func Test_listFollowing_anonymous(t *testing.T) {
	r, err := http.NewRequest(http.MethodGet, fmt.Sprintf("/v1/profiles/%s/following", authorID), nil)
	require.NoError(t, err)

	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	s := mock.NewMockStorage(ctrl)

	s.EXPECT().ListFollowing(gomock.Any(), authorID, uint16(pageSize+1), uint32(0)).
		Return([]*storage.Person{
			{ID: authorID2, Username: "u_bbbb", FirstName: "f", LastName: "l"},
		}, nil)

	router := chi.NewRouter()
	srv := server{s: s}
	router.Get("/v1/profiles/{profileID}/following", srv.listFollowing)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)

	assert.Equal(t, http.StatusOK, w.Code)
	// no is_following flag for an anonymous viewer
	assert.JSONEq(t, fmt.Sprintf(`
{
	"people": [
		{
			"id": "%s",
			"username": "u_bbbb",
			"first_name": "f",
			"last_name": "l"
		}
	],
	"has_more": false
}`, authorID2), w.Body.String())
}

func Test_getProfile(t *testing.T) {
	r, err := http.NewRequest(http.MethodGet, fmt.Sprintf("/v1/profiles/%s", authorID), nil)
	require.NoError(t, err)
	r = r.WithContext(withViewer(r.Context(), viewer))

	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	s := mock.NewMockStorage(ctrl)

	s.EXPECT().GetProfile(gomock.Any(), authorID).Return(&storage.Profile{
		Person: storage.Person{
			ID:        authorID,
			Username:  "u_aaaa",
			FirstName: "f",
			LastName:  "l",
		},
		CreatedAt:      time.Unix(300, 0),
		PostsCount:     4,
		FollowerCount:  2,
		FollowingCount: 7,
	}, nil)

	s.EXPECT().GetFollowing(gomock.Any(), viewer, authorID).
		Return(map[ident.ID]struct{}{}, nil)

	router := chi.NewRouter()
	srv := server{s: s}
	router.Get("/v1/profiles/{profileID}", srv.getProfile)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, fmt.Sprintf(`
{
	"id": "%s",
	"username": "u_aaaa",
	"first_name": "f",
	"last_name": "l",
	"created_at": 300,
	"posts_count": 4,
	"follower_count": 2,
	"following_count": 7,
	"is_following": false
}`, authorID), w.Body.String())
}

func Test_getProfile_notFound(t *testing.T) {
	r, err := http.NewRequest(http.MethodGet, fmt.Sprintf("/v1/profiles/%s", authorID), nil)
	require.NoError(t, err)

	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	s := mock.NewMockStorage(ctrl)

	s.EXPECT().GetProfile(gomock.Any(), authorID).Return(nil, storage.ErrNotFound)

	router := chi.NewRouter()
	srv := server{s: s}
	router.Get("/v1/profiles/{profileID}", srv.getProfile)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func Test_getStats(t *testing.T) {
	r, err := http.NewRequest(http.MethodGet, "/v1/stats", nil)
	require.NoError(t, err)

	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	s := mock.NewMockStorage(ctrl)

	s.EXPECT().GetGlobalStats(gomock.Any()).Return(&storage.GlobalStats{
		Users:    1,
		Posts:    2,
		Comments: 3,
		Likes:    4,
	}, nil)

	router := chi.NewRouter()
	srv := server{s: s}
	router.Get("/v1/stats", srv.getStats)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"users":1,"posts":2,"comments":3,"likes":4}`, w.Body.String())
}
