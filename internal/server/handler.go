package server

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi"

	"github.com/agora-net/agora/internal/ident"
	"github.com/agora-net/agora/internal/storage"
)

var errInvalidRequest = errors.New("invalid request")

func (s server) listPosts(w http.ResponseWriter, r *http.Request) {
	// swagger:operation GET /posts Feed ListPosts
	//
	// Return a page of the global feed, enriched for the viewer if one is bound.
	//
	// ---
	// parameters:
	// - name: page
	//   in: query
	//   required: false
	//   default: 1
	//   minimum: 1
	// responses:
	//   '200':
	//     schema:
	//       "$ref": "#/definitions/ListPostsResponse"

	s.servePostsPage(w, r, nil)
}

func (s server) listFeedPosts(w http.ResponseWriter, r *http.Request) {
	// swagger:operation GET /posts/feed Feed ListFeedPosts
	//
	// Return a page of posts authored by people the viewer follows.
	//
	// ---
	// security:
	// - bearer: []
	// responses:
	//   '200':
	//     schema:
	//       "$ref": "#/definitions/ListPostsResponse"

	s.servePostsPage(w, r, func(p *storage.ListPostsParams, viewer *ident.ID) {
		p.FollowedBy = viewer
	})
}

func (s server) listSavedPosts(w http.ResponseWriter, r *http.Request) {
	// swagger:operation GET /posts/saved Feed ListSavedPosts
	//
	// Return a page of posts the viewer has saved, most recently saved first.
	//
	// ---
	// security:
	// - bearer: []
	// responses:
	//   '200':
	//     schema:
	//       "$ref": "#/definitions/ListPostsResponse"

	s.servePostsPage(w, r, func(p *storage.ListPostsParams, viewer *ident.ID) {
		p.SavedBy = viewer
	})
}

func (s server) listProfilePosts(w http.ResponseWriter, r *http.Request) {
	// swagger:operation GET /profiles/{profileID}/posts Feed ListProfilePosts
	//
	// Return a page of posts authored by the given profile.
	//
	// ---
	// responses:
	//   '200':
	//     schema:
	//       "$ref": "#/definitions/ListPostsResponse"

	profile, err := ident.Parse(chi.URLParam(r, "profileID"))
	if err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "invalid profile id")
		return
	}

	s.servePostsPage(w, r, func(p *storage.ListPostsParams, _ *ident.ID) {
		p.Owner = &profile
	})
}

// servePostsPage is the single query path shared by every post feed. shape
// adjusts the list parameters for the concrete feed given the bound viewer.
func (s server) servePostsPage(w http.ResponseWriter, r *http.Request, shape func(p *storage.ListPostsParams, viewer *ident.ID)) {
	offset, err := pageOffsetFromQuery(r.URL.Query())
	if err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, err.Error())
		return
	}

	viewer := viewerID(r)

	params := storage.ListPostsParams{
		Limit:  pageSize + 1, // one extra row decides has_more exactly
		Offset: offset,
	}
	if shape != nil {
		shape(&params, viewer)
	}

	posts, err := s.s.ListPosts(r.Context(), &params)
	if err != nil {
		writeInternalError(r.Context(), w, "failed to list posts: "+err.Error())
		return
	}

	resp, err := s.newListPostsResponse(r.Context(), posts, viewer)
	if err != nil {
		writeInternalError(r.Context(), w, err.Error())
		return
	}

	writeOK(r.Context(), w, http.StatusOK, resp)
}

func (s server) getPost(w http.ResponseWriter, r *http.Request) {
	// swagger:operation GET /posts/{postID} Feed GetPost
	//
	// Get post by id.
	//
	// ---
	// responses:
	//   '200':
	//     schema:
	//       "$ref": "#/definitions/Post"
	//   '404':
	//     schema:
	//       "$ref": "#/definitions/Error"

	id, err := ident.Parse(chi.URLParam(r, "postID"))
	if err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "invalid post id")
		return
	}

	post, err := s.s.GetPost(r.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(r.Context(), w, http.StatusNotFound, "post not found")
			return
		}
		writeInternalError(r.Context(), w, "failed to get post: "+err.Error())
		return
	}

	out, err := s.assemblePosts(r.Context(), []*storage.Post{post}, viewerID(r))
	if err != nil {
		writeInternalError(r.Context(), w, err.Error())
		return
	}

	writeOK(r.Context(), w, http.StatusOK, out[0])
}

func (s server) listComments(w http.ResponseWriter, r *http.Request) {
	// swagger:operation GET /posts/{postID}/comments Feed ListComments
	//
	// Return a page of comments on a post, newest first. Comments carry no
	// viewer-relative enrichment.
	//
	// ---
	// responses:
	//   '200':
	//     schema:
	//       "$ref": "#/definitions/ListCommentsResponse"

	id, err := ident.Parse(chi.URLParam(r, "postID"))
	if err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "invalid post id")
		return
	}

	offset, err := pageOffsetFromQuery(r.URL.Query())
	if err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, err.Error())
		return
	}

	comments, err := s.s.ListComments(r.Context(), id, pageSize+1, offset)
	if err != nil {
		writeInternalError(r.Context(), w, "failed to list comments: "+err.Error())
		return
	}

	resp := ListCommentsResponse{Comments: []*Comment{}}
	if len(comments) > pageSize {
		resp.HasMore = true
		comments = comments[:pageSize]
	}

	for _, v := range comments {
		resp.Comments = append(resp.Comments, &Comment{
			ID:        v.ID,
			PostID:    v.PostID,
			Author:    toAPIPerson(v.Author),
			Content:   v.Content,
			CreatedAt: uint64(v.CreatedAt.Unix()),
		})
	}

	writeOK(r.Context(), w, http.StatusOK, resp)
}

func (s server) listFollowers(w http.ResponseWriter, r *http.Request) {
	// swagger:operation GET /profiles/{profileID}/followers Profiles ListFollowers
	//
	// Return a page of people following the given profile.
	//
	// ---
	// responses:
	//   '200':
	//     schema:
	//       "$ref": "#/definitions/ListPeopleResponse"

	s.servePeoplePage(w, r, s.s.ListFollowers)
}

func (s server) listFollowing(w http.ResponseWriter, r *http.Request) {
	// swagger:operation GET /profiles/{profileID}/following Profiles ListFollowing
	//
	// Return a page of people the given profile follows.
	//
	// ---
	// responses:
	//   '200':
	//     schema:
	//       "$ref": "#/definitions/ListPeopleResponse"

	s.servePeoplePage(w, r, s.s.ListFollowing)
}

func (s server) servePeoplePage(
	w http.ResponseWriter, r *http.Request,
	list func(ctx context.Context, profile ident.ID, limit uint16, offset uint32) ([]*storage.Person, error),
) {
	profile, err := ident.Parse(chi.URLParam(r, "profileID"))
	if err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "invalid profile id")
		return
	}

	offset, err := pageOffsetFromQuery(r.URL.Query())
	if err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, err.Error())
		return
	}

	people, err := list(r.Context(), profile, pageSize+1, offset)
	if err != nil {
		writeInternalError(r.Context(), w, "failed to list people: "+err.Error())
		return
	}

	resp := ListPeopleResponse{People: []*PersonItem{}}
	if len(people) > pageSize {
		resp.HasMore = true
		people = people[:pageSize]
	}

	var following map[ident.ID]struct{}
	if viewer := viewerID(r); viewer != nil {
		ids := make([]ident.ID, len(people))
		for i, v := range people {
			ids[i] = v.ID
		}

		if following, err = s.s.GetFollowing(r.Context(), *viewer, ids...); err != nil {
			writeInternalError(r.Context(), w, "failed to get following: "+err.Error())
			return
		}
	}

	for _, v := range people {
		item := &PersonItem{Person: toAPIPerson(*v)}
		if following != nil {
			item.IsFollowing = setFlag(following, v.ID)
		}
		resp.People = append(resp.People, item)
	}

	writeOK(r.Context(), w, http.StatusOK, resp)
}

func (s server) getProfile(w http.ResponseWriter, r *http.Request) {
	// swagger:operation GET /profiles/{profileID} Profiles GetProfile
	//
	// Get profile with aggregate counts by id.
	//
	// ---
	// responses:
	//   '200':
	//     schema:
	//       "$ref": "#/definitions/ProfileResponse"
	//   '404':
	//     schema:
	//       "$ref": "#/definitions/Error"

	id, err := ident.Parse(chi.URLParam(r, "profileID"))
	if err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "invalid profile id")
		return
	}

	profile, err := s.s.GetProfile(r.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(r.Context(), w, http.StatusNotFound, "profile not found")
			return
		}
		writeInternalError(r.Context(), w, "failed to get profile: "+err.Error())
		return
	}

	resp := ProfileResponse{
		Person:         toAPIPerson(profile.Person),
		BackgroundURL:  profile.BackgroundURL,
		CreatedAt:      uint64(profile.CreatedAt.Unix()),
		PostsCount:     profile.PostsCount,
		FollowerCount:  profile.FollowerCount,
		FollowingCount: profile.FollowingCount,
	}

	if viewer := viewerID(r); viewer != nil {
		following, err := s.s.GetFollowing(r.Context(), *viewer, id)
		if err != nil {
			writeInternalError(r.Context(), w, "failed to get following: "+err.Error())
			return
		}

		resp.IsFollowing = setFlag(following, id)
	}

	writeOK(r.Context(), w, http.StatusOK, resp)
}

func (s server) getStats(w http.ResponseWriter, r *http.Request) {
	// swagger:operation GET /stats Stats GetStats
	//
	// Returns global counters.
	//
	// ---
	// responses:
	//   '200':
	//     schema:
	//       "$ref": "#/definitions/StatsResponse"

	stats, err := s.s.GetGlobalStats(r.Context())
	if err != nil {
		writeInternalError(r.Context(), w, "failed to get global stats: "+err.Error())
		return
	}

	writeOK(r.Context(), w, http.StatusOK, StatsResponse{
		Users:    stats.Users,
		Posts:    stats.Posts,
		Comments: stats.Comments,
		Likes:    stats.Likes,
	})
}

// newListPostsResponse trims the extra has_more row and assembles enriched posts.
func (s server) newListPostsResponse(ctx context.Context, posts []*storage.Post, viewer *ident.ID) (*ListPostsResponse, error) {
	out := ListPostsResponse{Posts: []*Post{}}

	if len(posts) > pageSize {
		out.HasMore = true
		posts = posts[:pageSize]
	}

	pp, err := s.assemblePosts(ctx, posts, viewer)
	if err != nil {
		return nil, err
	}
	out.Posts = pp

	return &out, nil
}

// assemblePosts joins aggregate counts into every row and, only for a bound
// viewer, the per-row edge-set membership flags. Sub-reads are independent
// queries, they do not form a consistent snapshot under concurrent writes.
func (s server) assemblePosts(ctx context.Context, posts []*storage.Post, viewer *ident.ID) ([]*Post, error) {
	ids := make([]ident.ID, len(posts))
	for i, v := range posts {
		ids[i] = v.ID
	}

	stats, err := s.s.GetPostStats(ctx, ids...)
	if err != nil {
		return nil, fmt.Errorf("failed to get post stats: %w", err)
	}

	var liked, saved, following map[ident.ID]struct{}
	if viewer != nil {
		if liked, err = s.s.GetLikes(ctx, *viewer, ids...); err != nil {
			return nil, fmt.Errorf("failed to get likes: %w", err)
		}
		if saved, err = s.s.GetSaved(ctx, *viewer, ids...); err != nil {
			return nil, fmt.Errorf("failed to get saved: %w", err)
		}
		if following, err = s.s.GetFollowing(ctx, *viewer, extractAuthorIDs(posts)...); err != nil {
			return nil, fmt.Errorf("failed to get following: %w", err)
		}
	}

	out := make([]*Post, len(posts))
	for i, v := range posts {
		p := &Post{
			ID:           v.ID,
			Author:       toAPIPerson(v.Author),
			Content:      v.Content,
			MediaURL:     v.MediaURL,
			CreatedAt:    uint64(v.CreatedAt.Unix()),
			LikeCount:    stats[v.ID].Likes,
			CommentCount: stats[v.ID].Comments,
		}

		if viewer != nil {
			p.IsLiked = setFlag(liked, v.ID)
			p.IsSaved = setFlag(saved, v.ID)
			p.IsFollowingAuthor = setFlag(following, v.Author.ID)
		}

		out[i] = p
	}

	return out, nil
}

func toAPIPerson(p storage.Person) Person {
	return Person{
		ID:        p.ID,
		Username:  p.Username,
		FirstName: p.FirstName,
		LastName:  p.LastName,
		AvatarURL: p.AvatarURL,
	}
}

func extractAuthorIDs(posts []*storage.Post) []ident.ID {
	out := make([]ident.ID, 0, len(posts))
	m := make(map[ident.ID]struct{}, len(posts))

	for _, v := range posts {
		if _, ok := m[v.Author.ID]; !ok {
			out = append(out, v.Author.ID)
			m[v.Author.ID] = struct{}{}
		}
	}

	return out
}

func setFlag(set map[ident.ID]struct{}, id ident.ID) *bool {
	_, ok := set[id]
	return &ok
}

// pageOffsetFromQuery converts a 1-indexed page query parameter into an offset.
func pageOffsetFromQuery(q url.Values) (uint32, error) {
	s := q.Get("page")
	if s == "" {
		return 0, nil
	}

	page, err := strconv.ParseUint(s, 10, 32)
	if err != nil || page == 0 {
		return 0, fmt.Errorf("%w: invalid page", errInvalidRequest)
	}

	offset := (page - 1) * pageSize
	if offset > math.MaxUint32 {
		return 0, fmt.Errorf("%w: invalid page", errInvalidRequest)
	}

	return uint32(offset), nil
}
