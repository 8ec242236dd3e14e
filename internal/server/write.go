package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi"

	"github.com/agora-net/agora/internal/ident"
	"github.com/agora-net/agora/internal/storage"
)

func (s server) createPost(w http.ResponseWriter, r *http.Request) {
	// swagger:operation POST /posts Feed CreatePost
	//
	// Create a post authored by the viewer.
	//
	// ---
	// security:
	// - bearer: []
	// parameters:
	// - name: body
	//   in: body
	//   schema:
	//     "$ref": "#/definitions/CreatePostRequest"
	// responses:
	//   '201':
	//     schema:
	//       "$ref": "#/definitions/CreatedResponse"

	var req CreatePostRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "failed to decode body")
		return
	}

	if req.Content == "" || len(req.Content) > maxContentLength {
		writeInvalidInput(r.Context(), w, map[string]string{"content": "must be 1-500 characters"})
		return
	}

	id := ident.New()
	if err := s.s.CreatePost(r.Context(), &storage.CreatePostParams{
		ID:        id,
		AuthorID:  *viewerID(r),
		Content:   req.Content,
		MediaURL:  req.MediaURL,
		CreatedAt: time.Now(),
	}); err != nil {
		writeInternalError(r.Context(), w, "failed to create post: "+err.Error())
		return
	}

	writeOK(r.Context(), w, http.StatusCreated, CreatedResponse{ID: id})
}

func (s server) deletePost(w http.ResponseWriter, r *http.Request) {
	// swagger:operation DELETE /posts/{postID} Feed DeletePost
	//
	// Delete the viewer's own post.
	//
	// ---
	// security:
	// - bearer: []
	// responses:
	//   '200':
	//     description: deleted
	//   '404':
	//     schema:
	//       "$ref": "#/definitions/Error"

	id, err := ident.Parse(chi.URLParam(r, "postID"))
	if err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "invalid post id")
		return
	}

	if err := s.s.DeletePost(r.Context(), id, *viewerID(r)); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(r.Context(), w, http.StatusNotFound, "post not found")
			return
		}
		writeInternalError(r.Context(), w, "failed to delete post: "+err.Error())
		return
	}

	writeOK(r.Context(), w, http.StatusOK, struct{}{})
}

func (s server) createComment(w http.ResponseWriter, r *http.Request) {
	// swagger:operation POST /posts/{postID}/comments Feed CreateComment
	//
	// Comment on a post as the viewer.
	//
	// ---
	// security:
	// - bearer: []
	// parameters:
	// - name: body
	//   in: body
	//   schema:
	//     "$ref": "#/definitions/CreateCommentRequest"
	// responses:
	//   '201':
	//     schema:
	//       "$ref": "#/definitions/CreatedResponse"
	//   '404':
	//     schema:
	//       "$ref": "#/definitions/Error"

	postID, err := ident.Parse(chi.URLParam(r, "postID"))
	if err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "invalid post id")
		return
	}

	var req CreateCommentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "failed to decode body")
		return
	}

	if req.Content == "" || len(req.Content) > maxCommentLength {
		writeInvalidInput(r.Context(), w, map[string]string{"content": "must be 1-300 characters"})
		return
	}

	id := ident.New()
	if err := s.s.CreateComment(r.Context(), &storage.CreateCommentParams{
		ID:        id,
		PostID:    postID,
		AuthorID:  *viewerID(r),
		Content:   req.Content,
		CreatedAt: time.Now(),
	}); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(r.Context(), w, http.StatusNotFound, "post not found")
			return
		}
		writeInternalError(r.Context(), w, "failed to create comment: "+err.Error())
		return
	}

	writeOK(r.Context(), w, http.StatusCreated, CreatedResponse{ID: id})
}

func (s server) deleteComment(w http.ResponseWriter, r *http.Request) {
	// swagger:operation DELETE /comments/{commentID} Feed DeleteComment
	//
	// Delete the viewer's own comment.
	//
	// ---
	// security:
	// - bearer: []
	// responses:
	//   '200':
	//     description: deleted
	//   '404':
	//     schema:
	//       "$ref": "#/definitions/Error"

	id, err := ident.Parse(chi.URLParam(r, "commentID"))
	if err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "invalid comment id")
		return
	}

	if err := s.s.DeleteComment(r.Context(), id, *viewerID(r)); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(r.Context(), w, http.StatusNotFound, "comment not found")
			return
		}
		writeInternalError(r.Context(), w, "failed to delete comment: "+err.Error())
		return
	}

	writeOK(r.Context(), w, http.StatusOK, struct{}{})
}

func (s server) likePost(w http.ResponseWriter, r *http.Request) {
	// swagger:operation POST /posts/{postID}/like Edges LikePost
	//
	// Like a post. Replies 409 if the viewer already likes it.
	//
	// ---
	// security:
	// - bearer: []

	s.addPostEdge(w, r, s.s.Like)
}

func (s server) unlikePost(w http.ResponseWriter, r *http.Request) {
	// swagger:operation DELETE /posts/{postID}/like Edges UnlikePost
	//
	// Remove a like. Removing an absent like is not an error.
	//
	// ---
	// security:
	// - bearer: []

	s.removePostEdge(w, r, s.s.Unlike)
}

func (s server) savePost(w http.ResponseWriter, r *http.Request) {
	// swagger:operation POST /posts/{postID}/save Edges SavePost
	//
	// Save a post for the viewer. Replies 409 if already saved.
	//
	// ---
	// security:
	// - bearer: []

	s.addPostEdge(w, r, s.s.SavePost)
}

func (s server) unsavePost(w http.ResponseWriter, r *http.Request) {
	// swagger:operation DELETE /posts/{postID}/save Edges UnsavePost
	//
	// Remove a saved post. Removing an absent save is not an error.
	//
	// ---
	// security:
	// - bearer: []

	s.removePostEdge(w, r, s.s.UnsavePost)
}

type edgeOp func(ctx context.Context, post, user ident.ID) error

func (s server) addPostEdge(w http.ResponseWriter, r *http.Request, add edgeOp) {
	id, err := ident.Parse(chi.URLParam(r, "postID"))
	if err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "invalid post id")
		return
	}

	if err := add(r.Context(), id, *viewerID(r)); err != nil {
		switch {
		case errors.Is(err, storage.ErrAlreadyExists):
			writeError(r.Context(), w, http.StatusConflict, "already exists")
		case errors.Is(err, storage.ErrNotFound):
			writeError(r.Context(), w, http.StatusNotFound, "post not found")
		default:
			writeInternalError(r.Context(), w, "failed to add edge: "+err.Error())
		}
		return
	}

	writeOK(r.Context(), w, http.StatusCreated, struct{}{})
}

func (s server) removePostEdge(w http.ResponseWriter, r *http.Request, remove edgeOp) {
	id, err := ident.Parse(chi.URLParam(r, "postID"))
	if err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "invalid post id")
		return
	}

	if err := remove(r.Context(), id, *viewerID(r)); err != nil {
		writeInternalError(r.Context(), w, "failed to remove edge: "+err.Error())
		return
	}

	writeOK(r.Context(), w, http.StatusOK, struct{}{})
}

func (s server) follow(w http.ResponseWriter, r *http.Request) {
	// swagger:operation POST /profiles/{profileID}/follow Edges Follow
	//
	// Follow a profile. Replies 409 if already following.
	//
	// ---
	// security:
	// - bearer: []

	followee, err := ident.Parse(chi.URLParam(r, "profileID"))
	if err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "invalid profile id")
		return
	}

	viewer := *viewerID(r)
	if viewer == followee {
		writeError(r.Context(), w, http.StatusBadRequest, "can not follow yourself")
		return
	}

	if err := s.s.Follow(r.Context(), viewer, followee); err != nil {
		switch {
		case errors.Is(err, storage.ErrAlreadyExists):
			writeError(r.Context(), w, http.StatusConflict, "already following")
		case errors.Is(err, storage.ErrNotFound):
			writeError(r.Context(), w, http.StatusNotFound, "profile not found")
		default:
			writeInternalError(r.Context(), w, "failed to follow: "+err.Error())
		}
		return
	}

	writeOK(r.Context(), w, http.StatusCreated, struct{}{})
}

func (s server) unfollow(w http.ResponseWriter, r *http.Request) {
	// swagger:operation DELETE /profiles/{profileID}/follow Edges Unfollow
	//
	// Unfollow a profile. Removing an absent follow is not an error.
	//
	// ---
	// security:
	// - bearer: []

	followee, err := ident.Parse(chi.URLParam(r, "profileID"))
	if err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "invalid profile id")
		return
	}

	if err := s.s.Unfollow(r.Context(), *viewerID(r), followee); err != nil {
		writeInternalError(r.Context(), w, "failed to unfollow: "+err.Error())
		return
	}

	writeOK(r.Context(), w, http.StatusOK, struct{}{})
}
