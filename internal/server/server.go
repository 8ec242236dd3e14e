// Package server Agora
//
// The Agora is a social-networking backend which provides access to accounts,
// posts, comments and the social graph (likes, saves, follows)
//
//     Schemes: https
//     BasePath: /v1
//     Version: 1.0.0
//
//     Produces:
//     - application/json
//     Consumes:
//     - application/json
//
// swagger:meta
package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/cors"
	"github.com/tomasen/realip"

	mm "github.com/agora-net/agora/internal/middleware"
	"github.com/agora-net/agora/internal/storage"
	"github.com/agora-net/agora/internal/token"
)

//go:generate swagger generate spec -t swagger -m -c . -o ../../static/swagger.json

const maxBodySize = 4 * 1024

type server struct {
	s storage.Storage
	t *token.Issuer
}

// SetupRouter setups handlers to chi router.
func SetupRouter(s storage.Storage, t *token.Issuer, r chi.Router, timeout time.Duration) {
	r.Use(
		middleware.StripSlashes,
		cors.AllowAll().Handler,
		middleware.RequestID,
		loggerMiddleware,
		middleware.Recoverer,
		middleware.Timeout(timeout),
		bodyLimiterMiddleware(maxBodySize),
	)

	srv := server{
		s: s,
		t: t,
	}

	r.Route("/v1", func(r chi.Router) {
		r.Post("/signup", srv.signUp)
		r.Post("/login", srv.logIn)

		r.Get("/stats", mm.Cached(10*time.Minute, srv.getStats))

		r.Group(func(r chi.Router) {
			r.Use(srv.authOptional)

			r.Get("/posts", srv.listPosts)
			r.Get("/posts/{postID}", srv.getPost)
			r.Get("/posts/{postID}/comments", srv.listComments)
			r.Get("/profiles/{profileID}", srv.getProfile)
			r.Get("/profiles/{profileID}/posts", srv.listProfilePosts)
			r.Get("/profiles/{profileID}/followers", srv.listFollowers)
			r.Get("/profiles/{profileID}/following", srv.listFollowing)
		})

		r.Group(func(r chi.Router) {
			r.Use(srv.authRequired)

			r.Get("/posts/feed", srv.listFeedPosts)
			r.Get("/posts/saved", srv.listSavedPosts)

			r.Post("/posts", srv.createPost)
			r.Delete("/posts/{postID}", srv.deletePost)
			r.Post("/posts/{postID}/comments", srv.createComment)
			r.Delete("/comments/{commentID}", srv.deleteComment)

			r.Post("/posts/{postID}/like", srv.likePost)
			r.Delete("/posts/{postID}/like", srv.unlikePost)
			r.Post("/posts/{postID}/save", srv.savePost)
			r.Delete("/posts/{postID}/save", srv.unsavePost)
			r.Post("/profiles/{profileID}/follow", srv.follow)
			r.Delete("/profiles/{profileID}/follow", srv.unfollow)
		})
	})
}

func loggerMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		log.WithField("request_id", middleware.GetReqID(r.Context())).
			WithField("ip", realip.FromRequest(r)).
			WithField("method", r.Method).
			WithField("path", r.URL.Path).
			WithField("status", ww.Status()).
			WithField("elapsed", time.Since(start)).
			Debug("request handled")
	})
}

func bodyLimiterMiddleware(n int64) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r.Body = http.MaxBytesReader(w, r.Body, n)
			next.ServeHTTP(w, r)
		})
	}
}
