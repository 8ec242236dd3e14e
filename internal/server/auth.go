package server

import (
	"context"
	"net/http"
	"strings"

	"github.com/agora-net/agora/internal/ident"
)

type viewerCtxKey struct{}

// withViewer binds a concrete viewer identity to the request context.
func withViewer(ctx context.Context, id ident.ID) context.Context {
	return context.WithValue(ctx, viewerCtxKey{}, id)
}

// viewerID returns the viewer bound to the request, nil means anonymous.
func viewerID(r *http.Request) *ident.ID {
	if id, ok := r.Context().Value(viewerCtxKey{}).(ident.ID); ok {
		return &id
	}

	return nil
}

// bearerToken extracts a raw credential from the Authorization header or,
// failing that, from the token cookie.
func bearerToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		return strings.TrimPrefix(h, "Bearer ")
	}

	if c, err := r.Cookie("token"); err == nil {
		return c.Value
	}

	return ""
}

// authRequired rejects requests without a valid credential. Mutating
// endpoints never proceed without a concrete actor.
func (s server) authRequired(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := bearerToken(r)
		if raw == "" {
			writeError(r.Context(), w, http.StatusUnauthorized, "credentials required")
			return
		}

		claims, err := s.t.Verify(raw)
		if err != nil {
			writeError(r.Context(), w, http.StatusUnauthorized, "failed to authenticate")
			return
		}

		next.ServeHTTP(w, r.WithContext(withViewer(r.Context(), claims.ID)))
	})
}

// authOptional serves logged-out browsing: an absent credential binds the
// anonymous viewer, a present but invalid one is still rejected rather than
// silently downgraded.
func (s server) authOptional(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := bearerToken(r)
		if raw == "" {
			next.ServeHTTP(w, r)
			return
		}

		claims, err := s.t.Verify(raw)
		if err != nil {
			writeError(r.Context(), w, http.StatusUnauthorized, "failed to authenticate")
			return
		}

		next.ServeHTTP(w, r.WithContext(withViewer(r.Context(), claims.ID)))
	})
}
