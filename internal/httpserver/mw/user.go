package mw

import (
	"context"
	"net/http"
	"strings"
)

// UserHeader carries the authenticated user. Authentication itself happens upstream.
const UserHeader = "X-User-ID"

type userKey struct{}

// RequireUser rejects requests without a user header and stores the user in the context.
func RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID := strings.TrimSpace(r.Header.Get(UserHeader))
		if userID == "" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":"authentication required"}` + "\n"))
			return
		}
		next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), userID)))
	})
}

// WithUser returns a context carrying userID.
func WithUser(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userKey{}, userID)
}

// UserID returns the user stored by RequireUser, or "".
func UserID(ctx context.Context) string {
	v, _ := ctx.Value(userKey{}).(string)
	return v
}

// UserKey keys rate limits by user, falling back to the client IP.
func UserKey(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get(UserHeader))
}
