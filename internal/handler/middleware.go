package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/vasiliy-maslov/shophub/internal/user"
)

type contextKey string

const userContextKey contextKey = "user"

// Authenticator resolves a bearer token to a user. Implemented by
// user.Service.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*user.User, error)
}

// WithUser returns a context carrying the authenticated user. Exposed for
// handler tests.
func WithUser(ctx context.Context, u *user.User) context.Context {
	return context.WithValue(ctx, userContextKey, u)
}

func userFromContext(ctx context.Context) (*user.User, bool) {
	u, ok := ctx.Value(userContextKey).(*user.User)
	return u, ok
}

// RequireAuth rejects requests without a valid bearer token and stores the
// resolved user in the request context.
func RequireAuth(auth Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || token == "" {
				respondMessage(w, http.StatusUnauthorized, "Not authorized, no token")
				return
			}

			u, err := auth.Authenticate(r.Context(), token)
			if err != nil {
				respondMessage(w, http.StatusUnauthorized, "Not authorized, token failed")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), u)))
		})
	}
}

// RequireAdmin must run after RequireAuth.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, ok := userFromContext(r.Context())
		if !ok || !u.IsAdmin() {
			respondMessage(w, http.StatusForbidden, "Not authorized as admin")
			return
		}
		next.ServeHTTP(w, r)
	})
}
