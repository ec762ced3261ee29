package middleware

import (
	"context"
	"net/http"

	"github.com/metube/backend/internal/logging"
	"github.com/metube/backend/internal/models"
)

// SessionCookie is the name of the cookie carrying the opaque session token.
const SessionCookie = "metube_session"

type userCtxKey struct{}

// SessionResolver maps a cookie token to the user it was issued for.
type SessionResolver interface {
	ResolveUser(ctx context.Context, token string) (models.User, error)
}

// Session resolves the session cookie into the authoritative user record and
// stores it on the request context. The user is re-fetched on every request;
// no snapshot is cached in the session itself, so edits elsewhere are always
// visible. Requests without a valid session pass through anonymously.
func Session(resolver SessionResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(SessionCookie)
			if err != nil || cookie.Value == "" {
				next.ServeHTTP(w, r)
				return
			}

			user, err := resolver.ResolveUser(r.Context(), cookie.Value)
			if err != nil {
				logging.FromContext(r.Context()).Debug("session resolution failed", "error", err)
				next.ServeHTTP(w, r)
				return
			}

			ctx := WithUser(r.Context(), user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// WithUser stores the authenticated user on the context.
func WithUser(ctx context.Context, user models.User) context.Context {
	return context.WithValue(ctx, userCtxKey{}, user)
}

// UserFrom retrieves the authenticated user, if any.
func UserFrom(ctx context.Context) (models.User, bool) {
	user, ok := ctx.Value(userCtxKey{}).(models.User)
	return user, ok
}
