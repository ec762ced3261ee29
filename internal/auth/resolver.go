package auth

import (
	"context"

	"github.com/metube/backend/internal/models"
)

// UserSource looks up the authoritative user record for a session.
type UserSource interface {
	FindByID(ctx context.Context, id string) (models.User, error)
}

// UserResolver turns a session token into the current user record. It always
// reads the store, so edits made elsewhere are visible on the next request.
type UserResolver struct {
	Sessions *Manager
	Users    UserSource
}

// ResolveUser maps a cookie token to the user it was issued for.
func (r UserResolver) ResolveUser(ctx context.Context, token string) (models.User, error) {
	session, err := r.Sessions.Resolve(ctx, token)
	if err != nil {
		return models.User{}, err
	}
	return r.Users.FindByID(ctx, session.UserID)
}
