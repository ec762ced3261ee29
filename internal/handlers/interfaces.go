package handlers

import (
	"context"
	"io"

	"github.com/metube/backend/internal/auth"
	"github.com/metube/backend/internal/models"
)

// UserStore captures the persistence operations required by the user handlers.
type UserStore interface {
	Create(ctx context.Context, user models.User) error
	FindByID(ctx context.Context, id string) (models.User, error)
	FindByEmail(ctx context.Context, email string) (models.User, error)
	FindByUsername(ctx context.Context, username string) (models.User, error)
	FindLocalByUsername(ctx context.Context, username string) (models.User, error)
	ExistsByUsernameOrEmail(ctx context.Context, username, email string) (bool, error)
	Update(ctx context.Context, user models.User) error
}

// VideoStore captures persistence for video pages and the machine-facing API.
type VideoStore interface {
	Create(ctx context.Context, video models.Video) error
	FindByID(ctx context.Context, id string) (models.Video, error)
	Update(ctx context.Context, video models.Video) error
	Delete(ctx context.Context, id string) error
	ListRecent(ctx context.Context) ([]models.Video, error)
	ListByOwner(ctx context.Context, ownerID string) ([]models.Video, error)
	SearchByTitleSuffix(ctx context.Context, keyword string) ([]models.Video, error)
	IncrementViews(ctx context.Context, id string) error
}

// CommentStore captures persistence for comments.
type CommentStore interface {
	Create(ctx context.Context, comment models.Comment) error
	FindByID(ctx context.Context, id string) (models.Comment, error)
	ListForVideo(ctx context.Context, videoID string) ([]models.Comment, error)
	Delete(ctx context.Context, id string) error
}

// SessionManager issues and revokes cookie session tokens.
type SessionManager interface {
	Issue(ctx context.Context, userID string) (auth.Session, error)
	Revoke(ctx context.Context, token string)
}

// OAuthProvider resolves a third-party identity from an authorization code.
type OAuthProvider interface {
	AuthCodeURL(state string) string
	Identity(ctx context.Context, code string) (auth.Identity, error)
}

// UploadStore persists an uploaded file and returns the reference to record.
type UploadStore interface {
	Save(ctx context.Context, name string, r io.Reader) (string, error)
}
