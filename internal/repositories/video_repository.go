package repositories

import (
	"context"

	"github.com/metube/backend/internal/models"
)

// VideoRepository defines the data access contract for videos. A user's
// videos are derived with ListByOwner instead of a maintained reference list,
// so creating a video is a single atomic write.
type VideoRepository interface {
	Create(ctx context.Context, video models.Video) error
	FindByID(ctx context.Context, id string) (models.Video, error)
	Update(ctx context.Context, video models.Video) error
	Delete(ctx context.Context, id string) error
	ListRecent(ctx context.Context) ([]models.Video, error)
	ListByOwner(ctx context.Context, ownerID string) ([]models.Video, error)
	SearchByTitleSuffix(ctx context.Context, keyword string) ([]models.Video, error)
	IncrementViews(ctx context.Context, id string) error
}

// CommentRepository defines the data access contract for comments. A video's
// comments are derived with ListForVideo; deleting a video cascades at the
// schema level.
type CommentRepository interface {
	Create(ctx context.Context, comment models.Comment) error
	FindByID(ctx context.Context, id string) (models.Comment, error)
	ListForVideo(ctx context.Context, videoID string) ([]models.Comment, error)
	Delete(ctx context.Context, id string) error
}
