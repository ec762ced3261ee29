package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/metube/backend/internal/auth"
	"github.com/metube/backend/internal/logging"
	"github.com/metube/backend/internal/middleware"
	"github.com/metube/backend/internal/models"
	"github.com/metube/backend/internal/repositories"
)

// APIHandler serves the machine-facing endpoints. Responses carry a status
// code and no body.
type APIHandler struct {
	Videos   VideoStore
	Comments CommentStore

	// OpenCommentDelete restores the legacy behavior of deleting any comment
	// by id with no ownership check.
	OpenCommentDelete bool

	NowFunc func() time.Time
}

// RegisterView handles POST /api/videos/{id}/view. Every call increments the
// counter; no authentication, no dedup.
func (h APIHandler) RegisterView(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	err := h.Videos.IncrementViews(ctx, r.PathValue("id"))
	if errors.Is(err, repositories.ErrNotFound) {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	if err != nil {
		logging.FromContext(ctx).Error("view increment failed", "error", err, "videoId", r.PathValue("id"))
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusOK)
}

// CreateComment handles POST /api/videos/{id}/comment. Any authenticated
// user may comment on any existing video.
func (h APIHandler) CreateComment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	me, ok := middleware.UserFrom(ctx)
	if !ok {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	text := strings.TrimSpace(r.FormValue("text"))
	if text == "" {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	videoID := r.PathValue("id")
	if _, err := h.Videos.FindByID(ctx, videoID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		logger.Error("comment video lookup failed", "error", err, "videoId", videoID)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	comment := models.Comment{
		ID:        uuid.NewString(),
		Text:      text,
		AuthorID:  me.ID,
		VideoID:   videoID,
		CreatedAt: h.now(),
	}

	if err := h.Comments.Create(ctx, comment); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		logger.Error("comment create failed", "error", err, "videoId", videoID)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusCreated)
}

// DeleteComment handles DELETE /api/comments/{id}. By default the session
// user must be the comment's author or the video's owner; the open mode
// keeps the source behavior of deleting any comment by id.
func (h APIHandler) DeleteComment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	commentID := r.PathValue("id")

	comment, err := h.Comments.FindByID(ctx, commentID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		logger.Error("comment lookup failed", "error", err, "commentId", commentID)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	if !h.OpenCommentDelete {
		me, ok := middleware.UserFrom(ctx)
		if !ok {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}

		if auth.AuthorizeOwner(me.ID, comment.AuthorID) != nil {
			video, err := h.Videos.FindByID(ctx, comment.VideoID)
			if err != nil || auth.AuthorizeOwner(me.ID, video.OwnerID) != nil {
				w.WriteHeader(http.StatusForbidden)
				return
			}
		}
	}

	if err := h.Comments.Delete(ctx, commentID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		logger.Error("comment delete failed", "error", err, "commentId", commentID)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusOK)
}

func (h APIHandler) now() time.Time {
	if h.NowFunc != nil {
		return h.NowFunc()
	}
	return time.Now().UTC()
}
