package handlers

import (
	"errors"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/metube/backend/internal/auth"
	"github.com/metube/backend/internal/logging"
	"github.com/metube/backend/internal/middleware"
	"github.com/metube/backend/internal/models"
	"github.com/metube/backend/internal/repositories"
	"github.com/metube/backend/internal/web"
)

// maxVideoBytes caps a single upload (video plus thumbnail) at 64 MB.
const maxVideoBytes = 64 << 20

// VideoHandler implements the video pages: home feed, watch, upload, edit,
// delete and title search.
type VideoHandler struct {
	Videos   VideoStore
	Comments CommentStore
	Uploads  UploadStore
	Pages    *web.Renderer
	NowFunc  func() time.Time
}

// Home lists all videos, newest first.
func (h VideoHandler) Home(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	videos, err := h.Videos.ListRecent(ctx)
	if err != nil {
		logging.FromContext(ctx).Error("home feed query failed", "error", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	h.Pages.Render(w, r, http.StatusOK, "home", page(w, r, "Home", "", videos))
}

// Watch renders a single video with its comments.
func (h VideoHandler) Watch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	video, err := h.Videos.FindByID(ctx, r.PathValue("id"))
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			notFound(w, r, h.Pages, "Video not found")
			return
		}
		logging.FromContext(ctx).Error("watch lookup failed", "error", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	comments, err := h.Comments.ListForVideo(ctx, video.ID)
	if err != nil {
		logging.FromContext(ctx).Error("watch comments query failed", "error", err, "videoId", video.ID)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	data := struct {
		Video    models.Video
		Comments []models.Comment
	}{Video: video, Comments: comments}

	h.Pages.Render(w, r, http.StatusOK, "watch", page(w, r, video.Title, "", data))
}

// GetUpload renders the upload form.
func (h VideoHandler) GetUpload(w http.ResponseWriter, r *http.Request) {
	h.Pages.Render(w, r, http.StatusOK, "upload", page(w, r, "Upload Video", "", nil))
}

// PostUpload stores the media files and persists the new video owned by the
// session user. The owner's video list is derived by query, so this is a
// single write.
func (h VideoHandler) PostUpload(w http.ResponseWriter, r *http.Request) {
	ctx, span := logging.StartSpan(r.Context(), "video-upload")
	defer span.End()
	logger := logging.FromContext(ctx)

	me, ok := middleware.UserFrom(ctx)
	if !ok {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	if err := r.ParseMultipartForm(maxVideoBytes); err != nil {
		h.renderUploadError(w, r, http.StatusBadRequest, "Invalid upload submission.")
		return
	}

	title := strings.TrimSpace(r.PostFormValue("title"))
	description := strings.TrimSpace(r.PostFormValue("description"))
	hashtags := r.PostFormValue("hashtags")

	if title == "" {
		h.renderUploadError(w, r, http.StatusBadRequest, "Title is required.")
		return
	}

	id := uuid.NewString()

	fileURL, err := h.saveUpload(r, "video", "videos/"+id)
	if err != nil {
		logger.Warn("video upload missing file", "error", err)
		h.renderUploadError(w, r, http.StatusBadRequest, "Video and thumbnail files are required.")
		return
	}

	thumbURL, err := h.saveUpload(r, "thumb", "thumbs/"+id)
	if err != nil {
		logger.Warn("video upload missing thumbnail", "error", err)
		h.renderUploadError(w, r, http.StatusBadRequest, "Video and thumbnail files are required.")
		return
	}

	video := models.Video{
		ID:          id,
		Title:       title,
		Description: description,
		Hashtags:    models.FormatHashtags(hashtags),
		FileURL:     fileURL,
		ThumbURL:    thumbURL,
		OwnerID:     me.ID,
		CreatedAt:   h.now(),
	}

	if err := h.Videos.Create(ctx, video); err != nil {
		logger.Error("video create failed", "error", err, "videoId", id)
		h.renderUploadError(w, r, http.StatusInternalServerError, "Unable to upload right now.")
		return
	}

	logger.Info("video uploaded", "videoId", id, "ownerId", me.ID)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (h VideoHandler) saveUpload(r *http.Request, field, prefix string) (string, error) {
	file, header, err := r.FormFile(field)
	if err != nil {
		return "", err
	}
	defer file.Close()

	key := prefix + strings.ToLower(path.Ext(header.Filename))
	return h.Uploads.Save(r.Context(), key, file)
}

func (h VideoHandler) renderUploadError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	h.Pages.Render(w, r, status, "upload", page(w, r, "Upload Video", msg, nil))
}

// GetEdit renders the edit form, owners only.
func (h VideoHandler) GetEdit(w http.ResponseWriter, r *http.Request) {
	video, ok := h.ownedVideo(w, r)
	if !ok {
		return
	}
	h.Pages.Render(w, r, http.StatusOK, "edit_video", page(w, r, "Edit "+video.Title, "", video))
}

// PostEdit updates title, description and hashtags, owners only.
func (h VideoHandler) PostEdit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	video, ok := h.ownedVideo(w, r)
	if !ok {
		return
	}

	if err := r.ParseForm(); err != nil {
		h.Pages.Render(w, r, http.StatusBadRequest, "edit_video",
			page(w, r, "Edit "+video.Title, "Invalid form submission.", video))
		return
	}

	video.Title = strings.TrimSpace(r.PostFormValue("title"))
	video.Description = strings.TrimSpace(r.PostFormValue("description"))
	video.Hashtags = models.FormatHashtags(r.PostFormValue("hashtags"))

	if video.Title == "" {
		h.Pages.Render(w, r, http.StatusBadRequest, "edit_video",
			page(w, r, "Edit Video", "Title is required.", video))
		return
	}

	if err := h.Videos.Update(ctx, video); err != nil {
		logging.FromContext(ctx).Error("video update failed", "error", err, "videoId", video.ID)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	setFlash(w, "Video updated")
	http.Redirect(w, r, "/videos/"+video.ID, http.StatusSeeOther)
}

// Delete removes the video, owners only. Comments cascade at the schema level.
func (h VideoHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	video, ok := h.ownedVideo(w, r)
	if !ok {
		return
	}

	if err := h.Videos.Delete(ctx, video.ID); err != nil && !errors.Is(err, repositories.ErrNotFound) {
		logging.FromContext(ctx).Error("video delete failed", "error", err, "videoId", video.ID)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// ownedVideo loads the requested video and enforces the ownership policy.
// On failure it writes the response itself and reports !ok.
func (h VideoHandler) ownedVideo(w http.ResponseWriter, r *http.Request) (models.Video, bool) {
	ctx := r.Context()

	video, err := h.Videos.FindByID(ctx, r.PathValue("id"))
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			notFound(w, r, h.Pages, "Video not found")
			return models.Video{}, false
		}
		logging.FromContext(ctx).Error("video lookup failed", "error", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return models.Video{}, false
	}

	me, _ := middleware.UserFrom(ctx)
	if err := auth.AuthorizeOwner(me.ID, video.OwnerID); err != nil {
		logging.FromContext(ctx).Warn("video ownership check failed", "videoId", video.ID, "userId", me.ID)
		setFlash(w, "You are not the owner of the video.")
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return models.Video{}, false
	}

	return video, true
}

// Search lists videos whose title ends with the keyword, case-insensitively.
func (h VideoHandler) Search(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	keyword := strings.TrimSpace(r.URL.Query().Get("keyword"))

	var videos []models.Video
	if keyword != "" {
		var err error
		videos, err = h.Videos.SearchByTitleSuffix(ctx, keyword)
		if err != nil {
			logging.FromContext(ctx).Error("search query failed", "error", err, "keyword", keyword)
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}
	}

	data := struct {
		Keyword string
		Videos  []models.Video
	}{Keyword: keyword, Videos: videos}

	h.Pages.Render(w, r, http.StatusOK, "search", page(w, r, "Search", "", data))
}

func (h VideoHandler) now() time.Time {
	if h.NowFunc != nil {
		return h.NowFunc()
	}
	return time.Now().UTC()
}
