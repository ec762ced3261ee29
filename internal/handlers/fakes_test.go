package handlers

import (
	"context"
	"io"
	"net/http"
	"sort"
	"strings"
	"testing"

	"github.com/metube/backend/internal/auth"
	"github.com/metube/backend/internal/middleware"
	"github.com/metube/backend/internal/models"
	"github.com/metube/backend/internal/repositories"
	"github.com/metube/backend/internal/web"
)

type fakeUserStore struct {
	users map[string]models.User
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{users: make(map[string]models.User)}
}

func (s *fakeUserStore) Create(_ context.Context, user models.User) error {
	for _, existing := range s.users {
		if existing.Username == user.Username || existing.Email == user.Email {
			return repositories.ErrConflict
		}
	}
	s.users[user.ID] = user
	return nil
}

func (s *fakeUserStore) FindByID(_ context.Context, id string) (models.User, error) {
	user, ok := s.users[id]
	if !ok {
		return models.User{}, repositories.ErrNotFound
	}
	return user, nil
}

func (s *fakeUserStore) FindByEmail(_ context.Context, email string) (models.User, error) {
	for _, user := range s.users {
		if user.Email == email {
			return user, nil
		}
	}
	return models.User{}, repositories.ErrNotFound
}

func (s *fakeUserStore) FindByUsername(_ context.Context, username string) (models.User, error) {
	for _, user := range s.users {
		if user.Username == username {
			return user, nil
		}
	}
	return models.User{}, repositories.ErrNotFound
}

func (s *fakeUserStore) FindLocalByUsername(_ context.Context, username string) (models.User, error) {
	for _, user := range s.users {
		if user.Username == username && !user.SocialOnly {
			return user, nil
		}
	}
	return models.User{}, repositories.ErrNotFound
}

func (s *fakeUserStore) ExistsByUsernameOrEmail(_ context.Context, username, email string) (bool, error) {
	for _, user := range s.users {
		if user.Username == username || user.Email == email {
			return true, nil
		}
	}
	return false, nil
}

func (s *fakeUserStore) Update(_ context.Context, user models.User) error {
	if _, ok := s.users[user.ID]; !ok {
		return repositories.ErrNotFound
	}
	s.users[user.ID] = user
	return nil
}

type fakeVideoStore struct {
	videos map[string]models.Video
	views  map[string]int
}

func newFakeVideoStore() *fakeVideoStore {
	return &fakeVideoStore{videos: make(map[string]models.Video), views: make(map[string]int)}
}

func (s *fakeVideoStore) Create(_ context.Context, video models.Video) error {
	if _, ok := s.videos[video.ID]; ok {
		return repositories.ErrConflict
	}
	s.videos[video.ID] = video
	return nil
}

func (s *fakeVideoStore) FindByID(_ context.Context, id string) (models.Video, error) {
	video, ok := s.videos[id]
	if !ok {
		return models.Video{}, repositories.ErrNotFound
	}
	return video, nil
}

func (s *fakeVideoStore) Update(_ context.Context, video models.Video) error {
	if _, ok := s.videos[video.ID]; !ok {
		return repositories.ErrNotFound
	}
	s.videos[video.ID] = video
	return nil
}

func (s *fakeVideoStore) Delete(_ context.Context, id string) error {
	if _, ok := s.videos[id]; !ok {
		return repositories.ErrNotFound
	}
	delete(s.videos, id)
	return nil
}

func (s *fakeVideoStore) ListRecent(_ context.Context) ([]models.Video, error) {
	var videos []models.Video
	for _, video := range s.videos {
		videos = append(videos, video)
	}
	sort.Slice(videos, func(i, j int) bool { return videos[i].CreatedAt.After(videos[j].CreatedAt) })
	return videos, nil
}

func (s *fakeVideoStore) ListByOwner(ctx context.Context, ownerID string) ([]models.Video, error) {
	all, _ := s.ListRecent(ctx)
	var videos []models.Video
	for _, video := range all {
		if video.OwnerID == ownerID {
			videos = append(videos, video)
		}
	}
	return videos, nil
}

func (s *fakeVideoStore) SearchByTitleSuffix(ctx context.Context, keyword string) ([]models.Video, error) {
	all, _ := s.ListRecent(ctx)
	var videos []models.Video
	for _, video := range all {
		if strings.HasSuffix(strings.ToLower(video.Title), strings.ToLower(keyword)) {
			videos = append(videos, video)
		}
	}
	return videos, nil
}

func (s *fakeVideoStore) IncrementViews(_ context.Context, id string) error {
	video, ok := s.videos[id]
	if !ok {
		return repositories.ErrNotFound
	}
	video.Views++
	s.videos[id] = video
	s.views[id]++
	return nil
}

type fakeCommentStore struct {
	comments map[string]models.Comment
}

func newFakeCommentStore() *fakeCommentStore {
	return &fakeCommentStore{comments: make(map[string]models.Comment)}
}

func (s *fakeCommentStore) Create(_ context.Context, comment models.Comment) error {
	if _, ok := s.comments[comment.ID]; ok {
		return repositories.ErrConflict
	}
	s.comments[comment.ID] = comment
	return nil
}

func (s *fakeCommentStore) FindByID(_ context.Context, id string) (models.Comment, error) {
	comment, ok := s.comments[id]
	if !ok {
		return models.Comment{}, repositories.ErrNotFound
	}
	return comment, nil
}

func (s *fakeCommentStore) ListForVideo(_ context.Context, videoID string) ([]models.Comment, error) {
	var comments []models.Comment
	for _, comment := range s.comments {
		if comment.VideoID == videoID {
			comments = append(comments, comment)
		}
	}
	sort.Slice(comments, func(i, j int) bool { return comments[i].CreatedAt.Before(comments[j].CreatedAt) })
	return comments, nil
}

func (s *fakeCommentStore) Delete(_ context.Context, id string) error {
	if _, ok := s.comments[id]; !ok {
		return repositories.ErrNotFound
	}
	delete(s.comments, id)
	return nil
}

type fakeSessionManager struct {
	issued  []string
	revoked []string
	failure error
}

func (m *fakeSessionManager) Issue(_ context.Context, userID string) (auth.Session, error) {
	if m.failure != nil {
		return auth.Session{}, m.failure
	}
	m.issued = append(m.issued, userID)
	return auth.Session{Token: "token-" + userID, UserID: userID}, nil
}

func (m *fakeSessionManager) Revoke(_ context.Context, token string) {
	m.revoked = append(m.revoked, token)
}

type fakeOAuthProvider struct {
	identity auth.Identity
	failure  error
}

func (p fakeOAuthProvider) AuthCodeURL(state string) string {
	return "https://github.example/authorize?state=" + state
}

func (p fakeOAuthProvider) Identity(context.Context, string) (auth.Identity, error) {
	if p.failure != nil {
		return auth.Identity{}, p.failure
	}
	return p.identity, nil
}

type fakeUploadStore struct {
	saved map[string][]byte
}

func newFakeUploadStore() *fakeUploadStore {
	return &fakeUploadStore{saved: make(map[string][]byte)}
}

func (s *fakeUploadStore) Save(_ context.Context, name string, r io.Reader) (string, error) {
	contents, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	s.saved[name] = contents
	return "/uploads/" + name, nil
}

type denyAllLimiter struct{}

func (denyAllLimiter) Allow(string) bool { return false }

func newTestRenderer(t *testing.T) *web.Renderer {
	t.Helper()
	pages, err := web.NewRenderer()
	if err != nil {
		t.Fatalf("build renderer: %v", err)
	}
	return pages
}

func asUser(r *http.Request, user models.User) *http.Request {
	return r.WithContext(middleware.WithUser(r.Context(), user))
}
