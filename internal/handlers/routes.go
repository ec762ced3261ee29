package handlers

import (
	"net/http"
	"time"

	"github.com/metube/backend/internal/middleware"
	"github.com/metube/backend/internal/web"
)

// Dependencies aggregates collaborators required by HTTP handlers.
type Dependencies struct {
	Users    UserStore
	Videos   VideoStore
	Comments CommentStore
	Sessions SessionManager
	OAuth    OAuthProvider
	Uploads  UploadStore
	Pages    *web.Renderer

	// LoginLimiter guards the credential-bearing POSTs.
	LoginLimiter RateLimiter

	// UploadDir, when set, is served at /uploads/ for the local storage backend.
	UploadDir string

	OpenCommentDelete bool

	NowFunc func() time.Time
}

// RegisterRoutes wires HTTP handlers into the provided ServeMux.
func RegisterRoutes(mux *http.ServeMux, deps Dependencies) {
	health := HealthHandler{}
	users := UserHandler{
		Users:    deps.Users,
		Videos:   deps.Videos,
		Sessions: deps.Sessions,
		OAuth:    deps.OAuth,
		Avatars:  deps.Uploads,
		Pages:    deps.Pages,
		Limiter:  deps.LoginLimiter,
		NowFunc:  deps.NowFunc,
	}
	videos := VideoHandler{
		Videos:   deps.Videos,
		Comments: deps.Comments,
		Uploads:  deps.Uploads,
		Pages:    deps.Pages,
		NowFunc:  deps.NowFunc,
	}
	api := APIHandler{
		Videos:            deps.Videos,
		Comments:          deps.Comments,
		OpenCommentDelete: deps.OpenCommentDelete,
		NowFunc:           deps.NowFunc,
	}

	mux.HandleFunc("GET /healthz", health.Handle)

	mux.HandleFunc("GET /{$}", videos.Home)
	mux.HandleFunc("GET /search", videos.Search)

	mux.HandleFunc("GET /join", anonymousOnly(users.GetJoin))
	mux.HandleFunc("POST /join", anonymousOnly(users.PostJoin))
	mux.HandleFunc("GET /login", anonymousOnly(users.GetLogin))
	mux.HandleFunc("POST /login", anonymousOnly(users.PostLogin))

	mux.HandleFunc("GET /users/logout", requireUser(users.Logout))
	mux.HandleFunc("GET /users/edit", requireUser(users.GetEdit))
	mux.HandleFunc("POST /users/edit", requireUser(users.PostEdit))
	mux.HandleFunc("GET /users/change-password", requireUser(users.GetChangePassword))
	mux.HandleFunc("POST /users/change-password", requireUser(users.PostChangePassword))
	mux.HandleFunc("GET /users/github/start", anonymousOnly(users.GithubStart))
	mux.HandleFunc("GET /users/github/finish", anonymousOnly(users.GithubFinish))
	mux.HandleFunc("GET /users/{id}", users.Profile)

	mux.HandleFunc("GET /videos/upload", requireUser(videos.GetUpload))
	mux.HandleFunc("POST /videos/upload", requireUser(videos.PostUpload))
	mux.HandleFunc("GET /videos/{id}", videos.Watch)
	mux.HandleFunc("GET /videos/{id}/edit", requireUser(videos.GetEdit))
	mux.HandleFunc("POST /videos/{id}/edit", requireUser(videos.PostEdit))
	mux.HandleFunc("GET /videos/{id}/delete", requireUser(videos.Delete))

	mux.HandleFunc("POST /api/videos/{id}/view", api.RegisterView)
	mux.HandleFunc("POST /api/videos/{id}/comment", api.CreateComment)
	mux.HandleFunc("DELETE /api/comments/{id}", api.DeleteComment)

	if deps.UploadDir != "" {
		mux.Handle("GET /uploads/", http.StripPrefix("/uploads/", http.FileServer(http.Dir(deps.UploadDir))))
	}
}

// requireUser gates a page behind an active session, redirecting anonymous
// visitors to the login form.
func requireUser(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := middleware.UserFrom(r.Context()); !ok {
			setFlash(w, "Log in first.")
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		next(w, r)
	}
}

// anonymousOnly keeps logged-in users away from the join/login/OAuth pages.
func anonymousOnly(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := middleware.UserFrom(r.Context()); ok {
			http.Redirect(w, r, "/", http.StatusSeeOther)
			return
		}
		next(w, r)
	}
}
