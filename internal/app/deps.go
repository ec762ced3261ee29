package app

import (
	"context"
	"fmt"
	"time"

	"github.com/metube/backend/internal/auth"
	"github.com/metube/backend/internal/config"
	"github.com/metube/backend/internal/db"
	"github.com/metube/backend/internal/handlers"
	"github.com/metube/backend/internal/middleware"
	"github.com/metube/backend/internal/repositories"
	"github.com/metube/backend/internal/storage"
	"github.com/metube/backend/internal/web"
)

// buildDependencies wires together concrete implementations used by the HTTP
// handlers, plus the session resolver consumed by the session middleware.
func buildDependencies(ctx context.Context, pool db.Pool, cfg config.Config) (handlers.Dependencies, auth.UserResolver, error) {
	users := repositories.NewPostgresUserRepository(pool)
	videos := repositories.NewPostgresVideoRepository(pool)
	comments := repositories.NewPostgresCommentRepository(pool)

	sessionStore, err := buildSessionStore(pool, cfg)
	if err != nil {
		return handlers.Dependencies{}, auth.UserResolver{}, err
	}
	sessions := auth.NewManager(cfg.SessionTTL, sessionStore)

	uploads, uploadDir, err := buildUploads(ctx, cfg)
	if err != nil {
		return handlers.Dependencies{}, auth.UserResolver{}, err
	}

	pages, err := web.NewRenderer()
	if err != nil {
		return handlers.Dependencies{}, auth.UserResolver{}, err
	}

	deps := handlers.Dependencies{
		Users:    users,
		Videos:   videos,
		Comments: comments,
		Sessions: sessions,
		OAuth: auth.NewGitHubProvider(auth.GitHubConfig{
			ClientID:     cfg.GitHub.ClientID,
			ClientSecret: cfg.GitHub.ClientSecret,
			RedirectURL:  cfg.GitHub.RedirectURL,
		}),
		Uploads:           uploads,
		Pages:             pages,
		LoginLimiter:      middleware.NewIPRateLimiter(cfg.LoginRateRequests, cfg.LoginRateWindow, cfg.LoginRateBurst, 10*time.Minute),
		UploadDir:         uploadDir,
		OpenCommentDelete: cfg.OpenCommentDelete,
	}

	resolver := auth.UserResolver{Sessions: sessions, Users: users}

	return deps, resolver, nil
}

func buildSessionStore(pool db.Pool, cfg config.Config) (auth.SessionStore, error) {
	switch cfg.SessionBackend {
	case "postgres", "":
		return repositories.NewPostgresSessionStore(pool), nil
	case "redis":
		return auth.NewRedisSessionStore(cfg.RedisAddr, cfg.RedisPassword), nil
	case "memory":
		return auth.NewInMemorySessionStore(), nil
	default:
		return nil, fmt.Errorf("unknown session backend %q", cfg.SessionBackend)
	}
}

// buildUploads returns the uploads backend and, for the local backend, the
// directory to serve at /uploads/.
func buildUploads(ctx context.Context, cfg config.Config) (storage.Uploads, string, error) {
	switch cfg.StorageBackend {
	case "local", "":
		uploads, err := storage.NewLocalUploads(cfg.UploadDir)
		if err != nil {
			return nil, "", err
		}
		return uploads, cfg.UploadDir, nil
	case "s3":
		uploads, err := storage.NewS3Uploads(ctx, cfg.ObjectStore)
		if err != nil {
			return nil, "", err
		}
		return uploads, "", nil
	default:
		return nil, "", fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
	}
}
