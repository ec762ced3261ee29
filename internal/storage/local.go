package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// LocalUploads saves uploaded files to disk under a base directory and
// returns a path served by the /uploads/ static route.
type LocalUploads struct {
	baseDir string
}

// NewLocalUploads creates the base directory if missing.
func NewLocalUploads(baseDir string) (*LocalUploads, error) {
	if strings.TrimSpace(baseDir) == "" {
		return nil, fmt.Errorf("local uploads: base directory is required")
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create uploads dir: %w", err)
	}
	return &LocalUploads{baseDir: baseDir}, nil
}

// Save writes the content under the given name relative to the base directory.
func (l *LocalUploads) Save(_ context.Context, name string, r io.Reader) (string, error) {
	rel := cleanName(name)
	if rel == "" {
		return "", fmt.Errorf("local uploads: empty name")
	}

	target := filepath.Join(l.baseDir, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return "", fmt.Errorf("create upload subdir: %w", err)
	}

	out, err := os.Create(target)
	if err != nil {
		return "", fmt.Errorf("create upload file: %w", err)
	}
	defer out.Close()

	if _, err := io.Copy(out, r); err != nil {
		return "", fmt.Errorf("write upload file: %w", err)
	}

	return "/uploads/" + rel, nil
}

// cleanName normalizes a storage name to a safe slash-separated relative path.
func cleanName(name string) string {
	name = strings.TrimLeft(strings.TrimSpace(name), "/")
	if name == "" {
		return ""
	}
	cleaned := filepath.ToSlash(filepath.Clean(name))
	if cleaned == "." || strings.HasPrefix(cleaned, "..") {
		return ""
	}
	return cleaned
}

var _ Uploads = (*LocalUploads)(nil)
var _ Uploads = (*S3Uploads)(nil)
