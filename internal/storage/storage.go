// Package storage persists uploaded media (videos, thumbnails, avatars) and
// returns the reference that gets recorded on the owning row.
package storage

import (
	"context"
	"io"
)

// Uploads writes an uploaded file under the given name and returns the
// public reference (a path or URL) to persist.
type Uploads interface {
	Save(ctx context.Context, name string, r io.Reader) (string, error)
}
