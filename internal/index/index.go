package index

import (
	"context"

	"github.com/starford/quikpix/internal/media"
	"github.com/starford/quikpix/internal/models"
)

// ImageIndex defines the interface for image indexing operations.
// Consumers should depend on this interface rather than the concrete *DB type
// to facilitate testing with mocks.
type ImageIndex interface {
	media.Source
	UpsertImage(row ImageRow) error
	DeleteImage(path string) error
	GetImage(ctx context.Context, id int64) (*ImageRow, error)
	GetImageByPath(ctx context.Context, path string) (*ImageRow, error)
	Search(query string, limit int) ([]SearchResult, error)
	AllFingerprints() (map[string]string, error)
	Count() (int, error)
	Prefs(ctx context.Context) (map[string]models.CategoryPrefs, error)
	SetPinned(ctx context.Context, bucketID string, pinned bool) error
	SetHidden(ctx context.Context, bucketID string, hidden bool) error
	UpdatePrefs(ctx context.Context, bucketID string, pinned, hidden *bool) error
	Close() error
}

// Verify *DB satisfies ImageIndex at compile time.
var _ ImageIndex = (*DB)(nil)
