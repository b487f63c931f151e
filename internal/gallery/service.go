package gallery

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/starford/quikpix/internal/apperr"
	"github.com/starford/quikpix/internal/catalog"
	"github.com/starford/quikpix/internal/index"
	"github.com/starford/quikpix/internal/models"
	"github.com/starford/quikpix/internal/storage"
)

// ImageLookup resolves image ids and names against the media index.
type ImageLookup interface {
	GetImage(ctx context.Context, id int64) (*index.ImageRow, error)
	Search(query string, limit int) ([]index.SearchResult, error)
}

// CategoryUpdate carries optional preference changes; nil fields are left alone.
type CategoryUpdate struct {
	Pinned *bool `json:"pinned,omitempty"`
	Hidden *bool `json:"hidden,omitempty"`
}

// ImageDetail describes one indexed image.
type ImageDetail struct {
	ID          int64           `json:"id"`
	Ref         models.ImageRef `json:"ref"`
	Path        string          `json:"path"`
	Category    string          `json:"category"`
	DisplayName string          `json:"display_name"`
	MIME        string          `json:"mime_type"`
	Width       int             `json:"width"`
	Height      int             `json:"height"`
	Size        int64           `json:"size"`
	ModifiedAt  time.Time       `json:"modified_at"`
}

// Service coordinates the library, the viewer sessions, the index and storage.
type Service struct {
	lib      *Library
	sessions *Sessions
	lookup   ImageLookup
	store    storage.Provider
}

// NewService wires a service. store may be nil when files are never served.
func NewService(lib *Library, sessions *Sessions, lookup ImageLookup, store storage.Provider) *Service {
	return &Service{
		lib:      lib,
		sessions: sessions,
		lookup:   lookup,
		store:    store,
	}
}

// Library returns the underlying library.
func (s *Service) Library() *Library { return s.lib }

// Status returns the current library snapshot.
func (s *Service) Status() Snapshot { return s.lib.Snapshot() }

// Refresh starts a rescan and returns its generation.
func (s *Service) Refresh() uint64 { return s.lib.Refresh() }

// RefreshAndWait rescans and blocks until the result is applied.
func (s *Service) RefreshAndWait(ctx context.Context) (Snapshot, error) {
	gen := s.lib.Refresh()
	if gen == 0 {
		return Snapshot{}, errors.New("gallery: library closed")
	}
	return s.lib.Await(ctx, gen)
}

// Categories lists visible categories sorted by the named mode.
func (s *Service) Categories(ctx context.Context, sort string) ([]models.Category, Snapshot, error) {
	mode, err := catalog.ParseSortMode(sort)
	if err != nil {
		return nil, Snapshot{}, err
	}
	cats, snap, err := s.lib.Categories(ctx, mode)
	if cats == nil {
		cats = []models.Category{}
	}
	return cats, snap, err
}

// HiddenCategories lists categories the user hid.
func (s *Service) HiddenCategories(ctx context.Context) ([]models.Category, error) {
	cats, err := s.lib.HiddenCategories(ctx)
	if cats == nil {
		cats = []models.Category{}
	}
	return cats, err
}

// UpdateCategory applies preference changes to a category in one write.
func (s *Service) UpdateCategory(ctx context.Context, key string, u CategoryUpdate) (models.Category, error) {
	return s.lib.UpdatePrefs(ctx, key, u.Pinned, u.Hidden)
}

// Images lists a category's images.
func (s *Service) Images(ctx context.Context, key string, limit int) ([]models.ImageRecord, error) {
	return s.lib.Images(ctx, key, limit)
}

// Image returns metadata for one image.
func (s *Service) Image(ctx context.Context, id int64) (*ImageDetail, error) {
	row, err := s.lookup.GetImage(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.detail(row), nil
}

// OpenImage returns the image metadata and an open handle on its file. The
// caller closes the file.
func (s *Service) OpenImage(ctx context.Context, id int64) (*ImageDetail, *os.File, error) {
	if s.store == nil {
		return nil, nil, apperr.ErrNotFound
	}
	row, err := s.lookup.GetImage(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	f, err := s.store.Open(row.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil, apperr.ErrNotFound
		}
		return nil, nil, err
	}
	return s.detail(row), f, nil
}

// Search finds images by file or folder name.
func (s *Service) Search(_ context.Context, query string, limit int) ([]index.SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("gallery: query is required: %w", apperr.ErrInvalidArgument)
	}
	res, err := s.lookup.Search(query, limit)
	if res == nil {
		res = []index.SearchResult{}
	}
	return res, err
}

// OpenViewer starts a viewer over a category's images. When startID is set the
// viewer opens on that image, otherwise on index start.
func (s *Service) OpenViewer(ctx context.Context, key string, start int, startID int64) (View, error) {
	recs, err := s.lib.Images(ctx, key, 0)
	if err != nil {
		return View{}, err
	}
	refs := make([]models.ImageRef, len(recs))
	for i, r := range recs {
		refs[i] = r.Ref
		if startID != 0 && r.ID == startID {
			start = i
		}
	}
	return s.sessions.Open(key, refs, start)
}

// Viewer returns a viewer session.
func (s *Service) Viewer(id string) (View, error) { return s.sessions.Get(id) }

// ApplyGesture feeds a gesture to a viewer session.
func (s *Service) ApplyGesture(id string, g Gesture) (View, error) { return s.sessions.Apply(id, g) }

// CloseViewer discards a viewer session.
func (s *Service) CloseViewer(id string) error { return s.sessions.Close(id) }

func (s *Service) detail(row *index.ImageRow) *ImageDetail {
	return &ImageDetail{
		ID:          row.ID,
		Ref:         s.lib.ref(row.ID),
		Path:        row.Path,
		Category:    row.BucketID,
		DisplayName: row.DisplayName,
		MIME:        row.MIME,
		Width:       row.Width,
		Height:      row.Height,
		Size:        row.Size,
		ModifiedAt:  row.ModifiedAt,
	}
}
