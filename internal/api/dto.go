package api

import (
	"github.com/starford/quikpix/internal/gallery"
	"github.com/starford/quikpix/internal/index"
	"github.com/starford/quikpix/internal/models"
)

// LibraryStatus is the library snapshot returned by GET /api/library.
type LibraryStatus = gallery.Snapshot

// RefreshResponse is returned when a rescan is queued without waiting.
type RefreshResponse struct {
	Generation uint64 `json:"generation" example:"7" validate:"required"`
}

// CategoryListResponse wraps a sorted category listing.
type CategoryListResponse struct {
	Categories []models.Category `json:"categories" validate:"required"`
	Sort       string            `json:"sort" example:"recent" validate:"required"`
	Status     gallery.Status    `json:"status" example:"ready" validate:"required"`
	Generation uint64            `json:"generation" example:"7"`
}

// CategoryDetailResponse is a category with its images.
type CategoryDetailResponse struct {
	Category models.Category      `json:"category" validate:"required"`
	Images   []models.ImageRecord `json:"images" validate:"required"`
}

// UpdateCategoryRequest is the body of PATCH /api/categories/{key}.
type UpdateCategoryRequest = gallery.CategoryUpdate

// ImageDetail is the image metadata response.
type ImageDetail = gallery.ImageDetail

// SearchResponse wraps search results.
type SearchResponse struct {
	Results []index.SearchResult `json:"results" validate:"required"`
}

// OpenViewerRequest opens a viewer over a category. ImageID, when set, wins
// over Start.
type OpenViewerRequest struct {
	Category string `json:"category" example:"DCIM/Camera" validate:"required"`
	Start    int    `json:"start" example:"0"`
	ImageID  int64  `json:"image_id" example:"42"`
}

// ViewerResponse is the state of a viewer session.
type ViewerResponse = gallery.View

// GestureRequest is one gesture posted to a viewer session.
type GestureRequest = gallery.Gesture
