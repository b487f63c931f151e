// Package models defines the domain types for quikpix.
package models

import "time"

// ImageRef is an opaque reference to an image, resolved by the image endpoint.
// It never carries pixel data.
type ImageRef string

// ImageRecord is one image row sourced from the media index.
type ImageRecord struct {
	ID          int64     `json:"id"`
	FolderKey   string    `json:"folder_key"`
	FolderName  string    `json:"folder_name"`
	DisplayName string    `json:"display_name"`
	Path        string    `json:"path"`
	ModifiedAt  time.Time `json:"modified_at"`
	TakenAt     time.Time `json:"taken_at,omitzero"`
	Ref         ImageRef  `json:"ref"`
}

// Recency returns the later of ModifiedAt and TakenAt.
func (r ImageRecord) Recency() time.Time {
	if r.TakenAt.After(r.ModifiedAt) {
		return r.TakenAt
	}
	return r.ModifiedAt
}

// Category is a folder-based group of images derived by aggregation.
type Category struct {
	Key           string     `json:"key"`
	DisplayName   string     `json:"display_name"`
	Path          string     `json:"path"`
	ItemCount     int        `json:"item_count"`
	LastModified  time.Time  `json:"last_modified"`
	ThumbnailRefs []ImageRef `json:"thumbnail_refs"`
	Pinned        bool       `json:"pinned"`
	Hidden        bool       `json:"hidden,omitempty"`
}

// MediaFile is the on-disk metadata of an image file under the library root.
type MediaFile struct {
	Path        string    `json:"path"`
	Size        int64     `json:"size"`
	Fingerprint string    `json:"fingerprint"`
	ModTime     time.Time `json:"mod_time"`
}

// CategoryPrefs holds the persisted user preferences for one category.
type CategoryPrefs struct {
	Pinned bool `json:"pinned"`
	Hidden bool `json:"hidden"`
}
