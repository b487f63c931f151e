// Package storage defines the image library file-system abstraction.
package storage

import (
	"os"

	"github.com/starford/quikpix/internal/models"
)

// Provider is the interface for library file operations.
type Provider interface {
	// List returns metadata for every image file under dir (relative to library root).
	List(dir string) ([]models.MediaFile, error)
	// Stat returns metadata for the image at path (relative to library root).
	Stat(path string) (models.MediaFile, error)
	// Open opens the file at path (relative to library root) for reading.
	Open(path string) (*os.File, error)
	// Write creates a new file at path; it fails with apperr.ErrAlreadyExists
	// when the path is taken.
	Write(path string, content []byte) error
	// Root returns the absolute library root.
	Root() string
}

// IsImage reports whether name carries one of the indexed image extensions.
func IsImage(name string) bool {
	_, ok := imageExtensions[extOf(name)]
	return ok
}
