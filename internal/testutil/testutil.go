// Package testutil provides shared test helpers for setting up image
// libraries, databases and the gallery service.
package testutil

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/starford/quikpix/internal/gallery"
	"github.com/starford/quikpix/internal/index"
	"github.com/starford/quikpix/internal/storage"
	"github.com/starford/quikpix/internal/viewer"
)

// Quiet is a logger that discards everything.
var Quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

// TestDB creates a temporary SQLite database that is automatically cleaned up.
func TestDB(t *testing.T) *index.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "quikpix-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := index.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestLibraryRoot creates a temporary image library with a storage.Provider.
func TestLibraryRoot(t *testing.T) (string, storage.Provider) {
	t.Helper()
	root := t.TempDir()
	store, err := storage.NewFS(root)
	if err != nil {
		t.Fatal(err)
	}
	return root, store
}

// WriteImage encodes a small w x h image under root at rel (PNG for .png,
// JPEG otherwise) and sets its mtime when mod is non-zero.
func WriteImage(t *testing.T, root, rel string, w, h int, mod time.Time) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})

	var buf bytes.Buffer
	var err error
	if strings.EqualFold(filepath.Ext(rel), ".png") {
		err = png.Encode(&buf, img)
	} else {
		err = jpeg.Encode(&buf, img, nil)
	}
	if err != nil {
		t.Fatal(err)
	}

	abs := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(abs, buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}
	if !mod.IsZero() {
		if err := os.Chtimes(abs, mod, mod); err != nil {
			t.Fatal(err)
		}
	}
}

// Env is a fully wired gallery over a temp library.
type Env struct {
	Root    string
	Store   storage.Provider
	DB      *index.DB
	Library *gallery.Library
	Service *gallery.Service
}

// NewEnv indexes the library written by seed, builds the service and waits
// for the first category scan.
func NewEnv(t *testing.T, seed func(root string)) *Env {
	t.Helper()
	root, store := TestLibraryRoot(t)
	if seed != nil {
		seed(root)
	}
	db := TestDB(t)
	if err := index.Sync(db, store, Quiet); err != nil {
		t.Fatalf("Sync: %v", err)
	}

	lib := gallery.NewLibrary(db, db, gallery.Options{ResultLimit: 500}, Quiet)
	t.Cleanup(lib.Close)
	svc := gallery.NewService(lib, gallery.NewSessions(viewer.DefaultConfig()), db, store)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := svc.RefreshAndWait(ctx); err != nil {
		t.Fatalf("initial scan: %v", err)
	}
	return &Env{Root: root, Store: store, DB: db, Library: lib, Service: svc}
}

// SeedCameraRoll writes a small phone-like library: two camera shots, one
// screenshot and a loose image at the root (which forms no category).
func SeedCameraRoll(t *testing.T) func(root string) {
	return func(root string) {
		base := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
		WriteImage(t, root, "DCIM/Camera/IMG_001.jpg", 4, 3, base)
		WriteImage(t, root, "DCIM/Camera/IMG_002.jpg", 4, 3, base.Add(time.Hour))
		WriteImage(t, root, "Pictures/Screenshots/shot.png", 2, 2, base.Add(-time.Hour))
		WriteImage(t, root, "loose.png", 1, 1, base.Add(2*time.Hour))
	}
}
