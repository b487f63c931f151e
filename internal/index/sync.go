package index

import (
	"errors"
	"fmt"
	"log/slog"
	"path"

	"github.com/starford/quikpix/internal/apperr"
	"github.com/starford/quikpix/internal/probe"
	"github.com/starford/quikpix/internal/storage"
)

// Sync walks the library and brings the index up to date:
//   - new/changed images are probed and upserted
//   - images that fail probing are dropped from the index
//   - files removed from disk are deleted from the index
func Sync(db *DB, store storage.Provider, logger *slog.Logger) error {
	files, err := store.List("")
	if err != nil {
		return err
	}

	fingerprints, err := db.AllFingerprints()
	if err != nil {
		return err
	}

	disk := make(map[string]struct{}, len(files))
	indexed, skipped := 0, 0
	for _, f := range files {
		disk[f.Path] = struct{}{}

		if fingerprints[f.Path] == f.Fingerprint {
			continue
		}

		if err := IndexFile(db, store, f.Path); err != nil {
			skipped++
			logger.Warn("sync: index failed", slog.String("path", f.Path), slog.String("error", err.Error()))
			continue
		}
		indexed++
		logger.Debug("sync: indexed", slog.String("path", f.Path))
	}

	// Remove stale entries.
	removed := 0
	for p := range fingerprints {
		if _, ok := disk[p]; !ok {
			if err := db.DeleteImage(p); err != nil {
				logger.Warn("sync: delete failed", slog.String("path", p), slog.String("error", err.Error()))
			} else {
				removed++
				logger.Debug("sync: removed stale", slog.String("path", p))
			}
		}
	}

	logger.Info("sync: done",
		slog.Int("files", len(files)),
		slog.Int("indexed", indexed),
		slog.Int("skipped", skipped),
		slog.Int("removed", removed))
	return nil
}

// IndexFile probes the image at rel and upserts it. A file that is not a
// valid JPEG/PNG is removed from the index and reported.
func IndexFile(db *DB, store storage.Provider, rel string) error {
	meta, err := store.Stat(rel)
	if err != nil {
		return err
	}
	f, err := store.Open(rel)
	if err != nil {
		return err
	}
	res, err := probe.Inspect(f)
	f.Close()
	if err != nil {
		if errors.Is(err, apperr.ErrMalformedRecord) {
			if delErr := db.DeleteImage(rel); delErr != nil {
				return fmt.Errorf("%w (cleanup: %v)", err, delErr)
			}
		}
		return err
	}

	bucket := path.Dir(meta.Path)
	if bucket == "." {
		bucket = ""
	}
	row := ImageRow{
		Path:        meta.Path,
		BucketID:    bucket,
		BucketName:  bucketName(bucket),
		DisplayName: path.Base(meta.Path),
		MIME:        res.MIME,
		Width:       res.Width,
		Height:      res.Height,
		Size:        meta.Size,
		Fingerprint: meta.Fingerprint,
		ModifiedAt:  meta.ModTime,
		TakenAt:     res.TakenAt,
	}
	return db.UpsertImage(row)
}

func bucketName(bucket string) string {
	if bucket == "" {
		return ""
	}
	return path.Base(bucket)
}
