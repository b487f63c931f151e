// Package catalog groups image records into folder categories and orders them.
// It performs no I/O.
package catalog

import (
	"path"

	"github.com/starford/quikpix/internal/models"
)

// DefaultThumbnailCap bounds the thumbnails kept per category.
const DefaultThumbnailCap = 20

// Options tunes an aggregation pass.
type Options struct {
	// ThumbnailCap is the maximum number of thumbnail refs per category.
	// Zero or negative means DefaultThumbnailCap.
	ThumbnailCap int
	// FriendlyNames overrides the display name of the given folder keys.
	FriendlyNames map[string]string
}

func (o Options) thumbnailCap() int {
	if o.ThumbnailCap <= 0 {
		return DefaultThumbnailCap
	}
	return o.ThumbnailCap
}

// Result is the output of Aggregate.
type Result struct {
	// ByKey maps folder key to its category.
	ByKey map[string]*models.Category
	// Ordered lists the categories in first-seen order.
	Ordered []*models.Category
	// Records is the number of records that landed in a category.
	Records int
}

// List returns the categories as values in first-seen order.
func (r Result) List() []models.Category {
	out := make([]models.Category, len(r.Ordered))
	for i, c := range r.Ordered {
		out[i] = *c
	}
	return out
}

// Aggregate groups records by FolderKey in a single pass. Records are expected
// in recency order, so the first ThumbnailCap refs seen per folder are its
// most recent images. The first non-empty folder name seen for a key becomes
// the display name unless FriendlyNames overrides it. Records with an empty
// FolderKey are dropped.
func Aggregate(records []models.ImageRecord, opts Options) Result {
	limit := opts.thumbnailCap()
	res := Result{ByKey: make(map[string]*models.Category)}

	for _, rec := range records {
		if rec.FolderKey == "" {
			continue
		}
		cat, ok := res.ByKey[rec.FolderKey]
		if !ok {
			cat = &models.Category{
				Key:           rec.FolderKey,
				DisplayName:   rec.FolderName,
				Path:          path.Dir(rec.Path),
				ThumbnailRefs: make([]models.ImageRef, 0, min(limit, 4)),
			}
			res.ByKey[rec.FolderKey] = cat
			res.Ordered = append(res.Ordered, cat)
		}
		if cat.DisplayName == "" {
			cat.DisplayName = rec.FolderName
		}

		cat.ItemCount++
		res.Records++
		if ts := rec.Recency(); ts.After(cat.LastModified) {
			cat.LastModified = ts
		}
		if len(cat.ThumbnailRefs) < limit {
			cat.ThumbnailRefs = append(cat.ThumbnailRefs, rec.Ref)
		}
	}

	for _, cat := range res.Ordered {
		if name, ok := opts.FriendlyNames[cat.Key]; ok && name != "" {
			cat.DisplayName = name
		}
		if cat.DisplayName == "" {
			cat.DisplayName = path.Base(cat.Key)
		}
	}
	return res
}
