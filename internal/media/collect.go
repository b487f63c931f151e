package media

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"time"

	"github.com/starford/quikpix/internal/apperr"
	"github.com/starford/quikpix/internal/models"
)

// RefFunc builds the opaque reference for an image id.
type RefFunc func(id int64) models.ImageRef

// RefWithBase returns a RefFunc producing "<base>/<id>".
func RefWithBase(base string) RefFunc {
	return func(id int64) models.ImageRef {
		return models.ImageRef(fmt.Sprintf("%s/%d", base, id))
	}
}

// Collect runs q against src and converts every well-formed row into an
// ImageRecord, preserving cursor order. Malformed rows are logged and
// skipped. A failing query, a nil cursor, or a cursor error is reported
// as apperr.ErrSourceUnavailable.
func Collect(ctx context.Context, src Source, q Query, ref RefFunc, logger *slog.Logger) ([]models.ImageRecord, error) {
	cur, err := src.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("media: query: %v: %w", err, apperr.ErrSourceUnavailable)
	}
	if cur == nil {
		return nil, fmt.Errorf("media: query returned no cursor: %w", apperr.ErrSourceUnavailable)
	}
	defer cur.Close()

	var out []models.ImageRecord
	skipped := 0
	for cur.Next() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		row := cur.Row()
		rec, err := ToRecord(row, ref)
		if err != nil {
			skipped++
			logger.Warn("media: skipping row",
				slog.Int64("id", row.ID.Int64),
				slog.String("error", err.Error()))
			continue
		}
		out = append(out, rec)
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("media: iterate: %v: %w", err, apperr.ErrSourceUnavailable)
	}
	if skipped > 0 {
		logger.Info("media: scan finished with skipped rows",
			slog.Int("records", len(out)),
			slog.Int("skipped", skipped))
	}
	return out, nil
}

// ToRecord validates a row and converts it. Rows without an id, path or
// modification date are malformed. A missing bucket id yields a record with
// an empty FolderKey, which aggregation discards.
func ToRecord(row Row, ref RefFunc) (models.ImageRecord, error) {
	switch {
	case !row.ID.Valid:
		return models.ImageRecord{}, fmt.Errorf("missing id: %w", apperr.ErrMalformedRecord)
	case !row.Path.Valid || row.Path.String == "":
		return models.ImageRecord{}, fmt.Errorf("missing path: %w", apperr.ErrMalformedRecord)
	case !row.DateModified.Valid:
		return models.ImageRecord{}, fmt.Errorf("missing date_modified: %w", apperr.ErrMalformedRecord)
	}

	rec := models.ImageRecord{
		ID:          row.ID.Int64,
		FolderKey:   row.BucketID.String,
		FolderName:  row.BucketName.String,
		DisplayName: path.Base(row.Path.String),
		Path:        row.Path.String,
		ModifiedAt:  time.Unix(row.DateModified.Int64, 0).UTC(),
	}
	if row.DateTaken.Valid && row.DateTaken.Int64 > 0 {
		rec.TakenAt = time.UnixMilli(row.DateTaken.Int64).UTC()
	}
	if ref != nil {
		rec.Ref = ref(rec.ID)
	}
	return rec, nil
}
