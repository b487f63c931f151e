package index

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/starford/quikpix/internal/apperr"
)

// ImageRow represents a row in the images table.
type ImageRow struct {
	ID          int64
	Path        string
	BucketID    string
	BucketName  string
	DisplayName string
	MIME        string
	Width       int
	Height      int
	Size        int64
	Fingerprint string
	ModifiedAt  time.Time
	TakenAt     time.Time // zero when unknown
}

// SearchResult represents one search hit.
type SearchResult struct {
	ID          int64  `json:"id"`
	Path        string `json:"path"`
	BucketID    string `json:"bucket_id"`
	DisplayName string `json:"display_name"`
}

// UpsertImage inserts or updates an image keyed by path, along with its FTS entry.
// The id of an existing path is preserved so image refs stay stable.
func (db *DB) UpsertImage(r ImageRow) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	var taken sql.NullInt64
	if !r.TakenAt.IsZero() {
		taken = sql.NullInt64{Int64: r.TakenAt.UnixMilli(), Valid: true}
	}

	var id int64
	err = tx.QueryRow(`
		INSERT INTO images (path, bucket_id, bucket_name, display_name, mime_type,
		                    width, height, size, fingerprint, date_modified, date_taken)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			bucket_id     = excluded.bucket_id,
			bucket_name   = excluded.bucket_name,
			display_name  = excluded.display_name,
			mime_type     = excluded.mime_type,
			width         = excluded.width,
			height        = excluded.height,
			size          = excluded.size,
			fingerprint   = excluded.fingerprint,
			date_modified = excluded.date_modified,
			date_taken    = excluded.date_taken
		RETURNING id
	`, r.Path, r.BucketID, r.BucketName, r.DisplayName, r.MIME,
		r.Width, r.Height, r.Size, r.Fingerprint, r.ModifiedAt.Unix(), taken).Scan(&id)
	if err != nil {
		return fmt.Errorf("index: upsert image: %w", err)
	}

	// FTS upsert (no-op when FTS5 tag is absent).
	if err := ftsUpsert(tx, id, r.Path, r.DisplayName, r.BucketName); err != nil {
		return err
	}

	return tx.Commit()
}

// DeleteImage removes an image and its FTS entry by path.
func (db *DB) DeleteImage(path string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var id int64
	err = tx.QueryRow(`SELECT id FROM images WHERE path = ?`, path).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("index: lookup image: %w", err)
	}
	ftsDelete(tx, id)
	if _, err := tx.Exec(`DELETE FROM images WHERE id = ?`, id); err != nil {
		return fmt.Errorf("index: delete image: %w", err)
	}
	return tx.Commit()
}

// GetImage returns the image with the given id or apperr.ErrNotFound.
func (db *DB) GetImage(ctx context.Context, id int64) (*ImageRow, error) {
	return db.getImage(ctx, "id = ?", id)
}

// GetImageByPath returns the image stored at path or apperr.ErrNotFound.
func (db *DB) GetImageByPath(ctx context.Context, path string) (*ImageRow, error) {
	return db.getImage(ctx, "path = ?", path)
}

func (db *DB) getImage(ctx context.Context, where string, arg any) (*ImageRow, error) {
	var (
		r                    ImageRow
		bucketID, bucketName sql.NullString
		modified, taken      sql.NullInt64
	)
	err := db.conn.QueryRowContext(ctx, `
		SELECT id, path, bucket_id, bucket_name, display_name, mime_type,
		       width, height, size, fingerprint, date_modified, date_taken
		FROM images WHERE `+where, arg).Scan(&r.ID, &r.Path, &bucketID, &bucketName, &r.DisplayName, &r.MIME,
		&r.Width, &r.Height, &r.Size, &r.Fingerprint, &modified, &taken)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("index: get image: %w", err)
	}
	r.BucketID = bucketID.String
	r.BucketName = bucketName.String
	if modified.Valid {
		r.ModifiedAt = time.Unix(modified.Int64, 0).UTC()
	}
	if taken.Valid {
		r.TakenAt = time.UnixMilli(taken.Int64).UTC()
	}
	return &r, nil
}

// AllFingerprints returns path -> fingerprint for every indexed image.
func (db *DB) AllFingerprints() (map[string]string, error) {
	rows, err := db.conn.Query(`SELECT path, fingerprint FROM images`)
	if err != nil {
		return nil, fmt.Errorf("index: all fingerprints: %w", err)
	}
	defer rows.Close()
	out := make(map[string]string)
	for rows.Next() {
		var p, fp string
		if err := rows.Scan(&p, &fp); err != nil {
			return nil, err
		}
		out[p] = fp
	}
	return out, rows.Err()
}

// Count returns the number of indexed images.
func (db *DB) Count() (int, error) {
	var n int
	if err := db.conn.QueryRow(`SELECT count(*) FROM images`).Scan(&n); err != nil {
		return 0, fmt.Errorf("index: count: %w", err)
	}
	return n, nil
}
