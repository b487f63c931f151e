package index

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/starford/quikpix/internal/models"
)

// Prefs returns the stored pin/hide preferences keyed by bucket id.
func (db *DB) Prefs(ctx context.Context) (map[string]models.CategoryPrefs, error) {
	rows, err := db.conn.QueryContext(ctx, `SELECT bucket_id, pinned, hidden FROM category_prefs`)
	if err != nil {
		return nil, fmt.Errorf("index: prefs: %w", err)
	}
	defer rows.Close()
	out := make(map[string]models.CategoryPrefs)
	for rows.Next() {
		var key string
		var p models.CategoryPrefs
		if err := rows.Scan(&key, &p.Pinned, &p.Hidden); err != nil {
			return nil, err
		}
		out[key] = p
	}
	return out, rows.Err()
}

// SetPinned stores the pinned flag for a bucket.
func (db *DB) SetPinned(ctx context.Context, bucketID string, pinned bool) error {
	return db.UpdatePrefs(ctx, bucketID, &pinned, nil)
}

// SetHidden stores the hidden flag for a bucket.
func (db *DB) SetHidden(ctx context.Context, bucketID string, hidden bool) error {
	return db.UpdatePrefs(ctx, bucketID, nil, &hidden)
}

// UpdatePrefs applies the non-nil flags for a bucket in one transaction.
func (db *DB) UpdatePrefs(ctx context.Context, bucketID string, pinned, hidden *bool) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO category_prefs (bucket_id) VALUES (?) ON CONFLICT(bucket_id) DO NOTHING`, bucketID); err != nil {
		return fmt.Errorf("index: update prefs: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `
		UPDATE category_prefs
		SET pinned = COALESCE(?, pinned), hidden = COALESCE(?, hidden)
		WHERE bucket_id = ?
	`, nullBool(pinned), nullBool(hidden), bucketID); err != nil {
		return fmt.Errorf("index: update prefs: %w", err)
	}
	if err := prunePrefs(ctx, tx, bucketID); err != nil {
		return err
	}
	return tx.Commit()
}

func nullBool(b *bool) sql.NullBool {
	if b == nil {
		return sql.NullBool{}
	}
	return sql.NullBool{Bool: *b, Valid: true}
}

// prunePrefs drops a row that no longer carries any preference.
func prunePrefs(ctx context.Context, tx *sql.Tx, bucketID string) error {
	_, err := tx.ExecContext(ctx,
		`DELETE FROM category_prefs WHERE bucket_id = ? AND pinned = 0 AND hidden = 0`, bucketID)
	if err != nil {
		return fmt.Errorf("index: prune prefs: %w", err)
	}
	return nil
}
