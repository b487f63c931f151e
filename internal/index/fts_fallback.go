//go:build !sqlite_fts5

package index

import (
	"database/sql"
	"fmt"
)

func initFTS(_ *sql.DB) error {
	// FTS5 not available; name search uses LIKE on the images table.
	return nil
}

func ftsUpsert(_ *sql.Tx, _ int64, _, _, _ string) error {
	return nil
}

func ftsDelete(_ *sql.Tx, _ int64) {}

// Search performs a LIKE-based search (fallback when FTS5 is not compiled in).
func (db *DB) Search(query string, limit int) ([]SearchResult, error) {
	if limit <= 0 {
		limit = 20
	}
	like := "%" + query + "%"
	rows, err := db.conn.Query(`
		SELECT id, path, COALESCE(bucket_id, ''), display_name
		FROM images
		WHERE display_name LIKE ? OR path LIKE ? OR bucket_name LIKE ?
		ORDER BY date_modified DESC, id DESC
		LIMIT ?
	`, like, like, like, limit)
	if err != nil {
		return nil, fmt.Errorf("index: search: %w", err)
	}
	defer rows.Close()

	var out []SearchResult
	for rows.Next() {
		var r SearchResult
		if err := rows.Scan(&r.ID, &r.Path, &r.BucketID, &r.DisplayName); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
