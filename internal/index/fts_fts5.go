//go:build sqlite_fts5

package index

import (
	"database/sql"
	"fmt"
)

func initFTS(conn *sql.DB) error {
	_, err := conn.Exec(`
		CREATE VIRTUAL TABLE IF NOT EXISTS images_fts USING fts5(
			image_id UNINDEXED,
			path,
			display_name,
			bucket_name,
			tokenize = 'unicode61 remove_diacritics 2'
		);
	`)
	return err
}

func ftsUpsert(tx *sql.Tx, id int64, path, displayName, bucketName string) error {
	_, _ = tx.Exec(`DELETE FROM images_fts WHERE image_id = ?`, id)
	_, err := tx.Exec(`INSERT INTO images_fts (image_id, path, display_name, bucket_name) VALUES (?, ?, ?, ?)`,
		id, path, displayName, bucketName)
	if err != nil {
		return fmt.Errorf("index: upsert fts: %w", err)
	}
	return nil
}

func ftsDelete(tx *sql.Tx, id int64) {
	_, _ = tx.Exec(`DELETE FROM images_fts WHERE image_id = ?`, id)
}

// Search performs an FTS5 search over image paths and names.
func (db *DB) Search(query string, limit int) ([]SearchResult, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := db.conn.Query(`
		SELECT i.id, i.path, COALESCE(i.bucket_id, ''), i.display_name
		FROM images_fts f
		JOIN images i ON i.id = f.image_id
		WHERE images_fts MATCH ?
		ORDER BY rank
		LIMIT ?
	`, query, limit)
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
