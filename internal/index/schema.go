// Package index provides the SQLite-backed media index with optional FTS5 name search.
package index

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// date_modified is unix seconds, date_taken unix milliseconds (NULL when unknown).
const coreSchemaSQL = `
CREATE TABLE IF NOT EXISTS images (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	path          TEXT NOT NULL UNIQUE,
	bucket_id     TEXT,
	bucket_name   TEXT,
	display_name  TEXT NOT NULL DEFAULT '',
	mime_type     TEXT NOT NULL DEFAULT '',
	width         INTEGER NOT NULL DEFAULT 0,
	height        INTEGER NOT NULL DEFAULT 0,
	size          INTEGER NOT NULL DEFAULT 0,
	fingerprint   TEXT NOT NULL DEFAULT '',
	date_modified INTEGER,
	date_taken    INTEGER
);

CREATE INDEX IF NOT EXISTS idx_images_bucket ON images(bucket_id);
CREATE INDEX IF NOT EXISTS idx_images_modified ON images(date_modified DESC);

CREATE TABLE IF NOT EXISTS category_prefs (
	bucket_id TEXT PRIMARY KEY,
	pinned    INTEGER NOT NULL DEFAULT 0,
	hidden    INTEGER NOT NULL DEFAULT 0
);
`

// DB wraps a sql.DB with index-specific operations.
type DB struct {
	conn *sql.DB
}

// Open opens (or creates) the SQLite database and applies the schema.
func Open(dsn string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("index: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("index: ping: %w", err)
	}
	if _, err := conn.Exec(coreSchemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("index: apply core schema: %w", err)
	}
	if err := initFTS(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("index: apply fts schema: %w", err)
	}
	return &DB{conn: conn}, nil
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}
