// Package media defines the media index contract consumed by the gallery:
// a filtered, sorted query returning a cursor of nullable rows.
package media

import (
	"context"
	"database/sql"
)

// SortColumn selects the recency column a query orders by (always descending).
type SortColumn string

const (
	SortDateModified SortColumn = "date_modified"
	SortDateTaken    SortColumn = "date_taken"
)

// Query describes one media index request.
type Query struct {
	// MIMETypes restricts results; empty means the index default (jpeg, png).
	MIMETypes []string
	// BucketID restricts results to one folder; empty means all folders.
	BucketID string
	// SortBy is applied descending. Empty means SortDateModified.
	SortBy SortColumn
	// Limit caps the row count; 0 means unlimited.
	Limit int
}

// Row is the projection returned by the index. Every column is nullable
// because the index is an external collaborator.
type Row struct {
	ID           sql.NullInt64
	BucketID     sql.NullString
	BucketName   sql.NullString
	Path         sql.NullString
	DateModified sql.NullInt64 // unix seconds
	DateTaken    sql.NullInt64 // unix milliseconds
}

// Cursor iterates over query results. Callers must Close it.
type Cursor interface {
	Next() bool
	Row() Row
	Err() error
	Close() error
}

// Source is the media index. It is injected into consumers so tests can
// substitute a fake.
type Source interface {
	Query(ctx context.Context, q Query) (Cursor, error)
}
