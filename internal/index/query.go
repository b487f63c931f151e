package index

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/starford/quikpix/internal/media"
	"github.com/starford/quikpix/internal/probe"
)

// Query implements media.Source. Rows are ordered by the requested recency
// column descending; images without a taken date fall back to their
// modification date.
func (db *DB) Query(ctx context.Context, q media.Query) (media.Cursor, error) {
	mimes := q.MIMETypes
	if len(mimes) == 0 {
		mimes = probe.DefaultMIMETypes
	}

	var sb strings.Builder
	args := make([]any, 0, len(mimes)+2)
	sb.WriteString(`SELECT id, bucket_id, bucket_name, path, date_modified, date_taken FROM images WHERE mime_type IN (`)
	for i, m := range mimes {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString("?")
		args = append(args, m)
	}
	sb.WriteString(")")

	if q.BucketID != "" {
		sb.WriteString(" AND bucket_id = ?")
		args = append(args, q.BucketID)
	}

	switch q.SortBy {
	case media.SortDateTaken:
		sb.WriteString(" ORDER BY COALESCE(date_taken, date_modified * 1000) DESC, id DESC")
	case media.SortDateModified, "":
		sb.WriteString(" ORDER BY date_modified DESC, id DESC")
	default:
		return nil, fmt.Errorf("index: unknown sort column %q", q.SortBy)
	}

	if q.Limit > 0 {
		sb.WriteString(" LIMIT ?")
		args = append(args, q.Limit)
	}

	rows, err := db.conn.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("index: query: %w", err)
	}
	return &cursor{rows: rows}, nil
}

// cursor adapts *sql.Rows to media.Cursor.
type cursor struct {
	rows *sql.Rows
	row  media.Row
	err  error
}

func (c *cursor) Next() bool {
	if c.err != nil || !c.rows.Next() {
		return false
	}
	var r media.Row
	if err := c.rows.Scan(&r.ID, &r.BucketID, &r.BucketName, &r.Path, &r.DateModified, &r.DateTaken); err != nil {
		c.err = fmt.Errorf("index: scan row: %w", err)
		return false
	}
	c.row = r
	return true
}

func (c *cursor) Row() media.Row { return c.row }

func (c *cursor) Err() error {
	if c.err != nil {
		return c.err
	}
	return c.rows.Err()
}

func (c *cursor) Close() error { return c.rows.Close() }
