// Package mediatest provides an in-memory media.Source for tests.
package mediatest

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/starford/quikpix/internal/media"
)

// Image is a convenience description of a well-formed index row.
type Image struct {
	ID         int64
	Bucket     string
	BucketName string
	Path       string
	Modified   int64 // unix seconds
	Taken      int64 // unix milliseconds, 0 = unknown
	MIME       string
}

// Row converts the image to a fully populated media.Row.
func (im Image) Row() media.Row {
	r := media.Row{
		ID:           sql.NullInt64{Int64: im.ID, Valid: true},
		BucketID:     sql.NullString{String: im.Bucket, Valid: true},
		BucketName:   sql.NullString{String: im.BucketName, Valid: im.BucketName != ""},
		Path:         sql.NullString{String: im.Path, Valid: im.Path != ""},
		DateModified: sql.NullInt64{Int64: im.Modified, Valid: true},
	}
	if im.Taken > 0 {
		r.DateTaken = sql.NullInt64{Int64: im.Taken, Valid: true}
	}
	return r
}

// Source serves canned rows. Rows are returned in the stored order unless the
// query asks for a bucket, in which case only that bucket's rows are returned.
// Sorting is the caller's responsibility except for SortDateTaken, which is
// applied so bucket listings behave like the real index.
type Source struct {
	mu      sync.Mutex
	rows    []media.Row
	err     error
	iterErr error
	nilCur  bool
	gate    chan struct{}

	queries atomic.Int64
	last    media.Query
}

// New returns a Source seeded with images in traversal order.
func New(images ...Image) *Source {
	s := &Source{}
	s.SetImages(images...)
	return s
}

// SetImages replaces the served rows.
func (s *Source) SetImages(images ...Image) {
	rows := make([]media.Row, len(images))
	for i, im := range images {
		rows[i] = im.Row()
	}
	s.SetRows(rows...)
}

// SetRows replaces the served rows with raw, possibly malformed, rows.
func (s *Source) SetRows(rows ...media.Row) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = append([]media.Row(nil), rows...)
}

// FailWith makes Query return err.
func (s *Source) FailWith(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

// FailIterationWith makes the cursor report err after all rows.
func (s *Source) FailIterationWith(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.iterErr = err
}

// ReturnNilCursor makes Query return (nil, nil).
func (s *Source) ReturnNilCursor() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nilCur = true
}

// Block makes the next queries wait until the returned release func is called
// or the query context ends.
func (s *Source) Block() (release func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	gate := make(chan struct{})
	s.gate = gate
	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			if s.gate == gate {
				s.gate = nil
			}
			s.mu.Unlock()
			close(gate)
		})
	}
}

// Queries returns how many times Query was called.
func (s *Source) Queries() int {
	return int(s.queries.Load())
}

// LastQuery returns the most recent query.
func (s *Source) LastQuery() media.Query {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

// Query implements media.Source.
func (s *Source) Query(ctx context.Context, q media.Query) (media.Cursor, error) {
	s.queries.Add(1)
	s.mu.Lock()
	s.last = q
	gate := s.gate
	rows := append([]media.Row(nil), s.rows...)
	err, iterErr, nilCur := s.err, s.iterErr, s.nilCur
	s.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	if nilCur {
		return nil, nil
	}

	if q.BucketID != "" {
		filtered := rows[:0]
		for _, r := range rows {
			if r.BucketID.String == q.BucketID {
				filtered = append(filtered, r)
			}
		}
		rows = filtered
	}
	if q.SortBy == media.SortDateTaken {
		sort.SliceStable(rows, func(i, j int) bool {
			return rows[i].DateTaken.Int64 > rows[j].DateTaken.Int64
		})
	}
	if q.Limit > 0 && len(rows) > q.Limit {
		rows = rows[:q.Limit]
	}
	return &cursor{rows: rows, pos: -1, err: iterErr}, nil
}

type cursor struct {
	rows   []media.Row
	pos    int
	err    error
	closed bool
}

func (c *cursor) Next() bool {
	if c.closed {
		return false
	}
	c.pos++
	return c.pos < len(c.rows)
}

func (c *cursor) Row() media.Row { return c.rows[c.pos] }

func (c *cursor) Err() error {
	if c.pos >= len(c.rows) {
		return c.err
	}
	return nil
}

func (c *cursor) Close() error {
	if c.closed {
		return errors.New("mediatest: cursor closed twice")
	}
	c.closed = true
	return nil
}
