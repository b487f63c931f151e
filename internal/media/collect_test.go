package media_test

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/starford/quikpix/internal/apperr"
	"github.com/starford/quikpix/internal/media"
	"github.com/starford/quikpix/internal/media/mediatest"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

func TestCollect_PreservesOrder(t *testing.T) {
	src := mediatest.New(
		mediatest.Image{ID: 2, Bucket: "DCIM/Camera", BucketName: "Camera", Path: "DCIM/Camera/b.jpg", Modified: 200},
		mediatest.Image{ID: 1, Bucket: "DCIM/Camera", BucketName: "Camera", Path: "DCIM/Camera/a.jpg", Modified: 100},
	)
	recs, err := media.Collect(context.Background(), src, media.Query{}, media.RefWithBase("/api/images"), discard)
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("len = %d, want 2", len(recs))
	}
	if recs[0].ID != 2 || recs[1].ID != 1 {
		t.Errorf("order = [%d %d], want [2 1]", recs[0].ID, recs[1].ID)
	}
	if recs[0].Ref != "/api/images/2" {
		t.Errorf("ref = %q", recs[0].Ref)
	}
	if recs[0].DisplayName != "b.jpg" || recs[0].FolderName != "Camera" {
		t.Errorf("record = %+v", recs[0])
	}
	if !recs[0].ModifiedAt.Equal(time.Unix(200, 0)) {
		t.Errorf("modified = %v", recs[0].ModifiedAt)
	}
}

func TestCollect_SkipsMalformedRows(t *testing.T) {
	good := mediatest.Image{ID: 1, Bucket: "a", Path: "a/x.png", Modified: 10}.Row()
	noID := good
	noID.ID = sql.NullInt64{}
	noPath := good
	noPath.Path = sql.NullString{}
	noDate := good
	noDate.DateModified = sql.NullInt64{}

	src := mediatest.New()
	src.SetRows(noID, good, noPath, noDate)

	recs, err := media.Collect(context.Background(), src, media.Query{}, nil, discard)
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if len(recs) != 1 || recs[0].ID != 1 {
		t.Errorf("recs = %+v, want only id 1", recs)
	}
}

func TestCollect_SourceUnavailable(t *testing.T) {
	cases := map[string]func(*mediatest.Source){
		"query error": func(s *mediatest.Source) { s.FailWith(errors.New("provider crashed")) },
		"nil cursor":  func(s *mediatest.Source) { s.ReturnNilCursor() },
		"iter error":  func(s *mediatest.Source) { s.FailIterationWith(errors.New("cursor died")) },
	}
	for name, setup := range cases {
		t.Run(name, func(t *testing.T) {
			src := mediatest.New(mediatest.Image{ID: 1, Bucket: "a", Path: "a/x.png", Modified: 1})
			setup(src)
			_, err := media.Collect(context.Background(), src, media.Query{}, nil, discard)
			if !errors.Is(err, apperr.ErrSourceUnavailable) {
				t.Errorf("err = %v, want ErrSourceUnavailable", err)
			}
		})
	}
}

func TestCollect_Empty(t *testing.T) {
	recs, err := media.Collect(context.Background(), mediatest.New(), media.Query{}, nil, discard)
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if len(recs) != 0 {
		t.Errorf("len = %d, want 0", len(recs))
	}
}

func TestCollect_CancelledContext(t *testing.T) {
	src := mediatest.New(mediatest.Image{ID: 1, Bucket: "a", Path: "a/x.png", Modified: 1})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := media.Collect(ctx, src, media.Query{}, nil, discard)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestToRecord_TakenAt(t *testing.T) {
	row := mediatest.Image{ID: 5, Bucket: "b", Path: "b/y.jpg", Modified: 100, Taken: 300_000}.Row()
	rec, err := media.ToRecord(row, nil)
	if err != nil {
		t.Fatalf("ToRecord: %v", err)
	}
	if !rec.TakenAt.Equal(time.Unix(300, 0)) {
		t.Errorf("taken = %v", rec.TakenAt)
	}
	if !rec.Recency().Equal(time.Unix(300, 0)) {
		t.Errorf("recency = %v, want taken time", rec.Recency())
	}
	if rec.Ref != "" {
		t.Errorf("ref = %q, want empty without RefFunc", rec.Ref)
	}
}

func TestToRecord_MissingBucketKeepsRecord(t *testing.T) {
	row := mediatest.Image{ID: 7, Path: "loose.jpg", Modified: 1}.Row()
	row.BucketID = sql.NullString{}
	rec, err := media.ToRecord(row, nil)
	if err != nil {
		t.Fatalf("ToRecord: %v", err)
	}
	if rec.FolderKey != "" {
		t.Errorf("folder key = %q, want empty", rec.FolderKey)
	}
}
