package gallery

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/starford/quikpix/internal/apperr"
	"github.com/starford/quikpix/internal/index"
	"github.com/starford/quikpix/internal/media/mediatest"
	"github.com/starford/quikpix/internal/viewer"
)

type fakeLookup struct {
	rows    map[int64]*index.ImageRow
	queries []string
}

func (f *fakeLookup) GetImage(_ context.Context, id int64) (*index.ImageRow, error) {
	if r, ok := f.rows[id]; ok {
		return r, nil
	}
	return nil, apperr.ErrNotFound
}

func (f *fakeLookup) Search(q string, _ int) ([]index.SearchResult, error) {
	f.queries = append(f.queries, q)
	return nil, nil
}

func newService(t *testing.T) (*Service, *fakeLookup) {
	t.Helper()
	lookup := &fakeLookup{rows: map[int64]*index.ImageRow{
		2: {ID: 2, Path: "DCIM/Camera/b.jpg", BucketID: "DCIM/Camera", DisplayName: "b.jpg", MIME: "image/jpeg", Width: 4, Height: 3, ModifiedAt: time.Unix(200, 0)},
	}}
	lib := newLibrary(t, mediatest.New(sampleImages()...), newMemPrefs(), Options{})
	svc := NewService(lib, NewSessions(viewer.DefaultConfig()), lookup, nil)
	if _, err := svc.RefreshAndWait(context.Background()); err != nil {
		t.Fatalf("RefreshAndWait: %v", err)
	}
	return svc, lookup
}

func TestService_Categories(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	cats, snap, err := svc.Categories(ctx, "count")
	if err != nil {
		t.Fatal(err)
	}
	if snap.Status != StatusReady || len(cats) != 3 || cats[0].Key != "DCIM/Camera" {
		t.Errorf("categories = %v, snapshot %+v", keys(cats), snap)
	}
	if _, _, err := svc.Categories(ctx, "size"); !errors.Is(err, apperr.ErrInvalidArgument) {
		t.Errorf("bad sort err = %v", err)
	}
}

func TestService_UpdateCategory(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	yes := true

	cat, err := svc.UpdateCategory(ctx, "Download", CategoryUpdate{Pinned: &yes, Hidden: &yes})
	if err != nil {
		t.Fatal(err)
	}
	if !cat.Pinned || !cat.Hidden {
		t.Errorf("category = %+v", cat)
	}
	hidden, _ := svc.HiddenCategories(ctx)
	if len(hidden) != 1 || hidden[0].Key != "Download" {
		t.Errorf("hidden = %v", keys(hidden))
	}
	if _, err := svc.UpdateCategory(ctx, "Download", CategoryUpdate{}); !errors.Is(err, apperr.ErrInvalidArgument) {
		t.Errorf("empty update err = %v", err)
	}
}

func TestService_UpdateCategorySingleWrite(t *testing.T) {
	prefs := newMemPrefs()
	lib := newLibrary(t, mediatest.New(sampleImages()...), prefs, Options{})
	svc := NewService(lib, NewSessions(viewer.DefaultConfig()), &fakeLookup{}, nil)
	ctx := context.Background()
	if _, err := svc.RefreshAndWait(ctx); err != nil {
		t.Fatal(err)
	}
	yes := true

	if _, err := svc.UpdateCategory(ctx, "Download", CategoryUpdate{Pinned: &yes, Hidden: &yes}); err != nil {
		t.Fatal(err)
	}
	if prefs.calls != 1 {
		t.Errorf("store writes = %d, want 1 for a combined update", prefs.calls)
	}

	prefs.fail = errors.New("disk full")
	if _, err := svc.UpdateCategory(ctx, "DCIM/Camera", CategoryUpdate{Pinned: &yes, Hidden: &yes}); err == nil {
		t.Fatal("expected store error")
	}
	prefs.fail = nil
	cat, err := lib.Category(ctx, "DCIM/Camera")
	if err != nil {
		t.Fatal(err)
	}
	if cat.Pinned || cat.Hidden {
		t.Errorf("failed update left partial state: %+v", cat)
	}
}

func TestService_Image(t *testing.T) {
	svc, _ := newService(t)
	img, err := svc.Image(context.Background(), 2)
	if err != nil {
		t.Fatal(err)
	}
	if img.Ref != "/api/images/2" || img.Category != "DCIM/Camera" || img.Width != 4 {
		t.Errorf("detail = %+v", img)
	}
	if _, err := svc.Image(context.Background(), 99); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("missing err = %v", err)
	}
	if _, _, err := svc.OpenImage(context.Background(), 2); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("OpenImage without store err = %v", err)
	}
}

func TestService_Search(t *testing.T) {
	svc, lookup := newService(t)
	res, err := svc.Search(context.Background(), "  cam ", 5)
	if err != nil || res == nil {
		t.Fatalf("Search = %v, %v", res, err)
	}
	if len(lookup.queries) != 1 || lookup.queries[0] != "cam" {
		t.Errorf("queries = %q", lookup.queries)
	}
	if _, err := svc.Search(context.Background(), " ", 5); !errors.Is(err, apperr.ErrInvalidArgument) {
		t.Errorf("blank query err = %v", err)
	}
}

func TestService_ViewerLifecycle(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	v, err := svc.OpenViewer(ctx, "DCIM/Camera", 0, 3)
	if err != nil {
		t.Fatal(err)
	}
	// Taken order is [2 3], so id 3 sits at index 1.
	if v.State.Index != 1 || v.Current != "/api/images/3" {
		t.Errorf("view = %+v", v)
	}

	if _, err := svc.ApplyGesture(v.ID, drag(300)); err != nil {
		t.Fatal(err)
	}
	out, err := svc.ApplyGesture(v.ID, Gesture{Kind: GestureRelease})
	if err != nil || !out.Navigated || out.Current != "/api/images/2" {
		t.Errorf("after swipe back = %+v, %v", out, err)
	}

	if err := svc.CloseViewer(v.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Viewer(v.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("closed viewer err = %v", err)
	}
	if _, err := svc.OpenViewer(ctx, "missing", 0, 0); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("missing category err = %v", err)
	}
}
