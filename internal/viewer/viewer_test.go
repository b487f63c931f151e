package viewer

import (
	"errors"
	"testing"
	"time"

	"github.com/starford/quikpix/internal/apperr"
)

var t0 = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

func newViewer(t *testing.T, count, start int) *Viewer {
	t.Helper()
	v, err := New(DefaultConfig(), count, start, t0)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return v
}

func pinch(zoom float64) Move { return Move{Pointers: 2, Zoom: zoom} }

func drag(dx float64) Move { return Move{Pointers: 1, Pan: Vec{X: dx}} }

func TestNew_Validation(t *testing.T) {
	if _, err := New(DefaultConfig(), 0, 0, t0); !errors.Is(err, apperr.ErrInvalidArgument) {
		t.Errorf("empty sequence err = %v", err)
	}
	cfg := DefaultConfig()
	cfg.MinScale = 1.5
	if _, err := New(cfg, 3, 0, t0); !errors.Is(err, apperr.ErrInvalidArgument) {
		t.Errorf("min scale above 1 err = %v", err)
	}
}

func TestNew_ClampsStart(t *testing.T) {
	if got := newViewer(t, 3, 10).State().Index; got != 2 {
		t.Errorf("index = %d, want 2", got)
	}
	if got := newViewer(t, 3, -4).State().Index; got != 0 {
		t.Errorf("index = %d, want 0", got)
	}
}

func TestNew_Defaults(t *testing.T) {
	st := newViewer(t, 5, 0).State()
	if st.Scale != 1 || st.Pan != (Vec{}) || !st.ControlsVisible || st.Mode != ModeIdle {
		t.Errorf("initial state = %+v", st)
	}
}

func TestPinchThenDoubleTap(t *testing.T) {
	v := newViewer(t, 5, 0)
	if owner := v.Move(Move{Pointers: 2, Zoom: 3, Pan: Vec{X: 10, Y: -4}}, t0); owner != OwnerZoom {
		t.Fatalf("owner = %v, want zoom", owner)
	}
	v.Release(t0)
	st := v.State()
	if st.Scale != 3 || st.Mode != ModeZoomed {
		t.Fatalf("after pinch = %+v, want scale 3 zoomed", st)
	}
	if st.Pan != (Vec{X: 10, Y: -4}) {
		t.Errorf("pan = %+v", st.Pan)
	}

	v.DoubleTap(t0)
	st = v.State()
	if st.Scale != 1 || st.Pan != (Vec{}) || st.Mode != ModeIdle {
		t.Errorf("after double tap = %+v, want scale 1 pan 0", st)
	}
}

func TestDoubleTap_ZoomsIdlePage(t *testing.T) {
	v := newViewer(t, 5, 0)
	v.DoubleTap(t0)
	if st := v.State(); st.Scale != 2.5 || st.Mode != ModeZoomed {
		t.Errorf("state = %+v, want 2.5 zoomed", st)
	}
}

func TestDoubleTap_TargetClampedToMax(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxScale = 2
	cfg.DoubleTapScale = 3
	v, err := New(cfg, 1, 0, t0)
	if err != nil {
		t.Fatal(err)
	}
	v.DoubleTap(t0)
	if got := v.State().Scale; got != 2 {
		t.Errorf("scale = %v, want 2", got)
	}
}

func TestPinch_ClampedToBounds(t *testing.T) {
	v := newViewer(t, 5, 0)
	v.Move(pinch(100), t0)
	if got := v.State().Scale; got != 5 {
		t.Errorf("scale = %v, want max 5", got)
	}
	v.Move(pinch(0.001), t0)
	if got := v.State().Scale; got != 1 {
		t.Errorf("scale = %v, want min 1", got)
	}
}

func TestPinch_BackToOneZeroesPan(t *testing.T) {
	v := newViewer(t, 5, 0)
	v.Move(Move{Pointers: 2, Zoom: 2, Pan: Vec{X: 30, Y: 30}}, t0)
	if v.State().Pan == (Vec{}) {
		t.Fatal("precondition: pan should be set while zoomed")
	}
	v.Move(Move{Pointers: 2, Zoom: 0.5, Pan: Vec{X: 5}}, t0)
	st := v.State()
	if st.Scale != 1 || st.Pan != (Vec{}) || st.Mode != ModeIdle {
		t.Errorf("state = %+v, want scale 1 pan 0 idle", st)
	}
}

func TestPinchOut_BelowOneSnapsBackOnRelease(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MinScale = 0.5
	v, err := New(cfg, 2, 0, t0)
	if err != nil {
		t.Fatal(err)
	}
	v.Move(pinch(0.6), t0)
	if got := v.State().Scale; got != 0.6 {
		t.Fatalf("scale = %v, want 0.6 during pinch", got)
	}
	v.Release(t0)
	if st := v.State(); st.Scale != 1 || st.Pan != (Vec{}) {
		t.Errorf("after release = %+v", st)
	}
}

func TestSingleFingerIdle_LeftToPager(t *testing.T) {
	v := newViewer(t, 5, 0)
	owner := v.Move(drag(-20), t0)
	if owner != OwnerPager || owner.ConsumedByZoom() {
		t.Fatalf("owner = %v, want unconsumed pager", owner)
	}
	st := v.State()
	if st.Pan != (Vec{}) || st.Scale != 1 {
		t.Errorf("zoom state touched by pager drag: %+v", st)
	}
	if st.SwipeOffset != -20 {
		t.Errorf("swipe offset = %v", st.SwipeOffset)
	}
}

func TestSingleFingerZoomed_Pans(t *testing.T) {
	v := newViewer(t, 5, 2)
	v.DoubleTap(t0)
	owner := v.Move(drag(-400), t0)
	if owner != OwnerPan || !owner.ConsumedByZoom() {
		t.Fatalf("owner = %v, want consumed pan", owner)
	}
	if v.Release(t0) {
		t.Error("drag while zoomed must not navigate")
	}
	st := v.State()
	if st.Index != 2 || st.Pan.X != -400 {
		t.Errorf("state = %+v, want index 2 pan.x -400", st)
	}
}

func TestPan_BoundedByViewport(t *testing.T) {
	v := newViewer(t, 1, 0)
	v.SetViewport(100, 200)
	v.Move(pinch(3), t0) // max offset = (3-1)*size/2
	v.Move(Move{Pointers: 1, Pan: Vec{X: 1000, Y: -1000}}, t0)
	if got := v.State().Pan; got != (Vec{X: 100, Y: -200}) {
		t.Errorf("pan = %+v, want {100 -200}", got)
	}
}

func TestSwipe_PastThresholdAdvances(t *testing.T) {
	v := newViewer(t, 5, 0)
	v.Move(drag(-120), t0)
	v.Move(drag(-80), t0)
	if !v.Release(t0) {
		t.Fatal("expected navigation")
	}
	if st := v.State(); st.Index != 1 || st.SwipeOffset != 0 || st.Owner != OwnerNone {
		t.Errorf("state = %+v, want index 1", st)
	}
}

func TestSwipe_BelowThresholdSnapsBack(t *testing.T) {
	v := newViewer(t, 5, 0)
	v.Move(drag(-50), t0)
	if v.Release(t0) {
		t.Fatal("unexpected navigation")
	}
	if st := v.State(); st.Index != 0 || st.SwipeOffset != 0 {
		t.Errorf("state = %+v, want index 0 snapped back", st)
	}
}

func TestSwipe_PositiveGoesBackAndClamps(t *testing.T) {
	v := newViewer(t, 5, 1)
	v.Move(drag(200), t0)
	v.Release(t0)
	if got := v.State().Index; got != 0 {
		t.Fatalf("index = %d, want 0", got)
	}
	v.Move(drag(200), t0)
	if v.Release(t0) {
		t.Error("swipe before first page must not navigate")
	}
	if got := v.State().Index; got != 0 {
		t.Errorf("index = %d, want 0", got)
	}

	last := newViewer(t, 5, 4)
	last.Move(drag(-300), t0)
	if last.Release(t0) || last.State().Index != 4 {
		t.Errorf("swipe past last page moved to %d", last.State().Index)
	}
}

func TestSwipe_CancelledBySecondFinger(t *testing.T) {
	v := newViewer(t, 5, 0)
	v.Move(drag(-300), t0)
	v.Move(pinch(1), t0)
	if v.Release(t0) {
		t.Error("swipe abandoned by pinch must not navigate")
	}
	if got := v.State().Index; got != 0 {
		t.Errorf("index = %d", got)
	}
}

func TestNavigation_ResetsZoom(t *testing.T) {
	v := newViewer(t, 5, 0)
	v.Move(Move{Pointers: 2, Zoom: 2, Pan: Vec{X: 3}}, t0)
	if !v.GoTo(3, t0) {
		t.Fatal("GoTo should navigate")
	}
	st := v.State()
	if st.Index != 3 || st.Scale != 1 || st.Pan != (Vec{}) {
		t.Errorf("state = %+v", st)
	}
	if v.GoTo(3, t0) {
		t.Error("GoTo to current page should report no change")
	}
}

func TestTap_TogglesControls(t *testing.T) {
	v := newViewer(t, 2, 0)
	v.Tap(t0)
	if v.State().ControlsVisible {
		t.Fatal("tap should hide controls")
	}
	v.Tap(t0)
	if !v.State().ControlsVisible {
		t.Fatal("second tap should show controls")
	}
}

func TestTick_AutoHidesAfterIdle(t *testing.T) {
	v := newViewer(t, 2, 0)
	if v.Tick(t0.Add(4 * time.Second)) {
		t.Fatal("controls hidden too early")
	}
	v.Move(drag(-10), t0.Add(4*time.Second))
	v.Release(t0.Add(4 * time.Second))
	if v.Tick(t0.Add(8 * time.Second)) {
		t.Fatal("interaction should restart the idle timer")
	}
	if !v.Tick(t0.Add(9 * time.Second)) {
		t.Fatal("controls should hide after 5s without input")
	}
	if v.State().ControlsVisible {
		t.Error("controls still visible")
	}
	if v.Tick(t0.Add(20 * time.Second)) {
		t.Error("hidden controls should not hide again")
	}
}

func TestTick_DisabledWithZeroTimeout(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ControlsTimeout = 0
	v, err := New(cfg, 1, 0, t0)
	if err != nil {
		t.Fatal(err)
	}
	if v.Tick(t0.Add(time.Hour)) {
		t.Error("zero timeout should disable auto-hide")
	}
}

func TestArbitrate_Table(t *testing.T) {
	cases := []struct {
		pointers int
		mode     Mode
		want     Owner
		rule     string
	}{
		{0, ModeIdle, OwnerNone, "lifted"},
		{0, ModeZoomed, OwnerNone, "lifted"},
		{1, ModeIdle, OwnerPager, "single-touch idle"},
		{1, ModeZoomed, OwnerPan, "single-touch zoomed"},
		{2, ModeIdle, OwnerZoom, "multi-touch"},
		{3, ModeZoomed, OwnerZoom, "multi-touch"},
	}
	for _, c := range cases {
		if got := Arbitrate(c.pointers, c.mode); got != c.want {
			t.Errorf("Arbitrate(%d, %v) = %v, want %v", c.pointers, c.mode, got, c.want)
		}
		if got := RuleName(c.pointers, c.mode); got != c.rule {
			t.Errorf("RuleName(%d, %v) = %q, want %q", c.pointers, c.mode, got, c.rule)
		}
	}
}

func TestOwnerAndModeText(t *testing.T) {
	b, _ := OwnerPager.MarshalText()
	if string(b) != "pager" {
		t.Errorf("owner text = %q", b)
	}
	b, _ = ModeZoomed.MarshalText()
	if string(b) != "zoomed" {
		t.Errorf("mode text = %q", b)
	}
}
