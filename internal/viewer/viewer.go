// Package viewer models a paged, zoomable image viewer as a deterministic
// state machine. It consumes abstract gesture events and never renders.
package viewer

import (
	"fmt"
	"math"
	"time"

	"github.com/starford/quikpix/internal/apperr"
)

// Vec is a 2D offset in pixels.
type Vec struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func (v Vec) add(o Vec) Vec { return Vec{v.X + o.X, v.Y + o.Y} }

// Config holds the gesture tuning.
type Config struct {
	MinScale        float64
	MaxScale        float64
	DoubleTapScale  float64
	SwipeThreshold  float64
	ControlsTimeout time.Duration
}

// DefaultConfig returns the stock tuning.
func DefaultConfig() Config {
	return Config{
		MinScale:        1,
		MaxScale:        5,
		DoubleTapScale:  2.5,
		SwipeThreshold:  150,
		ControlsTimeout: 5 * time.Second,
	}
}

// Move is one pointer movement sample.
type Move struct {
	// Pointers is the number of pressed pointers.
	Pointers int `json:"pointers"`
	// Zoom is the multiplicative scale change; 0 means no change.
	Zoom float64 `json:"zoom"`
	// Pan is the centroid translation since the previous sample.
	Pan Vec `json:"pan"`
}

// State is a snapshot of the viewer.
type State struct {
	Index           int     `json:"index"`
	Count           int     `json:"count"`
	Scale           float64 `json:"scale"`
	Pan             Vec     `json:"pan"`
	ControlsVisible bool    `json:"controls_visible"`
	SwipeOffset     float64 `json:"swipe_offset"`
	Mode            Mode    `json:"mode"`
	Owner           Owner   `json:"owner"`
}

// Viewer holds the state of one open image sequence. It is not safe for
// concurrent use.
type Viewer struct {
	cfg   Config
	count int

	index    int
	scale    float64
	pan      Vec
	controls bool
	swipe    float64
	owner    Owner
	viewport Vec

	lastInput time.Time
}

// New opens a viewer over count images at start (clamped). Controls start
// visible and the idle timer starts at now.
func New(cfg Config, count, start int, now time.Time) (*Viewer, error) {
	if count <= 0 {
		return nil, fmt.Errorf("viewer: empty sequence: %w", apperr.ErrInvalidArgument)
	}
	if cfg.MinScale <= 0 || cfg.MaxScale < 1 || cfg.MinScale > 1 {
		return nil, fmt.Errorf("viewer: scale bounds [%g, %g] must contain 1: %w",
			cfg.MinScale, cfg.MaxScale, apperr.ErrInvalidArgument)
	}
	return &Viewer{
		cfg:       cfg,
		count:     count,
		index:     clampInt(start, 0, count-1),
		scale:     1,
		controls:  true,
		lastInput: now,
	}, nil
}

// SetViewport sets the page size used to bound panning. A zero size disables
// the bound.
func (v *Viewer) SetViewport(width, height float64) {
	v.viewport = Vec{width, height}
	v.pan = v.boundPan(v.pan)
}

// State returns a snapshot.
func (v *Viewer) State() State {
	return State{
		Index:           v.index,
		Count:           v.count,
		Scale:           v.scale,
		Pan:             v.pan,
		ControlsVisible: v.controls,
		SwipeOffset:     v.swipe,
		Mode:            v.Mode(),
		Owner:           v.owner,
	}
}

// Mode returns the zoom state.
func (v *Viewer) Mode() Mode { return modeFor(v.scale) }

// Tap toggles the controls.
func (v *Viewer) Tap(now time.Time) {
	v.lastInput = now
	v.controls = !v.controls
}

// DoubleTap zooms an idle page to the double-tap scale and resets a zoomed
// page to scale 1 with no pan.
func (v *Viewer) DoubleTap(now time.Time) {
	v.lastInput = now
	v.swipe = 0
	if v.Mode() == ModeZoomed {
		v.resetZoom()
		return
	}
	v.scale = v.clampScale(v.cfg.DoubleTapScale)
	v.pan = Vec{}
}

// Move feeds one movement sample and returns the handler that owned it.
// When the returned owner is OwnerPager the zoom handler did not consume
// the event and the horizontal delta accumulates as a swipe.
func (v *Viewer) Move(m Move, now time.Time) Owner {
	v.lastInput = now
	owner := Arbitrate(m.Pointers, v.Mode())
	if v.owner == OwnerPager && owner != OwnerPager {
		// Another handler took over mid-swipe; the swipe is abandoned.
		v.swipe = 0
	}
	v.owner = owner

	switch owner {
	case OwnerZoom:
		zoom := m.Zoom
		if zoom <= 0 {
			zoom = 1
		}
		v.scale = v.clampScale(v.scale * zoom)
		if v.scale <= 1 {
			v.pan = Vec{}
		} else {
			v.pan = v.boundPan(v.pan.add(m.Pan))
		}
	case OwnerPan:
		v.pan = v.boundPan(v.pan.add(m.Pan))
	case OwnerPager:
		v.swipe += m.Pan.X
	}
	return owner
}

// Release ends the current gesture. A pager drag whose distance exceeds the
// swipe threshold moves one page (negative = next, positive = previous,
// clamped to the sequence); shorter drags snap back. A pinch released below
// scale 1 snaps back to 1. It reports whether the page changed.
func (v *Viewer) Release(now time.Time) bool {
	v.lastInput = now
	navigated := false
	if v.owner == OwnerPager && math.Abs(v.swipe) > v.cfg.SwipeThreshold {
		step := 1
		if v.swipe > 0 {
			step = -1
		}
		navigated = v.goTo(v.index + step)
	}
	v.swipe = 0
	v.owner = OwnerNone
	if v.scale < 1 {
		v.resetZoom()
	}
	return navigated
}

// GoTo jumps to index (clamped) and reports whether the page changed.
func (v *Viewer) GoTo(index int, now time.Time) bool {
	v.lastInput = now
	return v.goTo(index)
}

// Tick advances the idle timer and hides the controls once no input has
// arrived for the controls timeout. It reports whether the controls were
// hidden by this call.
func (v *Viewer) Tick(now time.Time) bool {
	if !v.controls || v.cfg.ControlsTimeout <= 0 {
		return false
	}
	if now.Sub(v.lastInput) < v.cfg.ControlsTimeout {
		return false
	}
	v.controls = false
	return true
}

func (v *Viewer) goTo(index int) bool {
	target := clampInt(index, 0, v.count-1)
	if target == v.index {
		return false
	}
	v.index = target
	v.resetZoom()
	v.swipe = 0
	return true
}

func (v *Viewer) resetZoom() {
	v.scale = 1
	v.pan = Vec{}
}

func (v *Viewer) clampScale(s float64) float64 {
	return math.Max(v.cfg.MinScale, math.Min(v.cfg.MaxScale, s))
}

func (v *Viewer) boundPan(p Vec) Vec {
	if v.scale <= 1 {
		return Vec{}
	}
	if v.viewport.X > 0 {
		maxX := (v.scale - 1) * v.viewport.X / 2
		p.X = math.Max(-maxX, math.Min(maxX, p.X))
	}
	if v.viewport.Y > 0 {
		maxY := (v.scale - 1) * v.viewport.Y / 2
		p.Y = math.Max(-maxY, math.Min(maxY, p.Y))
	}
	return p
}

func clampInt(v, lo, hi int) int {
	return max(lo, min(hi, v))
}
