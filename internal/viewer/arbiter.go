package viewer

// Mode is the zoom state of the current page.
type Mode int

const (
	// ModeIdle means scale is 1 (or transiently below it during a pinch-out).
	ModeIdle Mode = iota
	// ModeZoomed means scale is above 1.
	ModeZoomed
)

func (m Mode) String() string {
	if m == ModeZoomed {
		return "zoomed"
	}
	return "idle"
}

// MarshalText encodes the mode by name.
func (m Mode) MarshalText() ([]byte, error) { return []byte(m.String()), nil }

func modeFor(scale float64) Mode {
	if scale > 1 {
		return ModeZoomed
	}
	return ModeIdle
}

// Owner is the handler that consumes a pointer movement.
type Owner int

const (
	// OwnerNone: no pointer is down.
	OwnerNone Owner = iota
	// OwnerZoom: pinch handling, consumes scale and pan.
	OwnerZoom
	// OwnerPan: single-finger pan of a zoomed image.
	OwnerPan
	// OwnerPager: the enclosing pager; the zoom handler leaves the event unconsumed.
	OwnerPager
)

func (o Owner) String() string {
	switch o {
	case OwnerZoom:
		return "zoom"
	case OwnerPan:
		return "pan"
	case OwnerPager:
		return "pager"
	default:
		return "none"
	}
}

// MarshalText encodes the owner by name.
func (o Owner) MarshalText() ([]byte, error) { return []byte(o.String()), nil }

// ConsumedByZoom reports whether the zoom handler keeps the event from the pager.
func (o Owner) ConsumedByZoom() bool {
	return o == OwnerZoom || o == OwnerPan
}

type rule struct {
	name  string
	guard func(pointers int, mode Mode) bool
	owner Owner
}

// rules is evaluated top to bottom; the first matching guard wins.
var rules = []rule{
	{"lifted", func(p int, _ Mode) bool { return p <= 0 }, OwnerNone},
	{"multi-touch", func(p int, _ Mode) bool { return p >= 2 }, OwnerZoom},
	{"single-touch zoomed", func(_ int, m Mode) bool { return m == ModeZoomed }, OwnerPan},
	{"single-touch idle", func(int, Mode) bool { return true }, OwnerPager},
}

// Arbitrate decides which handler owns a movement with the given number of
// pressed pointers while the page is in mode.
func Arbitrate(pointers int, mode Mode) Owner {
	return matchRule(pointers, mode).owner
}

// RuleName names the transition that Arbitrate applies, for diagnostics.
func RuleName(pointers int, mode Mode) string {
	return matchRule(pointers, mode).name
}

func matchRule(pointers int, mode Mode) rule {
	for _, r := range rules {
		if r.guard(pointers, mode) {
			return r
		}
	}
	return rules[0]
}
