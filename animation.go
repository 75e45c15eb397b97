package preview

import (
	"math"

	"github.com/tanema/gween/ease"
)

// AnimationType identifies one of the built-in entrance animations.
type AnimationType uint8

const (
	AnimFadeIn       AnimationType = iota // opacity ramp over Duration
	AnimFloatInUp                         // eased offset from below + fade
	AnimFloatInDown                       // eased offset from above + fade
	AnimFloatInLeft                       // eased offset from the right + fade
	AnimFloatInRight                      // eased offset from the left + fade
	AnimScrollUp                          // continuous upward drift over the element lifetime
	AnimWipeIn                            // rectangular reveal clip over Duration
	AnimSpinIn                            // rotate 360°→0° + fade over Duration
)

// String returns the stable name used in scene documents.
func (t AnimationType) String() string {
	switch t {
	case AnimFadeIn:
		return "fade-in"
	case AnimFloatInUp:
		return "float-in-up"
	case AnimFloatInDown:
		return "float-in-down"
	case AnimFloatInLeft:
		return "float-in-left"
	case AnimFloatInRight:
		return "float-in-right"
	case AnimScrollUp:
		return "scroll-up"
	case AnimWipeIn:
		return "wipe-in"
	case AnimSpinIn:
		return "spin-in"
	default:
		return "unknown"
	}
}

// animationTypeFromString is the inverse of AnimationType.String.
func animationTypeFromString(s string) (AnimationType, bool) {
	for t := AnimFadeIn; t <= AnimSpinIn; t++ {
		if t.String() == s {
			return t, true
		}
	}
	return 0, false
}

// Animation declares one entrance animation on an element. Duration is in
// milliseconds; zero selects the per-type default. Scroll-up ignores Duration
// entirely: it runs for the element's whole lifetime, driven by percent
// progress. That split is intentional and mirrors the observed behavior.
type Animation struct {
	Type     AnimationType
	Duration float64
}

// Per-type defaults (milliseconds) and the float-in offset amplitude.
const (
	defaultFadeMs  = 350
	defaultFloatMs = 350
	defaultWipeMs  = 2000
	defaultSpinMs  = 2000
	floatOffset    = 100
)

// effectiveDuration resolves the declared duration against the type default.
func (a Animation) effectiveDuration() float64 {
	if a.Duration > 0 {
		return a.Duration
	}
	switch a.Type {
	case AnimWipeIn:
		return defaultWipeMs
	case AnimSpinIn:
		return defaultSpinMs
	case AnimFadeIn:
		return defaultFadeMs
	default:
		return defaultFloatMs
	}
}

// animationsEqual reports whether two animation sets are identical in order,
// type, and duration. Used by renderers to detect re-arm conditions.
func animationsEqual(a, b []Animation) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// animPhase is the per-renderer animation state machine. ARMED means the
// last frame applied animation transforms that a pause/hide must undo;
// IDLE means the steady state is already restored. The two-state machine
// makes the single-reset guarantee structural: reset only fires on the
// ARMED→IDLE edge, and resetting an IDLE renderer is a no-op.
type animPhase uint8

const (
	animIdle animPhase = iota
	animArmed
)

// applyAnimation applies one animation at the element-local elapsed time.
// Position effects go to the wrapper's animation offset; content effects
// (alpha, rotation, clip, pivot) go to the visual node, leaving the authored
// element transform on the wrapper untouched.
func applyAnimation(a Animation, elapsed, percent float64, wrapper, visual *Node, stage Vec2) {
	d := a.effectiveDuration()

	switch a.Type {
	case AnimFadeIn:
		visual.SetAlpha(math.Min(elapsed/d, 1))

	case AnimFloatInUp, AnimFloatInDown, AnimFloatInLeft, AnimFloatInRight:
		p := clamp01(elapsed / d)
		eased := float64(ease.OutCubic(float32(p), 0, 1, 1))
		off := (1 - eased) * floatOffset
		switch a.Type {
		case AnimFloatInUp:
			wrapper.SetOffset(0, off)
		case AnimFloatInDown:
			wrapper.SetOffset(0, -off)
		case AnimFloatInLeft:
			wrapper.SetOffset(off, 0)
		case AnimFloatInRight:
			wrapper.SetOffset(-off, 0)
		}
		visual.SetAlpha(eased)

	case AnimScrollUp:
		// Not time-boxed: drifts for the whole element lifetime.
		h := visual.Height * wrapper.ScaleY
		wrapper.SetOffset(wrapper.OffsetX, -percent/100*h)

	case AnimWipeIn:
		p := clamp01(elapsed / d)
		visual.Clip = &Rect{Width: visual.Width * p, Height: visual.Height}
		visual.MarkDirty()

	case AnimSpinIn:
		p := clamp01(elapsed / d)
		cx, cy := visual.Width/2, visual.Height/2
		visual.SetPivot(cx, cy)
		visual.SetPosition(cx, cy)
		visual.SetRotation((1 - p) * 2 * math.Pi)
		visual.SetAlpha(p)
	}
}

// resetAnimation restores the steady-state transform for one animation:
// opacity 1, zero offset and rotation, full clip, no custom pivot.
func resetAnimation(a Animation, wrapper, visual *Node) {
	switch a.Type {
	case AnimFadeIn:
		visual.SetAlpha(1)

	case AnimFloatInUp, AnimFloatInDown, AnimFloatInLeft, AnimFloatInRight:
		wrapper.SetOffset(0, 0)
		visual.SetAlpha(1)

	case AnimScrollUp:
		wrapper.SetOffset(wrapper.OffsetX, 0)

	case AnimWipeIn:
		visual.Clip = nil
		visual.MarkDirty()

	case AnimSpinIn:
		visual.SetPivot(0, 0)
		visual.SetPosition(0, 0)
		visual.SetRotation(0)
		visual.SetAlpha(1)
	}
}
