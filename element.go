package preview

import (
	"strconv"
	"strings"
)

// ElementKind distinguishes the timeline item variants.
type ElementKind uint8

const (
	KindText        ElementKind = iota // styled text block
	KindImage                          // still image from a resolved source
	KindShape                          // parametric vector shape
	KindProgressBar                    // progress indicator driven by element progress
	KindWave                           // spectrum-driven waveform visual
	KindAudio                          // audio-only playback element
	KindVideo                          // video playback element
	KindSubtitle                       // text element driven by timed cues
)

// String returns the stable name used in scene documents.
func (k ElementKind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindImage:
		return "image"
	case KindShape:
		return "shape"
	case KindProgressBar:
		return "progress"
	case KindWave:
		return "wave"
	case KindAudio:
		return "audio"
	case KindVideo:
		return "video"
	case KindSubtitle:
		return "subtitle"
	default:
		return "unknown"
	}
}

// kindFromString is the inverse of ElementKind.String.
func kindFromString(s string) (ElementKind, bool) {
	switch s {
	case "text":
		return KindText, true
	case "image":
		return KindImage, true
	case "shape":
		return KindShape, true
	case "progress":
		return KindProgressBar, true
	case "wave":
		return KindWave, true
	case "audio":
		return KindAudio, true
	case "video":
		return KindVideo, true
	case "subtitle":
		return KindSubtitle, true
	}
	return 0, false
}

// ShapeKind selects the parametric geometry of a shape element.
type ShapeKind uint8

const (
	ShapeCircle ShapeKind = iota
	ShapeSquare
	ShapeTriangle
	ShapeStar
	ShapeHexagon
)

// String returns the stable name used in scene documents.
func (k ShapeKind) String() string {
	switch k {
	case ShapeSquare:
		return "square"
	case ShapeTriangle:
		return "triangle"
	case ShapeStar:
		return "star"
	case ShapeHexagon:
		return "hexagon"
	default:
		return "circle"
	}
}

// shapeKindFromString is the inverse of ShapeKind.String.
func shapeKindFromString(s string) (ShapeKind, bool) {
	switch s {
	case "circle":
		return ShapeCircle, true
	case "square":
		return ShapeSquare, true
	case "triangle":
		return ShapeTriangle, true
	case "star":
		return ShapeStar, true
	case "hexagon":
		return ShapeHexagon, true
	}
	return 0, false
}

// TextStyle holds the styling fields of text and subtitle elements.
// FaceID names a host-registered font face; the zero value selects the
// host's default face.
type TextStyle struct {
	Content   string
	FaceID    string
	Size      float64
	Color     Color
	Align     TextAlign
	Bold      bool
	Italic    bool
	Underline bool
}

// TextAlign controls horizontal text alignment.
type TextAlign uint8

const (
	TextAlignLeft TextAlign = iota
	TextAlignCenter
	TextAlignRight
)

// MediaSource references playable content. URL takes priority; LocalID names
// a host-cached local file for which the host mints an object URL. An element
// whose source resolves to neither is not renderable for media kinds.
type MediaSource struct {
	URL     string
	LocalID string
}

// Empty reports whether no source is referenced at all.
func (s MediaSource) Empty() bool {
	return s.URL == "" && s.LocalID == ""
}

// ShapeStyle holds the visual fields of shape elements. Fill, stroke, and
// corner radius are diffed independently by the shape renderer.
type ShapeStyle struct {
	Kind         ShapeKind
	Fill         Color
	Stroke       Color
	StrokeWidth  float64
	CornerRadius float64
}

// BarStyle configures a progress bar element. StyleID selects a registered
// progress styler ("bar", "circle", ...); unknown ids fall back to "bar".
type BarStyle struct {
	StyleID    string
	Fill       Color
	Background Color
	Thickness  float64
}

// WaveStyle configures a waveform element. BarCount chooses the number of
// spectrum bins requested from the parser.
type WaveStyle struct {
	StyleID  string
	Color    Color
	BarCount int
}

// SubtitleCue is one timed caption range. Start and End are in seconds,
// relative to the element's own start.
type SubtitleCue struct {
	Start float64
	End   float64
	Text  string
}

// Element is one timeline item: an immutable snapshot per update cycle.
// All times are in milliseconds on the shared playback clock.
type Element struct {
	ID   string
	Kind ElementKind

	StartTime float64
	Duration  float64
	TrimStart float64
	TrimEnd   float64

	Position Vec2
	Scale    Vec2
	Rotation float64 // radians
	Opacity  float64
	Width    float64
	Height   float64

	// ZIndex is honored only when HasZIndex is set; otherwise ordering falls
	// back to the stable id comparison (see compareFallback).
	ZIndex    int
	HasZIndex bool

	Animations []Animation

	Text   TextStyle
	Source MediaSource
	Shape  ShapeStyle
	Bar    BarStyle
	Wave   WaveStyle
	Cues   []SubtitleCue

	Volume       float64
	CornerRadius float64
}

// EndTime returns the timestamp after which the element is no longer visible.
func (e *Element) EndTime() float64 {
	return e.StartTime + e.Duration - e.TrimEnd
}

// VisibleAt reports whether the element's time window covers the timestamp.
func (e *Element) VisibleAt(timestamp float64) bool {
	return timestamp >= e.StartTime+e.TrimStart && timestamp <= e.EndTime()
}

// LocalElapsed returns the element-local elapsed time at the timestamp,
// floored at zero.
func (e *Element) LocalElapsed(timestamp float64) float64 {
	elapsed := timestamp - e.StartTime
	if elapsed < 0 {
		return 0
	}
	return elapsed
}

// Progress returns percent progress through the element in [0, 100].
func (e *Element) Progress(timestamp float64) float64 {
	if e.Duration <= 0 {
		return 0
	}
	return clamp(e.LocalElapsed(timestamp)/e.Duration*100, 0, 100)
}

// Patch is a partial element update keyed by id. Nil fields are untouched.
// Patches flow upward from renderers (drag commits, text edits) to the
// external element store; the compositor never mutates elements directly.
type Patch struct {
	ID       string
	Position *Vec2
	Scale    *Vec2
	Rotation *float64
	Opacity  *float64
	ZIndex   *int
	Text     *string
}

// Empty reports whether the patch carries no field changes.
func (p Patch) Empty() bool {
	return p.Position == nil && p.Scale == nil && p.Rotation == nil &&
		p.Opacity == nil && p.ZIndex == nil && p.Text == nil
}

// UpdateElementFunc delivers a Patch to the external element store.
type UpdateElementFunc func(Patch)

// compareFallback orders two element ids for the stable z-order fallback.
// Ids are split into an alphabetic prefix and a numeric suffix; prefixes
// compare lexicographically and suffixes numerically, so "a2" sorts before
// "a10". Returns a negative value when a orders first.
func compareFallback(a, b string) int {
	pa, na := splitNumericSuffix(a)
	pb, nb := splitNumericSuffix(b)
	if c := strings.Compare(pa, pb); c != 0 {
		return c
	}
	if na != nb {
		if na < nb {
			return -1
		}
		return 1
	}
	return strings.Compare(a, b)
}

// splitNumericSuffix separates a trailing decimal run from an id.
// Ids without a numeric suffix report -1.
func splitNumericSuffix(id string) (prefix string, n int64) {
	i := len(id)
	for i > 0 && id[i-1] >= '0' && id[i-1] <= '9' {
		i--
	}
	if i == len(id) {
		return id, -1
	}
	v, err := strconv.ParseInt(id[i:], 10, 64)
	if err != nil {
		return id, -1
	}
	return id[:i], v
}
