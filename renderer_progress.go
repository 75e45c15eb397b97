package preview

import (
	"math"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/vector"
)

// Default progress bar canvas size when the element does not author one.
const (
	defaultBarWidth  = 320.0
	defaultBarHeight = 24.0
)

// ProgressStyler draws one frame of a progress element onto its canvas.
// progress is in [0, 1]. Stylers are registered by id; elements referencing
// an unknown id fall back to the "bar" style.
type ProgressStyler func(dst *ebiten.Image, progress float64, style BarStyle)

var progressStyles = map[string]ProgressStyler{
	"bar":    progressBarStyle,
	"circle": progressCircleStyle,
}

// RegisterProgressStyle registers a custom progress styler under an id,
// replacing any existing registration.
func RegisterProgressStyle(id string, fn ProgressStyler) {
	progressStyles[id] = fn
}

func lookupProgressStyle(id string) ProgressStyler {
	if fn, ok := progressStyles[id]; ok {
		return fn
	}
	return progressStyles["bar"]
}

// progressRenderer renders progress bar elements, delegating the actual
// drawing each frame to the pluggable styler selected by the element.
type progressRenderer struct {
	rendererCore

	lastProgress float64
	lastStyle    BarStyle
	drawn        bool
}

func newProgressRenderer(el Element, host *Host) *progressRenderer {
	return &progressRenderer{rendererCore: newRendererCore(el, host)}
}

func (r *progressRenderer) Initialize() error {
	visual := NewSpriteNode(r.element.ID+"/progress", nil)
	visual.Width, visual.Height = canvasSize(r.element, defaultBarWidth, defaultBarHeight)
	r.attachVisual(visual)
	return nil
}

func (r *progressRenderer) Update(el Element) {
	prev := r.updateCore(el)
	if prev.Width != el.Width || prev.Height != el.Height {
		r.visual.SetOwnedImage(nil)
		r.visual.Width, r.visual.Height = canvasSize(el, defaultBarWidth, defaultBarHeight)
		r.drawn = false
	}
}

func (r *progressRenderer) FrameUpdate(fc FrameContext) {
	info := r.frameInfoAt(fc.Timestamp)
	progress := info.percent / 100

	if !r.drawn || progress != r.lastProgress || r.element.Bar != r.lastStyle {
		canvas := ensureCanvas(r.visual)
		canvas.Clear()
		lookupProgressStyle(r.element.Bar.StyleID)(canvas, progress, r.element.Bar)
		r.lastProgress = progress
		r.lastStyle = r.element.Bar
		r.drawn = true
	}

	r.runAnimations(fc, info)
}

func (r *progressRenderer) Destroy() {
	r.destroyCore()
}

// canvasSize resolves the element's authored size against defaults.
func canvasSize(el Element, defW, defH float64) (w, h float64) {
	w, h = el.Width, el.Height
	if w <= 0 {
		w = defW
	}
	if h <= 0 {
		h = defH
	}
	return w, h
}

// ensureCanvas returns the node's owned canvas image, (re)allocating it to
// match the node size.
func ensureCanvas(n *Node) *ebiten.Image {
	w, h := int(math.Ceil(n.Width)), int(math.Ceil(n.Height))
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	if n.Image == nil || n.Image.Bounds().Dx() != w || n.Image.Bounds().Dy() != h {
		n.SetOwnedImage(ebiten.NewImage(w, h))
	}
	return n.Image
}

// --- Built-in styles ---

// progressBarStyle draws a track with a fill growing left to right.
func progressBarStyle(dst *ebiten.Image, progress float64, style BarStyle) {
	b := dst.Bounds()
	w, h := float32(b.Dx()), float32(b.Dy())

	bg := style.Background
	if bg.A == 0 {
		bg = Color{0.2, 0.2, 0.2, 1}
	}
	fill := style.Fill
	if fill.A == 0 {
		fill = ColorWhite
	}

	vector.DrawFilledRect(dst, 0, 0, w, h, bg.toRGBA(), true)
	vector.DrawFilledRect(dst, 0, 0, w*float32(progress), h, fill.toRGBA(), true)
}

// progressCircleStyle draws a ring with an arc sweeping clockwise from the
// top as progress advances.
func progressCircleStyle(dst *ebiten.Image, progress float64, style BarStyle) {
	b := dst.Bounds()
	w, h := float64(b.Dx()), float64(b.Dy())
	cx, cy := w/2, h/2
	radius := math.Min(w, h)/2 - 2

	thickness := style.Thickness
	if thickness <= 0 {
		thickness = math.Max(2, radius/6)
	}

	bg := style.Background
	if bg.A == 0 {
		bg = Color{0.2, 0.2, 0.2, 1}
	}
	fill := style.Fill
	if fill.A == 0 {
		fill = ColorWhite
	}

	vector.StrokeCircle(dst, float32(cx), float32(cy), float32(radius), float32(thickness), bg.toRGBA(), true)

	// Arc as chained segments; segment count scales with sweep.
	steps := int(math.Ceil(progress * 64))
	if steps == 0 {
		return
	}
	sweep := progress * 2 * math.Pi
	prevX := cx + radius*math.Cos(-math.Pi/2)
	prevY := cy + radius*math.Sin(-math.Pi/2)
	for i := 1; i <= steps; i++ {
		a := -math.Pi/2 + sweep*float64(i)/float64(steps)
		x := cx + radius*math.Cos(a)
		y := cy + radius*math.Sin(a)
		vector.StrokeLine(dst, float32(prevX), float32(prevY), float32(x), float32(y), float32(thickness), fill.toRGBA(), true)
		prevX, prevY = x, y
	}
}
