package preview

import (
	"math"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/vector"
)

// Default waveform canvas size and bar count.
const (
	defaultWaveWidth  = 320.0
	defaultWaveHeight = 120.0
	defaultWaveBars   = 32
)

// WaveStyler draws one frame of a waveform element from the banded magnitude
// array (values in [0, 1]). Stylers are registered by id; unknown ids fall
// back to "bar".
type WaveStyler func(dst *ebiten.Image, magnitudes []float64, style WaveStyle)

var waveStyles = map[string]WaveStyler{
	"bar":    waveBarStyle,
	"circle": waveCircleStyle,
}

// RegisterWaveStyle registers a custom waveform styler under an id,
// replacing any existing registration.
func RegisterWaveStyle(id string, fn WaveStyler) {
	waveStyles[id] = fn
}

func lookupWaveStyle(id string) WaveStyler {
	if fn, ok := waveStyles[id]; ok {
		return fn
	}
	return waveStyles["bar"]
}

// waveRenderer renders spectrum-driven waveform elements. Each instance owns
// its own parser (and its smoothing buffer); the sample window comes from the
// process-wide analyser, which the renderer reads but never owns.
type waveRenderer struct {
	rendererCore

	parser *SpectrumParser
}

func newWaveRenderer(el Element, host *Host) *waveRenderer {
	return &waveRenderer{rendererCore: newRendererCore(el, host)}
}

func (r *waveRenderer) Initialize() error {
	visual := NewSpriteNode(r.element.ID+"/wave", nil)
	visual.Width, visual.Height = canvasSize(r.element, defaultWaveWidth, defaultWaveHeight)
	r.attachVisual(visual)

	if r.host.Audio != nil {
		r.parser = NewSpectrumParser(r.host.Audio.Analyser().SampleRate())
		r.parser.Configure(waveBars(r.element), defaultMinFrequency, defaultMaxFrequency)
	}
	return nil
}

func (r *waveRenderer) Update(el Element) {
	prev := r.updateCore(el)
	if prev.Width != el.Width || prev.Height != el.Height {
		r.visual.SetOwnedImage(nil)
		r.visual.Width, r.visual.Height = canvasSize(el, defaultWaveWidth, defaultWaveHeight)
	}
	if prev.Wave.BarCount != el.Wave.BarCount && r.parser != nil {
		r.parser.Configure(waveBars(el), defaultMinFrequency, defaultMaxFrequency)
	}
}

func (r *waveRenderer) FrameUpdate(fc FrameContext) {
	info := r.frameInfoAt(fc.Timestamp)

	if r.parser == nil && r.host.Audio != nil {
		// The audio graph became available after construction: attach once.
		r.parser = NewSpectrumParser(r.host.Audio.Analyser().SampleRate())
		r.parser.Configure(waveBars(r.element), defaultMinFrequency, defaultMaxFrequency)
	}

	if r.parser != nil && r.shown {
		mags := r.parser.Process(r.host.Audio.Analyser().Window())
		canvas := ensureCanvas(r.visual)
		canvas.Clear()
		lookupWaveStyle(r.element.Wave.StyleID)(canvas, mags, r.element.Wave)
	}

	r.runAnimations(fc, info)
}

func (r *waveRenderer) Destroy() {
	r.destroyCore()
}

func waveBars(el Element) int {
	if el.Wave.BarCount > 0 {
		return el.Wave.BarCount
	}
	return defaultWaveBars
}

// --- Built-in styles ---

// waveBarStyle draws vertical bars growing from the bottom edge.
func waveBarStyle(dst *ebiten.Image, magnitudes []float64, style WaveStyle) {
	if len(magnitudes) == 0 {
		return
	}
	b := dst.Bounds()
	w, h := float64(b.Dx()), float64(b.Dy())

	clr := style.Color
	if clr.A == 0 {
		clr = ColorWhite
	}

	gap := 2.0
	barW := (w - gap*float64(len(magnitudes)-1)) / float64(len(magnitudes))
	if barW < 1 {
		barW, gap = w/float64(len(magnitudes)), 0
	}
	for i, m := range magnitudes {
		barH := m * h
		if barH < 1 {
			barH = 1
		}
		x := float64(i) * (barW + gap)
		vector.DrawFilledRect(dst, float32(x), float32(h-barH), float32(barW), float32(barH), clr.toRGBA(), true)
	}
}

// waveCircleStyle draws radial spokes around the canvas center.
func waveCircleStyle(dst *ebiten.Image, magnitudes []float64, style WaveStyle) {
	if len(magnitudes) == 0 {
		return
	}
	b := dst.Bounds()
	w, h := float64(b.Dx()), float64(b.Dy())
	cx, cy := w/2, h/2
	base := math.Min(w, h) / 4
	reach := math.Min(w, h)/2 - base

	clr := style.Color
	if clr.A == 0 {
		clr = ColorWhite
	}

	for i, m := range magnitudes {
		a := 2 * math.Pi * float64(i) / float64(len(magnitudes))
		r0 := base
		r1 := base + m*reach
		vector.StrokeLine(dst,
			float32(cx+r0*math.Cos(a)), float32(cy+r0*math.Sin(a)),
			float32(cx+r1*math.Cos(a)), float32(cy+r1*math.Sin(a)),
			2, clr.toRGBA(), true)
	}
}
