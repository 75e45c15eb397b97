package preview

import "math"

// Default shape size when the element does not author one.
const defaultShapeSize = 100.0

// circleSegments controls the polygonal approximation of curved outlines.
const circleSegments = 48

// shapeRenderer renders parametric vector shapes. The geometry constructor is
// selected by the shape kind; fill, stroke, and corner radius are diffed
// independently so a color change never rebuilds the outline.
type shapeRenderer struct {
	rendererCore
}

func newShapeRenderer(el Element, host *Host) *shapeRenderer {
	return &shapeRenderer{rendererCore: newRendererCore(el, host)}
}

func (r *shapeRenderer) Initialize() error {
	w, h := shapeSize(r.element)
	visual := NewShapeNode(r.element.ID+"/shape", ShapeGeometry{
		Points:      shapeOutline(r.element.Shape.Kind, w, h, r.element.Shape.CornerRadius),
		Fill:        r.element.Shape.Fill,
		Stroke:      r.element.Shape.Stroke,
		StrokeWidth: r.element.Shape.StrokeWidth,
	})
	visual.Width = w
	visual.Height = h
	r.attachVisual(visual)
	return nil
}

func (r *shapeRenderer) Update(el Element) {
	prev := r.updateCore(el)
	geom := r.visual.Shape

	if prev.Shape.Kind != el.Shape.Kind ||
		prev.Shape.CornerRadius != el.Shape.CornerRadius ||
		prev.Width != el.Width || prev.Height != el.Height {
		w, h := shapeSize(el)
		geom.Points = shapeOutline(el.Shape.Kind, w, h, el.Shape.CornerRadius)
		r.visual.Width = w
		r.visual.Height = h
		r.visual.MarkDirty()
	}
	if prev.Shape.Fill != el.Shape.Fill {
		geom.Fill = el.Shape.Fill
	}
	if prev.Shape.Stroke != el.Shape.Stroke {
		geom.Stroke = el.Shape.Stroke
	}
	if prev.Shape.StrokeWidth != el.Shape.StrokeWidth {
		geom.StrokeWidth = el.Shape.StrokeWidth
	}
}

func (r *shapeRenderer) FrameUpdate(fc FrameContext) {
	r.runAnimations(fc, r.frameInfoAt(fc.Timestamp))
}

func (r *shapeRenderer) Destroy() {
	r.destroyCore()
}

func shapeSize(el Element) (w, h float64) {
	w, h = el.Width, el.Height
	if w <= 0 {
		w = defaultShapeSize
	}
	if h <= 0 {
		h = defaultShapeSize
	}
	return w, h
}

// shapeOutline builds the convex polygon outline for a shape kind within a
// w×h local-space box. Star outlines are concave; the renderer draws them as
// a fan from the centroid, which the star constructor accounts for by
// emitting the center as its first point.
func shapeOutline(kind ShapeKind, w, h, cornerRadius float64) []Vec2 {
	switch kind {
	case ShapeSquare:
		if cornerRadius > 0 {
			return roundedRectOutline(w, h, cornerRadius)
		}
		return []Vec2{{0, 0}, {w, 0}, {w, h}, {0, h}}

	case ShapeTriangle:
		return []Vec2{{w / 2, 0}, {w, h}, {0, h}}

	case ShapeHexagon:
		return regularOutline(6, w, h, -math.Pi/2)

	case ShapeStar:
		return starOutline(5, w, h)

	default: // ShapeCircle
		return regularOutline(circleSegments, w, h, 0)
	}
}

// regularOutline emits an n-gon inscribed in the w×h box.
func regularOutline(n int, w, h, phase float64) []Vec2 {
	cx, cy := w/2, h/2
	pts := make([]Vec2, n)
	for i := 0; i < n; i++ {
		a := phase + 2*math.Pi*float64(i)/float64(n)
		pts[i] = Vec2{cx + cx*math.Cos(a), cy + cy*math.Sin(a)}
	}
	return pts
}

// starOutline emits a fan-drawable star: the centroid first, then alternating
// outer and inner vertices, closing back on the first outer vertex.
func starOutline(points int, w, h float64) []Vec2 {
	cx, cy := w/2, h/2
	inner := 0.42 // inner-to-outer radius ratio
	pts := make([]Vec2, 0, points*2+2)
	pts = append(pts, Vec2{cx, cy})
	for i := 0; i <= points*2; i++ {
		a := -math.Pi/2 + math.Pi*float64(i)/float64(points)
		rx, ry := cx, cy
		if i%2 == 1 {
			rx *= inner
			ry *= inner
		}
		pts = append(pts, Vec2{cx + rx*math.Cos(a), cy + ry*math.Sin(a)})
	}
	return pts
}

// roundedRectOutline approximates a rounded rectangle with arc segments.
func roundedRectOutline(w, h, radius float64) []Vec2 {
	r := math.Min(radius, math.Min(w, h)/2)
	const segs = 8
	corners := [4]struct {
		cx, cy, start float64
	}{
		{w - r, r, -math.Pi / 2},
		{w - r, h - r, 0},
		{r, h - r, math.Pi / 2},
		{r, r, math.Pi},
	}
	pts := make([]Vec2, 0, 4*(segs+1))
	for _, c := range corners {
		for i := 0; i <= segs; i++ {
			a := c.start + math.Pi/2*float64(i)/segs
			pts = append(pts, Vec2{c.cx + r*math.Cos(a), c.cy + r*math.Sin(a)})
		}
	}
	return pts
}
