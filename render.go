package preview

import (
	"image"
	"math"
	"sort"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/text/v2"
)

// whitePixel is a shared 1x1 white image used for solid fills. Created
// lazily so importing the package never touches the graphics driver.
var whitePixel *ebiten.Image

func ensureWhitePixel() *ebiten.Image {
	if whitePixel == nil {
		whitePixel = ebiten.NewImage(1, 1)
		whitePixel.Fill(ColorWhite.toRGBA())
	}
	return whitePixel
}

// drawTree refreshes world transforms and paints the node tree onto dst in
// painter's order. Children sort by ZIndex with the stable id fallback, so
// two passes over an unchanged tree produce identical output.
func drawTree(dst *ebiten.Image, root *Node) {
	updateWorldTransform(root, identityTransform, 1.0, false)
	drawNode(dst, root)
}

func drawNode(dst *ebiten.Image, n *Node) {
	if n.disposed || !n.Visible || n.worldAlpha <= 0 {
		return
	}

	switch n.Type {
	case NodeSprite:
		drawSprite(dst, n)
	case NodeText:
		drawText(dst, n)
	case NodeShape:
		drawShape(dst, n)
	}

	for _, child := range sortedChildren(n) {
		drawNode(dst, child)
	}
}

// sortedChildren returns the children ordered by ZIndex, ties broken by the
// stable id fallback. The buffer is reused across frames.
func sortedChildren(n *Node) []*Node {
	if len(n.children) < 2 {
		return n.children
	}
	n.sortBuf = n.sortBuf[:0]
	n.sortBuf = append(n.sortBuf, n.children...)
	sort.SliceStable(n.sortBuf, func(i, j int) bool {
		a, b := n.sortBuf[i], n.sortBuf[j]
		if a.ZIndex != b.ZIndex {
			return a.ZIndex < b.ZIndex
		}
		return compareFallback(a.Name, b.Name) < 0
	})
	return n.sortBuf
}

func geoFromAffine(m [6]float64) ebiten.GeoM {
	var g ebiten.GeoM
	g.SetElement(0, 0, m[0])
	g.SetElement(0, 1, m[2])
	g.SetElement(0, 2, m[4])
	g.SetElement(1, 0, m[1])
	g.SetElement(1, 1, m[3])
	g.SetElement(1, 2, m[5])
	return g
}

func drawSprite(dst *ebiten.Image, n *Node) {
	if n.Image == nil {
		return
	}
	src := n.Image
	var originX, originY float64

	if n.Clip != nil {
		visible := n.Clip.Intersect(Rect{Width: n.Width, Height: n.Height})
		if visible.Width <= 0 || visible.Height <= 0 {
			return
		}
		b := src.Bounds()
		sub := image.Rect(
			b.Min.X+int(visible.X), b.Min.Y+int(visible.Y),
			b.Min.X+int(visible.X+visible.Width), b.Min.Y+int(visible.Y+visible.Height),
		)
		src = src.SubImage(sub).(*ebiten.Image)
		originX = visible.X
		originY = visible.Y
	}

	op := &ebiten.DrawImageOptions{Filter: ebiten.FilterLinear}
	op.GeoM.Translate(originX, originY)
	op.GeoM.Concat(geoFromAffine(n.worldTransform))
	op.ColorScale.ScaleAlpha(float32(n.worldAlpha))
	dst.DrawImage(src, op)
}

func drawText(dst *ebiten.Image, n *Node) {
	tb := n.Text
	if tb == nil || tb.Face == nil || tb.Content == "" {
		return
	}
	w, h := tb.Measure()
	n.Width, n.Height = w, h

	if n.Clip != nil {
		// Render the block into a scratch canvas so the reveal rectangle can
		// clip glyphs mid-character, then composite as a sprite.
		cw, ch := int(math.Ceil(w)), int(math.Ceil(h))
		if cw <= 0 || ch <= 0 {
			return
		}
		if n.clipScratch == nil || n.clipScratch.Bounds().Dx() < cw || n.clipScratch.Bounds().Dy() < ch {
			if n.clipScratch != nil {
				n.clipScratch.Deallocate()
			}
			n.clipScratch = ebiten.NewImage(cw, ch)
		}
		n.clipScratch.Clear()
		drawTextBlock(n.clipScratch, tb, ebiten.GeoM{}, 1.0)

		visible := n.Clip.Intersect(Rect{Width: w, Height: h})
		if visible.Width <= 0 || visible.Height <= 0 {
			return
		}
		sub := image.Rect(
			int(visible.X), int(visible.Y),
			int(visible.X+visible.Width), int(visible.Y+visible.Height),
		)
		op := &ebiten.DrawImageOptions{Filter: ebiten.FilterLinear}
		op.GeoM.Translate(visible.X, visible.Y)
		op.GeoM.Concat(geoFromAffine(n.worldTransform))
		op.ColorScale.ScaleAlpha(float32(n.worldAlpha))
		dst.DrawImage(n.clipScratch.SubImage(sub).(*ebiten.Image), op)
		return
	}

	drawTextBlock(dst, tb, geoFromAffine(n.worldTransform), n.worldAlpha)
}

// drawTextBlock draws the block with its top-left at the transform origin.
func drawTextBlock(dst *ebiten.Image, tb *TextBlock, geom ebiten.GeoM, alpha float64) {
	op := &text.DrawOptions{}
	// Alignment moves the draw origin, so shift in local space to keep the
	// block's top-left at the node origin regardless of alignment.
	w, _ := tb.Measure()
	var local ebiten.GeoM
	switch tb.Align {
	case TextAlignCenter:
		local.Translate(w/2, 0)
	case TextAlignRight:
		local.Translate(w, 0)
	}
	local.Concat(geom)
	op.GeoM = local
	op.ColorScale.Scale(
		float32(tb.Color.R), float32(tb.Color.G), float32(tb.Color.B),
		float32(tb.Color.A),
	)
	op.ColorScale.ScaleAlpha(float32(alpha))
	if tb.LineSpacing > 0 {
		op.LineSpacing = tb.LineSpacing
	} else {
		m := tb.Face.Metrics()
		op.LineSpacing = m.HAscent + m.HDescent + m.HLineGap
	}
	switch tb.Align {
	case TextAlignCenter:
		op.PrimaryAlign = text.AlignCenter
	case TextAlignRight:
		op.PrimaryAlign = text.AlignEnd
	}
	text.Draw(dst, tb.Content, tb.Face, op)

	if tb.Underline {
		_, h := tb.Measure()
		fillQuad(dst, geom, Rect{X: 0, Y: h - 2, Width: w, Height: 1.5}, tb.Color, alpha)
	}
}

// drawShape paints a polygon fan with an optional stroke. A reveal clip
// restricts the geometry in local space before the world transform applies.
func drawShape(dst *ebiten.Image, n *Node) {
	geom := n.Shape
	if geom == nil || len(geom.Points) < 3 {
		return
	}

	var clip *Rect
	if n.Clip != nil {
		visible := n.Clip.Intersect(Rect{Width: n.Width, Height: n.Height})
		if visible.Width <= 0 || visible.Height <= 0 {
			return
		}
		clip = &visible
	}

	fans := shapeFans(geom.Points, clip)
	if len(fans) == 0 {
		return
	}

	white := ensureWhitePixel()
	fill := geom.Fill
	fa := float32(fill.A * n.worldAlpha)
	var verts []ebiten.Vertex
	var indices []uint16
	for _, poly := range fans {
		base := uint16(len(verts))
		for _, p := range poly {
			wx, wy := transformPoint(n.worldTransform, p.X, p.Y)
			verts = append(verts, ebiten.Vertex{
				DstX: float32(wx), DstY: float32(wy),
				SrcX: 0.5, SrcY: 0.5,
				ColorR: float32(fill.R) * fa,
				ColorG: float32(fill.G) * fa,
				ColorB: float32(fill.B) * fa,
				ColorA: fa,
			})
		}
		for j := 1; j < len(poly)-1; j++ {
			indices = append(indices, base, base+uint16(j), base+uint16(j+1))
		}
	}
	top := &ebiten.DrawTrianglesOptions{AntiAlias: true}
	dst.DrawTriangles(verts, indices, white, top)

	if geom.StrokeWidth > 0 && geom.Stroke.A > 0 {
		strokePolygon(dst, n, geom, clip)
	}
}

// shapeFans splits the outline into fan triangles and, when a clip rect is
// set, intersects each against it. Clipping per triangle keeps concave
// outlines (the star fan) correct, since every triangle is convex.
func shapeFans(pts []Vec2, clip *Rect) [][]Vec2 {
	fans := make([][]Vec2, 0, len(pts)-2)
	for i := 1; i < len(pts)-1; i++ {
		tri := []Vec2{pts[0], pts[i], pts[i+1]}
		if clip != nil {
			tri = clipPolygon(tri, *clip)
			if len(tri) < 3 {
				continue
			}
		}
		fans = append(fans, tri)
	}
	return fans
}

// clipPolygon intersects a convex polygon with an axis-aligned rectangle,
// Sutherland-Hodgman against each rect edge in turn. The result stays convex;
// nil means nothing survives.
func clipPolygon(pts []Vec2, r Rect) []Vec2 {
	out := pts
	edges := [4]func(Vec2) float64{
		func(p Vec2) float64 { return p.X - r.X },
		func(p Vec2) float64 { return r.X + r.Width - p.X },
		func(p Vec2) float64 { return p.Y - r.Y },
		func(p Vec2) float64 { return r.Y + r.Height - p.Y },
	}
	for _, inside := range edges {
		in := out
		out = nil
		for i := range in {
			cur, next := in[i], in[(i+1)%len(in)]
			dc, dn := inside(cur), inside(next)
			if dc >= 0 {
				out = append(out, cur)
			}
			if (dc >= 0) != (dn >= 0) {
				t := dc / (dc - dn)
				out = append(out, Vec2{
					X: cur.X + (next.X-cur.X)*t,
					Y: cur.Y + (next.Y-cur.Y)*t,
				})
			}
		}
		if len(out) == 0 {
			return nil
		}
	}
	return out
}

// clipSegment clips the segment p0-p1 to an axis-aligned rectangle
// (Liang-Barsky), reporting whether any part survives.
func clipSegment(p0, p1 Vec2, r Rect) (Vec2, Vec2, bool) {
	t0, t1 := 0.0, 1.0
	dx, dy := p1.X-p0.X, p1.Y-p0.Y
	edges := [4][2]float64{
		{-dx, p0.X - r.X},
		{dx, r.X + r.Width - p0.X},
		{-dy, p0.Y - r.Y},
		{dy, r.Y + r.Height - p0.Y},
	}
	for _, e := range edges {
		p, q := e[0], e[1]
		if p == 0 {
			if q < 0 {
				return Vec2{}, Vec2{}, false
			}
			continue
		}
		t := q / p
		if p < 0 {
			if t > t1 {
				return Vec2{}, Vec2{}, false
			}
			if t > t0 {
				t0 = t
			}
		} else {
			if t < t0 {
				return Vec2{}, Vec2{}, false
			}
			if t < t1 {
				t1 = t
			}
		}
	}
	return Vec2{X: p0.X + dx*t0, Y: p0.Y + dy*t0},
		Vec2{X: p0.X + dx*t1, Y: p0.Y + dy*t1}, true
}

// strokePolygon draws the polygon outline as world-space quads so stroke
// width follows the node's scale. Edges are clipped to the reveal rect in
// local space before widening.
func strokePolygon(dst *ebiten.Image, n *Node, geom *ShapeGeometry, clip *Rect) {
	scale := math.Sqrt(math.Abs(n.worldTransform[0]*n.worldTransform[3] - n.worldTransform[1]*n.worldTransform[2]))
	half := geom.StrokeWidth * scale / 2
	if half <= 0 {
		return
	}
	white := ensureWhitePixel()
	sa := float32(geom.Stroke.A * n.worldAlpha)

	pts := geom.Points
	for i := range pts {
		p0 := pts[i]
		p1 := pts[(i+1)%len(pts)]
		if clip != nil {
			var ok bool
			p0, p1, ok = clipSegment(p0, p1, *clip)
			if !ok {
				continue
			}
		}
		x0, y0 := transformPoint(n.worldTransform, p0.X, p0.Y)
		x1, y1 := transformPoint(n.worldTransform, p1.X, p1.Y)
		dx, dy := x1-x0, y1-y0
		length := math.Hypot(dx, dy)
		if length == 0 {
			continue
		}
		nx, ny := -dy/length*half, dx/length*half

		quad := [4][2]float64{
			{x0 + nx, y0 + ny}, {x1 + nx, y1 + ny},
			{x1 - nx, y1 - ny}, {x0 - nx, y0 - ny},
		}
		verts := make([]ebiten.Vertex, 4)
		for j, q := range quad {
			verts[j] = ebiten.Vertex{
				DstX: float32(q[0]), DstY: float32(q[1]),
				SrcX: 0.5, SrcY: 0.5,
				ColorR: float32(geom.Stroke.R) * sa,
				ColorG: float32(geom.Stroke.G) * sa,
				ColorB: float32(geom.Stroke.B) * sa,
				ColorA: sa,
			}
		}
		dst.DrawTriangles(verts, []uint16{0, 1, 2, 0, 2, 3}, white, &ebiten.DrawTrianglesOptions{AntiAlias: true})
	}
}

// fillQuad draws an axis-aligned local-space rectangle through a transform.
func fillQuad(dst *ebiten.Image, geom ebiten.GeoM, r Rect, c Color, alpha float64) {
	a := float32(c.A * alpha)
	corners := [4][2]float64{
		{r.X, r.Y}, {r.X + r.Width, r.Y},
		{r.X + r.Width, r.Y + r.Height}, {r.X, r.Y + r.Height},
	}
	verts := make([]ebiten.Vertex, 4)
	for i, p := range corners {
		x, y := geom.Apply(p[0], p[1])
		verts[i] = ebiten.Vertex{
			DstX: float32(x), DstY: float32(y),
			SrcX: 0.5, SrcY: 0.5,
			ColorR: float32(c.R) * a,
			ColorG: float32(c.G) * a,
			ColorB: float32(c.B) * a,
			ColorA: a,
		}
	}
	dst.DrawTriangles(verts, []uint16{0, 1, 2, 0, 2, 3}, ensureWhitePixel(), &ebiten.DrawTrianglesOptions{})
}
