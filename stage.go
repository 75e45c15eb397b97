package preview

import (
	"context"
	"math"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/hajimehoshi/ebiten/v2/vector"
	"github.com/tanema/gween"
	"github.com/tanema/gween/ease"
)

// Pointer gesture tuning. Distances are in stage pixels at zoom 1.
const (
	dragDeadZone  = 4.0
	doubleClickMs = 400.0
)

// Selection/guide overlay styling.
const (
	dashLength   = 6.0
	dashGap      = 4.0
	dashCycleSec = 0.5
	handleSize   = 6.0
)

var (
	guideColor     = Color{R: 1, G: 0, B: 0.8, A: 1}
	selectionColor = Color{R: 0.25, G: 0.6, B: 1, A: 1}
)

// StageConfig configures a Stage. Zero values select the defaults noted on
// each field.
type StageConfig struct {
	Width      float64 // stage width in pixels, default 1920
	Height     float64 // stage height in pixels, default 1080
	Background Color   // default opaque black

	// SnapThreshold is the guide snap distance in screen pixels; it is
	// divided by Zoom so snapping feels identical at every zoom level.
	// Default 6.
	SnapThreshold float64

	Zoom  float64 // uniform stage zoom, default 1
	Debug bool    // log frame stats once a second
}

func (c *StageConfig) applyDefaults() {
	if c.Width <= 0 {
		c.Width = 1920
	}
	if c.Height <= 0 {
		c.Height = 1080
	}
	if c.Background.A == 0 {
		c.Background = ColorBlack
	}
	if c.SnapThreshold <= 0 {
		c.SnapThreshold = defaultSnapThreshold
	}
	if c.Zoom <= 0 {
		c.Zoom = 1
	}
}

// PlaybackSource is the external playback transport the stage subscribes to.
// Now is read once per tick; the stage never advances the clock itself.
// SetPlaying pushes play and pause requests back to the transport, for the
// space-bar toggle and the automatic pause when text editing begins.
type PlaybackSource interface {
	Now() (timestamp float64, playing bool)
	SetPlaying(playing bool)
}

// Active tool names reported through OnToolChange.
const (
	ToolSelect = "select"
	ToolText   = "text"
)

// Stage is the interactive compositor shell: it owns the scene root and the
// renderer manager, drives them from the playback source every tick, and
// layers the editing affordances (selection, drag with guide snapping,
// in-place text editing) on top. Stage implements ebiten.Game.
type Stage struct {
	cfg     StageConfig
	host    *Host
	root    *Node
	manager *Manager

	playback PlaybackSource

	// OnSelect fires when the selected element changes, with "" on deselect.
	OnSelect func(id string)
	// OnDelete and OnDuplicate forward the keyboard shortcuts to the element
	// store; the stage itself never edits the element list.
	OnDelete    func(id string)
	OnDuplicate func(id string)
	// OnToolChange fires when the active tool switches (select/text).
	OnToolChange func(name string)
	// OnRedraw fires when the composition changes. Hosts that render on
	// demand can schedule a frame from it; under RunGame the stage draws
	// every tick regardless.
	OnRedraw func()

	selection string
	tool      string
	edit      *EditSession
	editID    string

	// Drag gesture state. A press becomes a drag only after the pointer
	// leaves the dead zone; a short press is a click.
	pressed     bool
	dragging    bool
	pressID     string
	pressPos    Vec2
	pressTime   float64
	startPos    Vec2
	lastClick   float64
	lastClickID string
	guideV      *Guide
	guideH      *Guide

	dash      *gween.Tween
	dashPhase float64

	charBuf    []rune
	debugTicks int
	debugStart time.Time
}

// NewStage creates a stage with the given configuration and host.
func NewStage(cfg StageConfig, host *Host) *Stage {
	cfg.applyDefaults()
	root := NewContainer("stage")
	root.SetScale(cfg.Zoom, cfg.Zoom)

	s := &Stage{
		cfg:        cfg,
		host:       host,
		root:       root,
		tool:       ToolSelect,
		dash:       gween.New(0, dashLength+dashGap, dashCycleSec, ease.Linear),
		debugStart: time.Now(),
	}
	s.manager = NewManager(host, root)
	s.manager.SetStageSize(Vec2{X: cfg.Width, Y: cfg.Height}, cfg.Zoom)
	s.manager.SetRedrawRequest(s.invalidate)
	s.manager.SetFaultHook(func(id string) {
		if s.selection == id {
			s.Select("")
		}
	})
	return s
}

// Manager exposes the renderer manager for reconciliation and export.
func (s *Stage) Manager() *Manager { return s.manager }

// SetElements reconciles the renderer set against a new element list.
func (s *Stage) SetElements(elements []Element) {
	s.manager.Reconcile(elements)
}

// SetPlaybackSource subscribes the stage to an external playback clock.
func (s *Stage) SetPlaybackSource(ps PlaybackSource) {
	s.playback = ps
}

// SetZoom changes the stage zoom factor.
func (s *Stage) SetZoom(zoom float64) {
	if zoom <= 0 {
		zoom = 1
	}
	s.cfg.Zoom = zoom
	s.root.SetScale(zoom, zoom)
	s.manager.SetStageSize(Vec2{X: s.cfg.Width, Y: s.cfg.Height}, zoom)
}

// Select changes the selected element and notifies the host. Selecting the
// already-selected id is a no-op.
func (s *Stage) Select(id string) {
	if s.selection == id {
		return
	}
	s.selection = id
	if s.OnSelect != nil {
		s.OnSelect(id)
	}
}

// Selection returns the selected element id, or "".
func (s *Stage) Selection() string { return s.selection }

// ActiveTool returns the name of the active tool.
func (s *Stage) ActiveTool() string { return s.tool }

// setTool switches the active tool and notifies the host on a change.
func (s *Stage) setTool(name string) {
	if s.tool == name {
		return
	}
	s.tool = name
	if s.OnToolChange != nil {
		s.OnToolChange(name)
	}
}

// invalidate signals the host that the composition needs a redraw.
func (s *Stage) invalidate() {
	if s.OnRedraw != nil {
		s.OnRedraw()
	}
}

// TogglePlayback flips the transport's play state.
func (s *Stage) TogglePlayback() {
	if s.playback == nil {
		return
	}
	_, playing := s.playback.Now()
	s.playback.SetPlaying(!playing)
}

// PrepareTimestamp seeks all media to an exact timestamp and awaits
// readiness, for frame-accurate capture.
func (s *Stage) PrepareTimestamp(ctx context.Context, timestamp float64) error {
	return s.manager.PrepareTimestamp(ctx, timestamp)
}

// --- Pointer gestures (stage coordinates) ---

// PointerDown starts a pointer gesture at a stage-space point. A press on an
// element selects it; a second press on the same element within the
// double-click window opens text editing; a press on empty space deselects.
func (s *Stage) PointerDown(x, y float64, nowMs float64) {
	// Clicking away from an active edit commits it (blur).
	s.endEdit(true)

	id := s.hitTest(x, y)
	s.pressed = true
	s.pressID = id
	s.pressPos = Vec2{X: x, Y: y}
	s.pressTime = nowMs

	if id == "" {
		s.Select("")
		return
	}
	s.Select(id)
	if r := s.manager.Renderer(id); r != nil {
		s.startPos = r.Element().Position
	}

	if id == s.lastClickID && nowMs-s.lastClick <= doubleClickMs {
		s.beginEdit(id)
	}
	s.lastClick = nowMs
	s.lastClickID = id
}

// PointerMove advances a gesture. Movement beyond the dead zone promotes the
// press to a drag; while dragging, the wrapper follows the pointer with guide
// snapping applied, and at most one guide per axis is shown.
func (s *Stage) PointerMove(x, y float64) {
	if !s.pressed || s.pressID == "" {
		return
	}
	dx, dy := x-s.pressPos.X, y-s.pressPos.Y
	if !s.dragging {
		if math.Hypot(dx, dy) < dragDeadZone/s.cfg.Zoom {
			return
		}
		s.dragging = true
	}

	r := s.manager.Renderer(s.pressID)
	if r == nil {
		s.endGesture()
		return
	}

	pos := Vec2{X: s.startPos.X + dx, Y: s.startPos.Y + dy}

	dragged := boundsOf(r)
	dragged.X, dragged.Y = pos.X, pos.Y
	others := s.otherBounds(s.pressID)
	stage := Vec2{X: s.cfg.Width, Y: s.cfg.Height}
	s.guideV, s.guideH = CollectGuides(dragged, others, stage, s.cfg.SnapThreshold/s.cfg.Zoom)
	if s.guideV != nil {
		pos.X += s.guideV.Offset
	}
	if s.guideH != nil {
		pos.Y += s.guideH.Offset
	}

	// Live feedback on the node only; the element store is patched on release.
	r.Wrapper().SetPosition(pos.X, pos.Y)
	s.invalidate()
}

// PointerUp ends a gesture. A completed drag commits the final position to
// the element store as a patch; guides clear immediately.
func (s *Stage) PointerUp() {
	if s.dragging && s.pressID != "" {
		if r := s.manager.Renderer(s.pressID); r != nil {
			final := Vec2{X: r.Wrapper().X, Y: r.Wrapper().Y}
			if final != s.startPos {
				s.host.patch(Patch{ID: s.pressID, Position: &final})
			}
		}
	}
	s.endGesture()
}

func (s *Stage) endGesture() {
	s.pressed = false
	s.dragging = false
	s.pressID = ""
	s.guideV = nil
	s.guideH = nil
	s.invalidate()
}

// hitTest returns the topmost visible element at a stage-space point, testing
// in reverse paint order so overlapping elements pick the one drawn last.
func (s *Stage) hitTest(x, y float64) string {
	updateWorldTransform(s.root, identityTransform, 1.0, true)

	wx, wy := x*s.cfg.Zoom, y*s.cfg.Zoom
	var bestID string
	var bestZ int
	var found bool
	for id, r := range s.manager.renderers {
		w := r.Wrapper()
		if !w.Visible {
			continue
		}
		b := localBounds(r)
		lx, ly := w.WorldToLocal(wx, wy)
		if !(Rect{Width: b.X, Height: b.Y}).Contains(lx, ly) {
			continue
		}
		z := w.ZIndex
		if !found || z > bestZ || (z == bestZ && compareFallback(id, bestID) > 0) {
			bestID, bestZ, found = id, z, true
		}
	}
	return bestID
}

// localBounds returns the unscaled visual extent of a renderer.
func localBounds(r Renderer) Vec2 {
	el := r.Element()
	w, h := el.Width, el.Height
	if wr := r.Wrapper(); len(wr.children) > 0 {
		v := wr.children[0]
		if w <= 0 {
			w = v.Width
		}
		if h <= 0 {
			h = v.Height
		}
	}
	return Vec2{X: w, Y: h}
}

// boundsOf returns a renderer's axis-aligned stage-space bounds.
func boundsOf(r Renderer) Rect {
	el := r.Element()
	ext := localBounds(r)
	sx, sy := el.Scale.X, el.Scale.Y
	if sx == 0 {
		sx = 1
	}
	if sy == 0 {
		sy = 1
	}
	return Rect{X: el.Position.X, Y: el.Position.Y, Width: ext.X * sx, Height: ext.Y * sy}
}

// otherBounds collects the bounds of every visible renderer except one.
func (s *Stage) otherBounds(except string) []Rect {
	out := make([]Rect, 0, len(s.manager.renderers))
	for id, r := range s.manager.renderers {
		if id == except || !r.Wrapper().Visible {
			continue
		}
		out = append(out, boundsOf(r))
	}
	return out
}

// --- Keyboard ---

// beginEdit opens in-place editing for a text element. Non-text elements and
// cue-driven subtitles ignore the request.
func (s *Stage) beginEdit(id string) {
	r := s.manager.Renderer(id)
	tr, ok := r.(*textRenderer)
	if !ok {
		return
	}
	if session := tr.BeginEdit(); session != nil {
		s.edit = session
		s.editID = id
		s.setTool(ToolText)
		// Editing pauses playback; the host transport resumes it explicitly.
		if s.playback != nil {
			s.playback.SetPlaying(false)
		}
	}
}

// endEdit closes the active edit session, committing or cancelling it, and
// returns to the select tool. No-op without an active session.
func (s *Stage) endEdit(commit bool) {
	if s.edit == nil {
		return
	}
	if commit {
		s.edit.Commit()
	} else {
		s.edit.Cancel()
	}
	s.edit = nil
	s.editID = ""
	s.setTool(ToolSelect)
	s.invalidate()
}

// Editing reports whether an in-place text edit is active.
func (s *Stage) Editing() bool { return s.edit != nil }

// TypeRunes feeds typed characters to the active edit session.
func (s *Stage) TypeRunes(runes []rune) {
	if s.edit != nil && len(runes) > 0 {
		s.edit.Insert(runes...)
		s.invalidate()
	}
}

// KeyBackspace deletes the last rune of the active edit session.
func (s *Stage) KeyBackspace() {
	if s.edit != nil {
		s.edit.Backspace()
		s.invalidate()
	}
}

// KeyEnter commits the active edit session.
func (s *Stage) KeyEnter() {
	s.endEdit(true)
}

// KeyEscape cancels the active edit session, or clears the selection when no
// edit is active.
func (s *Stage) KeyEscape() {
	if s.edit != nil {
		s.endEdit(false)
		return
	}
	s.Select("")
}

// KeyDelete forwards deletion of the selected element to the host.
func (s *Stage) KeyDelete() {
	if s.selection == "" || s.edit != nil {
		return
	}
	if s.OnDelete != nil {
		s.OnDelete(s.selection)
	}
}

// DuplicateSelected forwards duplication of the selected element to the host.
func (s *Stage) DuplicateSelected() {
	if s.selection == "" || s.edit != nil {
		return
	}
	if s.OnDuplicate != nil {
		s.OnDuplicate(s.selection)
	}
}

// --- Game loop ---

// Step advances one tick: reads the playback source and drives all renderers.
// Update calls this; tests drive it directly with a fake clock.
func (s *Stage) Step() {
	if s.playback != nil {
		ts, playing := s.playback.Now()
		s.manager.FrameUpdate(ts, playing)
	}

	if v, done := s.dash.Update(1.0 / referenceFPS); done {
		s.dash.Reset()
		s.dashPhase = 0
	} else {
		s.dashPhase = float64(v)
	}
}

// Update implements ebiten.Game: input glue plus one Step.
func (s *Stage) Update() error {
	cx, cy := ebiten.CursorPosition()
	x, y := float64(cx)/s.cfg.Zoom, float64(cy)/s.cfg.Zoom

	switch {
	case inpututil.IsMouseButtonJustPressed(ebiten.MouseButtonLeft):
		s.PointerDown(x, y, float64(time.Now().UnixMilli()))
	case inpututil.IsMouseButtonJustReleased(ebiten.MouseButtonLeft):
		s.PointerUp()
	case s.pressed:
		s.PointerMove(x, y)
	}

	s.charBuf = ebiten.AppendInputChars(s.charBuf[:0])
	s.TypeRunes(s.charBuf)
	if inpututil.IsKeyJustPressed(ebiten.KeyBackspace) {
		s.KeyBackspace()
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyEnter) {
		s.KeyEnter()
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyEscape) {
		s.KeyEscape()
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyDelete) {
		s.KeyDelete()
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyD) && ebiten.IsKeyPressed(ebiten.KeyControl) {
		s.DuplicateSelected()
	}
	if inpututil.IsKeyJustPressed(ebiten.KeySpace) && s.edit == nil {
		s.TogglePlayback()
	}

	s.Step()
	return nil
}

// Draw implements ebiten.Game: background, composition, then the editing
// overlays.
func (s *Stage) Draw(screen *ebiten.Image) {
	screen.Fill(s.cfg.Background.toRGBA())
	drawTree(screen, s.root)
	s.drawGuides(screen)
	s.drawSelection(screen)

	if s.cfg.Debug {
		s.debugTicks++
		if elapsed := time.Since(s.debugStart); elapsed >= time.Second {
			logf("stage: %d renderers, %.1f fps", s.manager.Len(), float64(s.debugTicks)/elapsed.Seconds())
			s.debugTicks = 0
			s.debugStart = time.Now()
		}
	}
}

// Layout implements ebiten.Game.
func (s *Stage) Layout(_, _ int) (int, int) {
	return int(s.cfg.Width * s.cfg.Zoom), int(s.cfg.Height * s.cfg.Zoom)
}

// CaptureThumbnail draws the current composition into a new w×h image,
// letterboxed to preserve the stage aspect ratio.
func (s *Stage) CaptureThumbnail(w, h int) *ebiten.Image {
	img := ebiten.NewImage(w, h)
	img.Fill(s.cfg.Background.toRGBA())
	s.renderInto(img)
	return img
}

// renderInto draws the composition scaled to fit dst, centered, restoring the
// root transform afterwards.
func (s *Stage) renderInto(dst *ebiten.Image) {
	b := dst.Bounds()
	w, h := float64(b.Dx()), float64(b.Dy())
	fit := math.Min(w/s.cfg.Width, h/s.cfg.Height)
	ox := (w - s.cfg.Width*fit) / 2
	oy := (h - s.cfg.Height*fit) / 2

	prevZoom := s.cfg.Zoom
	s.root.SetScale(fit, fit)
	s.root.SetPosition(ox, oy)
	drawTree(dst, s.root)
	s.root.SetPosition(0, 0)
	s.root.SetScale(prevZoom, prevZoom)
	s.root.MarkDirty()
}

// Destroy tears down the stage and every renderer.
func (s *Stage) Destroy() {
	s.endEdit(false)
	s.manager.Destroy()
	s.root.Dispose()
}

// --- Overlays ---

// drawGuides paints the transient alignment guides as dashed full-span lines.
func (s *Stage) drawGuides(dst *ebiten.Image) {
	z := s.cfg.Zoom
	if s.guideV != nil {
		x := s.guideV.Line * z
		dashedLine(dst, x, 0, x, s.cfg.Height*z, 0, guideColor)
	}
	if s.guideH != nil {
		y := s.guideH.Line * z
		dashedLine(dst, 0, y, s.cfg.Width*z, y, 0, guideColor)
	}
}

// drawSelection paints the marching-dash outline and the resize handles
// around the selected element.
func (s *Stage) drawSelection(dst *ebiten.Image) {
	if s.selection == "" {
		return
	}
	r := s.manager.Renderer(s.selection)
	if r == nil || !r.Wrapper().Visible {
		return
	}
	z := s.cfg.Zoom
	b := boundsOf(r)
	// Follow the live wrapper during a drag, not the stale element snapshot.
	b.X, b.Y = r.Wrapper().X, r.Wrapper().Y

	x0, y0 := b.X*z, b.Y*z
	x1, y1 := (b.X+b.Width)*z, (b.Y+b.Height)*z

	phase := s.dashPhase
	dashedLine(dst, x0, y0, x1, y0, phase, selectionColor)
	dashedLine(dst, x1, y0, x1, y1, phase, selectionColor)
	dashedLine(dst, x1, y1, x0, y1, phase, selectionColor)
	dashedLine(dst, x0, y1, x0, y0, phase, selectionColor)

	xs := []float64{x0, (x0 + x1) / 2, x1}
	ys := []float64{y0, (y0 + y1) / 2, y1}
	for i, hx := range xs {
		for j, hy := range ys {
			if i == 1 && j == 1 {
				continue
			}
			vector.DrawFilledRect(dst,
				float32(hx-handleSize/2), float32(hy-handleSize/2),
				handleSize, handleSize, selectionColor.toRGBA(), true)
		}
	}
}

// dashedLine strokes a dashed segment from (x0,y0) to (x1,y1); phase shifts
// the dash pattern along the line for the marching effect.
func dashedLine(dst *ebiten.Image, x0, y0, x1, y1, phase float64, c Color) {
	dx, dy := x1-x0, y1-y0
	length := math.Hypot(dx, dy)
	if length == 0 {
		return
	}
	ux, uy := dx/length, dy/length
	period := dashLength + dashGap

	for t := -math.Mod(phase, period); t < length; t += period {
		a := math.Max(t, 0)
		b := math.Min(t+dashLength, length)
		if b <= a {
			continue
		}
		vector.StrokeLine(dst,
			float32(x0+ux*a), float32(y0+uy*a),
			float32(x0+ux*b), float32(y0+uy*b),
			1.5, c.toRGBA(), true)
	}
}
