package preview

import "github.com/hajimehoshi/ebiten/v2/text/v2"

// textRenderer renders text and subtitle elements. The subtitle variant keeps
// its displayed content synced to the active cue for the current timestamp,
// swapping text only when the active cue changes.
type textRenderer struct {
	rendererCore

	activeCue int // index into element.Cues, -1 when no cue is active
	edit      *EditSession
}

func newTextRenderer(el Element, host *Host) *textRenderer {
	return &textRenderer{
		rendererCore: newRendererCore(el, host),
		activeCue:    -1,
	}
}

func (r *textRenderer) Initialize() error {
	content := r.element.Text.Content
	if r.element.Kind == KindSubtitle {
		content = "" // cue-driven; nothing active until the first frame
	}
	visual := NewTextNode(r.element.ID+"/text", content, hostFace(r.host, r.element.Text))
	r.applyStyle(visual)
	r.attachVisual(visual)
	return nil
}

func hostFace(h *Host, style TextStyle) text.Face {
	if h.Face != nil {
		return h.Face(style)
	}
	return nil
}

func (r *textRenderer) applyStyle(n *Node) {
	tb := n.Text
	tb.Color = r.element.Text.Color
	tb.Align = r.element.Text.Align
	tb.Underline = r.element.Text.Underline
	tb.measureDirty = true
}

func (r *textRenderer) Update(el Element) {
	prev := r.updateCore(el)

	if r.visual == nil {
		return
	}
	if el.Kind != KindSubtitle && prev.Text.Content != el.Text.Content && r.edit == nil {
		r.visual.Text.SetContent(el.Text.Content)
	}
	if prev.Text.FaceID != el.Text.FaceID || prev.Text.Size != el.Text.Size ||
		prev.Text.Bold != el.Text.Bold || prev.Text.Italic != el.Text.Italic {
		r.visual.Text.Face = hostFace(r.host, el.Text)
		r.visual.Text.measureDirty = true
	}
	if prev.Text.Color != el.Text.Color || prev.Text.Align != el.Text.Align ||
		prev.Text.Underline != el.Text.Underline {
		r.applyStyle(r.visual)
	}
}

func (r *textRenderer) FrameUpdate(fc FrameContext) {
	info := r.frameInfoAt(fc.Timestamp)

	if r.element.Kind == KindSubtitle && r.visual != nil {
		r.syncCue(fc.Timestamp)
	}

	r.runAnimations(fc, info)
}

// syncCue re-evaluates which cue is active and swaps the displayed text only
// on a cue transition. Cue times are in seconds, element-local.
func (r *textRenderer) syncCue(timestamp float64) {
	local := (timestamp - r.element.StartTime) / 1000
	active := -1
	for i, cue := range r.element.Cues {
		if local >= cue.Start && local <= cue.End {
			active = i
			break
		}
	}
	if active == r.activeCue {
		return
	}
	r.activeCue = active
	if active < 0 {
		r.visual.Text.SetContent("")
	} else {
		r.visual.Text.SetContent(r.element.Cues[active].Text)
	}
}

func (r *textRenderer) Destroy() {
	if r.edit != nil {
		r.edit.Cancel()
	}
	r.destroyCore()
}

// --- In-place editing ---

// BeginEdit opens the in-place text edit affordance. The session mirrors its
// buffer into the visual node for live feedback; Commit patches the element
// store only when the text actually changed, Cancel restores the original.
// Subtitle elements are cue-driven and not editable.
func (r *textRenderer) BeginEdit() *EditSession {
	if r.element.Kind == KindSubtitle || r.destroyed {
		return nil
	}
	if r.edit != nil {
		return r.edit
	}
	r.edit = &EditSession{
		renderer: r,
		original: r.element.Text.Content,
		buf:      []rune(r.element.Text.Content),
	}
	return r.edit
}

// EditSession is one in-place text editing interaction. Commit-on-blur/Enter
// and cancel-on-Escape are driven by the stage; the session itself only
// manages the buffer and the final patch.
type EditSession struct {
	renderer *textRenderer
	original string
	buf      []rune
	closed   bool
}

// Text returns the current buffer contents.
func (s *EditSession) Text() string {
	return string(s.buf)
}

// Insert appends runes at the end of the buffer.
func (s *EditSession) Insert(runes ...rune) {
	if s.closed {
		return
	}
	s.buf = append(s.buf, runes...)
	s.mirror()
}

// Backspace removes the last rune.
func (s *EditSession) Backspace() {
	if s.closed || len(s.buf) == 0 {
		return
	}
	s.buf = s.buf[:len(s.buf)-1]
	s.mirror()
}

// Commit ends the session and patches the element store if the text changed.
func (s *EditSession) Commit() {
	if s.closed {
		return
	}
	s.close()
	if text := string(s.buf); text != s.original {
		s.renderer.host.patch(Patch{ID: s.renderer.element.ID, Text: &text})
	}
}

// Cancel ends the session and restores the original text.
func (s *EditSession) Cancel() {
	if s.closed {
		return
	}
	s.close()
	if s.renderer.visual != nil && !s.renderer.destroyed {
		s.renderer.visual.Text.SetContent(s.original)
	}
}

func (s *EditSession) close() {
	s.closed = true
	s.renderer.edit = nil
}

func (s *EditSession) mirror() {
	if s.renderer.visual != nil && !s.renderer.destroyed {
		s.renderer.visual.Text.SetContent(string(s.buf))
	}
}
