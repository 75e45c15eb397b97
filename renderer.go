package preview

import (
	"fmt"
	"math"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/text/v2"
)

// referenceFPS is the fixed reference clock for frame indices, independent of
// the actual display refresh rate.
const referenceFPS = 60

// FrameContext is the ephemeral per-frame input to renderers. Recomputed
// every animation tick, never persisted.
type FrameContext struct {
	Timestamp float64 // playback clock, milliseconds
	Playing   bool
	StageSize Vec2
	Scale     float64 // uniform stage zoom factor
}

// frameInfo carries the derived per-element timing values for one frame.
type frameInfo struct {
	elapsed    float64 // local elapsed ms, floored at 0
	frameIndex int     // elapsed mapped onto the 60fps reference clock
	percent    float64 // progress through the element, [0, 100]
}

// Renderer materializes one Element onto the stage. Implementations own
// exactly one wrapper node and one visual node, are lifecycle-bound to a
// single element id, and are never reused across ids.
//
// Lifecycle: Initialize → Update* → SyncVisibility/SetPlaying/FrameUpdate
// (every tick) → Destroy. Destroy must be idempotent.
type Renderer interface {
	ID() string
	Kind() ElementKind
	Element() Element
	Wrapper() *Node

	// Initialize builds the wrapper and visual nodes. Media-bearing kinds may
	// start resource loads that complete later; a renderer whose resources
	// fail to load degrades to an empty visual state rather than erroring.
	Initialize() error

	// Update diffs the new element snapshot against the current one and
	// mutates the nodes in place. A changed animation set re-arms.
	Update(el Element)

	// SyncVisibility toggles the node's visibility to match the element's
	// time window, firing show/hide hooks once per transition.
	SyncVisibility(timestamp float64)

	// SetPlaying propagates the shared playing flag.
	SetPlaying(playing bool)

	// FrameUpdate runs per-frame work: animations, cue swaps, media sync,
	// style redraws.
	FrameUpdate(fc FrameContext)

	// Destroy releases the nodes and any attached media resources.
	Destroy()
}

// Host supplies the external collaborators a renderer needs: source
// resolution, resource loading, fonts, the shared audio graph, and the
// element-update callback. All callbacks are invoked on the game loop.
type Host struct {
	// ResolveSource maps a MediaSource to a playable URL. When nil, only
	// explicit URLs resolve.
	ResolveSource func(MediaSource) (string, bool)

	// LoadImage fetches and decodes an image. done may be called
	// synchronously or on a later tick; renderers guard against completions
	// that arrive after they were destroyed or re-sourced.
	LoadImage func(url string, done func(*ebiten.Image, error))

	// OpenMedia opens an audio playback handle for the element.
	OpenMedia func(el Element, url string) (MediaHandle, error)

	// OpenVideo opens a video frame source for the element.
	OpenVideo func(el Element, url string) (VideoSource, error)

	// Face returns the font face for a text style. Nil face renders nothing.
	Face func(style TextStyle) text.Face

	// Audio is the process-wide audio graph; nil until the host creates it.
	// Audio/video elements are not renderable before it exists.
	Audio *AudioGraph

	// UpdateElement delivers patches to the external element store.
	UpdateElement UpdateElementFunc
}

// resolve maps a source to a playable URL: explicit URL first, else the
// host's resolver (object URLs for local files), else nothing.
func (h *Host) resolve(s MediaSource) (string, bool) {
	if s.URL != "" {
		return s.URL, true
	}
	if s.LocalID != "" && h.ResolveSource != nil {
		return h.ResolveSource(s)
	}
	return "", false
}

// patch forwards a non-empty patch to the element store.
func (h *Host) patch(p Patch) {
	if h.UpdateElement != nil && !p.Empty() {
		h.UpdateElement(p)
	}
}

// renderable reports whether an element may be handed to its renderer.
// Audio and video require a resolvable playable source and a live audio
// graph; other kinds always instantiate and degrade internally.
func renderable(el Element, host *Host) bool {
	switch el.Kind {
	case KindAudio, KindVideo:
		if host.Audio == nil {
			return false
		}
		_, ok := host.resolve(el.Source)
		return ok
	default:
		return true
	}
}

// newRenderer constructs the type-specific renderer for an element.
// Callers must have checked renderable first.
func newRenderer(el Element, host *Host) (Renderer, error) {
	switch el.Kind {
	case KindText, KindSubtitle:
		return newTextRenderer(el, host), nil
	case KindImage:
		return newImageRenderer(el, host), nil
	case KindShape:
		return newShapeRenderer(el, host), nil
	case KindProgressBar:
		return newProgressRenderer(el, host), nil
	case KindWave:
		return newWaveRenderer(el, host), nil
	case KindAudio:
		return newAudioRenderer(el, host), nil
	case KindVideo:
		return newVideoRenderer(el, host), nil
	default:
		return nil, fmt.Errorf("preview: unknown element kind %d", el.Kind)
	}
}

// --- Shared lifecycle core ---

// rendererCore holds the state and behavior every renderer shares: the node
// pair, visibility window tracking, the animation state machine, and the
// async-load invalidation counter. Concrete renderers embed it.
type rendererCore struct {
	element Element
	host    *Host

	wrapper *Node
	visual  *Node

	shown     bool
	playing   bool
	phase     animPhase
	destroyed bool

	// loadSeq invalidates async resource completions: an id may be destroyed
	// and recreated before an old load resolves, so completions compare the
	// sequence they captured against the current value before mutating state.
	loadSeq int

	onShow func()
	onHide func()
}

func newRendererCore(el Element, host *Host) rendererCore {
	wrapper := NewContainer(el.ID)
	wrapper.Visible = false
	c := rendererCore{element: el, host: host, wrapper: wrapper}
	c.applyTransform(el)
	return c
}

func (c *rendererCore) ID() string        { return c.element.ID }
func (c *rendererCore) Kind() ElementKind { return c.element.Kind }
func (c *rendererCore) Element() Element  { return c.element }
func (c *rendererCore) Wrapper() *Node    { return c.wrapper }

// attachVisual parents the visual node under the wrapper.
func (c *rendererCore) attachVisual(n *Node) {
	c.visual = n
	c.wrapper.AddChild(n)
}

// applyTransform copies the element's authored transform onto the wrapper.
// Animation state lives on the offset/visual fields and is untouched.
func (c *rendererCore) applyTransform(el Element) {
	c.wrapper.SetPosition(el.Position.X, el.Position.Y)
	sx, sy := el.Scale.X, el.Scale.Y
	if sx == 0 {
		sx = 1
	}
	if sy == 0 {
		sy = 1
	}
	c.wrapper.SetScale(sx, sy)
	c.wrapper.SetRotation(el.Rotation)
	c.wrapper.SetAlpha(el.Opacity)
}

// updateCore diffs the shared fields and re-arms the animation machine when
// the animation set changed. Returns the previous snapshot for kind-specific
// diffing.
func (c *rendererCore) updateCore(el Element) (prev Element) {
	prev = c.element
	if !animationsEqual(prev.Animations, el.Animations) {
		c.resetAnimations()
	}
	c.element = el
	c.applyTransform(el)
	return prev
}

// SyncVisibility shows or hides the wrapper to match the element's time
// window, invoking the show/hide hooks once per transition.
func (c *rendererCore) SyncVisibility(timestamp float64) {
	visible := c.element.VisibleAt(timestamp)
	if visible == c.shown {
		return
	}
	c.shown = visible
	c.wrapper.Visible = visible
	c.wrapper.MarkDirty()
	if visible {
		if c.onShow != nil {
			c.onShow()
		}
	} else {
		if c.onHide != nil {
			c.onHide()
		}
	}
}

// SetPlaying records the shared playing flag.
func (c *rendererCore) SetPlaying(playing bool) {
	c.playing = playing
}

// frameInfoAt derives the element-local timing values for a timestamp.
func (c *rendererCore) frameInfoAt(timestamp float64) frameInfo {
	elapsed := c.element.LocalElapsed(timestamp)
	return frameInfo{
		elapsed:    elapsed,
		frameIndex: int(math.Round(elapsed * referenceFPS / 1000)),
		percent:    c.element.Progress(timestamp),
	}
}

// runAnimations applies the element's animations while playing and visible,
// and resets them exactly once on the ARMED→IDLE edge otherwise.
func (c *rendererCore) runAnimations(fc FrameContext, info frameInfo) {
	if c.visual == nil {
		return
	}
	if fc.Playing && c.shown && len(c.element.Animations) > 0 {
		for _, a := range c.element.Animations {
			applyAnimation(a, info.elapsed, info.percent, c.wrapper, c.visual, fc.StageSize)
		}
		c.phase = animArmed
		return
	}
	c.resetAnimations()
}

// resetAnimations restores the steady-state transform. Idempotent: resetting
// an already-idle renderer is a no-op.
func (c *rendererCore) resetAnimations() {
	if c.phase != animArmed {
		return
	}
	for _, a := range c.element.Animations {
		resetAnimation(a, c.wrapper, c.visual)
	}
	c.phase = animIdle
}

// destroyCore releases the node pair and invalidates pending async loads.
// Safe to call more than once.
func (c *rendererCore) destroyCore() {
	if c.destroyed {
		return
	}
	c.destroyed = true
	c.loadSeq++
	c.wrapper.Dispose()
}
