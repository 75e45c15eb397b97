package preview

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Manager owns the live renderer map and is its only writer. It reconciles
// the renderer set against each new ordered element list, and fans out
// timestamp, playing, and z-index changes to every live renderer.
type Manager struct {
	host *Host
	root *Node

	renderers map[string]Renderer

	timestamp float64
	playing   bool
	stageSize Vec2
	scale     float64

	// Reconciliation serialization: requests arriving while a pass runs
	// coalesce into pending, most recent wins. Two passes never interleave.
	reconciling bool
	pending     []Element
	hasPending  bool

	requestRedraw func()
	onFault       func(id string)
}

// NewManager creates a manager that parents all renderer wrappers under root.
func NewManager(host *Host, root *Node) *Manager {
	return &Manager{
		host:      host,
		root:      root,
		renderers: make(map[string]Renderer),
		scale:     1,
	}
}

// SetRedrawRequest registers the callback invoked once per finished
// reconciliation (not per element).
func (m *Manager) SetRedrawRequest(fn func()) {
	m.requestRedraw = fn
}

// SetFaultHook registers the callback invoked after a forced teardown.
func (m *Manager) SetFaultHook(fn func(id string)) {
	m.onFault = fn
}

// Renderer returns the live renderer for an id, or nil.
func (m *Manager) Renderer(id string) Renderer {
	return m.renderers[id]
}

// Len returns the number of live renderers.
func (m *Manager) Len() int {
	return len(m.renderers)
}

// SetStageSize records the stage pixel size handed to renderers each frame.
func (m *Manager) SetStageSize(size Vec2, scale float64) {
	m.stageSize = size
	m.scale = scale
}

func (m *Manager) frameContext() FrameContext {
	return FrameContext{
		Timestamp: m.timestamp,
		Playing:   m.playing,
		StageSize: m.stageSize,
		Scale:     m.scale,
	}
}

// Reconcile makes the renderer set match the ordered element list. If a pass
// is already running, the list replaces any queued target and the running
// pass picks it up when it finishes: requests coalesce to most-recent-wins
// and never accumulate.
func (m *Manager) Reconcile(elements []Element) {
	if m.reconciling {
		m.pending = elements
		m.hasPending = true
		return
	}
	m.reconciling = true
	for {
		m.reconcilePass(elements)
		if !m.hasPending {
			break
		}
		elements = m.pending
		m.pending = nil
		m.hasPending = false
	}
	m.reconciling = false

	if m.requestRedraw != nil {
		m.requestRedraw()
	}
}

func (m *Manager) reconcilePass(elements []Element) {
	seen := make(map[string]struct{}, len(elements))

	for i, el := range elements {
		if !renderable(el, m.host) {
			// Prerequisites missing (no source, no audio graph yet): skip the
			// element until they are met, tearing down any stale renderer.
			m.destroyByID(el.ID)
			continue
		}
		seen[el.ID] = struct{}{}
		if !m.reconcileElement(el, i) {
			delete(seen, el.ID)
		}
	}

	// Sweep renderers whose ids vanished from the list.
	for id := range m.renderers {
		if _, ok := seen[id]; !ok {
			m.destroyByID(id)
		}
	}
}

// reconcileElement creates or diff-updates one renderer and pushes a frame.
// A panic from one element is contained: the renderer is torn down and the
// rest of the pass continues.
func (m *Manager) reconcileElement(el Element, position int) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			logf("element %q: reconcile panic: %v", el.ID, r)
			m.destroyByID(el.ID)
			ok = false
		}
	}()

	r := m.renderers[el.ID]
	if r == nil {
		var err error
		r, err = newRenderer(el, m.host)
		if err != nil {
			logf("element %q: %v", el.ID, err)
			return false
		}
		if err := r.Initialize(); err != nil {
			logf("element %q: initialize: %v", el.ID, err)
			r.Destroy()
			return false
		}
		m.renderers[el.ID] = r
		m.root.AddChild(r.Wrapper())
	} else {
		r.Update(el)
	}

	r.Wrapper().ZIndex = resolveZ(el, position)
	r.SyncVisibility(m.timestamp)
	r.SetPlaying(m.playing)
	r.FrameUpdate(m.frameContext())
	return true
}

// resolveZ returns the explicit z-index or the positional fallback.
func resolveZ(el Element, position int) int {
	if el.HasZIndex {
		return el.ZIndex
	}
	return position
}

// SetTimestamp advances the shared playback clock and re-syncs visibility.
func (m *Manager) SetTimestamp(timestamp float64) {
	m.timestamp = timestamp
	for _, r := range m.renderers {
		r.SyncVisibility(timestamp)
	}
}

// SetPlaying fans out the shared playing flag.
func (m *Manager) SetPlaying(playing bool) {
	if m.playing == playing {
		return
	}
	m.playing = playing
	for _, r := range m.renderers {
		r.SetPlaying(playing)
	}
}

// FrameUpdate drives one animation tick across all live renderers.
func (m *Manager) FrameUpdate(timestamp float64, playing bool) {
	m.timestamp = timestamp
	m.playing = playing
	fc := m.frameContext()
	for _, r := range m.renderers {
		r.SyncVisibility(timestamp)
		r.SetPlaying(playing)
		r.FrameUpdate(fc)
	}
}

// Fault forcibly tears down a renderer the host reports as faulted, rather
// than leaving it in an inconsistent state. The element reappears on a later
// reconcile once its data or resources become valid again.
func (m *Manager) Fault(id string) {
	if _, ok := m.renderers[id]; !ok {
		return
	}
	m.destroyByID(id)
	if m.onFault != nil {
		m.onFault(id)
	}
}

// PrepareTimestamp seeks every media renderer to an exact timestamp and
// awaits readiness: the hard synchronization guarantee for export consumers.
func (m *Manager) PrepareTimestamp(ctx context.Context, timestamp float64) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, r := range m.renderers {
		if p, ok := r.(preparer); ok {
			g.Go(func() error { return p.Prepare(ctx, timestamp) })
		}
	}
	if err := g.Wait(); err != nil {
		return err
	}
	m.SetTimestamp(timestamp)
	return nil
}

// Destroy tears down every renderer. The manager is unusable afterwards.
func (m *Manager) Destroy() {
	for id := range m.renderers {
		m.destroyByID(id)
	}
}

func (m *Manager) destroyByID(id string) {
	r, ok := m.renderers[id]
	if !ok {
		return
	}
	delete(m.renderers, id)
	r.Destroy()
}
