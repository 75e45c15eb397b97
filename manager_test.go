package preview

import "testing"

func textEl(id string, start, duration float64) Element {
	return Element{
		ID:        id,
		Kind:      KindText,
		StartTime: start,
		Duration:  duration,
		Opacity:   1,
		Width:     100,
		Height:    40,
		Text:      TextStyle{Content: "hello"},
	}
}

func newTestManager() (*Manager, *Node, *int) {
	root := NewContainer("root")
	m := NewManager(&Host{}, root)
	redraws := 0
	m.SetRedrawRequest(func() { redraws++ })
	return m, root, &redraws
}

func TestReconcileCreatesRenderers(t *testing.T) {
	m, root, redraws := newTestManager()

	m.Reconcile([]Element{textEl("a", 0, 1000), textEl("b", 0, 1000)})

	if m.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", m.Len())
	}
	if len(root.children) != 2 {
		t.Fatalf("root has %d children, want 2", len(root.children))
	}
	if *redraws != 1 {
		t.Errorf("redraws = %d, want 1", *redraws)
	}
}

func TestReconcileReusesRenderers(t *testing.T) {
	m, _, _ := newTestManager()
	els := []Element{textEl("a", 0, 1000)}

	m.Reconcile(els)
	first := m.Renderer("a")
	m.Reconcile(els)

	if m.Renderer("a") != first {
		t.Error("renderer was recreated for an unchanged id")
	}
	if m.Len() != 1 {
		t.Errorf("Len() = %d, want 1", m.Len())
	}
}

func TestReconcileSweepsRemoved(t *testing.T) {
	m, _, _ := newTestManager()

	m.Reconcile([]Element{textEl("a", 0, 1000), textEl("b", 0, 1000)})
	a := m.Renderer("a")
	m.Reconcile([]Element{textEl("b", 0, 1000)})

	if m.Renderer("a") != nil {
		t.Fatal("removed renderer still live")
	}
	if !a.Wrapper().disposed {
		t.Error("removed renderer's wrapper not disposed")
	}
	if m.Len() != 1 {
		t.Errorf("Len() = %d, want 1", m.Len())
	}
}

func TestZIndexPropagation(t *testing.T) {
	m, _, _ := newTestManager()

	explicit := textEl("a", 0, 1000)
	explicit.ZIndex = 7
	explicit.HasZIndex = true
	positional := textEl("b", 0, 1000)

	m.Reconcile([]Element{positional, explicit})

	if got := m.Renderer("a").Wrapper().ZIndex; got != 7 {
		t.Errorf("explicit z = %d, want 7", got)
	}
	if got := m.Renderer("b").Wrapper().ZIndex; got != 0 {
		t.Errorf("positional z = %d, want 0", got)
	}
}

func TestAudioRequiresGraphAndSource(t *testing.T) {
	m, _, _ := newTestManager()

	audio := Element{ID: "a", Kind: KindAudio, Duration: 1000, Source: MediaSource{URL: "x.ogg"}, Volume: 1}
	m.Reconcile([]Element{audio})
	if m.Len() != 0 {
		t.Fatal("audio element created without an audio graph")
	}

	// Once the graph exists the element instantiates on the next pass.
	m.host.Audio = &AudioGraph{analyser: NewAnalyser(1024, 44100)}
	m.Reconcile([]Element{audio})
	if m.Len() != 1 {
		t.Fatal("audio element not created once prerequisites were met")
	}

	// Losing the source tears the renderer down again.
	audio.Source = MediaSource{}
	m.Reconcile([]Element{audio})
	if m.Len() != 0 {
		t.Fatal("audio renderer survived losing its source")
	}
}

func TestBadElementIsIsolated(t *testing.T) {
	m, _, _ := newTestManager()

	bad := Element{ID: "bad", Kind: ElementKind(99), Duration: 1000}
	m.Reconcile([]Element{bad, textEl("good", 0, 1000)})

	if m.Renderer("bad") != nil {
		t.Error("bad element produced a renderer")
	}
	if m.Renderer("good") == nil {
		t.Error("good element skipped because a sibling failed")
	}
}

func TestFaultTearsDownOnce(t *testing.T) {
	m, _, _ := newTestManager()
	var faults []string
	m.SetFaultHook(func(id string) { faults = append(faults, id) })

	m.Reconcile([]Element{textEl("a", 0, 1000)})
	a := m.Renderer("a")

	m.Fault("a")
	m.Fault("a")

	if m.Renderer("a") != nil {
		t.Error("faulted renderer still live")
	}
	if !a.Wrapper().disposed {
		t.Error("faulted renderer's wrapper not disposed")
	}
	if len(faults) != 1 {
		t.Errorf("fault hook fired %d times, want 1", len(faults))
	}
}

func TestSetTimestampSyncsVisibility(t *testing.T) {
	m, _, _ := newTestManager()
	m.Reconcile([]Element{textEl("a", 1000, 500)})
	w := m.Renderer("a").Wrapper()

	if w.Visible {
		t.Fatal("element visible before its window")
	}
	m.SetTimestamp(1200)
	if !w.Visible {
		t.Fatal("element hidden inside its window")
	}
	m.SetTimestamp(2000)
	if w.Visible {
		t.Fatal("element visible after its window")
	}
}

// --- Coalescing ---

// fakeRenderer lets a test hook into the reconcile pass from inside it.
type fakeRenderer struct {
	el        Element
	wrapper   *Node
	onUpdate  func(Element)
	destroyed int
}

func (f *fakeRenderer) ID() string               { return f.el.ID }
func (f *fakeRenderer) Kind() ElementKind        { return f.el.Kind }
func (f *fakeRenderer) Element() Element         { return f.el }
func (f *fakeRenderer) Wrapper() *Node           { return f.wrapper }
func (f *fakeRenderer) Initialize() error        { return nil }
func (f *fakeRenderer) SyncVisibility(float64)   {}
func (f *fakeRenderer) SetPlaying(bool)          {}
func (f *fakeRenderer) FrameUpdate(FrameContext) {}
func (f *fakeRenderer) Destroy()                 { f.destroyed++ }

func (f *fakeRenderer) Update(el Element) {
	f.el = el
	if f.onUpdate != nil {
		f.onUpdate(el)
	}
}

// A reconcile requested while a pass is running must be deferred, coalesced
// to the most recent request, and applied by the running call. The renderer
// removed in the meantime is destroyed exactly once, and only one redraw is
// requested for the whole sequence.
func TestReconcileCoalescesReentrantRequests(t *testing.T) {
	m, root, redraws := newTestManager()

	fake := &fakeRenderer{el: textEl("x", 0, 1000), wrapper: NewContainer("x")}
	m.renderers["x"] = fake
	root.AddChild(fake.wrapper)

	fake.onUpdate = func(Element) {
		// Two requests from inside the pass; only the last may win.
		m.Reconcile([]Element{textEl("stale", 0, 1000)})
		m.Reconcile([]Element{textEl("y", 0, 1000)})
	}

	m.Reconcile([]Element{textEl("x", 0, 1000)})

	if m.Renderer("x") != nil {
		t.Error("renderer from the superseded list still live")
	}
	if m.Renderer("stale") != nil {
		t.Error("superseded pending list was applied")
	}
	if m.Renderer("y") == nil {
		t.Error("latest pending list was not applied")
	}
	if fake.destroyed != 1 {
		t.Errorf("superseded renderer destroyed %d times, want 1", fake.destroyed)
	}
	if *redraws != 1 {
		t.Errorf("redraws = %d, want 1 for the whole sequence", *redraws)
	}
}
