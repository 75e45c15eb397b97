package preview

import "testing"

type fakeClock struct {
	ts      float64
	playing bool
}

func (c *fakeClock) Now() (float64, bool) { return c.ts, c.playing }
func (c *fakeClock) SetPlaying(p bool)    { c.playing = p }

func stageEl(id string, x, y float64) Element {
	el := textEl(id, 0, 10000)
	el.Position = Vec2{X: x, Y: y}
	return el
}

func newTestStage(t *testing.T) (*Stage, *[]Patch) {
	t.Helper()
	var patches []Patch
	host := &Host{UpdateElement: func(p Patch) { patches = append(patches, p) }}
	s := NewStage(StageConfig{Width: 1000, Height: 600}, host)
	s.SetElements([]Element{
		stageEl("a", 100, 100), // 100x40 from textEl
		stageEl("b", 400, 100),
	})
	return s, &patches
}

func TestPointerDownSelects(t *testing.T) {
	s, _ := newTestStage(t)
	var selected []string
	s.OnSelect = func(id string) { selected = append(selected, id) }

	s.PointerDown(150, 120, 0)
	s.PointerUp()

	if s.Selection() != "a" {
		t.Fatalf("Selection() = %q, want %q", s.Selection(), "a")
	}
	if len(selected) != 1 || selected[0] != "a" {
		t.Errorf("OnSelect calls = %v, want [a]", selected)
	}

	// Empty space deselects.
	s.PointerDown(900, 500, 100)
	s.PointerUp()
	if s.Selection() != "" {
		t.Errorf("Selection() = %q, want empty", s.Selection())
	}
}

func TestDragSnapsAndCommitsPatch(t *testing.T) {
	s, patches := newTestStage(t)

	// Drag "a" rightwards so its right edge lands 4px short of "b"'s left
	// edge at x=400: the guide snaps the remaining distance.
	s.PointerDown(150, 120, 0)
	s.PointerMove(346, 120)

	if s.guideV == nil {
		t.Fatal("expected a vertical guide during the drag")
	}
	w := s.manager.Renderer("a").Wrapper()
	assertNear(t, "wrapper x during drag", w.X, 300)
	assertNear(t, "wrapper y during drag", w.Y, 100)

	s.PointerUp()

	if s.guideV != nil || s.guideH != nil {
		t.Error("guides survived the drag end")
	}
	if len(*patches) != 1 {
		t.Fatalf("patches = %d, want 1", len(*patches))
	}
	p := (*patches)[0]
	if p.ID != "a" || p.Position == nil {
		t.Fatalf("patch = %+v, want a position patch for a", p)
	}
	assertNear(t, "patched x", p.Position.X, 300)
	assertNear(t, "patched y", p.Position.Y, 100)
}

func TestDragDeadZone(t *testing.T) {
	s, patches := newTestStage(t)

	s.PointerDown(150, 120, 0)
	s.PointerMove(152, 121) // inside the dead zone
	s.PointerUp()

	w := s.manager.Renderer("a").Wrapper()
	assertNear(t, "wrapper x after click", w.X, 100)
	if len(*patches) != 0 {
		t.Errorf("patches = %d, want 0 for a click", len(*patches))
	}
}

func TestHitTestPicksTopmost(t *testing.T) {
	s, _ := newTestStage(t)

	// Stack "c" over "a" with a higher explicit z.
	over := stageEl("c", 100, 100)
	over.ZIndex = 5
	over.HasZIndex = true
	s.SetElements([]Element{
		stageEl("a", 100, 100),
		stageEl("b", 400, 100),
		over,
	})

	s.PointerDown(150, 120, 0)
	s.PointerUp()
	if s.Selection() != "c" {
		t.Errorf("Selection() = %q, want topmost %q", s.Selection(), "c")
	}
}

func TestDoubleClickOpensEditAndEnterCommits(t *testing.T) {
	s, patches := newTestStage(t)

	s.PointerDown(150, 120, 0)
	s.PointerUp()
	s.PointerDown(150, 120, 200)
	s.PointerUp()

	if !s.Editing() {
		t.Fatal("expected an edit session after double click")
	}

	s.TypeRunes([]rune("!!"))
	s.KeyEnter()

	if s.Editing() {
		t.Fatal("expected edit closed after Enter")
	}
	if len(*patches) != 1 {
		t.Fatalf("patches = %d, want 1", len(*patches))
	}
	if p := (*patches)[0]; p.Text == nil || *p.Text != "hello!!" {
		t.Errorf("patch = %+v, want text %q", p, "hello!!")
	}
}

func TestEscapeCancelsEditThenDeselects(t *testing.T) {
	s, patches := newTestStage(t)

	s.PointerDown(150, 120, 0)
	s.PointerUp()
	s.PointerDown(150, 120, 200)
	s.PointerUp()

	s.TypeRunes([]rune("zzz"))
	s.KeyEscape()

	if s.Editing() {
		t.Fatal("expected edit cancelled")
	}
	if len(*patches) != 0 {
		t.Errorf("cancel produced %d patches", len(*patches))
	}
	if s.Selection() != "a" {
		t.Fatalf("Selection() = %q, want still selected", s.Selection())
	}

	s.KeyEscape()
	if s.Selection() != "" {
		t.Errorf("Selection() = %q, want cleared", s.Selection())
	}
}

func TestDeleteAndDuplicateCallbacks(t *testing.T) {
	s, _ := newTestStage(t)
	var deleted, duplicated []string
	s.OnDelete = func(id string) { deleted = append(deleted, id) }
	s.OnDuplicate = func(id string) { duplicated = append(duplicated, id) }

	s.KeyDelete() // nothing selected, no-op
	s.DuplicateSelected()

	s.PointerDown(150, 120, 0)
	s.PointerUp()
	s.KeyDelete()
	s.DuplicateSelected()

	if len(deleted) != 1 || deleted[0] != "a" {
		t.Errorf("deleted = %v, want [a]", deleted)
	}
	if len(duplicated) != 1 || duplicated[0] != "a" {
		t.Errorf("duplicated = %v, want [a]", duplicated)
	}
}

func TestStepFollowsPlaybackSource(t *testing.T) {
	s, _ := newTestStage(t)
	clock := &fakeClock{ts: 0, playing: true}
	s.SetPlaybackSource(clock)

	short := textEl("short", 0, 500)
	s.SetElements([]Element{short})
	w := s.manager.Renderer("short").Wrapper()

	s.Step()
	if !w.Visible {
		t.Fatal("expected visible at t=0")
	}

	clock.ts = 1000
	s.Step()
	if w.Visible {
		t.Fatal("expected hidden once the clock passed the window")
	}
}

func TestEditPausesPlaybackAndSwitchesTool(t *testing.T) {
	s, _ := newTestStage(t)
	clock := &fakeClock{playing: true}
	s.SetPlaybackSource(clock)
	var tools []string
	s.OnToolChange = func(name string) { tools = append(tools, name) }

	s.PointerDown(150, 120, 0)
	s.PointerUp()
	s.PointerDown(150, 120, 200)
	s.PointerUp()

	if !s.Editing() {
		t.Fatal("expected an edit session after double click")
	}
	if s.ActiveTool() != ToolText {
		t.Fatalf("ActiveTool() = %q, want %q", s.ActiveTool(), ToolText)
	}
	if clock.playing {
		t.Error("playback kept running while editing")
	}

	s.KeyEnter()
	if s.ActiveTool() != ToolSelect {
		t.Fatalf("ActiveTool() = %q, want %q after commit", s.ActiveTool(), ToolSelect)
	}
	if len(tools) != 2 || tools[0] != ToolText || tools[1] != ToolSelect {
		t.Errorf("OnToolChange calls = %v, want [text select]", tools)
	}
	if clock.playing {
		t.Error("commit must not resume playback on its own")
	}
}

func TestTogglePlayback(t *testing.T) {
	s, _ := newTestStage(t)

	s.TogglePlayback() // no source yet, no-op

	clock := &fakeClock{playing: false}
	s.SetPlaybackSource(clock)
	s.TogglePlayback()
	if !clock.playing {
		t.Fatal("expected playback started")
	}
	s.TogglePlayback()
	if clock.playing {
		t.Fatal("expected playback paused")
	}
}

func TestRedrawRequests(t *testing.T) {
	s, _ := newTestStage(t)
	redraws := 0
	s.OnRedraw = func() { redraws++ }

	s.SetElements([]Element{stageEl("a", 100, 100)})
	if redraws != 1 {
		t.Fatalf("redraws after reconcile = %d, want 1", redraws)
	}

	s.PointerDown(150, 120, 0)
	s.PointerMove(200, 160)
	s.PointerUp()
	if redraws != 3 {
		t.Errorf("redraws after a drag = %d, want 3 (reconcile, move, release)", redraws)
	}
}

func TestFaultClearsSelection(t *testing.T) {
	s, _ := newTestStage(t)

	s.PointerDown(150, 120, 0)
	s.PointerUp()
	s.manager.Fault("a")

	if s.Selection() != "" {
		t.Errorf("Selection() = %q, want cleared after fault", s.Selection())
	}
	if s.manager.Renderer("a") != nil {
		t.Error("faulted renderer still live")
	}
}
