package preview

import (
	"errors"
	"testing"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
)

// --- Text ---

func TestTextRendererFollowsWindow(t *testing.T) {
	el := textEl("t1", 0, 2000)
	r := newTextRenderer(el, &Host{})
	if err := r.Initialize(); err != nil {
		t.Fatal(err)
	}

	r.SyncVisibility(1000)
	if !r.Wrapper().Visible {
		t.Fatal("expected visible at t=1000")
	}
	if got := r.visual.Text.Content; got != "hello" {
		t.Errorf("content = %q, want %q", got, "hello")
	}

	r.SyncVisibility(2500)
	if r.Wrapper().Visible {
		t.Fatal("expected hidden at t=2500")
	}
}

func TestTextRendererDiffsContent(t *testing.T) {
	r := newTextRenderer(textEl("t1", 0, 2000), &Host{})
	r.Initialize()

	next := r.element
	next.Text.Content = "changed"
	r.Update(next)

	if got := r.visual.Text.Content; got != "changed" {
		t.Errorf("content = %q, want %q", got, "changed")
	}
}

func TestSubtitleCueSwap(t *testing.T) {
	el := textEl("s1", 0, 3000)
	el.Kind = KindSubtitle
	el.Cues = []SubtitleCue{
		{Start: 0, End: 1, Text: "one"},
		{Start: 1.5, End: 2, Text: "two"},
	}
	r := newTextRenderer(el, &Host{})
	r.Initialize()

	if got := r.visual.Text.Content; got != "" {
		t.Fatalf("initial content = %q, want empty", got)
	}

	step := func(ts float64) string {
		r.SyncVisibility(ts)
		r.FrameUpdate(FrameContext{Timestamp: ts, Playing: true})
		return r.visual.Text.Content
	}

	if got := step(500); got != "one" {
		t.Errorf("content at 0.5s = %q, want %q", got, "one")
	}
	if got := step(1200); got != "" {
		t.Errorf("content between cues = %q, want empty", got)
	}
	if got := step(1600); got != "two" {
		t.Errorf("content at 1.6s = %q, want %q", got, "two")
	}
}

func TestEditSessionCommitPatches(t *testing.T) {
	var patches []Patch
	host := &Host{UpdateElement: func(p Patch) { patches = append(patches, p) }}
	r := newTextRenderer(textEl("t1", 0, 2000), host)
	r.Initialize()

	s := r.BeginEdit()
	if s == nil {
		t.Fatal("expected an edit session")
	}
	s.Insert('!', '?')
	if got := r.visual.Text.Content; got != "hello!?" {
		t.Errorf("live mirror = %q, want %q", got, "hello!?")
	}
	s.Backspace()
	s.Commit()

	if len(patches) != 1 {
		t.Fatalf("patches = %d, want 1", len(patches))
	}
	if patches[0].ID != "t1" || patches[0].Text == nil || *patches[0].Text != "hello!" {
		t.Errorf("patch = %+v, want text %q", patches[0], "hello!")
	}

	// Committing an unchanged buffer produces no patch.
	s2 := r.BeginEdit()
	s2.Commit()
	if len(patches) != 1 {
		t.Errorf("unchanged commit produced a patch")
	}
}

func TestEditSessionCancelRestores(t *testing.T) {
	var patches []Patch
	host := &Host{UpdateElement: func(p Patch) { patches = append(patches, p) }}
	r := newTextRenderer(textEl("t1", 0, 2000), host)
	r.Initialize()

	s := r.BeginEdit()
	s.Insert('x')
	s.Cancel()

	if got := r.visual.Text.Content; got != "hello" {
		t.Errorf("content after cancel = %q, want %q", got, "hello")
	}
	if len(patches) != 0 {
		t.Errorf("cancel produced %d patches", len(patches))
	}
}

func TestSubtitleIsNotEditable(t *testing.T) {
	el := textEl("s1", 0, 2000)
	el.Kind = KindSubtitle
	r := newTextRenderer(el, &Host{})
	r.Initialize()

	if r.BeginEdit() != nil {
		t.Error("subtitle elements must not open edit sessions")
	}
}

// --- Media ---

type fakeHandle struct {
	playing bool
	pos     time.Duration
	volume  float64
	seeks   int
	closed  int
}

func (h *fakeHandle) Play()                   { h.playing = true }
func (h *fakeHandle) Pause()                  { h.playing = false }
func (h *fakeHandle) IsPlaying() bool         { return h.playing }
func (h *fakeHandle) Position() time.Duration { return h.pos }
func (h *fakeHandle) SetVolume(v float64)     { h.volume = v }
func (h *fakeHandle) Close() error            { h.closed++; return nil }
func (h *fakeHandle) SetPosition(d time.Duration) error {
	h.pos = d
	h.seeks++
	return nil
}

func audioEl(id string) Element {
	return Element{
		ID:        id,
		Kind:      KindAudio,
		StartTime: 0,
		Duration:  5000,
		Opacity:   1,
		Volume:    0.8,
		Source:    MediaSource{URL: "track.ogg"},
	}
}

func newTestAudio(t *testing.T) (*audioRenderer, *fakeHandle) {
	t.Helper()
	handle := &fakeHandle{}
	host := &Host{
		OpenMedia: func(el Element, url string) (MediaHandle, error) {
			return handle, nil
		},
	}
	r := newAudioRenderer(audioEl("a1"), host)
	if err := r.Initialize(); err != nil {
		t.Fatal(err)
	}
	return r, handle
}

func TestMediaMirrorsPlayingAndVisible(t *testing.T) {
	r, handle := newTestAudio(t)

	if handle.volume != 0.8 {
		t.Errorf("volume = %v, want 0.8", handle.volume)
	}

	r.SetPlaying(true)
	r.SyncVisibility(1000) // show fires playback sync
	if !handle.playing {
		t.Fatal("expected playback while playing and visible")
	}

	r.SyncVisibility(6000) // hidden past the window
	if handle.playing {
		t.Fatal("expected pause once hidden")
	}

	r.SyncVisibility(1000)
	r.FrameUpdate(FrameContext{Timestamp: 1000, Playing: false})
	if handle.playing {
		t.Fatal("expected pause while the clock is paused")
	}
}

func TestMediaSeeksOutsideToleranceOnly(t *testing.T) {
	r, handle := newTestAudio(t)
	r.SyncVisibility(1000)

	r.FrameUpdate(FrameContext{Timestamp: 1000, Playing: false})
	if handle.seeks != 1 || handle.pos != time.Second {
		t.Fatalf("seeks = %d pos = %v, want one seek to 1s", handle.seeks, handle.pos)
	}

	// Repeated frames at the same paused timestamp must not re-seek.
	r.FrameUpdate(FrameContext{Timestamp: 1000, Playing: false})
	r.FrameUpdate(FrameContext{Timestamp: 1020, Playing: false}) // within 30ms
	if handle.seeks != 1 {
		t.Errorf("seeks = %d, want 1 within the tolerance window", handle.seeks)
	}

	r.FrameUpdate(FrameContext{Timestamp: 1100, Playing: false})
	if handle.seeks != 2 {
		t.Errorf("seeks = %d, want 2 after leaving the tolerance window", handle.seeks)
	}
}

func TestMediaTrimOffsetsSeekTarget(t *testing.T) {
	handle := &fakeHandle{}
	host := &Host{OpenMedia: func(Element, string) (MediaHandle, error) { return handle, nil }}
	el := audioEl("a1")
	el.StartTime = 2000
	el.TrimStart = 500
	r := newAudioRenderer(el, host)
	r.Initialize()

	r.SyncVisibility(3000)
	r.FrameUpdate(FrameContext{Timestamp: 3000, Playing: false})
	if want := 1500 * time.Millisecond; handle.pos != want {
		t.Errorf("pos = %v, want %v", handle.pos, want)
	}
}

func TestMediaDestroyClosesHandleOnce(t *testing.T) {
	r, handle := newTestAudio(t)

	r.Destroy()
	r.Destroy()

	if handle.closed != 1 {
		t.Errorf("closed = %d, want 1", handle.closed)
	}
	if !r.Wrapper().disposed {
		t.Error("wrapper not disposed")
	}
}

func TestMediaOpenFailureDegrades(t *testing.T) {
	host := &Host{
		OpenMedia: func(Element, string) (MediaHandle, error) {
			return nil, errors.New("boom")
		},
	}
	r := newAudioRenderer(audioEl("a1"), host)
	if err := r.Initialize(); err != nil {
		t.Fatalf("Initialize() = %v, want degraded nil", err)
	}

	// The degraded renderer must stay inert but alive.
	r.SetPlaying(true)
	r.SyncVisibility(1000)
	r.FrameUpdate(FrameContext{Timestamp: 1000, Playing: true})
	r.Destroy()
}

// --- Image ---

func TestImageStaleLoadCompletionIgnored(t *testing.T) {
	var loads []func(*ebiten.Image, error)
	host := &Host{
		LoadImage: func(url string, done func(*ebiten.Image, error)) {
			loads = append(loads, done)
		},
	}

	el := textEl("i1", 0, 2000)
	el.Kind = KindImage
	el.Source = MediaSource{URL: "first.png"}
	r := newImageRenderer(el, host)
	r.Initialize()

	next := r.element
	next.Source = MediaSource{URL: "second.png"}
	r.Update(next)

	if len(loads) != 2 {
		t.Fatalf("loads started = %d, want 2", len(loads))
	}

	// The first load completes after the source changed: it must be dropped
	// before touching the node. A nil image would panic if it were applied.
	loads[0](nil, nil)

	if r.url != "second.png" {
		t.Errorf("url = %q, want the re-sourced url", r.url)
	}

	// Completions arriving after Destroy are dropped the same way.
	r.Destroy()
	loads[1](nil, nil)
}
