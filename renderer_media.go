package preview

import (
	"context"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/audio"
)

// seekTolerance is the window within which a redundant seek becomes a no-op,
// avoiding thrash and visible flicker when timestamps arrive repeatedly.
const seekTolerance = 30 * time.Millisecond

// MediaHandle is one underlying media playback handle. Exactly one handle
// exists per audio/video renderer instance; the renderer releases it in
// Destroy. Implementations are host primitives (see NewAudioPlayerHandle).
type MediaHandle interface {
	Play()
	Pause()
	IsPlaying() bool
	Position() time.Duration
	SetPosition(time.Duration) error
	SetVolume(volume float64)
	Close() error
}

// analyserAttacher is implemented by handles that can feed the shared
// analyser. Renderers attach at most once per instance.
type analyserAttacher interface {
	AttachAnalyser(*Analyser)
}

// NewAudioPlayerHandle adapts an ebiten audio player to MediaHandle.
func NewAudioPlayerHandle(p *audio.Player) MediaHandle {
	return &audioPlayerHandle{p: p}
}

type audioPlayerHandle struct {
	p *audio.Player
}

func (h *audioPlayerHandle) Play()                   { h.p.Play() }
func (h *audioPlayerHandle) Pause()                  { h.p.Pause() }
func (h *audioPlayerHandle) IsPlaying() bool         { return h.p.IsPlaying() }
func (h *audioPlayerHandle) Position() time.Duration { return h.p.Position() }
func (h *audioPlayerHandle) SetPosition(d time.Duration) error {
	return h.p.SetPosition(d)
}
func (h *audioPlayerHandle) SetVolume(v float64) { h.p.SetVolume(clamp01(v)) }
func (h *audioPlayerHandle) Close() error        { return h.p.Close() }

// VideoSource supplies decoded video frames. Decoding is a host primitive;
// the renderer only pulls frames by element-local offset.
type VideoSource interface {
	// FrameAt returns the frame at the offset, or nil when not yet decoded.
	FrameAt(offset time.Duration) *ebiten.Image
	Duration() time.Duration
	// Prepare blocks until the frame at the offset can be served, for
	// non-realtime (export) consumers.
	Prepare(ctx context.Context, offset time.Duration) error
	Close() error
}

// preparer is what the export pipeline asks of media renderers: seek to an
// exact timestamp and await readiness before a frame is captured.
type preparer interface {
	Prepare(ctx context.Context, timestamp float64) error
}

// mediaRenderer is the playback logic shared by audio and video renderers:
// handle lifecycle, play/pause mirroring to (playing && visible), tolerant
// seeking while paused, and one-time analyser attachment.
type mediaRenderer struct {
	rendererCore

	handle   MediaHandle
	attached bool
}

// openHandle resolves the source and opens the playback handle. The manager
// only instantiates media renderers once the source resolves, so a failure
// here is a host error: logged, renderer degrades to silence.
func (r *mediaRenderer) openHandle() {
	url, ok := r.host.resolve(r.element.Source)
	if !ok || r.host.OpenMedia == nil {
		logf("media %q: no playable source", r.element.ID)
		return
	}
	handle, err := r.host.OpenMedia(r.element, url)
	if err != nil {
		logf("media %q: open %s: %v", r.element.ID, url, err)
		return
	}
	r.handle = handle
	r.handle.SetVolume(clamp01(r.element.Volume))
	r.onHide = func() { r.syncPlayback() }
	r.onShow = func() { r.syncPlayback() }
}

// syncPlayback mirrors the handle's play state to (playing && visible).
func (r *mediaRenderer) syncPlayback() {
	if r.handle == nil || r.destroyed {
		return
	}
	want := r.playing && r.shown
	switch {
	case want && !r.handle.IsPlaying():
		r.handle.Play()
	case !want && r.handle.IsPlaying():
		r.handle.Pause()
	}
}

// targetPosition maps the shared timestamp onto the handle's local position.
func (r *mediaRenderer) targetPosition(timestamp float64) time.Duration {
	ms := timestamp - r.element.StartTime + r.element.TrimStart
	if ms < 0 {
		ms = 0
	}
	return time.Duration(ms * float64(time.Millisecond))
}

// seekIfNeeded aligns the paused handle with the playback clock. Seeks within
// the tolerance window are skipped; redundant calls are harmless.
func (r *mediaRenderer) seekIfNeeded(timestamp float64) {
	if r.handle == nil {
		return
	}
	want := r.targetPosition(timestamp)
	diff := r.handle.Position() - want
	if diff < 0 {
		diff = -diff
	}
	if diff > seekTolerance {
		if err := r.handle.SetPosition(want); err != nil {
			logf("media %q: seek: %v", r.element.ID, err)
		}
	}
}

// attachGraph attaches the handle to the shared analyser exactly once.
// The graph may become available only after construction; attachment is
// retried each frame until it succeeds, then never again.
func (r *mediaRenderer) attachGraph() {
	if r.attached || r.handle == nil || r.host.Audio == nil {
		return
	}
	if a, ok := r.handle.(analyserAttacher); ok {
		a.AttachAnalyser(r.host.Audio.Analyser())
	}
	r.attached = true
}

func (r *mediaRenderer) updateMedia(prev, el Element) {
	if r.handle != nil && prev.Volume != el.Volume {
		r.handle.SetVolume(clamp01(el.Volume))
	}
}

func (r *mediaRenderer) frameMedia(fc FrameContext) {
	r.attachGraph()
	r.SetPlaying(fc.Playing)
	r.syncPlayback()
	if !fc.Playing {
		r.seekIfNeeded(fc.Timestamp)
	}
}

// Prepare seeks the handle to an exact timestamp for export capture. Audio
// positions apply synchronously; readiness is immediate once the seek lands.
func (r *mediaRenderer) Prepare(ctx context.Context, timestamp float64) error {
	if r.handle == nil {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return r.handle.SetPosition(r.targetPosition(timestamp))
}

func (r *mediaRenderer) closeHandle() {
	if r.handle != nil {
		if err := r.handle.Close(); err != nil {
			logf("media %q: close: %v", r.element.ID, err)
		}
		r.handle = nil
	}
}

// --- Audio ---

// audioRenderer plays audio elements. It has no visual output: the wrapper
// exists only so lifecycle and z-order handling stay uniform.
type audioRenderer struct {
	mediaRenderer
}

func newAudioRenderer(el Element, host *Host) *audioRenderer {
	return &audioRenderer{mediaRenderer{rendererCore: newRendererCore(el, host)}}
}

func (r *audioRenderer) Initialize() error {
	r.attachVisual(NewContainer(r.element.ID + "/audio"))
	r.openHandle()
	return nil
}

func (r *audioRenderer) Update(el Element) {
	prev := r.updateCore(el)
	r.updateMedia(prev, el)
}

func (r *audioRenderer) FrameUpdate(fc FrameContext) {
	r.frameMedia(fc)
}

func (r *audioRenderer) Destroy() {
	r.closeHandle()
	r.destroyCore()
}

// --- Video ---

// videoRenderer plays video elements: one playback handle for the audio
// track, one frame source for the picture.
type videoRenderer struct {
	mediaRenderer

	source VideoSource
}

func newVideoRenderer(el Element, host *Host) *videoRenderer {
	return &videoRenderer{mediaRenderer: mediaRenderer{rendererCore: newRendererCore(el, host)}}
}

func (r *videoRenderer) Initialize() error {
	visual := NewSpriteNode(r.element.ID+"/video", nil)
	visual.Width = r.element.Width
	visual.Height = r.element.Height
	r.attachVisual(visual)

	r.openHandle()

	url, ok := r.host.resolve(r.element.Source)
	if ok && r.host.OpenVideo != nil {
		source, err := r.host.OpenVideo(r.element, url)
		if err != nil {
			logf("video %q: open %s: %v", r.element.ID, url, err)
		} else {
			r.source = source
		}
	}
	return nil
}

func (r *videoRenderer) Update(el Element) {
	prev := r.updateCore(el)
	r.updateMedia(prev, el)
}

func (r *videoRenderer) FrameUpdate(fc FrameContext) {
	r.frameMedia(fc)

	if r.source != nil && r.shown {
		if frame := r.source.FrameAt(r.targetPosition(fc.Timestamp)); frame != nil {
			r.visual.Image = frame
			if r.element.Width <= 0 {
				b := frame.Bounds()
				r.visual.Width = float64(b.Dx())
				r.visual.Height = float64(b.Dy())
			}
		}
	}

	r.runAnimations(fc, r.frameInfoAt(fc.Timestamp))
}

// Prepare seeks both the audio handle and the frame source, returning once
// the exact frame can be captured.
func (r *videoRenderer) Prepare(ctx context.Context, timestamp float64) error {
	if err := r.mediaRenderer.Prepare(ctx, timestamp); err != nil {
		return err
	}
	if r.source == nil {
		return nil
	}
	return r.source.Prepare(ctx, r.targetPosition(timestamp))
}

func (r *videoRenderer) Destroy() {
	r.closeHandle()
	if r.source != nil {
		if err := r.source.Close(); err != nil {
			logf("video %q: close source: %v", r.element.ID, err)
		}
		r.source = nil
	}
	r.destroyCore()
}
