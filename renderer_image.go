package preview

import "github.com/hajimehoshi/ebiten/v2"

// imageRenderer renders still-image elements. It resolves exactly one
// playable source (explicit URL, else a host-cached object URL for a local
// file, else none) and degrades to an empty visual when nothing resolves or
// the load fails.
type imageRenderer struct {
	rendererCore

	url string // currently resolved source, "" when degraded
}

func newImageRenderer(el Element, host *Host) *imageRenderer {
	return &imageRenderer{rendererCore: newRendererCore(el, host)}
}

func (r *imageRenderer) Initialize() error {
	visual := NewSpriteNode(r.element.ID+"/image", nil)
	visual.Width = r.element.Width
	visual.Height = r.element.Height
	r.attachVisual(visual)
	r.load()
	return nil
}

// load resolves the source and starts an image load. The completion callback
// checks that this renderer is still the active instance for the id and that
// no newer load superseded it before touching the node.
func (r *imageRenderer) load() {
	url, ok := r.host.resolve(r.element.Source)
	if !ok {
		r.url = ""
		r.visual.Image = nil
		return
	}
	if url == r.url {
		return
	}
	r.url = url

	if r.host.LoadImage == nil {
		logf("image %q: no image loader configured", r.element.ID)
		return
	}
	seq := r.loadSeq
	r.host.LoadImage(url, func(img *ebiten.Image, err error) {
		if r.destroyed || seq != r.loadSeq || r.url != url {
			return // stale completion: instance destroyed or re-sourced
		}
		if err != nil {
			logf("image %q: load %s: %v", r.element.ID, url, err)
			r.visual.Image = nil
			return
		}
		r.visual.Image = img
		r.readNaturalSize(img)
	})
}

// readNaturalSize applies the decoded dimensions once, preserving any
// explicitly authored element size.
func (r *imageRenderer) readNaturalSize(img *ebiten.Image) {
	b := img.Bounds()
	if r.element.Width > 0 {
		r.visual.Width = r.element.Width
	} else {
		r.visual.Width = float64(b.Dx())
	}
	if r.element.Height > 0 {
		r.visual.Height = r.element.Height
	} else {
		r.visual.Height = float64(b.Dy())
	}
	r.visual.MarkDirty()
}

func (r *imageRenderer) Update(el Element) {
	prev := r.updateCore(el)
	if prev.Source != el.Source {
		r.loadSeq++ // invalidate any in-flight load for the old source
		r.load()
	}
	if (prev.Width != el.Width || prev.Height != el.Height) && r.visual.Image != nil {
		r.readNaturalSize(r.visual.Image)
	}
}

func (r *imageRenderer) FrameUpdate(fc FrameContext) {
	r.runAnimations(fc, r.frameInfoAt(fc.Timestamp))
}

func (r *imageRenderer) Destroy() {
	r.destroyCore()
}
