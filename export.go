package preview

import (
	"context"
	"sort"

	"github.com/hajimehoshi/ebiten/v2"
)

// ExportSnapshot is the stage state an offline export pipeline needs to
// re-render the composition: the stage parameters plus the live element
// snapshots in paint order.
type ExportSnapshot struct {
	Width      float64
	Height     float64
	Background Color
	Elements   []Element
}

// Snapshot captures the current export state. The element list reflects the
// renderers that survived the last reconcile, ordered back to front.
func (s *Stage) Snapshot() ExportSnapshot {
	type entry struct {
		z  int
		el Element
	}
	entries := make([]entry, 0, len(s.manager.renderers))
	for _, r := range s.manager.renderers {
		entries = append(entries, entry{z: r.Wrapper().ZIndex, el: r.Element()})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].z != entries[j].z {
			return entries[i].z < entries[j].z
		}
		return compareFallback(entries[i].el.ID, entries[j].el.ID) < 0
	})

	snap := ExportSnapshot{
		Width:      s.cfg.Width,
		Height:     s.cfg.Height,
		Background: s.cfg.Background,
		Elements:   make([]Element, 0, len(entries)),
	}
	for _, e := range entries {
		snap.Elements = append(snap.Elements, e.el)
	}
	return snap
}

// ExportFrame renders the composition at an exact timestamp into dst,
// letterboxed to dst's size. Media is sought and awaited first, so the frame
// is timestamp-accurate regardless of decode latency. Media handles enter
// play state only long enough to pose the frame and are paused again before
// returning.
func (s *Stage) ExportFrame(ctx context.Context, timestamp float64, dst *ebiten.Image) error {
	if err := s.manager.PrepareTimestamp(ctx, timestamp); err != nil {
		return err
	}
	s.manager.FrameUpdate(timestamp, true)
	dst.Fill(s.cfg.Background.toRGBA())
	s.renderInto(dst)
	s.manager.FrameUpdate(timestamp, false)
	return nil
}
