package preview

import "math"

// Orientation distinguishes vertical from horizontal guide lines.
type Orientation uint8

const (
	OrientVertical Orientation = iota
	OrientHorizontal
)

// EdgeKind identifies which edge of the dragged node matched a guide line.
type EdgeKind uint8

const (
	EdgeStart EdgeKind = iota
	EdgeCenter
	EdgeEnd
)

// Guide is one transient alignment line produced during a drag gesture.
// Line is the stage coordinate of the matched candidate; Offset is the
// translation that aligns the dragged node's matched edge exactly onto it.
type Guide struct {
	Line        float64
	Orientation Orientation
	Edge        EdgeKind
	Offset      float64
}

// defaultSnapThreshold is the snap distance in stage pixels at zoom 1.
const defaultSnapThreshold = 6.0

// CollectGuides computes at most one vertical and one horizontal guide for a
// dragged node. Candidate lines are the stage edges and midline plus the
// start/center/end edges of every other visible element; the dragged node
// contributes its own three edges per axis. For each axis the single nearest
// (candidate, edge) pair within the threshold wins.
func CollectGuides(dragged Rect, others []Rect, stage Vec2, threshold float64) (vertical, horizontal *Guide) {
	if threshold <= 0 {
		threshold = defaultSnapThreshold
	}

	candX := []float64{0, stage.X / 2, stage.X}
	candY := []float64{0, stage.Y / 2, stage.Y}
	for _, r := range others {
		candX = append(candX, r.X, r.X+r.Width/2, r.X+r.Width)
		candY = append(candY, r.Y, r.Y+r.Height/2, r.Y+r.Height)
	}

	ownX := [3]float64{dragged.X, dragged.X + dragged.Width/2, dragged.X + dragged.Width}
	ownY := [3]float64{dragged.Y, dragged.Y + dragged.Height/2, dragged.Y + dragged.Height}

	vertical = nearestGuide(candX, ownX, threshold, OrientVertical)
	horizontal = nearestGuide(candY, ownY, threshold, OrientHorizontal)
	return vertical, horizontal
}

// nearestGuide finds the (candidate, own-edge) pair with the smallest
// distance within the threshold, or nil when nothing is close enough.
func nearestGuide(candidates []float64, own [3]float64, threshold float64, orient Orientation) *Guide {
	best := threshold
	var found *Guide
	for _, line := range candidates {
		for edge, pos := range own {
			d := math.Abs(line - pos)
			if d <= best {
				best = d
				found = &Guide{
					Line:        line,
					Orientation: orient,
					Edge:        EdgeKind(edge),
					Offset:      line - pos,
				}
			}
		}
	}
	return found
}
