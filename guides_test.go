package preview

import "testing"

func TestCollectGuidesSnapsEdgeToEdge(t *testing.T) {
	stage := Vec2{X: 1000, Y: 600}
	dragged := Rect{X: 96, Y: 310, Width: 100, Height: 50}
	other := Rect{X: 200, Y: 41, Width: 50, Height: 50}

	v, h := CollectGuides(dragged, []Rect{other}, stage, 6)

	if v == nil {
		t.Fatal("expected a vertical guide")
	}
	if v.Line != 200 || v.Edge != EdgeEnd {
		t.Errorf("vertical guide = %+v, want line 200 on the end edge", v)
	}
	// Applying the offset must align the edges exactly.
	assertNear(t, "right edge after snap", dragged.X+v.Offset+dragged.Width, 200)

	if h != nil {
		t.Errorf("unexpected horizontal guide %+v", h)
	}
}

func TestCollectGuidesNearestCandidateWins(t *testing.T) {
	dragged := Rect{X: 96, Y: 300, Width: 100, Height: 50} // right edge at 196
	others := []Rect{
		{X: 200, Y: 700, Width: 10, Height: 10}, // distance 4
		{X: 198, Y: 700, Width: 10, Height: 10}, // distance 2, wins
	}

	v, _ := CollectGuides(dragged, others, Vec2{X: 5000, Y: 5000}, 6)
	if v == nil || v.Line != 198 {
		t.Fatalf("vertical guide = %+v, want line 198", v)
	}
	assertNear(t, "snap offset", v.Offset, 2)
}

func TestCollectGuidesStageMidline(t *testing.T) {
	stage := Vec2{X: 1000, Y: 600}
	// Dragged center x at 497, 3 away from the stage midline at 500.
	dragged := Rect{X: 447, Y: 900, Width: 100, Height: 50}

	v, _ := CollectGuides(dragged, nil, stage, 6)
	if v == nil || v.Line != 500 || v.Edge != EdgeCenter {
		t.Fatalf("vertical guide = %+v, want stage midline on center edge", v)
	}
	assertNear(t, "center after snap", dragged.X+v.Offset+dragged.Width/2, 500)
}

func TestCollectGuidesRespectsThreshold(t *testing.T) {
	dragged := Rect{X: 80, Y: 80, Width: 10, Height: 10}
	other := Rect{X: 100, Y: 300, Width: 10, Height: 10}

	v, h := CollectGuides(dragged, []Rect{other}, Vec2{X: 5000, Y: 5000}, 6)
	if v != nil || h != nil {
		t.Errorf("guides = (%+v, %+v), want none outside threshold", v, h)
	}
}

func TestCollectGuidesOnePerAxis(t *testing.T) {
	// Both edges of the dragged rect are near candidates; only one vertical
	// guide may be reported.
	dragged := Rect{X: 98, Y: 98, Width: 100, Height: 100}
	others := []Rect{
		{X: 100, Y: 0, Width: 100, Height: 10},
		{X: 0, Y: 100, Width: 10, Height: 100},
	}

	v, h := CollectGuides(dragged, others, Vec2{X: 5000, Y: 5000}, 6)
	if v == nil || h == nil {
		t.Fatal("expected one guide per axis")
	}
	// Start edges are 2 away; snapping either axis lands exactly.
	assertNear(t, "x after snap", dragged.X+v.Offset, 100)
	assertNear(t, "y after snap", dragged.Y+h.Offset, 100)
}
