package preview

import "testing"

func TestVisibleAtWindow(t *testing.T) {
	el := Element{StartTime: 1000, Duration: 2000, TrimStart: 200, TrimEnd: 300}

	// Window is [1200, 2700], both ends inclusive.
	cases := []struct {
		ts   float64
		want bool
	}{
		{1199, false},
		{1200, true},
		{2000, true},
		{2700, true},
		{2701, false},
	}
	for _, c := range cases {
		if got := el.VisibleAt(c.ts); got != c.want {
			t.Errorf("VisibleAt(%v) = %v, want %v", c.ts, got, c.want)
		}
	}
}

func TestProgressClamps(t *testing.T) {
	el := Element{StartTime: 1000, Duration: 2000}

	if got := el.Progress(0); got != 0 {
		t.Errorf("Progress before start = %v, want 0", got)
	}
	if got := el.Progress(2000); got != 50 {
		t.Errorf("Progress at midpoint = %v, want 50", got)
	}
	if got := el.Progress(9999); got != 100 {
		t.Errorf("Progress after end = %v, want 100", got)
	}

	zero := Element{StartTime: 0, Duration: 0}
	if got := zero.Progress(500); got != 0 {
		t.Errorf("Progress with zero duration = %v, want 0", got)
	}
}

func TestLocalElapsedFloorsAtZero(t *testing.T) {
	el := Element{StartTime: 1000, Duration: 2000}
	if got := el.LocalElapsed(500); got != 0 {
		t.Errorf("LocalElapsed before start = %v, want 0", got)
	}
	if got := el.LocalElapsed(1750); got != 750 {
		t.Errorf("LocalElapsed = %v, want 750", got)
	}
}

func TestCompareFallback(t *testing.T) {
	cases := []struct {
		a, b string
		want int // sign only
	}{
		{"a2", "a10", -1}, // numeric suffixes compare numerically
		{"a10", "b2", -1}, // prefixes compare lexicographically first
		{"b2", "a10", 1},
		{"el1", "el1", 0},
		{"img2", "img10", -1},
		{"a", "a1", -1}, // no suffix orders before any suffix
	}
	for _, c := range cases {
		got := compareFallback(c.a, c.b)
		switch {
		case c.want < 0 && got >= 0:
			t.Errorf("compareFallback(%q, %q) = %d, want negative", c.a, c.b, got)
		case c.want > 0 && got <= 0:
			t.Errorf("compareFallback(%q, %q) = %d, want positive", c.a, c.b, got)
		case c.want == 0 && got != 0:
			t.Errorf("compareFallback(%q, %q) = %d, want 0", c.a, c.b, got)
		}
	}
}

func TestSplitNumericSuffix(t *testing.T) {
	if p, n := splitNumericSuffix("clip42"); p != "clip" || n != 42 {
		t.Errorf("splitNumericSuffix(clip42) = (%q, %d)", p, n)
	}
	if p, n := splitNumericSuffix("clip"); p != "clip" || n != -1 {
		t.Errorf("splitNumericSuffix(clip) = (%q, %d)", p, n)
	}
}

func TestPatchEmpty(t *testing.T) {
	if !(Patch{ID: "a"}).Empty() {
		t.Error("patch with only an id should be empty")
	}
	x := 1.0
	if (Patch{ID: "a", Rotation: &x}).Empty() {
		t.Error("patch with a field should not be empty")
	}
}
