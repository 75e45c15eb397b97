package preview

import (
	"math"
	"strings"
	"testing"
)

func sineWindow(n int, freq, sampleRate, amp float64) []float64 {
	w := make([]float64, n)
	for i := range w {
		w[i] = amp * math.Sin(2*math.Pi*freq*float64(i)/sampleRate)
	}
	return w
}

func TestMagnitudesRejectsNonPowerOfTwo(t *testing.T) {
	p := NewSpectrumParser(44100)
	defer func() {
		r := recover()
		if r == nil {
			t.Fatal("expected panic for non-power-of-two window")
		}
		if msg, ok := r.(string); !ok || !strings.Contains(msg, "power of two") {
			t.Errorf("panic = %v, want power-of-two message", r)
		}
	}()
	p.Magnitudes(make([]float64, 100))
}

func TestMagnitudesLength(t *testing.T) {
	p := NewSpectrumParser(44100)
	mags := p.Magnitudes(make([]float64, 1024))
	if len(mags) != 512 {
		t.Fatalf("len(mags) = %d, want 512", len(mags))
	}
}

func TestProcessBinCountAndRange(t *testing.T) {
	p := NewSpectrumParser(44100)
	w := sineWindow(1024, 1000, 44100, 0.8)

	for _, bins := range []int{8, 64, 500} {
		p.Configure(bins, 20, 16000)
		out := p.Process(w)
		if len(out) != bins {
			t.Fatalf("len(out) = %d, want %d", len(out), bins)
		}
		peak := 0.0
		for _, v := range out {
			if v < 0 || v > 1 {
				t.Fatalf("bin value %v out of [0, 1]", v)
			}
			if v > peak {
				peak = v
			}
		}
		if peak == 0 {
			t.Errorf("bins=%d: expected signal energy in at least one bin", bins)
		}
	}
}

func TestProcessSilenceIsZero(t *testing.T) {
	p := NewSpectrumParser(44100)
	p.Configure(32, 20, 16000)
	for _, v := range p.Process(make([]float64, 1024)) {
		if v != 0 {
			t.Fatalf("silence produced %v, want 0", v)
		}
	}
}

// With smoothing k, output converges toward the instantaneous value across
// repeated identical windows: out(n) = v*(1 - k^n).
func TestProcessSmoothingConverges(t *testing.T) {
	p := NewSpectrumParser(44100)
	p.Configure(32, 20, 16000)
	p.SetSmoothing(0.5)
	w := sineWindow(1024, 1000, 44100, 0.8)

	first := append([]float64(nil), p.Process(w)...)
	second := append([]float64(nil), p.Process(w)...)
	third := p.Process(w)

	i := peakBin(first)
	if first[i] <= 0 {
		t.Fatal("expected signal energy in the peak bin")
	}
	if !(second[i] > first[i]) || !(third[i] > second[i]) {
		t.Errorf("peak bin not converging upward: %v, %v, %v", first[i], second[i], third[i])
	}

	// Ratio check: second step closes half the remaining gap.
	assertNear(t, "smoothing ratio", second[i]/first[i], 1.5)
}

func TestConfigureDiscardsSmoothingState(t *testing.T) {
	p := NewSpectrumParser(44100)
	p.Configure(32, 20, 16000)
	p.SetSmoothing(0.5)
	w := sineWindow(1024, 1000, 44100, 0.8)
	p.Process(w)

	p.Configure(32, 20, 16000)
	for _, v := range p.Process(make([]float64, 1024)) {
		if v != 0 {
			t.Fatalf("stale smoothing state survived Configure: %v", v)
		}
	}
}

func TestConfigureValidation(t *testing.T) {
	p := NewSpectrumParser(44100)
	for _, fn := range []func(){
		func() { p.Configure(0, 20, 16000) },
		func() { p.Configure(8, 16000, 20) },
	} {
		func() {
			defer func() {
				if recover() == nil {
					t.Error("expected panic for invalid configuration")
				}
			}()
			fn()
		}()
	}
}

func TestAnalyserWindowOrder(t *testing.T) {
	a := NewAnalyser(8, 44100)
	a.Push([]float64{1, 2, 3, 4, 5, 6, 7, 8})
	a.Push([]float64{9, 10}) // wraps, overwriting 1 and 2

	w := a.Window()
	want := []float64{3, 4, 5, 6, 7, 8, 9, 10}
	for i := range want {
		if w[i] != want[i] {
			t.Fatalf("Window()[%d] = %v, want %v", i, w[i], want[i])
		}
	}
}

// The player's decode goroutine pushes while the game loop reads; the race
// detector covers the locking on this path.
func TestAnalyserConcurrentPushAndWindow(t *testing.T) {
	a := NewAnalyser(64, 44100)
	done := make(chan struct{})
	go func() {
		defer close(done)
		buf := []float64{0.1, 0.2, 0.3, 0.4}
		for i := 0; i < 1000; i++ {
			a.Push(buf)
		}
	}()
	for i := 0; i < 1000; i++ {
		if w := a.Window(); len(w) != 64 {
			t.Fatalf("Window() length = %d, want 64", len(w))
		}
	}
	<-done
}

func peakBin(v []float64) int {
	best := 0
	for i := range v {
		if v[i] > v[best] {
			best = i
		}
	}
	return best
}
