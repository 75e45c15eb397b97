package preview

import (
	"io"
	"sync"

	"github.com/hajimehoshi/ebiten/v2/audio"
)

// analyserWindow is the rolling sample window the shared analyser keeps for
// spectrum analysis. Must be a power of two (FFT input contract).
const analyserWindow = 1024

// AudioGraph bundles the process-wide audio context with the shared analyser
// that feeds spectrum data to waveform renderers. The graph is shared
// read-only by every renderer that needs it: renderers attach to it exactly
// once and never own or destroy it.
type AudioGraph struct {
	ctx      *audio.Context
	analyser *Analyser
}

// NewAudioGraph returns the audio graph for the given sample rate, reusing
// the process-wide ebiten audio context when one already exists.
func NewAudioGraph(sampleRate int) *AudioGraph {
	ctx := audio.CurrentContext()
	if ctx == nil {
		ctx = audio.NewContext(sampleRate)
	}
	return &AudioGraph{
		ctx:      ctx,
		analyser: NewAnalyser(analyserWindow, float64(sampleRate)),
	}
}

// Context returns the underlying audio context.
func (g *AudioGraph) Context() *audio.Context {
	return g.ctx
}

// Analyser returns the shared analyser.
func (g *AudioGraph) Analyser() *Analyser {
	return g.analyser
}

// Tap wraps a PCM stream so that samples flowing to a player are also pushed
// into the shared analyser. The stream format is ebiten's: interleaved
// 16-bit little-endian stereo. Pass the returned reader to the player.
func (g *AudioGraph) Tap(r io.Reader) io.Reader {
	return &tapReader{src: r, analyser: g.analyser}
}

type tapReader struct {
	src      io.Reader
	analyser *Analyser
	carry    []byte // partial frame left over from the previous read
	samples  []float64
}

func (t *tapReader) Read(p []byte) (int, error) {
	n, err := t.src.Read(p)
	if n > 0 {
		t.push(p[:n])
	}
	return n, err
}

// push decodes complete 4-byte stereo frames to mono float64 and feeds the
// analyser, carrying any trailing partial frame to the next read.
func (t *tapReader) push(b []byte) {
	data := b
	if len(t.carry) > 0 {
		data = append(t.carry, b...)
	}
	frames := len(data) / 4
	rem := len(data) % 4
	t.samples = t.samples[:0]
	for i := 0; i < frames; i++ {
		l := int16(uint16(data[i*4]) | uint16(data[i*4+1])<<8)
		r := int16(uint16(data[i*4+2]) | uint16(data[i*4+3])<<8)
		t.samples = append(t.samples, (float64(l)+float64(r))/2/32768)
	}
	t.analyser.Push(t.samples)
	t.carry = append(t.carry[:0], data[len(data)-rem:]...)
}

// Analyser keeps a rolling window of recent mono samples for spectrum
// analysis. Stream taps push from the player's decode goroutine while
// waveform renderers read on the game loop, so the window is locked.
type Analyser struct {
	sampleRate float64

	mu      sync.Mutex
	ring    []float64
	pos     int
	ordered []float64
}

// NewAnalyser creates an analyser with the given window size (a power of two)
// and sample rate. Panics on a non-power-of-two window: caller bug.
func NewAnalyser(window int, sampleRate float64) *Analyser {
	if window <= 0 || window&(window-1) != 0 {
		panic("preview: analyser window must be a power of two")
	}
	return &Analyser{
		sampleRate: sampleRate,
		ring:       make([]float64, window),
		ordered:    make([]float64, window),
	}
}

// SampleRate returns the analyser's sample rate.
func (a *Analyser) SampleRate() float64 {
	return a.sampleRate
}

// Push appends samples to the rolling window, overwriting the oldest.
// Safe to call from the player's decode goroutine.
func (a *Analyser) Push(samples []float64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, s := range samples {
		a.ring[a.pos] = s
		a.pos = (a.pos + 1) % len(a.ring)
	}
}

// Window returns the current sample window in chronological order.
// The returned slice is reused across calls; callers MUST NOT retain or
// mutate it, and only the game loop may call Window.
func (a *Analyser) Window() []float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	n := copy(a.ordered, a.ring[a.pos:])
	copy(a.ordered[n:], a.ring[:a.pos])
	return a.ordered
}
