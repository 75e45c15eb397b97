package preview

import (
	"fmt"
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"
)

// Spectrum parser defaults. The decibel range matches the usual analyser
// convention: magnitudes below minDecibels clamp to silence and magnitudes
// above maxDecibels clamp to full scale.
const (
	defaultSpectrumBins = 64
	defaultMinFrequency = 20.0
	defaultMaxFrequency = 16000.0
	defaultSmoothing    = 0.5
	minDecibels         = -100.0
	maxDecibels         = -30.0

	// Down-sampling blocks are probed at a stride so one Process call stays
	// bounded regardless of how wide the source spectrum is.
	maxBlockProbes = 16
)

// SpectrumParser turns raw time-domain sample windows into a banded, smoothed
// magnitude array suitable for waveform drawing. It owns a persistent
// smoothing buffer, so one parser should be used per waveform element.
type SpectrumParser struct {
	sampleRate float64
	minFreq    float64
	maxFreq    float64
	bins       int
	smoothing  float64

	prev []float64 // smoothing state, carried across calls

	fft    *fourier.FFT
	coeffs []complex128
	mags   []float64
}

// NewSpectrumParser creates a parser for the given sample rate with default
// bin count, frequency range, and smoothing.
func NewSpectrumParser(sampleRate float64) *SpectrumParser {
	return &SpectrumParser{
		sampleRate: sampleRate,
		minFreq:    defaultMinFrequency,
		maxFreq:    defaultMaxFrequency,
		bins:       defaultSpectrumBins,
		smoothing:  defaultSmoothing,
	}
}

// Configure sets the output bin count and the analyzed frequency sub-range,
// recomputing the bin mapping and discarding stale smoothing state.
// Panics if bins < 1 or the range is inverted.
func (p *SpectrumParser) Configure(bins int, minFreq, maxFreq float64) {
	if bins < 1 {
		panic("preview: spectrum bin count must be at least 1")
	}
	if maxFreq <= minFreq {
		panic("preview: spectrum frequency range is inverted")
	}
	p.bins = bins
	p.minFreq = minFreq
	p.maxFreq = maxFreq
	p.prev = nil
}

// SetSmoothing sets the exponential smoothing constant k in [0, 1):
// out = prev*k + new*(1-k). Higher values react more slowly.
func (p *SpectrumParser) SetSmoothing(k float64) {
	p.smoothing = clamp(k, 0, 0.999)
}

// Magnitudes computes the decibel magnitude spectrum of a power-of-two-length
// real sample window. The returned slice has exactly len(samples)/2 entries
// and is reused across calls; callers MUST NOT retain or mutate it.
// Panics when the window length is not a power of two: that is a caller bug,
// not a runtime condition.
func (p *SpectrumParser) Magnitudes(samples []float64) []float64 {
	n := len(samples)
	if n == 0 || n&(n-1) != 0 {
		panic(fmt.Sprintf("preview: spectrum window length must be a power of two, got %d", n))
	}

	if p.fft == nil || p.fft.Len() != n {
		p.fft = fourier.NewFFT(n)
		p.coeffs = make([]complex128, n/2+1)
		p.mags = make([]float64, n/2)
	}

	p.coeffs = p.fft.Coefficients(p.coeffs, samples)
	scale := 2.0 / float64(n)
	for k := 0; k < n/2; k++ {
		mag := cmplx.Abs(p.coeffs[k]) * scale
		p.mags[k] = 20 * math.Log10(mag+1e-12)
	}
	return p.mags
}

// Process maps a sample window onto the configured output bins and applies
// exponential smoothing. Output values are linear magnitudes in [0, 1].
// The returned slice is the parser's persistent buffer; callers MUST NOT
// mutate it.
func (p *SpectrumParser) Process(samples []float64) []float64 {
	mags := p.Magnitudes(samples)

	binHz := p.sampleRate / float64(len(samples))
	start := int(p.minFreq / binHz)
	end := int(p.maxFreq / binHz)
	if start < 0 {
		start = 0
	}
	if end > len(mags) {
		end = len(mags)
	}
	if end <= start {
		end = start + 1
		if end > len(mags) {
			start, end = len(mags)-1, len(mags)
		}
	}
	source := end - start

	if len(p.prev) != p.bins {
		p.prev = make([]float64, p.bins)
	}

	k := p.smoothing
	for i := 0; i < p.bins; i++ {
		var v float64
		switch {
		case p.bins == source:
			// 1:1 copy with decibel-to-linear mapping.
			v = dbToLinear(mags[start+i])

		case p.bins < source:
			// Down-sample: each output bin takes the block maximum,
			// probed at a stride to bound cost.
			block := float64(source) / float64(p.bins)
			lo := start + int(float64(i)*block)
			hi := start + int(float64(i+1)*block)
			if hi <= lo {
				hi = lo + 1
			}
			stride := (hi - lo) / maxBlockProbes
			if stride < 1 {
				stride = 1
			}
			peak := math.Inf(-1)
			for j := lo; j < hi && j < end; j += stride {
				if mags[j] > peak {
					peak = mags[j]
				}
			}
			v = dbToLinear(peak)

		default:
			// Up-sample: replicate each input bin across its span.
			src := start + i*source/p.bins
			if src >= end {
				src = end - 1
			}
			v = dbToLinear(mags[src])
		}

		p.prev[i] = p.prev[i]*k + v*(1-k)
	}
	return p.prev
}

// dbToLinear normalizes a decibel magnitude into [0, 1] over the analyser's
// decibel range.
func dbToLinear(db float64) float64 {
	return clamp01((db - minDecibels) / (maxDecibels - minDecibels))
}
