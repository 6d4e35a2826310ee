// SPDX-License-Identifier: MIT
/*
Package analysis converts windows of mono audio into perceptually grouped
spectrum bars and smooths them for display.

The Analyzer is a long-lived object exclusively owned by the render tick:
every buffer it needs is allocated once at construction and reused, so
Process performs no allocation during continuous operation.
*/
package analysis

import (
	"fmt"
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"

	"spectra/pkg/bitint"
)

// spectrumWorkspace holds the pre-allocated buffers for one analysis pass.
type spectrumWorkspace struct {
	input     []float64    // windowed real input, length fftSize
	coeffs    []complex128 // FFT output, length fftSize/2+1
	magnitude []float64    // normalized magnitudes, length fftSize/2
	window    []float64    // window coefficients, length fftSize
	bars      []float32    // grouped bar output, length numBars
}

// Analyzer turns a fixed-length block of samples into numBars magnitude
// values: window, forward real FFT, amplitude normalization, then a
// quadratic-warp grouping of bins into bars.
type Analyzer struct {
	fftSize    int
	numBars    int
	sampleRate float64
	fft        *fourier.FFT
	workspace  spectrumWorkspace
}

// NewAnalyzer creates an Analyzer and pre-allocates all scratch space.
// Misconfiguration (size not a power of 2, no bars, more bars than spectrum
// bins) is a construction-time error with no runtime recovery path.
func NewAnalyzer(fftSize, numBars int, sampleRate float64, windowType WindowFunc) (*Analyzer, error) {
	if !bitint.IsPowerOfTwo(fftSize) {
		return nil, fmt.Errorf("fft size must be a power of 2, got %d", fftSize)
	}
	if numBars <= 0 {
		return nil, fmt.Errorf("bar count must be positive, got %d", numBars)
	}
	if numBars > fftSize/2 {
		return nil, fmt.Errorf("bar count %d exceeds spectrum bins %d", numBars, fftSize/2)
	}
	if sampleRate <= 0 {
		return nil, fmt.Errorf("sample rate must be positive, got %f", sampleRate)
	}

	window := make([]float64, fftSize)
	windowCoefficients(window, windowType)

	return &Analyzer{
		fftSize:    fftSize,
		numBars:    numBars,
		sampleRate: sampleRate,
		fft:        fourier.NewFFT(fftSize),
		workspace: spectrumWorkspace{
			input:     make([]float64, fftSize),
			coeffs:    make([]complex128, fftSize/2+1),
			magnitude: make([]float64, fftSize/2),
			window:    window,
			bars:      make([]float32, numBars),
		},
	}, nil
}

// Process analyzes samples and returns the bar magnitudes. The returned
// slice is the Analyzer's internal buffer, valid until the next call; the
// caller owns the Analyzer exclusively so no copy is made.
//
// Inputs shorter than the FFT size are zero-padded: insufficient history is
// treated as silence at this layer, the buffer-level underrun signal is
// handled by the driver before Process is ever invoked.
func (a *Analyzer) Process(samples []float32) []float32 {
	ws := &a.workspace

	// Window and widen. The taper suppresses the spectral leakage the
	// artificial truncation of the block would otherwise smear across bins.
	n := len(samples)
	if n > a.fftSize {
		n = a.fftSize
	}
	for i := 0; i < n; i++ {
		ws.input[i] = float64(samples[i]) * ws.window[i]
	}
	for i := n; i < a.fftSize; i++ {
		ws.input[i] = 0
	}

	// Forward real FFT. Only the non-negative-frequency half carries
	// information; the transform of a real signal is Hermitian-symmetric.
	a.fft.Coefficients(ws.coeffs, ws.input)

	// Amplitude-scale magnitudes, independent of window length.
	norm := 1.0 / float64(a.fftSize)
	for i := range ws.magnitude {
		ws.magnitude[i] = cmplx.Abs(ws.coeffs[i]) * norm
	}

	// Group bins into bars.
	for i := 0; i < a.numBars; i++ {
		start, end := a.barRange(i)
		var sum float64
		for b := start; b < end; b++ {
			sum += ws.magnitude[b]
		}
		ws.bars[i] = float32(sum / float64(end-start))
	}

	return ws.bars
}

// barRange maps bar index i to the half-open bin range [start, end).
//
// The linear index is warped quadratically: bar boundaries at t² rather
// than t concentrate bars in the low bins, approximating the logarithmic
// pitch sensitivity of hearing. A uniform partition would crowd all visible
// energy into the first few bars. The clamps keep every range non-empty and
// in-bounds even where the warp degenerates at the extremes.
func (a *Analyzer) barRange(i int) (int, int) {
	n := len(a.workspace.magnitude)
	t0 := float64(i) / float64(a.numBars)
	t1 := float64(i+1) / float64(a.numBars)

	start := int(t0 * t0 * float64(n))
	end := int(t1 * t1 * float64(n))

	if start > n-1 {
		start = n - 1
	}
	if end < start+1 {
		end = start + 1
	}
	if end > n {
		end = n
	}
	return start, end
}

// FrequencyRangeForBar returns the frequency span in Hz covered by bar i
// under the quadratic warp. Out-of-range indices return (0, 0).
func (a *Analyzer) FrequencyRangeForBar(i int) (float64, float64) {
	if i < 0 || i >= a.numBars {
		return 0, 0
	}
	start, end := a.barRange(i)
	binHz := a.sampleRate / float64(a.fftSize)
	return float64(start) * binHz, float64(end) * binHz
}

// FrequencyForBin returns the center frequency in Hz for an FFT bin index.
func (a *Analyzer) FrequencyForBin(bin int) float64 {
	if bin < 0 || bin >= len(a.workspace.magnitude) {
		return 0
	}
	return float64(bin) * a.sampleRate / float64(a.fftSize)
}

// FFTSize returns the analysis window length. Immutable after creation.
func (a *Analyzer) FFTSize() int {
	return a.fftSize
}

// Bars returns the output bar count. Immutable after creation.
func (a *Analyzer) Bars() int {
	return a.numBars
}

// SampleRate returns the sample rate the analyzer assumes.
func (a *Analyzer) SampleRate() float64 {
	return a.sampleRate
}
