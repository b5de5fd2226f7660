package pitch

import (
	"fmt"
	"math/cmplx"
	"strings"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/dsp/window"

	"tuner/pkg/bitint"
)

const (
	// DefaultWindowSize is the analysis window in samples. At 44.1 kHz this
	// gives ~5.4 Hz bin spacing, tightened further by parabolic refinement.
	DefaultWindowSize = 8192

	// Search band for the peak scan. Covers the fundamentals of every
	// common instrument tuning without picking up mains hum or hiss.
	minSearchHz = 80.0
	maxSearchHz = 2000.0

	// noiseFloor is the minimum raw spectral magnitude treated as signal.
	noiseFloor = 0.005
)

// Estimate is a single spectral observation: the refined peak frequency and
// its raw (unnormalized) magnitude.
type Estimate struct {
	Frequency float64
	Magnitude float64
}

// ParseWindowFunc maps a config name to a window function. Defaults are
// handled by the caller; an unknown name is an error.
func ParseWindowFunc(name string) (func([]float64) []float64, error) {
	switch strings.ToLower(name) {
	case "hann":
		return window.Hann, nil
	case "hamming":
		return window.Hamming, nil
	case "blackman":
		return window.Blackman, nil
	default:
		return nil, fmt.Errorf("unknown window function %q", name)
	}
}

// Estimator turns fixed-size sample windows into frequency estimates. All
// workspace is allocated once at construction; Detect does not allocate.
//
// An Estimator is not safe for concurrent use.
type Estimator struct {
	windowSize int
	sampleRate float64
	fft        *fourier.FFT

	input     []float64
	spectrum  []complex128
	magnitude []float64
	window    []float64 // Precomputed coefficients
}

// NewEstimator builds an estimator for power-of-two windows at the given
// capture rate.
func NewEstimator(windowSize int, sampleRate float64, windowFn func([]float64) []float64) (*Estimator, error) {
	if !bitint.IsPowerOfTwo(windowSize) {
		return nil, fmt.Errorf("window size must be a power of two, got %d", windowSize)
	}
	if sampleRate <= 0 {
		return nil, fmt.Errorf("sample rate must be positive, got %f", sampleRate)
	}
	if windowFn == nil {
		windowFn = window.Hann
	}

	coeffs := make([]float64, windowSize)
	for i := range coeffs {
		coeffs[i] = 1
	}
	windowFn(coeffs)

	return &Estimator{
		windowSize: windowSize,
		sampleRate: sampleRate,
		fft:        fourier.NewFFT(windowSize),
		input:      make([]float64, windowSize),
		spectrum:   make([]complex128, windowSize/2+1),
		magnitude:  make([]float64, windowSize/2+1),
		window:     coeffs,
	}, nil
}

// WindowSize returns the number of samples Detect consumes per call.
func (e *Estimator) WindowSize() int {
	return e.windowSize
}

// SampleRate returns the capture rate the estimator was built for.
func (e *Estimator) SampleRate() float64 {
	return e.sampleRate
}

// Detect analyzes the leading window of samples and returns the dominant
// frequency in the search band. It reports false when there are fewer samples
// than one window or no peak rises above the noise floor.
func (e *Estimator) Detect(samples []float32) (Estimate, bool) {
	if len(samples) < e.windowSize {
		return Estimate{}, false
	}
	samples = samples[:e.windowSize]

	for i, s := range samples {
		e.input[i] = float64(s) * e.window[i]
	}
	e.fft.Coefficients(e.spectrum, e.input)
	for i, c := range e.spectrum {
		e.magnitude[i] = cmplx.Abs(c)
	}

	binLow := int(minSearchHz * float64(e.windowSize) / e.sampleRate)
	binHigh := int(maxSearchHz * float64(e.windowSize) / e.sampleRate)
	if binLow < 0 {
		binLow = 0
	}
	if binHigh > len(e.magnitude)-1 {
		binHigh = len(e.magnitude) - 1
	}
	if binLow > binHigh {
		return Estimate{}, false
	}

	// Strict > keeps the lowest bin on ties, biasing toward the fundamental.
	peak := binLow
	for i := binLow + 1; i <= binHigh; i++ {
		if e.magnitude[i] > e.magnitude[peak] {
			peak = i
		}
	}

	mag := e.magnitude[peak]
	if mag < noiseFloor {
		return Estimate{}, false
	}

	bin := float64(peak)
	if peak > 0 && peak < len(e.magnitude)-1 {
		if offset, ok := parabolicOffset(e.magnitude[peak-1], mag, e.magnitude[peak+1]); ok {
			bin += offset
		}
	}

	return Estimate{
		Frequency: bin * e.sampleRate / float64(e.windowSize),
		Magnitude: mag,
	}, true
}

// parabolicOffset fits a parabola through three adjacent magnitudes and
// returns the sub-bin offset of its vertex. Reports false when the points
// are collinear.
func parabolicOffset(left, center, right float64) (float64, bool) {
	denom := left - 2*center + right
	if denom == 0 {
		return 0, false
	}
	return 0.5 * (left - right) / denom, true
}
