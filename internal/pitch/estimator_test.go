package pitch

import (
	"math"
	"testing"
)

const (
	testSampleRate = 44100.0
	testWindowSize = 8192
)

// genSine produces n samples of a pure tone.
func genSine(freq, amp float64, n int) []float32 {
	samples := make([]float32, n)
	for i := range samples {
		samples[i] = float32(amp * math.Sin(2*math.Pi*freq*float64(i)/testSampleRate))
	}
	return samples
}

func newTestEstimator(t testing.TB) *Estimator {
	t.Helper()
	e, err := NewEstimator(testWindowSize, testSampleRate, nil)
	if err != nil {
		t.Fatalf("NewEstimator error: %v", err)
	}
	return e
}

func TestDetectPureTone(t *testing.T) {
	e := newTestEstimator(t)

	for _, freq := range []float64{110.0, 440.0, 1318.51} {
		est, ok := e.Detect(genSine(freq, 0.5, testWindowSize))
		if !ok {
			t.Fatalf("Detect(%v Hz): no estimate", freq)
		}
		if math.Abs(est.Frequency-freq) > 1.0 {
			t.Errorf("Detect(%v Hz) = %.2f Hz, want within 1 Hz", freq, est.Frequency)
		}
		if est.Magnitude < noiseFloor {
			t.Errorf("Detect(%v Hz) magnitude %.4f below noise floor", freq, est.Magnitude)
		}
	}
}

func TestDetectRefinementBeatsBinSpacing(t *testing.T) {
	e := newTestEstimator(t)

	// 443.7 Hz falls between bins (spacing ~5.38 Hz at this window size).
	// Parabolic refinement should land far closer than the nearest bin
	// center could.
	const freq = 443.7
	est, ok := e.Detect(genSine(freq, 0.5, testWindowSize))
	if !ok {
		t.Fatal("Detect: no estimate")
	}

	binSpacing := testSampleRate / float64(testWindowSize)
	if err := math.Abs(est.Frequency - freq); err > binSpacing/4 {
		t.Errorf("refined frequency %.2f Hz is %.2f Hz off, want under %.2f",
			est.Frequency, err, binSpacing/4)
	}
}

func TestDetectRejectsQuietAndShortInput(t *testing.T) {
	e := newTestEstimator(t)

	if _, ok := e.Detect(genSine(440, 1e-6, testWindowSize)); ok {
		t.Error("Detect reported a tone below the noise floor")
	}
	if _, ok := e.Detect(make([]float32, testWindowSize)); ok {
		t.Error("Detect reported a tone in silence")
	}
	if _, ok := e.Detect(genSine(440, 0.5, testWindowSize/2)); ok {
		t.Error("Detect reported a tone with less than one window of samples")
	}
}

func TestDetectUsesLeadingWindow(t *testing.T) {
	e := newTestEstimator(t)

	// With more than one window of input, the head is analyzed and the
	// tail ignored.
	samples := append(genSine(440, 0.5, testWindowSize), genSine(660, 0.5, testWindowSize)...)
	est, ok := e.Detect(samples)
	if !ok {
		t.Fatal("Detect: no estimate")
	}
	if math.Abs(est.Frequency-440) > 1 {
		t.Errorf("Detect = %.2f Hz, want the leading tone at 440", est.Frequency)
	}
}

func TestDetectStaysInSearchBand(t *testing.T) {
	e := newTestEstimator(t)

	// A strong tone below the band must not be reported as itself; leakage
	// may still trip a bin inside the band, but never below it.
	if est, ok := e.Detect(genSine(50, 0.8, testWindowSize)); ok && est.Frequency < minSearchHz-1 {
		t.Errorf("Detect reported %.2f Hz, below the search band", est.Frequency)
	}
}

func TestNewEstimatorValidation(t *testing.T) {
	if _, err := NewEstimator(1000, testSampleRate, nil); err == nil {
		t.Error("expected error for non-power-of-two window size")
	}
	if _, err := NewEstimator(testWindowSize, 0, nil); err == nil {
		t.Error("expected error for zero sample rate")
	}
}

func TestParseWindowFunc(t *testing.T) {
	for _, name := range []string{"hann", "Hamming", "BLACKMAN"} {
		if _, err := ParseWindowFunc(name); err != nil {
			t.Errorf("ParseWindowFunc(%q) error: %v", name, err)
		}
	}
	if _, err := ParseWindowFunc("kaiser"); err == nil {
		t.Error("expected error for unknown window name")
	}
}

func TestParabolicOffset(t *testing.T) {
	// Symmetric neighbors: vertex at the center bin.
	if offset, ok := parabolicOffset(0.5, 1.0, 0.5); !ok || offset != 0 {
		t.Errorf("parabolicOffset(0.5, 1, 0.5) = %v, %v, want 0, true", offset, ok)
	}
	// Heavier right neighbor pulls the vertex right.
	if offset, ok := parabolicOffset(0.2, 1.0, 0.8); !ok || offset <= 0 || offset > 0.5 {
		t.Errorf("parabolicOffset(0.2, 1, 0.8) = %v, %v, want offset in (0, 0.5]", offset, ok)
	}
	// Collinear points have no vertex.
	if _, ok := parabolicOffset(1.0, 1.0, 1.0); ok {
		t.Error("parabolicOffset on collinear points should report false")
	}
}

func TestDetectDoesNotAllocate(t *testing.T) {
	e := newTestEstimator(t)
	samples := genSine(440, 0.5, testWindowSize)

	allocs := testing.AllocsPerRun(10, func() {
		if _, ok := e.Detect(samples); !ok {
			t.Fatal("Detect: no estimate")
		}
	})
	if allocs > 0 {
		t.Errorf("Detect allocated %.1f times per run, want 0", allocs)
	}
}

func BenchmarkDetect(b *testing.B) {
	e := newTestEstimator(b)
	samples := genSine(440, 0.5, testWindowSize)

	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		e.Detect(samples)
	}
}
