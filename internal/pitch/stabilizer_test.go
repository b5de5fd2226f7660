package pitch

import (
	"math"
	"testing"
	"time"
)

const testTick = 33 * time.Millisecond

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) now() time.Time { return c.t }

func newTestStabilizer() (*Stabilizer, *fakeClock) {
	clk := &fakeClock{t: time.Unix(1000, 0)}
	s := NewStabilizer()
	s.now = clk.now
	s.lastEmit = clk.t
	return s, clk
}

// feed advances the clock one analysis tick and delivers an observation,
// n times.
func feed(s *Stabilizer, clk *fakeClock, est Estimate, ok bool, n int) {
	for i := 0; i < n; i++ {
		clk.t = clk.t.Add(testTick)
		s.Observe(est, ok)
	}
}

func TestStabilizerEmitsAfterSteadyInput(t *testing.T) {
	s, clk := newTestStabilizer()
	est := Estimate{Frequency: 440.2, Magnitude: 0.5}

	// The frequency history fills on the 8th observation, and only then do
	// cents start accumulating; the first emission needs 8 more.
	feed(s, clk, est, true, 14)
	if _, ok := s.Current(); ok {
		t.Fatal("note emitted before cents history filled")
	}

	feed(s, clk, est, true, 1)
	note, ok := s.Current()
	if !ok {
		t.Fatal("no note after 15 steady observations")
	}
	if note.String() != "A4" {
		t.Errorf("note = %s, want A4", note.String())
	}

	// First smoothed value is one EMA step from zero.
	want := (1 - centsSmoothing) * FrequencyToNote(440.2).Cents
	if math.Abs(note.Cents-want) > 1e-9 {
		t.Errorf("smoothed cents = %v, want %v", note.Cents, want)
	}
}

func TestStabilizerCentsConverge(t *testing.T) {
	s, clk := newTestStabilizer()
	est := Estimate{Frequency: 440.2, Magnitude: 0.5}

	feed(s, clk, est, true, 60)
	note, ok := s.Current()
	if !ok {
		t.Fatal("no note after sustained steady input")
	}
	raw := FrequencyToNote(440.2).Cents
	if math.Abs(note.Cents-raw) > 0.01 {
		t.Errorf("smoothed cents = %v, want converged near %v", note.Cents, raw)
	}
}

func TestStabilizerSilenceHoldover(t *testing.T) {
	s, clk := newTestStabilizer()
	loud := Estimate{Frequency: 440, Magnitude: 0.5}
	quiet := Estimate{Frequency: 440, Magnitude: 0.01}

	feed(s, clk, loud, true, 20)
	if _, ok := s.Current(); !ok {
		t.Fatal("no note after steady input")
	}

	// Quiet for under the holdover: the reading stays up.
	feed(s, clk, quiet, true, 11) // ~363ms
	if _, ok := s.Current(); !ok {
		t.Error("note dropped during brief quiet spell")
	}

	// Past the holdover everything clears.
	feed(s, clk, quiet, true, 2) // ~429ms
	if _, ok := s.Current(); ok {
		t.Error("note still displayed after silence holdover expired")
	}
}

func TestStabilizerDropoutHoldover(t *testing.T) {
	s, clk := newTestStabilizer()
	loud := Estimate{Frequency: 440, Magnitude: 0.5}

	feed(s, clk, loud, true, 20)
	if _, ok := s.Current(); !ok {
		t.Fatal("no note after steady input")
	}

	feed(s, clk, Estimate{}, false, 15) // ~495ms
	if _, ok := s.Current(); !ok {
		t.Error("note dropped during brief estimator dropout")
	}

	feed(s, clk, Estimate{}, false, 1) // ~528ms
	if _, ok := s.Current(); ok {
		t.Error("note still displayed after dropout holdover expired")
	}
}

func TestStabilizerStaleNoteClearsImmediately(t *testing.T) {
	// The holdovers run against the last emission, not the last accepted
	// observation. Once a displayed note has gone stale behind a long
	// stretch of unstable (accepted but never re-emitted) estimates, the
	// first quiet or absent estimate must clear it at once rather than
	// granting it another holdover.
	loud := Estimate{Frequency: 440, Magnitude: 0.5}
	quiet := Estimate{Frequency: 440, Magnitude: 0.01}

	wobble := func(s *Stabilizer, clk *fakeClock, n int) {
		for i := 0; i < n; i++ {
			freq := 440.0
			if i%2 == 0 {
				freq = 446.0 // Past the stability band: accepted, never emitted
			}
			feed(s, clk, Estimate{Frequency: freq, Magnitude: 0.5}, true, 1)
		}
	}

	s, clk := newTestStabilizer()
	feed(s, clk, loud, true, 20)
	if _, ok := s.Current(); !ok {
		t.Fatal("no note after steady input")
	}

	wobble(s, clk, 31) // ~1s with no emission
	if _, ok := s.Current(); !ok {
		t.Fatal("note dropped during the wobble itself")
	}

	feed(s, clk, quiet, true, 1)
	if _, ok := s.Current(); ok {
		t.Error("stale note survived a quiet estimate past the silence holdover")
	}

	// Same staleness, cleared by a dropout instead.
	s, clk = newTestStabilizer()
	feed(s, clk, loud, true, 20)
	wobble(s, clk, 31)
	feed(s, clk, Estimate{}, false, 1)
	if _, ok := s.Current(); ok {
		t.Error("stale note survived a dropout past its holdover")
	}
}

func TestStabilizerRecoversFromBriefDropout(t *testing.T) {
	s, clk := newTestStabilizer()
	loud := Estimate{Frequency: 440, Magnitude: 0.5}

	feed(s, clk, loud, true, 20)
	feed(s, clk, Estimate{}, false, 3)
	feed(s, clk, loud, true, 1)
	if _, ok := s.Current(); !ok {
		t.Error("note lost across a three-cycle dropout")
	}
}

func TestStabilizerWithholdsWobblingPitch(t *testing.T) {
	s, clk := newTestStabilizer()

	// A slow glide keeps each frequency window inside the stability band
	// while the cents drift far past the display threshold.
	freq := 110.0
	for i := 0; i < 30; i++ {
		clk.t = clk.t.Add(testTick)
		s.Observe(Estimate{Frequency: freq, Magnitude: 0.5}, true)
		if _, ok := s.Current(); ok {
			t.Fatalf("note emitted during glide at observation %d", i)
		}
		freq += 0.25
	}

	// Once the pitch settles, the warm frequency history lets the reading
	// come back within one cents window.
	feed(s, clk, Estimate{Frequency: freq, Magnitude: 0.5}, true, 10)
	if _, ok := s.Current(); !ok {
		t.Error("no note after the glide settled")
	}
}

func TestStabilizerMagnitudeGates(t *testing.T) {
	// Above the noise gate but below twice it: never displayed.
	s, clk := newTestStabilizer()
	feed(s, clk, Estimate{Frequency: 440, Magnitude: 0.1}, true, 30)
	if _, ok := s.Current(); ok {
		t.Error("note emitted with mean magnitude below the display threshold")
	}

	// Erratic level, e.g. a decaying pluck re-struck mid-window.
	s, clk = newTestStabilizer()
	for i := 0; i < 30; i++ {
		mag := 0.2
		if i%2 == 0 {
			mag = 0.9
		}
		feed(s, clk, Estimate{Frequency: 440, Magnitude: mag}, true, 1)
	}
	if _, ok := s.Current(); ok {
		t.Error("note emitted while magnitude was erratic")
	}
}

func TestStabilizerUnstableFrequencyWithheld(t *testing.T) {
	s, clk := newTestStabilizer()
	for i := 0; i < 30; i++ {
		freq := 440.0
		if i%2 == 0 {
			freq = 444.0 // 4 Hz swing, past the stability band
		}
		feed(s, clk, Estimate{Frequency: freq, Magnitude: 0.5}, true, 1)
	}
	if _, ok := s.Current(); ok {
		t.Error("note emitted while frequency was unstable")
	}
}

func TestStabilizerReset(t *testing.T) {
	s, clk := newTestStabilizer()
	est := Estimate{Frequency: 440, Magnitude: 0.5}

	feed(s, clk, est, true, 20)
	if _, ok := s.Current(); !ok {
		t.Fatal("no note after steady input")
	}

	s.Reset()
	if _, ok := s.Current(); ok {
		t.Error("note survived Reset")
	}

	// Histories are cold again: one observation is nowhere near enough.
	feed(s, clk, est, true, 1)
	if _, ok := s.Current(); ok {
		t.Error("note emitted immediately after Reset")
	}
	feed(s, clk, est, true, 14)
	if _, ok := s.Current(); !ok {
		t.Error("no note after refilling histories post-Reset")
	}
}

func TestHistoryRing(t *testing.T) {
	var h history
	if h.full() {
		t.Error("empty history reports full")
	}
	for i := 1; i <= historyDepth+3; i++ {
		h.push(float64(i))
	}
	if !h.full() {
		t.Error("history not full after overfilling")
	}
	// Oldest three evicted: values are 4..11.
	if got := h.spread(); got != 7 {
		t.Errorf("spread = %v, want 7", got)
	}
	if got := h.mean(); got != 7.5 {
		t.Errorf("mean = %v, want 7.5", got)
	}
	// Upper median of 4..11.
	if got := h.median(); got != 8 {
		t.Errorf("median = %v, want 8", got)
	}
	h.clear()
	if h.full() || h.spread() != 0 {
		t.Error("clear did not empty the history")
	}
}
