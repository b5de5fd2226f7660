package pitch

import (
	"sort"
	"time"
)

const (
	// historyDepth is how many consecutive observations feed each gate.
	historyDepth = 8

	// freqStabilityHz is the max spread across the frequency history for a
	// reading to count as one held pitch.
	freqStabilityHz = 3.0

	// centsStabilityRange is the max cents spread before the reading is
	// considered wobbling and withheld.
	centsStabilityRange = 20.0

	// minMagnitude gates out room noise; mean magnitude must additionally
	// clear twice this before a note is considered.
	minMagnitude = 0.08

	// Holdovers keep the last reading on screen across brief gaps instead
	// of flickering. Both are measured from the last emission, so a note
	// that has gone stale clears on the next quiet cycle. Quiet input
	// clears faster than a full dropout.
	silenceHoldover = 400 * time.Millisecond
	dropoutHoldover = 500 * time.Millisecond

	// centsSmoothing is the EMA weight on the previous smoothed value.
	centsSmoothing = 0.8
)

// history is a fixed-depth ring of recent observations. The zero value is
// ready to use.
type history struct {
	vals  [historyDepth]float64
	head  int
	count int
}

func (h *history) push(v float64) {
	h.vals[h.head] = v
	h.head = (h.head + 1) % historyDepth
	if h.count < historyDepth {
		h.count++
	}
}

func (h *history) full() bool { return h.count == historyDepth }

func (h *history) clear() {
	h.head = 0
	h.count = 0
}

func (h *history) spread() float64 {
	if h.count == 0 {
		return 0
	}
	lo, hi := h.vals[0], h.vals[0]
	for _, v := range h.vals[:h.count] {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	return hi - lo
}

func (h *history) mean() float64 {
	if h.count == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range h.vals[:h.count] {
		sum += v
	}
	return sum / float64(h.count)
}

// maxDeviation returns the largest absolute distance from center.
func (h *history) maxDeviation(center float64) float64 {
	max := 0.0
	for _, v := range h.vals[:h.count] {
		d := v - center
		if d < 0 {
			d = -d
		}
		if d > max {
			max = d
		}
	}
	return max
}

// median returns the upper median of the stored values.
func (h *history) median() float64 {
	var tmp [historyDepth]float64
	sorted := tmp[:h.count]
	copy(sorted, h.vals[:h.count])
	sort.Float64s(sorted)
	return sorted[h.count/2]
}

// Stabilizer accumulates raw estimates and only surfaces a note once the
// pitch has held steady, then keeps the cents needle damped with an EMA.
// Feed it every analysis cycle, including cycles with no estimate; the
// holdover timers depend on seeing the gaps.
//
// A Stabilizer is not safe for concurrent use.
type Stabilizer struct {
	freqs history
	mags  history
	cents history

	smoothedCents float64
	current       Note
	hasNote       bool

	lastEmit time.Time        // Time of the last emission, not the last observation
	now      func() time.Time // Injectable for tests
}

// NewStabilizer returns a stabilizer with empty history.
func NewStabilizer() *Stabilizer {
	s := &Stabilizer{now: time.Now}
	s.lastEmit = s.now()
	return s
}

// Observe feeds one analysis cycle. ok is false when the estimator produced
// nothing this cycle.
func (s *Stabilizer) Observe(est Estimate, ok bool) {
	now := s.now()

	if !ok {
		if now.Sub(s.lastEmit) > dropoutHoldover {
			s.clearAll()
		}
		return
	}
	if est.Magnitude < minMagnitude {
		if now.Sub(s.lastEmit) > silenceHoldover {
			s.clearAll()
		}
		return
	}

	s.freqs.push(est.Frequency)
	s.mags.push(est.Magnitude)

	if !s.freqs.full() {
		return
	}
	if s.freqs.spread() >= freqStabilityHz {
		return
	}
	avg := s.mags.mean()
	if avg <= 2*minMagnitude {
		return
	}
	if s.mags.maxDeviation(avg) >= 0.5*avg {
		return
	}

	note := FrequencyToNote(s.freqs.median())
	s.cents.push(note.Cents)
	if !s.cents.full() {
		return
	}

	if s.cents.spread() >= centsStabilityRange {
		// The pitch is holding but the intonation is wobbling. Drop the
		// displayed note and restart cents tracking; the frequency and
		// magnitude histories stay warm so recovery is quick.
		s.current = Note{}
		s.hasNote = false
		s.cents.clear()
		s.smoothedCents = 0
		return
	}

	s.smoothedCents = centsSmoothing*s.smoothedCents + (1-centsSmoothing)*s.cents.mean()
	note.Cents = s.smoothedCents
	s.current = note
	s.hasNote = true
	s.lastEmit = now
}

// Current returns the stabilized note, if one is being held.
func (s *Stabilizer) Current() (Note, bool) {
	return s.current, s.hasNote
}

// Reset discards all state, e.g. when the input device changes.
func (s *Stabilizer) Reset() {
	s.clearAll()
	s.lastEmit = s.now()
}

func (s *Stabilizer) clearAll() {
	s.freqs.clear()
	s.mags.clear()
	s.cents.clear()
	s.smoothedCents = 0
	s.current = Note{}
	s.hasNote = false
}
