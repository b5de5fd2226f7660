package audio

import "sync"

// SampleBuffer is a bounded rolling store of the most recent input samples.
// The capture callback pushes batches on its own hardware-paced cadence
// while the analysis loop snapshots the content once per display tick. The
// mutex is held only for a push or a snapshot copy, never across analysis.
type SampleBuffer struct {
	mu         sync.Mutex
	samples    []float32
	capacity   int
	sampleRate float64
	dirty      bool
}

// NewSampleBuffer creates a buffer holding at most capacity samples.
func NewSampleBuffer(capacity int, sampleRate float64) *SampleBuffer {
	return &SampleBuffer{
		samples:    make([]float32, 0, capacity),
		capacity:   capacity,
		sampleRate: sampleRate,
	}
}

// Push appends a batch of samples, evicting exactly enough of the oldest
// samples first so the length never exceeds the capacity. An empty batch is
// a no-op and does not touch the dirty flag.
func (b *SampleBuffer) Push(batch []float32) {
	if len(batch) == 0 {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if overflow := len(b.samples) + len(batch) - b.capacity; overflow > 0 {
		if overflow >= len(b.samples) {
			// The batch alone fills the buffer; only its newest samples survive.
			b.samples = b.samples[:0]
			batch = batch[len(batch)-b.capacity:]
		} else {
			b.samples = b.samples[:copy(b.samples, b.samples[overflow:])]
		}
	}
	b.samples = append(b.samples, batch...)
	b.dirty = true
}

// TakeSamples returns a snapshot copy of the full current content and clears
// the dirty flag. The content itself is left untouched; this is a "new data"
// latch, not a consuming pop.
func (b *SampleBuffer) TakeSamples() []float32 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.snapshotLocked()
}

// TryTake attempts a non-blocking snapshot. It returns (nil, false) when the
// lock is currently held by the capture callback, or when no fresh window of
// data is available yet. A skipped cycle is harmless: the next push makes the
// buffer ready again.
func (b *SampleBuffer) TryTake() ([]float32, bool) {
	if !b.mu.TryLock() {
		return nil, false
	}
	defer b.mu.Unlock()

	if !b.hasNewDataLocked() {
		return nil, false
	}
	return b.snapshotLocked(), true
}

// HasNewData reports whether a push has happened since the last snapshot and
// the buffer holds at least half a capacity's worth of samples.
func (b *SampleBuffer) HasNewData() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.hasNewDataLocked()
}

// Len returns the current number of buffered samples.
func (b *SampleBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.samples)
}

// Capacity returns the fixed capacity of the buffer.
func (b *SampleBuffer) Capacity() int {
	return b.capacity
}

// SampleRate returns the rate the buffered samples were captured at.
func (b *SampleBuffer) SampleRate() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.sampleRate
}

// SetSampleRate records the capture rate of subsequent pushes. Callers must
// rebuild any estimator sized against the old rate.
func (b *SampleBuffer) SetSampleRate(rate float64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sampleRate = rate
}

func (b *SampleBuffer) hasNewDataLocked() bool {
	return b.dirty && len(b.samples) >= b.capacity/2
}

func (b *SampleBuffer) snapshotLocked() []float32 {
	b.dirty = false
	out := make([]float32, len(b.samples))
	copy(out, b.samples)
	return out
}
