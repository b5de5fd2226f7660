// Package bitint provides power-of-2 helpers for FFT and buffer sizing.
// All operations are O(1), allocation-free, and safe to call from the
// real-time audio path.
package bitint

import "math/bits"

// NextPowerOfTwo returns the smallest power of 2 >= size.
// The argument is decremented before taking its bit length so that exact
// powers of 2 are returned unchanged instead of doubled. Non-positive
// sizes yield 1.
func NextPowerOfTwo(size int) int {
	if size <= 0 {
		return 1
	}
	return 1 << bits.Len64(uint64(size-1))
}

// IsPowerOfTwo reports whether n is a positive power of 2.
// Powers of 2 have exactly one bit set, so n&(n-1) clears it to zero.
func IsPowerOfTwo(n int) bool {
	return n > 0 && n&(n-1) == 0
}
