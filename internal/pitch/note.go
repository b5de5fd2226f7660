// Package pitch converts rolling audio sample windows into a stabilized
// musical note reading. Estimator finds the spectral peak, FrequencyToNote
// maps it onto the equal-tempered scale, and Stabilizer gates and smooths
// the result over time.
package pitch

import (
	"fmt"
	"math"
)

// referenceA4 is the tuning reference in Hz.
const referenceA4 = 440.0

// noteNames is the chromatic scale starting at C, so that octave numbers
// increment at C in scientific pitch notation.
var noteNames = [12]string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

// Note is an immutable reading produced by the mapper: the nearest
// equal-tempered note to a source frequency and the deviation from it.
type Note struct {
	Name      string  // e.g. "A", "A#"
	Octave    int     // e.g. 4 for A4
	Frequency float64 // Source frequency in Hz
	Cents     float64 // Deviation from perfect pitch, 100 per semitone
}

// String returns the note in scientific pitch notation, e.g. "A#4".
func (n Note) String() string {
	return fmt.Sprintf("%s%d", n.Name, n.Octave)
}

// FrequencyToNote maps a frequency to the nearest equal-tempered note and
// its deviation in cents, relative to A4 = 440 Hz.
func FrequencyToNote(frequency float64) Note {
	semitones := 12 * math.Log2(frequency/referenceA4)
	nearest := int(math.Round(semitones))
	cents := (semitones - float64(nearest)) * 100

	// A4 sits 9 semitones above C4; octaves roll over at C.
	fromC4 := nearest + 9
	idx := ((fromC4 % 12) + 12) % 12
	octave := 4 + floorDiv(fromC4, 12)

	return Note{
		Name:      noteNames[idx],
		Octave:    octave,
		Frequency: frequency,
		Cents:     cents,
	}
}

// floorDiv is true floor division: -1/12 yields -1, not 0. Truncating
// division would misplace every octave boundary below C4.
func floorDiv(a, b int) int {
	return int(math.Floor(float64(a) / float64(b)))
}
