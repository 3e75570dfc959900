package pitch

import (
	"fmt"
	"math"

	"github.com/pkg/errors"
)

// A4 = 440Hz
const (
	referencePitch = 69
	referenceHz    = 440.0
)

var degreeNames = []string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

// ToHz returns the equal tempered frequency of a MIDI pitch.
func ToHz(pitch int) float64 {
	return referenceHz * math.Pow(2, float64(pitch-referencePitch)/12)
}

// FromHz is the inverse of ToHz. The result is fractional for frequencies
// that fall between semitones.
func FromHz(hz float64) float64 {
	return referencePitch + 12*math.Log2(hz/referenceHz)
}

// Window converts a pitch range into the frequency range handed to the
// engine. The lower bound is floored and the upper bound is ceiled so the
// window is never narrower than the pitches it came from.
func Window(minPitch int, maxPitch int) (int, int, error) {
	if minPitch > maxPitch {
		return 0, 0, errors.Errorf("min pitch %v is above max pitch %v", minPitch, maxPitch)
	}
	minHz := int(math.Floor(ToHz(minPitch)))
	maxHz := int(math.Ceil(ToHz(maxPitch)))
	return minHz, maxHz, nil
}

// Name returns a note name like "C4" (middle C is 60).
func Name(pitch int) string {
	degree := ((pitch % 12) + 12) % 12
	octave := int(math.Floor(float64(pitch)/12)) - 1
	return fmt.Sprintf("%s%d", degreeNames[degree], octave)
}
