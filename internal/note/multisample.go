package note

import "math"

// NoPitchAsIf plays a sample at its recorded rate whatever note selects it.
const NoPitchAsIf = -1

// Multisample maps a frequency range to a named sample.
type Multisample struct {
	Sample string
	// MinFrequency and MaxFrequency bound the half-open range served;
	// a zero MaxFrequency is unbounded.
	MinFrequency float64
	MaxFrequency float64
	// PitchAsIf is the MIDI pitch the sample was recorded at, or
	// NoPitchAsIf.
	PitchAsIf float64
}

func (m Multisample) upper() float64 {
	if m.MaxFrequency == 0 {
		return math.Inf(1)
	}
	return m.MaxFrequency
}

// Covers reports whether freq falls in the sample's range.
func (m Multisample) Covers(freq float64) bool {
	return freq >= m.MinFrequency && freq < m.upper()
}

// PlaybackRatio is the rate at which the sample must be read to sound at
// freq.
func (m Multisample) PlaybackRatio(freq, tuning float64) float64 {
	if m.PitchAsIf == NoPitchAsIf {
		return 1
	}
	if tuning == 0 {
		tuning = 440
	}
	return freq / PitchToFrequency(m.PitchAsIf, tuning)
}

// SelectMultisample returns the first entry covering freq.
func SelectMultisample(set []Multisample, freq float64) (Multisample, bool) {
	for _, m := range set {
		if m.Covers(freq) {
			return m, true
		}
	}
	return Multisample{}, false
}
