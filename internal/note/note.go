// Package note resolves score-level note parameters into the concrete values
// a voice renders with: frequency, frames, release points and loudness.
package note

import (
	"math"

	"github.com/cbegin/synthcore-go/internal/errs"
	"github.com/cbegin/synthcore-go/internal/tempo"
)

// Note is a note as written: musical time and pitch.
type Note struct {
	Pitch     float64 // MIDI note number; fractional values detune
	Transpose float64 // semitones
	Detune    float64 // cents
	Beat      float64 // start
	Beats     float64 // written duration
	// Gate is the fraction of the duration before key up; 0 means 1.
	Gate float64
	// Delay shifts the start in beats without changing the duration.
	Delay float64
	// Release holds beats after the start at which sustain stages 1..3
	// are released. Zero entries release with the previous stage, stage
	// 1 defaulting to the gated duration.
	Release  [3]float64
	Velocity float64 // 0..1
	Accent   bool
	Pan      float64 // -1..1
}

// Params are the instrument-wide settings used while freezing.
type Params struct {
	Tuning float64 // A4 in Hz; 0 means 440
	// AccentGain multiplies the loudness of accented notes; 0 means 1.5.
	AccentGain float64
	MinPitch   float64 // clamp range; both zero means 0..127
	MaxPitch   float64
}

func DefaultParams() Params {
	return Params{Tuning: 440, AccentGain: 1.5, MinPitch: 0, MaxPitch: 127}
}

// Frozen is a note with every value resolved for rendering.
type Frozen struct {
	Pitch      float64 // after transpose, detune and clamping
	Frequency  float64
	StartFrame int64
	Frames     int64 // key-down length
	// Release holds frames after StartFrame at which KeyUpSustain1..3
	// fire; non-decreasing.
	Release  [3]int64
	Loudness float64
	Pan      float64
}

// PitchToFrequency maps a MIDI pitch to Hz at the given A4 tuning.
func PitchToFrequency(pitch, tuning float64) float64 {
	return tuning * math.Pow(2, (pitch-69)/12)
}

// FrequencyToPitch inverts PitchToFrequency.
func FrequencyToPitch(freq, tuning float64) float64 {
	return 69 + 12*math.Log2(freq/tuning)
}

// Freeze resolves n against the tempo map.
func Freeze(n Note, tc *tempo.Controller, p Params) (Frozen, error) {
	if p.Tuning == 0 {
		p.Tuning = 440
	}
	if p.AccentGain == 0 {
		p.AccentGain = 1.5
	}
	if p.MinPitch == 0 && p.MaxPitch == 0 {
		p.MaxPitch = 127
	}
	switch {
	case !(p.Tuning > 0):
		return Frozen{}, errs.New(errs.InvalidParameter, "tuning %g Hz", p.Tuning)
	case n.Beats < 0 || math.IsNaN(n.Beats):
		return Frozen{}, errs.New(errs.InvalidParameter, "note duration %g beats", n.Beats)
	case n.Gate < 0 || n.Gate > 1:
		return Frozen{}, errs.New(errs.InvalidParameter, "gate %g outside [0, 1]", n.Gate)
	case n.Beat+n.Delay < 0:
		return Frozen{}, errs.New(errs.InvalidParameter, "note starts at beat %g", n.Beat+n.Delay)
	}

	pitch := n.Pitch + n.Transpose + n.Detune/100
	pitch = min(max(pitch, p.MinPitch), p.MaxPitch)

	gate := n.Gate
	if gate == 0 {
		gate = 1
	}
	start := n.Beat + n.Delay
	f := Frozen{
		Pitch:      pitch,
		Frequency:  PitchToFrequency(pitch, p.Tuning),
		StartFrame: tc.Frame(start),
		Frames:     tc.DurationFrames(start, n.Beats*gate),
		Loudness:   min(max(n.Velocity, 0), 1),
		Pan:        min(max(n.Pan, -1), 1),
	}
	if n.Accent {
		f.Loudness *= p.AccentGain
	}

	var prev int64
	for i, r := range n.Release {
		at := prev
		switch {
		case r > 0:
			at = max(tc.Frame(start+r)-f.StartFrame, prev)
		case i == 0:
			at = f.Frames
		}
		f.Release[i] = at
		prev = at
	}
	return f, nil
}

// End is the frame at which every sustain stage has been released.
func (f Frozen) End() int64 {
	return f.StartFrame + f.Release[2]
}
