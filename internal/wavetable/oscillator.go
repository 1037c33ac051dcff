package wavetable

import (
	"math"

	"github.com/cbegin/synthcore-go/internal/control"
	"github.com/cbegin/synthcore-go/internal/fixed"
)

// OscillatorParams configures one wavetable voice.
type OscillatorParams struct {
	Frequency  float64
	SampleRate float64
	// Loudness scales the output; nil means a constant 1.
	Loudness control.Source
	// TableIndex selects the position in the stack; nil means table 0.
	TableIndex control.Source
	// Pitch, when set, multiplies Frequency by 2^(value/12).
	Pitch     control.Source
	Pan       float64 // -1 left .. +1 right
	Crossfade bool
	// StartPhase is the initial position as a fraction of a cycle.
	StartPhase float64
}

// Oscillator renders a wavetable stack with a 32.32 fixed-point phase, so
// long notes accumulate no phase error.
type Oscillator struct {
	stack     *Stack
	p         OscillatorParams
	phase     fixed.Fixed64
	inc       fixed.Fixed64
	lastPitch float64
	leftGain  float32
	rightGain float32
}

func NewOscillator(stack *Stack, p OscillatorParams) *Oscillator {
	if p.Loudness == nil {
		p.Loudness = control.Constant(1)
	}
	if p.TableIndex == nil {
		p.TableIndex = control.Constant(0)
	}
	o := &Oscillator{stack: stack, p: p}
	o.phase = fixed.FromFloat64(p.StartPhase * float64(stack.Frames))
	o.phase.MaskInt64HighHalf(int32(stack.Frames - 1))
	o.setIncrement(0)
	// Equal-power panning.
	angle := (math.Max(-1, math.Min(1, p.Pan)) + 1) / 2 * (math.Pi / 2)
	o.leftGain = float32(math.Cos(angle))
	o.rightGain = float32(math.Sin(angle))
	return o
}

func (o *Oscillator) setIncrement(semitones float64) {
	f := o.p.Frequency
	if semitones != 0 {
		f *= math.Pow(2, semitones/12)
	}
	o.inc = fixed.FromFloat64(f * float64(o.stack.Frames) / o.p.SampleRate)
	o.lastPitch = semitones
}

// SetFrequency retunes the oscillator without resetting phase.
func (o *Oscillator) SetFrequency(hz float64) {
	o.p.Frequency = hz
	o.setIncrement(o.lastPitch)
}

func (o *Oscillator) Phase() fixed.Fixed64 { return o.phase }

// Render overwrites l and r with the next len(l) frames.
func (o *Oscillator) Render(l, r []float32) {
	mask := int32(o.stack.Frames - 1)
	for i := range l {
		if o.p.Pitch != nil {
			if st := o.p.Pitch.Value(); st != o.lastPitch {
				o.setIncrement(st)
			}
			o.p.Pitch.Advance(1)
		}
		s := o.stack.At(o.phase, o.p.TableIndex.Value(), o.p.Crossfade)
		s *= float32(o.p.Loudness.Value())
		l[i] = s * o.leftGain
		r[i] = s * o.rightGain

		o.p.TableIndex.Advance(1)
		o.p.Loudness.Advance(1)
		o.phase = o.phase.Add(o.inc)
		o.phase.MaskInt64HighHalf(mask)
	}
}

// Loudness exposes the loudness source so oscillator effects can drive its
// envelope hooks.
func (o *Oscillator) Loudness() control.Source { return o.p.Loudness }

// Envelopes returns every parameter source that is an envelope.
func (o *Oscillator) Envelopes() []control.Envelope {
	var out []control.Envelope
	for _, s := range []control.Source{o.p.Loudness, o.p.TableIndex, o.p.Pitch} {
		if e, ok := s.(control.Envelope); ok {
			out = append(out, e)
		}
	}
	return out
}

// Done reports that the loudness envelope has finished.
func (o *Oscillator) Done() bool {
	if e, ok := o.p.Loudness.(control.Envelope); ok {
		return e.Done()
	}
	return false
}
