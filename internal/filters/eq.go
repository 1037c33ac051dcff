package filters

import "github.com/cwbudde/algo-dsp/dsp/filter/design"

// allpassCoefficients returns the second-order allpass coefficients of the
// peaking equalizer. The bandwidth term depends on whether gain boosts or
// cuts so both directions have the same width.
func allpassCoefficients(fc, bw, gain, rate float64) (k1, k2 float64) {
	q := bandQ(fc, bw, rate)
	if gain < 1 {
		q *= gain
	}
	c := design.Allpass(fc, q, rate)
	// A1 = k1*(1+k2)
	return c.A1 / (1 + c.A2), c.A2
}

// allpassEQ mixes the input with an explicit allpass branch:
//
//	y = (1+K)/2*x + (1-K)/2*A(x)
//
// where K is the linear gain at the center frequency.
type allpassEQ struct {
	params
	ap       biquad
	wet, dry float32
}

func (f *allpassEQ) Kind() Kind { return ParametricEQ }

func (f *allpassEQ) UpdateParams(cutoff, bandwidth, gain, rate float64) {
	if !f.changed(cutoff, bandwidth, gain, rate) {
		return
	}
	gain = max(gain, 1e-9)
	k1, k2 := allpassCoefficients(clampHz(cutoff, rate), clampHz(bandwidth, rate), gain, rate)
	d1 := k1 * (1 + k2)
	f.ap.set(k2, d1, 1, d1, k2)
	f.dry = float32((1 + gain) / 2)
	f.wet = float32((1 - gain) / 2)
}

func (f *allpassEQ) Apply(in, out []float32, scale float32) {
	for i, x := range in {
		a := f.ap.step(x)
		out[i] += (f.dry*x + f.wet*a) * scale
	}
}

func (f *allpassEQ) Reset() { f.ap.reset() }
