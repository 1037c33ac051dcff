package filters

import (
	"math"

	dsp "github.com/cwbudde/algo-dsp/dsp/filter/biquad"
	"github.com/cwbudde/algo-dsp/dsp/filter/design"
)

const butterworthQ = 1 / math.Sqrt2

// biquad is a direct form I section:
//
//	y = a0*x + a1*x[-1] + a2*x[-2] - b1*y[-1] - b2*y[-2]
type biquad struct {
	a0, a1, a2, b1, b2 float32
	x1, x2, y1, y2     float32
}

func (q *biquad) set(a0, a1, a2, b1, b2 float64) {
	q.a0, q.a1, q.a2 = float32(a0), float32(a1), float32(a2)
	q.b1, q.b2 = float32(b1), float32(b2)
}

// load narrows a designed section; its denominator is already normalized.
func (q *biquad) load(c dsp.Coefficients) {
	q.set(c.B0, c.B1, c.B2, c.A1, c.A2)
}

// bandQ returns the Q whose bandwidth term alpha equals tan(π·bw/rate), the
// bilinear-warped bandwidth of a second-order band filter.
func bandQ(fc, bw, rate float64) float64 {
	return math.Sin(2*math.Pi*fc/rate) / (2 * math.Tan(math.Pi*bw/rate))
}

func (q *biquad) step(x float32) float32 {
	y := q.a0*x + q.a1*q.x1 + q.a2*q.x2 - q.b1*q.y1 - q.b2*q.y2
	q.x2, q.x1 = q.x1, x
	q.y2, q.y1 = q.y1, y
	return y
}

func (q *biquad) run(in, out []float32, scale float32) {
	a0, a1, a2, b1, b2 := q.a0, q.a1, q.a2, q.b1, q.b2
	x1, x2, y1, y2 := q.x1, q.x2, q.y1, q.y2
	for i, x := range in {
		y := a0*x + a1*x1 + a2*x2 - b1*y1 - b2*y2
		x2, x1 = x1, x
		y2, y1 = y1, y
		out[i] += y * scale
	}
	q.x1, q.x2, q.y1, q.y2 = x1, x2, y1, y2
}

func (q *biquad) reset() { q.x1, q.x2, q.y1, q.y2 = 0, 0, 0, 0 }

// biquadFilter covers every kind realized as a single second-order section.
type biquadFilter struct {
	params
	kind Kind
	norm Norm
	q    biquad
}

func (f *biquadFilter) Kind() Kind { return f.kind }

func (f *biquadFilter) Apply(in, out []float32, scale float32) { f.q.run(in, out, scale) }

func (f *biquadFilter) Reset() { f.q.reset() }

func (f *biquadFilter) UpdateParams(cutoff, bandwidth, gain, rate float64) {
	if !f.changed(cutoff, bandwidth, gain, rate) {
		return
	}
	fc := clampHz(cutoff, rate)
	bw := clampHz(bandwidth, rate)
	switch f.kind {
	case ButterworthLowpass:
		f.q.load(design.Lowpass(fc, butterworthQ, rate))
	case ButterworthHighpass:
		f.q.load(design.Highpass(fc, butterworthQ, rate))
	case ButterworthBandpass:
		// Constant skirt gain peaks at Q; rescale the numerator to 0 dB.
		q := bandQ(fc, bw, rate)
		c := design.Bandpass(fc, q, rate)
		c.B0, c.B2 = c.B0/q, c.B2/q
		f.q.load(c)
	case ButterworthBandreject:
		f.q.load(design.Notch(fc, bandQ(fc, bw, rate), rate))
	case LowShelf, HighShelf:
		f.shelf(fc, bandwidth, gain, rate)
	case ParametricEQ2:
		f.regaliaMitra(fc, bw, gain, rate)
	case Resonator:
		f.resonator(fc, bw, rate)
	case Zero:
		f.zero(fc, bw, rate)
	}
}

// shelf designs the shelf from slope S in (0, 1] and the linear gain of
// the shelved band.
func (f *biquadFilter) shelf(fc, slope, gain, rate float64) {
	slope = min(max(slope, 1e-3), 1)
	gain = max(gain, 1e-9)
	a := math.Sqrt(gain)
	q := 1 / math.Sqrt((a+1/a)*(1/slope-1)+2)
	gainDB := 20 * math.Log10(gain)
	if f.kind == LowShelf {
		f.q.load(design.LowShelf(fc, gainDB, q, rate))
		return
	}
	f.q.load(design.HighShelf(fc, gainDB, q, rate))
}

// regaliaMitra folds the allpass-mix structure into one section.
func (f *biquadFilter) regaliaMitra(fc, bw, gain, rate float64) {
	gain = max(gain, 1e-9)
	k1, k2 := allpassCoefficients(fc, bw, gain, rate)
	d1 := k1 * (1 + k2)
	p, m := (1+gain)/2, (1-gain)/2
	f.q.set(p+m*k2, d1, p*k2+m, d1, k2)
}

// resonator is y = c1*x + c2*y[-1] - c3*y[-2].
func (f *biquadFilter) resonator(fc, bw, rate float64) {
	c3 := math.Exp(-2 * math.Pi * bw / rate)
	c2 := 4 * c3 * math.Cos(2*math.Pi*fc/rate) / (1 + c3)
	c1 := 1.0
	switch f.norm {
	case NormUnity:
		c1 = (1 - c3) * math.Sqrt(1-c2*c2/(4*c3))
	case NormNoise:
		c1 = math.Sqrt(((1+c3)*(1+c3) - c2*c2) * (1 - c3) / (1 + c3))
	}
	f.q.set(c1, 0, 0, -c2, c3)
}

// zero places a conjugate zero pair at radius exp(-π·bw/rate).
func (f *biquadFilter) zero(fc, bw, rate float64) {
	r := math.Exp(-math.Pi * bw / rate)
	a1 := -2 * r * math.Cos(2*math.Pi*fc/rate)
	a2 := r * r
	g := 1.0
	switch f.norm {
	case NormUnity:
		g = 1 / (1 + a1 + a2)
	case NormNoise:
		g = 1 / math.Sqrt(1+a1*a1+a2*a2)
	}
	f.q.set(g, g*a1, g*a2, 0, 0)
}
