package filters

import "math"

// onePoleFilter is y = a0*x + a1*x[-1] + b1*y[-1] with a single real pole.
type onePoleFilter struct {
	params
	kind       Kind
	a0, a1, b1 float32
	x1, y1     float32
}

func (f *onePoleFilter) Kind() Kind { return f.kind }

func (f *onePoleFilter) UpdateParams(cutoff, bandwidth, gain, rate float64) {
	if !f.changed(cutoff, bandwidth, gain, rate) {
		return
	}
	x := math.Exp(-2 * math.Pi * clampHz(cutoff, rate) / rate)
	if f.kind == Highpass1 {
		a0 := (1 + x) / 2
		f.a0, f.a1, f.b1 = float32(a0), float32(-a0), float32(x)
		return
	}
	f.a0, f.a1, f.b1 = float32(1-x), 0, float32(x)
}

func (f *onePoleFilter) Apply(in, out []float32, scale float32) {
	a0, a1, b1 := f.a0, f.a1, f.b1
	x1, y1 := f.x1, f.y1
	for i, x := range in {
		y := a0*x + a1*x1 + b1*y1
		x1, y1 = x, y
		out[i] += y * scale
	}
	f.x1, f.y1 = x1, y1
}

func (f *onePoleFilter) Reset() { f.x1, f.y1 = 0, 0 }
