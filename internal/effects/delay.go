package effects

import (
	"math"

	"github.com/cbegin/synthcore-go/internal/control"
	"github.com/cbegin/synthcore-go/internal/errs"
)

// Delay is a stereo feedback delay line. Cross sends part of each channel's
// feedback to the other side; at 1 the echoes ping-pong.
type Delay struct {
	modulators
	line     [2][]float32
	pos      int
	feedback float32
	cross    float32
	wet      control.Source
}

func newDelay(s DelaySpec, sampleRate float64) (*Delay, error) {
	n := int(math.Round(s.Seconds * sampleRate))
	if s.Seconds <= 0 || n < 1 {
		return nil, errs.New(errs.InvalidParameter, "delay of %g s at %g Hz", s.Seconds, sampleRate)
	}
	d := &Delay{
		line:     [2][]float32{make([]float32, n), make([]float32, n)},
		feedback: clamp(s.Feedback, 0, 0.95),
		cross:    clamp(s.Cross, 0, 1),
		wet:      source(s.WetSource, float64(s.Wet)),
	}
	d.modulators = modulators{d.wet}
	return d, nil
}

// Frames returns the delay length.
func (d *Delay) Frames() int { return len(d.line[0]) }

// tailFloor is the echo level, relative to the input, below which the
// feedback is treated as silent.
const tailFloor = 1e-3

// Tail covers the first echo and every repeat louder than tailFloor.
func (d *Delay) Tail() int {
	echoes := 1
	if d.feedback > 0 {
		echoes += int(math.Ceil(math.Log(tailFloor) / math.Log(float64(d.feedback))))
	}
	return echoes * len(d.line[0])
}

// Apply reads the wet level once per block.
func (d *Delay) Apply(b Block, _ *Context) error {
	wet := clamp(float32(d.wet.Value()), 0, 1)
	fb, cross := d.feedback, d.cross
	ll, lr := d.line[0], d.line[1]
	for i := range b.L {
		dl, dr := ll[d.pos], lr[d.pos]
		ll[d.pos] = b.L[i] + fb*((1-cross)*dl+cross*dr)
		lr[d.pos] = b.R[i] + fb*((1-cross)*dr+cross*dl)
		b.L[i] += (dl - b.L[i]) * wet
		b.R[i] += (dr - b.R[i]) * wet
		if d.pos++; d.pos == len(ll) {
			d.pos = 0
		}
	}
	return nil
}

func (d *Delay) Finalize(*Context, bool) error {
	clear(d.line[0])
	clear(d.line[1])
	d.pos = 0
	return nil
}

func clamp(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
