package effects

import (
	"github.com/cbegin/synthcore-go/internal/errs"
	"github.com/cbegin/synthcore-go/internal/fixed"
)

// Capture selects how a resampler takes a sample at its reduced rate.
type Capture int

const (
	// Truncate takes the first input frame at or after the capture point.
	Truncate Capture = iota
	// Interpolate takes the linear interpolation at the exact capture point.
	Interpolate
)

// Hold selects how captured samples are played back at the full rate.
type Hold int

const (
	// Rectangular holds each capture until the next one.
	Rectangular Hold = iota
	// Triangular ramps from the previous capture to the latest one,
	// adding one capture period of delay.
	Triangular
)

type resampleChannel struct {
	prevIn   float32
	held     float32
	prevHeld float32
}

func (c *resampleChannel) capture(x, t float32, mode Capture) {
	c.prevHeld = c.held
	if mode == Interpolate {
		c.held = c.prevIn + (x-c.prevIn)*t
	} else {
		c.held = x
	}
}

func (c *resampleChannel) output(frac float32, hold Hold) float32 {
	if hold == Triangular {
		return c.prevHeld + (c.held-c.prevHeld)*frac
	}
	return c.held
}

// Resampler reduces the effective sample rate of a signal, producing the
// stepped or ramped output of a low-rate converter. Its phase counts capture
// periods in 32.32 fixed point.
type Resampler struct {
	capture Capture
	hold    Hold
	inc     fixed.Fixed64
	incD    float64
	phase   fixed.Fixed64
	ch      [2]resampleChannel
}

func newResampler(s ResamplerSpec, sampleRate float64) (*Resampler, error) {
	if !(s.Rate > 0) || s.Rate > sampleRate {
		return nil, errs.New(errs.InvalidParameter, "resampler rate %g outside (0, %g]", s.Rate, sampleRate)
	}
	r := &Resampler{capture: s.Capture, hold: s.Hold}
	r.inc = fixed.FromFloat64(s.Rate / sampleRate)
	r.incD = r.inc.Float64()
	r.Reset()
	return r, nil
}

// Reset makes the next input frame a capture point.
func (r *Resampler) Reset() {
	r.phase = fixed.FromInt(1).Sub(r.inc)
	r.ch = [2]resampleChannel{}
}

func (r *Resampler) Apply(b Block, _ *Context) error {
	for i := range b.L {
		r.phase = r.phase.Add(r.inc)
		if r.phase.Int() >= 1 {
			r.phase.SetInt64HighHalf(0)
			t := float32(1 - r.phase.FracD()/r.incD)
			r.ch[0].capture(b.L[i], t, r.capture)
			r.ch[1].capture(b.R[i], t, r.capture)
		}
		r.ch[0].prevIn, r.ch[1].prevIn = b.L[i], b.R[i]
		frac := r.phase.FracF()
		b.L[i] = r.ch[0].output(frac, r.hold)
		b.R[i] = r.ch[1].output(frac, r.hold)
	}
	return nil
}

func (r *Resampler) Finalize(*Context, bool) error { return nil }
