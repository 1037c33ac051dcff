package synthcore

import (
	"math"

	"github.com/cbegin/synthcore-go/internal/control"
	"github.com/cbegin/synthcore-go/internal/fixed"
	"github.com/cbegin/synthcore-go/internal/samples"
)

// generator writes the next len(l) frames of a voice, overwriting l and r.
type generator interface {
	Render(l, r []float32)
}

// scaled is a loudness envelope multiplied by the note's frozen loudness.
type scaled struct {
	control.Envelope
	gain float64
}

func (s scaled) Value() float64 { return s.Envelope.Value() * s.gain }

// panGains returns equal-power left and right gains for pan in [-1, 1].
func panGains(pan float64) (float32, float32) {
	angle := (max(-1, min(1, pan)) + 1) / 2 * (math.Pi / 2)
	return float32(math.Cos(angle)), float32(math.Sin(angle))
}

// samplePlayer plays a sample at a fixed ratio with linear interpolation,
// wrapping inside the sample's loop if it has one.
type samplePlayer struct {
	s        *samples.Sample
	pos      fixed.Fixed64
	inc      fixed.Fixed64
	loudness control.Source
	left     float32
	right    float32
}

func newSamplePlayer(s *samples.Sample, ratio, sampleRate float64, loudness control.Source, pan float64) *samplePlayer {
	p := &samplePlayer{
		s:        s,
		inc:      fixed.FromFloat64(ratio * s.SampleRate / sampleRate),
		loudness: loudness,
	}
	p.left, p.right = panGains(pan)
	return p
}

func (p *samplePlayer) frame(i int) (float32, float32) {
	d := p.s.Data
	if len(d) == 1 {
		return d[0][i], d[0][i]
	}
	return d[0][i], d[1][i]
}

func (p *samplePlayer) Render(l, r []float32) {
	frames := p.s.Frames()
	looped := p.s.Looped()
	loopLen := fixed.FromInt(int32(p.s.LoopEnd - p.s.LoopStart))
	for i := range l {
		if looped {
			for int(p.pos.Int()) >= p.s.LoopEnd {
				p.pos = p.pos.Sub(loopLen)
			}
		}
		i0 := int(p.pos.Int())
		if i0 >= frames {
			l[i], r[i] = 0, 0
			p.loudness.Advance(1)
			continue
		}
		i1 := i0 + 1
		switch {
		case looped && i1 == p.s.LoopEnd:
			i1 = p.s.LoopStart
		case i1 >= frames:
			i1 = i0
		}
		frac := p.pos.FracF()
		a0, b0 := p.frame(i0)
		a1, b1 := p.frame(i1)
		g := float32(p.loudness.Value())
		l[i] = (a0 + (a1-a0)*frac) * g * p.left
		r[i] = (b0 + (b1-b0)*frac) * g * p.right

		p.loudness.Advance(1)
		p.pos = p.pos.Add(p.inc)
	}
}
