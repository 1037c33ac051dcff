package effects

import (
	"fmt"
	"math"

	"github.com/cbegin/synthcore-go/internal/control"
	"github.com/cbegin/synthcore-go/internal/errs"
	"github.com/cbegin/synthcore-go/internal/filters"
)

type filterBand struct {
	lr                      [2]filters.Filter
	cutoff, bandwidth, gain control.Source
	scale                   float32
}

// FilterBank runs a list of IIR filters over the block. In parallel mode
// every filter reads the input and their scaled outputs are summed; in serial
// mode each filter feeds the next. Parameters are read once per block.
type FilterBank struct {
	modulators
	bands  []filterBand
	serial bool
}

func newFilterBank(s FilterSpec) (*FilterBank, error) {
	if len(s.Bands) == 0 {
		return nil, errs.New(errs.InvalidParameter, "filter effect without filters")
	}
	fb := &FilterBank{serial: s.Serial}
	for i, b := range s.Bands {
		band := filterBand{
			cutoff:    source(b.Cutoff, 1000),
			bandwidth: source(b.Bandwidth, 100),
			gain:      source(b.Gain, 1),
			scale:     b.Scale,
		}
		if band.scale == 0 {
			band.scale = 1
		}
		for c := range band.lr {
			f, err := filters.New(b.Kind, b.Norm)
			if err != nil {
				return nil, errs.Wrap(errs.InvalidParameter, fmt.Sprintf("filter band %d", i), err)
			}
			band.lr[c] = f
		}
		fb.bands = append(fb.bands, band)
		fb.modulators = append(fb.modulators, band.cutoff, band.bandwidth, band.gain)
	}
	return fb, nil
}

func (fb *FilterBank) Apply(b Block, ctx *Context) error {
	n := b.Len()
	ws := ctx.Scratch.Acquire(n)
	defer ctx.Scratch.Done()
	outL, outR := ws[0], ws[1]

	for i := range fb.bands {
		band := &fb.bands[i]
		cutoff, bw, gain := band.cutoff.Value(), band.bandwidth.Value(), band.gain.Value()
		for _, f := range band.lr {
			f.UpdateParams(cutoff, bw, gain, ctx.SampleRate)
		}
		if fb.serial {
			clear(outL)
			clear(outR)
		}
		band.lr[0].Apply(b.L, outL, band.scale)
		band.lr[1].Apply(b.R, outR, band.scale)
		if fb.serial {
			copy(b.L, outL)
			copy(b.R, outR)
		}
	}
	if !fb.serial {
		copy(b.L, outL)
		copy(b.R, outR)
	}
	return nil
}

func (fb *FilterBank) Finalize(*Context, bool) error {
	for _, band := range fb.bands {
		band.lr[0].Reset()
		band.lr[1].Reset()
	}
	return nil
}

// EQ3Band returns a serial low shelf, mid peak and high shelf. Gains are
// linear (1.0 = unity); the mid band is centred between the crossovers.
func EQ3Band(lowGain, midGain, highGain, lowFreq, highFreq float64) FilterSpec {
	mid := math.Sqrt(lowFreq * highFreq)
	return FilterSpec{
		Serial: true,
		Bands: []FilterBand{
			{Kind: filters.LowShelf, Cutoff: control.Constant(lowFreq), Bandwidth: control.Constant(1), Gain: control.Constant(lowGain)},
			{Kind: filters.ParametricEQ2, Cutoff: control.Constant(mid), Bandwidth: control.Constant(highFreq - lowFreq), Gain: control.Constant(midGain)},
			{Kind: filters.HighShelf, Cutoff: control.Constant(highFreq), Bandwidth: control.Constant(1), Gain: control.Constant(highGain)},
		},
	}
}
