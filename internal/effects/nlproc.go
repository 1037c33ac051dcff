package effects

import (
	"github.com/cbegin/synthcore-go/internal/errs"
	"github.com/cbegin/synthcore-go/internal/fixed"
	"github.com/cbegin/synthcore-go/internal/wavetable"
)

// NLProc is a waveshaper: each input sample in [-1, 1] selects a frame
// position in a wavetable stack, and the interpolated table value replaces
// it. Positions outside the table wrap, or with clamping stick to the ends.
type NLProc struct {
	modulators
	stack     *wavetable.Stack
	index     func() float64
	inGain    float32
	outGain   float32
	clamp     bool
	crossfade bool
	span      float64 // frames-1
}

func newNLProc(s NLProcSpec) (*NLProc, error) {
	if s.Stack == nil || s.Stack.Len() == 0 {
		return nil, errs.New(errs.InvalidParameter, "nonlinear processor without tables")
	}
	idx := source(s.TableIndex, 0)
	p := &NLProc{
		modulators: modulators{idx},
		stack:      s.Stack,
		index:      idx.Value,
		inGain:     float32(s.InputGain),
		outGain:    float32(s.OutputGain),
		clamp:      s.Clamp,
		crossfade:  s.Crossfade,
		span:       float64(s.Stack.Frames - 1),
	}
	if p.inGain == 0 {
		p.inGain = 1
	}
	if p.outGain == 0 {
		p.outGain = 1
	}
	return p, nil
}

// position maps an input sample to a fixed-point table position.
func (p *NLProc) position(x float32) fixed.Fixed64 {
	pos := fixed.FromFloat64((float64(x*p.inGain) + 1) / 2 * p.span)
	if !p.clamp {
		return pos
	}
	if pos < 0 {
		return 0
	}
	if last := int32(p.span); pos.Int() >= last {
		return fixed.FromInt(last)
	}
	return pos
}

// Shape maps one sample at the given table index.
func (p *NLProc) Shape(x float32, tableIndex float64) float32 {
	return p.stack.At(p.position(x), tableIndex, p.crossfade) * p.outGain
}

func (p *NLProc) Apply(b Block, _ *Context) error {
	ti := p.index()
	for i := range b.L {
		b.L[i] = p.Shape(b.L[i], ti)
		b.R[i] = p.Shape(b.R[i], ti)
	}
	return nil
}

func (p *NLProc) Finalize(*Context, bool) error { return nil }
