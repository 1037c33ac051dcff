package effects

import (
	"math"

	"github.com/cbegin/synthcore-go/internal/control"
	"github.com/cbegin/synthcore-go/internal/errs"
	"github.com/cbegin/synthcore-go/internal/filters"
	"github.com/cbegin/synthcore-go/internal/wavetable"
)

const shaperFrames = 4096

// TanhTable samples tanh(drive*x) over x in [-1, 1] for use as a
// nonlinear processor table.
func TanhTable(frames int, drive float64) []float32 {
	t := make([]float32, frames)
	for i := range t {
		x := -1 + 2*float64(i)/float64(frames-1)
		t[i] = float32(math.Tanh(drive * x))
	}
	return t
}

// Distortion returns a tanh soft clipper with output gain, followed by a
// first-order lowpass when lpfCutoff > 0.
// preGain: drive (higher = more distortion)
// postGain: output gain
// lpfCutoff: lowpass cutoff in Hz (0 = no filter)
func Distortion(preGain, postGain, lpfCutoff float64) ([]Spec, error) {
	if preGain <= 0 {
		return nil, errs.New(errs.InvalidParameter, "distortion drive %g", preGain)
	}
	stack, err := wavetable.NewStack(TanhTable(shaperFrames, preGain))
	if err != nil {
		return nil, err
	}
	specs := []Spec{NLProcSpec{Stack: stack, OutputGain: postGain, Clamp: true}}
	if lpfCutoff > 0 {
		specs = append(specs, FilterSpec{Serial: true, Bands: []FilterBand{
			{Kind: filters.Lowpass1, Cutoff: control.Constant(lpfCutoff)},
		}})
	}
	return specs, nil
}
