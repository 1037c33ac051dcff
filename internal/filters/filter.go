// Package filters is a bank of first- and second-order IIR filters sharing
// one contract: parameters are pushed with UpdateParams, coefficients are
// recomputed only when a parameter changed, and Apply accumulates the
// filtered block into an output bus.
//
// Coefficients are computed in float64 and stored as float32; all sample
// processing is float32.
package filters

import (
	"fmt"
	"strings"

	"github.com/cbegin/synthcore-go/internal/errs"
)

type Kind int

const (
	Null Kind = iota
	Lowpass1
	Highpass1
	ButterworthLowpass
	ButterworthHighpass
	ButterworthBandpass
	ButterworthBandreject
	LowShelf
	HighShelf
	ParametricEQ
	ParametricEQ2
	Resonator
	Zero
)

var kindNames = map[Kind]string{
	Null:                  "null",
	Lowpass1:              "lowpass1",
	Highpass1:             "highpass1",
	ButterworthLowpass:    "butterworth-lowpass",
	ButterworthHighpass:   "butterworth-highpass",
	ButterworthBandpass:   "butterworth-bandpass",
	ButterworthBandreject: "butterworth-bandreject",
	LowShelf:              "low-shelf",
	HighShelf:             "high-shelf",
	ParametricEQ:          "parametric-eq",
	ParametricEQ2:         "parametric-eq2",
	Resonator:             "resonator",
	Zero:                  "zero",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// ParseKind maps a name produced by Kind.String back to the Kind.
func ParseKind(s string) (Kind, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for k, name := range kindNames {
		if name == s {
			return k, nil
		}
	}
	return 0, errs.New(errs.InvalidParameter, "unknown filter %q", s)
}

// Norm selects gain normalization for the resonator and zero filters.
type Norm int

const (
	NormNone Norm = iota
	// NormUnity gives unity gain at the resonant peak (resonator) or at
	// DC (zero).
	NormUnity
	// NormNoise gives unity gain for white noise input.
	NormNoise
)

// Filter is one IIR filter instance. Its Kind is fixed at construction.
type Filter interface {
	Kind() Kind
	// UpdateParams sets cutoff and bandwidth (or shelf slope) in Hz, a
	// linear gain, and the sampling rate. Coefficients are recomputed
	// only if a value differs from the previous call.
	UpdateParams(cutoff, bandwidth, gain, sampleRate float64)
	// Apply filters in and adds result*scale into out. out must be at
	// least as long as in.
	Apply(in, out []float32, scale float32)
	// Reset clears the delay taps.
	Reset()
}

// New builds a filter of the given kind. norm is used only by Resonator and
// Zero.
func New(kind Kind, norm Norm) (Filter, error) {
	switch kind {
	case Null:
		return &nullFilter{}, nil
	case Lowpass1, Highpass1:
		return &onePoleFilter{kind: kind}, nil
	case ButterworthLowpass, ButterworthHighpass, ButterworthBandpass, ButterworthBandreject,
		LowShelf, HighShelf, ParametricEQ2:
		return &biquadFilter{kind: kind}, nil
	case ParametricEQ:
		return &allpassEQ{}, nil
	case Resonator, Zero:
		if norm < NormNone || norm > NormNoise {
			return nil, errs.New(errs.InvalidParameter, "filter normalization %d", norm)
		}
		return &biquadFilter{kind: kind, norm: norm}, nil
	default:
		return nil, errs.New(errs.InvalidParameter, "filter kind %v", kind)
	}
}

// params caches the last UpdateParams arguments.
type params struct {
	cutoff, bandwidth, gain, rate float64
	valid                         bool
	updates                       int
}

func (p *params) changed(cutoff, bandwidth, gain, rate float64) bool {
	if p.valid && p.cutoff == cutoff && p.bandwidth == bandwidth && p.gain == gain && p.rate == rate {
		return false
	}
	p.cutoff, p.bandwidth, p.gain, p.rate = cutoff, bandwidth, gain, rate
	p.valid = true
	p.updates++
	return true
}

// clampHz keeps f strictly inside (0, nyquist).
func clampHz(f, rate float64) float64 {
	eps := rate * 1e-6
	return min(max(f, eps), rate/2-eps)
}

type nullFilter struct {
	params
	gain float32
}

func (f *nullFilter) Kind() Kind { return Null }

func (f *nullFilter) UpdateParams(cutoff, bandwidth, gain, rate float64) {
	if f.changed(cutoff, bandwidth, gain, rate) {
		f.gain = float32(gain)
	}
}

func (f *nullFilter) Apply(in, out []float32, scale float32) {
	g := f.gain * scale
	for i, x := range in {
		out[i] += x * g
	}
}

func (f *nullFilter) Reset() {}
