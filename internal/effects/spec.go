package effects

import (
	"fmt"

	"github.com/cbegin/synthcore-go/internal/control"
	"github.com/cbegin/synthcore-go/internal/convolve"
	"github.com/cbegin/synthcore-go/internal/errs"
	"github.com/cbegin/synthcore-go/internal/fft"
	"github.com/cbegin/synthcore-go/internal/filters"
	"github.com/cbegin/synthcore-go/internal/wavetable"
)

// Spec describes one effect to build. The set of specs is closed.
type Spec interface {
	effectSpec()
}

type AnalyzerSpec struct {
	Name string
}

type HistogramSpec struct {
	Name     string
	Bins     int
	Min, Max float64
	Log      bool
	Channel  ChannelPolicy
	// BarWidth is the length of the longest bar in the report; default 50.
	BarWidth int
}

type ResamplerSpec struct {
	Rate    float64 // Hz, at most the rendering rate
	Capture Capture
	Hold    Hold
}

type NLProcSpec struct {
	Stack      *wavetable.Stack
	TableIndex control.Source
	// A zero gain selects unity.
	InputGain  float64
	OutputGain float64
	Clamp      bool
	Crossfade  bool
}

type ConvolverSpec struct {
	Name string
	// IR holds one impulse per path: 1 for Mono, 2 for Stereo, 4 for
	// BiStereo.
	IR           [][]float32
	IRSampleRate float64 // 0 skips the check
	Topology     Topology
	Backend      convolve.Backend
	Latency      int
	// Wet and Dry both zero select fully wet (Wet 1). Either one nonzero
	// is taken as given, so Wet 0 with Dry 1 bypasses the impulse.
	Wet, Dry    float32
	Concurrency int
}

type UserEffectSpec struct {
	Processor  string
	Params     map[string]float64
	Modulation map[string]control.Source
}

// FilterBand is one filter of a FilterSpec. Nil sources default to 1 kHz
// cutoff, 100 Hz bandwidth and unity gain.
type FilterBand struct {
	Kind                    filters.Kind
	Norm                    filters.Norm
	Cutoff, Bandwidth, Gain control.Source
	Scale                   float32 // 0 selects 1
}

type FilterSpec struct {
	Bands  []FilterBand
	Serial bool
}

type DelaySpec struct {
	Seconds  float64
	Feedback float32 // 0..0.95
	Cross    float32
	Wet      float32
	// WetSource, when set, replaces Wet and is read once per block.
	WetSource control.Source
}

type CompressorSpec struct {
	ThresholdDB float64
	Ratio       float64
	Attack      float64 // seconds
	Release     float64 // seconds
	MakeupDB    float64
	Linked      bool
}

func (AnalyzerSpec) effectSpec()   {}
func (HistogramSpec) effectSpec()  {}
func (ResamplerSpec) effectSpec()  {}
func (NLProcSpec) effectSpec()     {}
func (ConvolverSpec) effectSpec()  {}
func (UserEffectSpec) effectSpec() {}
func (FilterSpec) effectSpec()     {}
func (DelaySpec) effectSpec()      {}
func (CompressorSpec) effectSpec() {}

// Env is what effects are built against.
type Env struct {
	SampleRate float64
	// FFT supplies transforms for convolvers; nil uses fft.Default().
	FFT *fft.Manager
	// Role is where the effect will be attached; zero means RoleTrack.
	Role     Role
	Registry *Registry
}

// Build validates s and constructs its effect. Failures are configuration
// errors from package errs.
func Build(s Spec, env Env) (Effect, error) {
	if !(env.SampleRate > 0) {
		return nil, errs.New(errs.InvalidParameter, "sample rate %g", env.SampleRate)
	}
	if env.Role == 0 {
		env.Role = RoleTrack
	}
	switch s := s.(type) {
	case AnalyzerSpec:
		return NewAnalyzer(s.Name), nil
	case HistogramSpec:
		h, err := newHistogram(s)
		if err != nil {
			return nil, err
		}
		return h, nil
	case ResamplerSpec:
		r, err := newResampler(s, env.SampleRate)
		if err != nil {
			return nil, err
		}
		return r, nil
	case NLProcSpec:
		p, err := newNLProc(s)
		if err != nil {
			return nil, err
		}
		return p, nil
	case ConvolverSpec:
		c, err := newConvolver(s, env.SampleRate, env.FFT)
		if err != nil {
			return nil, err
		}
		return c, nil
	case UserEffectSpec:
		u, err := newUserEffect(s, env)
		if err != nil {
			return nil, err
		}
		return u, nil
	case FilterSpec:
		f, err := newFilterBank(s)
		if err != nil {
			return nil, err
		}
		return f, nil
	case DelaySpec:
		d, err := newDelay(s, env.SampleRate)
		if err != nil {
			return nil, err
		}
		return d, nil
	case CompressorSpec:
		if s.Ratio < 1 {
			return nil, errs.New(errs.InvalidParameter, "compressor ratio %g", s.Ratio)
		}
		c := NewCompressor(env.SampleRate, s.ThresholdDB, s.Ratio, s.Attack, s.Release, s.MakeupDB)
		c.Link(s.Linked)
		return PerSample(c), nil
	default:
		return nil, errs.New(errs.InvalidParameter, "unknown effect %T", s)
	}
}

// BuildChain builds every spec in order. If one fails, the effects already
// built are finalized and the error names the failing position.
func BuildChain(specs []Spec, env Env) (*Chain, error) {
	c := NewChain()
	for i, s := range specs {
		e, err := Build(s, env)
		if err != nil {
			_ = c.Finalize(nil, false)
			return nil, fmt.Errorf("effect %d: %w", i, err)
		}
		c.Add(e)
	}
	return c, nil
}
