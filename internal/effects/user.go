package effects

import (
	"fmt"
	"sort"
	"sync"

	"github.com/cbegin/synthcore-go/internal/errs"
	"github.com/cbegin/synthcore-go/internal/fixed"
	"github.com/cbegin/synthcore-go/internal/wavetable"
	"github.com/cbegin/synthcore-go/internal/workspace"
)

// Role is where an effect may be attached. Roles combine as a bit set.
type Role int

const (
	RoleOscillator Role = 1 << iota
	RoleTrack
)

func (r Role) String() string {
	switch r {
	case RoleOscillator:
		return "oscillator"
	case RoleTrack:
		return "track"
	case RoleOscillator | RoleTrack:
		return "oscillator|track"
	default:
		return fmt.Sprintf("role(%d)", int(r))
	}
}

// Capabilities is the contract a user processor declares up front.
type Capabilities struct {
	Roles Role
	// Scratch is the number of scratch workspaces used per block, 0..3.
	Scratch int
	// Smoothable processors accept parameter updates between blocks
	// through SetParam.
	Smoothable bool
}

// UserProcessor is a pluggable block processor. scratch holds the declared
// number of zeroed workspaces of the block's length.
type UserProcessor interface {
	Capabilities() Capabilities
	Process(b Block, scratch [][]float32, ctx *Context) error
}

// ParamSetter is implemented by smoothable processors.
type ParamSetter interface {
	SetParam(name string, v float64) error
}

// Factory builds a processor from its parameters.
type Factory func(params map[string]float64, sampleRate float64) (UserProcessor, error)

type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// DefaultRegistry holds the built-in processors.
var DefaultRegistry = func() *Registry {
	r := NewRegistry()
	if err := r.Register("sine", NewSineOscillator); err != nil {
		panic(err)
	}
	return r
}()

func (r *Registry) Register(name string, f Factory) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.factories[name]; ok {
		return fmt.Errorf("effects: processor %q already registered", name)
	}
	r.factories[name] = f
	return nil
}

func (r *Registry) Lookup(name string) (Factory, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.factories[name]
	return f, ok
}

// Names lists registered processors in order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.factories))
	for n := range r.factories {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// UserEffect adapts a UserProcessor to the effect chain.
type UserEffect struct {
	modulators
	name    string
	proc    UserProcessor
	caps    Capabilities
	params  []string // modulated parameter names, parallel to modulators
	setter  ParamSetter
	scratch [][]float32
}

func newUserEffect(s UserEffectSpec, env Env) (*UserEffect, error) {
	reg := env.Registry
	if reg == nil {
		reg = DefaultRegistry
	}
	f, ok := reg.Lookup(s.Processor)
	if !ok {
		return nil, errs.New(errs.InvalidParameter, "unknown processor %q", s.Processor)
	}
	p, err := f(s.Params, env.SampleRate)
	if err != nil {
		return nil, fmt.Errorf("processor %q: %w", s.Processor, err)
	}
	caps := p.Capabilities()
	if caps.Roles&env.Role == 0 {
		return nil, errs.New(errs.RoleNotSupported, "processor %q cannot run as %v", s.Processor, env.Role)
	}
	if caps.Scratch < 0 || caps.Scratch > workspace.ScratchCount {
		return nil, errs.New(errs.InvalidParameter, "processor %q wants %d scratch workspaces", s.Processor, caps.Scratch)
	}
	e := &UserEffect{name: s.Processor, proc: p, caps: caps}
	if len(s.Modulation) > 0 {
		setter, ok := p.(ParamSetter)
		if !caps.Smoothable || !ok {
			return nil, errs.New(errs.InvalidParameter, "processor %q parameters cannot be modulated", s.Processor)
		}
		e.setter = setter
		for name := range s.Modulation {
			e.params = append(e.params, name)
		}
		sort.Strings(e.params)
		for _, name := range e.params {
			e.modulators = append(e.modulators, s.Modulation[name])
		}
	}
	return e, nil
}

func (e *UserEffect) Capabilities() Capabilities { return e.caps }

func (e *UserEffect) Apply(b Block, ctx *Context) error {
	for i, name := range e.params {
		if err := e.setter.SetParam(name, e.modulators[i].Value()); err != nil {
			return fmt.Errorf("processor %q: %w", e.name, err)
		}
	}
	if e.caps.Scratch == 0 {
		return e.proc.Process(b, nil, ctx)
	}
	ws := ctx.Scratch.Acquire(b.Len())
	defer ctx.Scratch.Done()
	e.scratch = append(e.scratch[:0], ws[:e.caps.Scratch]...)
	return e.proc.Process(b, e.scratch, ctx)
}

func (e *UserEffect) Finalize(*Context, bool) error { return nil }

// SineOscillator adds a sine tone to both channels. Parameters:
// "frequency" in Hz (default 440) and "gain" (default 0.25).
type SineOscillator struct {
	table      []float32
	sampleRate float64
	frequency  float64
	gain       float32
	phase      fixed.Fixed64
	inc        fixed.Fixed64
}

const sineFrames = 4096

var sineTable = wavetable.Sine(sineFrames)

func NewSineOscillator(params map[string]float64, sampleRate float64) (UserProcessor, error) {
	if !(sampleRate > 0) {
		return nil, errs.New(errs.InvalidParameter, "sample rate %g", sampleRate)
	}
	o := &SineOscillator{table: sineTable, sampleRate: sampleRate, gain: 0.25}
	if err := o.SetParam("frequency", 440); err != nil {
		return nil, err
	}
	for k, v := range params {
		if err := o.SetParam(k, v); err != nil {
			return nil, err
		}
	}
	return o, nil
}

func (o *SineOscillator) Capabilities() Capabilities {
	return Capabilities{Roles: RoleOscillator | RoleTrack, Scratch: 1, Smoothable: true}
}

func (o *SineOscillator) SetParam(name string, v float64) error {
	switch name {
	case "frequency":
		if v < 0 || v >= o.sampleRate/2 {
			return errs.New(errs.InvalidParameter, "sine frequency %g outside [0, %g)", v, o.sampleRate/2)
		}
		o.frequency = v
		o.inc = fixed.FromFloat64(v * sineFrames / o.sampleRate)
	case "gain":
		o.gain = float32(v)
	default:
		return errs.New(errs.InvalidParameter, "sine has no parameter %q", name)
	}
	return nil
}

func (o *SineOscillator) Process(b Block, scratch [][]float32, _ *Context) error {
	tone := scratch[0]
	tables := [][]float32{o.table}
	for i := range tone {
		tone[i] = wavetable.Index(o.phase, 0, 1, sineFrames, tables, false) * o.gain
		o.phase = o.phase.Add(o.inc)
		o.phase.MaskInt64HighHalf(sineFrames - 1)
	}
	for i, v := range tone {
		b.L[i] += v
		b.R[i] += v
	}
	return nil
}
