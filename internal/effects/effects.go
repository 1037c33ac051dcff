// Package effects is the per-note and per-track processing pipeline. Effects
// run in order over a split stereo block in place; analyzers report through
// the shared interaction log when finalized.
package effects

import (
	"errors"

	"github.com/cbegin/synthcore-go/internal/control"
	"github.com/cbegin/synthcore-go/internal/logger"
	"github.com/cbegin/synthcore-go/internal/workspace"
)

// Block is one block of split stereo audio. L and R have equal length.
type Block struct {
	L, R []float32
}

func (b Block) Len() int { return len(b.L) }

// Context carries what an effect may use while processing one block.
type Context struct {
	SampleRate float64
	// Frame is the absolute frame of the block's first sample.
	Frame   int64
	Scratch *workspace.Scratch
	Log     *logger.InteractionLog
}

// NewContext returns a context with scratch workspaces for blocks of up to
// maxFrames.
func NewContext(sampleRate float64, maxFrames int, log *logger.InteractionLog) *Context {
	return &Context{
		SampleRate: sampleRate,
		Scratch:    workspace.NewScratch(maxFrames, workspace.Config{}),
		Log:        log,
	}
}

// Effect processes blocks and, once the owner is done, finalizes.
type Effect interface {
	Apply(b Block, ctx *Context) error
	// Finalize releases resources; with writeLogs, reporting effects
	// write their summary to ctx.Log.
	Finalize(ctx *Context, writeLogs bool) error
}

// OscillatorEffect is an effect owned by a note, driven by its envelope
// lifecycle.
type OscillatorEffect interface {
	Effect
	FixEnvelopeOrigins(frame int64)
	// UpdateEnvelopes advances envelopes past the block just applied.
	UpdateEnvelopes(frames int)
	KeyUpSustain1()
	KeyUpSustain2()
	KeyUpSustain3()
	RetriggerEnvelopes()
}

// Latent is an effect whose output lags its input by a fixed number of
// frames.
type Latent interface {
	Latency() int
}

// Ringing is an effect that keeps sounding for Tail frames after its input
// falls silent.
type Ringing interface {
	Tail() int
}

// Chain applies effects strictly in order.
type Chain struct {
	effects []Effect
}

func NewChain(effects ...Effect) *Chain {
	return &Chain{effects: effects}
}

func (c *Chain) Add(e Effect) {
	c.effects = append(c.effects, e)
}

func (c *Chain) Len() int { return len(c.effects) }

// Apply stops at the first failing effect.
func (c *Chain) Apply(b Block, ctx *Context) error {
	for _, e := range c.effects {
		if err := e.Apply(b, ctx); err != nil {
			return err
		}
	}
	return nil
}

// Finalize finalizes every member, even after a failure.
func (c *Chain) Finalize(ctx *Context, writeLogs bool) error {
	var errs []error
	for _, e := range c.effects {
		if err := e.Finalize(ctx, writeLogs); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Latency is the summed latency of the members.
func (c *Chain) Latency() int {
	n := 0
	for _, e := range c.effects {
		if l, ok := e.(Latent); ok {
			n += l.Latency()
		}
	}
	return n
}

// Tail is the summed tail of the members, excluding latency.
func (c *Chain) Tail() int {
	n := 0
	for _, e := range c.effects {
		if r, ok := e.(Ringing); ok {
			n += r.Tail()
		}
	}
	return n
}

func (c *Chain) each(fn func(OscillatorEffect)) {
	for _, e := range c.effects {
		if o, ok := e.(OscillatorEffect); ok {
			fn(o)
		}
	}
}

func (c *Chain) FixEnvelopeOrigins(frame int64) {
	c.each(func(o OscillatorEffect) { o.FixEnvelopeOrigins(frame) })
}

func (c *Chain) UpdateEnvelopes(frames int) {
	c.each(func(o OscillatorEffect) { o.UpdateEnvelopes(frames) })
}

func (c *Chain) KeyUpSustain1() { c.each(OscillatorEffect.KeyUpSustain1) }
func (c *Chain) KeyUpSustain2() { c.each(OscillatorEffect.KeyUpSustain2) }
func (c *Chain) KeyUpSustain3() { c.each(OscillatorEffect.KeyUpSustain3) }

func (c *Chain) RetriggerEnvelopes() { c.each(OscillatorEffect.RetriggerEnvelopes) }

// Processor is a per-sample stereo processor.
type Processor interface {
	Process(l, r float32) (float32, float32)
	Reset()
}

// PerSample lifts a Processor into an Effect.
func PerSample(p Processor) Effect { return perSample{p} }

type perSample struct{ p Processor }

func (s perSample) Apply(b Block, _ *Context) error {
	for i := range b.L {
		b.L[i], b.R[i] = s.p.Process(b.L[i], b.R[i])
	}
	return nil
}

func (s perSample) Finalize(*Context, bool) error {
	s.p.Reset()
	return nil
}

// modulators advances the parameter sources of an effect and forwards
// note lifecycle hooks to those that are envelopes.
type modulators []control.Source

func (m modulators) each(fn func(control.Envelope)) {
	for _, s := range m {
		if e, ok := s.(control.Envelope); ok {
			fn(e)
		}
	}
}

func (m modulators) FixEnvelopeOrigins(frame int64) {
	m.each(func(e control.Envelope) { e.FixOrigin(frame) })
}

func (m modulators) UpdateEnvelopes(frames int) {
	for _, s := range m {
		s.Advance(frames)
	}
}

func (m modulators) KeyUpSustain1() { m.each(func(e control.Envelope) { e.KeyUp(1) }) }
func (m modulators) KeyUpSustain2() { m.each(func(e control.Envelope) { e.KeyUp(2) }) }
func (m modulators) KeyUpSustain3() { m.each(func(e control.Envelope) { e.KeyUp(3) }) }

func (m modulators) RetriggerEnvelopes() { m.each(control.Envelope.Retrigger) }

// source returns s, or a constant when s is nil.
func source(s control.Source, def float64) control.Source {
	if s == nil {
		return control.Constant(def)
	}
	return s
}
