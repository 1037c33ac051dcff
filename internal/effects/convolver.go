package effects

import (
	"fmt"

	"github.com/cbegin/synthcore-go/internal/convolve"
	"github.com/cbegin/synthcore-go/internal/errs"
	"github.com/cbegin/synthcore-go/internal/fft"
	"github.com/cbegin/synthcore-go/internal/logger"
)

// Topology is the channel layout of a convolver's impulse response.
type Topology int

const (
	// Mono convolves both channels with one impulse.
	Mono Topology = iota
	// Stereo convolves each channel with its own impulse.
	Stereo
	// BiStereo applies a 2x2 matrix of impulses ordered LL, LR, RL, RR,
	// where LR is the path from the left input to the right output.
	BiStereo
)

func (t Topology) channels() int {
	switch t {
	case Stereo:
		return 2
	case BiStereo:
		return 4
	default:
		return 1
	}
}

func (t Topology) String() string {
	switch t {
	case Mono:
		return "mono"
	case Stereo:
		return "stereo"
	case BiStereo:
		return "bi-stereo"
	default:
		return fmt.Sprintf("topology(%d)", int(t))
	}
}

// Convolver applies an impulse response through FFT convolution streams.
// Dry signal is delayed by the same latency as the wet path.
type Convolver struct {
	topology Topology
	tail     int
	// ll and rr carry the direct path; lr and rl are wet-only cross paths.
	ll, lr, rl, rr *convolve.Stream
}

func newConvolver(s ConvolverSpec, sampleRate float64, m *fft.Manager) (*Convolver, error) {
	if len(s.IR) != s.Topology.channels() {
		return nil, errs.New(errs.UnsupportedChannels, "convolver %q: %d impulse channels for %v", s.Name, len(s.IR), s.Topology)
	}
	if s.IRSampleRate != 0 && s.IRSampleRate != sampleRate {
		return nil, errs.New(errs.SampleRateMismatch, "convolver %q: impulse at %g Hz, rendering at %g Hz", s.Name, s.IRSampleRate, sampleRate)
	}
	if m == nil {
		m = fft.Default()
	}
	wet, dry := s.Wet, s.Dry
	if wet == 0 && dry == 0 {
		wet = 1
	}
	direct := convolve.Config{Backend: s.Backend, Latency: s.Latency, ProcessedGain: wet, DirectGain: dry, Concurrency: s.Concurrency}
	cross := direct
	cross.DirectGain = 0

	// Every stream shares one block length so the paths stay aligned.
	longest := 0
	for _, ir := range s.IR {
		longest = max(longest, len(ir))
	}
	if s.Backend == convolve.OverlapSave {
		direct.Latency = max(direct.Latency, longest)
		cross.Latency = direct.Latency
	}

	c := &Convolver{topology: s.Topology, tail: max(longest-1, 0)}
	build := func(ir []float32, cfg convolve.Config) (*convolve.Stream, error) {
		st, err := convolve.NewStream(m, ir, cfg)
		if err != nil {
			c.release()
			return nil, fmt.Errorf("convolver %q: %w", s.Name, err)
		}
		return st, nil
	}
	var err error
	switch s.Topology {
	case Mono:
		if c.ll, err = build(s.IR[0], direct); err != nil {
			return nil, err
		}
		if c.rr, err = build(s.IR[0], direct); err != nil {
			return nil, err
		}
	case Stereo:
		if c.ll, err = build(s.IR[0], direct); err != nil {
			return nil, err
		}
		if c.rr, err = build(s.IR[1], direct); err != nil {
			return nil, err
		}
	case BiStereo:
		if c.ll, err = build(s.IR[0], direct); err != nil {
			return nil, err
		}
		if c.lr, err = build(s.IR[1], cross); err != nil {
			return nil, err
		}
		if c.rl, err = build(s.IR[2], cross); err != nil {
			return nil, err
		}
		if c.rr, err = build(s.IR[3], direct); err != nil {
			return nil, err
		}
	}
	logger.L.Debug("effects: convolver ready", "name", s.Name, "topology", s.Topology, "latency", c.Latency())
	return c, nil
}

// Latency is the delay in frames between input and output.
func (c *Convolver) Latency() int { return c.ll.Latency() }

// Tail is the impulse length less one.
func (c *Convolver) Tail() int { return c.tail }

func (c *Convolver) Apply(b Block, _ *Context) error {
	if c.topology != BiStereo {
		c.ll.ProcessBlock(b.L, b.L)
		c.rr.ProcessBlock(b.R, b.R)
		return nil
	}
	for i := range b.L {
		l, r := b.L[i], b.R[i]
		b.L[i] = c.ll.Process(l) + c.rl.Process(r)
		b.R[i] = c.lr.Process(l) + c.rr.Process(r)
	}
	return nil
}

func (c *Convolver) Finalize(*Context, bool) error {
	c.release()
	return nil
}

func (c *Convolver) release() {
	for _, s := range []**convolve.Stream{&c.ll, &c.lr, &c.rl, &c.rr} {
		if *s != nil {
			(*s).Release()
			*s = nil
		}
	}
}
