// Package samples holds the named audio samples and wavetables instruments
// and convolvers look up by name.
package samples

import (
	"iter"
	"maps"
	"slices"
	"sync"

	"github.com/cbegin/synthcore-go/internal/errs"
	"github.com/cbegin/synthcore-go/internal/wavetable"
)

// Sample is decoded audio with its native rate and optional loop.
type Sample struct {
	Name       string
	SampleRate float64
	// Data holds one slice per channel, all the same length.
	Data [][]float32
	// LoopStart and LoopEnd bound a forward loop in frames; LoopEnd 0
	// means the sample does not loop.
	LoopStart int
	LoopEnd   int
}

func (s *Sample) Channels() int { return len(s.Data) }

func (s *Sample) Frames() int {
	if len(s.Data) == 0 {
		return 0
	}
	return len(s.Data[0])
}

func (s *Sample) Looped() bool { return s.LoopEnd > s.LoopStart }

func (s *Sample) validate() error {
	if s.Name == "" {
		return errs.New(errs.InvalidParameter, "unnamed sample")
	}
	if len(s.Data) == 0 {
		return errs.New(errs.UnsupportedChannels, "sample %q has no channels", s.Name)
	}
	if !(s.SampleRate > 0) {
		return errs.New(errs.InvalidParameter, "sample %q at %g Hz", s.Name, s.SampleRate)
	}
	n := len(s.Data[0])
	for c, ch := range s.Data {
		if len(ch) != n {
			return errs.New(errs.InvalidParameter, "sample %q channel %d has %d frames, want %d", s.Name, c, len(ch), n)
		}
	}
	if s.LoopEnd != 0 && (s.LoopStart < 0 || s.LoopEnd > n || s.LoopStart >= s.LoopEnd) {
		return errs.New(errs.InvalidParameter, "sample %q loop [%d, %d) outside %d frames", s.Name, s.LoopStart, s.LoopEnd, n)
	}
	return nil
}

// Provider answers sample and wavetable lookups.
type Provider interface {
	Sample(name string) (*Sample, error)
	WaveTable(name string) (*wavetable.Stack, error)
}

// Dictionary is an in-memory Provider safe for concurrent lookups.
type Dictionary struct {
	mu      sync.RWMutex
	samples map[string]*Sample
	tables  map[string]*wavetable.Stack
}

func NewDictionary() *Dictionary {
	return &Dictionary{
		samples: make(map[string]*Sample),
		tables:  make(map[string]*wavetable.Stack),
	}
}

// AddSample validates s and stores it under s.Name, replacing any sample of
// that name.
func (d *Dictionary) AddSample(s *Sample) error {
	if err := s.validate(); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.samples[s.Name] = s
	return nil
}

func (d *Dictionary) AddWaveTable(name string, stack *wavetable.Stack) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.tables[name] = stack
}

func (d *Dictionary) Sample(name string) (*Sample, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	s, ok := d.samples[name]
	if !ok {
		return nil, errs.New(errs.MissingSample, "%q", name)
	}
	return s, nil
}

func (d *Dictionary) WaveTable(name string) (*wavetable.Stack, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	t, ok := d.tables[name]
	if !ok {
		return nil, errs.New(errs.MissingSample, "wavetable %q", name)
	}
	return t, nil
}

// Names iterates sample names in sorted order.
func (d *Dictionary) Names() iter.Seq[string] {
	d.mu.RLock()
	names := slices.Sorted(maps.Keys(d.samples))
	d.mu.RUnlock()
	return slices.Values(names)
}

// ImpulseResponse fetches a sample for convolution, requiring it to match
// the rendering rate.
func ImpulseResponse(p Provider, name string, sampleRate float64) (*Sample, error) {
	s, err := p.Sample(name)
	if err != nil {
		return nil, err
	}
	if s.SampleRate != sampleRate {
		return nil, errs.New(errs.SampleRateMismatch, "sample %q at %g Hz, rendering at %g Hz", name, s.SampleRate, sampleRate)
	}
	return s, nil
}
