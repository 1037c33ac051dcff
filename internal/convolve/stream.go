// Package convolve implements block FFT convolution of a signal with a fixed
// impulse response, and band-limited integer upsampling.
package convolve

import (
	"fmt"

	"github.com/cbegin/synthcore-go/internal/errs"
	"github.com/cbegin/synthcore-go/internal/fft"
	"github.com/cbegin/synthcore-go/internal/logger"
)

type Backend int

const (
	// OverlapSave uses one transform covering the whole impulse, so the
	// block length and latency are at least the impulse length.
	OverlapSave Backend = iota
	// LowLatency splits the impulse into uniform partitions of the
	// requested latency and sums them through a frequency-domain delay line.
	LowLatency
)

func (b Backend) String() string {
	switch b {
	case OverlapSave:
		return "overlap-save"
	case LowLatency:
		return "low-latency"
	default:
		return fmt.Sprintf("backend(%d)", int(b))
	}
}

// Available reports whether backend b can be built with manager m. The
// partitioned backend runs many small transforms per block and is only
// offered on the allocation-free textbook FFT.
func Available(b Backend, m *fft.Manager) bool {
	switch b {
	case OverlapSave:
		return true
	case LowLatency:
		return m.Backend() == fft.Textbook
	default:
		return false
	}
}

type Config struct {
	Backend Backend
	// Latency is the requested latency in samples; the actual latency is
	// rounded up to a power of two.
	Latency       int
	ProcessedGain float32
	DirectGain    float32
	Concurrency   int
}

// Stream convolves one channel sample by sample. Output lags input by
// Latency samples.
type Stream struct {
	block int
	tr    fft.Transform
	scale float32

	parts [][]float32 // packed impulse spectrum per partition
	fdl   [][]float32 // packed input spectra, newest at head
	head  int
	acc   []float32

	ring []float32 // previous block, then the block being filled
	out  []float32
	pos  int

	processedGain float32
	directGain    float32
}

// NewStream pre-transforms ir and prepares the state machine.
func NewStream(m *fft.Manager, ir []float32, cfg Config) (*Stream, error) {
	if len(ir) == 0 {
		return nil, errs.New(errs.InvalidParameter, "empty impulse response")
	}
	if cfg.Latency < 0 {
		return nil, errs.New(errs.InvalidParameter, "latency %d", cfg.Latency)
	}
	if !Available(cfg.Backend, m) {
		return nil, errs.New(errs.BackendUnavailable, "convolution backend %v", cfg.Backend)
	}

	var block int
	switch cfg.Backend {
	case LowLatency:
		block = fft.NextPowerOfTwo(max(cfg.Latency, fft.MinSize/2))
	default:
		block = fft.NextPowerOfTwo(max(cfg.Latency, len(ir), fft.MinSize/2))
	}
	n := 2 * block
	tr, err := m.Create(n, cfg.Concurrency, nil)
	if err != nil {
		return nil, fmt.Errorf("convolve: create transform: %w", err)
	}

	k := (len(ir) + block - 1) / block
	s := &Stream{
		block:         block,
		tr:            tr,
		scale:         tr.ScaleFactor(),
		parts:         make([][]float32, k),
		fdl:           make([][]float32, k),
		acc:           make([]float32, n+2),
		ring:          make([]float32, n),
		out:           make([]float32, block),
		processedGain: cfg.ProcessedGain,
		directGain:    cfg.DirectGain,
	}
	ws := tr.Workspace()
	for p := range s.parts {
		clear(ws)
		copy(ws, ir[p*block:min((p+1)*block, len(ir))])
		tr.Forward()
		s.parts[p] = append([]float32(nil), ws...)
		s.fdl[p] = make([]float32, n+2)
	}
	logger.L.Debug("convolve: stream ready", "backend", cfg.Backend, "block", block, "partitions", k, "ir", len(ir))
	return s, nil
}

// Latency is the fixed delay between input and convolved output.
func (s *Stream) Latency() int { return s.block }

func (s *Stream) BlockLength() int { return s.block }

func (s *Stream) Partitions() int { return len(s.parts) }

// Process consumes one input sample and returns one output sample.
func (s *Stream) Process(x float32) float32 {
	y := s.out[s.pos]*s.processedGain + s.ring[s.pos]*s.directGain
	s.ring[s.block+s.pos] = x
	s.pos++
	if s.pos == s.block {
		s.cycle()
	}
	return y
}

// ProcessBlock overwrites out with the response to in.
func (s *Stream) ProcessBlock(in, out []float32) {
	for i, x := range in {
		out[i] = s.Process(x)
	}
}

func (s *Stream) cycle() {
	ws := s.tr.Workspace()
	copy(ws, s.ring)
	s.tr.Forward()
	copy(s.fdl[s.head], ws)

	clear(s.acc)
	k := len(s.parts)
	for j := 0; j < k; j++ {
		multiplyAccumulate(s.acc, s.fdl[(s.head-j+k)%k], s.parts[j])
	}
	copy(ws, s.acc)
	s.tr.Inverse()
	for i := range s.out {
		s.out[i] = ws[s.block+i] * s.scale
	}
	s.head = (s.head + 1) % k

	copy(s.ring[:s.block], s.ring[s.block:])
	s.pos = 0
}

// multiplyAccumulate adds x*h to acc, all in packed layout.
func multiplyAccumulate(acc, x, h []float32) {
	acc[0] += x[0] * h[0]
	acc[1] += x[1] * h[1]
	for i := 2; i+1 < len(acc); i += 2 {
		xr, xi := x[i], x[i+1]
		hr, hi := h[i], h[i+1]
		acc[i] += xr*hr - xi*hi
		acc[i+1] += xr*hi + xi*hr
	}
}

// Reset clears history without touching the impulse.
func (s *Stream) Reset() {
	clear(s.ring)
	clear(s.out)
	for _, f := range s.fdl {
		clear(f)
	}
	s.head = 0
	s.pos = 0
}

func (s *Stream) Release() {
	s.tr.Release()
}
