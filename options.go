package synthcore

import (
	"io"
	"runtime"

	"github.com/cbegin/synthcore-go/internal/effects"
	"github.com/cbegin/synthcore-go/internal/fft"
	"github.com/cbegin/synthcore-go/internal/freelist"
	"github.com/cbegin/synthcore-go/internal/logger"
	"github.com/cbegin/synthcore-go/internal/samples"
	"github.com/cbegin/synthcore-go/internal/tempo"
)

type RenderOption func(*renderConfig)

type renderConfig struct {
	sampleRate  int
	resolution  int
	blockFrames int
	workers     int
	// maxTail bounds how long a voice may ring after its last release.
	maxTail   float64
	seconds   float64
	freelists freelist.Config
	fft       *fft.Manager
	provider  samples.Provider
	registry  *effects.Registry
	log       *logger.InteractionLog
	writeLogs bool
}

func defaultRenderConfig() renderConfig {
	return renderConfig{
		sampleRate:  48000,
		resolution:  tempo.DefaultResolution,
		blockFrames: 512,
		workers:     runtime.GOMAXPROCS(0),
		maxTail:     10,
		freelists:   freelist.DefaultConfig(),
	}
}

func WithSampleRate(hz int) RenderOption {
	return func(cfg *renderConfig) {
		cfg.sampleRate = hz
	}
}

// WithResolution sets the tick resolution in ticks per whole note.
func WithResolution(ticks int) RenderOption {
	return func(cfg *renderConfig) {
		cfg.resolution = ticks
	}
}

// WithBlockFrames sets the largest block handed to an effect.
func WithBlockFrames(frames int) RenderOption {
	return func(cfg *renderConfig) {
		cfg.blockFrames = frames
	}
}

// WithWorkers bounds the number of voices rendered concurrently.
func WithWorkers(n int) RenderOption {
	return func(cfg *renderConfig) {
		cfg.workers = n
	}
}

func WithMaxTail(seconds float64) RenderOption {
	return func(cfg *renderConfig) {
		cfg.maxTail = seconds
	}
}

// WithDuration fixes the output length. By default the output ends with the
// last voice.
func WithDuration(seconds float64) RenderOption {
	return func(cfg *renderConfig) {
		cfg.seconds = seconds
	}
}

func WithFreeLists(c freelist.Config) RenderOption {
	return func(cfg *renderConfig) {
		cfg.freelists = c
	}
}

// WithFFT supplies an initialized manager for convolvers. By default the
// renderer initializes a private textbook manager.
func WithFFT(m *fft.Manager) RenderOption {
	return func(cfg *renderConfig) {
		cfg.fft = m
	}
}

func WithProvider(p samples.Provider) RenderOption {
	return func(cfg *renderConfig) {
		cfg.provider = p
	}
}

func WithRegistry(r *effects.Registry) RenderOption {
	return func(cfg *renderConfig) {
		cfg.registry = r
	}
}

// WithInteractionLog sends track analyzer and histogram reports to w.
func WithInteractionLog(w io.Writer) RenderOption {
	return func(cfg *renderConfig) {
		cfg.log = logger.NewInteractionLog(w)
		cfg.writeLogs = true
	}
}
