package synthcore

import (
	"context"
	"errors"
	"sync"
	"time"

	intaudio "github.com/cbegin/synthcore-go/internal/audio"
)

type PreviewOption func(*previewConfig)

type previewConfig struct {
	loop      bool
	volume    float64
	sampleTap func([]float32)
}

func defaultPreviewConfig() previewConfig {
	return previewConfig{volume: 1}
}

func WithPreviewLoop(enabled bool) PreviewOption {
	return func(cfg *previewConfig) {
		cfg.loop = enabled
	}
}

func WithPreviewVolume(volume float64) PreviewOption {
	return func(cfg *previewConfig) {
		cfg.volume = max(volume, 0)
	}
}

// WithSampleTap installs a callback invoked with each interleaved stereo
// buffer handed to the audio device. The callback runs on the audio thread;
// keep work brief and non-blocking.
func WithSampleTap(tap func([]float32)) PreviewOption {
	return func(cfg *previewConfig) {
		cfg.sampleTap = tap
	}
}

// Preview plays a rendered Result on the default audio device.
type Preview struct {
	mu     sync.Mutex
	result *Result
	source *previewSource
	audio  *intaudio.Player
	volume float64
	done   chan struct{}
}

// previewSource wraps the buffer source to tap samples and report the end
// of playback once.
type previewSource struct {
	*intaudio.BufferSource
	tap    func([]float32)
	onDone func()
	once   sync.Once
}

func (s *previewSource) Process(dst []float32) {
	s.BufferSource.Process(dst)
	if s.tap != nil {
		s.tap(dst)
	}
	if s.BufferSource.Finished() {
		s.once.Do(s.onDone)
	}
}

func NewPreview(res *Result, opts ...PreviewOption) (*Preview, error) {
	if res == nil || res.SampleRate <= 0 {
		return nil, errors.New("synthcore: nothing to preview")
	}
	if len(res.L) != len(res.R) {
		return nil, errors.New("synthcore: result channels differ in length")
	}
	cfg := defaultPreviewConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	p := &Preview{result: res, volume: cfg.volume, done: make(chan struct{})}
	done := p.done
	p.source = &previewSource{
		BufferSource: intaudio.NewBufferSource(res.L, res.R, cfg.loop),
		tap:          cfg.sampleTap,
		onDone:       func() { close(done) },
	}
	p.source.SetGain(float32(cfg.volume))
	return p, nil
}

// Play starts or resumes playback, opening the audio device on first use.
func (p *Preview) Play() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.audio == nil {
		pl, err := intaudio.NewPlayer(p.result.SampleRate, p.source)
		if err != nil {
			return err
		}
		p.audio = pl
	}
	p.audio.Play()
	return nil
}

func (p *Preview) Pause() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.audio != nil {
		p.audio.Pause()
	}
}

// Stop closes the audio device and releases any Wait.
func (p *Preview) Stop() error {
	p.mu.Lock()
	a := p.audio
	p.audio = nil
	p.mu.Unlock()
	p.source.once.Do(p.source.onDone)
	if a == nil {
		return nil
	}
	return a.Stop()
}

// Wait blocks until playback reaches the end, Stop is called or ctx is done.
// A looping preview only ends by Stop.
func (p *Preview) Wait(ctx context.Context) error {
	select {
	case <-p.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Done is closed when playback has ended.
func (p *Preview) Done() <-chan struct{} { return p.done }

// SetVolume sets the playback gain; 1 is unity and negative values clamp to 0.
func (p *Preview) SetVolume(volume float64) {
	volume = max(volume, 0)
	p.mu.Lock()
	defer p.mu.Unlock()
	p.volume = volume
	p.source.SetGain(float32(volume))
}

func (p *Preview) Volume() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.volume
}

// Seek moves playback to the given offset into the result.
func (p *Preview) Seek(d time.Duration) {
	p.source.Seek(int(d.Seconds() * float64(p.result.SampleRate)))
}

// Position is how far the device has played, or the source position before
// the device is opened.
func (p *Preview) Position() time.Duration {
	p.mu.Lock()
	a := p.audio
	p.mu.Unlock()
	if a != nil {
		return a.Position()
	}
	frames := p.source.Position()
	return time.Duration(float64(frames) / float64(p.result.SampleRate) * float64(time.Second))
}
