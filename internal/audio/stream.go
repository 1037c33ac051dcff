// Package audio plays rendered buffers through ebiten's audio context.
package audio

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"sync"
	"time"

	ebitaudio "github.com/hajimehoshi/ebiten/v2/audio"
)

// Source fills interleaved stereo frames.
type Source interface {
	Process(dst []float32)
}

// FinishingSource is a Source that can signal when playback has ended.
// When Finished returns true, the stream will return io.EOF on the next Read.
type FinishingSource interface {
	Source
	Finished() bool
}

// BufferSource plays split stereo buffers, optionally looping.
type BufferSource struct {
	mu   sync.Mutex
	l, r []float32
	pos  int
	loop bool
	gain float32
	done bool
}

func NewBufferSource(l, r []float32, loop bool) *BufferSource {
	return &BufferSource{l: l, r: r, loop: loop, gain: 1}
}

func (s *BufferSource) Process(dst []float32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := 0; i+1 < len(dst); i += 2 {
		if s.pos >= len(s.l) {
			if !s.loop || len(s.l) == 0 {
				s.done = true
				clear(dst[i:])
				return
			}
			s.pos = 0
		}
		dst[i] = s.l[s.pos] * s.gain
		dst[i+1] = s.r[s.pos] * s.gain
		s.pos++
	}
}

func (s *BufferSource) Finished() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.done
}

// Position is the next frame to be played.
func (s *BufferSource) Position() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pos
}

// Seek moves playback to frame, clamped to the buffer.
func (s *BufferSource) Seek(frame int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pos = max(0, min(frame, len(s.l)))
	s.done = false
}

func (s *BufferSource) SetGain(g float32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gain = g
}

// StreamReader converts a Source into the little-endian float32 byte stream
// ebiten reads.
type StreamReader struct {
	mu     sync.Mutex
	source Source
	buf    []float32
}

func NewStreamReader(source Source) *StreamReader {
	return &StreamReader{source: source}
}

func (r *StreamReader) Read(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	frames := len(p) / 8
	if frames == 0 {
		return 0, nil
	}
	need := frames * 2
	if cap(r.buf) < need {
		r.buf = make([]float32, need)
	}
	r.buf = r.buf[:need]
	r.source.Process(r.buf)
	for i, v := range r.buf {
		binary.LittleEndian.PutUint32(p[i*4:], math.Float32bits(v))
	}
	n := frames * 8
	if fs, ok := r.source.(FinishingSource); ok && fs.Finished() {
		return n, io.EOF
	}
	return n, nil
}

func (r *StreamReader) Close() error { return nil }

type Player struct {
	player *ebitaudio.Player
	reader io.ReadCloser
}

var (
	audioContextOnce sync.Once
	audioContext     *ebitaudio.Context
	audioSampleRate  int
)

// ebiten allows one audio context per process, so every player shares the
// rate of the first.
func sharedAudioContext(sampleRate int) (*ebitaudio.Context, error) {
	audioContextOnce.Do(func() {
		audioSampleRate = sampleRate
		audioContext = ebitaudio.NewContext(sampleRate)
	})
	if audioSampleRate != sampleRate {
		return nil, fmt.Errorf("audio context already initialized at %d Hz (requested %d Hz)", audioSampleRate, sampleRate)
	}
	return audioContext, nil
}

func NewPlayer(sampleRate int, source Source) (*Player, error) {
	ctx, err := sharedAudioContext(sampleRate)
	if err != nil {
		return nil, err
	}
	reader := NewStreamReader(source)
	pl, err := ctx.NewPlayerF32(reader)
	if err != nil {
		return nil, err
	}
	return &Player{player: pl, reader: reader}, nil
}

func (p *Player) Play()  { p.player.Play() }
func (p *Player) Pause() { p.player.Pause() }

func (p *Player) IsPlaying() bool { return p.player.IsPlaying() }

// Position returns what the listener has actually heard.
func (p *Player) Position() time.Duration { return p.player.Position() }

func (p *Player) Stop() error {
	p.player.Pause()
	p.player.Close()
	return p.reader.Close()
}
