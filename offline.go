package synthcore

import (
	"bufio"
	"context"
	"encoding/binary"
	"io"
	"math"

	"github.com/cbegin/synthcore-go/internal/samples"
)

// Result is rendered stereo audio.
type Result struct {
	SampleRate int
	L, R       []float32
}

func (r *Result) Frames() int { return len(r.L) }

func (r *Result) Seconds() float64 { return float64(len(r.L)) / float64(r.SampleRate) }

// Interleaved returns L0 R0 L1 R1 ...
func (r *Result) Interleaved() []float32 {
	out := make([]float32, 2*len(r.L))
	for i := range r.L {
		out[2*i] = r.L[i]
		out[2*i+1] = r.R[i]
	}
	return out
}

// Peak is the largest absolute sample on either channel.
func (r *Result) Peak() float32 {
	var p float32
	for i := range r.L {
		p = max(p, abs32(r.L[i]), abs32(r.R[i]))
	}
	return p
}

// Normalize scales the result so its peak is target. Silence is left alone.
func (r *Result) Normalize(target float32) {
	p := r.Peak()
	if p == 0 {
		return
	}
	g := target / p
	for i := range r.L {
		r.L[i] *= g
		r.R[i] *= g
	}
}

func abs32(v float32) float32 { return float32(math.Abs(float64(v))) }

type wavHeader struct {
	RIFF          [4]byte
	ChunkSize     uint32
	WAVE          [4]byte
	Fmt           [4]byte
	FmtSize       uint32
	AudioFormat   uint16
	Channels      uint16
	SampleRate    uint32
	ByteRate      uint32
	BlockAlign    uint16
	BitsPerSample uint16
	Data          [4]byte
	DataSize      uint32
}

// WriteWAV writes the result as a 32-bit float stereo WAV stream.
func (r *Result) WriteWAV(w io.Writer) error {
	const channels, bytesPerSample = 2, 4
	dataSize := uint32(len(r.L) * channels * bytesPerSample)
	hdr := wavHeader{
		RIFF:          [4]byte{'R', 'I', 'F', 'F'},
		ChunkSize:     36 + dataSize,
		WAVE:          [4]byte{'W', 'A', 'V', 'E'},
		Fmt:           [4]byte{'f', 'm', 't', ' '},
		FmtSize:       16,
		AudioFormat:   3, // IEEE float
		Channels:      channels,
		SampleRate:    uint32(r.SampleRate),
		ByteRate:      uint32(r.SampleRate * channels * bytesPerSample),
		BlockAlign:    channels * bytesPerSample,
		BitsPerSample: 8 * bytesPerSample,
		Data:          [4]byte{'d', 'a', 't', 'a'},
		DataSize:      dataSize,
	}
	bw := bufio.NewWriter(w)
	if err := binary.Write(bw, binary.LittleEndian, &hdr); err != nil {
		return err
	}
	var frame [channels * bytesPerSample]byte
	for i := range r.L {
		binary.LittleEndian.PutUint32(frame[0:], math.Float32bits(r.L[i]))
		binary.LittleEndian.PutUint32(frame[4:], math.Float32bits(r.R[i]))
		if _, err := bw.Write(frame[:]); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// WriteWAV16 writes the result as 16-bit PCM, clipping to [-1, 1].
func (r *Result) WriteWAV16(w io.WriteSeeker) error {
	return samples.EncodeWAV16(w, r.SampleRate, r.L, r.R)
}

// Render renders song once with a fresh Renderer.
func Render(ctx context.Context, song *Song, opts ...RenderOption) (*Result, error) {
	r, err := NewRenderer(opts...)
	if err != nil {
		return nil, err
	}
	return r.Render(ctx, song)
}
