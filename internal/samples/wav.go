package samples

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/cbegin/synthcore-go/internal/logger"
)

var ErrInvalidWAV = errors.New("samples: invalid WAV stream")

// DecodeWAV reads an integer PCM WAV stream into a Sample. The first loop
// of a sampler chunk, if present, becomes the sample loop.
func DecodeWAV(name string, r io.ReadSeeker) (*Sample, error) {
	d := wav.NewDecoder(r)
	if !d.IsValidFile() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidWAV, name)
	}
	d.ReadMetadata()
	if err := d.Err(); err != nil {
		return nil, fmt.Errorf("samples: read %s metadata: %w", name, err)
	}
	var loopStart, loopEnd int
	if md := d.Metadata; md != nil && md.SamplerInfo != nil && len(md.SamplerInfo.Loops) > 0 {
		l := md.SamplerInfo.Loops[0]
		// End is the last frame played.
		loopStart, loopEnd = int(l.Start), int(l.End)+1
	}
	if err := d.Rewind(); err != nil {
		return nil, fmt.Errorf("samples: %s: %w", name, err)
	}

	buf, err := d.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("samples: decode %s: %w", name, err)
	}
	bitDepth := int(d.SampleBitDepth())
	channels := buf.Format.NumChannels
	if bitDepth == 0 || channels == 0 {
		return nil, fmt.Errorf("%w: %s: %d bits, %d channels", ErrInvalidWAV, name, bitDepth, channels)
	}
	frames := len(buf.Data) / channels
	factor := math.Pow(2, float64(bitDepth-1))
	s := &Sample{
		Name:       name,
		SampleRate: float64(buf.Format.SampleRate),
		Data:       make([][]float32, channels),
	}
	for c := range s.Data {
		ch := make([]float32, frames)
		for i := range ch {
			ch[i] = float32(float64(buf.Data[i*channels+c]) / factor)
		}
		s.Data[c] = ch
	}
	if loopEnd > loopStart && loopEnd <= frames {
		s.LoopStart, s.LoopEnd = loopStart, loopEnd
	}
	logger.L.Debug("samples: decoded wav", "name", name, "rate", s.SampleRate, "channels", channels, "bits", bitDepth, "frames", frames)
	return s, nil
}

// LoadWAVFile decodes a file, naming the sample after its base name.
func LoadWAVFile(path string) (*Sample, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return DecodeWAV(name, f)
}

// LoadFile decodes a WAV file into the dictionary under name.
func (d *Dictionary) LoadFile(name, path string) error {
	s, err := LoadWAVFile(path)
	if err != nil {
		return err
	}
	s.Name = name
	return d.AddSample(s)
}

// EncodeWAV16 writes channels as interleaved 16-bit PCM, clipping to
// [-1, 1].
func EncodeWAV16(w io.WriteSeeker, sampleRate int, channels ...[]float32) error {
	if len(channels) == 0 {
		return fmt.Errorf("samples: no channels to encode")
	}
	frames := len(channels[0])
	enc := wav.NewEncoder(w, sampleRate, 16, len(channels), 1)
	buf := &audio.IntBuffer{
		Format: &audio.Format{
			NumChannels: len(channels),
			SampleRate:  sampleRate,
		},
		Data:           make([]int, frames*len(channels)),
		SourceBitDepth: 16,
	}
	for c, ch := range channels {
		if len(ch) != frames {
			return fmt.Errorf("samples: channel %d has %d frames, want %d", c, len(ch), frames)
		}
		for i, v := range ch {
			buf.Data[i*len(channels)+c] = int(math.Round(float64(max(-1, min(1, v))) * 32767))
		}
	}
	if err := enc.Write(buf); err != nil {
		return err
	}
	return enc.Close()
}
