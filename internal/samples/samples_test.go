package samples

import (
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cbegin/synthcore-go/internal/errs"
	"github.com/cbegin/synthcore-go/internal/wavetable"
)

func TestDictionaryLookups(t *testing.T) {
	d := NewDictionary()
	require.NoError(t, d.AddSample(&Sample{Name: "kick", SampleRate: 48000, Data: [][]float32{{1, 0.5}}}))
	require.NoError(t, d.AddSample(&Sample{Name: "hat", SampleRate: 48000, Data: [][]float32{{1}, {1}}}))
	stack, err := wavetable.NewStack(wavetable.Sine(64))
	require.NoError(t, err)
	d.AddWaveTable("sine", stack)

	s, err := d.Sample("kick")
	require.NoError(t, err)
	assert.Equal(t, 1, s.Channels())
	assert.Equal(t, 2, s.Frames())
	assert.False(t, s.Looped())

	_, err = d.Sample("snare")
	code, ok := errs.CodeOf(err)
	require.True(t, ok)
	assert.Equal(t, errs.MissingSample, code)

	got, err := d.WaveTable("sine")
	require.NoError(t, err)
	assert.Same(t, stack, got)
	_, err = d.WaveTable("saw")
	assert.ErrorIs(t, err, errs.ErrConfig)

	assert.Equal(t, []string{"hat", "kick"}, slices.Collect(d.Names()))
}

func TestAddSampleValidates(t *testing.T) {
	d := NewDictionary()
	cases := map[string]*Sample{
		"unnamed":     {SampleRate: 1, Data: [][]float32{{0}}},
		"no channels": {Name: "a", SampleRate: 1},
		"no rate":     {Name: "a", Data: [][]float32{{0}}},
		"ragged":      {Name: "a", SampleRate: 1, Data: [][]float32{{0, 0}, {0}}},
		"bad loop":    {Name: "a", SampleRate: 1, Data: [][]float32{{0, 0}}, LoopStart: 1, LoopEnd: 3},
	}
	for name, s := range cases {
		assert.Error(t, d.AddSample(s), name)
	}
}

func TestImpulseResponseRate(t *testing.T) {
	d := NewDictionary()
	require.NoError(t, d.AddSample(&Sample{Name: "room", SampleRate: 44100, Data: [][]float32{{1}}}))
	_, err := ImpulseResponse(d, "room", 44100)
	require.NoError(t, err)
	_, err = ImpulseResponse(d, "room", 48000)
	code, _ := errs.CodeOf(err)
	assert.Equal(t, errs.SampleRateMismatch, code)
}

func TestWAVRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tone.wav")
	l := []float32{0, 0.5, -0.5, 1, -1, 2}
	r := []float32{0.25, -0.25, 0, 0, 0.75, -2}
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, EncodeWAV16(f, 22050, l, r))
	require.NoError(t, f.Close())

	s, err := LoadWAVFile(path)
	require.NoError(t, err)
	assert.Equal(t, "tone", s.Name)
	assert.Equal(t, 22050.0, s.SampleRate)
	require.Equal(t, 2, s.Channels())
	require.Equal(t, len(l), s.Frames())

	clip := func(v float32) float32 { return max(-1, min(1, v)) }
	for i := range l {
		assert.InDelta(t, clip(l[i]), s.Data[0][i], 1.0/16384, "left %d", i)
		assert.InDelta(t, clip(r[i]), s.Data[1][i], 1.0/16384, "right %d", i)
	}

	d := NewDictionary()
	require.NoError(t, d.LoadFile("ir", path))
	_, err = d.Sample("ir")
	assert.NoError(t, err)
}

func TestDecodeRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "junk.wav")
	require.NoError(t, os.WriteFile(path, []byte("not a riff file at all"), 0o644))
	_, err := LoadWAVFile(path)
	assert.ErrorIs(t, err, ErrInvalidWAV)
}

func TestEncodeRejectsRaggedChannels(t *testing.T) {
	f, err := os.Create(filepath.Join(t.TempDir(), "x.wav"))
	require.NoError(t, err)
	defer f.Close()
	assert.Error(t, EncodeWAV16(f, 48000, []float32{0, 0}, []float32{0}))
	assert.Error(t, EncodeWAV16(f, 48000))
}
