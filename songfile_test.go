package synthcore

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cbegin/synthcore-go/internal/effects"
	"github.com/cbegin/synthcore-go/internal/samples"
)

const songJSON = `{
  "tempo": [{"beat": 0, "bpm": 140}, {"beat": 4, "bpm": 100, "ramp": true}],
  "samples": {"room": "room.wav"},
  "wavetables": {"morph": {"shapes": ["sine", "saw"], "frames": 1024, "harmonics": 16}},
  "tracks": [
    {
      "name": "lead",
      "instrument": {
        "wavetable": "morph",
        "attack": 0.01, "decay": 0.1, "sustain": 0.7, "release": 0.2,
        "tableIndex": [0, 1], "crossfade": true,
        "effects": [{"type": "filter", "bands": [{"kind": "lowpass1", "cutoff": 2000, "cutoffLfo": {"offset": 2000, "depth": 500, "rate": 3, "wave": "sine"}}]}]
      },
      "notes": [
        {"pitch": 60, "beat": 0, "beats": 1, "velocity": 0.8},
        {"pitch": 67, "beat": 1, "beats": 1, "velocity": 0.8, "accent": true, "pan": 0.5}
      ],
      "effects": [
        {"type": "eq3", "low": 1.2, "high": 0.8},
        {"type": "delay", "seconds": 0.1, "feedback": 0.2},
        {"type": "convolver", "ir": ["room"], "wet": 0.3, "dry": 1},
        {"type": "histogram", "name": "lead", "bins": 8, "max": 1}
      ],
      "gain": 0.7
    },
    {
      "name": "fx",
      "instrument": {"effects": [{"type": "distortion", "drive": 3, "cutoff": 4000}]},
      "notes": [{"pitch": 48, "beat": 2, "beats": 2, "velocity": 0.5}],
      "effects": [
        {"type": "user", "processor": "sine", "params": {"gain": 0.05}, "lfo": {"frequency": {"offset": 330, "depth": 10, "rate": 1}}},
        {"type": "resampler", "rate": 12000, "hold": "triangular"},
        {"type": "compressor", "threshold": -12, "linked": true},
        {"type": "analyzer", "name": "fx"}
      ]
    }
  ]
}`

func writeRoom(t *testing.T, dir string) {
	t.Helper()
	f, err := os.Create(filepath.Join(dir, "room.wav"))
	require.NoError(t, err)
	defer f.Close()
	ir := []float32{1, 0.5, 0.25, 0.125, 0, 0, 0.1}
	require.NoError(t, samples.EncodeWAV16(f, testRate, ir))
}

func TestLoadSongAndRender(t *testing.T) {
	dir := t.TempDir()
	writeRoom(t, dir)
	path := filepath.Join(dir, "song.json")
	require.NoError(t, os.WriteFile(path, []byte(songJSON), 0o644))

	song, dict, err := LoadSong(path, testRate)
	require.NoError(t, err)
	require.Len(t, song.Tracks, 2)
	assert.Len(t, song.Tempo, 2)
	assert.True(t, song.Tempo[1].Ramp)

	lead := song.Tracks[0]
	assert.Equal(t, "morph", lead.Instrument.WaveTable)
	assert.Len(t, lead.Instrument.Envelope.Points, 3)
	assert.True(t, lead.Notes[1].Accent)
	require.Len(t, lead.Effects, 4)
	assert.IsType(t, effects.FilterSpec{}, lead.Effects[0])
	conv, ok := lead.Effects[2].(effects.ConvolverSpec)
	require.True(t, ok)
	assert.Equal(t, effects.Mono, conv.Topology)
	assert.Equal(t, float64(testRate), conv.IRSampleRate)

	fx := song.Tracks[1]
	assert.Equal(t, "sine", fx.Instrument.WaveTable)
	require.NotNil(t, fx.Instrument.Effects)

	var log bytes.Buffer
	res, err := Render(context.Background(), song, WithSampleRate(testRate), WithProvider(dict), WithInteractionLog(&log))
	require.NoError(t, err)
	assert.NotZero(t, res.Frames())
	assert.NotZero(t, res.Peak())
	assert.Contains(t, log.String(), `analyzer "fx"`)
	assert.Contains(t, log.String(), "lead")
}

func TestDecodeSongErrors(t *testing.T) {
	cases := map[string]string{
		"unknown field":  `{"tracks": [], "bogus": 1}`,
		"unknown effect": `{"tracks": [{"effects": [{"type": "flanger"}]}]}`,
		"bad filter":     `{"tracks": [{"effects": [{"type": "filter", "bands": [{"kind": "moog"}]}]}]}`,
		"missing ir":     `{"tracks": [{"effects": [{"type": "convolver", "ir": ["hall"]}]}]}`,
		"bad shape":      `{"wavetables": {"x": {"shapes": ["square"]}}}`,
		"bad wavb":       `{"wavetables": {"x": {"wavb": ["zz"]}}}`,
		"bad hold":       `{"tracks": [{"effects": [{"type": "resampler", "rate": 100, "hold": "cubic"}]}]}`,
		"bad policy":     `{"tracks": [{"effects": [{"type": "histogram", "bins": 4, "max": 1, "channel": "mid"}]}]}`,
		"instrument":     `{"tracks": [{"instrument": {"effects": [{"type": "nope"}]}}]}`,
		"missing sample": `{"samples": {"a": "missing.wav"}}`,
	}
	for name, src := range cases {
		_, err := DecodeSong(strings.NewReader(src), t.TempDir(), samples.NewDictionary(), testRate)
		assert.Error(t, err, name)
	}
}

func TestDecodeSongDefaults(t *testing.T) {
	dict := samples.NewDictionary()
	song, err := DecodeSong(strings.NewReader(`{"tracks": [{"notes": [{"pitch": 60, "beats": 1}]}]}`), "", dict, testRate)
	require.NoError(t, err)
	inst := song.Tracks[0].Instrument
	assert.Equal(t, "sine", inst.WaveTable)
	assert.Empty(t, inst.Envelope.Points)
	assert.Nil(t, inst.Effects)
	assert.Equal(t, 440.0, inst.Params.Tuning)
	_, err = dict.WaveTable("saw")
	assert.NoError(t, err)
}
