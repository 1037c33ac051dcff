package synthcore

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/cbegin/synthcore-go/internal/control"
	"github.com/cbegin/synthcore-go/internal/convolve"
	"github.com/cbegin/synthcore-go/internal/effects"
	"github.com/cbegin/synthcore-go/internal/filters"
	"github.com/cbegin/synthcore-go/internal/lfo"
	"github.com/cbegin/synthcore-go/internal/note"
	"github.com/cbegin/synthcore-go/internal/samples"
	"github.com/cbegin/synthcore-go/internal/wavetable"
)

// SongFile is the JSON form of a song.
type SongFile struct {
	Tempo      []TempoChange            `json:"tempo"`
	Samples    map[string]string        `json:"samples"` // name -> WAV path
	WaveTables map[string]WaveTableFile `json:"wavetables"`
	Tracks     []TrackFile              `json:"tracks"`
}

// WaveTableFile builds a stack from built-in shapes or WAVB hex tables.
type WaveTableFile struct {
	Shapes    []string `json:"shapes"` // "sine" or "saw"
	Harmonics int      `json:"harmonics"`
	Frames    int      `json:"frames"`
	WAVB      []string `json:"wavb"`
}

type TrackFile struct {
	Name       string         `json:"name"`
	Instrument InstrumentFile `json:"instrument"`
	Notes      []note.Note    `json:"notes"`
	Effects    []EffectFile   `json:"effects"`
	Gain       float64        `json:"gain"`
	Mute       bool           `json:"mute"`
}

type InstrumentFile struct {
	WaveTable    string             `json:"wavetable"`
	Multisamples []note.Multisample `json:"multisamples"`

	// ADSR in seconds; all zero means no envelope.
	Attack     float64      `json:"attack"`
	Decay      float64      `json:"decay"`
	Sustain    float64      `json:"sustain"`
	Release    float64      `json:"release"`
	TableIndex [2]float64   `json:"tableIndex"`
	Crossfade  bool         `json:"crossfade"`
	Effects    []EffectFile `json:"effects"`
	Params     *note.Params `json:"params"`
}

// EffectFile is one effect; Type selects which fields apply.
type EffectFile struct {
	Type string `json:"type"`
	Name string `json:"name"`

	// delay
	Seconds  float64 `json:"seconds"`
	Feedback float64 `json:"feedback"`
	Cross    float64 `json:"cross"`
	Wet      float64 `json:"wet"`
	Dry      float64 `json:"dry"`

	// compressor
	Threshold float64 `json:"threshold"`
	Ratio     float64 `json:"ratio"`
	Attack    float64 `json:"attack"`
	Release   float64 `json:"release"`
	Makeup    float64 `json:"makeup"`
	Linked    bool    `json:"linked"`

	// filter and eq3
	Bands    []BandFile `json:"bands"`
	Serial   bool       `json:"serial"`
	Low      float64    `json:"low"`
	Mid      float64    `json:"mid"`
	High     float64    `json:"high"`
	LowFreq  float64    `json:"lowFreq"`
	HighFreq float64    `json:"highFreq"`

	// distortion
	Drive  float64 `json:"drive"`
	Post   float64 `json:"post"`
	Cutoff float64 `json:"cutoff"`

	// convolver: sample names whose channels become the impulse paths
	IR      []string `json:"ir"`
	Backend string   `json:"backend"`
	Latency int      `json:"latency"`

	// resampler
	Rate    float64 `json:"rate"`
	Capture string  `json:"capture"`
	Hold    string  `json:"hold"`

	// histogram
	Bins    int     `json:"bins"`
	Min     float64 `json:"min"`
	Max     float64 `json:"max"`
	Log     bool    `json:"log"`
	Channel string  `json:"channel"`

	// user processor
	Processor string             `json:"processor"`
	Params    map[string]float64 `json:"params"`
	LFO       map[string]LFOFile `json:"lfo"`
}

type BandFile struct {
	Kind      string   `json:"kind"`
	Cutoff    float64  `json:"cutoff"`
	Bandwidth float64  `json:"bandwidth"`
	Gain      float64  `json:"gain"`
	CutoffLFO *LFOFile `json:"cutoffLfo"`
}

// LFOFile modulates a parameter around Offset.
type LFOFile struct {
	Offset float64 `json:"offset"`
	Depth  float64 `json:"depth"`
	Rate   float64 `json:"rate"`
	Wave   string  `json:"wave"`
}

func (f LFOFile) source(sampleRate float64) control.Source {
	l := lfo.New(f.Depth, f.Rate, lfo.ParseWaveform(f.Wave), sampleRate)
	l.Offset = f.Offset
	return l
}

// LoadSong reads a JSON song for rendering at sampleRate, loading its
// samples into a new dictionary. Sample paths are relative to the song file.
func LoadSong(path string, sampleRate float64) (*Song, *samples.Dictionary, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()
	dict := samples.NewDictionary()
	song, err := DecodeSong(f, filepath.Dir(path), dict, sampleRate)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", path, err)
	}
	return song, dict, nil
}

// DecodeSong decodes a JSON song into dict. The wavetables "sine" and "saw"
// are always available.
func DecodeSong(r io.Reader, baseDir string, dict *samples.Dictionary, sampleRate float64) (*Song, error) {
	var sf SongFile
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&sf); err != nil {
		return nil, fmt.Errorf("decode song: %w", err)
	}

	sine, _ := wavetable.NewStack(wavetable.Sine(2048))
	saw, _ := wavetable.NewStack(wavetable.Saw(2048, 64))
	dict.AddWaveTable("sine", sine)
	dict.AddWaveTable("saw", saw)
	for name, wf := range sf.WaveTables {
		stack, err := wf.build()
		if err != nil {
			return nil, fmt.Errorf("wavetable %q: %w", name, err)
		}
		dict.AddWaveTable(name, stack)
	}
	for name, p := range sf.Samples {
		if !filepath.IsAbs(p) {
			p = filepath.Join(baseDir, p)
		}
		if err := dict.LoadFile(name, p); err != nil {
			return nil, fmt.Errorf("sample %q: %w", name, err)
		}
	}

	song := &Song{Tempo: sf.Tempo}
	for i, tf := range sf.Tracks {
		t, err := tf.track(dict, sampleRate)
		if err != nil {
			return nil, fmt.Errorf("track %d: %w", i, err)
		}
		song.Tracks = append(song.Tracks, t)
	}
	return song, nil
}

func (w WaveTableFile) build() (*wavetable.Stack, error) {
	frames := w.Frames
	if frames == 0 {
		frames = 2048
	}
	harmonics := w.Harmonics
	if harmonics == 0 {
		harmonics = 64
	}
	var tables [][]float32
	for _, s := range w.Shapes {
		switch strings.ToLower(s) {
		case "sine":
			tables = append(tables, wavetable.Sine(frames))
		case "saw":
			tables = append(tables, wavetable.Saw(frames, harmonics))
		default:
			return nil, fmt.Errorf("unknown shape %q", s)
		}
	}
	for _, h := range w.WAVB {
		t, err := wavetable.ParseWAVB(h)
		if err != nil {
			return nil, err
		}
		tables = append(tables, t)
	}
	return wavetable.NewStack(tables...)
}

func (tf TrackFile) track(dict *samples.Dictionary, sampleRate float64) (Track, error) {
	t := Track{
		Name:  tf.Name,
		Notes: tf.Notes,
		Gain:  tf.Gain,
		Mute:  tf.Mute,
	}
	inf := tf.Instrument
	t.Instrument = Instrument{
		WaveTable:       inf.WaveTable,
		Multisamples:    inf.Multisamples,
		TableIndexStart: inf.TableIndex[0],
		TableIndexEnd:   inf.TableIndex[1],
		Crossfade:       inf.Crossfade,
		Params:          note.DefaultParams(),
	}
	if inf.Params != nil {
		t.Instrument.Params = *inf.Params
	}
	if inf.Attack != 0 || inf.Decay != 0 || inf.Sustain != 0 || inf.Release != 0 {
		t.Instrument.Envelope = control.Segments{
			Points: []control.Point{
				{Level: 1, Seconds: inf.Attack},
				{Level: inf.Sustain, Seconds: inf.Decay},
				{Level: 0, Seconds: inf.Release},
			},
			Sustain: [3]int{2, 0, 0},
		}
	}
	if t.Instrument.WaveTable == "" && len(t.Instrument.Multisamples) == 0 {
		t.Instrument.WaveTable = "sine"
	}

	// Build once to report errors now; notes rebuild for fresh sources.
	if _, err := effectSpecs(inf.Effects, dict, sampleRate); err != nil {
		return Track{}, fmt.Errorf("instrument: %w", err)
	}
	if len(inf.Effects) > 0 {
		files := inf.Effects
		t.Instrument.Effects = func(_ note.Frozen, sampleRate float64) []effects.Spec {
			specs, _ := effectSpecs(files, dict, sampleRate)
			return specs
		}
	}
	if len(tf.Effects) > 0 {
		specs, err := effectSpecs(tf.Effects, dict, sampleRate)
		if err != nil {
			return Track{}, err
		}
		t.Effects = specs
	}
	return t, nil
}

func effectSpecs(files []EffectFile, dict *samples.Dictionary, sampleRate float64) ([]effects.Spec, error) {
	var out []effects.Spec
	for i, ef := range files {
		specs, err := ef.specs(dict, sampleRate)
		if err != nil {
			return nil, fmt.Errorf("effect %d (%s): %w", i, ef.Type, err)
		}
		out = append(out, specs...)
	}
	return out, nil
}

func orDefault(v, def float64) float64 {
	if v == 0 {
		return def
	}
	return v
}

func (ef EffectFile) specs(dict *samples.Dictionary, sampleRate float64) ([]effects.Spec, error) {
	switch strings.ToLower(ef.Type) {
	case "delay":
		return []effects.Spec{effects.DelaySpec{
			Seconds:  ef.Seconds,
			Feedback: float32(ef.Feedback),
			Cross:    float32(ef.Cross),
			Wet:      float32(orDefault(ef.Wet, 0.3)),
		}}, nil
	case "compressor":
		return []effects.Spec{effects.CompressorSpec{
			ThresholdDB: ef.Threshold,
			Ratio:       orDefault(ef.Ratio, 4),
			Attack:      orDefault(ef.Attack, 0.01),
			Release:     orDefault(ef.Release, 0.1),
			MakeupDB:    ef.Makeup,
			Linked:      ef.Linked,
		}}, nil
	case "eq3":
		return []effects.Spec{effects.EQ3Band(
			orDefault(ef.Low, 1), orDefault(ef.Mid, 1), orDefault(ef.High, 1),
			orDefault(ef.LowFreq, 250), orDefault(ef.HighFreq, 4000),
		)}, nil
	case "filter":
		fs := effects.FilterSpec{Serial: ef.Serial}
		for _, b := range ef.Bands {
			kind, err := filters.ParseKind(b.Kind)
			if err != nil {
				return nil, err
			}
			band := effects.FilterBand{
				Kind:      kind,
				Cutoff:    control.Constant(b.Cutoff),
				Bandwidth: control.Constant(orDefault(b.Bandwidth, 100)),
				Gain:      control.Constant(orDefault(b.Gain, 1)),
			}
			if b.CutoffLFO != nil {
				band.Cutoff = b.CutoffLFO.source(sampleRate)
			}
			fs.Bands = append(fs.Bands, band)
		}
		return []effects.Spec{fs}, nil
	case "distortion":
		return effects.Distortion(orDefault(ef.Drive, 4), orDefault(ef.Post, 1), ef.Cutoff)
	case "convolver":
		return ef.convolver(dict)
	case "resampler":
		capture, hold := effects.Truncate, effects.Rectangular
		switch strings.ToLower(ef.Capture) {
		case "", "truncate":
		case "interpolate":
			capture = effects.Interpolate
		default:
			return nil, fmt.Errorf("unknown capture %q", ef.Capture)
		}
		switch strings.ToLower(ef.Hold) {
		case "", "rectangular":
		case "triangular":
			hold = effects.Triangular
		default:
			return nil, fmt.Errorf("unknown hold %q", ef.Hold)
		}
		return []effects.Spec{effects.ResamplerSpec{Rate: ef.Rate, Capture: capture, Hold: hold}}, nil
	case "analyzer":
		return []effects.Spec{effects.AnalyzerSpec{Name: ef.Name}}, nil
	case "histogram":
		policy := effects.MaxAfter
		if ef.Channel != "" {
			var err error
			if policy, err = effects.ParseChannelPolicy(ef.Channel); err != nil {
				return nil, err
			}
		}
		return []effects.Spec{effects.HistogramSpec{
			Name:    ef.Name,
			Bins:    ef.Bins,
			Min:     ef.Min,
			Max:     ef.Max,
			Log:     ef.Log,
			Channel: policy,
		}}, nil
	case "user":
		spec := effects.UserEffectSpec{Processor: ef.Processor, Params: ef.Params}
		if len(ef.LFO) > 0 {
			spec.Modulation = make(map[string]control.Source, len(ef.LFO))
			for name, l := range ef.LFO {
				spec.Modulation[name] = l.source(sampleRate)
			}
		}
		return []effects.Spec{spec}, nil
	default:
		return nil, fmt.Errorf("unknown effect type %q", ef.Type)
	}
}

func (ef EffectFile) convolver(dict *samples.Dictionary) ([]effects.Spec, error) {
	spec := effects.ConvolverSpec{
		Name:    ef.Name,
		Latency: ef.Latency,
		Wet:     float32(ef.Wet),
		Dry:     float32(ef.Dry),
	}
	switch strings.ToLower(ef.Backend) {
	case "", "overlap-save":
	case "low-latency":
		spec.Backend = convolve.LowLatency
	default:
		return nil, fmt.Errorf("unknown convolution backend %q", ef.Backend)
	}
	for _, name := range ef.IR {
		s, err := dict.Sample(name)
		if err != nil {
			return nil, err
		}
		if spec.IRSampleRate != 0 && s.SampleRate != spec.IRSampleRate {
			return nil, fmt.Errorf("impulse %q at %g Hz, others at %g Hz", name, s.SampleRate, spec.IRSampleRate)
		}
		spec.IRSampleRate = s.SampleRate
		spec.IR = append(spec.IR, s.Data...)
	}
	switch len(spec.IR) {
	case 1:
		spec.Topology = effects.Mono
	case 2:
		spec.Topology = effects.Stereo
	case 4:
		spec.Topology = effects.BiStereo
	default:
		return nil, fmt.Errorf("%d impulse channels, want 1, 2 or 4", len(spec.IR))
	}
	return []effects.Spec{spec}, nil
}
