package main

import (
	"github.com/cbegin/synthcore-go"
	"github.com/cbegin/synthcore-go/internal/control"
	"github.com/cbegin/synthcore-go/internal/effects"
	"github.com/cbegin/synthcore-go/internal/filters"
	"github.com/cbegin/synthcore-go/internal/lfo"
	"github.com/cbegin/synthcore-go/internal/note"
	"github.com/cbegin/synthcore-go/internal/wavetable"
)

// demoSong is a two bar arpeggio over a bass line.
func demoSong() *synthcore.Song {
	morph, _ := wavetable.NewStack(wavetable.Saw(2048, 48), wavetable.Sine(2048))
	sine, _ := wavetable.NewStack(wavetable.Sine(2048))

	lead := synthcore.Track{
		Name: "lead",
		Instrument: synthcore.Instrument{
			Stack: morph,
			Envelope: control.Segments{
				Points:  []control.Point{{Level: 1, Seconds: 0.005}, {Level: 0.6, Seconds: 0.12}, {Level: 0, Seconds: 0.25}},
				Sustain: [3]int{2, 0, 0},
			},
			TableIndexEnd: 1,
			Crossfade:     true,
			Effects: func(_ note.Frozen, sampleRate float64) []effects.Spec {
				sweep := lfo.New(800, 0.5, lfo.WaveSine, sampleRate)
				sweep.Offset = 1800
				return []effects.Spec{effects.FilterSpec{Bands: []effects.FilterBand{{
					Kind:      filters.ButterworthLowpass,
					Cutoff:    sweep,
					Bandwidth: control.Constant(100),
					Gain:      control.Constant(1),
				}}}}
			},
			Params: note.DefaultParams(),
		},
		Effects: []effects.Spec{
			effects.DelaySpec{Seconds: 0.375, Feedback: 0.35, Cross: 0.2, Wet: 0.25},
			effects.AnalyzerSpec{Name: "lead"},
		},
		Gain: 0.6,
	}
	for i, p := range []float64{57, 60, 64, 69, 72, 69, 64, 60, 55, 59, 62, 67, 71, 67, 62, 59} {
		lead.Notes = append(lead.Notes, note.Note{
			Pitch:    p,
			Beat:     float64(i) * 0.5,
			Beats:    0.5,
			Gate:     0.8,
			Velocity: 0.7,
			Accent:   i%4 == 0,
			Pan:      float64(i%3-1) * 0.4,
		})
	}

	bass := synthcore.Track{
		Name: "bass",
		Instrument: synthcore.Instrument{
			Stack: sine,
			Envelope: control.Segments{
				Points:  []control.Point{{Level: 1, Seconds: 0.01}, {Level: 0.8, Seconds: 0.2}, {Level: 0, Seconds: 0.1}},
				Sustain: [3]int{2, 0, 0},
			},
			Params: note.DefaultParams(),
		},
		Notes: []note.Note{
			{Pitch: 33, Beat: 0, Beats: 4, Velocity: 0.9},
			{Pitch: 31, Beat: 4, Beats: 4, Velocity: 0.9},
		},
		Effects: []effects.Spec{
			effects.CompressorSpec{ThresholdDB: -18, Ratio: 3, Attack: 0.01, Release: 0.2, MakeupDB: 3, Linked: true},
			effects.AnalyzerSpec{Name: "bass"},
		},
	}

	return &synthcore.Song{
		Tempo:  []synthcore.TempoChange{{BPM: 112}},
		Tracks: []synthcore.Track{lead, bass},
	}
}
