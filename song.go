// Package synthcore renders songs offline. Each note is frozen against the
// tempo map, rendered as an independent voice through its instrument's
// oscillator effects, mixed onto its track and passed through the track's
// effect chain.
package synthcore

import (
	"github.com/cbegin/synthcore-go/internal/control"
	"github.com/cbegin/synthcore-go/internal/effects"
	"github.com/cbegin/synthcore-go/internal/note"
	"github.com/cbegin/synthcore-go/internal/wavetable"
)

// TempoChange is one tempo map entry. With Ramp the tempo moves linearly in
// beats from the previous entry's BPM.
type TempoChange struct {
	Beat float64
	BPM  float64
	Ramp bool
}

// Instrument describes how a note becomes sound.
type Instrument struct {
	// Stack is rendered when set; otherwise WaveTable names a stack in the
	// renderer's sample provider.
	Stack     *wavetable.Stack
	WaveTable string
	// Multisamples replaces the wavetable with sample playback.
	Multisamples []note.Multisample

	// Envelope shapes loudness; the renderer fills SampleRate. With no
	// points the note holds its loudness until its last release.
	Envelope control.Segments
	// The table index sweeps linearly from TableIndexStart to
	// TableIndexEnd over the key-down length.
	TableIndexStart float64
	TableIndexEnd   float64
	Crossfade       bool

	// Effects returns the oscillator effects for one note. It is called
	// once per note from the rendering goroutines, so each call must return
	// fresh sources.
	Effects func(n note.Frozen, sampleRate float64) []effects.Spec
	Params  note.Params
}

type Track struct {
	Name       string
	Instrument Instrument
	Notes      []note.Note
	// Effects run on the mixed track.
	Effects []effects.Spec
	Gain    float64 // 0 means 1
	Mute    bool
}

type Song struct {
	// Tempo defaults to a constant 120 bpm.
	Tempo  []TempoChange
	Tracks []Track
}

// NoteCount is the number of notes on unmuted tracks.
func (s *Song) NoteCount() int {
	n := 0
	for _, t := range s.Tracks {
		if !t.Mute {
			n += len(t.Notes)
		}
	}
	return n
}
