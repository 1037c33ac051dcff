package lfo

import (
	"fmt"
	"math"
	"strings"
)

type Waveform int

const (
	WaveSaw Waveform = iota
	WaveSquare
	WaveTriangle
	WaveRandom
	WaveSine
)

func (w Waveform) String() string {
	switch w {
	case WaveSaw:
		return "saw"
	case WaveSquare:
		return "square"
	case WaveTriangle:
		return "triangle"
	case WaveRandom:
		return "random"
	case WaveSine:
		return "sine"
	default:
		return fmt.Sprintf("waveform(%d)", int(w))
	}
}

// ParseWaveform maps a name to a Waveform, defaulting to triangle for
// unknown names.
func ParseWaveform(s string) Waveform {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "saw":
		return WaveSaw
	case "square":
		return WaveSquare
	case "random", "s&h":
		return WaveRandom
	case "sine":
		return WaveSine
	default:
		return WaveTriangle
	}
}

// LFO is a low-frequency oscillator usable as a control.Source. Value is
// Offset + depth*wave(phase).
type LFO struct {
	Offset     float64
	depth      float64 // units depend on the modulated parameter
	rateHz     float64
	waveform   Waveform
	sampleRate float64
	phase      float64 // [0, 1)
	randVal    float64 // held value for sample-and-hold
}

// New creates an LFO running at sampleRate.
func New(depth, rateHz float64, waveform Waveform, sampleRate float64) *LFO {
	l := &LFO{sampleRate: sampleRate}
	l.Set(depth, rateHz, waveform)
	return l
}

// Set configures the LFO parameters.
func (l *LFO) Set(depth, rateHz float64, waveform Waveform) {
	l.depth = depth
	l.rateHz = rateHz
	if waveform < WaveSaw || waveform > WaveSine {
		waveform = WaveTriangle
	}
	l.waveform = waveform
}

// SetPhase moves the oscillator to phase p, wrapped into [0, 1).
func (l *LFO) SetPhase(p float64) {
	l.phase = p - math.Floor(p)
}

// Value returns the modulation at the current phase in
// [Offset-depth, Offset+depth].
func (l *LFO) Value() float64 {
	if !l.Active() {
		return l.Offset
	}
	var w float64
	switch l.waveform {
	case WaveSaw:
		w = 1.0 - 2.0*l.phase
	case WaveSquare:
		if l.phase < 0.5 {
			w = 1.0
		} else {
			w = -1.0
		}
	case WaveRandom:
		w = l.randVal
	case WaveSine:
		w = math.Sin(2 * math.Pi * l.phase)
	default:
		if l.phase < 0.5 {
			w = 4.0*l.phase - 1.0
		} else {
			w = 3.0 - 4.0*l.phase
		}
	}
	return l.Offset + w*l.depth
}

// Advance moves the phase forward by frames samples.
func (l *LFO) Advance(frames int) {
	if !l.Active() || frames <= 0 {
		return
	}
	inc := l.rateHz / l.sampleRate
	if l.waveform != WaveRandom {
		l.phase += inc * float64(frames)
		l.phase -= math.Floor(l.phase)
		return
	}
	for ; frames > 0; frames-- {
		old := l.phase
		l.phase += inc
		l.phase -= math.Floor(l.phase)
		if l.phase < old {
			// sine hash, deterministic across runs
			v := math.Sin(l.phase*12345.6789+l.randVal*67890.1234) * 2.0
			v -= math.Floor(v)
			l.randVal = v*2.0 - 1.0
		}
	}
}

// Sample returns the current value and advances one frame.
func (l *LFO) Sample() float64 {
	v := l.Value()
	l.Advance(1)
	return v
}

// Active returns true if the LFO has non-zero depth and rate.
func (l *LFO) Active() bool {
	return l.depth != 0 && l.rateHz != 0 && l.sampleRate > 0
}

// Reset zeros the LFO phase.
func (l *LFO) Reset() {
	l.phase = 0
	l.randVal = 0
}
