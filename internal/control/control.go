// Package control defines the per-frame numeric producers that modulate
// oscillators and effects: constants, linear transitions and segmented
// envelopes with up to three sustain points.
package control

// Source yields one value per sample frame. Value reports the current frame
// without consuming it; Advance moves forward.
type Source interface {
	Value() float64
	Advance(frames int)
}

// Envelope is a Source tied to a note's lifetime.
type Envelope interface {
	Source
	// FixOrigin anchors the envelope at the note's start frame and
	// restarts it from its initial level.
	FixOrigin(frame int64)
	// KeyUp releases sustain points 1..stage.
	KeyUp(stage int)
	// Retrigger restarts the attack from the current level.
	Retrigger()
	// Done reports that the final point has been reached.
	Done() bool
	// Remaining returns the frames left until Done. It reports false while
	// an unreleased sustain point lies ahead.
	Remaining() (int64, bool)
}

// Constant is a Source that never changes.
type Constant float64

func (c Constant) Value() float64 { return float64(c) }

func (Constant) Advance(int) {}

// Linear ramps from Start to End over Frames frames and then holds End.
// Values are computed from the frame index, so a long ramp does not drift.
type Linear struct {
	Start, End float64
	Frames     int64
	pos        int64
}

func NewLinear(start, end float64, frames int64) *Linear {
	return &Linear{Start: start, End: end, Frames: frames}
}

// At returns the ramp value at frame i without moving.
func (l *Linear) At(i int64) float64 {
	if l.Frames <= 0 || i >= l.Frames {
		return l.End
	}
	if i <= 0 {
		return l.Start
	}
	return l.Start + (l.End-l.Start)*float64(i)/float64(l.Frames)
}

func (l *Linear) Value() float64 { return l.At(l.pos) }

func (l *Linear) Advance(frames int) { l.pos += int64(frames) }

// Position is the number of frames consumed so far.
func (l *Linear) Position() int64 { return l.pos }

func (l *Linear) Finished() bool { return l.pos >= l.Frames }

// Fill writes successive values to dst and advances past them.
func Fill(s Source, dst []float32) {
	for i := range dst {
		dst[i] = float32(s.Value())
		s.Advance(1)
	}
}
