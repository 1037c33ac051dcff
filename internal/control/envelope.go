package control

import "math"

// Point is one breakpoint: the envelope reaches Level Seconds after the
// previous point.
type Point struct {
	Level   float64
	Seconds float64
}

// Segments configures a Segmented envelope.
type Segments struct {
	Start  float64
	Points []Point
	// Sustain holds the 1-based point index for sustain stages 1..3; 0
	// disables a stage.
	Sustain    [3]int
	SampleRate float64
}

// Segmented is a piecewise-linear envelope that can hold at up to three
// sustain points until the matching KeyUp.
type Segmented struct {
	cfg       Segments
	value     float64
	step      float64
	remaining int
	next      int // index of the point being approached
	holding   bool
	released  [3]bool
	origin    int64
}

func NewSegmented(cfg Segments) *Segmented {
	e := &Segmented{cfg: cfg}
	e.FixOrigin(0)
	return e
}

// NewADSR builds the classic four-stage envelope with one sustain point.
func NewADSR(attack, decay, sustain, release, sampleRate float64) *Segmented {
	return NewSegmented(Segments{
		Points: []Point{
			{Level: 1, Seconds: attack},
			{Level: sustain, Seconds: decay},
			{Level: 0, Seconds: release},
		},
		Sustain:    [3]int{2, 0, 0},
		SampleRate: sampleRate,
	})
}

func (e *Segmented) Value() float64 { return e.value }

func (e *Segmented) Origin() int64 { return e.origin }

func (e *Segmented) Done() bool { return !e.holding && e.next >= len(e.cfg.Points) }

func (e *Segmented) Holding() bool { return e.holding }

func (e *Segmented) Remaining() (int64, bool) {
	if e.Done() {
		return 0, true
	}
	if e.holding {
		return 0, false
	}
	n := int64(e.remaining)
	for i := e.next; i < len(e.cfg.Points); i++ {
		if i > e.next {
			n += int64(max(e.segmentFrames(i), 0))
		}
		if !e.sustainReleased(i) {
			return 0, false
		}
	}
	return n, true
}

func (e *Segmented) FixOrigin(frame int64) {
	e.origin = frame
	e.value = e.cfg.Start
	e.released = [3]bool{}
	e.holding = false
	e.begin(0)
}

func (e *Segmented) Retrigger() {
	e.released = [3]bool{}
	e.holding = false
	e.begin(0)
}

func (e *Segmented) KeyUp(stage int) {
	for s := 0; s < min(stage, 3); s++ {
		e.released[s] = true
	}
	if e.holding && e.sustainReleased(e.next-1) {
		e.holding = false
		e.begin(e.next)
	}
}

func (e *Segmented) Advance(frames int) {
	for ; frames > 0; frames-- {
		if e.holding || e.next >= len(e.cfg.Points) {
			return
		}
		e.value += e.step
		e.remaining--
		if e.remaining == 0 {
			e.arrive(e.next)
		}
	}
}

// sustainReleased reports whether point i may be passed.
func (e *Segmented) sustainReleased(i int) bool {
	for s, p := range e.cfg.Sustain {
		if p == i+1 && !e.released[s] {
			return false
		}
	}
	return true
}

func (e *Segmented) arrive(i int) {
	e.value = e.cfg.Points[i].Level
	e.next = i + 1
	if !e.sustainReleased(i) {
		e.holding = true
		return
	}
	e.begin(e.next)
}

// begin starts the segment towards point i, skipping zero-length segments.
func (e *Segmented) begin(i int) {
	e.next = i
	if i >= len(e.cfg.Points) {
		return
	}
	frames := e.segmentFrames(i)
	if frames <= 0 {
		e.arrive(i)
		return
	}
	e.remaining = frames
	e.step = (e.cfg.Points[i].Level - e.value) / float64(frames)
}

func (e *Segmented) segmentFrames(i int) int {
	return int(math.Round(e.cfg.Points[i].Seconds * e.cfg.SampleRate))
}
