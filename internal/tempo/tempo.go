// Package tempo converts musical time to sample frames. A tempo map holds
// tempo events keyed by beat; an event may ramp linearly from the previous
// tempo instead of jumping.
package tempo

import (
	"iter"
	"math"

	"github.com/cbegin/synthcore-go/internal/errs"
	"github.com/cbegin/synthcore-go/internal/splay"
)

const (
	DefaultBPM = 120.0
	// DefaultResolution is ticks per whole note.
	DefaultResolution = 1920
)

// Event is one entry of the tempo map.
type Event struct {
	BPM float64
	// Ramp makes the tempo change linearly in beats from the previous
	// event to this one.
	Ramp bool
}

type segment struct {
	beat, frame float64 // start
	bpm, endBPM float64
	beats       float64 // +Inf for the last segment
}

// seconds from the segment start to db beats in.
func (s segment) seconds(db float64) float64 {
	if s.bpm == s.endBPM {
		return db * 60 / s.bpm
	}
	b1 := s.bpmAt(db)
	return 60 * s.beats / (s.endBPM - s.bpm) * math.Log(b1/s.bpm)
}

func (s segment) bpmAt(db float64) float64 {
	if s.bpm == s.endBPM {
		return s.bpm
	}
	return s.bpm + (s.endBPM-s.bpm)*db/s.beats
}

// beatsIn inverts seconds.
func (s segment) beatsIn(sec float64) float64 {
	if s.bpm == s.endBPM {
		return sec * s.bpm / 60
	}
	b1 := s.bpm * math.Exp(sec*(s.endBPM-s.bpm)/(60*s.beats))
	return (b1 - s.bpm) / (s.endBPM - s.bpm) * s.beats
}

// Controller owns a tempo map. It is not safe for concurrent use: lookups
// splay the map.
type Controller struct {
	sampleRate float64
	resolution int
	events     *splay.Tree[float64, Event]
	segs       []segment
}

// New returns a controller at DefaultBPM from beat 0. resolution is ticks
// per whole note; 0 means DefaultResolution.
func New(sampleRate float64, resolution int) (*Controller, error) {
	if !(sampleRate > 0) {
		return nil, errs.New(errs.InvalidParameter, "sample rate %g", sampleRate)
	}
	if resolution == 0 {
		resolution = DefaultResolution
	}
	if resolution < 0 || resolution%4 != 0 {
		return nil, errs.New(errs.InvalidParameter, "resolution %d not a positive multiple of 4", resolution)
	}
	c := &Controller{sampleRate: sampleRate, resolution: resolution, events: splay.New[float64, Event]()}
	c.events.Add(0, Event{BPM: DefaultBPM})
	return c, nil
}

func (c *Controller) SampleRate() float64 { return c.sampleRate }

func (c *Controller) Resolution() int { return c.resolution }

// SetTempo places a tempo event at beat, replacing any event there.
func (c *Controller) SetTempo(beat, bpm float64, ramp bool) error {
	if beat < 0 || math.IsNaN(beat) || math.IsInf(beat, 0) {
		return errs.New(errs.InvalidParameter, "tempo at beat %g", beat)
	}
	if !(bpm > 0) || math.IsInf(bpm, 0) {
		return errs.New(errs.InvalidParameter, "tempo %g bpm", bpm)
	}
	e := Event{BPM: bpm, Ramp: ramp && beat > 0}
	if c.events.ContainsKey(beat) {
		c.events.SetValue(beat, e)
	} else {
		c.events.Add(beat, e)
	}
	c.segs = nil
	return nil
}

// RemoveTempo deletes the event at beat. The event at beat 0 can only be
// replaced.
func (c *Controller) RemoveTempo(beat float64) bool {
	if beat == 0 || !c.events.ContainsKey(beat) {
		return false
	}
	c.events.Remove(beat)
	c.segs = nil
	return true
}

// Events iterates the tempo map in beat order.
func (c *Controller) Events() iter.Seq2[float64, Event] {
	return c.events.All()
}

// Prepare builds the segment cache.
func (c *Controller) Prepare() {
	if c.segs != nil {
		return
	}
	type entry struct {
		beat float64
		ev   Event
	}
	var es []entry
	for b, e := range c.events.All() {
		es = append(es, entry{b, e})
	}
	segs := make([]segment, len(es))
	frame := 0.0
	for i, e := range es {
		s := segment{beat: e.beat, frame: frame, bpm: e.ev.BPM, endBPM: e.ev.BPM, beats: math.Inf(1)}
		if i+1 < len(es) {
			s.beats = es[i+1].beat - e.beat
			if es[i+1].ev.Ramp {
				s.endBPM = es[i+1].ev.BPM
			}
			frame += s.seconds(s.beats) * c.sampleRate
		}
		segs[i] = s
	}
	c.segs = segs
}

// segmentAt returns the segment containing beat, found through the map.
func (c *Controller) segmentAt(beat float64) segment {
	c.Prepare()
	start, ok := c.events.NearestLessOrEqual(beat)
	if !ok {
		return c.segs[0]
	}
	i := searchSegments(c.segs, func(s segment) bool { return s.beat >= start })
	return c.segs[i]
}

func searchSegments(segs []segment, pred func(segment) bool) int {
	lo, hi := 0, len(segs)
	for lo < hi {
		m := int(uint(lo+hi) >> 1)
		if !pred(segs[m]) {
			lo = m + 1
		} else {
			hi = m
		}
	}
	return min(lo, len(segs)-1)
}

// BPMAt returns the tempo in effect at beat.
func (c *Controller) BPMAt(beat float64) float64 {
	beat = max(beat, 0)
	s := c.segmentAt(beat)
	return s.bpmAt(beat - s.beat)
}

// FrameAt returns the fractional frame at which beat falls.
func (c *Controller) FrameAt(beat float64) float64 {
	beat = max(beat, 0)
	s := c.segmentAt(beat)
	return s.frame + s.seconds(beat-s.beat)*c.sampleRate
}

// BeatAt inverts FrameAt.
func (c *Controller) BeatAt(frame float64) float64 {
	c.Prepare()
	frame = max(frame, 0)
	i := searchSegments(c.segs, func(s segment) bool { return s.frame > frame })
	if c.segs[i].frame > frame {
		i = max(i-1, 0)
	}
	s := c.segs[i]
	return s.beat + s.beatsIn((frame-s.frame)/c.sampleRate)
}

// Frame rounds FrameAt to a whole frame.
func (c *Controller) Frame(beat float64) int64 {
	return int64(math.Round(c.FrameAt(beat)))
}

// DurationFrames is the whole-frame length of beats starting at beat, so
// that consecutive notes tile without gaps.
func (c *Controller) DurationFrames(beat, beats float64) int64 {
	return c.Frame(beat+beats) - c.Frame(beat)
}

// BeatsToTicks converts beats (quarter notes) to ticks.
func (c *Controller) BeatsToTicks(beats float64) int {
	return int(math.Round(beats * float64(c.resolution) / 4))
}

func (c *Controller) TicksToBeats(ticks int) float64 {
	return float64(ticks) * 4 / float64(c.resolution)
}

// TicksPerSample is the tick rate at beat.
func (c *Controller) TicksPerSample(beat float64) float64 {
	return c.BPMAt(beat) * float64(c.resolution) / (240.0 * c.sampleRate)
}
