package effects

import (
	"fmt"
	"math"
	"strings"
)

// ChannelStats summarizes one channel of everything an analyzer has seen.
type ChannelStats struct {
	Min, Max float32
	SumSq    float64
	Frames   int64
	Clipped  int64 // samples with |x| > 1
}

// Peak returns the largest magnitude seen.
func (s ChannelStats) Peak() float32 {
	return max(-s.Min, s.Max)
}

// RMS returns the root mean square level.
func (s ChannelStats) RMS() float64 {
	if s.Frames == 0 {
		return 0
	}
	return math.Sqrt(s.SumSq / float64(s.Frames))
}

func (s *ChannelStats) add(x []float32) {
	if s.Frames == 0 && len(x) > 0 {
		s.Min, s.Max = x[0], x[0]
	}
	for _, v := range x {
		s.Min = min(s.Min, v)
		s.Max = max(s.Max, v)
		s.SumSq += float64(v) * float64(v)
		if v > 1 || v < -1 {
			s.Clipped++
		}
	}
	s.Frames += int64(len(x))
}

// Analyzer passively records min, max and power of the signal passing
// through it.
type Analyzer struct {
	name  string
	left  ChannelStats
	right ChannelStats
}

func NewAnalyzer(name string) *Analyzer {
	return &Analyzer{name: name}
}

func (a *Analyzer) Stats() (left, right ChannelStats) {
	return a.left, a.right
}

func (a *Analyzer) Apply(b Block, _ *Context) error {
	a.left.add(b.L)
	a.right.add(b.R)
	return nil
}

func (a *Analyzer) Finalize(ctx *Context, writeLogs bool) error {
	if !writeLogs || ctx == nil {
		return nil
	}
	return ctx.Log.WriteBlock(a.Report())
}

// Report formats the summary written on Finalize.
func (a *Analyzer) Report() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "analyzer %q: %d frames\n", a.name, a.left.Frames)
	fmt.Fprintf(&sb, "  %-6s %10s %10s %9s %9s %8s\n", "chan", "min", "max", "peak dB", "rms dB", "clipped")
	for _, c := range []struct {
		name string
		s    ChannelStats
	}{{"left", a.left}, {"right", a.right}} {
		fmt.Fprintf(&sb, "  %-6s %10.6f %10.6f %9.2f %9.2f %8d\n",
			c.name, c.s.Min, c.s.Max, decibels(float64(c.s.Peak())), decibels(c.s.RMS()), c.s.Clipped)
	}
	return sb.String()
}

func decibels(v float64) float64 {
	if v <= 0 {
		return math.Inf(-1)
	}
	return 20 * math.Log10(v)
}
