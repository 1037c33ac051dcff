package effects

import (
	"fmt"
	"math"
	"strings"

	"github.com/cbegin/synthcore-go/internal/errs"
)

// ChannelPolicy selects which value a histogram bins for each frame.
// Values are magnitudes; "before" and "after" refer to rectification.
type ChannelPolicy int

const (
	LeftOnly      ChannelPolicy = iota // |L|
	RightOnly                          // |R|
	AverageBefore                      // |(L+R)/2|
	AverageAfter                       // (|L|+|R|)/2
	MaxAfter                           // max(|L|, |R|)
)

var policyNames = [...]string{"left", "right", "average-before", "average-after", "max-after"}

func (p ChannelPolicy) String() string {
	if p >= 0 && int(p) < len(policyNames) {
		return policyNames[p]
	}
	return fmt.Sprintf("policy(%d)", int(p))
}

func ParseChannelPolicy(s string) (ChannelPolicy, error) {
	for i, n := range policyNames {
		if n == s {
			return ChannelPolicy(i), nil
		}
	}
	return 0, errs.New(errs.InvalidParameter, "unknown histogram channel policy %q", s)
}

func (p ChannelPolicy) value(l, r float32) float64 {
	switch p {
	case RightOnly:
		return math.Abs(float64(r))
	case AverageBefore:
		return math.Abs(float64(l+r) / 2)
	case AverageAfter:
		return (math.Abs(float64(l)) + math.Abs(float64(r))) / 2
	case MaxAfter:
		return math.Max(math.Abs(float64(l)), math.Abs(float64(r)))
	default:
		return math.Abs(float64(l))
	}
}

// Histogram counts frame magnitudes into linear or logarithmic bins over
// [Min, Max). Values outside the range are counted separately.
type Histogram struct {
	spec      HistogramSpec
	counts    []int64
	underflow int64
	overflow  int64
	lo, span  float64 // in the bin domain (log10 for log bins)
}

func newHistogram(s HistogramSpec) (*Histogram, error) {
	if s.Bins <= 0 {
		return nil, errs.New(errs.InvalidParameter, "histogram %q: %d bins", s.Name, s.Bins)
	}
	if !(s.Max > s.Min) {
		return nil, errs.New(errs.InvalidParameter, "histogram %q: empty range [%g, %g)", s.Name, s.Min, s.Max)
	}
	if s.Log && s.Min <= 0 {
		return nil, errs.New(errs.InvalidParameter, "histogram %q: log bins need a positive minimum", s.Name)
	}
	if s.BarWidth <= 0 {
		s.BarWidth = 50
	}
	h := &Histogram{spec: s, counts: make([]int64, s.Bins)}
	h.lo, h.span = s.Min, s.Max-s.Min
	if s.Log {
		h.lo = math.Log10(s.Min)
		h.span = math.Log10(s.Max) - h.lo
	}
	return h, nil
}

func (h *Histogram) add(v float64) {
	if v < h.spec.Min {
		h.underflow++
		return
	}
	if v >= h.spec.Max {
		h.overflow++
		return
	}
	x := v
	if h.spec.Log {
		x = math.Log10(v)
	}
	i := int((x - h.lo) / h.span * float64(len(h.counts)))
	h.counts[min(max(i, 0), len(h.counts)-1)]++
}

// Counts returns the per-bin counts followed by underflow and overflow.
func (h *Histogram) Counts() (bins []int64, underflow, overflow int64) {
	return h.counts, h.underflow, h.overflow
}

// Edge returns the lower edge of bin i; Edge(Bins) is Max.
func (h *Histogram) Edge(i int) float64 {
	x := h.lo + h.span*float64(i)/float64(len(h.counts))
	if h.spec.Log {
		return math.Pow(10, x)
	}
	return x
}

func (h *Histogram) Apply(b Block, _ *Context) error {
	for i := range b.L {
		h.add(h.spec.Channel.value(b.L[i], b.R[i]))
	}
	return nil
}

func (h *Histogram) Finalize(ctx *Context, writeLogs bool) error {
	if !writeLogs || ctx == nil {
		return nil
	}
	return ctx.Log.WriteBlock(h.Report())
}

// Report formats the bar chart written on Finalize.
func (h *Histogram) Report() string {
	var peak int64
	for _, c := range h.counts {
		peak = max(peak, c)
	}
	scale := "linear"
	if h.spec.Log {
		scale = "log"
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "histogram %q: %s, %d %s bins\n", h.spec.Name, h.spec.Channel, len(h.counts), scale)
	fmt.Fprintf(&sb, "  %-25s %10d\n", fmt.Sprintf("< %.6g", h.spec.Min), h.underflow)
	for i, c := range h.counts {
		bar := 0
		if peak > 0 {
			bar = int(c * int64(h.spec.BarWidth) / peak)
		}
		rng := fmt.Sprintf("[%.6g, %.6g)", h.Edge(i), h.Edge(i+1))
		fmt.Fprintf(&sb, "  %-25s %10d %s\n", rng, c, strings.Repeat("#", bar))
	}
	fmt.Fprintf(&sb, "  %-25s %10d\n", fmt.Sprintf(">= %.6g", h.spec.Max), h.overflow)
	return sb.String()
}
