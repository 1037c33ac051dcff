package wavetable

import (
	"encoding/hex"
	"fmt"
	"math"

	"github.com/cbegin/synthcore-go/internal/errs"
	"github.com/cbegin/synthcore-go/internal/fixed"
)

// Index reads a multi-table wavetable at a fixed-point frame position.
// frames must be a power of two; the integer part of phase is masked to the
// table, and the fraction interpolates linearly to the next frame. With
// crossfade, the fractional part of tableIndex blends table floor(idx) into
// the next one.
func Index(phase fixed.Fixed64, tableIndex float64, numTables, frames int, tables [][]float32, crossfade bool) float32 {
	mask := int32(frames - 1)
	i0 := phase.Int() & mask
	i1 := (i0 + 1) & mask
	frac := phase.FracF()

	t := 0
	w := float32(0)
	if tableIndex > 0 {
		ti := math.Floor(tableIndex)
		if int(ti) >= numTables-1 {
			t = numTables - 1
		} else {
			t = int(ti)
			w = float32(tableIndex - ti)
		}
	}

	a := tables[t]
	v := a[i0] + (a[i1]-a[i0])*frac
	if !crossfade || w == 0 {
		return v
	}
	b := tables[t+1]
	u := b[i0] + (b[i1]-b[i0])*frac
	return v + (u-v)*w
}

// Stack is a set of equally sized single-cycle tables, ordered for
// morphing by table index.
type Stack struct {
	Tables [][]float32
	Frames int
}

// NewStack validates that every table has the same power-of-two length.
func NewStack(tables ...[]float32) (*Stack, error) {
	if len(tables) == 0 {
		return nil, errs.New(errs.InvalidParameter, "wavetable stack is empty")
	}
	n := len(tables[0])
	if n < 2 || n&(n-1) != 0 {
		return nil, errs.New(errs.InvalidParameter, "wavetable length %d not a power of two", n)
	}
	for i, t := range tables {
		if len(t) != n {
			return nil, errs.New(errs.InvalidParameter, "wavetable %d has %d frames, want %d", i, len(t), n)
		}
	}
	return &Stack{Tables: tables, Frames: n}, nil
}

func (s *Stack) Len() int { return len(s.Tables) }

// At reads the stack; see Index.
func (s *Stack) At(phase fixed.Fixed64, tableIndex float64, crossfade bool) float32 {
	return Index(phase, tableIndex, len(s.Tables), s.Frames, s.Tables, crossfade)
}

// Sine returns one cycle of a sine.
func Sine(frames int) []float32 {
	out := make([]float32, frames)
	for i := range out {
		out[i] = float32(math.Sin(2 * math.Pi * float64(i) / float64(frames)))
	}
	return out
}

// Saw returns one cycle of a band-limited sawtooth with the given number of
// harmonics.
func Saw(frames, harmonics int) []float32 {
	out := make([]float32, frames)
	for h := 1; h <= harmonics && h < frames/2; h++ {
		g := 2 / (math.Pi * float64(h))
		if h%2 == 0 {
			g = -g
		}
		for i := range out {
			out[i] += float32(g * math.Sin(2*math.Pi*float64(h*i)/float64(frames)))
		}
	}
	return out
}

// ParseWAVB converts a hex string of signed 8-bit samples into a table
// normalized to [-1, 1].
func ParseWAVB(h string) ([]float32, error) {
	data, err := hex.DecodeString(h)
	if err != nil {
		return nil, fmt.Errorf("wavetable: decode WAVB: %w", err)
	}
	out := make([]float32, len(data))
	for i, b := range data {
		out[i] = float32(int8(b)) / 127.0
	}
	return out, nil
}
