package lfo

import (
	"math"
	"testing"

	"github.com/cbegin/synthcore-go/internal/control"
)

var _ control.Source = (*LFO)(nil)

func TestLFOTriangleBasicShape(t *testing.T) {
	l := New(1.0, 1.0, WaveTriangle, 100) // 100 samples per cycle

	samples := make([]float64, 100)
	for i := range samples {
		samples[i] = l.Sample()
	}

	if math.Abs(samples[0]-(-1.0)) > 0.05 {
		t.Errorf("triangle at phase 0: got %f, want -1.0", samples[0])
	}
	if math.Abs(samples[25]) > 0.05 {
		t.Errorf("triangle at phase 0.25: got %f, want ~0", samples[25])
	}
	if math.Abs(samples[50]-1.0) > 0.05 {
		t.Errorf("triangle at phase 0.5: got %f, want 1.0", samples[50])
	}
}

func TestLFOSquareShape(t *testing.T) {
	l := New(2.0, 1.0, WaveSquare, 100)

	if v := l.Value(); math.Abs(v-2.0) > 0.01 {
		t.Errorf("square first half: got %f, want 2.0", v)
	}
	l.Advance(50)
	if v := l.Value(); math.Abs(v-(-2.0)) > 0.01 {
		t.Errorf("square second half: got %f, want -2.0", v)
	}
}

func TestLFOSineAndOffset(t *testing.T) {
	l := New(0.5, 2.0, WaveSine, 1000)
	l.Offset = 3
	l.Advance(125) // quarter cycle at 2 Hz
	if v := l.Value(); math.Abs(v-3.5) > 1e-9 {
		t.Errorf("sine peak: got %f, want 3.5", v)
	}
}

func TestLFOAdvanceMatchesRepeatedSample(t *testing.T) {
	a := New(1, 3.7, WaveSaw, 48000)
	b := New(1, 3.7, WaveSaw, 48000)
	for i := 0; i < 1000; i++ {
		a.Sample()
	}
	b.Advance(1000)
	if math.Abs(a.Value()-b.Value()) > 1e-9 {
		t.Errorf("block advance drifted: %f vs %f", a.Value(), b.Value())
	}
}

func TestLFOInactiveReturnsOffset(t *testing.T) {
	l := New(0, 5.0, WaveTriangle, 44100)
	l.Offset = 0.25
	if v := l.Sample(); v != 0.25 {
		t.Errorf("zero depth should return offset, got %f", v)
	}
	l.Set(1, 0, WaveTriangle)
	if l.Active() {
		t.Error("zero-rate LFO should not be active")
	}
}

func TestLFORandomStaysInRange(t *testing.T) {
	l := New(1.0, 10.0, WaveRandom, 1000)

	var changed bool
	first := l.Value()
	for i := 0; i < 500; i++ {
		v := l.Sample()
		if math.Abs(v) > 1.0 {
			t.Fatalf("random sample exceeds depth: %f", v)
		}
		if v != first {
			changed = true
		}
	}
	if !changed {
		t.Error("sample-and-hold never changed over five cycles")
	}
}

func TestParseWaveform(t *testing.T) {
	for _, w := range []Waveform{WaveSaw, WaveSquare, WaveTriangle, WaveRandom, WaveSine} {
		if got := ParseWaveform(w.String()); got != w {
			t.Errorf("ParseWaveform(%q) = %v", w.String(), got)
		}
	}
}
