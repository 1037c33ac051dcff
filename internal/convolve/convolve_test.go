package convolve

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cbegin/synthcore-go/internal/errs"
	"github.com/cbegin/synthcore-go/internal/fft"
)

func manager(t *testing.T, b fft.Backend) *fft.Manager {
	t.Helper()
	m := fft.NewManager()
	require.NoError(t, m.Init(fft.Options{Backend: b}))
	t.Cleanup(m.Shutdown)
	return m
}

func randomIR(n int, seed int64) []float32 {
	rng := rand.New(rand.NewSource(seed))
	h := make([]float32, n)
	for i := range h {
		h[i] = float32(rng.Float64()*2-1) * float32(math.Exp(-float64(i)/20))
	}
	return h
}

func TestImpulseReproducesIRAfterLatency(t *testing.T) {
	cases := []struct {
		name      string
		cfg       Config
		irLen     int
		wantBlock int
		wantParts int
	}{
		{"overlap-save", Config{Backend: OverlapSave, ProcessedGain: 1}, 37, 64, 1},
		{"low-latency", Config{Backend: LowLatency, Latency: 16, ProcessedGain: 1}, 100, 16, 7},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := randomIR(tc.irLen, 5)
			s, err := NewStream(manager(t, fft.Textbook), h, tc.cfg)
			require.NoError(t, err)
			defer s.Release()
			assert.Equal(t, tc.wantBlock, s.Latency())
			assert.Equal(t, tc.wantParts, s.Partitions())

			total := s.Latency() + tc.irLen + 2*s.BlockLength()
			in := make([]float32, total)
			in[0] = 1
			out := make([]float32, total)
			s.ProcessBlock(in, out)

			lat := s.Latency()
			for i, y := range out {
				want := float32(0)
				if k := i - lat; k >= 0 && k < len(h) {
					want = h[k]
				}
				require.InDelta(t, want, y, 1e-4, "sample %d", i)
			}
		})
	}
}

func TestDirectPathIsDelayedInput(t *testing.T) {
	s, err := NewStream(manager(t, fft.Textbook), []float32{0.5}, Config{Latency: 8, DirectGain: 1})
	require.NoError(t, err)
	defer s.Release()
	lat := s.Latency()
	require.Equal(t, 8, lat)
	in := make([]float32, 40)
	for i := range in {
		in[i] = float32(i + 1)
	}
	out := make([]float32, len(in))
	s.ProcessBlock(in, out)
	for i := range out {
		want := float32(0)
		if i >= lat {
			want = in[i-lat]
		}
		assert.Equal(t, want, out[i], "sample %d", i)
	}
}

func TestMatchesDirectConvolution(t *testing.T) {
	for _, b := range []fft.Backend{fft.Textbook, fft.Library} {
		t.Run(b.String(), func(t *testing.T) {
			m := manager(t, b)
			h := randomIR(50, 9)
			s, err := NewStream(m, h, Config{Latency: 50, ProcessedGain: 0.5, DirectGain: 0.25})
			require.NoError(t, err)
			defer s.Release()

			rng := rand.New(rand.NewSource(2))
			in := make([]float32, 700)
			for i := range in {
				in[i] = float32(rng.Float64()*2 - 1)
			}
			out := make([]float32, len(in))
			s.ProcessBlock(in, out)

			lat := s.Latency()
			for i := lat; i < len(in); i++ {
				var wet float64
				for k := range h {
					if j := i - lat - k; j >= 0 {
						wet += float64(h[k]) * float64(in[j])
					}
				}
				want := 0.5*wet + 0.25*float64(in[i-lat])
				require.InDelta(t, want, out[i], 1e-3, "sample %d", i)
			}
		})
	}
}

func TestLowLatencyUnavailableOnLibraryBackend(t *testing.T) {
	m := manager(t, fft.Library)
	assert.False(t, Available(LowLatency, m))
	assert.True(t, Available(OverlapSave, m))

	_, err := NewStream(m, []float32{1}, Config{Backend: LowLatency, Latency: 32})
	require.Error(t, err)
	code, ok := errs.CodeOf(err)
	require.True(t, ok)
	assert.Equal(t, errs.BackendUnavailable, code)
}

func TestNewStreamValidation(t *testing.T) {
	m := manager(t, fft.Textbook)
	_, err := NewStream(m, nil, Config{})
	assert.ErrorIs(t, err, errs.ErrConfig)
	_, err = NewStream(m, []float32{1}, Config{Latency: -1})
	assert.ErrorIs(t, err, errs.ErrConfig)
}

func TestResetClearsHistory(t *testing.T) {
	s, err := NewStream(manager(t, fft.Textbook), []float32{1, 0.5}, Config{ProcessedGain: 1})
	require.NoError(t, err)
	defer s.Release()
	for i := 0; i < s.BlockLength()+1; i++ {
		s.Process(1)
	}
	s.Reset()
	for i := 0; i < 3*s.BlockLength(); i++ {
		require.Zero(t, s.Process(0))
	}
}

func TestUpsamplerReconstructsBandLimitedSine(t *testing.T) {
	for _, b := range []fft.Backend{fft.Textbook, fft.Library} {
		t.Run(b.String(), func(t *testing.T) {
			const n, factor, cycles = 64, 4, 3
			u, err := NewUpsampler(manager(t, b), n, factor)
			require.NoError(t, err)
			defer u.Release()

			in := make([]float32, n)
			for i := range in {
				in[i] = float32(math.Sin(2 * math.Pi * cycles * float64(i) / n))
			}
			out := make([]float32, u.OutputLen())
			u.Process(in, out)
			for i, y := range out {
				want := math.Sin(2 * math.Pi * cycles * float64(i) / (n * factor))
				require.InDelta(t, want, y, 1e-4, "sample %d", i)
			}
		})
	}
}

func TestUpsamplerValidation(t *testing.T) {
	m := manager(t, fft.Textbook)
	_, err := NewUpsampler(m, 64, 3)
	assert.ErrorIs(t, err, errs.ErrConfig)
	_, err = NewUpsampler(m, 60, 2)
	assert.ErrorIs(t, err, errs.ErrConfig)
}
