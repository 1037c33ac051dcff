package fft

import (
	dspfft "github.com/mjibson/go-dsp/fft"
)

// library delegates execution to go-dsp. go-dsp's inverse is normalized, so
// the scale factor is 1.
type library struct {
	base
	real64  []float64
	spec    []complex128
	guarded *Manager
}

func newLibrary(b base, m *Manager) *library {
	return &library{
		base:    b,
		real64:  make([]float64, b.n),
		spec:    make([]complex128, b.n),
		guarded: m,
	}
}

func (l *library) ScaleFactor() float32 { return 1 }

func (l *library) Backend() Backend { return Library }

func (l *library) Forward() {
	buf, n := l.buf, l.n
	for i := range l.real64 {
		l.real64[i] = float64(buf[i])
	}
	l.guarded.mu.RLock()
	out := dspfft.FFTReal(l.real64)
	l.guarded.mu.RUnlock()

	buf[0] = float32(real(out[0]))
	buf[1] = float32(real(out[n/2]))
	for k := 1; k < n/2; k++ {
		buf[2*k] = float32(real(out[k]))
		buf[2*k+1] = float32(imag(out[k]))
	}
	buf[n] = 0
	buf[n+1] = 0
}

func (l *library) Inverse() {
	buf, n, s := l.buf, l.n, l.spec
	s[0] = complex(float64(buf[0]), 0)
	s[n/2] = complex(float64(buf[1]), 0)
	for k := 1; k < n/2; k++ {
		c := complex(float64(buf[2*k]), float64(buf[2*k+1]))
		s[k] = c
		s[n-k] = conj(c)
	}
	l.guarded.mu.RLock()
	out := dspfft.IFFT(s)
	l.guarded.mu.RUnlock()

	for i := 0; i < n; i++ {
		buf[i] = float32(real(out[i]))
	}
	buf[n] = 0
	buf[n+1] = 0
}
