package convolve

import (
	"github.com/cbegin/synthcore-go/internal/errs"
	"github.com/cbegin/synthcore-go/internal/fft"
)

// Upsampler raises the rate of fixed-size blocks by an integer factor,
// removing the spectral images that zero stuffing creates.
type Upsampler struct {
	in     int
	factor int
	tr     fft.Transform
}

// NewUpsampler handles input blocks of inputLen samples, a power of two.
func NewUpsampler(m *fft.Manager, inputLen, factor int) (*Upsampler, error) {
	if !fft.IsPowerOfTwo(factor) {
		return nil, errs.New(errs.InvalidParameter, "upsample factor %d not a power of two", factor)
	}
	if !fft.IsPowerOfTwo(inputLen) {
		return nil, errs.New(errs.InvalidParameter, "upsample block %d not a power of two", inputLen)
	}
	tr, err := m.Create(inputLen*factor, 0, nil)
	if err != nil {
		return nil, err
	}
	return &Upsampler{in: inputLen, factor: factor, tr: tr}, nil
}

func (u *Upsampler) Factor() int { return u.factor }

// OutputLen is the number of samples Process writes.
func (u *Upsampler) OutputLen() int { return u.in * u.factor }

// Process writes OutputLen samples to out.
func (u *Upsampler) Process(in, out []float32) {
	ws := u.tr.Workspace()
	n := u.tr.N()
	clear(ws)
	for i, x := range in[:u.in] {
		ws[i*u.factor] = x
	}
	u.tr.Forward()
	if u.factor > 1 {
		ws[1] = 0
		for k := u.in/2 + 1; k < n/2; k++ {
			ws[2*k] = 0
			ws[2*k+1] = 0
		}
	}
	u.tr.Inverse()
	g := u.tr.ScaleFactor() * float32(u.factor)
	for i := range out[:u.OutputLen()] {
		out[i] = ws[i] * g
	}
}

func (u *Upsampler) Release() { u.tr.Release() }
