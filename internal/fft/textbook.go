package fft

import (
	"math"
	"math/bits"
)

// textbook is an in-place radix-2 complex FFT of size n/2 over the even/odd
// interleaved real input, followed by the split step that separates the two
// half-length spectra.
type textbook struct {
	base
	half   int
	z      []complex128
	roots  []complex128 // exp(-2πik/half), k < half/2
	twid   []complex128 // exp(-2πik/n), k <= half/2
	bitrev []int
}

func newTextbook(b base) *textbook {
	half := b.n / 2
	t := &textbook{
		base:   b,
		half:   half,
		z:      make([]complex128, half),
		roots:  make([]complex128, half/2),
		twid:   make([]complex128, half/2+1),
		bitrev: make([]int, half),
	}
	for k := range t.roots {
		s, c := math.Sincos(-2 * math.Pi * float64(k) / float64(half))
		t.roots[k] = complex(c, s)
	}
	for k := range t.twid {
		s, c := math.Sincos(-2 * math.Pi * float64(k) / float64(b.n))
		t.twid[k] = complex(c, s)
	}
	shift := bits.UintSize - bits.Len(uint(half-1))
	for i := range t.bitrev {
		if half == 1 {
			break
		}
		t.bitrev[i] = int(bits.Reverse(uint(i)) >> shift)
	}
	return t
}

func (t *textbook) ScaleFactor() float32 { return 1 / float32(t.n) }

func (t *textbook) Backend() Backend { return Textbook }

// complexFFT is unnormalized; inverse selects the positive exponent.
func (t *textbook) complexFFT(inverse bool) {
	z := t.z
	for i, j := range t.bitrev {
		if i < j {
			z[i], z[j] = z[j], z[i]
		}
	}
	n := t.half
	for size := 2; size <= n; size <<= 1 {
		hs := size / 2
		step := n / size
		for start := 0; start < n; start += size {
			for k := 0; k < hs; k++ {
				w := t.roots[k*step]
				if inverse {
					w = complex(real(w), -imag(w))
				}
				a := z[start+k]
				b := z[start+k+hs] * w
				z[start+k] = a + b
				z[start+k+hs] = a - b
			}
		}
	}
}

func conj(c complex128) complex128 { return complex(real(c), -imag(c)) }

func (t *textbook) Forward() {
	buf, z, half := t.buf, t.z, t.half
	for m := range z {
		z[m] = complex(float64(buf[2*m]), float64(buf[2*m+1]))
	}
	t.complexFFT(false)

	dc := real(z[0]) + imag(z[0])
	ny := real(z[0]) - imag(z[0])
	for k := 1; k <= half/2; k++ {
		j := half - k
		zk, zj := z[k], z[j]
		even := (zk + conj(zj)) / 2
		odd := (zk - conj(zj)) * complex(0, -0.5)
		tw := t.twid[k] * odd
		z[k] = even + tw
		z[j] = conj(even - tw)
	}
	buf[0] = float32(dc)
	buf[1] = float32(ny)
	for k := 1; k < half; k++ {
		buf[2*k] = float32(real(z[k]))
		buf[2*k+1] = float32(imag(z[k]))
	}
	buf[t.n] = 0
	buf[t.n+1] = 0
}

func (t *textbook) Inverse() {
	buf, z, half := t.buf, t.z, t.half
	dc, ny := float64(buf[0]), float64(buf[1])
	z[0] = complex(dc+ny, dc-ny)
	for k := 1; k < half; k++ {
		z[k] = complex(float64(buf[2*k]), float64(buf[2*k+1]))
	}
	for k := 1; k <= half/2; k++ {
		j := half - k
		xk, xj := z[k], z[j]
		even := xk + conj(xj)
		odd := (xk - conj(xj)) * conj(t.twid[k])
		z[k] = even + complex(0, 1)*odd
		z[j] = conj(even) + complex(0, 1)*conj(odd)
	}
	t.complexFFT(true)
	for m, c := range z {
		buf[2*m] = float32(real(c))
		buf[2*m+1] = float32(imag(c))
	}
	buf[t.n] = 0
	buf[t.n+1] = 0
}
