// Package fixed provides a 32.32 fixed-point number used for oscillator phase
// and wavetable frame indices, where positions must advance without
// floating-point drift.
package fixed

const (
	fracBits = 32
	one      = 1 << fracBits
	fracMask = one - 1
)

// Fixed64 holds 32 signed integer bits and 32 fractional bits. Arithmetic on
// the raw value wraps modulo 2^64; phase wraparound relies on it.
type Fixed64 int64

// FromFloat64 scales by 2^32 and truncates toward zero.
func FromFloat64(d float64) Fixed64 { return Fixed64(int64(d * one)) }

func FromFloat32(f float32) Fixed64 { return FromFloat64(float64(f)) }

func FromInt(i int32) Fixed64 { return Fixed64(int64(i) << fracBits) }

// FromRaw reinterprets a raw 64-bit pattern.
func FromRaw(raw int64) Fixed64 { return Fixed64(raw) }

func (f Fixed64) Raw() int64 { return int64(f) }

func (f Fixed64) Float64() float64 { return float64(f) / one }

func (f Fixed64) Float32() float32 { return float32(f.Float64()) }

// Int returns the signed integer part (floor, via arithmetic shift).
func (f Fixed64) Int() int32 { return int32(int64(f) >> fracBits) }

// FracI returns the unsigned fractional bits.
func (f Fixed64) FracI() uint32 { return uint32(uint64(f) & fracMask) }

// FracD returns the fraction in [0,1).
func (f Fixed64) FracD() float64 { return float64(f.FracI()) / one }

func (f Fixed64) FracF() float32 { return float32(f.FracD()) }

func (f Fixed64) Add(g Fixed64) Fixed64 { return f + g }

func (f Fixed64) Sub(g Fixed64) Fixed64 { return f - g }

func (f Fixed64) Neg() Fixed64 { return -f }

// MaskInt64HighHalf ANDs the integer part with mask, leaving the fraction.
// With mask = frames-1 this reduces a phase modulo a power-of-two table.
func (f *Fixed64) MaskInt64HighHalf(mask int32) {
	*f = Fixed64((int64(*f) & fracMask) | (int64(f.Int()&mask) << fracBits))
}

// SetInt64HighHalf replaces the integer part, leaving the fraction.
func (f *Fixed64) SetInt64HighHalf(v int32) {
	*f = Fixed64((int64(*f) & fracMask) | (int64(v) << fracBits))
}
