// Package fft provides real-input transforms over a packed Hermitian
// workspace, with a self-contained radix-2 backend and one delegating to
// github.com/mjibson/go-dsp.
//
// Packed layout after Forward, for a transform of size n:
//
//	ws[0]      DC (real)
//	ws[1]      Nyquist (real)
//	ws[2k:2k+2] bin k as (re, im), 1 <= k < n/2
//	ws[n:n+2]  zero
//
// Inverse restores n real samples multiplied by 1/ScaleFactor. Callers must
// always multiply by ScaleFactor and never assume a backend's value.
package fft

import (
	"errors"
	"fmt"
	"math/bits"
	"strings"

	"github.com/cbegin/synthcore-go/internal/workspace"
)

// MinSize is the smallest supported transform.
const MinSize = 4

var (
	ErrNotInitialized = errors.New("fft: manager not initialized")
	ErrSize           = errors.New("fft: size must be a power of two")
	ErrShareTooSmall  = errors.New("fft: shared workspace smaller than transform")
	ErrUnaligned      = errors.New("fft: library backend requires aligned workspace")
)

type Backend int

const (
	Textbook Backend = iota
	Library
)

func (b Backend) String() string {
	switch b {
	case Textbook:
		return "textbook"
	case Library:
		return "library"
	default:
		return fmt.Sprintf("backend(%d)", int(b))
	}
}

// ParseBackend maps a flag value to a Backend.
func ParseBackend(s string) (Backend, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "textbook":
		return Textbook, nil
	case "library", "go-dsp":
		return Library, nil
	default:
		return 0, fmt.Errorf("fft: unknown backend %q", s)
	}
}

// Transform is a real FFT of fixed size bound to its workspace. A Transform
// is used by one goroutine at a time.
type Transform interface {
	N() int
	// Workspace returns the n+2 float buffer the transform operates on.
	Workspace() []float32
	Forward()
	Inverse()
	// ScaleFactor is the gain that restores unit amplitude after
	// Forward followed by Inverse.
	ScaleFactor() float32
	Backend() Backend
	Release()
}

// IsPowerOfTwo reports whether n is a positive power of two.
func IsPowerOfTwo(n int) bool {
	return n > 0 && n&(n-1) == 0
}

// NextPowerOfTwo returns the smallest power of two >= n, and 1 for n <= 1.
func NextPowerOfTwo(n int) int {
	if n <= 1 {
		return 1
	}
	return 1 << bits.Len(uint(n-1))
}

// holder exposes the aligned memory behind a transform so another transform
// can share it.
type holder interface {
	aligned() *workspace.Aligned
}

type base struct {
	n      int
	ws     *workspace.Aligned
	buf    []float32
	owner  *Manager
	closed bool
}

func (b *base) N() int                       { return b.n }
func (b *base) Workspace() []float32         { return b.buf }
func (b *base) aligned() *workspace.Aligned { return b.ws }

func (b *base) Release() {
	if b.closed {
		return
	}
	b.closed = true
	b.ws.Release()
	b.owner.released()
}
