// Package workspace provides vector-aligned float scratch buffers with an
// explicit release discipline, plus an arena that carves workspaces out of
// one pinned region by offset.
package workspace

import (
	"errors"
	"fmt"
	"runtime"
	"unsafe"

	"github.com/cbegin/synthcore-go/internal/logger"
)

// Alignment is the byte alignment of every workspace base address.
const Alignment = 64

const floatsPerAlign = Alignment / 4

var (
	ErrReleased      = errors.New("workspace: already released")
	ErrShareTooLarge = errors.New("workspace: shared view larger than source")
	ErrArenaFull     = errors.New("workspace: arena exhausted")
	ErrScratchBusy   = errors.New("workspace: scratch workspace re-entered")
)

// Config controls debugging aids.
type Config struct {
	// LeakCheck logs a warning when a workspace is collected unreleased.
	LeakCheck bool
}

// Aligned is a float buffer whose first element sits on an Alignment
// boundary. The owner must call Release; views created by Share or by an
// Arena never own memory.
type Aligned struct {
	mem      []float32
	off      int
	n        int
	owned    bool
	released bool
}

// New allocates a heap-backed workspace of n floats, padded for alignment.
func New(n int, cfg Config) *Aligned {
	mem := make([]float32, n+floatsPerAlign)
	a := &Aligned{mem: mem, off: alignOffset(mem), n: n, owned: true}
	if cfg.LeakCheck {
		runtime.SetFinalizer(a, func(a *Aligned) {
			if !a.released {
				logger.L.Warn("workspace: garbage collected without Release", "len", a.n)
			}
		})
	}
	return a
}

func alignOffset(mem []float32) int {
	if len(mem) == 0 {
		return 0
	}
	mis := uintptr(unsafe.Pointer(unsafe.SliceData(mem))) % Alignment
	if mis == 0 {
		return 0
	}
	return int((Alignment - mis) / 4)
}

// IsAligned reports whether the first element of f sits on an Alignment
// boundary.
func IsAligned(f []float32) bool {
	if len(f) == 0 {
		return true
	}
	return uintptr(unsafe.Pointer(unsafe.SliceData(f)))%Alignment == 0
}

// Floats returns the logical buffer, capped at its length.
func (a *Aligned) Floats() []float32 {
	if a.released {
		panic(ErrReleased)
	}
	return a.mem[a.off : a.off+a.n : a.off+a.n]
}

// Ints reinterprets the buffer as int32.
func (a *Aligned) Ints() []int32 {
	f := a.Floats()
	if len(f) == 0 {
		return nil
	}
	return unsafe.Slice((*int32)(unsafe.Pointer(&f[0])), len(f))
}

// Uints reinterprets the buffer as uint32.
func (a *Aligned) Uints() []uint32 {
	f := a.Floats()
	if len(f) == 0 {
		return nil
	}
	return unsafe.Slice((*uint32)(unsafe.Pointer(&f[0])), len(f))
}

func (a *Aligned) Len() int { return a.n }

// Allocated is the padded length of the backing memory.
func (a *Aligned) Allocated() int { return len(a.mem) }

func (a *Aligned) Offset() int { return a.off }

func (a *Aligned) Owned() bool { return a.owned }

// Share returns a non-owning view of the first n floats. The view must not
// outlive a.
func (a *Aligned) Share(n int) (*Aligned, error) {
	if a.released {
		return nil, ErrReleased
	}
	if n > a.n {
		return nil, fmt.Errorf("%w: %d > %d", ErrShareTooLarge, n, a.n)
	}
	return &Aligned{mem: a.mem, off: a.off, n: n}, nil
}

// Release ends the workspace's lifetime. Releasing twice panics.
func (a *Aligned) Release() {
	if a.released {
		panic(ErrReleased)
	}
	a.released = true
	a.mem = nil
}
