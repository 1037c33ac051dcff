package workspace

import (
	"fmt"

	"github.com/cbegin/synthcore-go/internal/logger"
)

// Arena is one preallocated region from which workspaces are handed out by
// offset. Workspaces from an arena are views: releasing them is bookkeeping
// only, and Reset reclaims everything at once.
type Arena struct {
	mem    []float32
	used   int
	unmap  func() error
	pinned bool
}

// NewArena reserves room for at least floats values. On platforms with mmap
// the region is anonymous mapped memory, locked in RAM when permitted.
func NewArena(floats int) (*Arena, error) {
	if floats <= 0 {
		return nil, fmt.Errorf("workspace: arena size must be positive, got %d", floats)
	}
	mem, pinned, unmap, err := mapRegion(floats + floatsPerAlign)
	if err != nil {
		return nil, err
	}
	a := &Arena{mem: mem, unmap: unmap, pinned: pinned}
	a.used = alignOffset(mem)
	logger.L.Debug("workspace: arena reserved", "floats", len(mem), "pinned", pinned)
	return a, nil
}

// Pinned reports whether the region is locked in memory.
func (a *Arena) Pinned() bool { return a.pinned }

func (a *Arena) Cap() int { return len(a.mem) }

func (a *Arena) Used() int { return a.used }

// Alloc carves an aligned, zeroed workspace of n floats.
func (a *Arena) Alloc(n int) (*Aligned, error) {
	base := alignOffset(a.mem)
	start := base + roundUp(a.used-base, floatsPerAlign)
	if start > len(a.mem) || n > len(a.mem)-start {
		return nil, fmt.Errorf("%w: need %d floats, %d free", ErrArenaFull, n, len(a.mem)-a.used)
	}
	a.used = start + n
	w := &Aligned{mem: a.mem, off: start, n: n}
	clear(w.Floats())
	return w, nil
}

// Reset reclaims every workspace handed out so far. Existing views must no
// longer be used.
func (a *Arena) Reset() { a.used = alignOffset(a.mem) }

// Close returns the region to the operating system.
func (a *Arena) Close() error {
	a.mem = nil
	a.used = 0
	if a.unmap != nil {
		unmap := a.unmap
		a.unmap = nil
		return unmap()
	}
	return nil
}

func roundUp(n, to int) int {
	return (n + to - 1) / to * to
}
