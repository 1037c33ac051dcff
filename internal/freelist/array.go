package freelist

import (
	"fmt"
	"math/bits"
	"unsafe"

	"github.com/cbegin/synthcore-go/internal/logger"
)

// NumSlots is the number of power-of-two length classes.
const NumSlots = 32

// ArrayPool is the shared side of an array free list: one Pool per length
// class. Classes whose arrays reach Config.LargeItemBytes move fewer arrays
// per block.
type ArrayPool[E any] struct {
	cfg   Config
	slots [NumSlots]*Pool[[]E]
}

func NewArrayPool[E any](cfg Config) *ArrayPool[E] {
	cfg = cfg.normalized()
	p := &ArrayPool[E]{cfg: cfg}
	var zero E
	itemSize := int(unsafe.Sizeof(zero))
	for slot := range p.slots {
		blockSize := cfg.BlockSize
		if itemSize<<slot >= cfg.LargeItemBytes {
			blockSize = cfg.LargeBlockSize
		}
		p.slots[slot] = NewPool(blockSize, cfg.Verify, arrayKey[E])
	}
	return p
}

func arrayKey[E any](a []E) any { return unsafe.SliceData(a) }

// Enabled reports whether arrays are recycled.
func (p *ArrayPool[E]) Enabled() bool { return p.cfg.Enabled }

// NewList returns a front end for one goroutine.
func (p *ArrayPool[E]) NewList() *ArrayFreeList[E] {
	return &ArrayFreeList[E]{shared: p}
}

func (p *ArrayPool[E]) CountInUse() int64 {
	var n int64
	for _, s := range p.slots {
		n += s.CountInUse()
	}
	return n
}

func (p *ArrayPool[E]) CountFree() int64 {
	var n int64
	for _, s := range p.slots {
		n += s.CountFree()
	}
	return n
}

// ArrayFreeList hands out arrays whose length is the smallest power of two
// at least the requested count. Not safe for concurrent use; give each
// worker its own list over a shared ArrayPool.
type ArrayFreeList[E any] struct {
	shared *ArrayPool[E]
	local  [NumSlots]*SimpleFreeList[[]E]
}

// SlotFor returns the length class for count: MSB(count-1)+1, so count 1
// maps to slot 0 (length 1).
func SlotFor(count int) int {
	if count <= 1 {
		return 0
	}
	return bits.Len(uint(count - 1))
}

func (l *ArrayFreeList[E]) list(slot int) *SimpleFreeList[[]E] {
	if l.local[slot] == nil {
		l.local[slot] = l.shared.slots[slot].Local()
	}
	return l.local[slot]
}

// New returns a zeroed array of length 1<<SlotFor(count).
func (l *ArrayFreeList[E]) New(count int) []E {
	slot := SlotFor(count)
	if slot >= NumSlots {
		panic(fmt.Errorf("%w: %d", ErrTooLarge, count))
	}
	pool := l.shared.slots[slot]
	pool.inUse.Add(1)
	if l.shared.cfg.Enabled {
		if a, ok := l.list(slot).Pop(); ok {
			clear(a)
			return a
		}
		if slot >= 16 {
			logger.L.Debug("freelist: allocating large array", "length", 1<<slot)
		}
	}
	return make([]E, 1<<slot)
}

// Free returns an array obtained from New. Its length must be an exact power
// of two; passing anything else panics.
func (l *ArrayFreeList[E]) Free(a []E) {
	n := len(a)
	if n == 0 || n&(n-1) != 0 {
		panic(fmt.Errorf("%w: %d", ErrSizeClass, n))
	}
	slot := bits.TrailingZeros(uint(n))
	pool := l.shared.slots[slot]
	pool.inUse.Add(-1)
	if !l.shared.cfg.Enabled {
		pool.drop(a[:n:n])
		return
	}
	l.list(slot).Push(a[:n:n])
}

// Flush returns every locally held block to the shared pool.
func (l *ArrayFreeList[E]) Flush() {
	for _, s := range l.local {
		if s != nil {
			s.Flush()
		}
	}
}
