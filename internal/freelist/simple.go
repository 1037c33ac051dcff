package freelist

import (
	"fmt"
	"sync"
	"sync/atomic"
)

// Pool is the state shared by every SimpleFreeList front end of one item
// type: blocks of freed items, empty block containers, and diagnostics.
type Pool[T any] struct {
	full      SharedBlockFreeList[T]
	empty     SharedBlockFreeList[T]
	blockSize int
	check     *verifier
	keyOf     func(T) any

	inUse atomic.Int64
	free  atomic.Int64
}

// NewPool creates a shared pool. keyOf identifies items for verification and
// may be nil when verify is false.
func NewPool[T any](blockSize int, verify bool, keyOf func(T) any) *Pool[T] {
	p := &Pool[T]{blockSize: ceilPow2(max(blockSize, 1)), keyOf: keyOf}
	if verify && keyOf != nil {
		p.check = &verifier{live: make(map[any]struct{})}
	}
	return p
}

// Local returns a new front end for one goroutine.
func (p *Pool[T]) Local() *SimpleFreeList[T] {
	return &SimpleFreeList[T]{pool: p}
}

// CountInUse reports items handed out and not yet returned.
func (p *Pool[T]) CountInUse() int64 { return p.inUse.Load() }

// CountFree reports items sitting on free lists, local or shared.
func (p *Pool[T]) CountFree() int64 { return p.free.Load() }

// drop accounts for an item discarded instead of recycled. Under
// verification it is still recorded, so a second free panics.
func (p *Pool[T]) drop(item T) {
	if p.check != nil {
		p.check.freed(p.keyOf(item))
	}
}

func (p *Pool[T]) emptyBlock() *Block[T] {
	if b, ok := p.empty.TryPop(); ok {
		return b
	}
	return newBlock[T](p.blockSize)
}

// SimpleFreeList is a single-goroutine front end holding at most two blocks:
// current and extra. It touches the shared lists only when current fills or
// drains, so the common push/pop is a plain slice operation.
type SimpleFreeList[T any] struct {
	pool    *Pool[T]
	current *Block[T]
	extra   *Block[T]
}

func (l *SimpleFreeList[T]) Push(item T) {
	if l.pool.check != nil {
		l.pool.check.freed(l.pool.keyOf(item))
	}
	if l.current == nil {
		l.current = l.pool.emptyBlock()
	}
	if l.current.full() {
		if l.extra != nil {
			l.pool.full.Push(l.extra)
		}
		l.extra = l.current
		l.current = l.pool.emptyBlock()
	}
	l.current.push(item)
	l.pool.free.Add(1)
}

// Pop returns a previously pushed item, or false when neither this front end
// nor the shared list holds one.
func (l *SimpleFreeList[T]) Pop() (T, bool) {
	if l.current == nil || l.current.empty() {
		if l.current != nil {
			l.pool.empty.Push(l.current)
			l.current = nil
		}
		if l.extra != nil {
			l.current, l.extra = l.extra, nil
		} else if b, ok := l.pool.full.TryPop(); ok {
			l.current = b
		} else {
			var zero T
			return zero, false
		}
	}
	item := l.current.pop()
	l.pool.free.Add(-1)
	if l.pool.check != nil {
		l.pool.check.reused(l.pool.keyOf(item))
	}
	return item, true
}

// Flush hands held items to the shared list so other goroutines can reuse
// them. Call when a worker finishes.
func (l *SimpleFreeList[T]) Flush() {
	for _, b := range []*Block[T]{l.extra, l.current} {
		if b == nil {
			continue
		}
		if b.empty() {
			l.pool.empty.Push(b)
		} else {
			l.pool.full.Push(b)
		}
	}
	l.current, l.extra = nil, nil
}

type verifier struct {
	mu   sync.Mutex
	live map[any]struct{}
}

func (v *verifier) freed(key any) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if _, dup := v.live[key]; dup {
		panic(fmt.Errorf("%w: %v", ErrDoubleFree, key))
	}
	v.live[key] = struct{}{}
}

func (v *verifier) reused(key any) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if _, ok := v.live[key]; !ok {
		panic(fmt.Errorf("%w: %v", ErrNotFreed, key))
	}
	delete(v.live, key)
}
