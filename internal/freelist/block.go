package freelist

import "sync/atomic"

// Block is a fixed-capacity stack of items moved between goroutines as a
// unit, so the shared list is touched once per block rather than per item.
type Block[T any] struct {
	items []T
	count int
}

func newBlock[T any](size int) *Block[T] {
	return &Block[T]{items: make([]T, size)}
}

func (b *Block[T]) Len() int { return b.count }

func (b *Block[T]) Cap() int { return len(b.items) }

func (b *Block[T]) full() bool { return b.count == len(b.items) }

func (b *Block[T]) empty() bool { return b.count == 0 }

func (b *Block[T]) push(v T) {
	b.items[b.count] = v
	b.count++
}

func (b *Block[T]) pop() T {
	b.count--
	v := b.items[b.count]
	var zero T
	b.items[b.count] = zero
	return v
}

// Lock-free stack node. A fresh node per push keeps a recycled pointer from
// satisfying a stale CAS (ABA).
type blockNode[T any] struct {
	block *Block[T]
	next  *blockNode[T]
}

// SharedBlockFreeList is a lock-free multi-producer multi-consumer stack of
// blocks. The zero value is an empty list.
type SharedBlockFreeList[T any] struct {
	head atomic.Pointer[blockNode[T]]
	n    atomic.Int64
}

func (s *SharedBlockFreeList[T]) Push(b *Block[T]) {
	node := &blockNode[T]{block: b}
	for {
		old := s.head.Load()
		node.next = old
		if s.head.CompareAndSwap(old, node) {
			s.n.Add(1)
			return
		}
	}
}

// TryPop returns false when the list is empty; it never blocks.
func (s *SharedBlockFreeList[T]) TryPop() (*Block[T], bool) {
	for {
		old := s.head.Load()
		if old == nil {
			return nil, false
		}
		if s.head.CompareAndSwap(old, old.next) {
			s.n.Add(-1)
			return old.block, true
		}
	}
}

// Len is approximate under concurrent use.
func (s *SharedBlockFreeList[T]) Len() int { return int(s.n.Load()) }
