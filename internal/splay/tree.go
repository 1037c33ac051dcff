// Package splay implements ordered maps on top-down splay trees. Every
// operation moves the node it touched (or the nearest bound) to the root, so
// runs of nearby accesses, such as walking a time-indexed schedule, are cheap.
package splay

import (
	"cmp"
	"errors"
	"fmt"
	"iter"
)

var (
	// ErrDuplicateKey is panicked by Add when the key is already present.
	ErrDuplicateKey = errors.New("splay: duplicate key")

	// ErrKeyNotFound is panicked by Remove and SetValue for absent keys.
	ErrKeyNotFound = errors.New("splay: key not found")

	// ErrCapacity is panicked when a locked ArrayTree is full.
	ErrCapacity = errors.New("splay: locked tree capacity exhausted")
)

type node[K, V any] struct {
	key         K
	value       V
	left, right *node[K, V]
}

// Tree is a linked splay tree with unique keys. Not safe for concurrent use.
type Tree[K, V any] struct {
	root  *node[K, V]
	count int
	cmp   func(a, b K) int
}

func New[K cmp.Ordered, V any]() *Tree[K, V] {
	return NewFunc[K, V](cmp.Compare[K])
}

// NewFunc creates a tree ordered by compare, which returns <0, 0, >0.
func NewFunc[K, V any](compare func(a, b K) int) *Tree[K, V] {
	return &Tree[K, V]{cmp: compare}
}

func (t *Tree[K, V]) Len() int { return t.count }

func (t *Tree[K, V]) Clear() {
	t.root = nil
	t.count = 0
}

// splay brings key, or the last node on its search path, to the root.
func (t *Tree[K, V]) splay(key K) {
	x := t.root
	if x == nil {
		return
	}
	var header node[K, V]
	l, r := &header, &header
	for {
		c := t.cmp(key, x.key)
		if c < 0 {
			if x.left == nil {
				break
			}
			if t.cmp(key, x.left.key) < 0 {
				y := x.left
				x.left = y.right
				y.right = x
				x = y
				if x.left == nil {
					break
				}
			}
			r.left = x
			r = x
			x = x.left
		} else if c > 0 {
			if x.right == nil {
				break
			}
			if t.cmp(key, x.right.key) > 0 {
				y := x.right
				x.right = y.left
				y.left = x
				x = y
				if x.right == nil {
					break
				}
			}
			l.right = x
			l = x
			x = x.right
		} else {
			break
		}
	}
	l.right = x.left
	r.left = x.right
	x.left = header.right
	x.right = header.left
	t.root = x
}

// Add inserts key. Adding a present key panics with ErrDuplicateKey.
func (t *Tree[K, V]) Add(key K, value V) {
	n := &node[K, V]{key: key, value: value}
	if t.root == nil {
		t.root = n
		t.count++
		return
	}
	t.splay(key)
	c := t.cmp(key, t.root.key)
	if c == 0 {
		panic(fmt.Errorf("%w: %v", ErrDuplicateKey, key))
	}
	if c < 0 {
		n.left = t.root.left
		n.right = t.root
		t.root.left = nil
	} else {
		n.right = t.root.right
		n.left = t.root
		t.root.right = nil
	}
	t.root = n
	t.count++
}

// Remove deletes key. Removing an absent key panics with ErrKeyNotFound.
func (t *Tree[K, V]) Remove(key K) {
	if !t.ContainsKey(key) {
		panic(fmt.Errorf("%w: %v", ErrKeyNotFound, key))
	}
	if t.root.left == nil {
		t.root = t.root.right
	} else {
		right := t.root.right
		t.root = t.root.left
		t.splay(key) // every key on the left is smaller, so the maximum surfaces
		t.root.right = right
	}
	t.count--
}

func (t *Tree[K, V]) ContainsKey(key K) bool {
	t.splay(key)
	return t.root != nil && t.cmp(key, t.root.key) == 0
}

func (t *Tree[K, V]) GetValue(key K) (V, bool) {
	if t.ContainsKey(key) {
		return t.root.value, true
	}
	var zero V
	return zero, false
}

// SetValue replaces the value of a present key; an absent key panics.
func (t *Tree[K, V]) SetValue(key K, value V) {
	if !t.ContainsKey(key) {
		panic(fmt.Errorf("%w: %v", ErrKeyNotFound, key))
	}
	t.root.value = value
}

// NearestLessOrEqual returns the greatest key <= key.
func (t *Tree[K, V]) NearestLessOrEqual(key K) (K, bool) {
	if t.root == nil {
		var zero K
		return zero, false
	}
	t.splay(key)
	if t.cmp(t.root.key, key) <= 0 {
		return t.root.key, true
	}
	return t.surfaceMax(t.root.left)
}

// NearestLess returns the greatest key < key.
func (t *Tree[K, V]) NearestLess(key K) (K, bool) {
	if t.root == nil {
		var zero K
		return zero, false
	}
	t.splay(key)
	if t.cmp(t.root.key, key) < 0 {
		return t.root.key, true
	}
	return t.surfaceMax(t.root.left)
}

// NearestGreaterOrEqual returns the least key >= key.
func (t *Tree[K, V]) NearestGreaterOrEqual(key K) (K, bool) {
	if t.root == nil {
		var zero K
		return zero, false
	}
	t.splay(key)
	if t.cmp(t.root.key, key) >= 0 {
		return t.root.key, true
	}
	return t.surfaceMin(t.root.right)
}

// NearestGreater returns the least key > key.
func (t *Tree[K, V]) NearestGreater(key K) (K, bool) {
	if t.root == nil {
		var zero K
		return zero, false
	}
	t.splay(key)
	if t.cmp(t.root.key, key) > 0 {
		return t.root.key, true
	}
	return t.surfaceMin(t.root.right)
}

func (t *Tree[K, V]) surfaceMax(n *node[K, V]) (K, bool) {
	if n == nil {
		var zero K
		return zero, false
	}
	for n.right != nil {
		n = n.right
	}
	t.splay(n.key)
	return n.key, true
}

func (t *Tree[K, V]) surfaceMin(n *node[K, V]) (K, bool) {
	if n == nil {
		var zero K
		return zero, false
	}
	for n.left != nil {
		n = n.left
	}
	t.splay(n.key)
	return n.key, true
}

// Least returns the smallest entry and splays it to the root.
func (t *Tree[K, V]) Least() (K, V, bool) {
	if _, ok := t.surfaceMin(t.root); !ok {
		var k K
		var v V
		return k, v, false
	}
	return t.root.key, t.root.value, true
}

// Greatest returns the largest entry and splays it to the root.
func (t *Tree[K, V]) Greatest() (K, V, bool) {
	if _, ok := t.surfaceMax(t.root); !ok {
		var k K
		var v V
		return k, v, false
	}
	return t.root.key, t.root.value, true
}

// All yields entries in ascending key order without restructuring the tree.
// The tree must not be modified during iteration.
func (t *Tree[K, V]) All() iter.Seq2[K, V] {
	return func(yield func(K, V) bool) {
		var stack []*node[K, V]
		n := t.root
		for n != nil || len(stack) > 0 {
			for n != nil {
				stack = append(stack, n)
				n = n.left
			}
			n = stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			if !yield(n.key, n.value) {
				return
			}
			n = n.right
		}
	}
}

func (t *Tree[K, V]) rootKey() (K, bool) {
	if t.root == nil {
		var zero K
		return zero, false
	}
	return t.root.key, true
}
