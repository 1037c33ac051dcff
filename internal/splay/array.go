package splay

import (
	"cmp"
	"fmt"
	"iter"

	"github.com/cbegin/synthcore-go/internal/logger"
)

const nilIdx int32 = -1

type slot[K, V any] struct {
	key         K
	value       V
	left, right int32
}

// ArrayTree is a splay tree whose nodes live in one slice addressed by index.
// Slot 0 is the splay header; released slots are chained through left. The
// slice doubles when full unless the tree is locked, in which case
// exhausting capacity panics with ErrCapacity.
type ArrayTree[K, V any] struct {
	nodes  []slot[K, V]
	root   int32
	free   int32
	count  int
	locked bool
	cmp    func(a, b K) int
}

func NewArray[K cmp.Ordered, V any](capacity int, locked bool) *ArrayTree[K, V] {
	return NewArrayFunc[K, V](capacity, locked, cmp.Compare[K])
}

func NewArrayFunc[K, V any](capacity int, locked bool, compare func(a, b K) int) *ArrayTree[K, V] {
	if capacity < 1 {
		capacity = 1
	}
	t := &ArrayTree[K, V]{
		nodes:  make([]slot[K, V], capacity+1),
		root:   nilIdx,
		free:   nilIdx,
		locked: locked,
		cmp:    compare,
	}
	t.chainFree(1)
	return t
}

func (t *ArrayTree[K, V]) chainFree(from int) {
	for i := len(t.nodes) - 1; i >= from; i-- {
		t.nodes[i] = slot[K, V]{left: t.free, right: nilIdx}
		t.free = int32(i)
	}
}

func (t *ArrayTree[K, V]) Len() int { return t.count }

// Cap returns the number of node slots.
func (t *ArrayTree[K, V]) Cap() int { return len(t.nodes) - 1 }

func (t *ArrayTree[K, V]) alloc() int32 {
	if t.free == nilIdx {
		if t.locked {
			panic(fmt.Errorf("%w: %d", ErrCapacity, t.Cap()))
		}
		old := len(t.nodes)
		grown := make([]slot[K, V], 2*(old-1)+1)
		copy(grown, t.nodes)
		t.nodes = grown
		t.chainFree(old)
		logger.L.Debug("splay: array tree grew", "capacity", t.Cap())
	}
	i := t.free
	t.free = t.nodes[i].left
	return i
}

func (t *ArrayTree[K, V]) release(i int32) {
	t.nodes[i] = slot[K, V]{left: t.free, right: nilIdx}
	t.free = i
}

func (t *ArrayTree[K, V]) splay(key K) {
	x := t.root
	if x == nilIdx {
		return
	}
	n := t.nodes
	n[0].left, n[0].right = nilIdx, nilIdx
	l, r := int32(0), int32(0)
	for {
		c := t.cmp(key, n[x].key)
		if c < 0 {
			y := n[x].left
			if y == nilIdx {
				break
			}
			if t.cmp(key, n[y].key) < 0 {
				n[x].left = n[y].right
				n[y].right = x
				x = y
				if n[x].left == nilIdx {
					break
				}
			}
			n[r].left = x
			r = x
			x = n[x].left
		} else if c > 0 {
			y := n[x].right
			if y == nilIdx {
				break
			}
			if t.cmp(key, n[y].key) > 0 {
				n[x].right = n[y].left
				n[y].left = x
				x = y
				if n[x].right == nilIdx {
					break
				}
			}
			n[l].right = x
			l = x
			x = n[x].right
		} else {
			break
		}
	}
	n[l].right = n[x].left
	n[r].left = n[x].right
	n[x].left = n[0].right
	n[x].right = n[0].left
	t.root = x
}

func (t *ArrayTree[K, V]) Add(key K, value V) {
	if t.root != nilIdx {
		t.splay(key)
		if t.cmp(key, t.nodes[t.root].key) == 0 {
			panic(fmt.Errorf("%w: %v", ErrDuplicateKey, key))
		}
	}
	i := t.alloc()
	t.nodes[i] = slot[K, V]{key: key, value: value, left: nilIdx, right: nilIdx}
	if t.root != nilIdx {
		root := t.root
		if t.cmp(key, t.nodes[root].key) < 0 {
			t.nodes[i].left = t.nodes[root].left
			t.nodes[i].right = root
			t.nodes[root].left = nilIdx
		} else {
			t.nodes[i].right = t.nodes[root].right
			t.nodes[i].left = root
			t.nodes[root].right = nilIdx
		}
	}
	t.root = i
	t.count++
}

func (t *ArrayTree[K, V]) Remove(key K) {
	if !t.ContainsKey(key) {
		panic(fmt.Errorf("%w: %v", ErrKeyNotFound, key))
	}
	old := t.root
	if t.nodes[old].left == nilIdx {
		t.root = t.nodes[old].right
	} else {
		right := t.nodes[old].right
		t.root = t.nodes[old].left
		t.splay(key)
		t.nodes[t.root].right = right
	}
	t.release(old)
	t.count--
}

func (t *ArrayTree[K, V]) ContainsKey(key K) bool {
	t.splay(key)
	return t.root != nilIdx && t.cmp(key, t.nodes[t.root].key) == 0
}

func (t *ArrayTree[K, V]) GetValue(key K) (V, bool) {
	if t.ContainsKey(key) {
		return t.nodes[t.root].value, true
	}
	var zero V
	return zero, false
}

func (t *ArrayTree[K, V]) SetValue(key K, value V) {
	if !t.ContainsKey(key) {
		panic(fmt.Errorf("%w: %v", ErrKeyNotFound, key))
	}
	t.nodes[t.root].value = value
}

func (t *ArrayTree[K, V]) NearestLessOrEqual(key K) (K, bool) {
	var zero K
	if t.root == nilIdx {
		return zero, false
	}
	t.splay(key)
	if t.cmp(t.nodes[t.root].key, key) <= 0 {
		return t.nodes[t.root].key, true
	}
	return t.surfaceMax(t.nodes[t.root].left)
}

// NearestLess composes NearestLessOrEqual with one predecessor step when the
// bound found equals key.
func (t *ArrayTree[K, V]) NearestLess(key K) (K, bool) {
	k, ok := t.NearestLessOrEqual(key)
	if !ok || t.cmp(k, key) < 0 {
		return k, ok
	}
	return t.surfaceMax(t.nodes[t.root].left)
}

func (t *ArrayTree[K, V]) NearestGreaterOrEqual(key K) (K, bool) {
	var zero K
	if t.root == nilIdx {
		return zero, false
	}
	t.splay(key)
	if t.cmp(t.nodes[t.root].key, key) >= 0 {
		return t.nodes[t.root].key, true
	}
	return t.surfaceMin(t.nodes[t.root].right)
}

// NearestGreater composes NearestGreaterOrEqual with one successor step.
func (t *ArrayTree[K, V]) NearestGreater(key K) (K, bool) {
	k, ok := t.NearestGreaterOrEqual(key)
	if !ok || t.cmp(k, key) > 0 {
		return k, ok
	}
	return t.surfaceMin(t.nodes[t.root].right)
}

func (t *ArrayTree[K, V]) surfaceMax(i int32) (K, bool) {
	var zero K
	if i == nilIdx {
		return zero, false
	}
	for t.nodes[i].right != nilIdx {
		i = t.nodes[i].right
	}
	k := t.nodes[i].key
	t.splay(k)
	return k, true
}

func (t *ArrayTree[K, V]) surfaceMin(i int32) (K, bool) {
	var zero K
	if i == nilIdx {
		return zero, false
	}
	for t.nodes[i].left != nilIdx {
		i = t.nodes[i].left
	}
	k := t.nodes[i].key
	t.splay(k)
	return k, true
}

func (t *ArrayTree[K, V]) Least() (K, V, bool) {
	if _, ok := t.surfaceMin(t.root); !ok {
		var k K
		var v V
		return k, v, false
	}
	return t.nodes[t.root].key, t.nodes[t.root].value, true
}

func (t *ArrayTree[K, V]) Greatest() (K, V, bool) {
	if _, ok := t.surfaceMax(t.root); !ok {
		var k K
		var v V
		return k, v, false
	}
	return t.nodes[t.root].key, t.nodes[t.root].value, true
}

// All yields entries in ascending key order. The tree must not be modified
// during iteration.
func (t *ArrayTree[K, V]) All() iter.Seq2[K, V] {
	return func(yield func(K, V) bool) {
		var stack []int32
		i := t.root
		for i != nilIdx || len(stack) > 0 {
			for i != nilIdx {
				stack = append(stack, i)
				i = t.nodes[i].left
			}
			i = stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			if !yield(t.nodes[i].key, t.nodes[i].value) {
				return
			}
			i = t.nodes[i].right
		}
	}
}

func (t *ArrayTree[K, V]) rootKey() (K, bool) {
	if t.root == nilIdx {
		var zero K
		return zero, false
	}
	return t.nodes[t.root].key, true
}
