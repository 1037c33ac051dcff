package splay

import (
	"math/rand"
	"slices"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// orderedMap is the surface shared by both tree implementations.
type orderedMap interface {
	Add(key int, value string)
	Remove(key int)
	ContainsKey(key int) bool
	GetValue(key int) (string, bool)
	SetValue(key int, value string)
	NearestLessOrEqual(key int) (int, bool)
	NearestLess(key int) (int, bool)
	NearestGreaterOrEqual(key int) (int, bool)
	NearestGreater(key int) (int, bool)
	Least() (int, string, bool)
	Greatest() (int, string, bool)
	Len() int
	rootKey() (int, bool)
}

func implementations() map[string]func() orderedMap {
	return map[string]func() orderedMap{
		"linked": func() orderedMap { return New[int, string]() },
		"array":  func() orderedMap { return NewArray[int, string](2, false) },
	}
}

func keysOf(m orderedMap) []int {
	var keys []int
	switch t := m.(type) {
	case *Tree[int, string]:
		for k := range t.All() {
			keys = append(keys, k)
		}
	case *ArrayTree[int, string]:
		for k := range t.All() {
			keys = append(keys, k)
		}
	}
	return keys
}

// reference bounds over a sorted slice
func refLE(keys []int, k int) (int, bool) {
	i := sort.SearchInts(keys, k+1)
	if i == 0 {
		return 0, false
	}
	return keys[i-1], true
}

func refLT(keys []int, k int) (int, bool) {
	i := sort.SearchInts(keys, k)
	if i == 0 {
		return 0, false
	}
	return keys[i-1], true
}

func refGE(keys []int, k int) (int, bool) {
	i := sort.SearchInts(keys, k)
	if i == len(keys) {
		return 0, false
	}
	return keys[i], true
}

func refGT(keys []int, k int) (int, bool) {
	i := sort.SearchInts(keys, k+1)
	if i == len(keys) {
		return 0, false
	}
	return keys[i], true
}

func TestRandomOperationsMatchReference(t *testing.T) {
	for name, mk := range implementations() {
		t.Run(name, func(t *testing.T) {
			rng := rand.New(rand.NewSource(11))
			m := mk()
			present := map[int]bool{}
			for step := 0; step < 3000; step++ {
				k := rng.Intn(200)
				if present[k] {
					if rng.Intn(2) == 0 {
						m.Remove(k)
						delete(present, k)
					}
				} else {
					m.Add(k, "v")
					present[k] = true
					root, _ := m.rootKey()
					require.Equal(t, k, root, "added key must be at root")
				}

				var sorted []int
				for key := range present {
					sorted = append(sorted, key)
				}
				sort.Ints(sorted)
				require.Equal(t, len(sorted), m.Len())

				q := rng.Intn(220) - 10
				require.Equal(t, present[q], m.ContainsKey(q))

				check := func(label string, got int, gotOK bool, want int, wantOK bool) {
					require.Equal(t, wantOK, gotOK, "%s(%d) found", label, q)
					if wantOK {
						require.Equal(t, want, got, "%s(%d)", label, q)
						root, _ := m.rootKey()
						require.Equal(t, want, root, "%s(%d) must splay bound to root", label, q)
					}
				}
				g, ok := m.NearestLessOrEqual(q)
				w, wok := refLE(sorted, q)
				check("NearestLessOrEqual", g, ok, w, wok)
				g, ok = m.NearestLess(q)
				w, wok = refLT(sorted, q)
				check("NearestLess", g, ok, w, wok)
				g, ok = m.NearestGreaterOrEqual(q)
				w, wok = refGE(sorted, q)
				check("NearestGreaterOrEqual", g, ok, w, wok)
				g, ok = m.NearestGreater(q)
				w, wok = refGT(sorted, q)
				check("NearestGreater", g, ok, w, wok)

				if step%100 == 0 {
					require.Equal(t, sorted, keysOf(m))
				}
			}
		})
	}
}

// The array tree composes NearestLess/NearestGreater from the or-equal
// queries; the linked tree computes them directly. Both must agree,
// including when the probe key is present.
func TestImplementationsAgreeOnStrictBounds(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	for trial := 0; trial < 50; trial++ {
		linked := New[int, string]()
		array := NewArray[int, string](4, false)
		var keys []int
		for i := 0; i < 60; i++ {
			k := rng.Intn(100) * 2
			if linked.ContainsKey(k) {
				continue
			}
			linked.Add(k, "")
			array.Add(k, "")
			keys = append(keys, k)
		}
		probes := append(slices.Clone(keys), -1, 0, 1, 199, 200, 201)
		for _, q := range probes {
			a, aok := linked.NearestLess(q)
			b, bok := array.NearestLess(q)
			require.Equal(t, aok, bok, "NearestLess(%d)", q)
			require.Equal(t, a, b, "NearestLess(%d)", q)
			a, aok = linked.NearestGreater(q)
			b, bok = array.NearestGreater(q)
			require.Equal(t, aok, bok, "NearestGreater(%d)", q)
			require.Equal(t, a, b, "NearestGreater(%d)", q)
		}
	}
}

func TestInsertThenRemoveAllLeavesEmpty(t *testing.T) {
	for name, mk := range implementations() {
		t.Run(name, func(t *testing.T) {
			m := mk()
			rng := rand.New(rand.NewSource(7))
			keys := rng.Perm(500)
			for _, k := range keys {
				m.Add(k, "x")
			}
			rng.Shuffle(len(keys), func(i, j int) { keys[i], keys[j] = keys[j], keys[i] })
			for _, k := range keys {
				m.Remove(k)
			}
			assert.Equal(t, 0, m.Len())
			_, _, ok := m.Least()
			assert.False(t, ok)
			_, ok = m.NearestGreaterOrEqual(0)
			assert.False(t, ok)
		})
	}
}

func TestValuesAndExtremes(t *testing.T) {
	for name, mk := range implementations() {
		t.Run(name, func(t *testing.T) {
			m := mk()
			m.Add(10, "ten")
			m.Add(5, "five")
			m.Add(20, "twenty")

			v, ok := m.GetValue(5)
			require.True(t, ok)
			assert.Equal(t, "five", v)
			_, ok = m.GetValue(6)
			assert.False(t, ok)

			m.SetValue(20, "TWENTY")
			v, _ = m.GetValue(20)
			assert.Equal(t, "TWENTY", v)

			k, v, ok := m.Least()
			require.True(t, ok)
			assert.Equal(t, 5, k)
			assert.Equal(t, "five", v)
			root, _ := m.rootKey()
			assert.Equal(t, 5, root)

			k, _, ok = m.Greatest()
			require.True(t, ok)
			assert.Equal(t, 20, k)
		})
	}
}

func TestMisusePanics(t *testing.T) {
	for name, mk := range implementations() {
		t.Run(name, func(t *testing.T) {
			m := mk()
			m.Add(1, "a")
			assert.PanicsWithError(t, "splay: duplicate key: 1", func() { m.Add(1, "b") })
			assert.PanicsWithError(t, "splay: key not found: 2", func() { m.Remove(2) })
			assert.Panics(t, func() { m.SetValue(3, "c") })
		})
	}
}

func TestArrayTreeGrowsAndLocks(t *testing.T) {
	grow := NewArray[int, int](2, false)
	for i := 0; i < 9; i++ {
		grow.Add(i, i*i)
	}
	assert.Equal(t, 16, grow.Cap())
	v, ok := grow.GetValue(7)
	require.True(t, ok)
	assert.Equal(t, 49, v)

	locked := NewArray[int, int](3, true)
	locked.Add(1, 1)
	locked.Add(2, 2)
	locked.Add(3, 3)
	assert.Panics(t, func() { locked.Add(4, 4) })

	// Removed slots are reused without growing.
	locked.Remove(2)
	locked.Add(4, 4)
	assert.Equal(t, 3, locked.Cap())
}

func TestCustomComparator(t *testing.T) {
	desc := NewFunc[int, struct{}](func(a, b int) int { return b - a })
	for _, k := range []int{3, 1, 2} {
		desc.Add(k, struct{}{})
	}
	var got []int
	for k := range desc.All() {
		got = append(got, k)
	}
	assert.Equal(t, []int{3, 2, 1}, got)
}

func BenchmarkTreeSequentialNearest(b *testing.B) {
	t := New[int, int]()
	for i := 0; i < 4096; i++ {
		t.Add(i*4, i)
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		t.NearestGreaterOrEqual((i * 3) % 16384)
	}
}
