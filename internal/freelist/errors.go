package freelist

import "errors"

// Misuse of a free list is a programming error. These are panicked, wrapped
// with context, never returned.
var (
	// ErrDoubleFree indicates an item was pushed while already on the free list.
	ErrDoubleFree = errors.New("freelist: double free")

	// ErrNotFreed indicates a popped item was never pushed (corrupted block).
	ErrNotFreed = errors.New("freelist: popped item was not on the free list")

	// ErrSizeClass indicates an array whose length is not an exact power of two.
	ErrSizeClass = errors.New("freelist: array length is not a power of two")

	// ErrTooLarge indicates a request beyond the largest size class.
	ErrTooLarge = errors.New("freelist: requested length exceeds largest size class")
)
