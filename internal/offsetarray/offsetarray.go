// Package offsetarray provides an index-aligned view over an indicator series
// whose first values are missing because of warm-up.
//
// Global index i maps to storage[i-offset] for offset <= i < offset+len.
// Every other index has no value. Lookups outside that window never panic,
// which lets renderers walk global quote indices without branching on the
// warm-up boundary.
package offsetarray

import "klinechart/internal/model"

// OffsetArray is append-only. Copying the struct value yields a snapshot:
// later appends never change what an earlier copy observes, because existing
// entries are never rewritten and the copy keeps its own length.
type OffsetArray[T any] struct {
	offset  int
	storage []T
}

// New creates an empty array whose first value will land at global index offset.
// A negative offset is treated as zero.
func New[T any](offset int) *OffsetArray[T] {
	if offset < 0 {
		offset = 0
	}
	return &OffsetArray[T]{offset: offset}
}

// Empty returns an array with offset 0 and no values.
func Empty[T any]() OffsetArray[T] { return OffsetArray[T]{} }

// Offset returns the global index of the first stored value.
func (a OffsetArray[T]) Offset() int { return a.offset }

// Len returns the number of stored values.
func (a OffsetArray[T]) Len() int { return len(a.storage) }

// End returns the global index one past the last stored value.
func (a OffsetArray[T]) End() int { return a.offset + len(a.storage) }

// Span returns the global range [offset, offset+len).
func (a OffsetArray[T]) Span() model.Range {
	return model.Range{Lo: a.offset, Hi: a.End()}
}

// ValueAt returns the value at global index i, or false when i has none.
func (a OffsetArray[T]) ValueAt(i int) (T, bool) {
	j := i - a.offset
	if j < 0 || j >= len(a.storage) {
		var zero T
		return zero, false
	}
	return a.storage[j], true
}

// Last returns the most recent value.
func (a OffsetArray[T]) Last() (T, bool) {
	if len(a.storage) == 0 {
		var zero T
		return zero, false
	}
	return a.storage[len(a.storage)-1], true
}

// SliceAndRange intersects r with [offset, offset+len) and returns the
// overlapping values together with the global range they cover. With no
// overlap the slice is empty and the range has Lo == Hi.
//
// The returned slice aliases the array's storage and must not be modified.
func (a OffsetArray[T]) SliceAndRange(r model.Range) ([]T, model.Range) {
	eff := r.Intersect(a.Span())
	if eff.Empty() {
		return nil, model.Range{Lo: eff.Lo, Hi: eff.Lo}
	}
	lo, hi := eff.Lo-a.offset, eff.Hi-a.offset
	return a.storage[lo:hi:hi], eff
}

// Append grows the array by one value.
func (a *OffsetArray[T]) Append(v T) {
	a.storage = append(a.storage, v)
}

// Grow reserves room for n more values.
func (a *OffsetArray[T]) Grow(n int) {
	if n <= 0 || cap(a.storage)-len(a.storage) >= n {
		return
	}
	grown := make([]T, len(a.storage), len(a.storage)+n)
	copy(grown, a.storage)
	a.storage = grown
}
