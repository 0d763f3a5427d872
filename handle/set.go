package handle

import (
	"iter"
	"slices"
)

// Set is a sorted, deduplicated collection of handles. The zero value is an
// empty set. Not safe for concurrent mutation.
type Set[T Key[T]] struct {
	items []T
}

// NewSet returns a set containing ids.
func NewSet[T Key[T]](ids ...T) *Set[T] {
	s := &Set[T]{items: make([]T, 0, len(ids))}
	for _, id := range ids {
		s.Insert(id)
	}
	return s
}

func (s *Set[T]) search(id T) (int, bool) {
	return slices.BinarySearchFunc(s.items, id, func(a, b T) int { return a.Compare(b) })
}

// Insert adds id and reports whether it was not already present.
func (s *Set[T]) Insert(id T) bool {
	i, found := s.search(id)
	if found {
		return false
	}
	s.items = slices.Insert(s.items, i, id)
	return true
}

// Remove deletes id and reports whether it was present.
func (s *Set[T]) Remove(id T) bool {
	i, found := s.search(id)
	if !found {
		return false
	}
	s.items = slices.Delete(s.items, i, i+1)
	return true
}

func (s *Set[T]) Contains(id T) bool {
	_, found := s.search(id)
	return found
}

func (s *Set[T]) Len() int { return len(s.items) }

// Clear removes every handle, keeping capacity.
func (s *Set[T]) Clear() { s.items = s.items[:0] }

// All iterates in ascending order.
func (s *Set[T]) All() iter.Seq[T] {
	return func(yield func(T) bool) {
		for _, id := range s.items {
			if !yield(id) {
				return
			}
		}
	}
}

// Slice returns a sorted copy.
func (s *Set[T]) Slice() []T {
	return slices.Clone(s.items)
}
