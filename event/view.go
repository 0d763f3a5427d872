package event

import (
	"iter"
	"sync/atomic"
	"unsafe"

	"github.com/wippyai/b2-runtime/errors"
)

// Lease tracks the step epoch that views borrowed from a world belong to.
type Lease struct {
	epoch atomic.Uint64
}

// NewLease returns a lease at epoch 0.
func NewLease() *Lease {
	return &Lease{}
}

// Epoch returns the current epoch.
func (l *Lease) Epoch() uint64 {
	return l.epoch.Load()
}

// Expire ends the current epoch and returns the new one. Views bound to any
// earlier epoch become invalid.
func (l *Lease) Expire() uint64 {
	return l.epoch.Add(1)
}

// View is a read-only window over count records of type T living in native
// memory. The zero View is empty and valid.
type View[T any] struct {
	data  *T
	count int
	lease *Lease
	epoch uint64
}

// FromNative wraps a native {pointer, count} pair without copying.
// A nil pointer is accepted only when count is zero.
func FromNative[T any](ptr unsafe.Pointer, count int) (View[T], error) {
	return FromNativeLeased[T](ptr, count, nil)
}

// FromNativeLeased wraps a native pair and binds the view to the lease's
// current epoch.
func FromNativeLeased[T any](ptr unsafe.Pointer, count int, lease *Lease) (View[T], error) {
	if count < 0 {
		return View[T]{}, errors.InvalidBuffer(nil, count, "negative count")
	}
	if count > 0 && ptr == nil {
		return View[T]{}, errors.InvalidBuffer(nil, count, "nil pointer with non-zero count")
	}
	v := View[T]{count: count, lease: lease}
	if count > 0 {
		v.data = (*T)(ptr)
	}
	if lease != nil {
		v.epoch = lease.Epoch()
	}
	return v, nil
}

// Len returns the number of records. It stays readable after expiry.
func (v View[T]) Len() int { return v.count }

// Valid reports whether the view may still be read.
func (v View[T]) Valid() bool {
	return v.lease == nil || v.lease.Epoch() == v.epoch
}

// Epoch returns the step epoch the view was bound to, 0 for raw views.
func (v View[T]) Epoch() uint64 { return v.epoch }

// AsSlice returns the bounds-checked sequence over the records.
func (v View[T]) AsSlice() Slice[T] {
	return Slice[T]{v: v}
}

func (v View[T]) check() error {
	if v.Valid() {
		return nil
	}
	return errors.ViewExpired(nil, v.epoch, v.lease.Epoch())
}

func (v View[T]) raw() []T {
	if v.count == 0 {
		return nil
	}
	return unsafe.Slice(v.data, v.count)
}

// Slice is the sequence form of a View. Elements are returned by value;
// there is no way to write through a Slice.
type Slice[T any] struct {
	v View[T]
}

// Len returns the number of records.
func (s Slice[T]) Len() int { return s.v.count }

// At returns the record at index i.
func (s Slice[T]) At(i int) (T, error) {
	var zero T
	if err := s.v.check(); err != nil {
		return zero, err
	}
	if i < 0 || i >= s.v.count {
		return zero, errors.IndexOutOfRange(errors.PhaseView, nil, i, s.v.count)
	}
	return s.v.raw()[i], nil
}

// All yields records in storage order. Iteration ends early if the view
// expires while it is running.
func (s Slice[T]) All() iter.Seq2[int, T] {
	return func(yield func(int, T) bool) {
		for i := 0; i < s.v.count; i++ {
			if !s.v.Valid() {
				return
			}
			if !yield(i, s.v.raw()[i]) {
				return
			}
		}
	}
}

// AppendTo copies every record into dst. This is the only way to keep event
// data past the end of the step.
func (s Slice[T]) AppendTo(dst []T) ([]T, error) {
	if err := s.v.check(); err != nil {
		return dst, err
	}
	return append(dst, s.v.raw()...), nil
}
