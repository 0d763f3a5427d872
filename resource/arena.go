package resource

import (
	"sync"

	"github.com/wippyai/b2-runtime/errors"
)

// Arena is a slot table with generation checks. Freed indices are reused
// last-in first-out; each reuse carries a newer generation.
type Arena[T any] struct {
	name      string
	entries   []entry[T]
	freeList  []uint32
	observers []Observer[T]
	mu        sync.RWMutex
	obsMu     sync.RWMutex
	live      int
	closed    bool
}

type entry[T any] struct {
	value      T
	generation uint32
	live       bool
}

// NewArena creates an empty arena. name appears in errors.
func NewArena[T any](name string) *Arena[T] {
	return &Arena[T]{
		name:     name,
		entries:  make([]entry[T], 0, 64),
		freeList: make([]uint32, 0, 16),
	}
}

// Name returns the arena's name.
func (a *Arena[T]) Name() string { return a.name }

// Create stores value and returns its slot.
func (a *Arena[T]) Create(value T) (Slot, error) {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return Slot{}, errors.Closed(errors.PhaseNative, a.name)
	}

	var s Slot
	if n := len(a.freeList); n > 0 {
		idx := a.freeList[n-1]
		a.freeList = a.freeList[:n-1]
		e := &a.entries[idx-1]
		e.value = value
		e.live = true
		s = Slot{Index1: idx, Generation: e.generation}
	} else {
		a.entries = append(a.entries, entry[T]{value: value, generation: 1, live: true})
		s = Slot{Index1: uint32(len(a.entries)), Generation: 1}
	}
	a.live++
	a.mu.Unlock()

	a.notify(Event[T]{Type: EventCreated, Slot: s, Value: value})
	return s, nil
}

// Get returns the value in s if s is still the live occupant of its index.
func (a *Arena[T]) Get(s Slot) (T, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	e := a.lookup(s)
	if e == nil {
		var zero T
		return zero, false
	}
	return e.value, true
}

// Set replaces the value of a live slot.
func (a *Arena[T]) Set(s Slot, value T) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	e := a.lookup(s)
	if e == nil {
		return false
	}
	e.value = value
	return true
}

// Valid reports whether s names a live entry.
func (a *Arena[T]) Valid(s Slot) bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.lookup(s) != nil
}

// Generation returns the generation currently stored at index1 and whether
// the entry is live. Dead indices report the generation the next occupant
// will receive.
func (a *Arena[T]) Generation(index1 uint32) (uint32, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	if index1 == 0 || int(index1) > len(a.entries) {
		return 0, false
	}
	e := a.entries[index1-1]
	return e.generation, e.live
}

// Drop removes the entry in s and returns its value. Stale or unknown slots
// return false and leave the arena untouched.
func (a *Arena[T]) Drop(s Slot) (T, bool) {
	a.mu.Lock()
	e := a.lookup(s)
	if e == nil {
		a.mu.Unlock()
		var zero T
		return zero, false
	}

	value := e.value
	var zero T
	e.value = zero
	e.live = false
	e.generation++
	if e.generation == 0 {
		e.generation = 1
	}
	a.freeList = append(a.freeList, s.Index1)
	a.live--
	a.mu.Unlock()

	if d, ok := any(value).(Dropper); ok {
		d.Drop()
	}
	a.notify(Event[T]{Type: EventDropped, Slot: s, Value: value})
	return value, true
}

// Len returns the number of live entries.
func (a *Arena[T]) Len() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.live
}

// Cap returns the number of indices ever allocated.
func (a *Arena[T]) Cap() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.entries)
}

// Each visits live entries in index order until fn returns false.
// fn must not modify the arena.
func (a *Arena[T]) Each(fn func(Slot, T) bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	for i, e := range a.entries {
		if !e.live {
			continue
		}
		if !fn(Slot{Index1: uint32(i + 1), Generation: e.generation}, e.value) {
			return
		}
	}
}

// Slots returns the live slots in index order.
func (a *Arena[T]) Slots() []Slot {
	out := make([]Slot, 0, a.Len())
	a.Each(func(s Slot, _ T) bool {
		out = append(out, s)
		return true
	})
	return out
}

// Clear drops every live entry.
func (a *Arena[T]) Clear() {
	for _, s := range a.Slots() {
		a.Drop(s)
	}
}

// Subscribe adds an observer for lifecycle events.
func (a *Arena[T]) Subscribe(o Observer[T]) {
	a.obsMu.Lock()
	defer a.obsMu.Unlock()
	a.observers = append(a.observers, o)
}

// Unsubscribe removes an observer. o must have a comparable dynamic type;
// an ObserverFunc cannot be unsubscribed.
func (a *Arena[T]) Unsubscribe(o Observer[T]) {
	a.obsMu.Lock()
	defer a.obsMu.Unlock()
	for i, obs := range a.observers {
		if obs == o {
			a.observers = append(a.observers[:i], a.observers[i+1:]...)
			return
		}
	}
}

// Close drops every live entry and rejects further Create calls.
func (a *Arena[T]) Close() error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return nil
	}
	a.closed = true
	a.mu.Unlock()

	a.Clear()
	return nil
}

func (a *Arena[T]) lookup(s Slot) *entry[T] {
	if s.Index1 == 0 || int(s.Index1) > len(a.entries) {
		return nil
	}
	e := &a.entries[s.Index1-1]
	if !e.live || e.generation != s.Generation {
		return nil
	}
	return e
}

func (a *Arena[T]) notify(e Event[T]) {
	a.obsMu.RLock()
	defer a.obsMu.RUnlock()
	for _, o := range a.observers {
		o.OnSlotEvent(e)
	}
}
