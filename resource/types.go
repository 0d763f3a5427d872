package resource

import "fmt"

// Slot addresses an arena entry. Index1 is 1-based; 0 is reserved and never
// valid. Generation changes every time the entry is dropped, so a Slot kept
// after its entry died will not match the entry that reuses the index.
type Slot struct {
	Index1     uint32
	Generation uint32
}

// IsNull reports whether s is the reserved zero slot.
func (s Slot) IsNull() bool { return s.Index1 == 0 }

// Pack folds the slot into one integer, suitable as an opaque context value.
func (s Slot) Pack() uint64 {
	return uint64(s.Generation)<<32 | uint64(s.Index1)
}

// Unpack reverses Pack.
func Unpack(v uint64) Slot {
	return Slot{Index1: uint32(v), Generation: uint32(v >> 32)}
}

func (s Slot) String() string {
	return fmt.Sprintf("slot(%d:%d)", s.Index1, s.Generation)
}

// EventType classifies lifecycle notifications.
type EventType uint8

const (
	EventCreated EventType = iota
	EventDropped
)

func (t EventType) String() string {
	switch t {
	case EventCreated:
		return "created"
	case EventDropped:
		return "dropped"
	}
	return "unknown"
}

// Event is a lifecycle notification for one entry.
type Event[T any] struct {
	Value T
	Slot  Slot
	Type  EventType
}

// Observer receives notifications about entry lifecycle events.
type Observer[T any] interface {
	OnSlotEvent(Event[T])
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc[T any] func(Event[T])

func (f ObserverFunc[T]) OnSlotEvent(e Event[T]) { f(e) }

// Dropper is optionally implemented by values that need cleanup when their
// entry is dropped or the arena is closed.
type Dropper interface {
	Drop()
}
