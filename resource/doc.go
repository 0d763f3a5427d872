// Package resource provides generation-checked slot arenas.
//
// An Arena maps a Slot (1-based index plus generation) to a value. Dropping
// an entry frees its index for reuse and bumps the generation, so any Slot
// still held for the old entry stops resolving:
//
//	bodies := resource.NewArena[*body]("body")
//
//	s, err := bodies.Create(b)
//	b, ok := bodies.Get(s)       // ok
//	bodies.Drop(s)
//	_, ok = bodies.Get(s)        // !ok, generation moved on
//
//	s2, _ := bodies.Create(other) // s2.Index1 == s.Index1, newer generation
//
// The native layer keeps one arena per object kind and turns slots into
// handle triples. The callback package uses an arena to hand opaque context
// keys across the boundary: Slot.Pack folds a slot into one integer and a
// stale key fails the generation check instead of reaching a released
// closure.
//
// # Observers
//
// Register observers to track entry lifecycle:
//
//	bodies.Subscribe(resource.ObserverFunc[*body](func(e resource.Event[*body]) {
//	    log.Printf("%s %s", e.Slot, e.Type)
//	}))
//
// Values implementing Dropper are notified when their entry is dropped or the
// arena is closed.
package resource
