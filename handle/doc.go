// Package handle provides generation-checked identifiers for native simulation objects.
//
// A handle names a slot in a native object table, never a pointer:
//
//	WorldID {Index1, Generation}
//	BodyID  {Index1, World0, Generation}
//	ShapeID {Index1, World0, Generation}
//	ChainID {Index1, World0, Generation}
//
// Index1 is 1-based so the zero value is the null handle. World0 is the 0-based
// slot of the owning world. Generation is bumped by the native layer every time
// a slot is reused, which makes a handle to a recycled slot detectably stale.
//
// # Identity, not liveness
//
// Equality, ordering and hashing are pure functions over the handle fields.
// They never consult the native layer:
//
//	a := handle.BodyID{Index1: 5, World0: 2, Generation: 3}
//	b := handle.BodyID{Index1: 5, World0: 2, Generation: 3}
//	handle.Bodies.Equal(a, b) // true, even if the body was destroyed
//
// A handle that compares equal can still be stale. Ask the native layer
// (native.Engine.BodyIsValid and friends) before trusting one, in particular
// handles embedded in end-touch events.
//
// # Ordered containers
//
// Comparer orders handles by World0, then Index1, then Generation, which is a
// strict total order consistent with Equal. Set keeps handles sorted and
// deduplicated:
//
//	var touched handle.Set[handle.ShapeID]
//	touched.Insert(ev.ShapeIDA)
//	for id := range touched.All() { ... }
package handle
