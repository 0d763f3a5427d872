// Package runtime is the managed facade over a native simulation layer.
//
// # Quick Start
//
//	ctx := context.Background()
//	rt, err := runtime.New(ctx, nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer rt.Close()
//
//	w, err := rt.CreateWorld(native.DefaultWorldDef())
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	ground, _ := w.CreateBody(native.DefaultBodyDef())
//	w.CreatePolygon(ground, native.DefaultShapeDef(), geom.MakeBox(10, 0.5))
//
//	for i := 0; i < 60; i++ {
//	    w.Step(1.0/60, 4)
//	}
//
// # Handles
//
// Bodies, shapes and chains are plain value handles. They are safe to copy,
// compare with == and use as map keys; handle.Bodies and friends provide an
// ordering. A handle says nothing about liveness. Only the native layer
// knows, and it answers with a StaleHandle error when a handle's generation
// is out of date. The facade adds one check of its own: a handle used
// against a world whose slot it does not carry is rejected with CrossWorld.
//
// # Events
//
// After Step, Events returns views over arrays the native layer owns. The
// views are leased to the step: once the world steps again or is destroyed,
// reading them returns ViewExpired instead of touching freed memory. Copy
// what must outlive the step with Slice.AppendTo.
//
//	ev, _ := w.Events()
//	for _, begin := range ev.Contact.Begin.AsSlice().All() {
//	    fmt.Println(begin.ShapeIDA, begin.ShapeIDB)
//	}
//
// # Queries
//
// Casts take a callback.Func built with one of four context strategies. The
// native loop calls back through a fixed trampoline with an integer key, so
// no Go pointer crosses the boundary. A panic or NaN inside the callback
// terminates the query and comes back as its error.
//
//	var closest callback.Closest
//	stats, err := w.CastRay(in, callback.ClosestHit(&closest))
//
// # Thread Safety
//
// A World must be driven by one goroutine at a time. Different worlds may
// be stepped and queried concurrently. Runtime methods are safe for
// concurrent use.
package runtime
