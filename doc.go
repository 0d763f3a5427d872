// Package b2runtime provides a Go binding layer over a Box2D-style native
// physics simulation.
//
// The library keeps native object identity and liveness straight across the
// boundary: handles are generation-checked values, event arrays are read in
// place through leased views, and query callbacks cross the boundary through
// a fixed trampoline that contains host failures.
//
// # Architecture Overview
//
// The library is organized into several packages with distinct responsibilities:
//
//	b2runtime/           Root package with the simulation heap interfaces
//	├── runtime/         Managed facade: worlds, ownership checks, queries
//	├── handle/          World, body, shape and chain handles with comparers
//	├── event/           Zero-copy leased views over native event arrays
//	├── callback/        Cast and mover callback adapter, registry, trampolines
//	├── native/          Definitions and the Engine contract the facade drives
//	├── sim/             Reference Engine: shapes, stepping, events, queries
//	├── geom/            Vectors, rotations, shapes and manifolds
//	├── abi/             Native record descriptors and layout verification
//	├── resource/        Generational slot arena backing every handle table
//	├── scene/           TOML and YAML world descriptions
//	├── script/          Lua cast filters
//	├── errors/          Structured error types for debugging
//	└── internal/heap/   wazero-backed per-world event heap
//
// # Quick Start
//
// Create a world, add bodies and step it:
//
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
//	def := native.DefaultBodyDef()
//	def.Type = native.DynamicBody
//	def.Position = geom.V(0, 4)
//	ball, _ := w.CreateBody(def)
//	w.CreateCircle(ball, native.DefaultShapeDef(), geom.Circle{Radius: 0.5})
//
//	for i := 0; i < 60; i++ {
//	    if err := w.Step(1.0/60, 4); err != nil {
//	        log.Fatal(err)
//	    }
//	}
//
// # Handles
//
// Handles compare by value. Two handles are equal exactly when slot index,
// world slot and generation match; a destroyed object's handle stays a
// usable map key but the native layer rejects it as stale.
//
// # Events
//
// Views returned after a step alias native memory and expire with the next
// step or when the world is destroyed. Expired views return an error rather
// than reading freed memory.
//
// # Thread Safety
//
// Runtime is safe for concurrent use. A World should be driven by a single
// goroutine, or access must be synchronized.
//
// # Memory Model
//
// Each world writes its events into a wazero linear memory that is reset
// every step. Linear memory only grows; a world that once produced many
// events keeps that capacity until it is destroyed.
package b2runtime
