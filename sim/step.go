package sim

import (
	"math"
	"unsafe"

	"go.uber.org/zap"

	"github.com/wippyai/b2-runtime/errors"
	"github.com/wippyai/b2-runtime/event"
	"github.com/wippyai/b2-runtime/geom"
	"github.com/wippyai/b2-runtime/handle"
	"github.com/wippyai/b2-runtime/internal/heap"
	"github.com/wippyai/b2-runtime/native"
)

const positionCorrection = 0.2

// Step advances a world and publishes its events. Event bundles from the
// previous step are invalid once Step returns.
func (e *Engine) Step(id handle.WorldID, timeStep float32, subSteps int) error {
	if !finite(timeStep) || timeStep < 0 {
		return errors.InvalidInput(errors.PhaseNative, "time step must be finite and not negative")
	}
	w, err := e.lockWorld(id)
	if err != nil {
		return err
	}
	defer w.mu.Unlock()

	subSteps = max(subSteps, 1)
	clear(w.approach)
	if timeStep > 0 {
		h := timeStep / float32(subSteps)
		for i := 0; i < subSteps; i++ {
			w.integrate(h)
			w.solveContacts(h)
		}
	}
	w.steps++

	moves := w.updateSleep(timeStep)
	begins, ends, hits := w.updateContacts()
	sensorBegins, sensorEnds := w.updateSensors()

	if err := w.publish(moves, begins, ends, hits, sensorBegins, sensorEnds); err != nil {
		return err
	}

	Logger().Debug("world stepped",
		zap.Stringer("world", id),
		zap.Uint64("step", w.steps),
		zap.Int("moves", len(moves)),
		zap.Int("begin", len(begins)),
		zap.Int("end", len(ends)),
		zap.Int("hit", len(hits)),
		zap.Uint32("heap_bytes", w.heap.Used()))
	return nil
}

func (w *world) integrate(h float32) {
	for _, b := range w.bodies {
		if b.typ == native.StaticBody || !b.awake {
			continue
		}
		if b.dynamic() {
			b.v = b.v.Add(w.def.Gravity.Mul(b.gravityScale * h))
			b.v = b.v.Mul(1 / (1 + h*b.damping))
		}
		b.xf.P = b.xf.P.Add(b.v.Mul(h))
		if b.angular != 0 {
			b.xf.Q = b.xf.Q.Integrate(b.angular * h)
		}
	}
}

// collidable reports whether a and b may form a solid contact.
func collidable(a, b *shape) bool {
	if a.body == b.body || a.def.IsSensor || b.def.IsSensor {
		return false
	}
	if !a.body.dynamic() && !b.body.dynamic() {
		return false
	}
	return native.ShouldCollide(a.def.Filter, b.def.Filter)
}

// solveContacts pushes overlapping shapes apart and removes approaching
// velocity. Pairs are visited in shape creation order.
func (w *world) solveContacts(h float32) {
	for i, a := range w.shapes {
		for _, b := range w.shapes[i+1:] {
			if !collidable(a, b) {
				continue
			}
			ba, bb := a.body, b.body
			if !ba.awake && !bb.awake {
				continue
			}
			ca, cb := a.convex(), b.convex()
			if !ca.aabb().Overlaps(cb.aabb()) {
				continue
			}
			c, ok := collide(&ca, &cb, 0)
			if !ok || c.separation >= 0 {
				continue
			}
			invSum := ba.invMass + bb.invMass
			if invSum == 0 {
				continue
			}
			if !ba.awake {
				ba.wake()
			}
			if !bb.awake {
				bb.wake()
			}

			n := c.normal
			vn := bb.v.Sub(ba.v).Dot(n)
			if vn < 0 {
				key := makePair(a, b)
				w.approach[key] = max(w.approach[key], -vn)

				restitution := max(a.def.Restitution, b.def.Restitution)
				jn := -(1 + restitution) * vn / invSum
				ba.v = ba.v.Sub(n.Mul(jn * ba.invMass))
				bb.v = bb.v.Add(n.Mul(jn * bb.invMass))

				t := geom.LeftPerp(n)
				vt := bb.v.Sub(ba.v).Dot(t)
				friction := float32(math.Sqrt(float64(a.def.Friction * b.def.Friction)))
				jt := -vt / invSum
				limit := friction * jn
				jt = max(-limit, min(jt, limit))
				ba.v = ba.v.Sub(t.Mul(jt * ba.invMass))
				bb.v = bb.v.Add(t.Mul(jt * bb.invMass))
			}

			depth := -c.separation - w.cfg.LinearSlop
			if depth > 0 {
				push := min(positionCorrection*depth, w.def.MaxContactPushSpeed*h) / invSum
				ba.xf.P = ba.xf.P.Sub(n.Mul(push * ba.invMass))
				bb.xf.P = bb.xf.P.Add(n.Mul(push * bb.invMass))
			}
		}
	}
}

// updateSleep advances sleep timers and returns the move events of bodies
// that were awake during the step.
func (w *world) updateSleep(dt float32) []event.BodyMoveEvent {
	var moves []event.BodyMoveEvent
	for _, b := range w.bodies {
		if b.typ == native.StaticBody || !b.awake {
			continue
		}
		fell := false
		speed := b.v.Len()
		if !w.cfg.DisableSleep && speed < w.cfg.SleepThreshold && b.angular == 0 {
			b.sleepTime += dt
			if b.sleepTime >= w.cfg.TimeToSleep {
				b.awake = false
				b.v = geom.Vec2{}
				fell = true
			}
		} else {
			b.sleepTime = 0
		}
		moves = append(moves, event.BodyMoveEvent{Transform: b.xf, BodyID: b.id, FellAsleep: fell})
	}
	return moves
}

func contactEvents(a, b *shape) bool {
	return a.def.EnableContactEvents || b.def.EnableContactEvents
}

func hitEvents(a, b *shape) bool {
	return a.def.EnableHitEvents || b.def.EnableHitEvents
}

// updateContacts finds touching pairs and diffs them against the previous
// step. End events queued by destroys come first.
func (w *world) updateContacts() (begins []event.ContactBeginTouchEvent, ends []event.ContactEndTouchEvent, hits []event.ContactHitEvent) {
	ends = append(ends, w.pendingEnds...)
	w.pendingEnds = w.pendingEnds[:0]

	margin := w.cfg.speculativeDistance()
	current := make(map[pairKey]bool, len(w.touching))
	for i, a := range w.shapes {
		for _, b := range w.shapes[i+1:] {
			if !collidable(a, b) {
				continue
			}
			ca, cb := a.convex(), b.convex()
			if !ca.aabb().Inflate(margin).Overlaps(cb.aabb()) {
				continue
			}
			c, ok := collide(&ca, &cb, margin)
			if !ok {
				continue
			}

			key := pairKey{a: a, b: b}
			events := contactEvents(a, b)
			current[key] = events

			if _, was := w.touching[key]; !was && events {
				begins = append(begins, event.ContactBeginTouchEvent{
					ShapeIDA: a.id,
					ShapeIDB: b.id,
					Manifold: manifold(a, b, c),
				})
			}
			if speed := w.approach[key]; speed > w.def.ContactHitEventThreshold && hitEvents(a, b) {
				hits = append(hits, event.ContactHitEvent{
					ShapeIDA:      a.id,
					ShapeIDB:      b.id,
					Point:         c.point,
					Normal:        c.normal,
					ApproachSpeed: speed,
				})
			}
		}
	}

	for i, a := range w.shapes {
		for _, b := range w.shapes[i+1:] {
			key := pairKey{a: a, b: b}
			events, was := w.touching[key]
			if !was {
				continue
			}
			if _, still := current[key]; !still && events {
				ends = append(ends, event.ContactEndTouchEvent{ShapeIDA: a.id, ShapeIDB: b.id})
			}
		}
	}
	w.touching = current
	return begins, ends, hits
}

func manifold(a, b *shape, c contactResult) geom.Manifold {
	m := geom.Manifold{Normal: c.normal, PointCount: 1}
	m.Points[0] = geom.ManifoldPoint{
		Point:          c.point,
		AnchorA:        c.point.Sub(a.body.xf.P),
		AnchorB:        c.point.Sub(b.body.xf.P),
		Separation:     c.separation,
		NormalVelocity: b.body.v.Sub(a.body.v).Dot(c.normal),
	}
	return m
}

// sensing reports whether visitor is seen by sensor.
func sensing(sensor, visitor *shape) bool {
	if !sensor.def.IsSensor || visitor.def.IsSensor {
		return false
	}
	if sensor.body == visitor.body || !sensor.def.EnableSensorEvents || !visitor.def.EnableSensorEvents {
		return false
	}
	return native.ShouldCollide(sensor.def.Filter, visitor.def.Filter)
}

// updateSensors finds shapes overlapping sensors and diffs them against the
// previous step.
func (w *world) updateSensors() (begins []event.SensorBeginTouchEvent, ends []event.SensorEndTouchEvent) {
	ends = append(ends, w.pendingSensorEnds...)
	w.pendingSensorEnds = w.pendingSensorEnds[:0]

	current := make(map[pairKey]struct{}, len(w.sensing))
	for _, s := range w.shapes {
		if !s.def.IsSensor {
			continue
		}
		cs := s.convex()
		box := cs.aabb()
		for _, v := range w.shapes {
			if !sensing(s, v) {
				continue
			}
			cv := v.convex()
			if !box.Overlaps(cv.aabb()) {
				continue
			}
			if _, _, d := surfaceDistance(&cs, &cv); d >= 0 {
				continue
			}
			key := makePair(s, v)
			current[key] = struct{}{}
			if _, was := w.sensing[key]; !was {
				begins = append(begins, event.SensorBeginTouchEvent{SensorShapeID: s.id, VisitorShapeID: v.id})
			}
		}
	}

	for _, s := range w.shapes {
		if !s.def.IsSensor {
			continue
		}
		for _, v := range w.shapes {
			key := makePair(s, v)
			if _, was := w.sensing[key]; !was {
				continue
			}
			if _, still := current[key]; !still {
				ends = append(ends, event.SensorEndTouchEvent{SensorShapeID: s.id, VisitorShapeID: v.id})
			}
		}
	}
	w.sensing = current
	return begins, ends
}

// publish writes the step's events into the heap. Addresses are taken after
// the last allocation since growing the memory can move it.
func (w *world) publish(
	moves []event.BodyMoveEvent,
	begins []event.ContactBeginTouchEvent,
	ends []event.ContactEndTouchEvent,
	hits []event.ContactHitEvent,
	sensorBegins []event.SensorBeginTouchEvent,
	sensorEnds []event.SensorEndTouchEvent,
) error {
	w.heap.Reset()
	w.bodyEvents = event.RawBodyEvents{}
	w.contactEvents = event.RawContactEvents{}
	w.sensorEvents = event.RawSensorEvents{}

	var offs [6]uint32
	var err error
	if offs[0], err = heap.Store(w.heap, moves); err != nil {
		return err
	}
	if offs[1], err = heap.Store(w.heap, begins); err != nil {
		return err
	}
	if offs[2], err = heap.Store(w.heap, ends); err != nil {
		return err
	}
	if offs[3], err = heap.Store(w.heap, hits); err != nil {
		return err
	}
	if offs[4], err = heap.Store(w.heap, sensorBegins); err != nil {
		return err
	}
	if offs[5], err = heap.Store(w.heap, sensorEnds); err != nil {
		return err
	}

	w.bodyEvents = event.RawBodyEvents{
		MoveEvents: w.pointer(offs[0], len(moves)),
		MoveCount:  int32(len(moves)),
	}
	w.contactEvents = event.RawContactEvents{
		BeginEvents: w.pointer(offs[1], len(begins)),
		EndEvents:   w.pointer(offs[2], len(ends)),
		HitEvents:   w.pointer(offs[3], len(hits)),
		BeginCount:  int32(len(begins)),
		EndCount:    int32(len(ends)),
		HitCount:    int32(len(hits)),
	}
	w.sensorEvents = event.RawSensorEvents{
		BeginEvents: w.pointer(offs[4], len(sensorBegins)),
		EndEvents:   w.pointer(offs[5], len(sensorEnds)),
		BeginCount:  int32(len(sensorBegins)),
		EndCount:    int32(len(sensorEnds)),
	}
	return nil
}

func (w *world) pointer(off uint32, n int) unsafe.Pointer {
	if n == 0 {
		return nil
	}
	return w.heap.Pointer(off)
}
