package sim

import (
	"math"
	"sync"

	"github.com/wippyai/b2-runtime/event"
	"github.com/wippyai/b2-runtime/geom"
	"github.com/wippyai/b2-runtime/handle"
	"github.com/wippyai/b2-runtime/internal/heap"
	"github.com/wippyai/b2-runtime/native"
	"github.com/wippyai/b2-runtime/resource"
)

const defaultMaxPushSpeed = 3

// tables hold the bodies, shapes and chains of one world slot. They outlive
// the worlds that occupy the slot so generations keep counting up across
// world reuse.
type tables struct {
	bodies *resource.Arena[*body]
	shapes *resource.Arena[*shape]
	chains *resource.Arena[*chain]
}

func newTables() *tables {
	return &tables{
		bodies: resource.NewArena[*body]("body"),
		shapes: resource.NewArena[*shape]("shape"),
		chains: resource.NewArena[*chain]("chain"),
	}
}

func (t *tables) clear() {
	t.chains.Clear()
	t.shapes.Clear()
	t.bodies.Clear()
}

func (t *tables) close() {
	_ = t.chains.Close()
	_ = t.shapes.Close()
	_ = t.bodies.Close()
}

type pairKey struct {
	a, b *shape
}

func makePair(a, b *shape) pairKey {
	if b.seq < a.seq {
		a, b = b, a
	}
	return pairKey{a: a, b: b}
}

type world struct {
	mu     sync.Mutex
	id     handle.WorldID
	def    native.WorldDef
	cfg    Config
	heap   *heap.Heap
	tables *tables

	bodies []*body
	shapes []*shape
	seq    uint64

	// touching pairs from the last step; the value records whether the
	// pair reports contact events.
	touching map[pairKey]bool
	sensing  map[pairKey]struct{}
	approach map[pairKey]float32

	pendingEnds       []event.ContactEndTouchEvent
	pendingSensorEnds []event.SensorEndTouchEvent

	bodyEvents    event.RawBodyEvents
	contactEvents event.RawContactEvents
	sensorEvents  event.RawSensorEvents

	steps     uint64
	destroyed bool
}

func newWorld(id handle.WorldID, def native.WorldDef, cfg Config, h *heap.Heap, t *tables) *world {
	if def.ContactHitEventThreshold <= 0 {
		def.ContactHitEventThreshold = cfg.ContactHitThreshold
	}
	if def.MaxContactPushSpeed <= 0 {
		def.MaxContactPushSpeed = defaultMaxPushSpeed
	}
	return &world{
		id:       id,
		def:      def,
		cfg:      cfg,
		heap:     h,
		tables:   t,
		touching: make(map[pairKey]bool),
		sensing:  make(map[pairKey]struct{}),
		approach: make(map[pairKey]float32),
	}
}

func (w *world) nextSeq() uint64 {
	w.seq++
	return w.seq
}

type body struct {
	id           handle.BodyID
	typ          native.BodyType
	xf           geom.Transform
	v            geom.Vec2
	angular      float32
	gravityScale float32
	damping      float32
	name         string

	shapes []*shape
	chains []*chain

	invMass   float32
	sleepTime float32
	awake     bool
}

func (b *body) dynamic() bool { return b.typ == native.DynamicBody }

// updateMass recomputes the inverse mass from shape densities. Dynamic bodies
// without area get unit mass.
func (b *body) updateMass() {
	if !b.dynamic() {
		b.invMass = 0
		return
	}
	var mass float32
	for _, s := range b.shapes {
		mass += s.def.Density * s.area()
	}
	if mass <= 0 {
		mass = 1
	}
	b.invMass = 1 / mass
}

func (b *body) wake() {
	if b.typ != native.StaticBody {
		b.awake = true
		b.sleepTime = 0
	}
}

type shapeKind uint8

const (
	circleShape shapeKind = iota
	polygonShape
	segmentShape
	chainSegmentShape
)

type shape struct {
	id   handle.ShapeID
	seq  uint64
	body *body
	def  native.ShapeDef
	kind shapeKind

	circle  geom.Circle
	polygon geom.Polygon
	segment geom.Segment
	chain   *chain
}

func (s *shape) area() float32 {
	switch s.kind {
	case circleShape:
		return math.Pi * s.circle.Radius * s.circle.Radius
	case polygonShape:
		var a float32
		n := int(s.polygon.Count)
		for i := 0; i < n; i++ {
			a += geom.Cross(s.polygon.Vertices[i], s.polygon.Vertices[(i+1)%n])
		}
		return 0.5 * a
	}
	return 0
}

// convex returns the shape in world space.
func (s *shape) convex() convex {
	xf := s.body.xf
	switch s.kind {
	case circleShape:
		return pointConvex(xf.Apply(s.circle.Center), s.circle.Radius)
	case polygonShape:
		return polygonConvex(&s.polygon, xf)
	}
	return segmentConvex(xf.Apply(s.segment.Point1), xf.Apply(s.segment.Point2), 0)
}

type chain struct {
	id       handle.ChainID
	body     *body
	segments []*shape
	loop     bool
}

// removeShape deletes s from list preserving order.
func removeShape(list []*shape, s *shape) []*shape {
	for i, x := range list {
		if x == s {
			return append(list[:i], list[i+1:]...)
		}
	}
	return list
}

func removeBody(list []*body, b *body) []*body {
	for i, x := range list {
		if x == b {
			return append(list[:i], list[i+1:]...)
		}
	}
	return list
}

func removeChain(list []*chain, c *chain) []*chain {
	for i, x := range list {
		if x == c {
			return append(list[:i], list[i+1:]...)
		}
	}
	return list
}

// detachShape removes s from the world and queues end events for every pair
// it was part of.
func (w *world) detachShape(s *shape) {
	for _, o := range w.shapes {
		if o == s {
			continue
		}
		k := makePair(s, o)
		if events, ok := w.touching[k]; ok {
			if events {
				w.pendingEnds = append(w.pendingEnds, event.ContactEndTouchEvent{ShapeIDA: k.a.id, ShapeIDB: k.b.id})
			}
			delete(w.touching, k)
		}
		if _, ok := w.sensing[k]; ok {
			w.pendingSensorEnds = append(w.pendingSensorEnds, sensorEnd(k))
			delete(w.sensing, k)
		}
	}
	w.shapes = removeShape(w.shapes, s)
	w.tables.shapes.Drop(slotOf(s.id.Index1, s.id.Generation))
}

func sensorEnd(k pairKey) event.SensorEndTouchEvent {
	sensor, visitor := k.a, k.b
	if !sensor.def.IsSensor {
		sensor, visitor = visitor, sensor
	}
	return event.SensorEndTouchEvent{SensorShapeID: sensor.id, VisitorShapeID: visitor.id}
}

func slotOf(index1, generation uint32) resource.Slot {
	return resource.Slot{Index1: index1, Generation: generation}
}
