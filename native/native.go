// Package native defines the boundary between the managed facade and a
// native simulation layer.
//
// An Engine owns every world, body, shape and chain. It identifies them by
// raw handle triples it hands out on creation and validates the generation
// of every triple it is given back; a mismatch is a StaleHandle error. The
// facade never answers liveness on its own.
//
// Event bundles returned after a step point into memory the engine owns.
// They stay readable until the next Step or DestroyWorld on that world.
//
// Queries run their candidate loop inside the engine and call back through
// the fixed CastFn/PlaneFn signatures with an opaque context integer. Calls
// for one world must not overlap; different worlds may run concurrently.
package native

import (
	"github.com/wippyai/b2-runtime/callback"
	"github.com/wippyai/b2-runtime/event"
	"github.com/wippyai/b2-runtime/geom"
	"github.com/wippyai/b2-runtime/handle"
)

// BodyType selects how a body moves.
type BodyType uint8

const (
	StaticBody BodyType = iota
	KinematicBody
	DynamicBody
)

func (t BodyType) String() string {
	switch t {
	case StaticBody:
		return "static"
	case KinematicBody:
		return "kinematic"
	case DynamicBody:
		return "dynamic"
	}
	return "unknown"
}

// WorldDef configures a new world.
type WorldDef struct {
	Gravity geom.Vec2
	// ContactHitEventThreshold is the approach speed above which contact hit
	// events are reported. 0 means the engine default.
	ContactHitEventThreshold float32
	// MaxContactPushSpeed caps how fast overlap is resolved. 0 means default.
	MaxContactPushSpeed float32
}

// DefaultWorldDef returns earth gravity pointing down.
func DefaultWorldDef() WorldDef {
	return WorldDef{Gravity: geom.V(0, -10)}
}

// BodyDef configures a new body.
type BodyDef struct {
	Type            BodyType
	Position        geom.Vec2
	Rotation        geom.Rot
	LinearVelocity  geom.Vec2
	AngularVelocity float32
	GravityScale    float32
	LinearDamping   float32
	Name            string
}

// DefaultBodyDef returns a static body at the origin.
func DefaultBodyDef() BodyDef {
	return BodyDef{Rotation: geom.IdentityRot, GravityScale: 1}
}

// Filter decides which shapes may collide. Two shapes collide when each
// one's category overlaps the other's mask, unless they share a negative
// group index. A positive shared group always collides.
type Filter struct {
	CategoryBits uint64
	MaskBits     uint64
	GroupIndex   int32
}

// DefaultFilter collides with everything.
func DefaultFilter() Filter {
	return Filter{CategoryBits: 1, MaskBits: ^uint64(0)}
}

// ShouldCollide applies the filter rules.
func ShouldCollide(a, b Filter) bool {
	if a.GroupIndex == b.GroupIndex && a.GroupIndex != 0 {
		return a.GroupIndex > 0
	}
	return a.MaskBits&b.CategoryBits != 0 && a.CategoryBits&b.MaskBits != 0
}

// QueryFilter selects shapes visited by a query.
type QueryFilter struct {
	CategoryBits uint64
	MaskBits     uint64
}

// DefaultQueryFilter visits everything.
func DefaultQueryFilter() QueryFilter {
	return QueryFilter{CategoryBits: 1, MaskBits: ^uint64(0)}
}

// Accepts reports whether a shape with filter f is visited.
func (q QueryFilter) Accepts(f Filter) bool {
	return q.CategoryBits&f.MaskBits != 0 && q.MaskBits&f.CategoryBits != 0
}

// ShapeDef configures a new shape.
type ShapeDef struct {
	Filter      Filter
	Density     float32
	Friction    float32
	Restitution float32
	// IsSensor shapes detect overlap but never collide.
	IsSensor bool
	// EnableSensorEvents lets the shape be seen by sensors.
	EnableSensorEvents bool
	// EnableContactEvents reports begin/end touch events for the shape.
	EnableContactEvents bool
	// EnableHitEvents reports hit events for the shape.
	EnableHitEvents bool
}

// DefaultShapeDef returns a solid shape with every event enabled.
func DefaultShapeDef() ShapeDef {
	return ShapeDef{
		Filter:              DefaultFilter(),
		Density:             1,
		Friction:            0.6,
		EnableSensorEvents:  true,
		EnableContactEvents: true,
	}
}

// ChainDef configures a chain of segments.
type ChainDef struct {
	Points []geom.Vec2
	Loop   bool
	Filter Filter
	// EnableSensorEvents lets the chain's segments be seen by sensors.
	EnableSensorEvents bool
}

// RayInput is a ray cast request. The ray goes from Origin to
// Origin+Translation; fractions are along Translation.
type RayInput struct {
	Origin      geom.Vec2
	Translation geom.Vec2
	Filter      QueryFilter
}

// ShapeCastInput casts a proxy along Translation.
type ShapeCastInput struct {
	Proxy       geom.ShapeProxy
	Translation geom.Vec2
	Filter      QueryFilter
	// CanEncroach lets the cast start slightly inside shapes.
	CanEncroach bool
}

// MoverInput asks for collision planes around a capsule mover.
type MoverInput struct {
	Mover  geom.Capsule
	Filter QueryFilter
}

// Engine is a native simulation layer.
type Engine interface {
	CreateWorld(def WorldDef) (handle.WorldID, error)
	DestroyWorld(w handle.WorldID) error
	WorldIsValid(w handle.WorldID) bool
	Step(w handle.WorldID, timeStep float32, subSteps int) error

	CreateBody(w handle.WorldID, def BodyDef) (handle.BodyID, error)
	DestroyBody(b handle.BodyID) error
	BodyIsValid(b handle.BodyID) bool
	BodyType(b handle.BodyID) (BodyType, error)
	BodyTransform(b handle.BodyID) (geom.Transform, error)
	SetBodyTransform(b handle.BodyID, position geom.Vec2, rotation geom.Rot) error
	BodyLinearVelocity(b handle.BodyID) (geom.Vec2, error)
	SetBodyLinearVelocity(b handle.BodyID, v geom.Vec2) error
	BodyShapes(b handle.BodyID) ([]handle.ShapeID, error)

	CreateCircleShape(b handle.BodyID, def ShapeDef, c geom.Circle) (handle.ShapeID, error)
	CreatePolygonShape(b handle.BodyID, def ShapeDef, p geom.Polygon) (handle.ShapeID, error)
	CreateSegmentShape(b handle.BodyID, def ShapeDef, s geom.Segment) (handle.ShapeID, error)
	DestroyShape(s handle.ShapeID) error
	ShapeIsValid(s handle.ShapeID) bool
	ShapeBody(s handle.ShapeID) (handle.BodyID, error)
	ShapeAABB(s handle.ShapeID) (geom.AABB, error)

	CreateChain(b handle.BodyID, def ChainDef) (handle.ChainID, error)
	DestroyChain(c handle.ChainID) error
	ChainIsValid(c handle.ChainID) bool
	ChainSegments(c handle.ChainID) ([]handle.ShapeID, error)

	BodyEvents(w handle.WorldID) (event.RawBodyEvents, error)
	ContactEvents(w handle.WorldID) (event.RawContactEvents, error)
	SensorEvents(w handle.WorldID) (event.RawSensorEvents, error)

	CastRay(w handle.WorldID, in RayInput, fn callback.CastFn, context uintptr) (callback.Stats, error)
	CastShape(w handle.WorldID, in ShapeCastInput, fn callback.CastFn, context uintptr) (callback.Stats, error)
	CollideMover(w handle.WorldID, in MoverInput, fn callback.PlaneFn, context uintptr) (callback.Stats, error)

	Close() error
}
