package abi

import "go.bytecodealliance.org/wit"

func record(name string, fields ...wit.Field) *wit.TypeDef {
	return &wit.TypeDef{Name: &name, Kind: &wit.Record{Fields: fields}}
}

func field(name string, t wit.Type) wit.Field {
	return wit.Field{Name: name, Type: t}
}

func array(n int, elem wit.Type) *wit.TypeDef {
	types := make([]wit.Type, n)
	for i := range types {
		types[i] = elem
	}
	return &wit.TypeDef{Kind: &wit.Tuple{Types: types}}
}

// pointer is a native data pointer. wit has no pointer type; an address is
// an unsigned integer of pointer width.
func pointer() wit.Type { return wit.U64{} }

// Native record descriptors, in dependency order.
var (
	Vec2 = record("b2Vec2",
		field("x", wit.F32{}),
		field("y", wit.F32{}))

	Rot = record("b2Rot",
		field("c", wit.F32{}),
		field("s", wit.F32{}))

	Transform = record("b2Transform",
		field("p", Vec2),
		field("q", Rot))

	Plane = record("b2Plane",
		field("normal", Vec2),
		field("offset", wit.F32{}))

	WorldID = record("b2WorldId",
		field("index1", wit.U32{}),
		field("generation", wit.U32{}))

	BodyID  = scopedID("b2BodyId")
	ShapeID = scopedID("b2ShapeId")
	ChainID = scopedID("b2ChainId")

	ManifoldPoint = record("b2ManifoldPoint",
		field("point", Vec2),
		field("anchorA", Vec2),
		field("anchorB", Vec2),
		field("separation", wit.F32{}),
		field("normalImpulse", wit.F32{}),
		field("tangentImpulse", wit.F32{}),
		field("normalVelocity", wit.F32{}),
		field("id", wit.U16{}),
		field("persisted", wit.Bool{}))

	Manifold = record("b2Manifold",
		field("normal", Vec2),
		field("rollingImpulse", wit.F32{}),
		field("points", array(2, ManifoldPoint)),
		field("pointCount", wit.S32{}))

	Polygon = record("b2Polygon",
		field("vertices", array(8, Vec2)),
		field("normals", array(8, Vec2)),
		field("centroid", Vec2),
		field("radius", wit.F32{}),
		field("count", wit.S32{}))

	BodyMoveEvent = record("b2BodyMoveEvent",
		field("transform", Transform),
		field("bodyId", BodyID),
		field("fellAsleep", wit.Bool{}))

	ContactBeginTouchEvent = record("b2ContactBeginTouchEvent",
		field("shapeIdA", ShapeID),
		field("shapeIdB", ShapeID),
		field("manifold", Manifold))

	ContactEndTouchEvent = record("b2ContactEndTouchEvent",
		field("shapeIdA", ShapeID),
		field("shapeIdB", ShapeID))

	ContactHitEvent = record("b2ContactHitEvent",
		field("shapeIdA", ShapeID),
		field("shapeIdB", ShapeID),
		field("point", Vec2),
		field("normal", Vec2),
		field("approachSpeed", wit.F32{}))

	SensorBeginTouchEvent = record("b2SensorBeginTouchEvent",
		field("sensorShapeId", ShapeID),
		field("visitorShapeId", ShapeID))

	SensorEndTouchEvent = record("b2SensorEndTouchEvent",
		field("sensorShapeId", ShapeID),
		field("visitorShapeId", ShapeID))

	PlaneResult = record("b2PlaneResult",
		field("plane", Plane),
		field("point", Vec2),
		field("hit", wit.Bool{}))

	BodyEvents = record("b2BodyEvents",
		field("moveEvents", pointer()),
		field("moveCount", wit.S32{}))

	ContactEvents = record("b2ContactEvents",
		field("beginEvents", pointer()),
		field("endEvents", pointer()),
		field("hitEvents", pointer()),
		field("beginCount", wit.S32{}),
		field("endCount", wit.S32{}),
		field("hitCount", wit.S32{}))

	SensorEvents = record("b2SensorEvents",
		field("beginEvents", pointer()),
		field("endEvents", pointer()),
		field("beginCount", wit.S32{}),
		field("endCount", wit.S32{}))
)

func scopedID(name string) *wit.TypeDef {
	return record(name,
		field("index1", wit.U32{}),
		field("world0", wit.U32{}),
		field("generation", wit.U32{}))
}
