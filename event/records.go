package event

import (
	"unsafe"

	"github.com/wippyai/b2-runtime/errors"
	"github.com/wippyai/b2-runtime/geom"
	"github.com/wippyai/b2-runtime/handle"
)

// BodyMoveEvent is emitted for every awake body that moved during the step.
type BodyMoveEvent struct {
	Transform  geom.Transform
	BodyID     handle.BodyID
	FellAsleep bool
	_          [3]byte
}

// ContactBeginTouchEvent is emitted when two shapes start touching.
type ContactBeginTouchEvent struct {
	ShapeIDA handle.ShapeID
	ShapeIDB handle.ShapeID
	Manifold geom.Manifold
}

// ContactEndTouchEvent is emitted when two shapes stop touching, including
// when one of them is destroyed. The ids may be stale.
type ContactEndTouchEvent struct {
	ShapeIDA handle.ShapeID
	ShapeIDB handle.ShapeID
}

// ContactHitEvent reports a contact whose approach speed exceeded the world's
// hit threshold.
type ContactHitEvent struct {
	ShapeIDA      handle.ShapeID
	ShapeIDB      handle.ShapeID
	Point         geom.Vec2
	Normal        geom.Vec2
	ApproachSpeed float32
}

// SensorBeginTouchEvent is emitted when a shape starts overlapping a sensor.
type SensorBeginTouchEvent struct {
	SensorShapeID  handle.ShapeID
	VisitorShapeID handle.ShapeID
}

// SensorEndTouchEvent is emitted when a shape stops overlapping a sensor.
type SensorEndTouchEvent struct {
	SensorShapeID  handle.ShapeID
	VisitorShapeID handle.ShapeID
}

// RawBodyEvents is the native body event bundle.
type RawBodyEvents struct {
	MoveEvents unsafe.Pointer
	MoveCount  int32
	_          [4]byte
}

// RawContactEvents is the native contact event bundle.
type RawContactEvents struct {
	BeginEvents unsafe.Pointer
	EndEvents   unsafe.Pointer
	HitEvents   unsafe.Pointer
	BeginCount  int32
	EndCount    int32
	HitCount    int32
	_           [4]byte
}

// RawSensorEvents is the native sensor event bundle.
type RawSensorEvents struct {
	BeginEvents unsafe.Pointer
	EndEvents   unsafe.Pointer
	BeginCount  int32
	EndCount    int32
}

// BodyEvents holds the views of one step's body events.
type BodyEvents struct {
	Move View[BodyMoveEvent]
}

// ContactEvents holds the views of one step's contact events.
type ContactEvents struct {
	Begin View[ContactBeginTouchEvent]
	End   View[ContactEndTouchEvent]
	Hit   View[ContactHitEvent]
}

// SensorEvents holds the views of one step's sensor events.
type SensorEvents struct {
	Begin View[SensorBeginTouchEvent]
	End   View[SensorEndTouchEvent]
}

// WrapBody turns a native body bundle into views. lease may be nil.
func WrapBody(raw RawBodyEvents, lease *Lease) (BodyEvents, error) {
	move, err := FromNativeLeased[BodyMoveEvent](raw.MoveEvents, int(raw.MoveCount), lease)
	if err != nil {
		return BodyEvents{}, withPath(err, "body", "move")
	}
	return BodyEvents{Move: move}, nil
}

// WrapContact turns a native contact bundle into views. lease may be nil.
func WrapContact(raw RawContactEvents, lease *Lease) (ContactEvents, error) {
	var out ContactEvents
	var err error
	if out.Begin, err = FromNativeLeased[ContactBeginTouchEvent](raw.BeginEvents, int(raw.BeginCount), lease); err != nil {
		return ContactEvents{}, withPath(err, "contact", "begin")
	}
	if out.End, err = FromNativeLeased[ContactEndTouchEvent](raw.EndEvents, int(raw.EndCount), lease); err != nil {
		return ContactEvents{}, withPath(err, "contact", "end")
	}
	if out.Hit, err = FromNativeLeased[ContactHitEvent](raw.HitEvents, int(raw.HitCount), lease); err != nil {
		return ContactEvents{}, withPath(err, "contact", "hit")
	}
	return out, nil
}

// WrapSensor turns a native sensor bundle into views. lease may be nil.
func WrapSensor(raw RawSensorEvents, lease *Lease) (SensorEvents, error) {
	var out SensorEvents
	var err error
	if out.Begin, err = FromNativeLeased[SensorBeginTouchEvent](raw.BeginEvents, int(raw.BeginCount), lease); err != nil {
		return SensorEvents{}, withPath(err, "sensor", "begin")
	}
	if out.End, err = FromNativeLeased[SensorEndTouchEvent](raw.EndEvents, int(raw.EndCount), lease); err != nil {
		return SensorEvents{}, withPath(err, "sensor", "end")
	}
	return out, nil
}

func withPath(err error, path ...string) error {
	var e *errors.Error
	if errors.As(err, &e) {
		e.Path = append(path, e.Path...)
	}
	return err
}
