package scene

import (
	"fmt"

	"github.com/wippyai/b2-runtime/errors"
	"github.com/wippyai/b2-runtime/geom"
	"github.com/wippyai/b2-runtime/handle"
	"github.com/wippyai/b2-runtime/native"
	"github.com/wippyai/b2-runtime/runtime"
)

// Built maps the names used in a scene to the handles created for them.
// Unnamed items get "<body>#<n>" style names.
type Built struct {
	World  *runtime.World
	Bodies map[string]handle.BodyID
	Shapes map[string]handle.ShapeID
	Chains map[string]handle.ChainID
	// Names reverses Shapes for printing events.
	Names map[handle.ShapeID]string
}

func vec(v [2]float32) geom.Vec2 { return geom.V(v[0], v[1]) }

func vecs(ps [][2]float32) []geom.Vec2 {
	out := make([]geom.Vec2, len(ps))
	for i, p := range ps {
		out[i] = vec(p)
	}
	return out
}

func bodyType(s string) (native.BodyType, bool) {
	switch s {
	case "", "static":
		return native.StaticBody, true
	case "kinematic":
		return native.KinematicBody, true
	case "dynamic":
		return native.DynamicBody, true
	}
	return 0, false
}

// Validate checks the scene for errors that decoding cannot catch.
func (s *Scene) Validate() error {
	invalid := func(path []string, format string, args ...any) error {
		return errors.InvalidData(errors.PhaseLoad, path, fmt.Sprintf(format, args...))
	}

	if s.Step.TimeStep <= 0 {
		return invalid([]string{"step", "time_step"}, "must be positive")
	}
	if s.Step.SubSteps < 1 {
		return invalid([]string{"step", "sub_steps"}, "must be at least 1")
	}
	if s.Step.Count < 0 {
		return invalid([]string{"step", "count"}, "must not be negative")
	}

	for i, b := range s.Bodies {
		bp := fmt.Sprintf("body[%d]", i)
		if _, ok := bodyType(b.Type); !ok {
			return invalid([]string{bp, "type"}, "unknown body type %q", b.Type)
		}
		for j, sh := range b.Shapes {
			sp := []string{bp, fmt.Sprintf("shape[%d]", j)}
			if _, err := sh.geometry(); err != nil {
				return invalid(sp, "%v", err)
			}
		}
		for j, c := range b.Chains {
			need := 2
			if c.Loop {
				need = 3
			}
			if len(c.Points) < need {
				return invalid([]string{bp, fmt.Sprintf("chain[%d]", j)}, "needs at least %d points", need)
			}
		}
	}
	for i, m := range s.Movers {
		if m.Radius <= 0 {
			return invalid([]string{fmt.Sprintf("mover[%d]", i), "radius"}, "must be positive")
		}
	}
	return nil
}

// geometry is the parsed form of one shape.
type geometry struct {
	circle  *geom.Circle
	polygon *geom.Polygon
	segment *geom.Segment
}

func (sh ShapeSpec) geometry() (geometry, error) {
	switch sh.Kind {
	case "circle":
		if sh.Radius <= 0 {
			return geometry{}, fmt.Errorf("circle radius must be positive")
		}
		return geometry{circle: &geom.Circle{Center: vec(sh.Center), Radius: sh.Radius}}, nil
	case "box":
		if sh.Size[0] <= 0 || sh.Size[1] <= 0 {
			return geometry{}, fmt.Errorf("box size must be positive")
		}
		p := geom.MakeOffsetBox(sh.Size[0], sh.Size[1], vec(sh.Center), geom.MakeRot(sh.Angle))
		return geometry{polygon: &p}, nil
	case "polygon":
		p, err := geom.MakePolygon(sh.Radius, vecs(sh.Points)...)
		if err != nil {
			return geometry{}, err
		}
		return geometry{polygon: &p}, nil
	case "segment":
		if len(sh.Points) != 2 {
			return geometry{}, fmt.Errorf("segment needs 2 points, got %d", len(sh.Points))
		}
		return geometry{segment: &geom.Segment{Point1: vec(sh.Points[0]), Point2: vec(sh.Points[1])}}, nil
	}
	return geometry{}, fmt.Errorf("unknown shape kind %q", sh.Kind)
}

func (sh ShapeSpec) def() native.ShapeDef {
	def := native.DefaultShapeDef()
	if sh.Density != nil {
		def.Density = *sh.Density
	}
	if sh.Friction != nil {
		def.Friction = *sh.Friction
	}
	def.Restitution = sh.Restitution
	def.IsSensor = sh.Sensor
	if sh.ContactEvents != nil {
		def.EnableContactEvents = *sh.ContactEvents
	}
	if sh.SensorEvents != nil {
		def.EnableSensorEvents = *sh.SensorEvents
	}
	def.EnableHitEvents = sh.HitEvents
	if sh.Category != 0 {
		def.Filter.CategoryBits = sh.Category
	}
	if sh.Mask != 0 {
		def.Filter.MaskBits = sh.Mask
	}
	def.Filter.GroupIndex = sh.Group
	return def
}

// WorldDef returns the world definition of the scene.
func (s *Scene) WorldDef() native.WorldDef {
	return native.WorldDef{
		Gravity:                  vec(s.World.Gravity),
		ContactHitEventThreshold: s.World.HitThreshold,
		MaxContactPushSpeed:      s.World.MaxPushSpeed,
	}
}

// Build creates the scene's world in rt.
func (s *Scene) Build(rt *runtime.Runtime) (*Built, error) {
	w, err := rt.CreateWorld(s.WorldDef())
	if err != nil {
		return nil, err
	}
	out := &Built{
		World:  w,
		Bodies: make(map[string]handle.BodyID),
		Shapes: make(map[string]handle.ShapeID),
		Chains: make(map[string]handle.ChainID),
		Names:  make(map[handle.ShapeID]string),
	}
	if err := s.populate(out); err != nil {
		_ = w.Destroy()
		return nil, err
	}
	return out, nil
}

func (s *Scene) populate(out *Built) error {
	w := out.World
	for i, bs := range s.Bodies {
		typ, _ := bodyType(bs.Type)
		def := native.DefaultBodyDef()
		def.Type = typ
		def.Name = bs.Name
		def.Position = vec(bs.Position)
		def.Rotation = geom.MakeRot(bs.Angle)
		def.LinearVelocity = vec(bs.Velocity)
		def.AngularVelocity = bs.AngularVelocity
		def.LinearDamping = bs.Damping
		if bs.GravityScale != nil {
			def.GravityScale = *bs.GravityScale
		}

		b, err := w.CreateBody(def)
		if err != nil {
			return errors.Wrap(errors.PhaseLoad, errors.KindInvalidData, err, fmt.Sprintf("body[%d]", i))
		}
		bodyName := bs.Name
		if bodyName == "" {
			bodyName = fmt.Sprintf("body%d", i)
		}
		out.Bodies[bodyName] = b

		for j, sh := range bs.Shapes {
			g, err := sh.geometry()
			if err != nil {
				return err
			}
			var id handle.ShapeID
			switch {
			case g.circle != nil:
				id, err = w.CreateCircle(b, sh.def(), *g.circle)
			case g.polygon != nil:
				id, err = w.CreatePolygon(b, sh.def(), *g.polygon)
			default:
				id, err = w.CreateSegment(b, sh.def(), *g.segment)
			}
			if err != nil {
				return errors.Wrap(errors.PhaseLoad, errors.KindInvalidData, err, fmt.Sprintf("%s shape[%d]", bodyName, j))
			}
			name := sh.Name
			if name == "" {
				name = fmt.Sprintf("%s#%d", bodyName, j)
			}
			out.Shapes[name] = id
			out.Names[id] = name
		}

		for j, cs := range bs.Chains {
			c, err := w.CreateChain(b, native.ChainDef{
				Points:             vecs(cs.Points),
				Loop:               cs.Loop,
				Filter:             native.DefaultFilter(),
				EnableSensorEvents: true,
			})
			if err != nil {
				return errors.Wrap(errors.PhaseLoad, errors.KindInvalidData, err, fmt.Sprintf("%s chain[%d]", bodyName, j))
			}
			name := cs.Name
			if name == "" {
				name = fmt.Sprintf("%s~%d", bodyName, j)
			}
			out.Chains[name] = c
			segs, err := w.ChainSegments(c)
			if err != nil {
				return err
			}
			for k, id := range segs {
				out.Names[id] = fmt.Sprintf("%s/%d", name, k)
			}
		}
	}
	return nil
}

// Name returns the scene name of a shape, or its handle if unnamed.
func (b *Built) Name(id handle.ShapeID) string {
	if n, ok := b.Names[id]; ok {
		return n
	}
	return id.String()
}
