package main

import (
	"context"
	"fmt"
	"sort"

	"github.com/wippyai/b2-runtime/callback"
	"github.com/wippyai/b2-runtime/geom"
	"github.com/wippyai/b2-runtime/handle"
	"github.com/wippyai/b2-runtime/native"
	"github.com/wippyai/b2-runtime/runtime"
	"github.com/wippyai/b2-runtime/scene"
	"github.com/wippyai/b2-runtime/script"
)

// session is one loaded scene running in its own runtime.
type session struct {
	scene   *scene.Scene
	rt      *runtime.Runtime
	built   *scene.Built
	filters map[string]*script.Filter
	steps   int
	totals  counts
}

type counts struct {
	moves, begins, ends, hits, sensorBegins, sensorEnds int
}

func (c *counts) add(o counts) {
	c.moves += o.moves
	c.begins += o.begins
	c.ends += o.ends
	c.hits += o.hits
	c.sensorBegins += o.sensorBegins
	c.sensorEnds += o.sensorEnds
}

func (c counts) String() string {
	return fmt.Sprintf("moves=%d begin=%d end=%d hit=%d sensor+=%d sensor-=%d",
		c.moves, c.begins, c.ends, c.hits, c.sensorBegins, c.sensorEnds)
}

// stepReport is what one step produced. Lines are only filled when the
// caller asked for event detail.
type stepReport struct {
	step   int
	counts counts
	lines  []string
}

func openSession(ctx context.Context, path string) (*session, error) {
	sc, err := scene.Load(path)
	if err != nil {
		return nil, err
	}
	rt, err := runtime.New(ctx, &runtime.Config{Sim: sc.SimConfig()})
	if err != nil {
		return nil, fmt.Errorf("create runtime: %w", err)
	}
	built, err := sc.Build(rt)
	if err != nil {
		rt.Close()
		return nil, fmt.Errorf("build scene: %w", err)
	}

	s := &session{scene: sc, rt: rt, built: built, filters: make(map[string]*script.Filter)}
	for i, r := range sc.Rays {
		if r.Filter == "" {
			continue
		}
		name := rayName(i, r)
		f, err := script.Compile(name, r.Filter, built.Name)
		if err != nil {
			s.close()
			return nil, err
		}
		s.filters[name] = f
	}
	return s, nil
}

func (s *session) close() {
	for _, f := range s.filters {
		f.Close()
	}
	if s.rt != nil {
		s.rt.Close()
	}
}

func rayName(i int, r scene.RaySpec) string {
	if r.Name != "" {
		return r.Name
	}
	return fmt.Sprintf("ray%d", i)
}

func (s *session) world() *runtime.World { return s.built.World }

// advance steps the world once and copies out what happened. The event
// views are read before returning; they expire with the next step.
func (s *session) advance(detail bool) (stepReport, error) {
	w := s.world()
	if err := w.Step(s.scene.Step.TimeStep, s.scene.Step.SubSteps); err != nil {
		return stepReport{}, err
	}
	s.steps++
	rep := stepReport{step: s.steps}

	ev, err := w.Events()
	if err != nil {
		return rep, err
	}

	names := s.bodyNames()
	rep.counts.moves = ev.Body.Move.Len()
	rep.counts.begins = ev.Contact.Begin.Len()
	rep.counts.ends = ev.Contact.End.Len()
	rep.counts.hits = ev.Contact.Hit.Len()
	rep.counts.sensorBegins = ev.Sensor.Begin.Len()
	rep.counts.sensorEnds = ev.Sensor.End.Len()
	s.totals.add(rep.counts)

	if !detail {
		return rep, nil
	}

	for _, m := range ev.Body.Move.AsSlice().All() {
		line := fmt.Sprintf("move   %s -> (%.3f, %.3f)", names[m.BodyID], m.Transform.P.X(), m.Transform.P.Y())
		if m.FellAsleep {
			line += " asleep"
		}
		rep.lines = append(rep.lines, line)
	}
	for _, b := range ev.Contact.Begin.AsSlice().All() {
		rep.lines = append(rep.lines, fmt.Sprintf("begin  %s | %s points=%d",
			s.built.Name(b.ShapeIDA), s.built.Name(b.ShapeIDB), b.Manifold.PointCount))
	}
	for _, e := range ev.Contact.End.AsSlice().All() {
		rep.lines = append(rep.lines, fmt.Sprintf("end    %s | %s", s.built.Name(e.ShapeIDA), s.built.Name(e.ShapeIDB)))
	}
	for _, h := range ev.Contact.Hit.AsSlice().All() {
		rep.lines = append(rep.lines, fmt.Sprintf("hit    %s | %s speed=%.3f",
			s.built.Name(h.ShapeIDA), s.built.Name(h.ShapeIDB), h.ApproachSpeed))
	}
	for _, b := range ev.Sensor.Begin.AsSlice().All() {
		rep.lines = append(rep.lines, fmt.Sprintf("enter  %s <- %s", s.built.Name(b.SensorShapeID), s.built.Name(b.VisitorShapeID)))
	}
	for _, e := range ev.Sensor.End.AsSlice().All() {
		rep.lines = append(rep.lines, fmt.Sprintf("leave  %s <- %s", s.built.Name(e.SensorShapeID), s.built.Name(e.VisitorShapeID)))
	}
	return rep, nil
}

func (s *session) bodyNames() map[handle.BodyID]string {
	out := make(map[handle.BodyID]string, len(s.built.Bodies))
	for name, id := range s.built.Bodies {
		out[id] = name
	}
	return out
}

type bodyReport struct {
	name     string
	typ      native.BodyType
	position geom.Vec2
	velocity geom.Vec2
}

func (s *session) bodies() ([]bodyReport, error) {
	w := s.world()
	names := make([]string, 0, len(s.built.Bodies))
	for name := range s.built.Bodies {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]bodyReport, 0, len(names))
	for _, name := range names {
		id := s.built.Bodies[name]
		typ, err := w.BodyType(id)
		if err != nil {
			return nil, err
		}
		xf, err := w.BodyTransform(id)
		if err != nil {
			return nil, err
		}
		v, err := w.BodyLinearVelocity(id)
		if err != nil {
			return nil, err
		}
		out = append(out, bodyReport{name: name, typ: typ, position: xf.P, velocity: v})
	}
	return out, nil
}

type rayReport struct {
	name   string
	hit    callback.Closest
	stats  callback.Stats
	target string
}

func (s *session) rays() ([]rayReport, error) {
	w := s.world()
	out := make([]rayReport, 0, len(s.scene.Rays))
	for i, r := range s.scene.Rays {
		name := rayName(i, r)
		from := geom.V(r.From[0], r.From[1])
		in := native.RayInput{
			Origin:      from,
			Translation: geom.V(r.To[0], r.To[1]).Sub(from),
			Filter:      native.DefaultQueryFilter(),
		}

		rep := rayReport{name: name}
		fn := callback.ClosestHit(&rep.hit)
		if f, ok := s.filters[name]; ok {
			fn = f.Then(fn)
		}
		stats, err := w.CastRay(in, fn)
		if err != nil {
			return nil, fmt.Errorf("ray %s: %w", name, err)
		}
		rep.stats = stats
		if rep.hit.Found {
			rep.target = s.built.Name(rep.hit.Hit.Shape)
		}
		out = append(out, rep)
	}
	return out, nil
}

type moverReport struct {
	name   string
	planes []callback.PlaneCandidate
}

func (s *session) movers() ([]moverReport, error) {
	w := s.world()
	out := make([]moverReport, 0, len(s.scene.Movers))
	for i, m := range s.scene.Movers {
		name := m.Name
		if name == "" {
			name = fmt.Sprintf("mover%d", i)
		}
		half := m.Height / 2
		capsule := geom.Capsule{
			Center1: geom.V(m.Center[0], m.Center[1]-half),
			Center2: geom.V(m.Center[0], m.Center[1]+half),
			Radius:  m.Radius,
		}
		planes, err := w.MoverPlanes(capsule, native.DefaultQueryFilter())
		if err != nil {
			return nil, fmt.Errorf("mover %s: %w", name, err)
		}
		out = append(out, moverReport{name: name, planes: planes})
	}
	return out, nil
}
