package scene

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/wippyai/b2-runtime/errors"
	"github.com/wippyai/b2-runtime/native"
	"github.com/wippyai/b2-runtime/runtime"
)

const rampTOML = `
name = "ramp"

[world]
gravity = [0.0, -9.8]

[step]
count = 30

[engine]
disable_sleep = true
heap_pages = 2

[[body]]
name = "ground"

  [[body.shape]]
  name = "floor"
  kind = "box"
  size = [10.0, 0.5]

  [[body.chain]]
  name = "rim"
  points = [[-10.0, 3.0], [-10.0, 0.5], [10.0, 0.5], [10.0, 3.0]]

[[body]]
name = "ball"
type = "dynamic"
position = [0.0, 4.0]

  [[body.shape]]
  kind = "circle"
  radius = 0.5
  restitution = 0.2
  hit_events = true

[[ray]]
name = "down"
from = [0.0, 10.0]
to = [0.0, -10.0]
`

const rampYAML = `
name: ramp
world:
  gravity: [0, -9.8]
step:
  count: 30
bodies:
  - name: ground
    shapes:
      - name: floor
        kind: box
        size: [10, 0.5]
  - name: ball
    type: dynamic
    position: [0, 4]
    shapes:
      - kind: circle
        radius: 0.5
        friction: 0
movers:
  - name: probe
    center: [0, 1]
    height: 0.5
    radius: 0.6
`

func TestParse_TOML(t *testing.T) {
	s, err := Parse([]byte(rampTOML), TOML)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if s.Name != "ramp" || len(s.Bodies) != 2 || len(s.Rays) != 1 {
		t.Fatalf("scene = %+v", s)
	}
	if s.World.Gravity[1] != -9.8 {
		t.Fatalf("gravity = %v", s.World.Gravity)
	}
	// Unset fields keep their defaults.
	if s.Step.SubSteps != 4 || s.Step.Count != 30 || s.World.HitThreshold != 1 {
		t.Fatalf("step = %+v, world = %+v", s.Step, s.World)
	}
	ball := s.Bodies[1]
	if ball.Type != "dynamic" || len(ball.Shapes) != 1 || !ball.Shapes[0].HitEvents {
		t.Fatalf("ball = %+v", ball)
	}
	if len(s.Bodies[0].Chains) != 1 || len(s.Bodies[0].Chains[0].Points) != 4 {
		t.Fatalf("chains = %+v", s.Bodies[0].Chains)
	}

	cfg := s.SimConfig()
	if !cfg.DisableSleep || cfg.Heap == nil || cfg.Heap.InitialPages != 2 {
		t.Fatalf("sim config = %+v", cfg)
	}
}

func TestParse_YAML(t *testing.T) {
	s, err := Parse([]byte(rampYAML), YAML)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(s.Bodies) != 2 || len(s.Movers) != 1 {
		t.Fatalf("scene = %+v", s)
	}
	f := s.Bodies[1].Shapes[0].Friction
	if f == nil || *f != 0 {
		t.Fatalf("friction = %v", f)
	}
	if s.SimConfig().Heap != nil {
		t.Fatal("heap config should stay nil when unset")
	}
}

func TestParse_YAMLUnknownField(t *testing.T) {
	_, err := Parse([]byte("name: x\nbogus: 1\n"), YAML)
	if !errors.Is(err, &errors.Error{Phase: errors.PhaseLoad, Kind: errors.KindInvalidData}) {
		t.Fatalf("err = %v, want invalid data", err)
	}
}

func TestParse_Empty(t *testing.T) {
	for _, f := range []Format{TOML, YAML} {
		s, err := Parse(nil, f)
		if err != nil {
			t.Fatalf("%s: %v", f, err)
		}
		if s.Step.Count != 60 || len(s.Bodies) != 0 {
			t.Fatalf("%s: scene = %+v", f, s)
		}
	}
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"bad body type", "[[body]]\ntype = \"floating\"\n"},
		{"bad shape kind", "[[body]]\n[[body.shape]]\nkind = \"blob\"\n"},
		{"zero radius", "[[body]]\n[[body.shape]]\nkind = \"circle\"\n"},
		{"zero box", "[[body]]\n[[body.shape]]\nkind = \"box\"\nsize = [1.0, 0.0]\n"},
		{"polygon too small", "[[body]]\n[[body.shape]]\nkind = \"polygon\"\npoints = [[0.0, 0.0], [1.0, 0.0]]\n"},
		{"segment one point", "[[body]]\n[[body.shape]]\nkind = \"segment\"\npoints = [[0.0, 0.0]]\n"},
		{"short loop", "[[body]]\n[[body.chain]]\nloop = true\npoints = [[0.0, 0.0], [1.0, 0.0]]\n"},
		{"zero sub steps", "[step]\nsub_steps = 0\n"},
		{"negative time step", "[step]\ntime_step = -1.0\n"},
		{"flat mover", "[[mover]]\nheight = 1.0\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.src), TOML)
			if !errors.Is(err, &errors.Error{Phase: errors.PhaseLoad, Kind: errors.KindInvalidData}) {
				t.Fatalf("err = %v, want invalid data", err)
			}
		})
	}
}

func TestLoad_Extension(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ramp.yml")
	if err := os.WriteFile(path, []byte(rampYAML), 0o644); err != nil {
		t.Fatal(err)
	}
	s, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if s.Name != "ramp" {
		t.Fatalf("name = %q", s.Name)
	}

	other := filepath.Join(dir, "ramp.json")
	if err := os.WriteFile(other, []byte("{}"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(other); err == nil {
		t.Fatal("unknown extension should fail")
	}
	if _, err := Load(filepath.Join(dir, "missing.toml")); err == nil {
		t.Fatal("missing file should fail")
	}
}

func TestScene_Build(t *testing.T) {
	s, err := Parse([]byte(rampTOML), TOML)
	if err != nil {
		t.Fatal(err)
	}
	rt, err := runtime.New(context.Background(), &runtime.Config{Sim: s.SimConfig()})
	if err != nil {
		t.Fatal(err)
	}
	defer rt.Close()

	built, err := s.Build(rt)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	w := built.World

	ball, ok := built.Bodies["ball"]
	if !ok {
		t.Fatalf("bodies = %v", built.Bodies)
	}
	if typ, err := w.BodyType(ball); err != nil || typ != native.DynamicBody {
		t.Fatalf("ball type = %v, %v", typ, err)
	}
	if _, ok := built.Shapes["ball#0"]; !ok {
		t.Fatalf("unnamed shape missing: %v", built.Shapes)
	}
	floor := built.Shapes["floor"]
	if built.Name(floor) != "floor" {
		t.Fatalf("Name(floor) = %q", built.Name(floor))
	}

	rim, ok := built.Chains["rim"]
	if !ok {
		t.Fatal("chain missing")
	}
	segs, err := w.ChainSegments(rim)
	if err != nil || len(segs) != 3 {
		t.Fatalf("rim segments = %v, %v", segs, err)
	}
	if built.Name(segs[1]) != "rim/1" {
		t.Fatalf("segment name = %q", built.Name(segs[1]))
	}

	for i := 0; i < s.Step.Count; i++ {
		if err := w.Step(s.Step.TimeStep, s.Step.SubSteps); err != nil {
			t.Fatal(err)
		}
	}
	xf, err := w.BodyTransform(ball)
	if err != nil {
		t.Fatal(err)
	}
	if xf.P.Y() >= 4 {
		t.Fatalf("ball did not fall: %v", xf.P)
	}
}

func TestScene_BuildFailureDestroysWorld(t *testing.T) {
	rt, err := runtime.New(context.Background(), nil)
	if err != nil {
		t.Fatal(err)
	}
	defer rt.Close()

	// Validate passes, but the body definition is rejected by the engine.
	s := defaults()
	s.Bodies = []BodySpec{{Name: "bad", Position: [2]float32{float32(math.Inf(1)), 0}}}

	if _, err := s.Build(rt); err == nil {
		t.Fatal("Build should fail on a non-finite position")
	}
	if n := len(rt.Worlds()); n != 0 {
		t.Fatalf("worlds after failed build = %d", n)
	}
}
