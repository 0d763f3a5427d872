// Package scene loads world descriptions from TOML or YAML files and builds
// them through the runtime facade.
package scene

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/wippyai/b2-runtime/errors"
	"github.com/wippyai/b2-runtime/internal/heap"
	"github.com/wippyai/b2-runtime/sim"
)

// Format selects the scene file syntax.
type Format string

const (
	TOML Format = "toml"
	YAML Format = "yaml"
)

// Scene is a complete world description.
type Scene struct {
	Name   string      `toml:"name" yaml:"name"`
	World  WorldSpec   `toml:"world" yaml:"world"`
	Engine EngineSpec  `toml:"engine" yaml:"engine"`
	Step   StepSpec    `toml:"step" yaml:"step"`
	Bodies []BodySpec  `toml:"body" yaml:"bodies"`
	Rays   []RaySpec   `toml:"ray" yaml:"rays"`
	Movers []MoverSpec `toml:"mover" yaml:"movers"`
}

type WorldSpec struct {
	Gravity      [2]float32 `toml:"gravity" yaml:"gravity"`
	HitThreshold float32    `toml:"hit_threshold" yaml:"hit_threshold"`
	MaxPushSpeed float32    `toml:"max_push_speed" yaml:"max_push_speed"`
}

// EngineSpec tunes the sim engine used to run the scene.
type EngineSpec struct {
	LinearSlop     float32 `toml:"linear_slop" yaml:"linear_slop"`
	TimeToSleep    float32 `toml:"time_to_sleep" yaml:"time_to_sleep"`
	SleepThreshold float32 `toml:"sleep_threshold" yaml:"sleep_threshold"`
	DisableSleep   bool    `toml:"disable_sleep" yaml:"disable_sleep"`
	HeapPages      uint32  `toml:"heap_pages" yaml:"heap_pages"`
	HeapMaxPages   uint32  `toml:"heap_max_pages" yaml:"heap_max_pages"`
}

type StepSpec struct {
	TimeStep float32 `toml:"time_step" yaml:"time_step"`
	SubSteps int     `toml:"sub_steps" yaml:"sub_steps"`
	Count    int     `toml:"count" yaml:"count"`
}

type BodySpec struct {
	Name            string      `toml:"name" yaml:"name"`
	Type            string      `toml:"type" yaml:"type"` // static, kinematic, dynamic
	Position        [2]float32  `toml:"position" yaml:"position"`
	Angle           float32     `toml:"angle" yaml:"angle"` // radians
	Velocity        [2]float32  `toml:"velocity" yaml:"velocity"`
	AngularVelocity float32     `toml:"angular_velocity" yaml:"angular_velocity"`
	GravityScale    *float32    `toml:"gravity_scale" yaml:"gravity_scale"`
	Damping         float32     `toml:"damping" yaml:"damping"`
	Shapes          []ShapeSpec `toml:"shape" yaml:"shapes"`
	Chains          []ChainSpec `toml:"chain" yaml:"chains"`
}

type ShapeSpec struct {
	Name   string       `toml:"name" yaml:"name"`
	Kind   string       `toml:"kind" yaml:"kind"` // circle, box, polygon, segment
	Radius float32      `toml:"radius" yaml:"radius"`
	Center [2]float32   `toml:"center" yaml:"center"`
	Size   [2]float32   `toml:"size" yaml:"size"` // box half extents
	Angle  float32      `toml:"angle" yaml:"angle"`
	Points [][2]float32 `toml:"points" yaml:"points"`

	Density       *float32 `toml:"density" yaml:"density"`
	Friction      *float32 `toml:"friction" yaml:"friction"`
	Restitution   float32  `toml:"restitution" yaml:"restitution"`
	Sensor        bool     `toml:"sensor" yaml:"sensor"`
	ContactEvents *bool    `toml:"contact_events" yaml:"contact_events"`
	SensorEvents  *bool    `toml:"sensor_events" yaml:"sensor_events"`
	HitEvents     bool     `toml:"hit_events" yaml:"hit_events"`

	Category uint64 `toml:"category" yaml:"category"`
	Mask     uint64 `toml:"mask" yaml:"mask"`
	Group    int32  `toml:"group" yaml:"group"`
}

type ChainSpec struct {
	Name   string       `toml:"name" yaml:"name"`
	Points [][2]float32 `toml:"points" yaml:"points"`
	Loop   bool         `toml:"loop" yaml:"loop"`
}

// RaySpec is a ray cast to run after stepping.
type RaySpec struct {
	Name   string     `toml:"name" yaml:"name"`
	From   [2]float32 `toml:"from" yaml:"from"`
	To     [2]float32 `toml:"to" yaml:"to"`
	Filter string     `toml:"filter" yaml:"filter"` // Lua filter script, optional
}

// MoverSpec is a capsule plane query to run after stepping.
type MoverSpec struct {
	Name   string     `toml:"name" yaml:"name"`
	Center [2]float32 `toml:"center" yaml:"center"`
	Height float32    `toml:"height" yaml:"height"`
	Radius float32    `toml:"radius" yaml:"radius"`
}

func defaults() *Scene {
	return &Scene{
		Name: "scene",
		World: WorldSpec{
			Gravity:      [2]float32{0, -10},
			HitThreshold: 1,
		},
		Step: StepSpec{
			TimeStep: 1.0 / 60,
			SubSteps: 4,
			Count:    60,
		},
	}
}

// Load reads a scene file. The format follows the extension: .toml, or
// .yaml/.yml.
func Load(path string) (*Scene, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Load("read scene "+path, err)
	}
	var f Format
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		f = TOML
	case ".yaml", ".yml":
		f = YAML
	default:
		return nil, errors.InvalidInput(errors.PhaseLoad, "unknown scene format: "+path)
	}
	s, err := Parse(data, f)
	if err != nil {
		return nil, errors.Load("scene "+path, err)
	}
	return s, nil
}

// Parse decodes a scene, fills defaults and validates it.
func Parse(data []byte, f Format) (*Scene, error) {
	s := defaults()
	switch f {
	case TOML:
		if _, err := toml.Decode(string(data), s); err != nil {
			return nil, errors.Wrap(errors.PhaseLoad, errors.KindInvalidData, err, "parse toml")
		}
	case YAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(s); err != nil && err != io.EOF {
			return nil, errors.Wrap(errors.PhaseLoad, errors.KindInvalidData, err, "parse yaml")
		}
	default:
		return nil, errors.InvalidInput(errors.PhaseLoad, "unknown scene format "+string(f))
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// SimConfig returns the engine settings of the scene.
func (s *Scene) SimConfig() *sim.Config {
	cfg := &sim.Config{
		LinearSlop:          s.Engine.LinearSlop,
		ContactHitThreshold: s.World.HitThreshold,
		TimeToSleep:         s.Engine.TimeToSleep,
		SleepThreshold:      s.Engine.SleepThreshold,
		DisableSleep:        s.Engine.DisableSleep,
	}
	if s.Engine.HeapPages > 0 || s.Engine.HeapMaxPages > 0 {
		cfg.Heap = &heap.Config{InitialPages: s.Engine.HeapPages, MaxPages: s.Engine.HeapMaxPages}
	}
	return cfg
}
