package sim

import "github.com/wippyai/b2-runtime/internal/heap"

// Config tunes the reference engine. A nil *Config means defaults.
type Config struct {
	// Heap sizes the per-world simulation heap.
	Heap *heap.Config

	// LinearSlop is the contact tolerance in meters. 0 means 0.005.
	LinearSlop float32

	// ContactHitThreshold is the default approach speed for hit events when
	// a world does not set its own. 0 means 1 m/s.
	ContactHitThreshold float32

	// TimeToSleep is how long a body must stay slow before it sleeps.
	// 0 means 0.5s.
	TimeToSleep float32

	// SleepThreshold is the speed under which a body counts as slow.
	// 0 means 0.05 m/s.
	SleepThreshold float32

	// DisableSleep keeps every body awake.
	DisableSleep bool
}

func (c *Config) withDefaults() Config {
	out := Config{
		LinearSlop:          0.005,
		ContactHitThreshold: 1,
		TimeToSleep:         0.5,
		SleepThreshold:      0.05,
	}
	if c == nil {
		return out
	}
	out.Heap = c.Heap
	out.DisableSleep = c.DisableSleep
	if c.LinearSlop > 0 {
		out.LinearSlop = c.LinearSlop
	}
	if c.ContactHitThreshold > 0 {
		out.ContactHitThreshold = c.ContactHitThreshold
	}
	if c.TimeToSleep > 0 {
		out.TimeToSleep = c.TimeToSleep
	}
	if c.SleepThreshold > 0 {
		out.SleepThreshold = c.SleepThreshold
	}
	return out
}

// speculativeDistance is how far apart shapes may be and still count as
// touching.
func (c Config) speculativeDistance() float32 { return 4 * c.LinearSlop }
