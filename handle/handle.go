package handle

import "fmt"

// WorldID identifies a simulation instance slot.
type WorldID struct {
	Index1     uint32
	Generation uint32
}

// BodyID identifies a rigid body inside a world.
type BodyID struct {
	Index1     uint32
	World0     uint32
	Generation uint32
}

// ShapeID identifies a shape attached to a body.
type ShapeID struct {
	Index1     uint32
	World0     uint32
	Generation uint32
}

// ChainID identifies a chain shape attached to a body.
type ChainID struct {
	Index1     uint32
	World0     uint32
	Generation uint32
}

// IsNull reports whether id is the zero handle.
func (id WorldID) IsNull() bool { return id.Index1 == 0 }

// Slot returns the 0-based slot index this world occupies in the world table.
// Scoped handles carry it as World0.
func (id WorldID) Slot() uint32 { return id.Index1 - 1 }

func (id WorldID) String() string {
	return fmt.Sprintf("world(%d:%d)", id.Index1, id.Generation)
}

func (id BodyID) IsNull() bool { return id.Index1 == 0 }

// BelongsTo reports whether the body is scoped to w's slot. It does not check
// the world generation; the native layer rejects handles of a recycled world.
func (id BodyID) BelongsTo(w WorldID) bool {
	return !w.IsNull() && id.World0 == w.Slot()
}

func (id BodyID) String() string {
	return fmt.Sprintf("body(%d:%d:%d)", id.World0, id.Index1, id.Generation)
}

func (id ShapeID) IsNull() bool { return id.Index1 == 0 }

func (id ShapeID) BelongsTo(w WorldID) bool {
	return !w.IsNull() && id.World0 == w.Slot()
}

func (id ShapeID) String() string {
	return fmt.Sprintf("shape(%d:%d:%d)", id.World0, id.Index1, id.Generation)
}

func (id ChainID) IsNull() bool { return id.Index1 == 0 }

func (id ChainID) BelongsTo(w WorldID) bool {
	return !w.IsNull() && id.World0 == w.Slot()
}

func (id ChainID) String() string {
	return fmt.Sprintf("chain(%d:%d:%d)", id.World0, id.Index1, id.Generation)
}
