package abi

import (
	"reflect"

	"go.bytecodealliance.org/wit"

	"github.com/wippyai/b2-runtime/callback"
	"github.com/wippyai/b2-runtime/errors"
	"github.com/wippyai/b2-runtime/event"
	"github.com/wippyai/b2-runtime/geom"
	"github.com/wippyai/b2-runtime/handle"
)

// Entry pairs a Go mirror with its native descriptor and the size and
// alignment the native headers publish for it.
type Entry struct {
	Go    reflect.Type
	Def   *wit.TypeDef
	Name  string
	Size  uint32
	Align uint32
	// Raw entries are {pointer, count} bundles and may hold unsafe.Pointer.
	Raw bool
}

func entry[T any](def *wit.TypeDef, size, align uint32) Entry {
	return Entry{
		Go:    reflect.TypeFor[T](),
		Def:   def,
		Name:  *def.Name,
		Size:  size,
		Align: align,
	}
}

func rawEntry[T any](def *wit.TypeDef, size, align uint32) Entry {
	e := entry[T](def, size, align)
	e.Raw = true
	return e
}

// Entries lists every pinned record shared with the native layer.
func Entries() []Entry {
	return []Entry{
		entry[geom.Vec2](Vec2, 8, 4),
		entry[geom.Rot](Rot, 8, 4),
		entry[geom.Transform](Transform, 16, 4),
		entry[geom.Plane](Plane, 12, 4),
		entry[handle.WorldID](WorldID, 8, 4),
		entry[handle.BodyID](BodyID, 12, 4),
		entry[handle.ShapeID](ShapeID, 12, 4),
		entry[handle.ChainID](ChainID, 12, 4),
		entry[geom.ManifoldPoint](ManifoldPoint, 44, 4),
		entry[geom.Manifold](Manifold, 104, 4),
		entry[geom.Polygon](Polygon, 144, 4),
		entry[event.BodyMoveEvent](BodyMoveEvent, 32, 4),
		entry[event.ContactBeginTouchEvent](ContactBeginTouchEvent, 128, 4),
		entry[event.ContactEndTouchEvent](ContactEndTouchEvent, 24, 4),
		entry[event.ContactHitEvent](ContactHitEvent, 44, 4),
		entry[event.SensorBeginTouchEvent](SensorBeginTouchEvent, 24, 4),
		entry[event.SensorEndTouchEvent](SensorEndTouchEvent, 24, 4),
		entry[callback.PlaneResult](PlaneResult, 24, 4),
		rawEntry[event.RawBodyEvents](BodyEvents, 16, PointerSize),
		rawEntry[event.RawContactEvents](ContactEvents, 40, PointerSize),
		rawEntry[event.RawSensorEvents](SensorEvents, 24, PointerSize),
	}
}

// Verifier checks Go mirrors against native descriptors.
type Verifier struct {
	calc *Calculator
}

func NewVerifier() *Verifier {
	return &Verifier{calc: NewCalculator()}
}

// Layout returns the computed native layout of e.
func (v *Verifier) Layout(e Entry) Info {
	return v.calc.Calculate(e.Def)
}

// Verify checks one entry: the descriptor must match the published size and
// alignment, and the Go type must match the descriptor field by field.
func (v *Verifier) Verify(e Entry) error {
	path := []string{e.Name}
	info := v.calc.Calculate(e.Def)

	if info.Size != e.Size || info.Align != e.Align {
		return errors.LayoutMismatch(path, "descriptor computes size %d align %d, native publishes size %d align %d",
			info.Size, info.Align, e.Size, e.Align)
	}
	if uintptr(e.Size) != e.Go.Size() {
		return errors.LayoutMismatch(path, "Go size %d, native size %d", e.Go.Size(), e.Size)
	}
	if uintptr(e.Align) != uintptr(e.Go.Align()) {
		return errors.LayoutMismatch(path, "Go align %d, native align %d", e.Go.Align(), e.Align)
	}
	return v.verifyType(path, e.Go, e.Def, e.Raw)
}

func (v *Verifier) verifyType(path []string, t reflect.Type, def wit.Type, raw bool) error {
	switch t.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.String,
		reflect.Interface, reflect.Func, reflect.Chan:
		return errors.LayoutMismatch(path, "%s holds a Go pointer", t)
	case reflect.UnsafePointer:
		if !raw {
			return errors.LayoutMismatch(path, "unsafe.Pointer outside a raw bundle")
		}
		return nil
	case reflect.Array:
		return v.verifyType(path, t.Elem(), elemOf(def), raw)
	case reflect.Struct:
		td, ok := def.(*wit.TypeDef)
		if !ok {
			return errors.LayoutMismatch(path, "Go struct %s has no record descriptor", t)
		}
		rec, ok := td.Kind.(*wit.Record)
		if !ok {
			return errors.LayoutMismatch(path, "Go struct %s described as %T", t, td.Kind)
		}
		return v.verifyStruct(path, t, td, rec, raw)
	}
	return nil
}

func (v *Verifier) verifyStruct(path []string, t reflect.Type, td *wit.TypeDef, rec *wit.Record, raw bool) error {
	info := v.calc.Calculate(td)

	var goFields []reflect.StructField
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if f.Name == "_" {
			if err := v.verifyType(append(path, "_"), f.Type, nil, raw); err != nil {
				return err
			}
			continue
		}
		goFields = append(goFields, f)
	}
	if len(goFields) != len(rec.Fields) {
		return errors.LayoutMismatch(path, "Go has %d fields, native has %d", len(goFields), len(rec.Fields))
	}

	for i, gf := range goFields {
		wf := rec.Fields[i]
		fpath := append(append([]string{}, path...), wf.Name)

		if want := info.FieldOffs[wf.Name]; uintptr(want) != gf.Offset {
			return errors.LayoutMismatch(fpath, "Go field %s at offset %d, native at %d", gf.Name, gf.Offset, want)
		}
		if want := v.calc.Calculate(wf.Type).Size; uintptr(want) != gf.Type.Size() {
			return errors.LayoutMismatch(fpath, "Go field %s size %d, native size %d", gf.Name, gf.Type.Size(), want)
		}
		if err := v.verifyType(fpath, gf.Type, wf.Type, raw); err != nil {
			return err
		}
	}
	return nil
}

func elemOf(def wit.Type) wit.Type {
	td, ok := def.(*wit.TypeDef)
	if !ok {
		return nil
	}
	if tup, ok := td.Kind.(*wit.Tuple); ok && len(tup.Types) > 0 {
		return tup.Types[0]
	}
	return nil
}

// VerifyAll checks every entry and joins the failures.
func VerifyAll() error {
	v := NewVerifier()
	var errs []error
	for _, e := range Entries() {
		if err := v.Verify(e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
