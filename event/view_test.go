package event

import (
	"slices"
	"testing"
	"unsafe"

	"github.com/wippyai/b2-runtime/errors"
	"github.com/wippyai/b2-runtime/handle"
)

func TestFromNative_NilEmpty(t *testing.T) {
	v, err := FromNative[ContactHitEvent](nil, 0)
	if err != nil {
		t.Fatalf("FromNative(nil, 0) failed: %v", err)
	}
	if v.Len() != 0 || v.AsSlice().Len() != 0 {
		t.Fatalf("expected empty view, got len %d", v.Len())
	}
	for range v.AsSlice().All() {
		t.Fatal("empty view yielded an element")
	}
	if _, err := v.AsSlice().At(0); !errors.Is(err, errors.ErrIndexOutOfRange) {
		t.Fatalf("At(0) on empty view: %v", err)
	}
}

func TestFromNative_InvalidBuffer(t *testing.T) {
	if _, err := FromNative[ContactHitEvent](nil, 3); !errors.Is(err, errors.ErrInvalidBuffer) {
		t.Fatalf("FromNative(nil, 3) = %v, want InvalidBuffer", err)
	}

	var rec ContactHitEvent
	if _, err := FromNative[ContactHitEvent](unsafe.Pointer(&rec), -1); !errors.Is(err, errors.ErrInvalidBuffer) {
		t.Fatalf("negative count = %v, want InvalidBuffer", err)
	}
}

func TestSlice_StorageOrder(t *testing.T) {
	backing := [4]SensorBeginTouchEvent{}
	for i := range backing {
		backing[i].SensorShapeID = handle.ShapeID{Index1: uint32(i + 1), Generation: 1}
		backing[i].VisitorShapeID = handle.ShapeID{Index1: uint32(10 + i), Generation: 1}
	}

	v, err := FromNative[SensorBeginTouchEvent](unsafe.Pointer(&backing[0]), len(backing))
	if err != nil {
		t.Fatal(err)
	}
	s := v.AsSlice()
	if s.Len() != len(backing) {
		t.Fatalf("Len = %d", s.Len())
	}

	for i, ev := range s.All() {
		if ev != backing[i] {
			t.Fatalf("element %d = %+v, want %+v", i, ev, backing[i])
		}
		got, err := s.At(i)
		if err != nil || got != backing[i] {
			t.Fatalf("At(%d) = %+v, %v", i, got, err)
		}
	}

	if _, err := s.At(len(backing)); !errors.Is(err, errors.ErrIndexOutOfRange) {
		t.Fatalf("At(len) = %v, want IndexOutOfRange", err)
	}
	if _, err := s.At(-1); !errors.Is(err, errors.ErrIndexOutOfRange) {
		t.Fatalf("At(-1) = %v, want IndexOutOfRange", err)
	}
}

func TestSlice_AtReturnsCopy(t *testing.T) {
	backing := []ContactEndTouchEvent{{ShapeIDA: handle.ShapeID{Index1: 1}}}
	v, _ := FromNative[ContactEndTouchEvent](unsafe.Pointer(&backing[0]), 1)

	ev, _ := v.AsSlice().At(0)
	ev.ShapeIDA.Index1 = 99
	if backing[0].ShapeIDA.Index1 != 1 {
		t.Fatal("mutating a returned record changed native memory")
	}
}

func TestSlice_AllStopsOnBreak(t *testing.T) {
	backing := make([]ContactEndTouchEvent, 5)
	v, _ := FromNative[ContactEndTouchEvent](unsafe.Pointer(&backing[0]), len(backing))

	n := 0
	for range v.AsSlice().All() {
		n++
		if n == 2 {
			break
		}
	}
	if n != 2 {
		t.Fatalf("visited %d", n)
	}
}

func TestLease_ExpiresViews(t *testing.T) {
	lease := NewLease()
	backing := []BodyMoveEvent{{BodyID: handle.BodyID{Index1: 1, Generation: 1}}}
	v, err := FromNativeLeased[BodyMoveEvent](unsafe.Pointer(&backing[0]), 1, lease)
	if err != nil {
		t.Fatal(err)
	}
	if !v.Valid() {
		t.Fatal("fresh view should be valid")
	}
	if _, err := v.AsSlice().At(0); err != nil {
		t.Fatalf("At before expiry: %v", err)
	}

	lease.Expire()

	if v.Valid() {
		t.Fatal("view should be invalid after Expire")
	}
	if v.Len() != 1 {
		t.Fatal("Len should survive expiry")
	}
	if _, err := v.AsSlice().At(0); !errors.Is(err, errors.ErrViewExpired) {
		t.Fatalf("At after expiry = %v, want ViewExpired", err)
	}
	if _, err := v.AsSlice().AppendTo(nil); !errors.Is(err, errors.ErrViewExpired) {
		t.Fatalf("AppendTo after expiry = %v, want ViewExpired", err)
	}
	for range v.AsSlice().All() {
		t.Fatal("expired view yielded an element")
	}

	fresh, _ := FromNativeLeased[BodyMoveEvent](unsafe.Pointer(&backing[0]), 1, lease)
	if !fresh.Valid() || fresh.Epoch() != lease.Epoch() {
		t.Fatal("view bound after Expire should be valid")
	}
}

func TestSlice_AppendTo(t *testing.T) {
	backing := []ContactEndTouchEvent{
		{ShapeIDA: handle.ShapeID{Index1: 1}},
		{ShapeIDA: handle.ShapeID{Index1: 2}},
	}
	v, _ := FromNative[ContactEndTouchEvent](unsafe.Pointer(&backing[0]), 2)

	dst := []ContactEndTouchEvent{{}}
	dst, err := v.AsSlice().AppendTo(dst)
	if err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(dst[1:], backing) {
		t.Fatalf("AppendTo = %+v", dst)
	}
	backing[0].ShapeIDA.Index1 = 42
	if dst[1].ShapeIDA.Index1 != 1 {
		t.Fatal("AppendTo must copy")
	}
}

func TestWrapContact(t *testing.T) {
	begins := []ContactBeginTouchEvent{{ShapeIDA: handle.ShapeID{Index1: 1}}}
	hits := []ContactHitEvent{{ApproachSpeed: 3}, {ApproachSpeed: 4}}
	raw := RawContactEvents{
		BeginEvents: unsafe.Pointer(&begins[0]),
		BeginCount:  1,
		HitEvents:   unsafe.Pointer(&hits[0]),
		HitCount:    2,
	}

	lease := NewLease()
	ev, err := WrapContact(raw, lease)
	if err != nil {
		t.Fatal(err)
	}
	if ev.Begin.Len() != 1 || ev.End.Len() != 0 || ev.Hit.Len() != 2 {
		t.Fatalf("lengths %d/%d/%d", ev.Begin.Len(), ev.End.Len(), ev.Hit.Len())
	}
	h, _ := ev.Hit.AsSlice().At(1)
	if h.ApproachSpeed != 4 {
		t.Fatalf("hit[1] = %+v", h)
	}

	raw.EndCount = 2
	_, err = WrapContact(raw, lease)
	var e *errors.Error
	if !errors.As(err, &e) || e.Kind != errors.KindInvalidBuffer {
		t.Fatalf("expected InvalidBuffer, got %v", err)
	}
	if !slices.Equal(e.Path, []string{"contact", "end"}) {
		t.Fatalf("path = %v", e.Path)
	}
}

func TestWrapBodyAndSensor(t *testing.T) {
	moves := []BodyMoveEvent{{FellAsleep: true}}
	b, err := WrapBody(RawBodyEvents{MoveEvents: unsafe.Pointer(&moves[0]), MoveCount: 1}, nil)
	if err != nil {
		t.Fatal(err)
	}
	m, _ := b.Move.AsSlice().At(0)
	if !m.FellAsleep {
		t.Fatal("move event not read through")
	}

	s, err := WrapSensor(RawSensorEvents{}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if s.Begin.Len() != 0 || s.End.Len() != 0 {
		t.Fatal("empty sensor bundle should produce empty views")
	}

	if _, err := WrapSensor(RawSensorEvents{BeginCount: -2}, nil); !errors.Is(err, errors.ErrInvalidBuffer) {
		t.Fatalf("negative count = %v", err)
	}
}

func TestRecordSizes(t *testing.T) {
	sizes := []struct {
		name string
		got  uintptr
		want uintptr
	}{
		{"BodyMoveEvent", unsafe.Sizeof(BodyMoveEvent{}), 32},
		{"ContactBeginTouchEvent", unsafe.Sizeof(ContactBeginTouchEvent{}), 128},
		{"ContactEndTouchEvent", unsafe.Sizeof(ContactEndTouchEvent{}), 24},
		{"ContactHitEvent", unsafe.Sizeof(ContactHitEvent{}), 44},
		{"SensorBeginTouchEvent", unsafe.Sizeof(SensorBeginTouchEvent{}), 24},
		{"SensorEndTouchEvent", unsafe.Sizeof(SensorEndTouchEvent{}), 24},
	}
	for _, s := range sizes {
		if s.got != s.want {
			t.Errorf("sizeof(%s) = %d, want %d", s.name, s.got, s.want)
		}
	}
}
