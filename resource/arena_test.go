package resource

import (
	"sync"
	"testing"

	"github.com/wippyai/b2-runtime/errors"
)

type testObserver struct {
	events []Event[string]
}

func (o *testObserver) OnSlotEvent(e Event[string]) {
	o.events = append(o.events, e)
}

func TestArena_Basic(t *testing.T) {
	a := NewArena[string]("test")

	// Create
	s, err := a.Create("test value")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if s.IsNull() {
		t.Fatal("Expected non-null slot")
	}
	if s.Generation != 1 {
		t.Fatalf("Expected first generation 1, got %d", s.Generation)
	}

	// Get
	val, ok := a.Get(s)
	if !ok || val != "test value" {
		t.Fatalf("Get = %q, %v", val, ok)
	}

	// Drop
	val, ok = a.Drop(s)
	if !ok || val != "test value" {
		t.Fatalf("Drop = %q, %v", val, ok)
	}

	if _, ok := a.Get(s); ok {
		t.Fatal("Expected Get to fail after Drop")
	}
	if _, ok := a.Drop(s); ok {
		t.Fatal("Expected second Drop to fail")
	}
	if a.Len() != 0 {
		t.Fatal("Expected Len() == 0 after Drop")
	}
}

func TestArena_ReuseBumpsGeneration(t *testing.T) {
	a := NewArena[int]("test")

	s1, _ := a.Create(1)
	a.Drop(s1)
	s2, _ := a.Create(2)

	if s2.Index1 != s1.Index1 {
		t.Fatalf("Expected index reuse, got %d and %d", s1.Index1, s2.Index1)
	}
	if s2.Generation == s1.Generation {
		t.Fatal("Reused index must carry a new generation")
	}
	if a.Valid(s1) {
		t.Fatal("Stale slot must not be valid")
	}
	if v, ok := a.Get(s1); ok {
		t.Fatalf("Stale slot resolved to %d", v)
	}
	if _, ok := a.Drop(s1); ok {
		t.Fatal("Stale slot must not drop the new occupant")
	}
	if v, ok := a.Get(s2); !ok || v != 2 {
		t.Fatalf("Get(s2) = %d, %v", v, ok)
	}

	gen, live := a.Generation(s2.Index1)
	if !live || gen != s2.Generation {
		t.Fatalf("Generation = %d, %v", gen, live)
	}
}

func TestArena_NullAndUnknownSlots(t *testing.T) {
	a := NewArena[int]("test")
	a.Create(1)

	for _, s := range []Slot{{}, {Index1: 9, Generation: 1}, {Index1: 1, Generation: 0}} {
		if a.Valid(s) {
			t.Errorf("%v should not be valid", s)
		}
		if a.Set(s, 5) {
			t.Errorf("Set(%v) should fail", s)
		}
	}
}

func TestArena_Observer(t *testing.T) {
	a := NewArena[string]("test")
	obs := &testObserver{}
	a.Subscribe(obs)

	// Create should trigger EventCreated
	s, _ := a.Create("test")
	if len(obs.events) != 1 {
		t.Fatalf("Expected 1 event, got %d", len(obs.events))
	}
	if obs.events[0].Type != EventCreated || obs.events[0].Slot != s {
		t.Fatalf("Unexpected event %+v", obs.events[0])
	}

	// Drop should trigger EventDropped
	a.Drop(s)
	if len(obs.events) != 2 || obs.events[1].Type != EventDropped {
		t.Fatalf("Expected EventDropped, got %+v", obs.events)
	}

	// Unsubscribe
	a.Unsubscribe(obs)
	a.Create("test2")
	if len(obs.events) != 2 {
		t.Fatal("Should not receive events after Unsubscribe")
	}
}

func TestArena_EachOrder(t *testing.T) {
	a := NewArena[string]("test")
	sa, _ := a.Create("a")
	a.Create("b")
	a.Create("c")
	a.Drop(sa)

	var got []string
	a.Each(func(_ Slot, v string) bool {
		got = append(got, v)
		return true
	})
	if len(got) != 2 || got[0] != "b" || got[1] != "c" {
		t.Fatalf("Each = %v", got)
	}
	if a.Cap() != 3 {
		t.Fatalf("Cap = %d", a.Cap())
	}
}

type dropCounter struct {
	count int
}

func (d *dropCounter) Drop() {
	d.count++
}

func TestArena_CloseDropsAndRejects(t *testing.T) {
	a := NewArena[*dropCounter]("counters")
	d1, d2 := &dropCounter{}, &dropCounter{}
	a.Create(d1)
	a.Create(d2)

	if err := a.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if d1.count != 1 || d2.count != 1 {
		t.Fatalf("Drop calls = %d, %d", d1.count, d2.count)
	}

	_, err := a.Create(&dropCounter{})
	if !errors.Is(err, errors.ErrClosed) {
		t.Fatalf("Create after Close = %v", err)
	}
	if err := a.Close(); err != nil {
		t.Fatal("second Close should be a no-op")
	}
}

func TestSlot_PackRoundTrip(t *testing.T) {
	s := Slot{Index1: 7, Generation: 0xdeadbeef}
	if got := Unpack(s.Pack()); got != s {
		t.Fatalf("Unpack(Pack) = %v", got)
	}
	if Unpack(0) != (Slot{}) {
		t.Fatal("zero must unpack to the null slot")
	}
}

func TestArena_Concurrent(t *testing.T) {
	a := NewArena[int]("test")
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				s, err := a.Create(n*1000 + j)
				if err != nil {
					t.Error(err)
					return
				}
				if v, ok := a.Get(s); !ok || v != n*1000+j {
					t.Errorf("Get = %d, %v", v, ok)
					return
				}
				a.Drop(s)
			}
		}(i)
	}
	wg.Wait()
	if a.Len() != 0 {
		t.Fatalf("Len = %d", a.Len())
	}
}
