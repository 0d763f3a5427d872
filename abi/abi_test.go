package abi

import (
	"reflect"
	"testing"
	"unsafe"

	"go.bytecodealliance.org/wit"

	"github.com/wippyai/b2-runtime/errors"
)

func TestCalculatePrimitives(t *testing.T) {
	c := NewCalculator()

	tests := []struct {
		typ   wit.Type
		name  string
		size  uint32
		align uint32
	}{
		{wit.Bool{}, "bool", 1, 1},
		{wit.U8{}, "u8", 1, 1},
		{wit.U16{}, "u16", 2, 2},
		{wit.S16{}, "s16", 2, 2},
		{wit.U32{}, "u32", 4, 4},
		{wit.S32{}, "s32", 4, 4},
		{wit.U64{}, "u64", 8, 8},
		{wit.F32{}, "f32", 4, 4},
		{wit.F64{}, "f64", 8, 8},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			info := c.Calculate(tc.typ)
			if info.Size != tc.size {
				t.Errorf("size: got %d, want %d", info.Size, tc.size)
			}
			if info.Align != tc.align {
				t.Errorf("align: got %d, want %d", info.Align, tc.align)
			}
		})
	}
}

func TestCalculateRecord(t *testing.T) {
	c := NewCalculator()

	t.Run("padding", func(t *testing.T) {
		info := c.Calculate(record("r",
			field("a", wit.U8{}),
			field("b", wit.U32{}),
			field("c", wit.U16{})))
		if info.FieldOffs["a"] != 0 || info.FieldOffs["b"] != 4 || info.FieldOffs["c"] != 8 {
			t.Errorf("offsets: %v", info.FieldOffs)
		}
		if info.Size != 12 || info.Align != 4 {
			t.Errorf("size %d align %d", info.Size, info.Align)
		}
	})

	t.Run("array", func(t *testing.T) {
		info := c.Calculate(array(3, Vec2))
		if info.Size != 24 || info.Align != 4 {
			t.Errorf("size %d align %d", info.Size, info.Align)
		}
	})

	t.Run("manifold", func(t *testing.T) {
		info := c.Calculate(Manifold)
		if info.FieldOffs["points"] != 12 || info.FieldOffs["pointCount"] != 100 {
			t.Errorf("offsets: %v", info.FieldOffs)
		}
	})
}

func TestVerifyAll(t *testing.T) {
	if err := VerifyAll(); err != nil {
		t.Fatalf("layout verification failed: %v", err)
	}
}

func TestVerify_EveryEntryNamed(t *testing.T) {
	seen := make(map[string]bool)
	for _, e := range Entries() {
		if e.Name == "" || seen[e.Name] {
			t.Fatalf("bad or duplicate entry name %q", e.Name)
		}
		seen[e.Name] = true
	}
}

type shiftedHit struct {
	Flag  bool
	Speed float32
}

type pointerRecord struct {
	Name *byte
	N    uint32
}

type unsafeRecord struct {
	P unsafe.Pointer
	N uint64
}

func TestVerify_Mismatches(t *testing.T) {
	v := NewVerifier()

	tests := []struct {
		name  string
		entry Entry
	}{
		{
			name: "published size differs",
			entry: Entry{Go: reflect.TypeFor[shiftedHit](), Name: "a", Size: 16, Align: 4,
				Def: record("a", field("flag", wit.Bool{}), field("speed", wit.F32{}))},
		},
		{
			name: "field offset differs",
			entry: Entry{Go: reflect.TypeFor[shiftedHit](), Name: "b", Size: 8, Align: 4,
				Def: record("b", field("speed", wit.F32{}), field("flag", wit.Bool{}))},
		},
		{
			name: "field count differs",
			entry: Entry{Go: reflect.TypeFor[shiftedHit](), Name: "c", Size: 4, Align: 4,
				Def: record("c", field("speed", wit.F32{}))},
		},
		{
			name: "go pointer",
			entry: Entry{Go: reflect.TypeFor[pointerRecord](), Name: "d", Size: 16, Align: 8,
				Def: record("d", field("name", pointer()), field("n", wit.U32{}))},
		},
		{
			name: "unsafe pointer outside raw bundle",
			entry: Entry{Go: reflect.TypeFor[unsafeRecord](), Name: "e", Size: 16, Align: 8,
				Def: record("e", field("p", pointer()), field("n", wit.U64{}))},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Verify(tt.entry)
			var e *errors.Error
			if !errors.As(err, &e) || e.Kind != errors.KindLayoutMismatch {
				t.Fatalf("expected layout mismatch, got %v", err)
			}
		})
	}

	ok := Entry{Go: reflect.TypeFor[unsafeRecord](), Name: "f", Size: 16, Align: 8, Raw: true,
		Def: record("f", field("p", pointer()), field("n", wit.U64{}))}
	if err := v.Verify(ok); err != nil {
		t.Fatalf("raw bundle should verify: %v", err)
	}
}
