// Package script compiles Lua cast filters.
//
// A filter is a Lua chunk run once per cast candidate. The candidate is
// exposed as the global table hit:
//
//	hit.shape     scene name of the shape, or its handle
//	hit.fraction  fraction along the cast
//	hit.x, hit.y  hit point
//	hit.nx, hit.ny  hit normal
//
// The chunk returns the cast result: a number, or true (continue), false
// (filter) or nothing (continue). The globals FILTER, TERMINATE and
// CONTINUE hold the fixed return values.
//
// Only the base, math and string libraries are opened.
package script

import (
	"fmt"
	"math"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/wippyai/b2-runtime/callback"
	"github.com/wippyai/b2-runtime/errors"
	"github.com/wippyai/b2-runtime/handle"
)

// Namer returns the display name of a shape.
type Namer func(handle.ShapeID) string

// Filter is a compiled cast filter bound to its own Lua state. It is not
// safe for concurrent use.
type Filter struct {
	name  string
	vm    *lua.LState
	chunk *lua.LFunction
	hit   *lua.LTable
	names Namer
	calls int
}

var libs = []struct {
	name string
	open lua.LGFunction
}{
	{lua.BaseLibName, lua.OpenBase},
	{lua.MathLibName, lua.OpenMath},
	{lua.StringLibName, lua.OpenString},
}

// Compile parses src into a filter. names may be nil, in which case
// hit.shape is the handle string.
func Compile(name, src string, names Namer) (*Filter, error) {
	vm := lua.NewState(lua.Options{SkipOpenLibs: true})
	for _, lib := range libs {
		if err := vm.CallByParam(lua.P{
			Fn:      vm.NewFunction(lib.open),
			NRet:    0,
			Protect: true,
		}, lua.LString(lib.name)); err != nil {
			vm.Close()
			return nil, errors.Wrap(errors.PhaseLoad, errors.KindInvalidData, err, "open lua "+lib.name)
		}
	}

	vm.SetGlobal("FILTER", lua.LNumber(callback.Filter))
	vm.SetGlobal("TERMINATE", lua.LNumber(callback.Terminate))
	vm.SetGlobal("CONTINUE", lua.LNumber(callback.Continue))

	chunk, err := vm.LoadString(src)
	if err != nil {
		vm.Close()
		return nil, errors.New(errors.PhaseLoad, errors.KindInvalidData).
			Path("filter", name).
			Cause(err).
			Detail("compile lua filter").
			Build()
	}
	if names == nil {
		names = func(id handle.ShapeID) string { return id.String() }
	}

	hit := vm.NewTable()
	vm.SetGlobal("hit", hit)

	Logger().Debug("lua filter compiled", zap.String("filter", name))
	return &Filter{name: name, vm: vm, chunk: chunk, hit: hit, names: names}, nil
}

// Name returns the filter name given to Compile.
func (f *Filter) Name() string { return f.name }

// Calls returns how many candidates the filter has seen.
func (f *Filter) Calls() int { return f.calls }

// Eval runs the filter on one candidate.
func (f *Filter) Eval(c callback.Candidate) (float32, error) {
	f.calls++
	f.hit.RawSetString("shape", lua.LString(f.names(c.Shape)))
	f.hit.RawSetString("fraction", lua.LNumber(c.Fraction))
	f.hit.RawSetString("x", lua.LNumber(c.Point.X()))
	f.hit.RawSetString("y", lua.LNumber(c.Point.Y()))
	f.hit.RawSetString("nx", lua.LNumber(c.Normal.X()))
	f.hit.RawSetString("ny", lua.LNumber(c.Normal.Y()))

	top := f.vm.GetTop()
	if err := f.vm.CallByParam(lua.P{
		Fn:      f.chunk,
		NRet:    1,
		Protect: true,
	}); err != nil {
		f.vm.SetTop(top)
		return 0, errors.New(errors.PhaseCallback, errors.KindCallbackFailure).
			Path("filter", f.name).
			Cause(err).
			Detail("lua filter failed").
			Build()
	}
	ret := f.vm.Get(-1)
	f.vm.Pop(1)

	switch v := ret.(type) {
	case lua.LNumber:
		return float32(v), nil
	case lua.LBool:
		if v {
			return callback.Continue, nil
		}
		return callback.Filter, nil
	}
	if ret == lua.LNil {
		return callback.Continue, nil
	}
	return 0, errors.New(errors.PhaseCallback, errors.KindCallbackFailure).
		Path("filter", f.name).
		Detail("lua filter returned %s", ret.Type()).
		Build()
}

// Then returns a cast callback that runs the filter first and passes
// candidates it accepts to next. A filter result of FILTER or TERMINATE is
// returned as is; any other result hands the candidate to next. Lua errors
// panic into the callback boundary, which ends the query with a callback
// failure.
func (f *Filter) Then(next callback.CastFunc) callback.CastFunc {
	return callback.Ref(func(c callback.Candidate, f *Filter) float32 {
		v, err := f.Eval(c)
		if err != nil {
			Logger().Warn("lua filter error", zap.String("filter", f.name), zap.Error(err))
			panic(err)
		}
		if v <= 0 || math.IsNaN(float64(v)) || next.IsZero() {
			return v
		}
		return next.Call(c)
	}, f)
}

// Cast returns a cast callback whose result is the filter's own result.
func (f *Filter) Cast() callback.CastFunc {
	return f.Then(callback.CastFunc{})
}

// Close releases the Lua state.
func (f *Filter) Close() {
	if f.vm != nil {
		f.vm.Close()
		f.vm = nil
	}
}

func (f *Filter) String() string {
	return fmt.Sprintf("filter(%s)", f.name)
}
