package stimulus

import (
	"path/filepath"

	"github.com/pkg/errors"
	lua "github.com/yuin/gopher-lua"
)

// Constraint is a Lua predicate that restricts the stimulus domain. The script must define a
// global function accept(v) returning a boolean.
//
//	function accept(v)
//	  return v % 2 == 0
//	end
type Constraint struct {
	name string
	L    *lua.LState
	fn   *lua.LFunction
}

// LoadConstraint compiles a constraint from source.
func LoadConstraint(name, source string) (*Constraint, error) {
	L, err := newState()
	if err != nil {
		return nil, err
	}
	if err := L.DoString(source); err != nil {
		L.Close()
		return nil, errors.Wrapf(err, "constraint %s", name)
	}
	return bind(name, L)
}

// LoadConstraintFile compiles a constraint script from disk.
func LoadConstraintFile(path string) (*Constraint, error) {
	L, err := newState()
	if err != nil {
		return nil, err
	}
	if err := L.DoFile(path); err != nil {
		L.Close()
		return nil, errors.Wrapf(err, "constraint %s", path)
	}
	return bind(filepath.Base(path), L)
}

// newState opens only the libraries a predicate needs; scripts get no io or os access.
func newState() (*lua.LState, error) {
	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	for _, lib := range []struct {
		name string
		open lua.LGFunction
	}{
		{lua.BaseLibName, lua.OpenBase},
		{lua.MathLibName, lua.OpenMath},
		{lua.StringLibName, lua.OpenString},
	} {
		if err := L.CallByParam(lua.P{Fn: L.NewFunction(lib.open), NRet: 0, Protect: true}, lua.LString(lib.name)); err != nil {
			L.Close()
			return nil, errors.Wrapf(err, "open lua %s library", lib.name)
		}
	}
	return L, nil
}

func bind(name string, L *lua.LState) (*Constraint, error) {
	fn, ok := L.GetGlobal("accept").(*lua.LFunction)
	if !ok {
		L.Close()
		return nil, errors.Errorf("constraint %s: no accept(v) function", name)
	}
	return &Constraint{name: name, L: L, fn: fn}, nil
}

// Name returns the script name.
func (c *Constraint) Name() string {
	return c.name
}

// Accept evaluates the predicate for v. Lua truthiness applies: nil and false reject.
func (c *Constraint) Accept(v int) (bool, error) {
	if err := c.L.CallByParam(lua.P{Fn: c.fn, NRet: 1, Protect: true}, lua.LNumber(v)); err != nil {
		return false, errors.Wrapf(err, "constraint %s accept(%d)", c.name, v)
	}
	ret := c.L.Get(-1)
	c.L.Pop(1)
	return lua.LVAsBool(ret), nil
}

// Filter returns the values of [lo, hi) accepted by the predicate.
func (c *Constraint) Filter(lo, hi int) ([]int, error) {
	var out []int
	for v := lo; v < hi; v++ {
		ok, err := c.Accept(v)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, v)
		}
	}
	return out, nil
}

// Close releases the Lua state.
func (c *Constraint) Close() {
	if c != nil && c.L != nil {
		c.L.Close()
	}
}
