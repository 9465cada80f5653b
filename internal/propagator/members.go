package propagator

import (
	"fmt"
	"reflect"
)

// Action is a result-less member run after every step.
type Action interface {
	Act(s *State)
}

// Observer is a member run after every step with mutable access to its own
// result value.
type Observer[R any] interface {
	Act(s *State, r *R)
}

// Aborter is a result-less abort condition.
type Aborter interface {
	Check(s *State) bool
}

// ResultAborter is an abort condition with access to a result value.
type ResultAborter[R any] interface {
	Check(s *State, r *R) bool
}

// Initializer lets a result-bearing member supply the starting value of its
// result instead of the zero value.
type Initializer[R any] interface {
	NewResult() R
}

// Starter is implemented by members that act once before the first step,
// for example to constrain it.
type Starter interface {
	Start(s *State)
}

// Namer overrides the name a member is reported under.
type Namer interface {
	Name() string
}

type action struct {
	name  string
	slot  *cellRef
	start func(s *State)
	act   func(s *State, cells []any)
}

type aborter struct {
	name  string
	slot  *cellRef
	start func(s *State)
	check func(s *State, cells []any) bool
}

// cellSpec describes one field of the result aggregate.
type cellSpec struct {
	owner    string
	typeName string
	ref      *cellRef
	make     func() any
	err      error
}

type cellRef struct {
	index int
	plan  *Plan
}

func memberName(m any) string {
	if n, ok := m.(Namer); ok {
		return n.Name()
	}
	return fmt.Sprintf("%T", m)
}

func starterOf(m any) func(*State) {
	if st, ok := m.(Starter); ok {
		return st.Start
	}
	return nil
}

// newCellSpec prepares default construction of R for the member m.
func newCellSpec[R any](m any, owner string) cellSpec {
	typ := reflect.TypeFor[R]()
	spec := cellSpec{
		owner:    owner,
		typeName: typ.String(),
		ref:      &cellRef{index: -1},
	}

	if ini, ok := m.(Initializer[R]); ok {
		spec.make = func() any {
			v := ini.NewResult()
			return &v
		}
		return spec
	}

	switch typ.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Chan, reflect.Func, reflect.Interface, reflect.UnsafePointer:
		spec.err = ErrNotDefaultConstructible
	default:
		if path, ok := nilContainer(typ, typ.String()); ok {
			spec.err = fmt.Errorf("%w: %s is nil in the zero value", ErrNotDefaultConstructible, path)
		}
	}
	spec.make = func() any { return new(R) }
	return spec
}

// nilContainer finds a map, chan or func nested in the zero value of typ
// through struct fields and array elements. Slices and pointers are not
// followed: a nil slice is usable and a nested nil pointer is an optional
// value.
func nilContainer(typ reflect.Type, path string) (string, bool) {
	switch typ.Kind() {
	case reflect.Map, reflect.Chan, reflect.Func:
		return path, true
	case reflect.Array:
		if typ.Len() == 0 {
			return "", false
		}
		return nilContainer(typ.Elem(), path+"[0]")
	case reflect.Struct:
		for i := 0; i < typ.NumField(); i++ {
			f := typ.Field(i)
			if p, ok := nilContainer(f.Type, path+"."+f.Name); ok {
				return p, true
			}
		}
	}
	return "", false
}
