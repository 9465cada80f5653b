package propagator

// Results is the aggregate of all result-bearing members of a Plan for one
// propagation call. Its shape is fixed by the Plan.
type Results struct {
	plan  *Plan
	cells []any
}

// Field describes one entry of the aggregate.
type Field struct {
	Member string
	Type   string
	Value  any
}

func (r *Results) Len() int {
	if r == nil {
		return 0
	}
	return len(r.cells)
}

// Fields lists the aggregate in declaration order. Values are pointers to the
// live result values.
func (r *Results) Fields() []Field {
	if r.Len() == 0 {
		return nil
	}
	fields := make([]Field, len(r.cells))
	for i, c := range r.cells {
		spec := r.plan.cells[i]
		fields[i] = Field{Member: spec.owner, Type: spec.typeName, Value: c}
	}
	return fields
}

func (s Slot[R]) ptr(r *Results) *R {
	if s.ref == nil || r == nil || r.plan != s.ref.plan || s.ref.index < 0 {
		return nil
	}
	return r.cells[s.ref.index].(*R)
}

// Get returns a copy of the slot's value. ok is false when r was not
// produced by the plan the slot belongs to.
func (s Slot[R]) Get(r *Results) (R, bool) {
	p := s.ptr(r)
	if p == nil {
		var zero R
		return zero, false
	}
	return *p, true
}

// Ptr returns the live value, or nil when r does not belong to the slot's plan.
func (s Slot[R]) Ptr(r *Results) *R {
	return s.ptr(r)
}

// Valid reports whether the slot was returned by a Builder.
func (s Slot[R]) Valid() bool {
	return s.ref != nil
}
