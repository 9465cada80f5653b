package propagator

import "errors"

// Builder collects actions and aborters in declaration order.
type Builder struct {
	actions  []action
	aborters []aborter

	actionCells  []cellSpec
	aborterCells []cellSpec

	built bool
	errs  []error
}

func NewBuilder() *Builder {
	return &Builder{}
}

// Slot is a typed handle to one field of the result aggregate.
type Slot[R any] struct {
	ref *cellRef
}

// frozen records registrations made after Build. They are dropped and
// reported by Err.
func (b *Builder) frozen(m any) bool {
	if b.built {
		b.errs = append(b.errs, &BuildError{Member: memberName(m), Wrapped: ErrBuilderUsed})
		return true
	}
	return false
}

// Err reports registration problems recorded so far, including members
// added after Build, which never reach the Plan.
func (b *Builder) Err() error {
	return errors.Join(b.errs...)
}

// AddAction registers a result-less action.
func (b *Builder) AddAction(a Action) *Builder {
	if b.frozen(a) {
		return b
	}
	b.actions = append(b.actions, action{
		name:  memberName(a),
		start: starterOf(a),
		act:   func(s *State, _ []any) { a.Act(s) },
	})
	return b
}

// AddAborter registers a result-less abort condition.
func (b *Builder) AddAborter(a Aborter) *Builder {
	if b.frozen(a) {
		return b
	}
	b.aborters = append(b.aborters, aborter{
		name:  memberName(a),
		start: starterOf(a),
		check: func(s *State, _ []any) bool { return a.Check(s) },
	})
	return b
}

// AddObserver registers a result-bearing action and returns the handle of
// its result field.
func AddObserver[R any](b *Builder, o Observer[R]) Slot[R] {
	if b.frozen(o) {
		return Slot[R]{}
	}
	name := memberName(o)
	spec := newCellSpec[R](o, name)
	b.actionCells = append(b.actionCells, spec)

	ref := spec.ref
	b.actions = append(b.actions, action{
		name:  name,
		slot:  ref,
		start: starterOf(o),
		act: func(s *State, cells []any) {
			o.Act(s, cells[ref.index].(*R))
		},
	})
	return Slot[R]{ref: ref}
}

// AddResultAborter registers an abort condition that owns a result field.
func AddResultAborter[R any](b *Builder, a ResultAborter[R]) Slot[R] {
	if b.frozen(a) {
		return Slot[R]{}
	}
	name := memberName(a)
	spec := newCellSpec[R](a, name)
	b.aborterCells = append(b.aborterCells, spec)

	ref := spec.ref
	b.aborters = append(b.aborters, aborter{
		name:  name,
		slot:  ref,
		start: starterOf(a),
		check: attachCheck(a, ref),
	})
	return Slot[R]{ref: ref}
}

// AttachAborter registers an abort condition that reads and writes the
// result field of an already registered observer. The aggregate gains no
// field.
func AttachAborter[R any](b *Builder, slot Slot[R], a ResultAborter[R]) {
	if b.frozen(a) {
		return
	}
	if slot.ref == nil {
		b.errs = append(b.errs, &BuildError{Member: memberName(a), Wrapped: ErrUnknownSlot})
		return
	}
	b.aborters = append(b.aborters, aborter{
		name:  memberName(a),
		slot:  slot.ref,
		start: starterOf(a),
		check: attachCheck(a, slot.ref),
	})
}

func attachCheck[R any](a ResultAborter[R], ref *cellRef) func(*State, []any) bool {
	return func(s *State, cells []any) bool {
		return a.Check(s, cells[ref.index].(*R))
	}
}

// Build validates every result type and freezes the members into a Plan.
// A Builder can be built once.
func (b *Builder) Build() (*Plan, error) {
	if b.built {
		return nil, ErrBuilderUsed
	}
	b.built = true

	errs := append([]error(nil), b.errs...)
	cells := make([]cellSpec, 0, len(b.actionCells)+len(b.aborterCells))
	cells = append(cells, b.actionCells...)
	cells = append(cells, b.aborterCells...)

	for _, c := range cells {
		if c.err != nil {
			errs = append(errs, &BuildError{Member: c.owner, ResultType: c.typeName, Wrapped: c.err})
		}
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	plan := &Plan{
		actions:  append([]action(nil), b.actions...),
		aborters: append([]aborter(nil), b.aborters...),
		cells:    cells,
	}
	for i, c := range cells {
		c.ref.index = i
		c.ref.plan = plan
	}
	plan.empty = &Results{plan: plan}
	return plan, nil
}

// Plan is an immutable, shareable member configuration.
type Plan struct {
	actions  []action
	aborters []aborter
	cells    []cellSpec
	empty    *Results
}

func (p *Plan) NumActions() int  { return len(p.actions) }
func (p *Plan) NumAborters() int { return len(p.aborters) }

// ActionNames lists actions in invocation order.
func (p *Plan) ActionNames() []string {
	names := make([]string, len(p.actions))
	for i, a := range p.actions {
		names[i] = a.name
	}
	return names
}

// AborterNames lists abort conditions in priority order.
func (p *Plan) AborterNames() []string {
	names := make([]string, len(p.aborters))
	for i, a := range p.aborters {
		names[i] = a.name
	}
	return names
}

// newResults default-constructs the aggregate for one call. Plans without
// result-bearing members share a single empty aggregate.
func (p *Plan) newResults() *Results {
	if len(p.cells) == 0 {
		return p.empty
	}
	values := make([]any, len(p.cells))
	for i, c := range p.cells {
		values[i] = c.make()
	}
	return &Results{plan: p, cells: values}
}
