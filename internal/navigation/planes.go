package navigation

import (
	"fmt"

	"github.com/san-kum/trackprop/internal/stepper"
)

// Planes visits an ordered list of surfaces. The propagation succeeds once
// the target surface (the last one unless named) is reached.
type Planes struct {
	surfaces  []Surface
	target    string
	tolerance float64
}

func NewPlanes(surfaces []Surface, target string, tolerance float64) (*Planes, error) {
	if len(surfaces) == 0 {
		return nil, fmt.Errorf("%w: no surfaces", ErrInconsistent)
	}
	seen := make(map[string]bool, len(surfaces))
	for _, s := range surfaces {
		if s.ID == "" || seen[s.ID] {
			return nil, fmt.Errorf("%w: surface ids must be unique and non-empty (%q)", ErrInconsistent, s.ID)
		}
		if s.Normal.Norm() == 0 {
			return nil, fmt.Errorf("%w: surface %q has zero normal", ErrInconsistent, s.ID)
		}
		seen[s.ID] = true
	}
	if target == "" {
		target = surfaces[len(surfaces)-1].ID
	}
	if !seen[target] {
		return nil, fmt.Errorf("%w: unknown target %q", ErrInconsistent, target)
	}
	if tolerance <= 0 {
		tolerance = 1e-4
	}

	owned := make([]Surface, len(surfaces))
	copy(owned, surfaces)
	return &Planes{surfaces: owned, target: target, tolerance: tolerance}, nil
}

func (p *Planes) Init(nav *State, st *stepper.State) error {
	nav.Surfaces = p.surfaces
	nav.Target = p.target
	nav.Next = 0
	nav.Passed = nil
	nav.Current = ""
	nav.TargetReached = false
	nav.Break = false
	return p.Update(nav, st)
}

func (p *Planes) Update(nav *State, st *stepper.State) error {
	if nav.Next > len(nav.Surfaces) || len(nav.Surfaces) != len(p.surfaces) {
		return fmt.Errorf("%w: next index %d of %d", ErrInconsistent, nav.Next, len(nav.Surfaces))
	}
	nav.Current = ""
	if nav.Break || nav.Next == len(nav.Surfaces) {
		st.StepSize.Release(stepper.ConstraintNavigator)
		return nil
	}

	next := nav.Surfaces[nav.Next]
	d, ok := next.Distance(st.Position, st.Dir.Scale(float64(st.Direction)))
	if ok && d < p.tolerance && d > -p.tolerance {
		nav.Current = next.ID
		nav.Passed = append(nav.Passed, next.ID)
		nav.Next++
		if next.ID == nav.Target {
			nav.TargetReached = true
			nav.Break = true
			st.StepSize.Release(stepper.ConstraintNavigator)
			return nil
		}
	}
	return p.aim(nav, st)
}

func (p *Planes) TargetReached(nav *State) bool {
	return nav.TargetReached
}

// aim constrains the next step to land on the next surface.
func (p *Planes) aim(nav *State, st *stepper.State) error {
	if nav.Next >= len(nav.Surfaces) {
		st.StepSize.Release(stepper.ConstraintNavigator)
		return nil
	}
	next := nav.Surfaces[nav.Next]
	d, ok := next.Distance(st.Position, st.Dir.Scale(float64(st.Direction)))
	if !ok || d <= -p.tolerance {
		return fmt.Errorf("%w: surface %q not ahead", ErrNoTarget, next.ID)
	}
	if d < p.tolerance {
		// already on the surface, let the next update record it
		d = p.tolerance
	}
	st.StepSize.Set(d, stepper.ConstraintNavigator)
	return nil
}
