package stepper

import (
	"math"

	"github.com/san-kum/trackprop/internal/field"
	"github.com/san-kum/trackprop/internal/track"
)

// RK4 integrates the equation of motion of a charged object in a magnetic
// field with a classic fourth order Runge-Kutta scheme. The step size adapts
// by step doubling: a full step is compared against two half steps and the
// step is halved until the position difference is below State.Tolerance.
type RK4 struct {
	Field   field.Provider
	MinStep float64
	MaxStep float64
}

func NewRK4(f field.Provider) *RK4 {
	if f == nil {
		f = field.Null{}
	}
	return &RK4{
		Field:   f,
		MinStep: 1e-4,
		MaxStep: 1000.0,
	}
}

func (r *RK4) NewState(start track.Parameters, opts Options) (*State, error) {
	return newState(start, opts, r.Field.MakeCache())
}

func (r *RK4) Step(st *State) (float64, error) {
	h, which := st.StepSize.Limiting()
	if h <= 0 {
		return 0, ErrZeroStep
	}
	if math.IsInf(h, 1) {
		h = r.MaxStep
	}
	h *= float64(st.Direction)

	st.LastLimit = which

	if st.Charge == 0 {
		pos := st.Position.Add(st.Dir.Scale(h))
		if err := st.advance(pos, st.Dir, h, track.StraightLineJacobian(h)); err != nil {
			return 0, err
		}
		return h, nil
	}

	for trial := 0; ; trial++ {
		fullPos, _, err := r.integrate(st, st.Position, st.Dir, h)
		if err != nil {
			return 0, err
		}
		midPos, midDir, err := r.integrate(st, st.Position, st.Dir, h/2)
		if err != nil {
			return 0, err
		}
		pos, dir, err := r.integrate(st, midPos, midDir, h/2)
		if err != nil {
			return 0, err
		}

		errEst := fullPos.Sub(pos).Norm()
		if errEst > st.Tolerance {
			h /= 2
			if math.Abs(h) < r.MinStep {
				return 0, ErrStepTooSmall
			}
			continue
		}

		if trial > 0 {
			st.LastLimit = ConstraintAccuracy
		}
		if trial > 0 || which == ConstraintAccuracy {
			next := math.Abs(h)
			if errEst < st.Tolerance/10 {
				next = math.Min(next*2, r.MaxStep)
			}
			st.StepSize.Set(next, ConstraintAccuracy)
		}

		// covariance follows the straight-line jacobian of the chord
		if err := st.advance(pos, dir, h, track.StraightLineJacobian(h)); err != nil {
			return 0, err
		}
		return h, nil
	}
}

func (r *RK4) integrate(st *State, pos, dir track.Vector3, h float64) (track.Vector3, track.Vector3, error) {
	k1d, err := r.bend(st, pos, dir)
	if err != nil {
		return pos, dir, err
	}
	k1p := dir

	k2p := dir.Add(k1d.Scale(h / 2))
	k2d, err := r.bend(st, pos.Add(k1p.Scale(h/2)), k2p)
	if err != nil {
		return pos, dir, err
	}

	k3p := dir.Add(k2d.Scale(h / 2))
	k3d, err := r.bend(st, pos.Add(k2p.Scale(h/2)), k3p)
	if err != nil {
		return pos, dir, err
	}

	k4p := dir.Add(k3d.Scale(h))
	k4d, err := r.bend(st, pos.Add(k3p.Scale(h)), k4p)
	if err != nil {
		return pos, dir, err
	}

	h6 := h / 6
	newPos := pos.Add(k1p.Add(k2p.Scale(2)).Add(k3p.Scale(2)).Add(k4p).Scale(h6))
	newDir := dir.Add(k1d.Add(k2d.Scale(2)).Add(k3d.Scale(2)).Add(k4d).Scale(h6))
	return newPos, newDir.Unit(), nil
}

// bend returns dT/ds = (q/p) * k * (T x B).
func (r *RK4) bend(st *State, pos, dir track.Vector3) (track.Vector3, error) {
	b, err := r.Field.FieldAt(pos, st.FieldCache)
	if err != nil {
		return track.Vector3{}, err
	}
	return dir.Cross(b).Scale(st.QOverP() * track.BendingConstant), nil
}
