package track

import (
	"errors"
	"fmt"
	"math"
)

const (
	// SpeedOfLight in mm/ns.
	SpeedOfLight = 299.792458

	// PionMass in GeV, used when a start state does not name a mass.
	PionMass = 0.13957039

	// BendingConstant converts q[e] * B[T] into a curvature in GeV/mm.
	BendingConstant = 0.299792458e-3
)

var (
	ErrInvalidParameters = errors.New("track: invalid parameters")
	ErrZeroDirection     = errors.New("track: direction has zero length")
)

// Parameters describe the free start state of an object to be propagated.
type Parameters struct {
	Position   Vector3
	Direction  Vector3
	Momentum   float64 // GeV, magnitude
	Charge     float64 // units of e, zero for neutral objects
	Mass       float64 // GeV
	Time       float64 // ns
	Covariance *Covariance
}

// NewParameters returns parameters with a normalized direction and the
// default mass.
func NewParameters(pos, dir Vector3, momentum, charge float64) Parameters {
	return Parameters{
		Position:  pos,
		Direction: dir.Unit(),
		Momentum:  momentum,
		Charge:    charge,
		Mass:      PionMass,
	}
}

func (p Parameters) QOverP() float64 {
	if p.Momentum == 0 {
		return 0
	}
	return p.Charge / p.Momentum
}

func (p Parameters) Validate() error {
	if !p.Position.IsValid() || !p.Direction.IsValid() {
		return fmt.Errorf("%w: non-finite position or direction", ErrInvalidParameters)
	}
	if p.Direction.Norm() == 0 {
		return ErrZeroDirection
	}
	if p.Momentum <= 0 || math.IsNaN(p.Momentum) || math.IsInf(p.Momentum, 0) {
		return fmt.Errorf("%w: momentum must be positive, got %g", ErrInvalidParameters, p.Momentum)
	}
	if p.Mass < 0 {
		return fmt.Errorf("%w: negative mass %g", ErrInvalidParameters, p.Mass)
	}
	return nil
}

// Beta returns v/c for the given momentum and mass.
func Beta(momentum, mass float64) float64 {
	e := math.Hypot(momentum, mass)
	if e == 0 {
		return 0
	}
	return momentum / e
}
