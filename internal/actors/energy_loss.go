package actors

import (
	"fmt"
	"math"

	"github.com/san-kum/trackprop/internal/propagator"
	"github.com/san-kum/trackprop/internal/stepper"
)

// EnergyLoss removes a constant momentum per unit path length (GeV/mm) after
// every step. It keeps the relative loss of the next step below
// MaxRelativeLoss and asks for a stop once the momentum drops below
// MinMomentum.
type EnergyLoss struct {
	Rate            float64 `mapstructure:"rate"`
	MinMomentum     float64 `mapstructure:"min_momentum"`
	MaxRelativeLoss float64 `mapstructure:"max_relative_loss"`
}

func DefaultEnergyLoss() EnergyLoss {
	return EnergyLoss{
		Rate:            1e-4,
		MinMomentum:     0.05,
		MaxRelativeLoss: 0.01,
	}
}

func (e EnergyLoss) Name() string { return "energy_loss" }

func (e EnergyLoss) Start(s *propagator.State) {
	e.constrain(s.Stepping)
}

func (e EnergyLoss) Act(s *propagator.State) {
	st := s.Stepping
	if e.Rate <= 0 {
		return
	}
	st.Momentum = math.Max(st.Momentum-e.Rate*math.Abs(st.LastStep), 0)

	if st.Momentum < e.MinMomentum {
		s.RequestStop(fmt.Sprintf("momentum %.4g GeV below %.4g GeV", st.Momentum, e.MinMomentum))
		return
	}
	e.constrain(st)
}

func (e EnergyLoss) constrain(st *stepper.State) {
	if e.Rate <= 0 || e.MaxRelativeLoss <= 0 || st.Momentum <= 0 {
		return
	}
	st.StepSize.Update(e.MaxRelativeLoss*st.Momentum/e.Rate, stepper.ConstraintActor)
}
