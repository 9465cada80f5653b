package stepper

import (
	"fmt"
	"math"
)

// ConstraintType names who asked for a step-size bound.
type ConstraintType int

const (
	ConstraintAccuracy ConstraintType = iota
	ConstraintNavigator
	ConstraintActor
	ConstraintAborter
	ConstraintPolicy
	numConstraints
)

func (t ConstraintType) String() string {
	switch t {
	case ConstraintAccuracy:
		return "accuracy"
	case ConstraintNavigator:
		return "navigator"
	case ConstraintActor:
		return "actor"
	case ConstraintAborter:
		return "aborter"
	case ConstraintPolicy:
		return "policy"
	default:
		return fmt.Sprintf("constraint(%d)", int(t))
	}
}

// ConstrainedStep holds one unsigned upper bound per constraint type. Unset
// bounds are +Inf.
type ConstrainedStep struct {
	values [numConstraints]float64
}

func NewConstrainedStep(accuracy float64) ConstrainedStep {
	var c ConstrainedStep
	for i := range c.values {
		c.values[i] = math.Inf(1)
	}
	c.values[ConstraintAccuracy] = math.Abs(accuracy)
	return c
}

// Set replaces the bound of type t. Negative values are taken by magnitude.
func (c *ConstrainedStep) Set(v float64, t ConstraintType) {
	c.values[t] = math.Abs(v)
}

// Update tightens the bound of type t, keeping the smaller magnitude.
func (c *ConstrainedStep) Update(v float64, t ConstraintType) {
	if v = math.Abs(v); v < c.values[t] {
		c.values[t] = v
	}
}

func (c *ConstrainedStep) Release(t ConstraintType) {
	c.values[t] = math.Inf(1)
}

func (c ConstrainedStep) Get(t ConstraintType) float64 {
	return c.values[t]
}

// Value returns the tightest bound.
func (c ConstrainedStep) Value() float64 {
	v, _ := c.Limiting()
	return v
}

// Limiting returns the tightest bound and the constraint that set it.
func (c ConstrainedStep) Limiting() (float64, ConstraintType) {
	best, which := c.values[0], ConstraintType(0)
	for i := 1; i < int(numConstraints); i++ {
		if c.values[i] < best {
			best, which = c.values[i], ConstraintType(i)
		}
	}
	return best, which
}
