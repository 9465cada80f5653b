package experiment

import "github.com/san-kum/trackprop/internal/actors"

// StepView is a recorded step with derived quantities for plotting and export.
type StepView struct {
	actors.StepRecord
	Radius float64 `json:"radius"`
}
