// Package metrics provides summary observers. Each keeps its accumulator in
// its result value and reduces it to a single number through Value.
package metrics

import "github.com/san-kum/trackprop/internal/propagator"

// Valuer is implemented by every metric result.
type Valuer interface {
	Value() float64
}

// Collect reduces the metric results of an aggregate to name/value pairs.
// Fields that are not metrics are skipped.
func Collect(r *propagator.Results) map[string]float64 {
	out := make(map[string]float64)
	for _, f := range r.Fields() {
		if v, ok := f.Value.(Valuer); ok {
			out[f.Member] = v.Value()
		}
	}
	return out
}
