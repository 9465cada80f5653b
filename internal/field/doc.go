// Package field provides magnetic field providers for steppers.
//
// A [Provider] is immutable and may be shared between concurrent
// propagations. Anything a provider wants to remember between lookups of one
// propagation (the last grid bin, a counter) lives in a [Cache] created by
// [Provider.MakeCache] at the start of that propagation.
//
//	p := field.NewConstant(track.Vector3{0, 0, 2})
//	cache := p.MakeCache()
//	b, err := p.FieldAt(pos, cache)
package field
