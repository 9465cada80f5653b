// Package actors provides the standard actions and abort conditions that can
// be registered on a propagator.Builder.
//
// Observers record per-call data into their result value. Aborters are
// either plain conditions on the state or, like SurfaceCount, conditions
// attached to an observer's result. None of them keep state of their own, so
// a single instance can serve concurrent propagations.
package actors
