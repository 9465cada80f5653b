package field

import (
	"errors"

	"github.com/san-kum/trackprop/internal/track"
)

var (
	// ErrOutOfField indicates a lookup outside the volume a provider covers.
	ErrOutOfField = errors.New("field: position outside field volume")

	// ErrInvalidGrid indicates a grid provider built from unusable samples.
	ErrInvalidGrid = errors.New("field: invalid grid definition")
)

type Provider interface {
	MakeCache() Cache
	FieldAt(pos track.Vector3, cache Cache) (track.Vector3, error)
}

// Constant is a homogeneous field.
type Constant struct {
	B track.Vector3
}

func NewConstant(b track.Vector3) *Constant {
	return &Constant{B: b}
}

func (c *Constant) MakeCache() Cache { return Cache{} }

func (c *Constant) FieldAt(pos track.Vector3, cache Cache) (track.Vector3, error) {
	return c.B, nil
}

// Null is a field-free region.
type Null struct{}

func (Null) MakeCache() Cache { return Cache{} }

func (Null) FieldAt(pos track.Vector3, cache Cache) (track.Vector3, error) {
	return track.Vector3{}, nil
}

// Bounded restricts another provider to an axis-aligned box. Lookups outside
// the box fail with ErrOutOfField.
type Bounded struct {
	Inner Provider
	Min   track.Vector3
	Max   track.Vector3
}

func NewBounded(inner Provider, min, max track.Vector3) *Bounded {
	return &Bounded{Inner: inner, Min: min, Max: max}
}

func (b *Bounded) MakeCache() Cache { return b.Inner.MakeCache() }

func (b *Bounded) Inside(pos track.Vector3) bool {
	for i := 0; i < 3; i++ {
		if pos[i] < b.Min[i] || pos[i] > b.Max[i] {
			return false
		}
	}
	return true
}

func (b *Bounded) FieldAt(pos track.Vector3, cache Cache) (track.Vector3, error) {
	if !b.Inside(pos) {
		return track.Vector3{}, ErrOutOfField
	}
	return b.Inner.FieldAt(pos, cache)
}
