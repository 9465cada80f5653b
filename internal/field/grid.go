package field

import (
	"fmt"

	"github.com/san-kum/trackprop/internal/track"
)

// ZGrid is a solenoid-like field along z, sampled on a regular grid of Bz
// values and linearly interpolated between samples. Outside [ZMin, ZMax] the
// lookup fails.
type ZGrid struct {
	zMin, zMax float64
	step       float64
	bz         []float64
}

// gridCache remembers the last bin so that consecutive lookups along a
// trajectory skip the index computation.
type gridCache struct {
	bin     int
	lo, hi  float64
	lookups int
}

func NewZGrid(zMin, zMax float64, bz []float64) (*ZGrid, error) {
	if len(bz) < 2 {
		return nil, fmt.Errorf("%w: need at least 2 samples, got %d", ErrInvalidGrid, len(bz))
	}
	if zMax <= zMin {
		return nil, fmt.Errorf("%w: zmax %g must exceed zmin %g", ErrInvalidGrid, zMax, zMin)
	}
	samples := make([]float64, len(bz))
	copy(samples, bz)
	return &ZGrid{
		zMin: zMin,
		zMax: zMax,
		step: (zMax - zMin) / float64(len(bz)-1),
		bz:   samples,
	}, nil
}

func (g *ZGrid) MakeCache() Cache {
	return NewCache(gridCache{bin: -1})
}

func (g *ZGrid) FieldAt(pos track.Vector3, cache Cache) (track.Vector3, error) {
	z := pos[2]
	if z < g.zMin || z > g.zMax {
		return track.Vector3{}, ErrOutOfField
	}

	gc, ok := CacheValue[gridCache](cache)
	if !ok {
		// no cache supplied, use a throwaway one
		gc = &gridCache{bin: -1}
	}
	gc.lookups++

	if gc.bin < 0 || z < gc.lo || z > gc.hi {
		bin := int((z - g.zMin) / g.step)
		if bin >= len(g.bz)-1 {
			bin = len(g.bz) - 2
		}
		gc.bin = bin
		gc.lo = g.zMin + float64(bin)*g.step
		gc.hi = gc.lo + g.step
	}

	frac := (z - gc.lo) / g.step
	bz := g.bz[gc.bin]*(1-frac) + g.bz[gc.bin+1]*frac
	return track.Vector3{0, 0, bz}, nil
}

// Lookups reports how many lookups a grid cache has served.
func Lookups(cache Cache) int {
	gc, ok := CacheValue[gridCache](cache)
	if !ok {
		return 0
	}
	return gc.lookups
}
