package field

import (
	"errors"
	"math"
	"testing"

	"github.com/san-kum/trackprop/internal/track"
)

func TestCache_TypeErased(t *testing.T) {
	type scratch struct{ value int }

	cache := NewCache(scratch{value: 42})
	if cache.Empty() {
		t.Fatal("expected non-empty cache")
	}

	v, ok := CacheValue[scratch](cache)
	if !ok {
		t.Fatal("expected cache to hold scratch")
	}
	if v.value != 42 {
		t.Errorf("value = %d, want 42", v.value)
	}
	v.value = 65

	v2, _ := CacheValue[scratch](cache)
	if v2.value != 65 {
		t.Errorf("mutation not persisted: got %d, want 65", v2.value)
	}

	if _, ok := CacheValue[int](cache); ok {
		t.Error("expected type mismatch to report false")
	}
	if _, ok := CacheValue[scratch](Cache{}); ok {
		t.Error("expected empty cache to report false")
	}
}

func TestConstant(t *testing.T) {
	p := NewConstant(track.Vector3{0, 0, 2})
	b, err := p.FieldAt(track.Vector3{100, -3, 7}, p.MakeCache())
	if err != nil {
		t.Fatalf("FieldAt failed: %v", err)
	}
	if b != (track.Vector3{0, 0, 2}) {
		t.Errorf("FieldAt = %v, want [0 0 2]", b)
	}
}

func TestBounded(t *testing.T) {
	p := NewBounded(NewConstant(track.Vector3{0, 0, 1}), track.Vector3{-10, -10, -10}, track.Vector3{10, 10, 10})

	tests := []struct {
		name    string
		pos     track.Vector3
		wantErr bool
	}{
		{"origin", track.Vector3{}, false},
		{"edge", track.Vector3{10, 10, 10}, false},
		{"outside x", track.Vector3{11, 0, 0}, true},
		{"outside z", track.Vector3{0, 0, -10.5}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := p.FieldAt(tt.pos, p.MakeCache())
			if tt.wantErr && !errors.Is(err, ErrOutOfField) {
				t.Errorf("FieldAt(%v) error = %v, want ErrOutOfField", tt.pos, err)
			}
			if !tt.wantErr && err != nil {
				t.Errorf("FieldAt(%v) unexpected error: %v", tt.pos, err)
			}
		})
	}
}

func TestZGrid_Interpolation(t *testing.T) {
	g, err := NewZGrid(0, 100, []float64{1, 2, 4})
	if err != nil {
		t.Fatalf("NewZGrid failed: %v", err)
	}
	cache := g.MakeCache()

	tests := []struct {
		z  float64
		bz float64
	}{
		{0, 1},
		{25, 1.5},
		{50, 2},
		{75, 3},
		{100, 4},
	}

	for _, tt := range tests {
		b, err := g.FieldAt(track.Vector3{0, 0, tt.z}, cache)
		if err != nil {
			t.Fatalf("FieldAt(z=%v) failed: %v", tt.z, err)
		}
		if math.Abs(b[2]-tt.bz) > 1e-12 {
			t.Errorf("Bz(%v) = %v, want %v", tt.z, b[2], tt.bz)
		}
	}

	if got := Lookups(cache); got != len(tests) {
		t.Errorf("Lookups = %d, want %d", got, len(tests))
	}

	if _, err := g.FieldAt(track.Vector3{0, 0, 101}, cache); !errors.Is(err, ErrOutOfField) {
		t.Errorf("expected ErrOutOfField beyond grid, got %v", err)
	}
}

func TestZGrid_Invalid(t *testing.T) {
	if _, err := NewZGrid(0, 10, []float64{1}); !errors.Is(err, ErrInvalidGrid) {
		t.Errorf("single sample: got %v, want ErrInvalidGrid", err)
	}
	if _, err := NewZGrid(10, 0, []float64{1, 2}); !errors.Is(err, ErrInvalidGrid) {
		t.Errorf("inverted range: got %v, want ErrInvalidGrid", err)
	}
}

func TestZGrid_CachesAreIndependent(t *testing.T) {
	g, _ := NewZGrid(-50, 50, []float64{2, 2})
	a, b := g.MakeCache(), g.MakeCache()

	for i := 0; i < 3; i++ {
		g.FieldAt(track.Vector3{0, 0, float64(i)}, a)
	}
	g.FieldAt(track.Vector3{}, b)

	if Lookups(a) != 3 || Lookups(b) != 1 {
		t.Errorf("lookups = (%d, %d), want (3, 1)", Lookups(a), Lookups(b))
	}
}
