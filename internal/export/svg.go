package export

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/san-kum/trackprop/internal/actors"
)

var ErrTooFewPoints = errors.New("export: trajectory needs at least two points")

// Projection maps a 3D step onto a drawing plane.
type Projection string

const (
	ProjectionXY Projection = "xy"
	ProjectionZX Projection = "zx"
	// ProjectionRZ plots the transverse radius against z.
	ProjectionRZ Projection = "rz"
)

func ParseProjection(s string) (Projection, error) {
	switch p := Projection(strings.ToLower(s)); p {
	case ProjectionXY, ProjectionZX, ProjectionRZ:
		return p, nil
	}
	return "", fmt.Errorf("export: unknown projection %q", s)
}

func (p Projection) project(s actors.StepRecord) (float64, float64) {
	switch p {
	case ProjectionZX:
		return s.Position[2], s.Position[0]
	case ProjectionRZ:
		return s.Position[2], s.Position.Perp()
	}
	return s.Position[0], s.Position[1]
}

type SVGOptions struct {
	Width      int
	Height     int
	Projection Projection
	Stroke     string
	// Marker colors surface crossings. Empty disables markers.
	Marker string
}

func DefaultSVGOptions() SVGOptions {
	return SVGOptions{
		Width:      800,
		Height:     600,
		Projection: ProjectionXY,
		Stroke:     "#00ccff",
		Marker:     "#ffcc00",
	}
}

type bounds struct {
	minX, maxX, minY, maxY float64
}

func (b bounds) scale(x, y float64, width, height int) (float64, float64) {
	sx := (x - b.minX) / (b.maxX - b.minX) * float64(width)
	sy := float64(height) - (y-b.minY)/(b.maxY-b.minY)*float64(height)
	return sx, sy
}

func paddedBounds(xs, ys []float64) bounds {
	b := bounds{minX: xs[0], maxX: xs[0], minY: ys[0], maxY: ys[0]}
	for i := range xs {
		b.minX = min(b.minX, xs[i])
		b.maxX = max(b.maxX, xs[i])
		b.minY = min(b.minY, ys[i])
		b.maxY = max(b.maxY, ys[i])
	}

	rangeX := b.maxX - b.minX
	rangeY := b.maxY - b.minY
	if rangeX == 0 {
		rangeX = 1
	}
	if rangeY == 0 {
		rangeY = 1
	}
	b.minX -= rangeX * 0.1
	b.maxX += rangeX * 0.1
	b.minY -= rangeY * 0.1
	b.maxY += rangeY * 0.1
	return b
}

// TrajectorySVG draws the projected trajectory as a single path, with a
// circle at every recorded surface crossing.
func TrajectorySVG(w io.Writer, steps []actors.StepRecord, opts SVGOptions) error {
	if len(steps) < 2 {
		return ErrTooFewPoints
	}

	xs := make([]float64, len(steps))
	ys := make([]float64, len(steps))
	for i, s := range steps {
		xs[i], ys[i] = opts.Projection.project(s)
	}
	b := paddedBounds(xs, ys)

	var sb strings.Builder
	fmt.Fprintf(&sb, `<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">
<rect width="100%%" height="100%%" fill="#0a0a0a"/>
<path fill="none" stroke="%s" stroke-width="1.5" d="M`,
		opts.Width, opts.Height, opts.Width, opts.Height, opts.Stroke)

	for i := range xs {
		x, y := b.scale(xs[i], ys[i], opts.Width, opts.Height)
		if i == 0 {
			fmt.Fprintf(&sb, "%.1f,%.1f", x, y)
		} else {
			fmt.Fprintf(&sb, " L%.1f,%.1f", x, y)
		}
	}
	sb.WriteString("\"/>\n")

	if opts.Marker != "" {
		for i, s := range steps {
			if s.Surface == "" {
				continue
			}
			x, y := b.scale(xs[i], ys[i], opts.Width, opts.Height)
			fmt.Fprintf(&sb, "<circle cx=\"%.1f\" cy=\"%.1f\" r=\"3\" fill=\"%s\"><title>%s</title></circle>\n",
				x, y, opts.Marker, s.Surface)
		}
	}

	sb.WriteString("</svg>\n")
	_, err := io.WriteString(w, sb.String())
	return err
}
